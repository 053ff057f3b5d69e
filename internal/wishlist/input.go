// ABOUTME: Parsing of create/update payloads from raw JSON into validated inputs
// ABOUTME: Shared by the REST and MCP transports so both accept identical values

package wishlist

import (
	"bytes"
	"encoding/json"
	"math"
)

// CreateInput is a validated create payload. Empty Status/DesireType mean
// "use the default".
type CreateInput struct {
	Name       string
	Timeframe  Timeframe
	Category   Category
	Priority   Priority
	Status     Status
	DesireType DesireType
	Budget     *int64
	Memo       *string
}

// Nullable is a field that may be omitted, set to a value, or set to null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Null returns a Nullable that clears the field.
func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

// Some returns a Nullable holding v.
func Some[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Value: &v} }

// UpdateInput is a validated partial update. Nil pointers are fields that
// were not supplied.
type UpdateInput struct {
	Name       *string
	Timeframe  *Timeframe
	Category   *Category
	Priority   *Priority
	Status     *Status
	DesireType *DesireType
	Budget     Nullable[int64]
	Memo       Nullable[string]
}

// IsEmpty reports whether no field was supplied.
func (u UpdateInput) IsEmpty() bool {
	return u.Name == nil && u.Timeframe == nil && u.Category == nil &&
		u.Priority == nil && u.Status == nil && u.DesireType == nil &&
		!u.Budget.Set && !u.Memo.Set
}

// ParseCreate validates a full create payload.
func ParseCreate(raw []byte) (CreateInput, error) {
	p, err := newPayload(raw)
	if err != nil {
		return CreateInput{}, err
	}

	var in CreateInput
	if v, ok := p.str("name", true); ok {
		in.Name = v
		p.errs.check("name", v, tagName)
	}
	if v, ok := p.str("timeframe", true); ok {
		in.Timeframe = Timeframe(v)
		p.errs.check("timeframe", v, tagTimeframe)
	}
	if v, ok := p.str("category", true); ok {
		in.Category = Category(v)
		p.errs.check("category", v, tagCategory)
	}
	if v, ok := p.str("priority", true); ok {
		in.Priority = Priority(v)
		p.errs.check("priority", v, tagPriority)
	}
	if v, ok := p.str("status", false); ok {
		in.Status = Status(v)
		p.errs.check("status", v, tagStatus)
	}
	if v, ok := p.str("desireType", false); ok {
		in.DesireType = DesireType(v)
		p.errs.check("desireType", v, tagDesireType)
	}
	if n := p.budget(); n.Set {
		in.Budget = n.Value
	}
	if n := p.memo(); n.Set {
		in.Memo = n.Value
	}

	if err := p.errs.orNil(); err != nil {
		return CreateInput{}, err
	}
	return in, nil
}

// ParseUpdate validates a partial update payload. Only supplied fields are
// checked; budget and memo may be null to clear them.
func ParseUpdate(raw []byte) (UpdateInput, error) {
	p, err := newPayload(raw)
	if err != nil {
		return UpdateInput{}, err
	}

	var up UpdateInput
	if v, ok := p.str("name", false); ok {
		up.Name = &v
		p.errs.check("name", v, tagName)
	}
	if v, ok := p.str("timeframe", false); ok {
		t := Timeframe(v)
		up.Timeframe = &t
		p.errs.check("timeframe", v, tagTimeframe)
	}
	if v, ok := p.str("category", false); ok {
		c := Category(v)
		up.Category = &c
		p.errs.check("category", v, tagCategory)
	}
	if v, ok := p.str("priority", false); ok {
		pr := Priority(v)
		up.Priority = &pr
		p.errs.check("priority", v, tagPriority)
	}
	if v, ok := p.str("status", false); ok {
		s := Status(v)
		up.Status = &s
		p.errs.check("status", v, tagStatus)
	}
	if v, ok := p.str("desireType", false); ok {
		d := DesireType(v)
		up.DesireType = &d
		p.errs.check("desireType", v, tagDesireType)
	}
	up.Budget = p.budget()
	up.Memo = p.memo()

	if err := p.errs.orNil(); err != nil {
		return UpdateInput{}, err
	}
	return up, nil
}

// payload is a decoded JSON object plus the errors found while reading it.
type payload struct {
	fields map[string]json.RawMessage
	errs   *ValidationError
}

func newPayload(raw []byte) (*payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ValidationError{Fields: []FieldError{{Field: "body", Reason: "must be a JSON object"}}}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "body", Reason: "must be valid JSON"}}}
	}
	return &payload{fields: fields, errs: &ValidationError{}}, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// str reads a non-nullable string field. ok is false when the field is
// absent or unusable; a missing required field or a type mismatch is recorded.
func (p *payload) str(field string, required bool) (string, bool) {
	raw, present := p.fields[field]
	if !present {
		if required {
			p.errs.add(field, "is required")
		}
		return "", false
	}
	if isNull(raw) {
		p.errs.add(field, "must not be null")
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		p.errs.add(field, "must be a string")
		return "", false
	}
	return s, true
}

func (p *payload) budget() Nullable[int64] {
	raw, present := p.fields["budget"]
	if !present {
		return Nullable[int64]{}
	}
	if isNull(raw) {
		return Null[int64]()
	}
	n, ok := parseInteger(raw)
	if !ok {
		p.errs.add("budget", "must be an integer")
		return Nullable[int64]{}
	}
	p.errs.check("budget", n, tagBudget)
	return Some(n)
}

func (p *payload) memo() Nullable[string] {
	raw, present := p.fields["memo"]
	if !present {
		return Nullable[string]{}
	}
	if isNull(raw) {
		return Null[string]()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		p.errs.add("memo", "must be a string")
		return Nullable[string]{}
	}
	p.errs.check("memo", s, tagMemo)
	return Some(s)
}

// parseInteger accepts JSON numbers with no fractional part. Strings, 1.5
// and values outside the int64 range are rejected.
func parseInteger(raw json.RawMessage) (int64, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if n, err := num.Int64(); err == nil {
		return n, true
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
