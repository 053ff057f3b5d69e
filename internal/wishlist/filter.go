// ABOUTME: List filters and sort options shared by every transport
// ABOUTME: Enum filters are validated; sort and order fall back to defaults

package wishlist

import (
	"bytes"
	"encoding/json"
)

// SortKey is a column the list operation can order by.
type SortKey string

const (
	SortName      SortKey = "name"
	SortCreatedAt SortKey = "createdAt"
	SortUpdatedAt SortKey = "updatedAt"
	SortBudget    SortKey = "budget"
	SortPriority  SortKey = "priority"
)

// SortKeys lists the accepted sort keys.
var SortKeys = []SortKey{SortName, SortCreatedAt, SortUpdatedAt, SortBudget, SortPriority}

// SortOrder is the list direction.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ListFilter narrows and orders a list. Empty enum fields do not constrain.
type ListFilter struct {
	Timeframe  Timeframe
	Category   Category
	Status     Status
	Priority   Priority
	DesireType DesireType
	Sort       SortKey
	Order      SortOrder
}

// NormalizeSort maps unknown keys to createdAt.
func NormalizeSort(s string) SortKey {
	if contains(SortKeys, SortKey(s)) {
		return SortKey(s)
	}
	return SortCreatedAt
}

// NormalizeOrder returns asc only for exactly "asc".
func NormalizeOrder(s string) SortOrder {
	if s == string(OrderAsc) {
		return OrderAsc
	}
	return OrderDesc
}

// ParseFilters builds a ListFilter from string parameters such as URL query
// values. Empty values are treated as absent.
func ParseFilters(params map[string]string) (ListFilter, error) {
	errs := &ValidationError{}
	f := ListFilter{
		Sort:  NormalizeSort(params["sort"]),
		Order: NormalizeOrder(params["order"]),
	}
	if v := params["timeframe"]; v != "" {
		f.Timeframe = Timeframe(v)
		errs.check("timeframe", v, tagTimeframe)
	}
	if v := params["category"]; v != "" {
		f.Category = Category(v)
		errs.check("category", v, tagCategory)
	}
	if v := params["status"]; v != "" {
		f.Status = Status(v)
		errs.check("status", v, tagStatus)
	}
	if v := params["priority"]; v != "" {
		f.Priority = Priority(v)
		errs.check("priority", v, tagPriority)
	}
	if v := params["desireType"]; v != "" {
		f.DesireType = DesireType(v)
		errs.check("desireType", v, tagDesireType)
	}
	if err := errs.orNil(); err != nil {
		return ListFilter{}, err
	}
	return f, nil
}

// ParseFiltersJSON reads filters from a JSON object such as MCP tool
// arguments. Empty or null input means no filters.
func ParseFiltersJSON(raw []byte) (ListFilter, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ParseFilters(nil)
	}
	p, err := newPayload(trimmed)
	if err != nil {
		return ListFilter{}, err
	}
	params := make(map[string]string, len(p.fields))
	for _, key := range []string{"timeframe", "category", "status", "priority", "desireType", "sort", "order"} {
		raw, present := p.fields[key]
		if !present || isNull(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			p.errs.add(key, "must be a string")
			continue
		}
		params[key] = s
	}
	if err := p.errs.orNil(); err != nil {
		return ListFilter{}, err
	}
	return ParseFilters(params)
}
