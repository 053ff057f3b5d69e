// ABOUTME: Tests for create/update payload parsing and validation messages
// ABOUTME: Covers required fields, enum sets, budget integer rules and null handling

package wishlist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireFieldError(t *testing.T, err error, field, reason string) {
	t.Helper()
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, FieldError{Field: field, Reason: reason}, "fields: %+v", ve.Fields)
}

func TestParseCreateMinimal(t *testing.T) {
	in, err := ParseCreate([]byte(`{"name":"Headphones","timeframe":"short-term","category":"gadgets","priority":"high"}`))
	require.NoError(t, err)

	assert.Equal(t, "Headphones", in.Name)
	assert.Equal(t, TimeframeShort, in.Timeframe)
	assert.Equal(t, CategoryGadgets, in.Category)
	assert.Equal(t, PriorityHigh, in.Priority)
	assert.Empty(t, in.Status)
	assert.Empty(t, in.DesireType)
	assert.Nil(t, in.Budget)
	assert.Nil(t, in.Memo)

	item := NewItem(in)
	assert.Equal(t, StatusUnstarted, item.Status)
	assert.Equal(t, DesireGeneralImage, item.DesireType)
}

func TestParseCreateAllFields(t *testing.T) {
	in, err := ParseCreate([]byte(`{
		"name":"Pottery class","timeframe":"long-term","category":"experiences",
		"priority":"low","status":"considering","desireType":"problem-to-solve",
		"budget":12000,"memo":"**weekends** only","extra":"ignored"
	}`))
	require.NoError(t, err)

	assert.Equal(t, StatusConsidering, in.Status)
	assert.Equal(t, DesireProblemToSolve, in.DesireType)
	require.NotNil(t, in.Budget)
	assert.Equal(t, int64(12000), *in.Budget)
	require.NotNil(t, in.Memo)
	assert.Equal(t, "**weekends** only", *in.Memo)
}

func TestParseCreateNullableFields(t *testing.T) {
	in, err := ParseCreate([]byte(`{"name":"x","timeframe":"short-term","category":"other","priority":"low","budget":null,"memo":null}`))
	require.NoError(t, err)
	assert.Nil(t, in.Budget)
	assert.Nil(t, in.Memo)
}

func TestParseCreateMissingRequired(t *testing.T) {
	_, err := ParseCreate([]byte(`{}`))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	fields := ve.FieldMap()
	for _, f := range []string{"name", "timeframe", "category", "priority"} {
		assert.Equal(t, "is required", fields[f], f)
	}
	assert.Len(t, ve.Fields, 4)
}

func TestParseCreateRejects(t *testing.T) {
	base := `"name":"x","timeframe":"short-term","category":"gadgets","priority":"high"`
	tests := []struct {
		name   string
		body   string
		field  string
		reason string
	}{
		{"empty name", `{"name":"","timeframe":"short-term","category":"gadgets","priority":"high"}`, "name", "is required"},
		{"long name", `{"name":"` + strings.Repeat("a", 201) + `","timeframe":"short-term","category":"gadgets","priority":"high"}`, "name", "must be at most 200 characters"},
		{"bad timeframe", `{"name":"x","timeframe":"someday","category":"gadgets","priority":"high"}`, "timeframe", "must be one of: short-term medium-term long-term"},
		{"bad category", `{"name":"x","timeframe":"short-term","category":"food","priority":"high"}`, "category", "must be one of: gadgets experiences skills lifestyle other"},
		{"bad priority", `{"name":"x","timeframe":"short-term","category":"gadgets","priority":"urgent"}`, "priority", "must be one of: high medium low"},
		{"bad status", `{` + base + `,"status":"done"}`, "status", "must be one of: unstarted considering purchased"},
		{"fractional budget", `{` + base + `,"budget":1.5}`, "budget", "must be an integer"},
		{"string budget", `{` + base + `,"budget":"10"}`, "budget", "must be an integer"},
		{"negative budget", `{` + base + `,"budget":-1}`, "budget", "must be greater than or equal to 0"},
		{"budget above exact range", `{` + base + `,"budget":9007199254740992}`, "budget", "must be less than or equal to 9007199254740991"},
		{"int64 max budget", `{` + base + `,"budget":9223372036854775807}`, "budget", "must be less than or equal to 9007199254740991"},
		{"long memo", `{` + base + `,"memo":"` + strings.Repeat("m", 10001) + `"}`, "memo", "must be at most 10000 characters"},
		{"numeric name", `{"name":5,"timeframe":"short-term","category":"gadgets","priority":"high"}`, "name", "must be a string"},
		{"null status", `{` + base + `,"status":null}`, "status", "must not be null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCreate([]byte(tt.body))
			requireFieldError(t, err, tt.field, tt.reason)
		})
	}
}

func TestParseCreateNameCountsCodePoints(t *testing.T) {
	name := strings.Repeat("é", 200)
	_, err := ParseCreate([]byte(`{"name":"` + name + `","timeframe":"short-term","category":"gadgets","priority":"high"}`))
	assert.NoError(t, err)
}

func TestParseCreateIntegralFloatBudget(t *testing.T) {
	in, err := ParseCreate([]byte(`{"name":"x","timeframe":"short-term","category":"gadgets","priority":"high","budget":100.0}`))
	require.NoError(t, err)
	require.NotNil(t, in.Budget)
	assert.Equal(t, int64(100), *in.Budget)
}

func TestParseCreateNotAnObject(t *testing.T) {
	for _, body := range []string{``, `[]`, `"x"`, `null`, `{"name":`} {
		_, err := ParseCreate([]byte(body))
		require.Error(t, err, body)
		assert.True(t, IsValidationError(err), body)
	}
}

func TestParseUpdatePartial(t *testing.T) {
	up, err := ParseUpdate([]byte(`{"status":"purchased"}`))
	require.NoError(t, err)

	require.NotNil(t, up.Status)
	assert.Equal(t, StatusPurchased, *up.Status)
	assert.Nil(t, up.Name)
	assert.False(t, up.Budget.Set)
	assert.False(t, up.Memo.Set)
	assert.False(t, up.IsEmpty())
}

func TestParseUpdateEmpty(t *testing.T) {
	up, err := ParseUpdate([]byte(`{}`))
	require.NoError(t, err)
	assert.True(t, up.IsEmpty())
}

func TestParseUpdateClearsNullable(t *testing.T) {
	up, err := ParseUpdate([]byte(`{"budget":null,"memo":null}`))
	require.NoError(t, err)
	assert.True(t, up.Budget.Set)
	assert.Nil(t, up.Budget.Value)
	assert.True(t, up.Memo.Set)
	assert.Nil(t, up.Memo.Value)
}

func TestParseUpdateRejects(t *testing.T) {
	_, err := ParseUpdate([]byte(`{"name":null}`))
	requireFieldError(t, err, "name", "must not be null")

	_, err = ParseUpdate([]byte(`{"priority":"urgent","budget":-5}`))
	requireFieldError(t, err, "priority", "must be one of: high medium low")
	requireFieldError(t, err, "budget", "must be greater than or equal to 0")
}

func TestItemApply(t *testing.T) {
	budget := int64(50)
	memo := "note"
	item := &Item{Name: "old", Timeframe: TimeframeShort, Budget: &budget, Memo: &memo, Status: StatusUnstarted}

	name := "new"
	item.Apply(UpdateInput{Name: &name, Budget: Null[int64]()})

	assert.Equal(t, "new", item.Name)
	assert.Equal(t, TimeframeShort, item.Timeframe)
	assert.Nil(t, item.Budget)
	require.NotNil(t, item.Memo)
	assert.Equal(t, "note", *item.Memo)
}

func TestValidationErrorMessage(t *testing.T) {
	ve := &ValidationError{Fields: []FieldError{
		{Field: "name", Reason: "is required"},
		{Field: "budget", Reason: "must be an integer"},
	}}
	assert.Equal(t, "field 'name' is required; field 'budget' must be an integer", ve.Error())
}
