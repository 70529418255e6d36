package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		groups        []Group
		expectedError string
	}{
		{
			name: "valid",
			groups: []Group{{Group: "General", Fields: []Field{
				NewField("name", "Name", TypeText).IsRequired(),
				NewField("role", "Role", TypeSelect).WithOptions(Options("admin", "staff")...),
				NewField("price", "Price", TypeCurrency).WithRange(Bound(0), nil),
			}}},
		},
		{
			name:          "unnamed group",
			groups:        []Group{{Fields: []Field{NewField("name", "Name", TypeText)}}},
			expectedError: "without a name",
		},
		{
			name: "duplicate field across groups",
			groups: []Group{
				{Group: "A", Fields: []Field{NewField("name", "Name", TypeText)}},
				{Group: "B", Fields: []Field{NewField("name", "Name", TypeText)}},
			},
			expectedError: "duplicate",
		},
		{
			name:          "select without options",
			groups:        []Group{{Group: "A", Fields: []Field{NewField("role", "Role", TypeSelect)}}},
			expectedError: "no options",
		},
		{
			name:          "unknown type",
			groups:        []Group{{Group: "A", Fields: []Field{NewField("x", "X", "slider")}}},
			expectedError: "unknown type",
		},
		{
			name: "inverted range",
			groups: []Group{{Group: "A", Fields: []Field{
				NewField("qty", "Qty", TypeNumber).WithRange(Bound(10), Bound(1)),
			}}},
			expectedError: "min above max",
		},
		{
			name: "items with bad line field",
			groups: []Group{{Group: "A", Fields: []Field{
				NewField("items", "Items", TypeItems).WithFields(NewField("", "Broken", TypeText)),
			}}},
			expectedError: "items field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.groups)
			if tt.expectedError == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestColumnBuilders(t *testing.T) {
	c := NewColumn("price", "Price").Sorted().As(FormatCurrency)
	assert.Equal(t, AlignRight, c.Align)
	assert.True(t, c.Sortable)

	b := NewColumn("active", "Active").As(FormatBoolean)
	assert.Equal(t, AlignCenter, b.Align)

	l := NewColumn("name", "Name").Linked().Searched().Aligned(AlignCenter)
	assert.True(t, l.Clickable)
	assert.True(t, l.Search)
	assert.Equal(t, AlignCenter, l.Align)
}

func TestValidateColumns(t *testing.T) {
	columns := []Column{
		NewColumn("name", "Name").Sorted().Searched().Linked(),
		NewColumn("price", "Price").Sorted().As(FormatCurrency),
	}
	require.NoError(t, ValidateColumns(columns, []string{"name", "price"}, []string{"name"}))

	err := ValidateColumns(columns, []string{"name"}, []string{"name"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sort whitelist")

	err = ValidateColumns(columns, []string{"name", "price"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a search column")

	err = ValidateColumns([]Column{{Field: "x", Label: "X", Format: "emoji", Align: AlignLeft}}, nil, nil)
	require.Error(t, err)
}

func TestColumnJSONShape(t *testing.T) {
	raw, err := json.Marshal(NewColumn("sku", "SKU").Searched())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"field", "label", "sortable", "clickable", "search", "format", "align"} {
		assert.Contains(t, decoded, key)
	}
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Product", Capitalize("product"))
	assert.Equal(t, "Estimate item", Capitalize("estimate item"))
	assert.Equal(t, "", Capitalize(""))
}
