// Package schema describes resources to the frontend: form fields grouped
// for rendering, and the columns of list tables.
package schema

import (
	"fmt"
	"strings"
)

// FieldType selects the form control used for a field.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypePassword FieldType = "password"
	TypeTextarea FieldType = "textarea"
	TypeNumber   FieldType = "number"
	TypeCurrency FieldType = "currency"
	TypeSelect   FieldType = "select"
	TypeCheckbox FieldType = "checkbox"
	TypeDate     FieldType = "date"
	TypeItems    FieldType = "items" // Nested line editor, Fields describes one line
)

// Format selects how a column value is rendered in a table cell.
type Format string

const (
	FormatText     Format = "text"
	FormatNumber   Format = "number"
	FormatCurrency Format = "currency"
	FormatDate     Format = "date"
	FormatDateTime Format = "datetime"
	FormatBoolean  Format = "boolean"
	FormatBadge    Format = "badge"
)

// Align is the horizontal alignment of a column.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Option is a choice offered by a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one form input.
type Field struct {
	Name        string      `json:"name"`
	Label       string      `json:"label"`
	Type        FieldType   `json:"type"`
	Required    bool        `json:"required"`
	Readonly    bool        `json:"readonly"`
	Placeholder string      `json:"placeholder,omitempty"`
	Help        string      `json:"help,omitempty"`
	Options     []Option    `json:"options,omitempty"`
	Default     interface{} `json:"default,omitempty"`
	Min         *float64    `json:"min,omitempty"`
	Max         *float64    `json:"max,omitempty"`
	Fields      []Field     `json:"fields,omitempty"`
}

// Group is a titled set of fields rendered together.
type Group struct {
	Group  string  `json:"group"`
	Fields []Field `json:"fields"`
}

// Column describes one column of a list table.
type Column struct {
	Field     string `json:"field"`
	Label     string `json:"label"`
	Sortable  bool   `json:"sortable"`
	Clickable bool   `json:"clickable"`
	Search    bool   `json:"search"`
	Format    Format `json:"format"`
	Align     Align  `json:"align"`
}

// NewField starts a field of the given type.
func NewField(name, label string, typ FieldType) Field {
	return Field{Name: name, Label: label, Type: typ}
}

// IsRequired marks the field as required.
func (f Field) IsRequired() Field {
	f.Required = true
	return f
}

// IsReadonly marks the field as display only.
func (f Field) IsReadonly() Field {
	f.Readonly = true
	return f
}

// WithPlaceholder sets the input placeholder.
func (f Field) WithPlaceholder(p string) Field {
	f.Placeholder = p
	return f
}

// WithHelp sets the help text shown below the input.
func (f Field) WithHelp(h string) Field {
	f.Help = h
	return f
}

// WithOptions sets the choices of a select field.
func (f Field) WithOptions(opts ...Option) Field {
	f.Options = opts
	return f
}

// WithDefault sets the initial value for new records.
func (f Field) WithDefault(v interface{}) Field {
	f.Default = v
	return f
}

// WithRange bounds a numeric field. Use nil for an open end.
func (f Field) WithRange(min, max *float64) Field {
	f.Min, f.Max = min, max
	return f
}

// WithFields sets the per-line fields of an items field.
func (f Field) WithFields(fields ...Field) Field {
	f.Fields = fields
	return f
}

// Bound returns a pointer for use with WithRange.
func Bound(v float64) *float64 {
	return &v
}

// NewColumn starts a left aligned text column.
func NewColumn(field, label string) Column {
	return Column{Field: field, Label: label, Format: FormatText, Align: AlignLeft}
}

// Sorted marks the column as sortable.
func (c Column) Sorted() Column {
	c.Sortable = true
	return c
}

// Linked marks the column as a link to the record.
func (c Column) Linked() Column {
	c.Clickable = true
	return c
}

// Searched marks the column as covered by the search box.
func (c Column) Searched() Column {
	c.Search = true
	return c
}

// As sets the column format. Numeric formats are right aligned.
func (c Column) As(format Format) Column {
	c.Format = format
	switch format {
	case FormatNumber, FormatCurrency:
		c.Align = AlignRight
	case FormatBoolean, FormatBadge:
		c.Align = AlignCenter
	}
	return c
}

// Aligned overrides the column alignment.
func (c Column) Aligned(a Align) Column {
	c.Align = a
	return c
}

// Validate checks that groups hold well formed, uniquely named fields.
func Validate(groups []Group) error {
	seen := make(map[string]bool)
	for _, g := range groups {
		if g.Group == "" {
			return fmt.Errorf("schema group without a name")
		}
		for _, f := range g.Fields {
			if seen[f.Name] {
				return fmt.Errorf("duplicate schema field %q", f.Name)
			}
			seen[f.Name] = true
			if err := validateField(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateField(f Field) error {
	if f.Name == "" || f.Label == "" {
		return fmt.Errorf("schema field needs a name and a label")
	}
	switch f.Type {
	case TypeText, TypeEmail, TypePassword, TypeTextarea, TypeNumber, TypeCurrency, TypeCheckbox, TypeDate:
	case TypeSelect:
		if len(f.Options) == 0 {
			return fmt.Errorf("select field %q has no options", f.Name)
		}
	case TypeItems:
		if len(f.Fields) == 0 {
			return fmt.Errorf("items field %q has no line fields", f.Name)
		}
		for _, sub := range f.Fields {
			if err := validateField(sub); err != nil {
				return fmt.Errorf("items field %q: %w", f.Name, err)
			}
		}
	default:
		return fmt.Errorf("field %q has unknown type %q", f.Name, f.Type)
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return fmt.Errorf("field %q has min above max", f.Name)
	}
	return nil
}

// ValidateColumns checks column formats and that sortable and searchable
// flags only appear on columns the list query accepts for them.
func ValidateColumns(columns []Column, sortable, searchable []string) error {
	sortSet := toSet(sortable)
	searchSet := toSet(searchable)
	seen := make(map[string]bool)
	for _, c := range columns {
		if c.Field == "" {
			return fmt.Errorf("column without a field")
		}
		if seen[c.Field] {
			return fmt.Errorf("duplicate column %q", c.Field)
		}
		seen[c.Field] = true

		switch c.Format {
		case FormatText, FormatNumber, FormatCurrency, FormatDate, FormatDateTime, FormatBoolean, FormatBadge:
		default:
			return fmt.Errorf("column %q has unknown format %q", c.Field, c.Format)
		}
		switch c.Align {
		case AlignLeft, AlignCenter, AlignRight:
		default:
			return fmt.Errorf("column %q has unknown alignment %q", c.Field, c.Align)
		}
		if c.Sortable && !sortSet[c.Field] {
			return fmt.Errorf("column %q is sortable but not in the sort whitelist", c.Field)
		}
		if c.Search && !searchSet[c.Field] {
			return fmt.Errorf("column %q is searchable but not a search column", c.Field)
		}
	}
	return nil
}

// Options builds select options from values, labelling each with itself.
func Options(values ...string) []Option {
	opts := make([]Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, Option{Value: v, Label: v})
	}
	return opts
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// Capitalize upper-cases the first letter of a label.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
