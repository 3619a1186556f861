package grid

import (
	"fmt"
	"sort"
	"strings"
)

// Row is one record of a grid. Values are scalars (string, number, bool or
// nil); field order comes from the grid's Schema.
type Row map[string]any

// Clone returns an independent copy of the row. Values are scalars, so a map
// copy is a deep copy.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	dup := make(Row, len(r))
	for k, v := range r {
		dup[k] = v
	}
	return dup
}

// CloneRows copies every row of rows. A nil or empty input yields an empty,
// non-nil slice so callers can range without nil checks.
func CloneRows(rows []Row) []Row {
	dup := make([]Row, len(rows))
	for i, row := range rows {
		dup[i] = row.Clone()
	}
	return dup
}

// Kind classifies how a field is compared.
type Kind int

const (
	// KindText compares trimmed, whitespace-collapsed strings.
	KindText Kind = iota
	// KindNumeric compares parsed numbers; separators and blanks are ignored.
	KindNumeric
	// KindIdentity is never compared; it locates the row.
	KindIdentity
)

// String returns the configuration spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindIdentity:
		return "identity"
	default:
		return "text"
	}
}

// ParseKind maps a configuration string to a Kind.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "text", "string":
		return KindText, nil
	case "numeric", "number":
		return KindNumeric, nil
	case "identity", "id", "key":
		return KindIdentity, nil
	default:
		return KindText, fmt.Errorf("unknown field kind %q", value)
	}
}

// Field describes one column of a grid.
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Carry    bool // always sent with a change record, even when unchanged
	ReadOnly bool
	Width    int
}

// DisplayLabel returns Label, falling back to Name.
func (f Field) DisplayLabel() string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return f.Name
}

// Schema is the per-screen field configuration.
type Schema struct {
	Name   string
	Title  string
	Fields []Field
}

// Field looks up a field by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IdentityFields returns the names of identity fields in schema order.
func (s Schema) IdentityFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Kind == KindIdentity {
			out = append(out, f.Name)
		}
	}
	return out
}

// ComparableFields returns the fields that participate in dirty checks.
func (s Schema) ComparableFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Kind != KindIdentity {
			out = append(out, f)
		}
	}
	return out
}

// CarryFields returns non-identity fields that ride along in every change record.
func (s Schema) CarryFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Carry && f.Kind != KindIdentity {
			out = append(out, f.Name)
		}
	}
	return out
}

// Validate reports configuration mistakes that would break matching.
func (s Schema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("schema name is empty")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("schema %s: field name is empty", s.Name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("schema %s: duplicate field %q", s.Name, name)
		}
		seen[name] = struct{}{}
	}
	if len(s.IdentityFields()) == 0 {
		return fmt.Errorf("schema %s: no identity field", s.Name)
	}
	return nil
}

// Identity returns the canonical match key for row under schema. Identity
// values are compared as normalized text, so 7, "7" and " 7 " agree.
func Identity(row Row, schema Schema) string {
	ids := schema.IdentityFields()
	parts := make([]string, len(ids))
	for i, name := range ids {
		parts[i] = name + "=" + NormalizeText(row[name])
	}
	return strings.Join(parts, "\x1f")
}

// Filter holds opaque fetch parameters such as account, year and month.
type Filter map[string]string

// Clone copies the filter.
func (f Filter) Clone() Filter {
	dup := make(Filter, len(f))
	for k, v := range f {
		dup[k] = v
	}
	return dup
}

// Key returns a canonical representation suitable as a cache key.
func (f Filter) Key() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(f[k])
	}
	return b.String()
}
