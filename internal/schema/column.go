package schema

import (
	"errors"
	"regexp"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrNoPrimaryKey  = errors.New("table has no primary key")
)

// Column describes one column of a live table, as reported by the catalog.
type Column struct {
	Field    string  `json:"field" yaml:"field"`
	Type     string  `json:"type" yaml:"type"`
	Nullable bool    `json:"nullable" yaml:"nullable"`
	Key      string  `json:"key" yaml:"key"` // "", "PRI", "UNI" or "MUL"
	Default  *string `json:"default" yaml:"default"`
	Extra    string  `json:"extra" yaml:"extra"`
}

var (
	autoIncrementRe = regexp.MustCompile(`(?i)auto_increment`)
	stringTypeRe    = regexp.MustCompile(`(?i)char|text|enum|set`)
)

// PrimaryKey returns the first PRI column. A column literally named "id" is
// accepted when no column is flagged PRI; otherwise ErrNoPrimaryKey.
func PrimaryKey(cols []Column) (string, error) {
	for _, c := range cols {
		if c.Key == "PRI" {
			return c.Field, nil
		}
	}
	for _, c := range cols {
		if c.Field == "id" {
			return c.Field, nil
		}
	}
	return "", ErrNoPrimaryKey
}

// IsAutoIncrement reports whether the named column is generated by the database.
func IsAutoIncrement(cols []Column, field string) bool {
	c := Find(cols, field)
	return c != nil && autoIncrementRe.MatchString(c.Extra)
}

// StringColumns returns the columns eligible for substring search. When the
// table has no textual column, every column is searched.
func StringColumns(cols []Column) []string {
	var out []string
	for _, c := range cols {
		if stringTypeRe.MatchString(c.Type) {
			out = append(out, c.Field)
		}
	}
	if len(out) == 0 {
		return Names(cols)
	}
	return out
}

// FilterPayloadToTable keeps only payload keys naming a column of the table.
// With includePrimaryKey false, the key PrimaryKey resolves is dropped too
// when the database generates it.
func FilterPayloadToTable(payload map[string]any, cols []Column, includePrimaryKey bool) map[string]any {
	auto := ""
	if !includePrimaryKey {
		if pk, err := PrimaryKey(cols); err == nil && IsAutoIncrement(cols, pk) {
			auto = pk
		}
	}
	out := make(map[string]any, len(payload))
	for _, c := range cols {
		v, ok := payload[c.Field]
		if !ok {
			continue
		}
		if auto != "" && c.Field == auto {
			continue
		}
		out[c.Field] = v
	}
	return out
}

// BoolColumns returns the columns whose declared type stores a boolean.
func BoolColumns(cols []Column) []string {
	var out []string
	for _, c := range cols {
		if class, _ := classify(c.Type); class == classBool {
			out = append(out, c.Field)
		}
	}
	return out
}

// Find returns the named column, or nil.
func Find(cols []Column, field string) *Column {
	for i := range cols {
		if cols[i].Field == field {
			return &cols[i]
		}
	}
	return nil
}

// Names returns the column names in catalog order.
func Names(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Field
	}
	return names
}
