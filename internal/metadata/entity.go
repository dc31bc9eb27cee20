package metadata

// Column is a DDL definition used when provisioning an entity's table.
// Request handling never reads it: runtime column facts come from the
// live catalog.
type Column struct {
	Name     string `json:"name" yaml:"name"`
	Kind     string `json:"kind" yaml:"kind"` // string, text, int, bigint, decimal, boolean, date, timestamp
	Size     int    `json:"size,omitempty" yaml:"size,omitempty"`
	Nullable bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Unique   bool   `json:"unique,omitempty" yaml:"unique,omitempty"`
}

type Entity struct {
	Name  string `json:"name" yaml:"name"`
	Table string `json:"table" yaml:"table"`

	// Key is the declared primary key column and AutoKey marks it as
	// database-generated. Both only drive table provisioning.
	Key     string   `json:"key" yaml:"key"`
	AutoKey bool     `json:"auto_key" yaml:"auto_key"`
	Columns []Column `json:"columns" yaml:"columns"`

	// NullOnDelete lists references cleared in the same transaction
	// before a row of this entity is deleted.
	NullOnDelete []Reference          `json:"null_on_delete,omitempty" yaml:"null_on_delete,omitempty"`
	Rules        []*Rule              `json:"rules,omitempty" yaml:"rules,omitempty"`
	Sections     map[string]*Section `json:"sections,omitempty" yaml:"sections,omitempty"`
	ListJoin     *ListJoin           `json:"list_join,omitempty" yaml:"list_join,omitempty"`
}

// ListJoin adds the target of a section link to every list row, together
// with a label read from the table the target points at. When the owner
// has several link rows, the first one in Order wins.
type ListJoin struct {
	Section string `json:"section" yaml:"section"`
	// Order lists link table columns; a leading "-" sorts descending.
	Order []string `json:"order,omitempty" yaml:"order,omitempty"`
	Table string   `json:"table" yaml:"table"`
	Key   string   `json:"key" yaml:"key"`
	Label string   `json:"label" yaml:"label"`
	As    string   `json:"as" yaml:"as"`
}

// Reference is a column (possibly in the entity's own table) that points at
// the entity's primary key.
type Reference struct {
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
}

// Section is a named subset of an entity's columns edited as one unit.
type Section struct {
	Name   string   `json:"name" yaml:"name"`
	Fields []string `json:"fields" yaml:"fields"`
	// Touch names a timestamp column stamped on every section write.
	Touch string       `json:"touch,omitempty" yaml:"touch,omitempty"`
	Link  *SectionLink `json:"link,omitempty" yaml:"link,omitempty"`
}

// SectionLink keeps one scoped row of a link table in step with a section
// field, e.g. the primary department of a person.
type SectionLink struct {
	Field        string         `json:"field" yaml:"field"`
	Table        string         `json:"table" yaml:"table"`
	OwnerColumn  string         `json:"owner_column" yaml:"owner_column"`
	TargetColumn string         `json:"target_column" yaml:"target_column"`
	Scope        map[string]any `json:"scope" yaml:"scope"`
}

// Section returns the named section, or nil.
func (e *Entity) Section(name string) *Section {
	if e.Sections == nil {
		return nil
	}
	return e.Sections[name]
}

// ListLink returns the section link the list join reads, or nil.
func (e *Entity) ListLink() *SectionLink {
	if e.ListJoin == nil {
		return nil
	}
	if s := e.Section(e.ListJoin.Section); s != nil {
		return s.Link
	}
	return nil
}

// HasField reports whether the section edits the given field.
func (s *Section) HasField(name string) bool {
	for _, f := range s.Fields {
		if f == name {
			return true
		}
	}
	return false
}
