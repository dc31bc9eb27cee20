package metadata

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Entities []*Entity                `yaml:"entities"`
	Options  map[string][]OptionSource `yaml:"options"`
}

// LoadFile reads a YAML catalog and merges it into reg. Entities and option
// groups replace registered ones with the same name.
func LoadFile(path string, reg *Registry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for _, e := range cf.Entities {
		if err := validateEntity(e); err != nil {
			return fmt.Errorf("catalog %s: %w", path, err)
		}
	}

	reg.Merge(cf.Entities, cf.Options)
	return nil
}

// Build returns the built-in registry, merged with the catalog at path
// when path is non-empty.
func Build(path string) (*Registry, error) {
	reg := Default()
	if path == "" {
		return reg, nil
	}
	if err := LoadFile(path, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func validateEntity(e *Entity) error {
	if e == nil || e.Name == "" {
		return errors.New("entity without name")
	}
	if e.Table == "" {
		return fmt.Errorf("entity %s: table is required", e.Name)
	}
	for name, s := range e.Sections {
		if s.Name == "" {
			s.Name = name
		}
		if len(s.Fields) == 0 {
			return fmt.Errorf("entity %s: section %s has no fields", e.Name, name)
		}
		if l := s.Link; l != nil {
			if l.Field == "" || l.Table == "" || l.OwnerColumn == "" || l.TargetColumn == "" {
				return fmt.Errorf("entity %s: section %s: incomplete link", e.Name, name)
			}
			if !s.HasField(l.Field) {
				return fmt.Errorf("entity %s: section %s: link field %s is not a section field", e.Name, name, l.Field)
			}
		}
	}
	if j := e.ListJoin; j != nil {
		if e.ListLink() == nil {
			return fmt.Errorf("entity %s: list join needs a linked section, got %q", e.Name, j.Section)
		}
		if j.Table == "" || j.Key == "" || j.Label == "" || j.As == "" {
			return fmt.Errorf("entity %s: incomplete list join", e.Name)
		}
	}
	return nil
}
