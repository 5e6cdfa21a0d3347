package config

import (
	"fmt"

	"github.com/biteenlab/biteen-utilities/utils"
)

// Mapping returns the highest version of the mapping for format.
func (c AppConfig) Mapping(format string) (FieldMapping, error) {
	var best FieldMapping
	found := false
	for _, m := range c.Mappings {
		if m.Format != format {
			continue
		}
		if !found || m.Version > best.Version {
			best = m
			found = true
		}
	}
	if !found {
		return FieldMapping{}, fmt.Errorf("%w: no field mapping for format %q", utils.ErrInvalidParameter, format)
	}
	return best, nil
}

// Validate rejects mappings that are not one-to-one.
func (m FieldMapping) Validate() error {
	cols := map[string]bool{}
	fields := map[string]bool{}
	for _, p := range m.Fields {
		if cols[p.Column] {
			return fmt.Errorf("%w: mapping %s v%d maps column %q twice", utils.ErrInvalidParameter, m.Format, m.Version, p.Column)
		}
		if fields[p.Field] {
			return fmt.Errorf("%w: mapping %s v%d maps field %q twice", utils.ErrInvalidParameter, m.Format, m.Version, p.Field)
		}
		cols[p.Column] = true
		fields[p.Field] = true
	}
	return nil
}

// FieldFor returns the external field for a canonical column.
func (m FieldMapping) FieldFor(column string) (string, bool) {
	for _, p := range m.Fields {
		if p.Column == column {
			return p.Field, true
		}
	}
	return "", false
}

// ColumnFor returns the canonical column for an external field.
func (m FieldMapping) ColumnFor(field string) (string, bool) {
	for _, p := range m.Fields {
		if p.Field == field {
			return p.Column, true
		}
	}
	return "", false
}

// IsDerived reports whether column is rebuilt on import rather than stored.
func (m FieldMapping) IsDerived(column string) bool {
	for _, d := range m.Derived {
		if d == column {
			return true
		}
	}
	return false
}
