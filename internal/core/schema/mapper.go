package schema

import (
	"fmt"
)

// Record is a cleaned row keyed by canonical field names.
type Record map[string]any

// FieldMapping describes how one raw field becomes a canonical one.
type FieldMapping struct {
	// Source is the raw field name read from the row.
	Source string
	// Map is the canonical name; empty means Source.
	Map string
	// Type is the coercion target; TypeNone passes values through.
	Type DataType
	// NotNull keeps empty values as they are instead of turning them into nil.
	NotNull bool
}

// Target returns the canonical field name.
func (m FieldMapping) Target() string {
	if m.Map == "" {
		return m.Source
	}
	return m.Map
}

func (m FieldMapping) Nullable() bool {
	return !m.NotNull
}

// ToTypeOrNull applies the single coercion rule used by the cleaner:
//   - a non-empty value with a declared type is converted, failing with a
//     *ConversionError when that is not possible;
//   - an empty value becomes nil when nullable, whatever the declared type;
//   - anything else passes through unchanged.
//
// Numeric zero and false count as empty, so a nullable 0 comes out as nil.
// Downstream consumers rely on this, keep it.
func ToTypeOrNull(value any, dataType DataType, nullable bool) (any, error) {
	empty := isEmpty(value)

	switch {
	case !empty && dataType != TypeNone:
		return convert(dataType, value)
	case empty && nullable:
		return nil, nil
	default:
		return value, nil
	}
}

// CleanRow renames and coerces row according to mapping. Every mapped source
// field must be present in row; the result holds exactly the mapping targets.
func CleanRow(row map[string]any, mapping []FieldMapping) (Record, error) {
	cleaned := make(Record, len(mapping))

	for _, m := range mapping {
		value, ok := row[m.Source]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingField, m.Source)
		}

		converted, err := ToTypeOrNull(value, m.Type, m.Nullable())
		if err != nil {
			return nil, fmt.Errorf("clean field %q: %w", m.Source, err)
		}

		cleaned[m.Target()] = converted
	}

	return cleaned, nil
}

// Targets returns the canonical field names of mapping in declaration order.
func Targets(mapping []FieldMapping) []string {
	targets := make([]string, len(mapping))
	for i, m := range mapping {
		targets[i] = m.Target()
	}
	return targets
}
