package schema

// JSONSchema renders the canonical record shape declared by mapping as a JSON
// schema object, the form Singer SCHEMA messages carry.
func JSONSchema(mapping []FieldMapping) map[string]any {
	properties := make(map[string]any, len(mapping))

	for _, m := range mapping {
		properties[m.Target()] = propertySchema(m)
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
}

func propertySchema(m FieldMapping) map[string]any {
	prop := make(map[string]any, 2)

	var jsonType string
	switch m.Type {
	case TypeInt:
		jsonType = "integer"
	case TypeFloat:
		jsonType = "number"
	case TypeBool:
		jsonType = "boolean"
	case TypeArray:
		jsonType = "array"
	case TypeString:
		jsonType = "string"
	case TypeDateTime:
		jsonType = "string"
		prop["format"] = "date-time"
	default:
		// untyped fields accept anything
		return prop
	}

	if m.Nullable() {
		prop["type"] = []string{"null", jsonType}
	} else {
		prop["type"] = jsonType
	}

	return prop
}
