package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSchema(t *testing.T) {
	s := JSONSchema([]FieldMapping{
		{Source: "id", Type: TypeInt, NotNull: true},
		{Source: "city", Type: TypeString},
		{Source: "extracted_at", Type: TypeDateTime, NotNull: true},
		{Source: "brands"},
	})

	assert.Equal(t, "object", s["type"])

	props, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	require.Len(t, props, 4)

	assert.Equal(t, map[string]any{"type": "integer"}, props["id"])
	assert.Equal(t, map[string]any{"type": []string{"null", "string"}}, props["city"])
	assert.Equal(t, map[string]any{"type": "string", "format": "date-time"}, props["extracted_at"])
	assert.Equal(t, map[string]any{}, props["brands"])
}
