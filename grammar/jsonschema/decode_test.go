package jsonschema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePreservesPropertyOrder(t *testing.T) {
	var s Schema
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "object",
		"properties": {
			"zebra": {"type": "string"},
			"apple": {"type": "integer"}
		}
	}`), &s))

	require.Len(t, s.Properties, 2)
	assert.Equal(t, "zebra", s.Properties[0].Name)
	assert.Equal(t, "apple", s.Properties[1].Name)
}

func TestDecodeItemsTrue(t *testing.T) {
	var s Schema
	require.NoError(t, json.Unmarshal([]byte(`{"type":"array","items":true}`), &s))
	require.NotNil(t, s.Items)
	assert.Equal(t, "", s.Items.Type)
}

func TestDecodeItemsFalseOrNullOmitted(t *testing.T) {
	var sFalse Schema
	require.NoError(t, json.Unmarshal([]byte(`{"type":"array","items":false}`), &sFalse))
	assert.Nil(t, sFalse.Items)

	var sNull Schema
	require.NoError(t, json.Unmarshal([]byte(`{"type":"array","items":null}`), &sNull))
	assert.Nil(t, sNull.Items)

	var sAbsent Schema
	require.NoError(t, json.Unmarshal([]byte(`{"type":"array"}`), &sAbsent))
	assert.Nil(t, sAbsent.Items)
}

func TestDecodeItemsSchema(t *testing.T) {
	var s Schema
	require.NoError(t, json.Unmarshal([]byte(`{"type":"array","items":{"type":"string"}}`), &s))
	require.NotNil(t, s.Items)
	assert.Equal(t, "string", s.Items.Type)
}

func TestEffectiveTypeInference(t *testing.T) {
	cases := []struct {
		name string
		json string
		want string
	}{
		{"explicit type wins", `{"type":"boolean","properties":{"a":{"type":"string"}}}`, "boolean"},
		{"properties imply object", `{"properties":{"a":{"type":"string"}}}`, "object"},
		{"items imply array", `{"items":{"type":"string"}}`, "array"},
		{"prefixItems imply array", `{"prefixItems":[{"type":"string"}]}`, "array"},
		{"bare schema is value", `{}`, "value"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var s Schema
			require.NoError(t, json.Unmarshal([]byte(c.json), &s))
			assert.Equal(t, c.want, s.EffectiveType())
		})
	}
}
