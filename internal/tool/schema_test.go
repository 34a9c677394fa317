package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) Value {
	t.Helper()
	v, err := ParseValue([]byte(raw))
	require.NoError(t, err)
	return v
}

func TestNormalize_PreservesStructuralKeywords(t *testing.T) {
	v := mustParse(t, `{
		"type": "object",
		"description": "fetch a url",
		"required": ["url"],
		"properties": {
			"url": {"type": "string", "format": "uri", "description": "target"},
			"mode": {"type": "string", "enum": ["raw", "markdown"]},
			"max_length": {"type": "integer", "minimum": 1, "maximum": 100000, "default": 5000}
		}
	}`)

	s, err := Normalize(v)
	require.NoError(t, err)

	assert.Equal(t, TypeObject, s.Type)
	assert.Equal(t, "fetch a url", s.Description)
	assert.Equal(t, []string{"url"}, s.Required)
	require.Len(t, s.Properties, 3)

	url := s.Properties["url"]
	assert.Equal(t, TypeString, url.Type)
	assert.Equal(t, "uri", url.Format)
	assert.Equal(t, "target", url.Description)

	assert.Equal(t, []Value{String("raw"), String("markdown")}, s.Properties["mode"].Enum)

	maxLen := s.Properties["max_length"]
	assert.Equal(t, TypeInteger, maxLen.Type)
	require.NotNil(t, maxLen.Minimum)
	require.NotNil(t, maxLen.Maximum)
	assert.Equal(t, 1.0, *maxLen.Minimum)
	assert.Equal(t, 100000.0, *maxLen.Maximum)
	require.NotNil(t, maxLen.Default)
	assert.True(t, maxLen.Default.Equal(Number(5000)))
}

func TestNormalize_RecursesIntoItems(t *testing.T) {
	v := mustParse(t, `{
		"type": "array",
		"items": {
			"type": "object",
			"properties": {"path": {"type": "string", "pattern": "^/"}},
			"additionalProperties": false
		},
		"minItems": 1
	}`)

	s, dropped, err := NormalizeReport(v)
	require.NoError(t, err)

	require.NotNil(t, s.Items)
	assert.Equal(t, TypeObject, s.Items.Type)
	assert.Equal(t, "^/", s.Items.Properties["path"].Pattern)
	assert.ElementsMatch(t, []string{"#/minItems", "#/items/additionalProperties"}, dropped)
}

func TestNormalize_DropsUnknownKeywords(t *testing.T) {
	v := mustParse(t, `{
		"type": "object",
		"$schema": "http://json-schema.org/draft-07/schema#",
		"additionalProperties": false,
		"properties": {"q": {"type": "string", "minLength": 2, "examples": ["x"]}}
	}`)

	s, dropped, err := NormalizeReport(v)
	require.NoError(t, err)

	assert.Equal(t, &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"q": {Type: TypeString},
		},
	}, s)
	assert.ElementsMatch(t, []string{
		"#/$schema",
		"#/additionalProperties",
		"#/properties/q/minLength",
		"#/properties/q/examples",
	}, dropped)
}

func TestNormalize_MissingTypeDefaultsToObject(t *testing.T) {
	v := mustParse(t, `{"properties": {"a": {"type": "boolean"}}}`)

	s, err := Normalize(v)
	require.NoError(t, err)

	assert.Equal(t, TypeObject, s.Type)
	assert.Equal(t, TypeBoolean, s.Properties["a"].Type)
}

func TestNormalize_NullableTypeList(t *testing.T) {
	v := mustParse(t, `{"type": ["null", "number"]}`)

	s, err := Normalize(v)
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, s.Type)
}

func TestNormalize_NonStringEnumKeepsValueKinds(t *testing.T) {
	v := mustParse(t, `{"type": "integer", "enum": [1, 2, 3]}`)

	s, err := Normalize(v)
	require.NoError(t, err)
	assert.Equal(t, []Value{Number(1), Number(2), Number(3)}, s.Enum)
}

func TestNormalize_BooleanSubschemas(t *testing.T) {
	v := mustParse(t, `{
		"type": "object",
		"properties": {"path": {"type": "string"}, "extra": true, "never": false},
		"additionalProperties": false
	}`)

	s, dropped, err := NormalizeReport(v)
	require.NoError(t, err)
	assert.Equal(t, TypeString, s.Properties["path"].Type)
	assert.Equal(t, &Schema{Type: TypeObject}, s.Properties["extra"])
	assert.Equal(t, &Schema{Type: TypeObject}, s.Properties["never"])
	assert.ElementsMatch(t, []string{"#/properties/extra", "#/properties/never", "#/additionalProperties"}, dropped)

	arr, err := Normalize(mustParse(t, `{"type": "array", "items": true}`))
	require.NoError(t, err)
	assert.Equal(t, &Schema{Type: TypeObject}, arr.Items)
}

func TestNormalize_PropertiesIgnoredOnNonObject(t *testing.T) {
	v := mustParse(t, `{"type": "string", "properties": {"x": {"type": "string"}}, "items": {"type": "string"}}`)

	s, dropped, err := NormalizeReport(v)
	require.NoError(t, err)
	assert.Nil(t, s.Properties)
	assert.Nil(t, s.Items)
	assert.ElementsMatch(t, []string{"#/properties", "#/items"}, dropped)
}

func TestNormalize_NullMeansNoParameters(t *testing.T) {
	s, err := Normalize(Null())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		path string
	}{
		{"non-object schema", `"string"`, "#"},
		{"unknown type", `{"type": "tuple"}`, "#/type"},
		{"numeric type", `{"type": 3}`, "#/type"},
		{"enum not array", `{"type": "string", "enum": "a"}`, "#/enum"},
		{"required entry not string", `{"required": [1]}`, "#/required/0"},
		{"nested property not object", `{"properties": {"a": "x"}}`, "#/properties/a"},
		{"minimum not number", `{"type": "number", "minimum": "0"}`, "#/minimum"},
		{"pattern not string", `{"type": "string", "pattern": 1}`, "#/pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(mustParse(t, tt.raw))
			require.Error(t, err)

			var convErr *SchemaConversionError
			require.ErrorAs(t, err, &convErr)
			assert.Equal(t, tt.path, convErr.Path)
		})
	}
}

func TestNormalize_OutputKeysStayWithinWhitelist(t *testing.T) {
	v := mustParse(t, `{
		"type": "object",
		"title": "t",
		"properties": {
			"list": {"type": "array", "uniqueItems": true, "items": {"type": "number", "multipleOf": 2, "minimum": 0}}
		},
		"oneOf": [{"required": ["list"]}]
	}`)

	s, err := Normalize(v)
	require.NoError(t, err)

	encoded, err := ValueOf(s)
	require.NoError(t, err)

	allowed := map[string]bool{
		"type": true, "description": true, "enum": true, "required": true,
		"properties": true, "items": true,
		"minimum": true, "maximum": true, "format": true, "pattern": true, "default": true,
	}
	var walk func(node Value)
	walk = func(node Value) {
		for _, key := range node.Keys() {
			assert.True(t, allowed[key], "unexpected key %q", key)
			child, _ := node.Get(key)
			switch key {
			case "properties":
				for _, name := range child.Keys() {
					prop, _ := child.Get(name)
					walk(prop)
				}
			case "items":
				walk(child)
			}
		}
	}
	walk(encoded)
}
