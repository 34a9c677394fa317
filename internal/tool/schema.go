package tool

import (
	"fmt"
	"strings"
)

// SchemaConversionError is returned when a descriptor cannot be expressed in
// the model's schema dialect.
type SchemaConversionError struct {
	Tool  string
	Path  string
	Cause error
}

func (e *SchemaConversionError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("convert schema at %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("convert schema for tool %q at %s: %v", e.Tool, e.Path, e.Cause)
}

func (e *SchemaConversionError) Unwrap() error { return e.Cause }

// Keywords carried over verbatim besides the structural ones.
var auxiliaryKeywords = map[string]struct{}{
	"minimum": {},
	"maximum": {},
	"format":  {},
	"pattern": {},
	"default": {},
}

// Keywords with dedicated handling in normalize.
var structuralKeywords = map[string]struct{}{
	"type":        {},
	"description": {},
	"enum":        {},
	"required":    {},
	"properties":  {},
	"items":       {},
}

// Normalize converts a parameter descriptor into the restricted dialect.
// A Null descriptor means the tool takes no parameters and yields nil.
func Normalize(v Value) (*Schema, error) {
	s, _, err := NormalizeReport(v)
	return s, err
}

// NormalizeReport is Normalize that also returns the paths of every keyword
// that was dropped, e.g. "#/properties/tags/minItems".
func NormalizeReport(v Value) (*Schema, []string, error) {
	if v.IsNull() {
		return nil, nil, nil
	}
	var dropped []string
	s, err := normalize(v, "#", &dropped)
	if err != nil {
		return nil, nil, err
	}
	return s, dropped, nil
}

func normalize(v Value, path string, dropped *[]string) (*Schema, error) {
	if v.Kind() == KindBool {
		// true and false accept any value or none; both read as unconstrained.
		*dropped = append(*dropped, path)
		return &Schema{Type: TypeObject}, nil
	}
	if v.Kind() != KindObject {
		return nil, &SchemaConversionError{Path: path, Cause: fmt.Errorf("schema must be an object, got %s", v.Kind())}
	}

	typ, err := schemaType(v, path)
	if err != nil {
		return nil, err
	}
	s := &Schema{Type: typ}

	if d, ok := v.Get("description"); ok && d.Kind() == KindString {
		s.Description = d.Str()
	}

	if e, ok := v.Get("enum"); ok {
		if e.Kind() != KindArray {
			return nil, &SchemaConversionError{Path: path + "/enum", Cause: fmt.Errorf("enum must be an array, got %s", e.Kind())}
		}
		for _, item := range e.Items() {
			s.Enum = append(s.Enum, item)
		}
	}

	if r, ok := v.Get("required"); ok {
		if r.Kind() != KindArray {
			return nil, &SchemaConversionError{Path: path + "/required", Cause: fmt.Errorf("required must be an array, got %s", r.Kind())}
		}
		for i, item := range r.Items() {
			if item.Kind() != KindString {
				return nil, &SchemaConversionError{Path: fmt.Sprintf("%s/required/%d", path, i), Cause: fmt.Errorf("required entry must be a string, got %s", item.Kind())}
			}
			s.Required = append(s.Required, item.Str())
		}
	}

	if p, ok := v.Get("properties"); ok && typ == TypeObject {
		if p.Kind() != KindObject {
			return nil, &SchemaConversionError{Path: path + "/properties", Cause: fmt.Errorf("properties must be an object, got %s", p.Kind())}
		}
		s.Properties = make(map[string]*Schema, p.Len())
		for _, name := range p.Keys() {
			prop, _ := p.Get(name)
			child, err := normalize(prop, path+"/properties/"+escapePointer(name), dropped)
			if err != nil {
				return nil, err
			}
			s.Properties[name] = child
		}
	} else if ok {
		*dropped = append(*dropped, path+"/properties")
	}

	if it, ok := v.Get("items"); ok && typ == TypeArray {
		child, err := normalize(it, path+"/items", dropped)
		if err != nil {
			return nil, err
		}
		s.Items = child
	} else if ok {
		*dropped = append(*dropped, path+"/items")
	}

	for _, key := range v.Keys() {
		if _, ok := structuralKeywords[key]; ok {
			continue
		}
		if _, ok := auxiliaryKeywords[key]; !ok {
			*dropped = append(*dropped, path+"/"+escapePointer(key))
			continue
		}
		if err := applyAuxiliary(s, key, v, path); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// schemaType resolves the "type" keyword. Missing means object; a type list
// such as ["string", "null"] resolves to its first non-null member.
func schemaType(v Value, path string) (Type, error) {
	t, ok := v.Get("type")
	if !ok || t.IsNull() {
		return TypeObject, nil
	}
	switch t.Kind() {
	case KindString:
		typ := Type(t.Str())
		if !typ.valid() {
			return "", &SchemaConversionError{Path: path + "/type", Cause: fmt.Errorf("unsupported type %q", t.Str())}
		}
		return typ, nil
	case KindArray:
		for _, item := range t.Items() {
			if item.Kind() == KindString && item.Str() != "null" {
				typ := Type(item.Str())
				if !typ.valid() {
					return "", &SchemaConversionError{Path: path + "/type", Cause: fmt.Errorf("unsupported type %q", item.Str())}
				}
				return typ, nil
			}
		}
	}
	return "", &SchemaConversionError{Path: path + "/type", Cause: fmt.Errorf("cannot resolve type from %s", t.Text())}
}

func applyAuxiliary(s *Schema, key string, v Value, path string) error {
	field, _ := v.Get(key)
	switch key {
	case "minimum", "maximum":
		if field.Kind() != KindNumber {
			return &SchemaConversionError{Path: path + "/" + key, Cause: fmt.Errorf("%s must be a number, got %s", key, field.Kind())}
		}
		n := field.Number()
		if key == "minimum" {
			s.Minimum = &n
		} else {
			s.Maximum = &n
		}
	case "format", "pattern":
		if field.Kind() != KindString {
			return &SchemaConversionError{Path: path + "/" + key, Cause: fmt.Errorf("%s must be a string, got %s", key, field.Kind())}
		}
		if key == "format" {
			s.Format = field.Str()
		} else {
			s.Pattern = field.Str()
		}
	case "default":
		d := field
		s.Default = &d
	}
	return nil
}

func escapePointer(key string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(key)
}
