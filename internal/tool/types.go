package tool

import (
	"context"
)

// Type represents JSON Schema types.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

func (t Type) valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// Schema is a parameter schema in the restricted dialect the model's
// function-calling interface accepts.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []Value            `json:"enum,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Format      string             `json:"format,omitempty"`
	Pattern     string             `json:"pattern,omitempty"`
	Default     *Value             `json:"default,omitempty"`
}

// Declaration declares a tool's function signature for the LLM.
type Declaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Descriptor is a tool as advertised by its provider, with the parameter
// schema still in whatever JSON Schema flavour the provider speaks.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Value  `json:"inputSchema"`
}

// Provider exposes a set of named, schema-described tools.
// Init must complete before Tools or CallTool are used. Close releases any
// process or connection held by the provider.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	Init(ctx context.Context) error

	// Tools returns the tools advertised after Init.
	Tools() []Descriptor

	// CallTool runs a tool and returns a JSON-serializable value.
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)

	Close() error
}
