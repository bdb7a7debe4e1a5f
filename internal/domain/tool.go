package domain

import "context"

// Tool describes a callable function exposed over the Model Context Protocol (MCP).
// Based on MCP Spec 2025-03-26: https://modelcontextprotocol.io/specification/2025-03-26
type Tool struct {
	// Name uniquely identifies the tool within the server.
	Name string `json:"name"`

	// Description provides a natural language explanation of what the tool does.
	// This is crucial for the LLM to understand when to use the tool.
	Description string `json:"description"`

	// InputSchema defines the structure of the data the tool expects.
	// Uses JSON Schema format.
	InputSchema JSONSchemaProps `json:"input_schema"`

	// OutputSchema defines the structure of the data the tool returns upon successful invocation.
	// Optional. If omitted, the output is considered opaque or unstructured.
	OutputSchema *JSONSchemaProps `json:"output_schema,omitempty"`
}

// Handler is the function executed when a tool is invoked. Arguments have
// already been validated against the tool's input schema and had schema
// defaults applied by the time a handler runs.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// ToolDefinition pairs a tool descriptor with its executable handler.
// This is the unit of registration; the descriptor alone is what the
// catalog exposes to clients.
type ToolDefinition struct {
	Tool
	Handler Handler `json:"-"`
}

// Catalog is the ordered, enumerable set of tools a server currently exposes.
// Order follows registration order and is stable across reads.
type Catalog []Tool

// Names returns the tool names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = t.Name
	}
	return names
}

// JSONSchemaProps represents the properties of a JSON schema,
// commonly used for input and output definitions in MCP tools.
// This is a simplified version; a more complete implementation might import
// a dedicated JSON schema library or use map[string]interface{}.
type JSONSchemaProps struct {
	Type        string                     `json:"type"`                  // e.g., "object", "string", "number", "integer", "boolean", "array"
	Description string                     `json:"description,omitempty"` // Parameter documentation surfaced to the model
	Properties  map[string]JSONSchemaProps `json:"properties,omitempty"`  // For type "object"
	Required    []string                   `json:"required,omitempty"`    // For type "object"
	Items       *JSONSchemaProps           `json:"items,omitempty"`       // For type "array"
	Format      string                     `json:"format,omitempty"`      // e.g., "date-time", "email"
	Enum        []interface{}              `json:"enum,omitempty"`        // Possible values
	Default     interface{}                `json:"default,omitempty"`     // Applied when the argument is absent
	Minimum     *float64                   `json:"minimum,omitempty"`     // For numeric types
	Maximum     *float64                   `json:"maximum,omitempty"`     // For numeric types
}

// ApplyDefaults returns a copy of args with schema defaults filled in for any
// top-level property that declares one and is absent from the input. The
// input map is never mutated.
func ApplyDefaults(schema JSONSchemaProps, args map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(args))
	for k, v := range args {
		merged[k] = v
	}
	for name, prop := range schema.Properties {
		if prop.Default == nil {
			continue
		}
		if _, ok := merged[name]; !ok {
			merged[name] = prop.Default
		}
	}
	return merged
}
