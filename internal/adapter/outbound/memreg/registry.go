package memreg

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/i2y/papermcp/internal/domain"
)

// validParameterTypes lists the JSON Schema types accepted for tool input
// properties.
var validParameterTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"integer": true,
	"boolean": true,
	"object":  true,
	"array":   true,
}

// InMemoryToolRegistry provides an in-memory implementation of the ToolRegistry.
// NOTE: This implementation is not persistent and data will be lost on restart.
type InMemoryToolRegistry struct {
	mu      sync.RWMutex
	defs    map[string]*domain.ToolDefinition  // Map tool name to definition (descriptor + handler)
	schemas map[string]*gojsonschema.Schema    // Map tool name to compiled input schema
	order   []string                           // Registration order; fixes catalog ordering
	logger  *slog.Logger
}

// NewInMemoryToolRegistry creates a new in-memory registry.
func NewInMemoryToolRegistry(logger *slog.Logger) *InMemoryToolRegistry {
	return &InMemoryToolRegistry{
		defs:    make(map[string]*domain.ToolDefinition),
		schemas: make(map[string]*gojsonschema.Schema),
		logger:  logger.With("component", "mem_registry"),
	}
}

// Register stores a tool definition and compiles its input schema.
// Registration fails on an empty or duplicate name, a missing handler,
// an invalid parameter type, or an uncompilable schema.
func (r *InMemoryToolRegistry) Register(def domain.ToolDefinition) error {
	if err := validateDefinition(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		r.logger.Error("Duplicate tool registration", slog.String("tool_name", def.Name))
		return fmt.Errorf("tool %q already registered", def.Name)
	}

	schema, err := compileInputSchema(def.InputSchema)
	if err != nil {
		return fmt.Errorf("compile input schema for tool %q: %w", def.Name, err)
	}

	stored := def
	r.defs[def.Name] = &stored
	r.schemas[def.Name] = schema
	r.order = append(r.order, def.Name)
	r.logger.Info("Registered tool", slog.String("tool_name", def.Name), slog.Int("total_tools", len(r.defs)))
	return nil
}

// List returns the catalog in registration order. The result is a snapshot;
// two calls without an intervening Register return identical catalogs.
func (r *InMemoryToolRegistry) List(ctx context.Context) (domain.Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	catalog := make(domain.Catalog, 0, len(r.order))
	for _, name := range r.order {
		catalog = append(catalog, r.defs[name].Tool)
	}
	r.logger.Debug("Listed tools from registry", slog.Int("count", len(catalog)))
	return catalog, nil
}

// Find retrieves a tool definition by its name.
func (r *InMemoryToolRegistry) Find(ctx context.Context, name string) (*domain.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		r.logger.Warn("Tool definition not found", slog.String("tool_name", name))
		return nil, domain.NotFoundError(name)
	}
	return def, nil
}

// ValidateArguments checks args against the tool's compiled input schema.
// All violations are collected into a single validation error.
func (r *InMemoryToolRegistry) ValidateArguments(name string, args map[string]interface{}) error {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()

	if !ok {
		return domain.NotFoundError(name)
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return domain.ValidationError("arguments are not a JSON object: %v", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return domain.ValidationError("invalid arguments for tool %q: %s", name, strings.Join(msgs, "; "))
}

func validateDefinition(def domain.ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool %q has no description", def.Name)
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q has no handler", def.Name)
	}
	for propName, prop := range def.InputSchema.Properties {
		if !validParameterTypes[prop.Type] {
			return fmt.Errorf("tool %q parameter %q has invalid type %q", def.Name, propName, prop.Type)
		}
	}
	return nil
}

// compileInputSchema builds a strict object schema from the descriptor's
// input schema. Unknown arguments are rejected so a misbehaving client
// fails validation instead of silently feeding a handler stray values.
func compileInputSchema(props domain.JSONSchemaProps) (*gojsonschema.Schema, error) {
	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           map[string]interface{}{},
	}

	properties := schemaMap["properties"].(map[string]interface{})
	for name, prop := range props.Properties {
		p := map[string]interface{}{"type": prop.Type}
		if prop.Description != "" {
			p["description"] = prop.Description
		}
		if len(prop.Enum) > 0 {
			p["enum"] = prop.Enum
		}
		if prop.Format != "" {
			p["format"] = prop.Format
		}
		if prop.Minimum != nil {
			p["minimum"] = *prop.Minimum
		}
		if prop.Maximum != nil {
			p["maximum"] = *prop.Maximum
		}
		if prop.Items != nil {
			p["items"] = map[string]interface{}{"type": prop.Items.Type}
		}
		properties[name] = p
	}
	if len(props.Required) > 0 {
		schemaMap["required"] = props.Required
	}

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}
