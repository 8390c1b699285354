package components

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// PlaygroundValidator validates map-shaped records against named field-rule
// schemas using go-playground/validator tag syntax (e.g. "required,min=3").
type PlaygroundValidator struct {
	validate *validator.Validate

	mu      sync.RWMutex
	schemas map[string]map[string]string
}

// NewPlaygroundValidator creates a validator with no registered schemas.
func NewPlaygroundValidator() *PlaygroundValidator {
	return &PlaygroundValidator{
		validate: validator.New(),
		schemas:  make(map[string]map[string]string),
	}
}

// RegisterSchema registers (or replaces) a named schema mapping field names to
// validation tags. This is the component's explicit compile step.
func (v *PlaygroundValidator) RegisterSchema(name string, rules map[string]string) error {
	if name == "" {
		return fmt.Errorf("schema name must not be empty")
	}
	if len(rules) == 0 {
		return fmt.Errorf("schema %q has no rules", name)
	}

	copied := make(map[string]string, len(rules))
	for field, rule := range rules {
		copied[field] = rule
	}

	v.mu.Lock()
	v.schemas[name] = copied
	v.mu.Unlock()
	return nil
}

// Validate checks a single record against the named schema and returns it
// unchanged on success.
func (v *PlaygroundValidator) Validate(ctx context.Context, schema string, data interface{}) (interface{}, error) {
	v.mu.RLock()
	rules, ok := v.schemas[schema]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown schema: %s", schema)
	}

	record, ok := data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("schema %s expects a map record, got %T", schema, data)
	}

	for field, rule := range rules {
		value, present := record[field]
		if !present {
			if strings.Contains(rule, "required") {
				return nil, fmt.Errorf("field %s is required", field)
			}
			continue
		}
		if err := v.validate.VarCtx(ctx, value, rule); err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
	}

	return record, nil
}

// ValidateBatch validates every record in order, failing on the first invalid one.
func (v *PlaygroundValidator) ValidateBatch(ctx context.Context, schema string, data []interface{}) ([]interface{}, error) {
	validated := make([]interface{}, 0, len(data))
	for i, record := range data {
		out, err := v.Validate(ctx, schema, record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		validated = append(validated, out)
	}
	return validated, nil
}
