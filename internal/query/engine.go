// Package query provides JQ-based selection of operation parameters from job
// documents.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// Identity selects the whole document.
const Identity = "."

// Engine executes JQ queries against decoded documents.
type Engine struct{}

// NewEngine creates a new query engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Decode parses data as JSON, falling back to YAML. YAML documents are
// brought to their JSON shape so numbers and maps match what JSON yields.
func Decode(data []byte) (any, error) {
	var doc any
	jsonErr := json.Unmarshal(data, &doc)
	if jsonErr == nil {
		return doc, nil
	}

	var y any
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("document is neither JSON (%v) nor YAML: %w", jsonErr, err)
	}
	b, err := json.Marshal(y)
	if err != nil {
		return nil, fmt.Errorf("document cannot be represented as JSON: %w", err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Compile parses and compiles a JQ expression. An empty expression is the
// identity.
func (e *Engine) Compile(expression string) (*gojq.Code, error) {
	if strings.TrimSpace(expression) == "" {
		expression = Identity
	}
	query, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return code, nil
}

// Select runs expression against doc and returns its single result. Zero or
// several results are an error: parameters are exactly one value.
func (e *Engine) Select(doc any, expression string) (any, error) {
	values, err := e.Query(doc, expression, 2)
	if err != nil {
		return nil, err
	}
	switch len(values) {
	case 0:
		return nil, fmt.Errorf("query %q selected nothing", expression)
	case 1:
		return values[0], nil
	default:
		return nil, fmt.Errorf("query %q selected more than one value", expression)
	}
}

// Query returns the values produced by expression against doc, at most
// maxResults when positive. The first runtime error stops the query.
func (e *Engine) Query(doc any, expression string, maxResults int) ([]any, error) {
	code, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}

	values := make([]any, 0)
	iter := code.Run(doc)
	for {
		if maxResults > 0 && len(values) >= maxResults {
			break
		}
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, errors.New(formatJQError("query", err))
		}
		values = append(values, v)
	}
	return values, nil
}

// ValidateExpression checks if a JQ expression is valid without executing it.
func (e *Engine) ValidateExpression(expression string) error {
	_, err := e.Compile(expression)
	return err
}

// formatJQError creates a helpful error message for JQ execution errors.
//
// Runtime JQ errors (like "cannot iterate over: null") are plain errors
// without typed wrappers in gojq, so string matching decorates the message.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the path may not exist in this document)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	case strings.Contains(errStr, "array") && strings.Contains(errStr, "cannot be indexed"):
		hint = " (expected object but got array, try adding '[]')"
	}

	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}
