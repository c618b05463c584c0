package params

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/invopop/jsonschema"
)

// Draft04 is the $schema of inferred documents, the draft the jsonschema
// engine assumes by default.
const Draft04 = "http://json-schema.org/draft-04/schema#"

// InferOptions controls schema inference from sample parameters.
type InferOptions struct {
	// Open leaves additionalProperties unset, otherwise objects are closed.
	Open bool
	// Optional marks no property as required. By default a property is
	// required when every sample has it with a non-null value.
	Optional bool
}

// Inferred is a schema inferred from sample parameters.
type Inferred struct {
	Schema  *jsonschema.Schema
	Samples int
}

// MarshalIndent returns the indented document followed by a newline.
func (i *Inferred) MarshalIndent() ([]byte, error) {
	out, err := json.MarshalIndent(i.Schema, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// Infer builds a draft-04 schema accepting every sample. Samples are decoded
// JSON values and each must be a parameters mapping.
func Infer(opts InferOptions, samples ...any) (*Inferred, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to infer from")
	}
	for i, s := range samples {
		if _, ok := s.(map[string]any); !ok {
			return nil, fmt.Errorf("sample %d is %T, parameters must be a mapping", i, s)
		}
	}

	schema := infer(samples, opts)
	schema.Version = Draft04
	return &Inferred{Schema: schema, Samples: len(samples)}, nil
}

// infer returns the schema of values, all observed at one location.
func infer(values []any, opts InferOptions) *jsonschema.Schema {
	var (
		objects []map[string]any
		arrays  [][]any
		kinds   []string
	)
	for _, v := range values {
		kind := kindOf(v)
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
		switch val := v.(type) {
		case map[string]any:
			objects = append(objects, val)
		case []any:
			arrays = append(arrays, val)
		}
	}
	// integers widen to number when both are seen
	if slices.Contains(kinds, "number") {
		kinds = slices.DeleteFunc(kinds, func(k string) bool { return k == "integer" })
	}
	slices.Sort(kinds)

	branches := make([]*jsonschema.Schema, 0, len(kinds))
	for _, kind := range kinds {
		switch kind {
		case "object":
			branches = append(branches, inferObject(objects, opts))
		case "array":
			var items []any
			for _, arr := range arrays {
				items = append(items, arr...)
			}
			s := &jsonschema.Schema{Type: "array"}
			if len(items) > 0 {
				s.Items = infer(items, opts)
			}
			branches = append(branches, s)
		case "":
			branches = append(branches, &jsonschema.Schema{})
		default:
			branches = append(branches, &jsonschema.Schema{Type: kind})
		}
	}

	if len(branches) == 1 {
		return branches[0]
	}
	return &jsonschema.Schema{AnyOf: branches}
}

func inferObject(objects []map[string]any, opts InferOptions) *jsonschema.Schema {
	s := &jsonschema.Schema{Type: "object", Properties: jsonschema.NewProperties()}
	if !opts.Open {
		s.AdditionalProperties = jsonschema.FalseSchema
	}

	var keys []string
	for _, obj := range objects {
		for k := range obj {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		var values []any
		required := !opts.Optional
		for _, obj := range objects {
			v, ok := obj[k]
			if !ok || v == nil {
				required = false
			}
			if ok {
				values = append(values, v)
			}
		}
		s.Properties.Set(k, infer(values, opts))
		if required {
			s.Required = append(s.Required, k)
		}
	}
	return s
}

func kindOf(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		if math.Trunc(val) == val && !math.IsInf(val, 0) {
			return "integer"
		}
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return ""
	}
}
