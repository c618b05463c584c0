package tools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// AddTool registers a tool after checking that the zero value of its output
// type satisfies the output schema the SDK infers for it. A tool whose
// structured content would be rejected by its own schema panics here, at
// registration, instead of failing every call.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	if err := CheckOutputSchema[Out](); err != nil {
		panic(fmt.Sprintf("tool %q: %v", t.Name, err))
	}
	sdkmcp.AddTool(srv, t, h)
}

// CheckOutputSchema checks the zero value of T with CheckOutput. The untyped
// any output has no schema and always passes.
func CheckOutputSchema[T any]() error {
	rt := reflect.TypeFor[T]()
	if rt.Kind() == reflect.Interface {
		return nil
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return CheckOutput(reflect.Zero(rt).Interface())
}

// CheckOutput validates out, marshalled as structured content, against the
// schema inferred from its type.
//
// A nil slice marshals as null while its schema says array, so slice fields
// of outputs carry omitzero. Parameters and schema documents are held in any
// fields: json.RawMessage is inferred as an array of bytes and is reported.
func CheckOutput(out any) error {
	rt := reflect.TypeOf(out)
	if rt == nil {
		return nil
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	if paths := rawMessagePaths(rt); len(paths) > 0 {
		return fmt.Errorf("output type %s holds json.RawMessage at %s, store the decoded document in an any field",
			rt, strings.Join(paths, ", "))
	}

	// Inference and resolution failures are reported by the SDK itself.
	schema, err := jsonschema.ForType(rt, &jsonschema.ForOptions{})
	if err != nil {
		return nil
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", rt, err)
	}
	var content map[string]any
	if err := json.Unmarshal(data, &content); err != nil {
		return fmt.Errorf("output type %s does not marshal to an object: %w", rt, err)
	}
	if err := resolved.Validate(&content); err != nil {
		return fmt.Errorf("output %s does not match its schema: %w (add omitzero to slice fields)", data, err)
	}
	return nil
}

var rawMessageType = reflect.TypeFor[json.RawMessage]()

// rawMessagePaths returns the dotted field paths of t holding json.RawMessage.
func rawMessagePaths(t reflect.Type) []string {
	var (
		paths []string
		open  = make(map[reflect.Type]bool)
		walk  func(t reflect.Type, path string)
	)
	walk = func(t reflect.Type, path string) {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t == rawMessageType {
			paths = append(paths, path)
			return
		}
		// recursive types
		if open[t] {
			return
		}
		open[t] = true
		defer delete(open, t)

		switch t.Kind() {
		case reflect.Struct:
			for i := range t.NumField() {
				if f := t.Field(i); f.IsExported() {
					walk(f.Type, joinPath(path, f.Name))
				}
			}
		case reflect.Slice, reflect.Array:
			walk(t.Elem(), joinPath(path, "[]"))
		case reflect.Map:
			walk(t.Elem(), joinPath(path, "[value]"))
		}
	}
	walk(t, "")
	return paths
}

func joinPath(path, segment string) string {
	if path == "" {
		return segment
	}
	return path + "." + segment
}
