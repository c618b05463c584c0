package validators

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/schema"
)

// printer is a default English printer for localized error messages.
var printer = message.NewPrinter(language.English)

// JSONSchemaEngine validates candidates with a compiled JSON Schema. Documents
// without $schema are treated as draft-04, format keywords are asserted.
type JSONSchemaEngine struct {
	id       string
	compiled *jsonschema.Schema
}

// NewJSONSchema returns the constructor of the "jsonschema" engine.
func NewJSONSchema(loader *schema.Loader) Constructor {
	return func(schemaPath string) (Engine, error) {
		doc, err := loader.Load(schemaPath)
		if err != nil {
			return nil, err
		}

		compiler := jsonschema.NewCompiler()
		compiler.DefaultDraft(jsonschema.Draft4)
		compiler.AssertFormat()

		if err := compiler.AddResource(doc.ID, doc.Raw); err != nil {
			return nil, malformed(doc, err)
		}
		compiled, err := compiler.Compile(doc.ID)
		if err != nil {
			return nil, malformed(doc, err)
		}

		return &JSONSchemaEngine{id: doc.ID, compiled: compiled}, nil
	}
}

// SchemaID implements Engine.
func (e *JSONSchemaEngine) SchemaID() string {
	return e.id
}

// Validate implements Engine.
func (e *JSONSchemaEngine) Validate(candidate any) error {
	value, err := normalizeNumbers(candidate)
	if err != nil {
		return err
	}

	err = e.compiled.Validate(value)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if stderrors.As(err, &validationErr) {
		return validationError(e.id, extractDetailedErrors(validationErr), nil)
	}
	return validationError(e.id, []string{err.Error()}, err)
}

// normalizeNumbers is normalize with numbers kept as json.Number, which the
// compiled schema compares exactly.
func normalizeNumbers(candidate any) (any, error) {
	return normalizeWith(candidate, func(data []byte) (any, error) {
		return jsonschema.UnmarshalJSON(bytes.NewReader(data))
	})
}

func malformed(doc *schema.Document, err error) error {
	return errors.WrapWithContext(errors.ErrCodeSchemaMalformed,
		"schema does not conform to its meta-schema", err,
		map[string]any{"path": doc.Path})
}

// extractDetailedErrors flattens a ValidationError tree into sorted,
// deduplicated "<instance path>: <message>" lines.
func extractDetailedErrors(err *jsonschema.ValidationError) []string {
	errorsByPath := make(map[string][]string)
	collectErrors(err, errorsByPath)

	var result []string
	for path, msgs := range errorsByPath {
		for _, msg := range msgs {
			if path != "" {
				result = append(result, fmt.Sprintf("%s: %s", path, msg))
			} else {
				result = append(result, msg)
			}
		}
	}
	slices.Sort(result)
	return slices.Compact(result)
}

// collectErrors recursively collects leaf errors (those without causes).
func collectErrors(err *jsonschema.ValidationError, errorsByPath map[string][]string) {
	instancePath := ""
	if len(err.InstanceLocation) > 0 {
		instancePath = "/" + strings.Join(err.InstanceLocation, "/")
	}

	if err.ErrorKind != nil && len(err.Causes) == 0 {
		msg := err.ErrorKind.LocalizedString(printer)
		// $ref wrappers carry no information of their own
		if !strings.HasPrefix(msg, "$ref ") && !strings.HasPrefix(msg, "doesn't validate with") {
			errorsByPath[instancePath] = append(errorsByPath[instancePath], msg)
		}
	}

	for _, cause := range err.Causes {
		collectErrors(cause, errorsByPath)
	}
}
