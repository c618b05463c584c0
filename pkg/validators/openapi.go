package validators

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/usestring/baselib/pkg/schema"
)

// schemaIDExtension carries the document identifier on OpenAPI schemas, which
// have no identifier keyword of their own.
const schemaIDExtension = "x-schema-id"

// JSON Schema keywords tolerated on OpenAPI schema objects.
var siblingKeywords = []string{"$schema", "$id", "id"}

// OpenAPI3Engine validates candidates with an OpenAPI 3 Schema Object.
type OpenAPI3Engine struct {
	id     string
	schema *openapi3.Schema
}

// NewOpenAPI3 returns the constructor of the "openapi3" engine.
func NewOpenAPI3(loader *schema.Loader) Constructor {
	return func(schemaPath string) (Engine, error) {
		doc, err := loader.Load(schemaPath)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(doc.Raw)
		if err != nil {
			return nil, malformed(doc, err)
		}
		s := openapi3.NewSchema()
		if err := json.Unmarshal(data, s); err != nil {
			return nil, malformed(doc, err)
		}
		if s.Extensions == nil {
			s.Extensions = make(map[string]any)
		}
		s.Extensions[schemaIDExtension] = doc.ID

		if err := s.Validate(context.Background(), openapi3.AllowExtraSiblingFields(siblingKeywords...)); err != nil {
			return nil, malformed(doc, err)
		}

		return &OpenAPI3Engine{id: doc.ID, schema: s}, nil
	}
}

// SchemaID implements Engine.
func (e *OpenAPI3Engine) SchemaID() string {
	return e.id
}

// Validate implements Engine.
func (e *OpenAPI3Engine) Validate(candidate any) error {
	value, err := normalize(candidate)
	if err != nil {
		return err
	}

	err = e.schema.VisitJSON(value, openapi3.MultiErrors(), openapi3.EnableFormatValidation())
	if err == nil {
		return nil
	}

	var violations []string
	collectSchemaErrors(err, &violations)
	slices.Sort(violations)
	return validationError(e.id, slices.Compact(violations), err)
}

// collectSchemaErrors flattens MultiError trees into "<pointer>: <reason>" lines.
func collectSchemaErrors(err error, out *[]string) {
	var multi openapi3.MultiError
	if stderrors.As(err, &multi) {
		for _, e := range multi {
			collectSchemaErrors(e, out)
		}
		return
	}

	var schemaErr *openapi3.SchemaError
	if !stderrors.As(err, &schemaErr) {
		*out = append(*out, err.Error())
		return
	}
	if schemaErr.Origin != nil {
		var nested openapi3.MultiError
		if stderrors.As(schemaErr.Origin, &nested) {
			collectSchemaErrors(nested, out)
			return
		}
	}

	reason := schemaErr.Reason
	if reason == "" {
		reason = "doesn't match schema " + schemaErr.SchemaField
	}
	if pointer := schemaErr.JSONPointer(); len(pointer) > 0 {
		*out = append(*out, "/"+strings.Join(pointer, "/")+": "+reason)
		return
	}
	*out = append(*out, reason)
}
