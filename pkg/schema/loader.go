package schema

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/usestring/baselib/pkg/errors"
)

// FileScheme prefixes the self-reference identifier of every loaded document.
const FileScheme = "file://"

// Document is a parsed schema file. Documents are shared between engines and
// cache entries and must not be modified after Load returns them.
type Document struct {
	// Path is the absolute file path the document was read from.
	Path string
	// ID is the self-reference identifier, FileScheme followed by Path.
	ID string
	// Draft is the declared $schema, empty when the document declares none.
	Draft string
	// Raw is the decoded JSON object with the identifier keyword set to ID.
	// Numbers are json.Number, so integer bounds keep their precision.
	Raw map[string]any
}

// IDKeyword returns the keyword carrying the document identifier: "id" for
// draft-04 (and older or undeclared) documents, "$id" otherwise.
func (d *Document) IDKeyword() string {
	return idKeyword(d.Draft)
}

func idKeyword(draft string) string {
	if draft == "" || strings.Contains(draft, "draft-04") || strings.Contains(draft, "draft-03") {
		return "id"
	}
	return "$id"
}

// Cache stores loaded documents by absolute path.
type Cache interface {
	Get(path string) (*Document, bool)
	Put(path string, doc *Document)
}

// Loader reads schema documents from disk.
type Loader struct {
	cache Cache
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithCache makes the loader reuse documents already read from the same path.
func WithCache(c Cache) LoaderOption {
	return func(l *Loader) {
		l.cache = c
	}
}

// NewLoader creates a loader. Without options every Load reads the file.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load opens and parses the schema at path and assigns its identifier.
func (l *Loader) Load(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeResource,
			"cannot resolve schema path", err, map[string]any{"path": path})
	}

	if l.cache != nil {
		if doc, ok := l.cache.Get(abs); ok {
			return doc, nil
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		msg := "cannot read schema file"
		if os.IsNotExist(err) {
			msg = "schema file does not exist"
		}
		return nil, errors.WrapWithContext(errors.ErrCodeResource, msg, err,
			map[string]any{"path": abs})
	}

	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeSchemaMalformed,
			"schema file is not valid JSON", err, map[string]any{"path": abs})
	}
	raw, ok := value.(map[string]any)
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeSchemaMalformed,
			"schema document must be a JSON object", map[string]any{"path": abs})
	}

	draft, _ := raw["$schema"].(string)
	doc := &Document{
		Path:  abs,
		ID:    FileScheme + filepath.ToSlash(abs),
		Draft: draft,
		Raw:   raw,
	}
	raw[idKeyword(draft)] = doc.ID

	slog.Debug("schema loaded", "path", abs, "draft", draft)

	if l.cache != nil {
		l.cache.Put(abs, doc)
	}
	return doc, nil
}
