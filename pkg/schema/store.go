// Package schema resolves and loads the JSON Schema documents that describe
// the parameters of driver operations.
//
// Schemas follow a fixed filesystem layout:
//
//	<base>/<family>/<category>/<operation>.json
//
// where family is the driver family identifier (for example "kvm"), category
// is the operation kind declared by the family ("actions" unless stated
// otherwise) and operation is one of the recognized operation names.
package schema

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/types"
)

// DefaultCategory is the category used when a family declares none.
const DefaultCategory = "actions"

// Store resolves schema file paths by convention. It performs no I/O.
type Store struct {
	baseDir  string
	category string
}

// NewStore creates a store rooted at baseDir. An empty category selects
// DefaultCategory.
func NewStore(baseDir, category string) *Store {
	if category == "" {
		category = DefaultCategory
	}
	return &Store{baseDir: baseDir, category: category}
}

// BaseDir returns the schemas base directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Category returns the store's default category.
func (s *Store) Category() string {
	return s.category
}

// Resolve returns the schema path for operation in family. family may be a
// slash separated module path, only its last segment is used. An empty
// category falls back to the store default.
func (s *Store) Resolve(family, category, operation string) (string, error) {
	segment := FamilySegment(family)
	if segment == "" {
		return "", errors.NewWithContext(errors.ErrCodeContract,
			"driver family must have a non-empty last path segment",
			map[string]any{"family": family})
	}
	if !types.IsOperation(operation) {
		return "", errors.NewWithContext(errors.ErrCodeContract,
			"operation name is not recognized, use one of: "+strings.Join(types.Operations(), ", "),
			map[string]any{"operation": operation})
	}
	if category == "" {
		category = s.category
	}
	return filepath.Join(s.baseDir, segment, category, operation+".json"), nil
}

// FamilySegment returns the last path segment of family, or "" when there is none.
func FamilySegment(family string) string {
	trimmed := strings.Trim(strings.TrimSpace(family), "/")
	if trimmed == "" {
		return ""
	}
	seg := path.Base(trimmed)
	if seg == "." || seg == ".." {
		return ""
	}
	return seg
}
