package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/baselib/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestStore_Resolve(t *testing.T) {
	store := NewStore("/opt/schemas", "")

	tests := []struct {
		name      string
		family    string
		category  string
		operation string
		want      string
		wantCode  errors.ErrorCode
	}{
		{name: "plain family", family: "kvm", operation: "start", want: "/opt/schemas/kvm/actions/start.json"},
		{name: "module path", family: "hypervisors/hmc", operation: "stop", want: "/opt/schemas/hmc/actions/stop.json"},
		{name: "trailing slash", family: "guests/linux/", operation: "hotplug", want: "/opt/schemas/linux/actions/hotplug.json"},
		{name: "explicit category", family: "zvm", category: "commands", operation: "init", want: "/opt/schemas/zvm/commands/init.json"},
		{name: "empty family", family: "", operation: "start", wantCode: errors.ErrCodeContract},
		{name: "slash only family", family: "/", operation: "start", wantCode: errors.ErrCodeContract},
		{name: "unknown operation", family: "kvm", operation: "login", wantCode: errors.ErrCodeContract},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Resolve(tt.family, tt.category, tt.operation)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.wantCode), err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_defaultCategory(t *testing.T) {
	assert.Equal(t, DefaultCategory, NewStore("x", "").Category())
	assert.Equal(t, "extra", NewStore("x", "extra").Category())
}

func TestLoader_Load_assignsIdentifier(t *testing.T) {
	dir := t.TempDir()
	draft4 := filepath.Join(dir, "d4.json")
	modern := filepath.Join(dir, "modern.json")
	writeFile(t, draft4, `{"type": "object"}`)
	writeFile(t, modern, `{"$schema": "https://json-schema.org/draft/2020-12/schema", "type": "object"}`)

	loader := NewLoader()

	doc, err := loader.Load(draft4)
	require.NoError(t, err)
	assert.Equal(t, "file://"+draft4, doc.ID)
	assert.Equal(t, doc.ID, doc.Raw["id"])
	assert.Equal(t, "id", doc.IDKeyword())

	doc, err = loader.Load(modern)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, doc.Raw["$id"])
	assert.NotContains(t, doc.Raw, "id")
}

func TestLoader_Load_keepsIntegerPrecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "start.json")
	writeFile(t, path, `{"properties": {"wwpn": {"type": "integer", "minimum": 9007199254740993}}}`)

	doc, err := NewLoader().Load(path)
	require.NoError(t, err)
	wwpn := doc.Raw["properties"].(map[string]any)["wwpn"].(map[string]any)
	assert.Equal(t, json.Number("9007199254740993"), wwpn["minimum"])
}

func TestLoader_Load_errors(t *testing.T) {
	dir := t.TempDir()
	notJSON := filepath.Join(dir, "bad.json")
	notObject := filepath.Join(dir, "array.json")
	writeFile(t, notJSON, `{"type": `)
	writeFile(t, notObject, `["object"]`)

	loader := NewLoader()

	_, err := loader.Load(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeResource), err)

	_, err = loader.Load(notJSON)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSchemaMalformed), err)

	_, err = loader.Load(notObject)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSchemaMalformed), err)
}

type mapCache map[string]*Document

func (m mapCache) Get(path string) (*Document, bool) { d, ok := m[path]; return d, ok }
func (m mapCache) Put(path string, doc *Document)    { m[path] = doc }

func TestLoader_Load_withCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "start.json")
	writeFile(t, path, `{"type": "object"}`)

	cache := mapCache{}
	loader := NewLoader(WithCache(cache))

	first, err := loader.Load(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	second, err := loader.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = NewLoader().Load(path)
	assert.True(t, errors.HasCode(err, errors.ErrCodeResource))
}
