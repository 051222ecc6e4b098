package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConfig(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s, err := FromConfig(Config{Type: "memory", Name: "scratch", Key: []string{"k"}})
		require.NoError(t, err)
		assert.IsType(t, &Memory{}, s)
		assert.Equal(t, "scratch", s.Name())
		assert.Equal(t, []string{"k"}, s.Key())
	})

	t.Run("mongo", func(t *testing.T) {
		s, err := FromConfig(Config{
			Type:       "mongo",
			Database:   "materials",
			Collection: "tasks",
		})
		require.NoError(t, err)
		m, ok := s.(*Mongo)
		require.True(t, ok)
		assert.Equal(t, "tasks", m.Name())
		assert.Equal(t, "materials", m.Database())
	})

	t.Run("json", func(t *testing.T) {
		s, err := FromConfig(Config{
			Type:  "json",
			Paths: []string{filepath.Join("testdata", "tasks.json")},
		})
		require.NoError(t, err)
		assert.IsType(t, &JSONFile{}, s)
	})

	t.Run("json without paths fails", func(t *testing.T) {
		_, err := FromConfig(Config{Type: "json"})
		assert.Error(t, err)
	})

	t.Run("alias wraps its source", func(t *testing.T) {
		s, err := FromConfig(Config{
			Type:    "alias",
			Aliases: map[string]string{"a": "b"},
			Source:  &Config{Type: "memory", Name: "inner"},
		})
		require.NoError(t, err)
		assert.IsType(t, &Alias{}, s)
		assert.Equal(t, "inner", s.Name())
	})

	t.Run("alias without source fails", func(t *testing.T) {
		_, err := FromConfig(Config{Type: "alias", Aliases: map[string]string{"a": "b"}})
		assert.Error(t, err)
	})

	t.Run("alias without aliases fails", func(t *testing.T) {
		_, err := FromConfig(Config{Type: "alias", Source: &Config{Type: "memory"}})
		assert.Error(t, err)
	})

	t.Run("blob without source fails", func(t *testing.T) {
		_, err := FromConfig(Config{Type: "blob"})
		assert.Error(t, err)
	})

	t.Run("unknown type fails", func(t *testing.T) {
		_, err := FromConfig(Config{Type: "carrier-pigeon"})
		assert.Error(t, err)
	})
}
