package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	write(t, path, `
max_dnf_clauses = 16
color = "never"

[intrinsics]
disable = ["vec3", "cross"]
`)
	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, config.MaxDNFClauses)
	assert.Equal(t, ColorNever, config.Color)
	assert.Equal(t, []string{"vec3", "cross"}, config.Intrinsics.Disable)
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	write(t, path, `color = "always"`)
	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxClauses, config.MaxDNFClauses)
	assert.True(t, config.UseColor(false))
}

func TestLoadErrors(t *testing.T) {
	for _, tt := range []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", `max_dnf_clauses = `, "parsing"},
		{"color", `color = "sometimes"`, `got "sometimes"`},
		{"negative", `max_dnf_clauses = -1`, "must not be negative"},
		{"unknown key", `colour = "auto"`, `unknown key "colour"`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			write(t, path, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUseColor(t *testing.T) {
	config := Default()
	assert.True(t, config.UseColor(true))
	assert.False(t, config.UseColor(false))
	config.Color = ColorNever
	assert.False(t, config.UseColor(true))
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	write(t, filepath.Join(root, FileName), `max_dnf_clauses = 8`)
	nested := filepath.Join(root, "domains", "travel")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, config, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), path)
	assert.Equal(t, 8, config.MaxDNFClauses)
}

func TestFindStopsAtRepository(t *testing.T) {
	outer := t.TempDir()
	write(t, filepath.Join(outer, FileName), `max_dnf_clauses = 8`)
	repo := filepath.Join(outer, "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))

	path, config, err := Find(repo)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Nil(t, config)
}
