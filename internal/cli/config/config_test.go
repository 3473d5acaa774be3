package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindConfigFile_SearchesParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("servers: []\n"), 0644))

	path, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ConfigFileName), path)
}

func TestFindConfigFile_NotFound(t *testing.T) {
	_, err := FindConfigFile(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		servers int
	}{
		{
			name: "valid",
			content: `servers:
  - alias: local
    url: http://localhost:8000
  - alias: prod
    url: https://reservas.example.com
`,
			servers: 2,
		},
		{name: "missing alias", content: "servers:\n  - url: http://localhost:8000\n", wantErr: true},
		{name: "bad url", content: "servers:\n  - alias: x\n    url: localhost\n", wantErr: true},
		{name: "duplicate alias", content: "servers:\n  - alias: x\n    url: http://a\n  - alias: x\n    url: http://b\n", wantErr: true},
		{name: "not yaml", content: "servers: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, cfg.Servers, tt.servers)
		})
	}
}

func TestSaveAndAddServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg := &Config{}

	s, added := cfg.AddServer("http://localhost:8000", "")
	assert.True(t, added)
	assert.Equal(t, "local", s.Alias)

	_, added = cfg.AddServer("http://localhost:8000", "other")
	assert.False(t, added)

	s, _ = cfg.AddServer("https://reservas.example.com", "")
	assert.Equal(t, "server-2", s.Alias)

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Servers, loaded.Servers)

	got, err := loaded.GetServerByAlias("server-2")
	require.NoError(t, err)
	assert.Equal(t, "https://reservas.example.com", got.URL)
}
