package serverselect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reservas-dev/reservas/internal/cli/config"
	"github.com/reservas-dev/reservas/internal/cli/userconfig"
)

func TestResolveURL(t *testing.T) {
	project := &config.Config{Servers: []config.Server{
		{Alias: "local", URL: "http://localhost:8000"},
		{Alias: "prod", URL: "https://reservas.example.com"},
	}}

	tests := []struct {
		name     string
		project  *config.Config
		server   string
		env      string
		selected string
		want     string
	}{
		{"flag alias", project, "prod", "http://env", "", "https://reservas.example.com"},
		{"flag url", nil, "http://other:9000", "", "", "http://other:9000"},
		{"env beats selection", project, "", "http://env:1", "http://localhost:8000", "http://env:1"},
		{"selection", project, "", "", "http://localhost:8000", "http://localhost:8000"},
		{"single server", &config.Config{Servers: project.Servers[1:]}, "", "", "", "https://reservas.example.com"},
		{"no project file", nil, "", "", "", DefaultURL},
		{"no project file keeps selection", nil, "", "", "https://kept", "https://kept"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", t.TempDir())
			if tt.selected != "" {
				require.NoError(t, userconfig.SetSelectedServer(tt.selected))
			}

			got, err := ResolveURL(tt.project, tt.server, tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveURL_UnknownAlias(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := ResolveURL(&config.Config{}, "missing", "")
	assert.Error(t, err)

	_, err = ResolveURL(nil, "missing", "")
	assert.Error(t, err)
}

func TestResolveURL_SingleServerIsRemembered(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	project := &config.Config{Servers: []config.Server{{Alias: "local", URL: "http://localhost:8000"}}}

	_, err := ResolveURL(project, "", "")
	require.NoError(t, err)

	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", selected)
}
