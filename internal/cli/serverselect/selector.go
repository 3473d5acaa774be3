package serverselect

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/reservas-dev/reservas/internal/cli/config"
	"github.com/reservas-dev/reservas/internal/cli/userconfig"
	"github.com/reservas-dev/reservas/internal/logger"
)

// DefaultURL is used when nothing else names a backend
const DefaultURL = "http://localhost:8000"

// ResolveURL determines which backend to use based on the following priority:
// 1. If the server flag is provided (alias or URL), use that server
// 2. If envURL (RESERVAS_API_URL) is set, use it
// 3. If user has a selected server in their local config, use that
// 4. If only one server in project config, use that
// 5. Otherwise, prompt user to select a server interactively
// Without a project file and without a selection, DefaultURL is used.
func ResolveURL(projectConfig *config.Config, server, envURL string) (string, error) {
	if server != "" {
		if isURL(server) {
			return server, nil
		}
		if projectConfig == nil {
			return "", fmt.Errorf("server alias '%s' given but no %s found", server, config.ConfigFileName)
		}
		s, err := projectConfig.GetServerByAlias(server)
		if err != nil {
			return "", err
		}
		return s.URL, nil
	}

	if envURL != "" {
		return envURL, nil
	}

	selected, err := userconfig.GetSelectedServer()
	if err != nil {
		return "", fmt.Errorf("failed to load user config: %w", err)
	}

	if projectConfig == nil || len(projectConfig.Servers) == 0 {
		if selected != "" {
			return selected, nil
		}
		return DefaultURL, nil
	}

	if selected != "" {
		if _, err := projectConfig.GetServerByURL(selected); err == nil {
			return selected, nil
		}
		// Selected server no longer exists in project config, clear it and continue
		_ = userconfig.SetSelectedServer("")
	}

	if len(projectConfig.Servers) == 1 {
		s := projectConfig.Servers[0]
		remember(s.URL)
		return s.URL, nil
	}

	s, err := PromptServerSelection(projectConfig)
	if err != nil {
		return "", err
	}
	remember(s.URL)
	return s.URL, nil
}

func remember(u string) {
	if err := userconfig.SetSelectedServer(u); err != nil {
		log := logger.GetLogger()
		log.Warn().Err(err).Msg("Failed to save selected server")
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(projectConfig *config.Config) (*config.Server, error) {
	if len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	type serverOption struct {
		Label  string
		Server *config.Server
	}

	options := make([]serverOption, len(projectConfig.Servers))
	for i := range projectConfig.Servers {
		s := &projectConfig.Servers[i]
		options[i] = serverOption{
			Label:  fmt.Sprintf("%s (%s)", s.Alias, s.URL),
			Server: s,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a server",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}

	return options[index].Server, nil
}
