// Package config reads the project file listing the backends a checkout can
// talk to.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const ConfigFileName = "reservas.yaml"

// ErrNotFound means no project file exists in the directory tree
var ErrNotFound = errors.New(ConfigFileName + " not found")

// Server is one backend the CLI can talk to
type Server struct {
	Alias string `yaml:"alias"`
	URL   string `yaml:"url"`
}

// Config is the project file
type Config struct {
	Servers []Server `yaml:"servers"`
}

// Validate checks every server has an alias and an http(s) URL
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i, s := range c.Servers {
		if s.Alias == "" {
			return fmt.Errorf("server %d: alias is required", i+1)
		}
		if seen[s.Alias] {
			return fmt.Errorf("server %q: duplicate alias", s.Alias)
		}
		seen[s.Alias] = true

		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("server %q: url must be an http(s) URL, got %q", s.Alias, s.URL)
		}
	}
	return nil
}

// FindConfigFile searches for reservas.yaml in dir and its parents
func FindConfigFile(dir string) (string, error) {
	start := dir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w in %s or any parent directory", ErrNotFound, start)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFileName, err)
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from the working directory or its parents
func LoadFromCurrentDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath, err := FindConfigFile(wd)
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetServerByAlias returns a server by its alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Alias == alias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with alias '%s' not found", alias)
}

// GetServerByURL returns a server by its URL
func (c *Config) GetServerByURL(u string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].URL == u {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with URL '%s' not found", u)
}

// AddServer appends a server unless its URL is already listed. It reports
// whether the server was added.
func (c *Config) AddServer(u, alias string) (*Server, bool) {
	if s, err := c.GetServerByURL(u); err == nil {
		return s, false
	}

	if alias == "" {
		alias = "local"
		if len(c.Servers) > 0 {
			alias = fmt.Sprintf("server-%d", len(c.Servers)+1)
		}
	}
	c.Servers = append(c.Servers, Server{Alias: alias, URL: u})
	return &c.Servers[len(c.Servers)-1], true
}
