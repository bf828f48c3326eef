package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/ports"
	"gopkg.in/yaml.v3"
)

// EnvAPIURL overrides api.base_url when set.
const EnvAPIURL = "DOCLANE_API_URL"

// Load reads one doclane.yaml and applies it on top of the defaults.
func Load(path string) (domain.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Config{}, &domain.OpError{
			Op:   "config.load",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var dto yamlConfig
	if err := yaml.Unmarshal(b, &dto); err != nil {
		return domain.Config{}, &domain.OpError{
			Op:   "config.load",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	return mapConfig(path, dto)
}

// Resolved is a loaded configuration and the file it came from.
// Path is empty when only defaults were used.
type Resolved struct {
	Config domain.Config
	Path   string
}

// Resolver finds the configuration for a working directory.
type Resolver struct {
	Locator ports.ConfigLocator
	HomeDir string
	Getenv  func(string) string
}

// NewResolver uses the upward Finder, the user's home directory and the process environment.
func NewResolver() *Resolver {
	home, _ := os.UserHomeDir()
	return &Resolver{Locator: NewFinder(), HomeDir: home, Getenv: os.Getenv}
}

// Resolve looks for doclane.yaml from startDir upward, then in ~/.doclane, and
// falls back to defaults. DOCLANE_API_URL is applied last.
func (r *Resolver) Resolve(startDir string) (Resolved, error) {
	var out Resolved

	path := ""
	if r.Locator != nil {
		root, err := r.Locator.FindRoot(startDir)
		switch {
		case err == nil:
			path = filepath.Join(root, FileName)
		case !domain.IsKind(err, domain.KindNotFound):
			return Resolved{}, err
		}
	}
	if path == "" && r.HomeDir != "" {
		p := filepath.Join(HomeDir(r.HomeDir), FileName)
		if _, err := os.Stat(p); err == nil {
			path = p
		}
	}

	if path == "" {
		out.Config = domain.DefaultConfig()
	} else {
		cfg, err := Load(path)
		if err != nil {
			return Resolved{}, err
		}
		out.Config = cfg
		out.Path = path
	}

	if r.Getenv != nil {
		if v := strings.TrimSpace(r.Getenv(EnvAPIURL)); v != "" {
			out.Config.API.BaseURL = strings.TrimRight(v, "/")
		}
	}
	return out, nil
}

// HomeDir is the per-user doclane directory (session file, logs, fallback config).
func HomeDir(userHome string) string {
	return filepath.Join(userHome, ".doclane")
}
