// Package environment loads target environment descriptions from YAML or
// TOML files.
package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-browsertest/session"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

const DefaultMaxSessions = 1

// File is a parsed environment file
type File struct {
	TestDir      string                  `yaml:"test_dir" toml:"test_dir"`
	PluginDir    string                  `yaml:"plugin_dir" toml:"plugin_dir"`
	Environments map[string]*Environment `yaml:"environments" toml:"environments"`

	// Path is the location the file was loaded from
	Path string `yaml:"-" toml:"-"`
}

// Environment describes one remote automation target
type Environment struct {
	Name                  string             `yaml:"-" toml:"-"`
	URL                   string             `yaml:"url" toml:"url"`
	Host                  string             `yaml:"host" toml:"host"`
	Port                  int                `yaml:"port" toml:"port"`
	Username              string             `yaml:"username" toml:"username"`
	AccessKey             string             `yaml:"access_key" toml:"access_key"`
	Browsers              []types.Capability `yaml:"browsers" toml:"browsers"`
	MaxSessions           int                `yaml:"max_sessions" toml:"max_sessions"`
	ScreenshotFailedTests bool               `yaml:"screenshot_failed_tests" toml:"screenshot_failed_tests"`
	ScreenshotsPath       string             `yaml:"screenshots_path" toml:"screenshots_path"`
	RemoteGrid            *RemoteGrid        `yaml:"remote_grid" toml:"remote_grid"`
}

// RemoteGrid holds the credentials of a hosted automation grid
type RemoteGrid struct {
	Username      string  `yaml:"username" toml:"username"`
	Password      string  `yaml:"password" toml:"password"`
	APIURL        string  `yaml:"api_url" toml:"api_url"`
	MaxConcurrent int     `yaml:"max_concurrent" toml:"max_concurrent"`
	RateLimit     float64 `yaml:"rate_limit" toml:"rate_limit"`
}

// Load reads, validates and decodes the environment file at path. The format
// is chosen by extension: .yaml, .yml or .toml.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.ConfigurationErrorf("reading environment file: %w", err)
	}
	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	f.Path = path
	f.resolvePaths(filepath.Dir(path))
	return f, nil
}

// Parse validates and decodes environment file contents in the format named by
// ext.
func Parse(data []byte, ext string) (*File, error) {
	var (
		raw       map[string]any
		unmarshal func([]byte, any) error
	)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	case ".toml":
		unmarshal = toml.Unmarshal
	default:
		return nil, types.ConfigurationErrorf("unsupported environment file format %q", ext)
	}

	if err := unmarshal(data, &raw); err != nil {
		return nil, types.ConfigurationErrorf("parsing environment file: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, types.NewConfigurationError(err)
	}

	var f File
	if err := unmarshal(data, &f); err != nil {
		return nil, types.ConfigurationErrorf("decoding environment file: %w", err)
	}
	for name, env := range f.Environments {
		env.Name = name
		if env.MaxSessions == 0 {
			env.MaxSessions = DefaultMaxSessions
		}
	}
	return &f, nil
}

// resolvePaths makes relative directories in the file relative to dir
func (f *File) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	f.TestDir = abs(f.TestDir)
	f.PluginDir = abs(f.PluginDir)
	for _, env := range f.Environments {
		env.ScreenshotsPath = abs(env.ScreenshotsPath)
	}
}

// Names returns the environment names, sorted
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Environments))
	for name := range f.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the environment with the given name
func (f *File) Select(name string) (*Environment, error) {
	env, ok := f.Environments[name]
	if !ok {
		return nil, types.ConfigurationErrorf("environment %q not found, available: %s", name, strings.Join(f.Names(), ", "))
	}
	return env, nil
}

// Validate checks the invariants the runner relies on. Files that went through
// Load already satisfy them; this covers environments built in code.
func (e *Environment) Validate() error {
	switch {
	case e == nil:
		return types.ConfigurationErrorf("environment is nil")
	case e.MaxSessions < 1:
		return types.ConfigurationErrorf("environment %q: max_sessions must be at least 1, got %d", e.Name, e.MaxSessions)
	case e.Port < 1 || e.Port > 65535:
		return types.ConfigurationErrorf("environment %q: port %d out of range", e.Name, e.Port)
	case e.Host == "":
		return types.ConfigurationErrorf("environment %q: host is required", e.Name)
	}
	return nil
}

// Endpoint returns the address sessions for this environment are opened against
func (e *Environment) Endpoint() session.Endpoint {
	return session.Endpoint{
		Host:      e.Host,
		Port:      e.Port,
		Username:  e.Username,
		AccessKey: e.AccessKey,
	}
}

// ScreenshotsEnabled reports whether artifacts should be captured
func (e *Environment) ScreenshotsEnabled() bool {
	return e.ScreenshotFailedTests && e.ScreenshotsPath != ""
}

func (e *Environment) String() string {
	return fmt.Sprintf("%s (%s, %d browsers, %d sessions)", e.Name, e.Endpoint().Address(), len(e.Browsers), e.MaxSessions)
}
