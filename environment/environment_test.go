package environment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-browsertest/session"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

const validYAML = `
test_dir: ./tests
plugin_dir: /opt/plugins
environments:
  local:
    url: http://google.com
    host: 127.0.0.1
    port: 4444
    browsers:
      - browserName: chrome
        platform: Windows 10
        browserVersion: "120"
      - browserName: firefox
    screenshot_failed_tests: true
    screenshots_path: shots
  sauce:
    url: https://example.com
    host: ondemand.saucelabs.com
    port: 80
    username: user
    access_key: key
    browsers:
      - browserName: safari
    max_sessions: 4
    remote_grid:
      username: user
      password: key
      rate_limit: 2.5
`

const validTOML = `
test_dir = "tests"

[environments.local]
url = "http://google.com"
host = "127.0.0.1"
port = 4444
max_sessions = 2

[[environments.local.browsers]]
browserName = "chrome"
platform = "Linux"
`

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "env.yaml", validYAML)
	f, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, path, f.Path)
	assert.Equal(t, filepath.Join(dir, "tests"), f.TestDir)
	assert.Equal(t, "/opt/plugins", f.PluginDir)
	assert.Equal(t, []string{"local", "sauce"}, f.Names())

	local, err := f.Select("local")
	require.NoError(t, err)
	assert.Equal(t, "local", local.Name)
	assert.Equal(t, "http://google.com", local.URL)
	assert.Equal(t, DefaultMaxSessions, local.MaxSessions)
	assert.Equal(t, []types.Capability{
		{BrowserName: "chrome", Platform: "Windows 10", BrowserVersion: "120"},
		{BrowserName: "firefox"},
	}, local.Browsers)
	assert.True(t, local.ScreenshotsEnabled())
	assert.Equal(t, filepath.Join(dir, "shots"), local.ScreenshotsPath)
	assert.Nil(t, local.RemoteGrid)
	assert.Equal(t, session.Endpoint{Host: "127.0.0.1", Port: 4444}, local.Endpoint())
	require.NoError(t, local.Validate())

	sauce, err := f.Select("sauce")
	require.NoError(t, err)
	assert.Equal(t, 4, sauce.MaxSessions)
	require.NotNil(t, sauce.RemoteGrid)
	assert.Equal(t, "user", sauce.RemoteGrid.Username)
	assert.Equal(t, 2.5, sauce.RemoteGrid.RateLimit)
	assert.False(t, sauce.ScreenshotsEnabled())
	assert.Equal(t, "user", sauce.Endpoint().Username)
	assert.Equal(t, "key", sauce.Endpoint().AccessKey)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "env.toml", validTOML)
	f, err := Load(path)
	require.NoError(t, err)

	env, err := f.Select("local")
	require.NoError(t, err)
	assert.Equal(t, 2, env.MaxSessions)
	assert.Equal(t, []types.Capability{{BrowserName: "chrome", Platform: "Linux"}}, env.Browsers)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "tests"), f.TestDir)
}

func TestSelectUnknown(t *testing.T) {
	f, err := Parse([]byte(validYAML), ".yml")
	require.NoError(t, err)
	_, err = f.Select("staging")
	require.Error(t, err)
	assert.True(t, types.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "local, sauce")
}

func TestSchemaRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing url",
			content: `
environments:
  local:
    host: 127.0.0.1
    port: 4444
    browsers: [{browserName: chrome}]
`,
		},
		{
			name: "port out of range",
			content: `
environments:
  local:
    url: http://x
    host: 127.0.0.1
    port: 70000
    browsers: [{browserName: chrome}]
`,
		},
		{
			name: "zero max sessions",
			content: `
environments:
  local:
    url: http://x
    host: 127.0.0.1
    port: 4444
    max_sessions: 0
    browsers: [{browserName: chrome}]
`,
		},
		{
			name: "no browsers",
			content: `
environments:
  local:
    url: http://x
    host: 127.0.0.1
    port: 4444
    browsers: []
`,
		},
		{
			name: "unknown key",
			content: `
environments:
  local:
    url: http://x
    host: 127.0.0.1
    port: 4444
    browsers: [{browserName: chrome}]
    retries: 3
`,
		},
		{
			name: "remote grid without password",
			content: `
environments:
  local:
    url: http://x
    host: 127.0.0.1
    port: 4444
    browsers: [{browserName: chrome}]
    remote_grid:
      username: user
`,
		},
		{
			name:    "no environments",
			content: `test_dir: ./tests`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), ".yaml")
			require.Error(t, err)
			assert.True(t, types.IsConfigurationError(err))
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		_, err := Parse([]byte(`{}`), ".json")
		require.Error(t, err)
		assert.True(t, types.IsConfigurationError(err))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("environments: [unclosed"), ".yaml")
		require.Error(t, err)
		assert.True(t, types.IsConfigurationError(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, types.IsConfigurationError(err))
	})
}

func TestEnvironmentValidate(t *testing.T) {
	base := func() *Environment {
		return &Environment{Name: "e", Host: "h", Port: 1, MaxSessions: 1}
	}
	tests := []struct {
		name    string
		mutate  func(e *Environment) *Environment
		wantErr bool
	}{
		{name: "valid", mutate: func(e *Environment) *Environment { return e }},
		{name: "nil", mutate: func(e *Environment) *Environment { return nil }, wantErr: true},
		{name: "zero sessions", mutate: func(e *Environment) *Environment { e.MaxSessions = 0; return e }, wantErr: true},
		{name: "bad port", mutate: func(e *Environment) *Environment { e.Port = 0; return e }, wantErr: true},
		{name: "no host", mutate: func(e *Environment) *Environment { e.Host = ""; return e }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(base()).Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, types.IsConfigurationError(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}
