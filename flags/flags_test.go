package flags

import (
	"strings"
	"testing"
	"time"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

// TestBetaFlags test that all flags starting with "beta." have "BETA_" in the env var, and vice versa.
func TestBetaFlags(t *testing.T) {
	for _, flag := range Flags {
		envFlag, ok := flag.(interface {
			GetEnvVars() []string
		})
		if !ok || len(envFlag.GetEnvVars()) == 0 { // skip flags without env-var support
			continue
		}
		name := flag.Names()[0]
		envName := envFlag.GetEnvVars()[0]
		if strings.HasPrefix(name, "beta.") {
			require.Contains(t, envName, "BETA_", "%q flag must contain BETA in env var to match \"beta.\" flag name", name)
		}
		if strings.Contains(envName, "BETA_") {
			require.True(t, strings.HasPrefix(name, "beta."), "%q flag must start with \"beta.\" in flag name to match \"BETA_\" env var", name)
		}
	}
}

func TestHasEnvVar(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			envFlags := envFlagGetter.GetEnvVars()
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
		})
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			envFlags := envFlagGetter.GetEnvVars()
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")

			expectedEnvVar := opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix)
			require.Equal(t, expectedEnvVar, envFlags[0])
		})
	}
}

func TestRequiredFlags(t *testing.T) {
	for _, flag := range requiredFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.True(t, reqFlag.IsRequired(), "%s should be required", flag.Names()[0])
	}
}

func TestCheckRequired(t *testing.T) {
	testCases := []struct {
		name        string
		args        []string
		shouldError bool
	}{
		{"all required set", []string{"app", "--config", "envs.yaml", "--env", "staging"}, false},
		{"missing env", []string{"app", "--config", "envs.yaml"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var checkErr error
			app := &cli.App{
				Flags: []cli.Flag{
					&cli.StringFlag{Name: Config.Name},
					&cli.StringFlag{Name: Environment.Name},
				},
				Action: func(ctx *cli.Context) error {
					checkErr = CheckRequired(ctx)
					return nil
				},
			}
			require.NoError(t, app.Run(tc.args))
			if tc.shouldError {
				assert.Error(t, checkErr)
			} else {
				assert.NoError(t, checkErr)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	app := &cli.App{
		Flags: []cli.Flag{TaskTimeout, ReleaseTimeout, TestPattern, PluginPattern, RunInterval, MaxSessions, PluginDir},
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, 5*time.Minute, ctx.Duration(TaskTimeout.Name))
			assert.Equal(t, 30*time.Second, ctx.Duration(ReleaseTimeout.Name))
			assert.Equal(t, "*Test.js", ctx.String(TestPattern.Name))
			assert.Equal(t, "*.js", ctx.String(PluginPattern.Name))
			assert.Equal(t, time.Duration(0), ctx.Duration(RunInterval.Name))
			assert.Equal(t, 0, ctx.Int(MaxSessions.Name))
			assert.Empty(t, ctx.StringSlice(PluginDir.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"app"}))
}

func TestPluginDirOrder(t *testing.T) {
	app := &cli.App{
		Flags: []cli.Flag{PluginDir},
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, []string{"custom", "shared"}, ctx.StringSlice(PluginDir.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"app", "--plugindir", "custom", "--plugindir", "shared"}))
}
