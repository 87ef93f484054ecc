package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/ethereum-optimism/infra/op-browsertest/session"
)

// DefaultPluginPattern matches plugin script files
const DefaultPluginPattern = "*.js"

var nameHeader = regexp.MustCompile(`^//\s*name:\s*(\S+)\s*$`)

// LoadDir registers a script operation for every file in dir matching pattern.
// The operation name is taken from a leading "// name: <op>" comment when the
// file has one, and is otherwise the file's base name without extension. Names
// that are already registered are skipped. It returns the number of operations added.
func (r *Registry) LoadDir(dir string, pattern string) (int, error) {
	if pattern == "" {
		pattern = DefaultPluginPattern
	}
	if _, err := doublestar.Match(pattern, pattern); err != nil {
		return 0, fmt.Errorf("invalid plugin pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading plugin directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	added := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return added, fmt.Errorf("invalid plugin pattern %q: %w", pattern, err)
		}
		if !ok {
			continue
		}

		path := filepath.Join(dir, name)
		body, err := os.ReadFile(path)
		if err != nil {
			return added, fmt.Errorf("reading plugin %s: %w", path, err)
		}

		opName := pluginName(name, string(body))
		if r.Register(opName, ScriptOperation(string(body))) {
			r.config.Log.Debug("Registered plugin", "name", opName, "path", path)
			added++
		}
	}
	return added, nil
}

// ScriptOperation returns an operation that runs script in the remote browser,
// forwarding the call arguments.
func ScriptOperation(script string) session.Operation {
	return func(ctx context.Context, s *session.Session, args ...any) (any, error) {
		return s.Execute(ctx, script, args...)
	}
}

// pluginName returns the name declared in the script's first non-blank line,
// or the file name without its extension.
func pluginName(file, body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := nameHeader.FindStringSubmatch(line); m != nil {
			return m[1]
		}
		break
	}
	return strings.TrimSuffix(file, filepath.Ext(file))
}
