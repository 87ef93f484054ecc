// Package discovery builds the suite and test list from a test directory.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-browsertest/session"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

const (
	// OtherSuite collects the test files found directly under the root directory
	OtherSuite = "_other"

	DefaultTestPattern = "*Test.js"
)

// Suite is a named group of tests, one per subdirectory of the test root
type Suite struct {
	Name  string
	Tests []Test
}

// Test is a single discovered test file
type Test struct {
	// ID is the file's base name without extension
	ID        string
	Path      string
	Procedure session.Procedure
}

// Config controls discovery
type Config struct {
	Root     string
	Pattern  string
	Resolver Resolver
	Log      log.Logger
}

// Discover walks cfg.Root one level deep. Every non-hidden subdirectory with at
// least one matching file becomes a suite; matching files directly under the
// root become the OtherSuite, which is always last. Suites and tests are
// sorted by name.
func Discover(cfg Config) ([]Suite, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultTestPattern
	}
	if cfg.Resolver == nil {
		cfg.Resolver = &ScriptResolver{}
	}
	if _, err := doublestar.Match(cfg.Pattern, cfg.Pattern); err != nil {
		return nil, types.ConfigurationErrorf("invalid test pattern %q: %w", cfg.Pattern, err)
	}

	entries, err := os.ReadDir(cfg.Root)
	if err != nil {
		return nil, types.ConfigurationErrorf("reading test directory: %w", err)
	}

	var dirs, loose []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if entry.IsDir() {
			if name == OtherSuite {
				return nil, types.ConfigurationErrorf("suite directory name %q is reserved", OtherSuite)
			}
			dirs = append(dirs, name)
			continue
		}
		loose = append(loose, name)
	}
	sort.Strings(dirs)

	var suites []Suite
	for _, dir := range dirs {
		suiteDir := filepath.Join(cfg.Root, dir)
		dirEntries, err := os.ReadDir(suiteDir)
		if err != nil {
			return nil, types.ConfigurationErrorf("reading suite %s: %w", dir, err)
		}
		var files []string
		for _, entry := range dirEntries {
			if !entry.IsDir() {
				files = append(files, entry.Name())
			}
		}
		tests, err := collectTests(cfg, dir, suiteDir, files)
		if err != nil {
			return nil, err
		}
		if len(tests) == 0 {
			cfg.Log.Debug("Skipping empty suite", "suite", dir)
			continue
		}
		suites = append(suites, Suite{Name: dir, Tests: tests})
	}

	others, err := collectTests(cfg, OtherSuite, cfg.Root, loose)
	if err != nil {
		return nil, err
	}
	if len(others) > 0 {
		suites = append(suites, Suite{Name: OtherSuite, Tests: others})
	}

	cfg.Log.Debug("Discovered suites", "root", cfg.Root, "suites", len(suites))
	return suites, nil
}

func collectTests(cfg Config, suite, dir string, files []string) ([]Test, error) {
	sort.Strings(files)
	var tests []Test
	for _, name := range files {
		if strings.HasPrefix(name, ".") {
			continue
		}
		ok, err := doublestar.Match(cfg.Pattern, name)
		if err != nil {
			return nil, types.ConfigurationErrorf("invalid test pattern %q: %w", cfg.Pattern, err)
		}
		if !ok {
			continue
		}

		test := Test{
			ID:   strings.TrimSuffix(name, filepath.Ext(name)),
			Path: filepath.Join(dir, name),
		}
		proc, found, err := cfg.Resolver.Resolve(suite, test.ID, test.Path)
		if err != nil {
			return nil, types.ConfigurationErrorf("resolving test %s: %w", test.Path, err)
		}
		if !found {
			return nil, types.ConfigurationErrorf("no procedure found for test %s", test.Path)
		}
		test.Procedure = proc
		tests = append(tests, test)
	}
	return tests, nil
}

// TestCount returns the number of tests across suites
func TestCount(suites []Suite) int {
	n := 0
	for _, s := range suites {
		n += len(s.Tests)
	}
	return n
}

// String returns a short description of the suite
func (s Suite) String() string {
	return fmt.Sprintf("%s (%d tests)", s.Name, len(s.Tests))
}
