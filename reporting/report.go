// Package reporting renders an aggregate run result into report files.
package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// Format identifies a report encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// ReportFormatter renders an aggregate result to a writer
type ReportFormatter interface {
	Format(w io.Writer, result *types.AggregateResult) error
}

// FormatForPath picks a report format from the file extension
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".txt", ".log":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported report extension %q (want .json, .yaml, .yml, .txt or .log)", filepath.Ext(path))
	}
}

// NewFormatter returns the formatter for a format
func NewFormatter(format Format) (ReportFormatter, error) {
	switch format {
	case FormatJSON:
		return JSONFormatter{}, nil
	case FormatYAML:
		return YAMLFormatter{}, nil
	case FormatText:
		return NewTextFormatter(true), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// WriteFile renders the result into path, choosing the encoding by extension.
// Parent directories are created as needed.
func WriteFile(path string, result *types.AggregateResult) error {
	if result == nil {
		return fmt.Errorf("no result to write")
	}
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	formatter, err := NewFormatter(format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file %s: %w", path, err)
	}
	if err := formatter.Format(f, result); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file %s: %w", path, err)
	}
	return nil
}

// JSONFormatter writes the serialized report as indented JSON
type JSONFormatter struct{}

func (JSONFormatter) Format(w io.Writer, result *types.AggregateResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Report())
}

// YAMLFormatter writes the serialized report as YAML
type YAMLFormatter struct{}

func (YAMLFormatter) Format(w io.Writer, result *types.AggregateResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(result.Report()); err != nil {
		return err
	}
	return enc.Close()
}
