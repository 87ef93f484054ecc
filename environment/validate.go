package environment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ethereum-optimism/infra/op-browsertest/environment/schema"
)

var (
	envSchema   *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

func compileSchema() error {
	compileOnce.Do(func() {
		data, err := schema.FS.ReadFile(schema.EnvironmentSchema)
		if err != nil {
			compileErr = fmt.Errorf("read environment schema: %w", err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal environment schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schema.EnvironmentSchema, doc); err != nil {
			compileErr = fmt.Errorf("add environment schema resource: %w", err)
			return
		}
		envSchema, err = compiler.Compile(schema.EnvironmentSchema)
		if err != nil {
			compileErr = fmt.Errorf("compile environment schema: %w", err)
		}
	})
	return compileErr
}

// validate checks a decoded YAML or TOML document against the schema. The
// document is round-tripped through JSON so both formats are validated the
// same way.
func validate(raw map[string]any) error {
	if err := compileSchema(); err != nil {
		return err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding environment for validation: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding environment for validation: %w", err)
	}
	if err := envSchema.Validate(doc); err != nil {
		return fmt.Errorf("environment validation failed: %w", err)
	}
	return nil
}
