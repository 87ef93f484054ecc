// Package schema embeds the JSON schema for environment files.
package schema

import "embed"

// FS contains the embedded schema files.
//
//go:embed *.schema.json
var FS embed.FS

// EnvironmentSchema is the name of the environment file schema within FS
const EnvironmentSchema = "environment.schema.json"
