// Package utils holds small helpers shared by the CLI commands.
package utils

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GetSchemaFromConfig reflects a config or artifact metadata struct into its
// JSON schema and returns it as an indented JSON string. The schema command
// uses it so trained-artifact consumers can validate bundle metadata without
// importing this module.
func GetSchemaFromConfig(config any) (string, error) {
	schema := jsonschema.Reflect(config)

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}
