package config

import (
	"encoding/json"
	"fmt"

	"github.com/swaggest/jsonschema-go"
)

// Schema returns the JSON schema of the configuration file
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{}
	schema, err := reflector.Reflect(Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to reflect config schema: %w", err)
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config schema: %w", err)
	}
	return data, nil
}
