package config

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// validateRaw checks a decoded JSON document against the schema derived
// from RunConfig. It catches type mismatches (a string where a number
// belongs) before the strict decode runs.
func validateRaw(raw any) error {
	schema, err := jsonschema.For[RunConfig](nil)
	if err != nil {
		return fmt.Errorf("building config schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolving config schema: %w", err)
	}
	return resolved.Validate(raw)
}
