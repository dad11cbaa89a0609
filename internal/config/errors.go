package config

import "fmt"

// ConfigurationError reports a configuration value that fails validation.
// The CLI maps it to its own exit code so operators can tell bad input
// apart from runtime failures.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
