package appconfig

import (
	"errors"
	"fmt"
)

// ConfigError reports a startup failure caused by configuration or
// credentials. It is always fatal: no evaluation or session may start.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error (%s): %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err carries a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

func configErrorf(source, format string, args ...any) error {
	return &ConfigError{Source: source, Err: fmt.Errorf(format, args...)}
}
