package config

import "fmt"

// LoadError wraps failures reading or parsing a config file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError describes a rejected config value.
type ValidationError struct {
	Field string
	Value string
	Hint  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid %s %q (%s)", e.Field, e.Value, e.Hint)
}
