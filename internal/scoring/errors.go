package scoring

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is wrapped by every ConfigError.
	ErrConfiguration = errors.New("scoring configuration error")
	// ErrInvalidInput is wrapped by every InputError.
	ErrInvalidInput = errors.New("invalid scoring input")
)

// ConfigError reports a malformed or missing scoring parameter.
// It is fatal to any computation that needs the parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scoring config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// InputError reports a numeric input outside the domain a function accepts.
type InputError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func inputErr(field string, value float64, reason string) error {
	return &InputError{Field: field, Value: value, Reason: reason}
}
