package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every error caused by malformed or missing
// run parameters. Such errors are fatal and abort a run before any
// benchmark executes.
var ErrConfiguration = errors.New("configuration error")

// MissingParameterError reports a required key absent from a map literal.
type MissingParameterError struct {
	Key string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Key)
}

func (e *MissingParameterError) Unwrap() error { return ErrConfiguration }

// MalformedMapError reports a map literal that cannot be split into
// key=value pairs.
type MalformedMapError struct {
	Input  string
	Reason string
}

func (e *MalformedMapError) Error() string {
	return fmt.Sprintf("malformed map literal %q: %s", e.Input, e.Reason)
}

func (e *MalformedMapError) Unwrap() error { return ErrConfiguration }

// InvalidAdvancedKeyError reports an "advanced:" key with nothing after the
// prefix.
type InvalidAdvancedKeyError struct {
	Key string
}

func (e *InvalidAdvancedKeyError) Error() string {
	return fmt.Sprintf("invalid advanced option key %q", e.Key)
}

func (e *InvalidAdvancedKeyError) Unwrap() error { return ErrConfiguration }

// InvalidValueError reports a present key whose value cannot be used.
type InvalidValueError struct {
	Key    string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid value %q for %s", e.Value, e.Key)
	}

	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Key, e.Reason)
}

func (e *InvalidValueError) Unwrap() error { return ErrConfiguration }
