package scoring

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every ConfigurationError through errors.Is.
var ErrConfiguration = errors.New("invalid scoring configuration")

// ConfigurationError reports a malformed rule or registry option. It is
// fatal: a registry is never built from a configuration that produced one.
type ConfigurationError struct {
	Rule   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: rule %q: %s", ErrConfiguration, e.Rule, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(rule, format string, args ...any) error {
	return &ConfigurationError{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// AdapterError reports an input outside the adapter's known domain. The
// adapter still returns its neutral default alongside it.
type AdapterError struct {
	Adapter string
	Input   string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: unknown input %q", e.Adapter, e.Input)
}
