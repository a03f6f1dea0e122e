// errors/evaluation_errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrSubjectNotFound            = errors.New("subject not found")
	ErrResourceDefinitionNotFound = errors.New("resource definition not found")
	ErrAttributeNotRegistered     = errors.New("attribute not registered in catalog")
	ErrAttributeExists            = errors.New("attribute already registered")
)

// ConfigurationError marks a structurally broken condition: an operator
// applied to a value type it is not defined for, or a malformed composite.
// It is an authoring bug, not a data-absence case; the decision combiner
// treats the owning policy as not applicable and continues.
type ConfigurationError struct {
	Attribute string
	Operator  string
	Detail    string
}

func (e *ConfigurationError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("policy configuration error: %s", e.Detail)
	}
	return fmt.Sprintf("policy configuration error on %q (%s): %s", e.Attribute, e.Operator, e.Detail)
}

// NewConfigurationError builds a ConfigurationError for the given condition.
func NewConfigurationError(attribute, operator, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{
		Attribute: attribute,
		Operator:  operator,
		Detail:    fmt.Sprintf(format, args...),
	}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
