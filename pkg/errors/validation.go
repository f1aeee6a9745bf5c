package errors

import "fmt"

// ValidationError is the error type returned by pkg/options.Options.Validate
// and internal/index.New for malformed configuration. field, rule, provided
// and expected are rendered by Error() when set, so the message alone says
// what was wrong and what would have been acceptable.
type ValidationError struct {
	*baseError
	field    string
	rule     string
	provided any
	expected any
}

// NewValidationError creates a new validation-specific error with the
// provided context.
func NewValidationError(err error, code ErrorCode, msg string) *ValidationError {
	return &ValidationError{baseError: NewBaseError(err, code, msg)}
}

// WithDetail adds contextual information while preserving the ValidationError type.
func (ve *ValidationError) WithDetail(key string, value any) *ValidationError {
	ve.baseError.WithDetail(key, value)
	return ve
}

// WithField sets which field failed validation.
func (ve *ValidationError) WithField(field string) *ValidationError {
	ve.field = field
	return ve
}

// WithRule specifies which validation rule was violated (e.g. "required",
// "range", "format").
func (ve *ValidationError) WithRule(rule string) *ValidationError {
	ve.rule = rule
	return ve
}

// WithProvided captures what value was provided that failed validation.
func (ve *ValidationError) WithProvided(value any) *ValidationError {
	ve.provided = value
	return ve
}

// WithExpected describes what would have been a valid value.
func (ve *ValidationError) WithExpected(value any) *ValidationError {
	ve.expected = value
	return ve
}

// Error renders the message together with whichever of field, rule,
// provided and expected were attached to it.
func (ve *ValidationError) Error() string {
	msg := ve.baseError.Error()
	if ve.field != "" {
		msg = fmt.Sprintf("%s: field %q", msg, ve.field)
	}
	if ve.rule != "" {
		msg = fmt.Sprintf("%s violates rule %q", msg, ve.rule)
	}
	if ve.provided != nil {
		msg = fmt.Sprintf("%s (provided=%v)", msg, ve.provided)
	}
	if ve.expected != nil {
		msg = fmt.Sprintf("%s (expected=%v)", msg, ve.expected)
	}
	return msg
}

// NewRequiredFieldError creates a specialized error for missing required fields.
func NewRequiredFieldError(fieldName string) *ValidationError {
	return NewValidationError(
		nil,
		ErrorCodeInvalidInput,
		"required field is missing or empty",
	).WithField(fieldName).WithRule("required")
}

// NewFieldFormatError creates an error for fields that don't match expected format.
func NewFieldFormatError(fieldName string, provided any, expected string) *ValidationError {
	return NewValidationError(
		nil,
		ErrorCodeInvalidInput,
		"field value does not match expected format",
	).WithField(fieldName).WithRule("format").WithProvided(provided).WithExpected(expected)
}

// NewFieldRangeError creates an error for fields that are outside acceptable ranges.
func NewFieldRangeError(fieldName string, provided any, min, max any) *ValidationError {
	return NewValidationError(
		nil,
		ErrorCodeInvalidInput,
		"field value is outside acceptable range",
	).WithField(fieldName).
		WithRule("range").
		WithProvided(provided).
		WithDetail("minValue", min).
		WithDetail("maxValue", max)
}

// NewConfigurationValidationError creates an error for invalid configuration objects.
func NewConfigurationValidationError(field string, issue string) *ValidationError {
	return NewValidationError(
		nil,
		ErrorCodeInvalidInput,
		"configuration validation failed",
	).WithField(field).
		WithRule("configuration_integrity").
		WithDetail("validationIssue", issue)
}
