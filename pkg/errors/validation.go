package errors

import (
	"fmt"
	"strings"
)

// ValidationErrorData contains structured data for tool input validation errors
type ValidationErrorData struct {
	Field      string      `json:"field"`
	Value      interface{} `json:"value,omitempty"`
	Constraint string      `json:"constraint"`
}

// InvalidParameter creates a BAD_REQUEST error for a tool argument that
// violates a constraint.
func InvalidParameter(field string, value interface{}, constraint string) *ToolError {
	return Newf(CodeBadRequest, "Invalid parameter '%s': %s", field, constraint).
		WithDetails(&ValidationErrorData{
			Field:      field,
			Value:      value,
			Constraint: constraint,
		})
}

// MissingParameter creates an error for missing required parameters
func MissingParameter(field string) *ToolError {
	return Newf(CodeBadRequest, "Missing required parameter: %s", field).
		WithDetails(&ValidationErrorData{
			Field:      field,
			Constraint: "required",
		})
}

// InvalidEnum creates an error for values outside an allowed set
func InvalidEnum(field string, value interface{}, valid []string) *ToolError {
	return InvalidParameter(field, value, fmt.Sprintf("must be one of %s", strings.Join(valid, ", ")))
}

// OutOfRange creates an error for numbers outside [min, max]
func OutOfRange(field string, value, lo, hi int) *ToolError {
	return InvalidParameter(field, value, fmt.Sprintf("must be between %d and %d", lo, hi))
}

// CombineValidationErrors combines multiple validation errors into a single error
func CombineValidationErrors(errs []*ToolError) *ToolError {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	messages := make([]string, len(errs))
	details := make([]interface{}, len(errs))
	for i, err := range errs {
		messages[i] = err.Message
		details[i] = err.Details
	}

	return New(CodeBadRequest, "Multiple validation errors: "+strings.Join(messages, "; ")).
		WithDetails(map[string]interface{}{
			"errors": details,
			"count":  len(errs),
		})
}
