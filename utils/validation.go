package utils

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationDetails flattens validator errors into field -> message pairs
func ValidationDetails(err error) map[string]string {
	details := make(map[string]string)

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		details["_body"] = err.Error()
		return details
	}

	for _, fieldErr := range validationErrors {
		details[jsonFieldName(fieldErr)] = validationMessage(fieldErr)
	}
	return details
}

// jsonFieldName drops the root struct from the namespace, e.g.
// "CodeReviewResult.issues[0].type" becomes "issues[0].type"
func jsonFieldName(fieldErr validator.FieldError) string {
	ns := fieldErr.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fieldErr.Field()
}

func validationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required", "notblank":
		return "This field is required"
	case "min":
		return "Value is too short or too small"
	case "max":
		return "Value is too long or too large"
	case "oneof":
		return "Value must be one of: " + err.Param()
	case "language":
		return "Unsupported language"
	case "rating":
		return "Value must be one of: Better Good Normal Bad"
	case "issuetype":
		return "Value must be one of: bug style performance security readability other"
	default:
		return "Invalid value"
	}
}

// IsValidJSON checks if a string is valid JSON
func IsValidJSON(str string) bool {
	var js json.RawMessage
	return json.Unmarshal([]byte(str), &js) == nil
}

// JSONMarshal is the JSON encoder handed to Fiber
func JSONMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// JSONUnmarshal is the JSON decoder handed to Fiber
func JSONUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
