package services

import (
	"errors"
	"testing"

	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReviewJSON = `{
  "rating": "Good",
  "summary": "Readable and correct.",
  "explanation": "Uses **var** where const would do.",
  "issues": [
    {"title": "Prefer const", "type": "style", "description": "var is function scoped", "fixExample": "const result = a + b"}
  ],
  "suggestions": ["Add semicolons"],
  "improvedCode": "function calculateSum(a, b) {\n  return a + b;\n}",
  "aiUsagePercentage": 20,
  "originAnalysis": "Missing semicolons suggest a human."
}`

func TestDecode_ValidObject(t *testing.T) {
	result, err := NewResultDecoder().Decode(validReviewJSON)
	require.NoError(t, err)

	assert.Equal(t, models.RatingGood, result.Rating)
	assert.Equal(t, 20, result.AIUsagePercentage)
	assert.Equal(t, 80, result.HumanPercentage())
	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.IssueStyle, result.Issues[0].Type)
	assert.Equal(t, []string{"Add semicolons"}, result.Suggestions)
}

func TestDecode_StripsFencesAndProse(t *testing.T) {
	inputs := map[string]string{
		"json fence":      "```json\n" + validReviewJSON + "\n```",
		"bare fence":      "```\n" + validReviewJSON + "\n```",
		"with prose":      "Here is the review:\n" + validReviewJSON + "\nHope this helps.",
		"surrounding":     "  \n" + validReviewJSON + "\n\n",
		"trailing braces": validReviewJSON + "\nLet me know if {anything} is unclear.",
		"leading braces":  "Review of {your} code:\n" + validReviewJSON,
	}

	decoder := NewResultDecoder()
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			result, err := decoder.Decode(input)
			require.NoError(t, err)
			assert.Equal(t, models.RatingGood, result.Rating)
		})
	}
}

func TestDecode_NormalizesCasing(t *testing.T) {
	input := `{"rating":"better","summary":"ok","issues":[{"title":"t","type":"SECURITY"}],"aiUsagePercentage":90}`

	result, err := NewResultDecoder().Decode(input)
	require.NoError(t, err)

	assert.Equal(t, models.RatingBetter, result.Rating)
	assert.Equal(t, models.IssueSecurity, result.Issues[0].Type)
	assert.Equal(t, "Likely AI", result.ProvenanceVerdict())
}

func TestDecode_DefaultsMissingCollections(t *testing.T) {
	input := `{"rating":"Normal","summary":"fine","issues":null,"aiUsagePercentage":50}`

	result, err := NewResultDecoder().Decode(input)
	require.NoError(t, err)

	assert.NotNil(t, result.Issues)
	assert.Empty(t, result.Issues)
	assert.NotNil(t, result.Suggestions)
	assert.Empty(t, result.Suggestions)
}

func TestDecode_PercentageHandling(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int
	}{
		{"integer", `42`, 42},
		{"fraction rounds", `42.6`, 43},
		{"quoted number", `"15"`, 15},
		{"missing", `null`, 0},
	}

	decoder := NewResultDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := `{"rating":"Good","summary":"s","aiUsagePercentage":` + tt.value + `}`
			result, err := decoder.Decode(input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.AIUsagePercentage)
		})
	}
}

func TestDecode_RejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "I could not review this code."},
		{"broken json", `{"rating": "Good", "summary": }`},
		{"unknown rating", `{"rating":"Excellent","summary":"s","aiUsagePercentage":10}`},
		{"missing rating", `{"summary":"s","aiUsagePercentage":10}`},
		{"missing summary", `{"rating":"Good","aiUsagePercentage":10}`},
		{"percentage too high", `{"rating":"Good","summary":"s","aiUsagePercentage":150}`},
		{"percentage negative", `{"rating":"Good","summary":"s","aiUsagePercentage":-3}`},
		{"percentage not numeric", `{"rating":"Good","summary":"s","aiUsagePercentage":"lots"}`},
		{"unknown issue type", `{"rating":"Good","summary":"s","issues":[{"title":"t","type":"typo"}]}`},
	}

	decoder := NewResultDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := decoder.Decode(tt.input)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
		})
	}
}

func TestDecode_ViolationNamesJSONField(t *testing.T) {
	_, err := NewResultDecoder().Decode(`{"rating":"Good","summary":"s","aiUsagePercentage":101}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aiUsagePercentage")
}

func TestDecode_UnknownRatingListsAllowedValues(t *testing.T) {
	_, err := NewResultDecoder().Decode(`{"rating":"Excellent","summary":"s","aiUsagePercentage":10}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rating: Value must be one of: Better Good Normal Bad")
}
