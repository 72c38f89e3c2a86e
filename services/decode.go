package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/go-playground/validator/v10"
)

// ErrMalformedResponse is wrapped by every decode failure
var ErrMalformedResponse = errors.New("malformed review response")

// rawReview mirrors CodeReviewResult with lenient types for model output
type rawReview struct {
	Rating            string      `json:"rating"`
	Summary           string      `json:"summary"`
	Explanation       string      `json:"explanation"`
	Issues            []rawIssue  `json:"issues"`
	Suggestions       []string    `json:"suggestions"`
	ImprovedCode      string      `json:"improvedCode"`
	AIUsagePercentage json.Number `json:"aiUsagePercentage"`
	OriginAnalysis    string      `json:"originAnalysis"`
}

type rawIssue struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Description string `json:"description"`
	FixExample  string `json:"fixExample"`
}

// ResultDecoder turns raw model text into a checked CodeReviewResult
type ResultDecoder struct {
	validate *validator.Validate
}

// NewResultDecoder creates a decoder with the shared model validator
func NewResultDecoder() *ResultDecoder {
	return &ResultDecoder{validate: models.NewValidator()}
}

// Decode parses content, normalizes it and checks the result schema
func (d *ResultDecoder) Decode(content string) (*models.CodeReviewResult, error) {
	raw, err := decodeFirstObject(stripFences(content))
	if err != nil {
		return nil, err
	}

	percentage, err := parsePercentage(raw.AIUsagePercentage)
	if err != nil {
		return nil, err
	}

	result := &models.CodeReviewResult{
		Rating:            normalizeRating(raw.Rating),
		Summary:           strings.TrimSpace(raw.Summary),
		Explanation:       raw.Explanation,
		Issues:            make([]models.CodeIssue, 0, len(raw.Issues)),
		Suggestions:       raw.Suggestions,
		ImprovedCode:      raw.ImprovedCode,
		AIUsagePercentage: percentage,
		OriginAnalysis:    raw.OriginAnalysis,
	}
	if result.Suggestions == nil {
		result.Suggestions = []string{}
	}
	for _, ri := range raw.Issues {
		result.Issues = append(result.Issues, models.CodeIssue{
			Title:       strings.TrimSpace(ri.Title),
			Type:        models.IssueType(strings.ToLower(strings.TrimSpace(ri.Type))),
			Description: ri.Description,
			FixExample:  ri.FixExample,
		})
	}

	if err := d.validate.Struct(result); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, describeViolations(err))
	}

	return result, nil
}

// stripFences removes a surrounding markdown code fence
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}

// decodeFirstObject decodes the first JSON object in content, skipping
// braces in leading prose and ignoring anything after the object
func decodeFirstObject(content string) (*rawReview, error) {
	var firstErr error
	for i := 0; i < len(content); i++ {
		if content[i] != '{' {
			continue
		}

		var raw rawReview
		if err := json.NewDecoder(strings.NewReader(content[i:])).Decode(&raw); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return &raw, nil
	}

	if firstErr == nil {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}
	return nil, fmt.Errorf("%w: invalid JSON object: %v", ErrMalformedResponse, firstErr)
}

func parsePercentage(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: aiUsagePercentage is not a number", ErrMalformedResponse)
	}
	return int(math.Round(f)), nil
}

func normalizeRating(rating string) models.CodeRating {
	trimmed := strings.TrimSpace(rating)
	for _, r := range models.Ratings {
		if strings.EqualFold(trimmed, string(r)) {
			return r
		}
	}
	return models.CodeRating(trimmed)
}

func describeViolations(err error) string {
	details := utils.ValidationDetails(err)
	parts := make([]string, 0, len(details))
	for field, msg := range details {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
