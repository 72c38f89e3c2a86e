package models

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CodeRating is the overall grade given to a piece of code
type CodeRating string

const (
	RatingBetter CodeRating = "Better"
	RatingGood   CodeRating = "Good"
	RatingNormal CodeRating = "Normal"
	RatingBad    CodeRating = "Bad"
)

// Ratings lists every valid rating, best first
var Ratings = []CodeRating{RatingBetter, RatingGood, RatingNormal, RatingBad}

// Valid reports whether r is one of the four rating literals
func (r CodeRating) Valid() bool {
	for _, v := range Ratings {
		if r == v {
			return true
		}
	}
	return false
}

// IssueType classifies a single review finding
type IssueType string

const (
	IssueBug         IssueType = "bug"
	IssueStyle       IssueType = "style"
	IssuePerformance IssueType = "performance"
	IssueSecurity    IssueType = "security"
	IssueReadability IssueType = "readability"
	IssueOther       IssueType = "other"
)

// IssueTypes lists every valid issue type
var IssueTypes = []IssueType{IssueBug, IssueStyle, IssuePerformance, IssueSecurity, IssueReadability, IssueOther}

// Valid reports whether t is a known issue type
func (t IssueType) Valid() bool {
	for _, v := range IssueTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ReviewRequest is the input of one review invocation
type ReviewRequest struct {
	Code     string `json:"code" validate:"notblank"`
	Language string `json:"language" validate:"required,language"`
}

// CodeIssue is one finding reported by the reviewer
type CodeIssue struct {
	Title       string    `json:"title" validate:"notblank"`
	Type        IssueType `json:"type" validate:"required,issuetype"`
	Description string    `json:"description"`
	FixExample  string    `json:"fixExample"`
}

// CodeReviewResult is the structured outcome of one successful review.
// Values are replaced wholesale, never mutated after creation.
type CodeReviewResult struct {
	Rating            CodeRating  `json:"rating" validate:"required,rating"`
	Summary           string      `json:"summary" validate:"notblank"`
	Explanation       string      `json:"explanation"`
	Issues            []CodeIssue `json:"issues" validate:"dive"`
	Suggestions       []string    `json:"suggestions"`
	ImprovedCode      string      `json:"improvedCode"`
	AIUsagePercentage int         `json:"aiUsagePercentage" validate:"min=0,max=100"`
	OriginAnalysis    string      `json:"originAnalysis"`
}

// HumanPercentage is the complementary human-authorship share
func (r *CodeReviewResult) HumanPercentage() int {
	return 100 - ClampPercentage(r.AIUsagePercentage)
}

// ProvenanceVerdict labels the AI-authorship estimate
func (r *CodeReviewResult) ProvenanceVerdict() string {
	p := ClampPercentage(r.AIUsagePercentage)
	switch {
	case p > 70:
		return "Likely AI"
	case p < 30:
		return "Likely Human"
	default:
		return "Mixed Origin"
	}
}

// ClampPercentage forces p into [0,100]
func ClampPercentage(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// DefaultLanguage is preselected for new sessions
const DefaultLanguage = "JavaScript"

// SampleCode seeds the editor of a new session
const SampleCode = "function calculateSum(a, b) {\n  var result = a + b\n  return result\n}"

// SupportedLanguages is the fixed list offered by the language selector
var SupportedLanguages = []string{
	"JavaScript",
	"TypeScript",
	"Python",
	"Java",
	"Go",
	"Rust",
	"C++",
	"C#",
	"PHP",
	"Ruby",
	"Swift",
	"Kotlin",
	"SQL",
	"HTML/CSS",
}

// IsSupportedLanguage reports whether label is in SupportedLanguages
func IsSupportedLanguage(label string) bool {
	for _, l := range SupportedLanguages {
		if l == label {
			return true
		}
	}
	return false
}

// NewValidator returns a validator that reports JSON field names and knows
// the "language", "notblank", "rating" and "issuetype" tags.
func NewValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		return IsSupportedLanguage(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("rating", func(fl validator.FieldLevel) bool {
		return CodeRating(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("issuetype", func(fl validator.FieldLevel) bool {
		return IssueType(fl.Field().String()).Valid()
	})

	return v
}
