package services

import (
	"fmt"
	"strings"
)

const reviewSystemPrompt = `You are a senior code reviewer and an expert in telling human-written code from AI-generated code.

Review the code you are given and respond with ONLY a JSON object. No markdown fences, no preamble.

The object must have exactly this structure:
{
  "rating": "Better|Good|Normal|Bad",
  "summary": "One or two sentences on overall quality",
  "explanation": "Detailed reasoning, markdown allowed",
  "issues": [
    {
      "title": "Short descriptive title",
      "type": "bug|style|performance|security|readability|other",
      "description": "What is wrong and why it matters",
      "fixExample": "Corrected code for this issue, or an empty string"
    }
  ],
  "suggestions": ["General improvement"],
  "improvedCode": "The full code rewritten with every fix applied",
  "aiUsagePercentage": 0,
  "originAnalysis": "Which signals point to AI or human authorship"
}

Rules:
1. "rating" must be exactly one of Better, Good, Normal, Bad.
2. "aiUsagePercentage" is an integer from 0 to 100 estimating how likely the code was AI-generated.
3. Use empty arrays when there are no issues or suggestions.
4. Keep "improvedCode" in the same language as the input.`

// ReviewSystemPrompt returns the instruction that pins the response schema
func ReviewSystemPrompt() string {
	return reviewSystemPrompt
}

// BuildReviewPrompt constructs the user prompt for one review
func BuildReviewPrompt(code, language string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review the following %s code.\n\n", language)
	fmt.Fprintf(&b, "```%s\n", fenceTag(language))
	b.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")

	return b.String()
}

// fenceTag turns a display label into a markdown info string, e.g. "C++" -> "cpp"
func fenceTag(language string) string {
	switch language {
	case "C++":
		return "cpp"
	case "C#":
		return "csharp"
	case "HTML/CSS":
		return "html"
	default:
		return strings.ToLower(language)
	}
}
