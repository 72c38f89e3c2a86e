package render

import (
	"strings"

	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/KBesada24/ai-code-sentinel/orchestrator"
)

// IssueView is one issue card
type IssueView struct {
	Title           string `json:"title"`
	Type            string `json:"type"`
	Tone            string `json:"tone"`
	DescriptionHTML string `json:"descriptionHtml"`
	FixExample      string `json:"fixExample,omitempty"`
}

// ResultView is the result panel for one CodeReviewResult
type ResultView struct {
	Rating          string      `json:"rating"`
	RatingTone      string      `json:"ratingTone"`
	Summary         string      `json:"summary"`
	ExplanationHTML string      `json:"explanationHtml"`
	Issues          []IssueView `json:"issues"`
	Suggestions     []string    `json:"suggestions"`
	ImprovedCode    string      `json:"improvedCode"`
	AIPercentage    int         `json:"aiPercentage"`
	HumanPercentage int         `json:"humanPercentage"`
	Verdict         string      `json:"verdict"`
	VerdictTone     string      `json:"verdictTone"`
	OriginAnalysis  string      `json:"originAnalysis"`
}

// SessionView is everything the page needs to draw one session
type SessionView struct {
	ID             string      `json:"id"`
	Code           string      `json:"code"`
	Language       string      `json:"language"`
	Phase          string      `json:"phase"`
	Loading        bool        `json:"loading"`
	Error          string      `json:"error,omitempty"`
	Result         *ResultView `json:"result,omitempty"`
	CanReview      bool        `json:"canReview"`
	EditorDisabled bool        `json:"editorDisabled"`
	Generation     uint64      `json:"generation"`
}

var ratingTones = map[models.CodeRating]string{
	models.RatingBetter: "emerald",
	models.RatingGood:   "sky",
	models.RatingNormal: "amber",
	models.RatingBad:    "rose",
}

var issueTones = map[models.IssueType]string{
	models.IssueBug:         "red",
	models.IssueSecurity:    "orange",
	models.IssuePerformance: "purple",
	models.IssueReadability: "blue",
}

// BuildResultView maps a result to its panel; nil in, nil out
func BuildResultView(r *models.CodeReviewResult) *ResultView {
	if r == nil {
		return nil
	}

	ai := models.ClampPercentage(r.AIUsagePercentage)
	view := &ResultView{
		Rating:          string(r.Rating),
		RatingTone:      ratingTones[r.Rating],
		Summary:         r.Summary,
		ExplanationHTML: Markdown(r.Explanation),
		Issues:          make([]IssueView, 0, len(r.Issues)),
		Suggestions:     r.Suggestions,
		ImprovedCode:    r.ImprovedCode,
		AIPercentage:    ai,
		HumanPercentage: r.HumanPercentage(),
		Verdict:         r.ProvenanceVerdict(),
		VerdictTone:     "human",
		OriginAnalysis:  r.OriginAnalysis,
	}
	if ai > 50 {
		view.VerdictTone = "ai"
	}
	if view.Suggestions == nil {
		view.Suggestions = []string{}
	}

	for _, issue := range r.Issues {
		tone, ok := issueTones[issue.Type]
		if !ok {
			tone = "slate"
		}
		view.Issues = append(view.Issues, IssueView{
			Title:           issue.Title,
			Type:            string(issue.Type),
			Tone:            tone,
			DescriptionHTML: Markdown(issue.Description),
			FixExample:      issue.FixExample,
		})
	}

	return view
}

// BuildSessionView maps an orchestrator state to its page view
func BuildSessionView(id string, s orchestrator.State) SessionView {
	return SessionView{
		ID:             id,
		Code:           s.Code,
		Language:       s.Language,
		Phase:          string(s.Phase),
		Loading:        s.Loading,
		Error:          s.Error,
		Result:         BuildResultView(s.Result),
		CanReview:      !s.Loading && strings.TrimSpace(s.Code) != "",
		EditorDisabled: s.Loading,
		Generation:     s.Generation,
	}
}
