package orchestrator

import (
	"github.com/KBesada24/ai-code-sentinel/models"
)

// Phase is the coarse position of a session in the review lifecycle
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseFailure Phase = "failure"
)

// State is an immutable snapshot of one session.
// Result and Error are never both set, and Loading is true only in PhaseLoading.
type State struct {
	Code       string                   `json:"code"`
	Language   string                   `json:"language"`
	Result     *models.CodeReviewResult `json:"result,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Loading    bool                     `json:"loading"`
	Phase      Phase                    `json:"phase"`
	Generation uint64                   `json:"generation"`
}

// InitialState returns a fresh session state
func InitialState(code, language string) State {
	if language == "" {
		language = models.DefaultLanguage
	}
	return State{
		Code:     code,
		Language: language,
		Phase:    PhaseIdle,
	}
}

// Action is an input to Reduce
type Action interface {
	isAction()
}

// EditCode replaces the editor contents
type EditCode struct{ Code string }

// SelectLanguage replaces the selected language
type SelectLanguage struct{ Language string }

// StartReview begins a new run
type StartReview struct{}

// ReviewSucceeded settles the run with the given generation
type ReviewSucceeded struct {
	Generation uint64
	Result     *models.CodeReviewResult
}

// ReviewFailedAction settles the run with the given generation as a failure
type ReviewFailedAction struct {
	Generation uint64
	Err        *ReviewFailed
}

// ClearAll empties the editor and drops any result or error
type ClearAll struct{}

func (EditCode) isAction()           {}
func (SelectLanguage) isAction()     {}
func (StartReview) isAction()        {}
func (ReviewSucceeded) isAction()    {}
func (ReviewFailedAction) isAction() {}
func (ClearAll) isAction()           {}

// Reduce applies action to s and returns the next state. It never mutates s.
// StartReview is assumed to have passed CanStart; Reduce does not re-check it.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case EditCode:
		s.Code = a.Code

	case SelectLanguage:
		s.Language = a.Language

	case StartReview:
		s.Result = nil
		s.Error = ""
		s.Loading = true
		s.Phase = PhaseLoading
		s.Generation++

	case ReviewSucceeded:
		if !s.Loading || a.Generation != s.Generation {
			return s
		}
		s.Result = a.Result
		s.Error = ""
		s.Loading = false
		s.Phase = PhaseSuccess

	case ReviewFailedAction:
		if !s.Loading || a.Generation != s.Generation {
			return s
		}
		s.Result = nil
		s.Error = a.Err.Display()
		s.Loading = false
		s.Phase = PhaseFailure

	case ClearAll:
		s.Code = ""
		s.Result = nil
		s.Error = ""
		if !s.Loading {
			s.Phase = PhaseIdle
		}
	}

	return s
}
