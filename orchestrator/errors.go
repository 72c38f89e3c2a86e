package orchestrator

import (
	"errors"
	"strings"
)

// FallbackFailureMessage is shown when a failure carries no message
const FallbackFailureMessage = "Analysis failed: Check your internet and try again."

var (
	// ErrReviewInFlight rejects a run while another one is pending
	ErrReviewInFlight = errors.New("a review is already in progress")
	// ErrNothingToReview rejects a run on blank code
	ErrNothingToReview = errors.New("there is no code to review")
)

// ReviewFailed is the single failure kind a review run can settle with
type ReviewFailed struct {
	Message string
}

// Error implements the error interface
func (e *ReviewFailed) Error() string {
	return e.Display()
}

// Display is the user-facing text of the failure
func (e *ReviewFailed) Display() string {
	if e == nil || strings.TrimSpace(e.Message) == "" {
		return FallbackFailureMessage
	}
	return "Analysis failed: " + e.Message
}

// NewReviewFailed collapses any service error into a ReviewFailed
func NewReviewFailed(err error) *ReviewFailed {
	if err == nil {
		return &ReviewFailed{}
	}
	var rf *ReviewFailed
	if errors.As(err, &rf) {
		return rf
	}
	return &ReviewFailed{Message: err.Error()}
}
