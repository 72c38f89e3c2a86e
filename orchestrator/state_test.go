package orchestrator

import (
	"testing"

	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/stretchr/testify/assert"
)

func TestReduce_ClearAllFromEveryPhase(t *testing.T) {
	result := &models.CodeReviewResult{Rating: models.RatingBad, Summary: "s"}
	states := []State{
		InitialState("code", "Go"),
		{Code: "a", Language: "Go", Phase: PhaseSuccess, Result: result},
		{Code: "a", Language: "Go", Phase: PhaseFailure, Error: "Analysis failed: x"},
		{Code: "a", Language: "Go", Phase: PhaseLoading, Loading: true, Generation: 3},
	}

	for _, s := range states {
		next := Reduce(s, ClearAll{})
		assert.Equal(t, "", next.Code)
		assert.Nil(t, next.Result)
		assert.Empty(t, next.Error)
		assert.Equal(t, s.Loading, next.Loading)
		assert.Equal(t, s.Language, next.Language)
	}
}

func TestReduce_StaleSettleIsIgnored(t *testing.T) {
	s := Reduce(InitialState("x", "Go"), StartReview{})
	s = Reduce(s, ReviewFailedAction{Generation: s.Generation, Err: &ReviewFailed{Message: "first"}})
	s = Reduce(s, StartReview{})
	assert.Equal(t, uint64(2), s.Generation)

	stale := Reduce(s, ReviewSucceeded{Generation: 1, Result: &models.CodeReviewResult{}})
	assert.Equal(t, s, stale)

	fresh := Reduce(s, ReviewSucceeded{Generation: 2, Result: &models.CodeReviewResult{Summary: "ok"}})
	assert.Equal(t, PhaseSuccess, fresh.Phase)
	assert.Equal(t, "ok", fresh.Result.Summary)
}

func TestReduce_SettleWithoutPendingRunIsIgnored(t *testing.T) {
	s := InitialState("x", "Go")
	next := Reduce(s, ReviewSucceeded{Generation: 0, Result: &models.CodeReviewResult{}})
	assert.Equal(t, s, next)
}

func TestReduce_StartClearsOutcome(t *testing.T) {
	s := State{Code: "x", Language: "Go", Phase: PhaseFailure, Error: "Analysis failed: y"}
	next := Reduce(s, StartReview{})

	assert.True(t, next.Loading)
	assert.Empty(t, next.Error)
	assert.Nil(t, next.Result)
	assert.Equal(t, PhaseLoading, next.Phase)
	assert.Equal(t, "Analysis failed: y", s.Error)
}

func TestInitialState_DefaultsLanguage(t *testing.T) {
	s := InitialState("", "")
	assert.Equal(t, models.DefaultLanguage, s.Language)
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.False(t, s.Loading)
}
