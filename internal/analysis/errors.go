package analysis

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/llm"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/resilience"
)

var (
	// ErrLLMNotConfigured is returned when no model client is available.
	ErrLLMNotConfigured = eris.New("AI service not configured")
	// ErrQuotaExceeded is returned when the model provider rejects calls for quota or rate reasons.
	ErrQuotaExceeded = eris.New("AI service quota exceeded")
	// ErrLLMUnavailable is returned while the model provider's circuit breaker is open.
	ErrLLMUnavailable = eris.New("AI service temporarily unavailable")
	// ErrNoSearchData is returned when a request carries neither comprehensive nor basic search data.
	ErrNoSearchData = eris.New("no search data to analyze")
)

// StageError represents a model call that failed during one analysis stage.
type StageError struct {
	Stage string
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// classify maps provider errors onto the package sentinels so callers can match them with
// errors.Is.
func classify(stage string, err error) error {
	switch {
	case eris.Is(err, llm.ErrMissingAPIKey):
		err = eris.Wrap(ErrLLMNotConfigured, err.Error())
	case eris.Is(err, resilience.ErrCircuitOpen):
		err = eris.Wrap(ErrLLMUnavailable, err.Error())
	case isQuotaError(err):
		err = eris.Wrap(ErrQuotaExceeded, err.Error())
	}
	return &StageError{Stage: stage, Cause: err}
}

func isQuotaError(err error) bool {
	if llm.IsQuotaError(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "resource exhausted")
}
