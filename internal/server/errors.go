// Package server provides the HTTP REST API for prospect research.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/analysis"
)

// Client-facing messages.
const (
	msgQueryRequired      = "Query parameter is required"
	msgSearchUnavailable  = "Search service temporarily unavailable"
	msgIDRequired         = "Prospect ID is required"
	msgSearchDataNotFound = "Search data not found. Please search first."
	msgLLMNotConfigured   = "AI service not configured. Please check API keys."
	msgLLMRateLimited     = "AI service temporarily unavailable. Please try again later."
	msgLLMUnavailable     = "AI service is recovering from errors. Please try again shortly."
	msgAnalysisFailed     = "Analysis failed. Please try again."
	msgInternal           = "Internal server error"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a missing resource
type ErrNotFound struct {
	Resource string
	Message  string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ErrServiceUnavailable indicates a dependency that cannot serve the request
type ErrServiceUnavailable struct {
	Service string
	Message string
	Cause   error
}

func (e *ErrServiceUnavailable) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Service, e.Cause)
	}
	return fmt.Sprintf("%s unavailable", e.Service)
}

func (e *ErrServiceUnavailable) Unwrap() error {
	return e.Cause
}

// ErrRateLimited indicates a dependency rejected the request for quota or rate reasons
type ErrRateLimited struct {
	Service string
	Message string
	Cause   error
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("%s rate limited: %v", e.Service, e.Cause)
}

func (e *ErrRateLimited) Unwrap() error {
	return e.Cause
}

// ErrInternal wraps an unexpected failure with the message shown to the client
type ErrInternal struct {
	Message string
	Cause   error
}

func (e *ErrInternal) Error() string {
	return fmt.Sprintf("internal error: %v", e.Cause)
}

func (e *ErrInternal) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrValidation:
		return http.StatusBadRequest
	case *ErrNotFound:
		return http.StatusNotFound
	case *ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case *ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to API clients for an error
func PublicMessage(err error) string {
	var msg string
	switch e := err.(type) {
	case *ErrValidation:
		msg = e.Message
	case *ErrNotFound:
		msg = e.Message
	case *ErrServiceUnavailable:
		msg = e.Message
	case *ErrRateLimited:
		msg = e.Message
	case *ErrInternal:
		msg = e.Message
	}
	if msg == "" {
		return msgInternal
	}
	return msg
}

// analysisError maps analyzer failures onto the typed HTTP errors.
func analysisError(err error) error {
	switch {
	case errors.Is(err, analysis.ErrNoSearchData):
		return &ErrNotFound{Resource: "search data", Message: msgSearchDataNotFound}
	case errors.Is(err, analysis.ErrLLMNotConfigured):
		return &ErrServiceUnavailable{Service: "llm", Message: msgLLMNotConfigured, Cause: err}
	case errors.Is(err, analysis.ErrLLMUnavailable):
		return &ErrServiceUnavailable{Service: "llm", Message: msgLLMUnavailable, Cause: err}
	case errors.Is(err, analysis.ErrQuotaExceeded):
		return &ErrRateLimited{Service: "llm", Message: msgLLMRateLimited, Cause: err}
	default:
		return &ErrInternal{Message: msgAnalysisFailed, Cause: err}
	}
}
