// Package llm contains the provider gateway: one Generator per text-completion
// backend, each encapsulating its own fallback and continuation behavior.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Options tunes a single generation call.
type Options struct {
	// MaxTokens caps the completion size; providers apply their own default
	// when zero.
	MaxTokens int
	// Temperature defaults to 0.3 when zero, matching the conservative
	// rewrite tone the evaluation drafts need.
	Temperature float64
	// JSONResponse asks the provider for a JSON body when it supports
	// response typing (Gemini responseMimeType).
	JSONResponse bool
	// Continue enables the continuation protocol: when the first response is
	// cut off by token budget or looks incomplete, follow-up calls extend it.
	Continue bool
	// MinChars is the completeness floor used by the continuation heuristic.
	MinChars int
}

// Generator is one text-completion backend.
//
// Generate returns ("", nil) when the provider has no credential configured or
// produced empty output, so the orchestrator can move on without treating it
// as a failure. Hard failures (non-recoverable HTTP errors, transport faults)
// return a non-nil error.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// ErrEmptyOutput marks the terminal "every provider produced nothing" state.
// It is distinct from transport failure so handlers can surface a dedicated
// operator message.
var ErrEmptyOutput = errors.New("llm: empty output from all providers")

// NotFoundError reports that every (model × API version) pair was rejected
// with 404. The last 404 body is kept for diagnostics.
type NotFoundError struct {
	Provider string
	Last404  string
}

func (e *NotFoundError) Error() string {
	last := e.Last404
	if last == "" {
		last = "none"
	}
	return fmt.Sprintf("%s: 모델을 찾지 못했습니다. 모델 설정을 확인하세요. 마지막 404: %s", e.Provider, last)
}

// StatusError reports a hard, non-404 provider failure.
type StatusError struct {
	Provider   string
	Model      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API 요청 실패 (%s): %d %s", e.Provider, e.Model, e.StatusCode, e.Body)
}
