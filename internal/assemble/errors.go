// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"errors"
	"fmt"

	"github.com/pdiddy/assembly-engine/pkg/types"
)

// Sentinel errors for the assembly failure taxonomy. Callers match them
// with errors.Is; the concrete types below carry the retry context.
var (
	// ErrPromptMissing is returned when no prompt component could be
	// selected. A prompt is always mandatory, in every mode.
	ErrPromptMissing = errors.New("prompt component missing")

	// ErrLowCompatibility is returned when the compatibility score falls
	// below the threshold under strict create.
	ErrLowCompatibility = errors.New("component compatibility below threshold")

	// ErrNotFound marks an explicit component id that does not exist or
	// is not readable by the caller.
	ErrNotFound = errors.New("component not found or not accessible")
)

// ValidationError rejects a malformed request before any retrieval runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// PromptMissingError is the fatal "no prompt" failure. It carries the
// candidate list that was considered so the caller can retry with an
// explicit id.
type PromptMissingError struct {
	Candidates []types.Candidate
}

func (e *PromptMissingError) Error() string {
	return fmt.Sprintf("no prompt component found (%d candidates considered)", len(e.Candidates))
}

func (e *PromptMissingError) Is(target error) bool { return target == ErrPromptMissing }

// NotFoundError reports an explicit id that failed validation.
type NotFoundError struct {
	Role types.Role
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s component %d not found or not accessible", e.Role, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// LowCompatibilityError is the fatal strict-create compatibility failure.
type LowCompatibilityError struct {
	Score     float64
	Threshold float64
	Issues    []string
}

func (e *LowCompatibilityError) Error() string {
	return fmt.Sprintf("compatibility %.3f below threshold %.3f", e.Score, e.Threshold)
}

func (e *LowCompatibilityError) Is(target error) bool { return target == ErrLowCompatibility }
