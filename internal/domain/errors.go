package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrNotFound    = errors.New("not found")
	ErrNoRecipe    = errors.New("no recipe to guide")
	ErrStoreClosed = errors.New("store is closed")
)

// ValidationError reports a preference field that failed validation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// SafetyRejection reports a message blocked by the topic guard.
type SafetyRejection struct {
	Rule   string
	Term   string
	Reason string
}

func (e *SafetyRejection) Error() string {
	return e.Reason
}

// GenerationFailure wraps a failed or timed-out recipe generation.
type GenerationFailure struct {
	Cause error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("recipe generation failed: %v", e.Cause)
}

func (e *GenerationFailure) Unwrap() error { return e.Cause }

// PersistenceFailure wraps a failed store operation.
type PersistenceFailure struct {
	Op    string
	Cause error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Cause)
}

func (e *PersistenceFailure) Unwrap() error { return e.Cause }

// FormatError reports user input that does not match an expected shape.
type FormatError struct {
	Input string
	Msg   string
}

func (e *FormatError) Error() string {
	return e.Msg
}
