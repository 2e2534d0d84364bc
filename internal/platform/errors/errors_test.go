package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := New(CodeExperimentInvalidID, "id must match the pattern YYYYMMDD_experiment_id")
	wrapped := fmt.Errorf("with experiment: %w", err)

	if !stderrors.Is(wrapped, New(CodeExperimentInvalidID, "other message")) {
		t.Fatal("expected wrapped error to match by code")
	}
	if stderrors.Is(wrapped, New(CodeExperimentMissingVariants, "")) {
		t.Fatal("expected different code not to match")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("boom")
	err := Wrap(CodeExperimentVariantUnallocated, "allocate variant", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if got, want := err.Error(), "allocate variant: boom"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("outer: %w", WithMetadata(CodeExperimentExclusionConflict, "conflict", map[string]string{"Field": "excluded_groups"}))
	if got := GetCode(err); got != CodeExperimentExclusionConflict {
		t.Fatalf("GetCode() = %q, want %q", got, CodeExperimentExclusionConflict)
	}
	if got := GetCode(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("GetCode() = %q, want %q", got, CodeUnknown)
	}
}
