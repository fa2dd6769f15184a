package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"validation", Validationf("bad input"), IsValidation},
		{"conflict", Conflictf("already taken"), IsConflict},
		{"not found", NotFoundf("missing"), IsNotFound},
		{"server", Serverf("invariant broken"), IsServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.pred(tt.err) {
				t.Errorf("predicate rejected %v", tt.err)
			}
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	inner := Conflictf("slot taken")
	wrapped := fmt.Errorf("selecting slot: %w", inner)

	if !IsConflict(wrapped) {
		t.Error("IsConflict failed on a wrapped error")
	}
	if IsValidation(wrapped) {
		t.Error("IsValidation matched a conflict error")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeServer, cause, "could not advance draft")

	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
	if CodeOf(err) != CodeServer {
		t.Errorf("CodeOf = %s, want SERVER", CodeOf(err))
	}
}

func TestCodeOfDefaultsToServer(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != CodeServer {
		t.Errorf("CodeOf(plain) = %s, want SERVER", got)
	}
}
