package engineerr

import (
	"errors"
	"testing"
)

func TestNewEngineError(t *testing.T) {
	tests := []struct {
		name       string
		kind       Kind
		message    string
		wantKind   Kind
		wantMsg    string
	}{
		{
			name:     "no route",
			kind:     NoRoute,
			message:  "no admissible route for destination C",
			wantKind: NoRoute,
			wantMsg:  "no admissible route for destination C",
		},
		{
			name:     "deadline expired",
			kind:     DeadlineExpired,
			message:  "deadline 2 <= now 5",
			wantKind: DeadlineExpired,
			wantMsg:  "deadline 2 <= now 5",
		},
		{
			name:     "route mismatch",
			kind:     RouteMismatch,
			message:  "self not found in path",
			wantKind: RouteMismatch,
			wantMsg:  "self not found in path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.kind, tt.message)
			if err.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", err.Kind, tt.wantKind)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %v, want %v", err.Message, tt.wantMsg)
			}
			if err.Err != nil {
				t.Errorf("Err = %v, want nil", err.Err)
			}
		})
	}
}

func TestWrapEngineError(t *testing.T) {
	cause := errors.New("read: connection reset")
	err := Wrap(cause, IoError, "transport send failed")

	if err.Kind != IoError {
		t.Errorf("Kind = %v, want %v", err.Kind, IoError)
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the wrapped cause")
	}
	if err.Error() == "" {
		t.Error("Error() should not be empty")
	}
}

func TestIs(t *testing.T) {
	err := New(ContactClosed, "contact ended before send window")
	if !Is(err, ContactClosed) {
		t.Error("Is should match the error's own kind")
	}
	if Is(err, NoRoute) {
		t.Error("Is should not match a different kind")
	}
	if Is(errors.New("plain error"), ContactClosed) {
		t.Error("Is should return false for non-engine errors")
	}
}
