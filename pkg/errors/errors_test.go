package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidBrush, "unknown brush %q", "chalk")

	if err.Code != ErrCodeInvalidBrush {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidBrush)
	}

	if err.Message != `unknown brush "chalk"` {
		t.Errorf("Message = %v", err.Message)
	}

	expected := `INVALID_BRUSH: unknown brush "chalk"`
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeExternalService, cause, "evolve failed")

	if err.Code != ErrCodeExternalService {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeExternalService)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if got := err.Error(); got != "EXTERNAL_SERVICE: evolve failed: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeDeviceAccess, "camera busy"), ErrCodeDeviceAccess, true},
		{"non-matching code", New(ErrCodeDeviceAccess, "camera busy"), ErrCodeModelInit, false},
		{"outermost code wins", Wrap(ErrCodeModelInit, New(ErrCodeDeviceAccess, "inner"), "outer"), ErrCodeModelInit, true},
		{"wrapped with fmt", wrapf(New(ErrCodeDisposal, "buffer")), ErrCodeDisposal, true},
		{"plain error", errors.New("plain"), ErrCodeInvalidInput, false},
		{"nil error", nil, ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func wrapf(err error) error {
	return &wrapped{err}
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "context: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeSnapshot, "encode"), ErrCodeSnapshot},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeDeviceAccess, "microphone permission denied")); got != "microphone permission denied" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestRecoverable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(ErrCodeDeviceAccess, "x"), true},
		{New(ErrCodeDetection, "x"), true},
		{New(ErrCodeExternalService, "x"), true},
		{New(ErrCodeModelInit, "x"), false},
		{New(ErrCodeInternal, "x"), false},
		{errors.New("plain"), true},
	}
	for _, tt := range tests {
		if got := Recoverable(tt.err); got != tt.want {
			t.Errorf("Recoverable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStatusError(t *testing.T) {
	t.Run("with body", func(t *testing.T) {
		err := &StatusError{StatusCode: 502, Body: "bad gateway"}
		if err.Error() != "status 502: bad gateway" {
			t.Errorf("Error() = %v", err.Error())
		}
	})

	t.Run("without body", func(t *testing.T) {
		err := &StatusError{StatusCode: 500}
		if err.Error() != "status 500" {
			t.Errorf("Error() = %v", err.Error())
		}
	})

	t.Run("code method", func(t *testing.T) {
		if (&StatusError{}).Code() != ErrCodeExternalService {
			t.Error("Code() mismatch")
		}
	})
}
