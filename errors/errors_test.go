package errors

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"restart session", ErrRestartSession, true},
		{"websocket failed", ErrWebSocketFailed, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"malformed payload", ErrMalformedPayload, false},
		{"invalid token", ErrInvalidToken, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"network error", fmt.Errorf("network connection failed"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"malformed payload", ErrMalformedPayload, true},
		{"unknown event", ErrUnknownEvent, true},
		{"not initialized", ErrNotInitialized, true},
		{"invalid token", ErrInvalidToken, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(ErrInvalidToken) {
		t.Error("expected invalid token to be fatal")
	}
	if !IsFatal(ErrConnection) {
		t.Error("expected connection error to be fatal")
	}
	if IsFatal(ErrMalformedPayload) {
		t.Error("malformed payload must not be fatal, one bad frame must not end the session")
	}
	if IsFatal(nil) {
		t.Error("nil is never fatal")
	}
}

func TestWrap(t *testing.T) {
	base := fmt.Errorf("boom")
	wrapped := Wrap(base, "storage", "UpsertHouse", "merge payload")
	if wrapped == nil {
		t.Fatal("expected non-nil wrapped error")
	}
	if !strings.Contains(wrapped.Error(), "storage.UpsertHouse: merge payload failed") {
		t.Errorf("unexpected wrap format: %s", wrapped.Error())
	}
	if !Is(wrapped, base) {
		t.Error("wrapped error must preserve the cause")
	}

	if Wrap(nil, "a", "b", "c") != nil {
		t.Error("wrapping nil must return nil")
	}
}

func TestWrapClassified(t *testing.T) {
	base := fmt.Errorf("boom")

	for _, test := range []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"invalid", WrapInvalid, ErrorInvalid},
		{"transient", WrapTransient, ErrorTransient},
		{"fatal", WrapFatal, ErrorFatal},
	} {
		t.Run(test.name, func(t *testing.T) {
			err := test.wrap(base, "gateway", "Connect", "dial")
			var ce *ClassifiedError
			if !As(err, &ce) {
				t.Fatal("expected a classified error")
			}
			if ce.Class != test.class {
				t.Errorf("expected class %v, got %v", test.class, ce.Class)
			}
			if !Is(err, base) {
				t.Error("classification must preserve the cause chain")
			}
			if test.wrap(nil, "a", "b", "c") != nil {
				t.Error("wrapping nil must return nil")
			}
		})
	}
}

func TestClassify(t *testing.T) {
	if Classify(ErrInvalidToken) != ErrorFatal {
		t.Error("invalid token classifies fatal")
	}
	if Classify(ErrMalformedPayload) != ErrorInvalid {
		t.Error("malformed payload classifies invalid")
	}
	if Classify(fmt.Errorf("connection reset")) != ErrorTransient {
		t.Error("unknown connection errors default to transient")
	}
}
