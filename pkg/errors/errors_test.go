package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeNotRTPlan, "modality is %q", "RTIMAGE")

	if err.Code != ErrCodeNotRTPlan {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNotRTPlan)
	}

	if err.Message != `modality is "RTIMAGE"` {
		t.Errorf("Message = %v, want %v", err.Message, `modality is "RTIMAGE"`)
	}

	expected := `NOT_A_RT_PLAN: modality is "RTIMAGE"`
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}

	if len(err.Details) != 1 || err.Details[0] != "RTIMAGE" {
		t.Errorf("Details = %v, want [RTIMAGE]", err.Details)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(ErrCodeInvalidRecord, cause, "parse record")

	if err.Code != ErrCodeInvalidRecord {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidRecord)
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
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeFieldExceedsRange, "leaf %d", 3),
			code:     ErrCodeFieldExceedsRange,
			expected: true,
		},
		{
			name:     "different code",
			err:      New(ErrCodeNotRTPlan, "test"),
			code:     ErrCodeFieldExceedsRange,
			expected: false,
		},
		{
			name:     "wrapped with fmt",
			err:      fmt.Errorf("convert: %w", New(ErrCodeUnidentifiableFamily, "test")),
			code:     ErrCodeUnidentifiableFamily,
			expected: true,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			code:     ErrCodeInternal,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCodeAndUserMessage(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(ErrCodeNotRTPlan, "not a plan"))
	if got := GetCode(err); got != ErrCodeNotRTPlan {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeNotRTPlan)
	}
	if got := UserMessage(err); got != "not a plan" {
		t.Errorf("UserMessage() = %q, want %q", got, "not a plan")
	}

	plain := errors.New("boom")
	if got := GetCode(plain); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
	if got := UserMessage(plain); got != "boom" {
		t.Errorf("UserMessage(plain) = %q, want %q", got, "boom")
	}
}

func TestIsPlanError(t *testing.T) {
	if !IsPlanError(New(ErrCodeFieldExceedsRange, "x")) {
		t.Error("FIELD_EXCEEDS_TARGET_RANGE should be a plan error")
	}
	if IsPlanError(New(ErrCodeInternal, "x")) {
		t.Error("INTERNAL_ERROR should not be a plan error")
	}
	if IsPlanError(errors.New("x")) {
		t.Error("plain errors should not be plan errors")
	}
}

func TestNewWarning(t *testing.T) {
	w := NewWarning(ErrCodeMissingAperture, "no MLC at control point %d of beam %d", 4, 2)
	if w.Code != ErrCodeMissingAperture {
		t.Errorf("Code = %v, want %v", w.Code, ErrCodeMissingAperture)
	}
	if w.String() != "no MLC at control point 4 of beam 2" {
		t.Errorf("String() = %q", w.String())
	}
	if len(w.Details) != 2 {
		t.Errorf("Details = %v, want 2 entries", w.Details)
	}
}
