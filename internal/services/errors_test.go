package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapIncludesDetailAndMarker(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(ErrExternalTool, "transcribing", "run whisper", "pass failed", cause)

	if !errors.Is(err, ErrExternalTool) {
		t.Fatal("expected ErrExternalTool marker")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause")
	}
	for _, want := range []string{"transcribing", "run whisper", "pass failed"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("missing %q in %q", want, err.Error())
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatal("expected ErrTransient fallback")
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		marker error
		want   bool
	}{
		{ErrValidation, false},
		{ErrConfiguration, false},
		{ErrNotFound, false},
		{ErrExternalTool, true},
		{ErrTimeout, true},
		{ErrTransient, true},
	}
	for _, tc := range cases {
		err := Wrap(tc.marker, "stage", "op", "", nil)
		if got := Retryable(err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.marker, got, tc.want)
		}
	}
}
