package xerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewReturnsNilForNilErr(t *testing.T) {
	if err := New(UsbFatal, "op", nil); err != nil {
		t.Errorf("New(..., nil) = %v, want nil", err)
	}
}

func TestIsMatchesWrappedKind(t *testing.T) {
	err := fmt.Errorf("context: %w", New(RadioInit, "boot", errors.New("firmware load failed")))
	if !Is(err, RadioInit) {
		t.Error("Is(err, RadioInit) = false, want true through an fmt.Errorf wrap")
	}
	if Is(err, UsbTimeout) {
		t.Error("Is(err, UsbTimeout) = true, want false")
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{UsbFatal, true},
		{RadioInit, true},
		{UsbTimeout, false},
		{RadioTimeout, false},
		{GipFrameInvalid, false},
		{InputIoctl, false},
		{AudioOpen, false},
		{WcidExhausted, false},
	}
	for _, c := range cases {
		err := New(c.kind, "op", errors.New("boom"))
		if got := IsFatal(err); got != c.want {
			t.Errorf("IsFatal(%s) = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(New(UsbTimeout, "op", errors.New("deadline"))) {
		t.Error("IsTimeout(UsbTimeout) = false, want true")
	}
	if !IsTimeout(New(RadioTimeout, "op", errors.New("deadline"))) {
		t.Error("IsTimeout(RadioTimeout) = false, want true")
	}
	if IsTimeout(New(UsbFatal, "op", errors.New("detach"))) {
		t.Error("IsTimeout(UsbFatal) = true, want false")
	}
}

func TestErrorStringIncludesOpKindAndCause(t *testing.T) {
	err := New(AudioOpen, "audio.Start", errors.New("connection refused"))
	want := "audio.Start: audio_open: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
