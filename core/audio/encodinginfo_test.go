package audio

import (
	"testing"
	"time"
)

func TestDefaultEncodingInfoIsLinear16At16kHz(t *testing.T) {
	info := GetDefaultEncodingInfo()

	if info.SampleRate != 16000 || info.Format != EncodingLinear16 {
		t.Fatalf("expected 16kHz linear16, got %+v", info)
	}
	if got := info.FrameBytes(time.Second); got != 32000 {
		t.Fatalf("expected 32000 bytes per second, got %d", got)
	}
	if err := info.Validate(); err != nil {
		t.Fatalf("expected default encoding to be valid, got %v", err)
	}
}

func TestValidateRejectsUnknownFormatsAndRates(t *testing.T) {
	if err := (EncodingInfo{SampleRate: 16000, Format: encodingFormat("opus")}).Validate(); err == nil {
		t.Fatalf("expected unknown format to be rejected")
	}
	if err := NewLinear16EncodingInfo(0).Validate(); err == nil {
		t.Fatalf("expected zero sample rate to be rejected")
	}
}

func TestSilenceValuePerFormat(t *testing.T) {
	testCases := []struct {
		format   encodingFormat
		expected byte
	}{
		{format: EncodingLinear16, expected: 0},
		{format: EncodingALaw, expected: 0x55},
		{format: EncodingMulaw, expected: 0xFF},
	}

	for _, testCase := range testCases {
		info := EncodingInfo{SampleRate: 8000, Format: testCase.format}
		if got := info.SilenceValue(); got != testCase.expected {
			t.Fatalf("expected silence %x for %s, got %x", testCase.expected, testCase.format, got)
		}
	}
}

func TestFrameBytes(t *testing.T) {
	info := NewLinear16EncodingInfo(16000)

	if got := info.FrameBytes(100 * time.Millisecond); got != 3200 {
		t.Fatalf("expected 3200 bytes for 100ms, got %d", got)
	}
	if got := (EncodingInfo{SampleRate: 8000, Format: EncodingMulaw}).FrameBytes(20 * time.Millisecond); got != 160 {
		t.Fatalf("expected 160 bytes for 20ms of mulaw, got %d", got)
	}
	if got := info.FrameBytes(0); got != 0 {
		t.Fatalf("expected zero duration to give zero bytes, got %d", got)
	}
}
