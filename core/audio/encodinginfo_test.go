package audio

import (
	"testing"
	"time"
)

func TestEncodingInfoBytesAndDuration(t *testing.T) {
	info := GetDefaultEncodingInfo()

	if got := info.BytesFor(20 * time.Millisecond); got != DefaultFrameBytes {
		t.Fatalf("expected 20ms to be %d bytes, got %d", DefaultFrameBytes, got)
	}
	if got := info.Duration(32000); got != time.Second {
		t.Fatalf("expected 32000 bytes to play for 1s, got %s", got)
	}
	if got := (EncodingInfo{}).Duration(100); got != 0 {
		t.Fatalf("expected zero duration for zero encoding, got %s", got)
	}
}
