package texttospeech

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitSegmentsAtSentenceBoundaries(t *testing.T) {
	segments := SplitSegments("您好，欢迎参加本次面试。请先进行简单的自我介绍！\n好的?  ", 300)

	expected := []string{"您好，欢迎参加本次面试。", "请先进行简单的自我介绍！", "好的?"}
	if len(segments) != len(expected) {
		t.Fatalf("expected %d segments, got %d: %q", len(expected), len(segments), segments)
	}
	for i := range expected {
		if segments[i] != expected[i] {
			t.Fatalf("expected segment %d to be %q, got %q", i, expected[i], segments[i])
		}
	}
}

func TestSplitSegmentsHardSplitsLongRuns(t *testing.T) {
	segments := SplitSegments(strings.Repeat("A", 1000), 300)

	if len(segments) < 4 {
		t.Fatalf("expected at least 4 segments, got %d", len(segments))
	}
	total := 0
	for _, segment := range segments {
		if n := utf8.RuneCountInString(segment); n > 300 {
			t.Fatalf("expected segments of at most 300 runes, got %d", n)
		}
		total += len(segment)
	}
	if total != 1000 {
		t.Fatalf("expected no text to be lost, got %d runes", total)
	}
}

func TestSplitSegmentsDropsBlankText(t *testing.T) {
	if segments := SplitSegments(" \n\t ", 300); len(segments) != 0 {
		t.Fatalf("expected no segments, got %q", segments)
	}
}
