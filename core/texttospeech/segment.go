package texttospeech

import "strings"

const DefaultMaxSegmentRunes = 300

func isSegmentBoundary(r rune) bool {
	switch r {
	case '。', '！', '？', '；', '!', '?', ';', '\n':
		return true
	}
	return false
}

// SplitSegments splits text after sentence ending punctuation and newlines.
// Runs longer than maxRunes are cut at maxRunes. Blank segments are dropped.
func SplitSegments(text string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxSegmentRunes
	}

	var segments []string
	var current []rune
	flush := func() {
		if segment := strings.TrimSpace(string(current)); segment != "" {
			segments = append(segments, segment)
		}
		current = current[:0]
	}

	for _, r := range text {
		current = append(current, r)
		if isSegmentBoundary(r) || len(current) >= maxRunes {
			flush()
		}
	}
	flush()

	return segments
}
