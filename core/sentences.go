package orchestration

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitSentences splits text after every '.', '?' or '!' that is followed
// by whitespace. The whitespace is dropped; everything else is kept.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isSentenceEnd(r) {
			continue
		}

		end := i
		for i < len(text) {
			next, nextSize := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(next) {
				break
			}
			i += nextSize
		}
		if i > end {
			sentences = append(sentences, text[start:end])
			start = i
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}
