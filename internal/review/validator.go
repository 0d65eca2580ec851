package review

import (
	"strings"
	"unicode/utf8"
)

// MaxReviewRunes is the longest accepted review, counted after trimming.
const MaxReviewRunes = 500

// Validate checks a review text. The first failing rule wins; ok reviews
// return an empty reason.
func Validate(text string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, ReasonEmpty
	}
	if utf8.RuneCountInString(trimmed) > MaxReviewRunes {
		return false, ReasonTooLong
	}
	if strings.Contains(text, "http://") || strings.Contains(text, "https://") {
		return false, ReasonLinks
	}
	// A single "@" is fine (an e-mail, a signature); two or more look like mentions.
	if strings.Count(text, "@") > 1 {
		return false, ReasonMention
	}
	return true, ""
}
