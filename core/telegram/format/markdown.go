// Package format holds Telegram text formatting helpers.
package format

import "strings"

// mdSpecials are the characters the legacy Markdown parse mode treats as markup.
const mdSpecials = "_*`["

// EscapeMD escapes text for the legacy Markdown parse mode. The result must be
// placed outside entities: Telegram keeps backslashes inside them literally.
func EscapeMD(text string) string {
	if !strings.ContainsAny(text, mdSpecials) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for _, r := range text {
		if strings.ContainsRune(mdSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
