package helpers

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// DisplayName returns "@username" when the user has one, otherwise the first name.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.Username); name != "" {
		return "@" + name
	}
	return u.FirstName
}
