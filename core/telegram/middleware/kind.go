package middleware

import (
	coreconfig "github.com/m3rciful/reviewbot/core/config"

	tele "gopkg.in/telebot.v4"
)

// UpdateKind names the update type for rate limit exclusions and metric labels.
func UpdateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return coreconfig.UpdateCallback
	case upd.Message != nil:
		return coreconfig.UpdateMessage
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}
