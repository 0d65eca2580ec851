package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/reviewbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// Flow is the text-consuming conversation the router hands messages to.
type Flow interface {
	InProgress(userID int64) bool
	HandleText(c tele.Context) error
}

// TextRoute builds the OnText handler. Command-like texts never reach the
// flow, and texts from users with no flow in progress are ignored silently.
func TextRoute(flow Flow) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if strings.HasPrefix(c.Text(), "/") {
			logHandlerSummary(c, "unknown_command", start, "skip", nil)
			return nil
		}

		user := c.Sender()
		if flow == nil || user == nil || !flow.InProgress(user.ID) {
			logHandlerSummary(c, "text.idle", start, "skip", nil)
			return nil
		}

		return handleWithSummary(c, "text.review", start, func() error {
			return flow.HandleText(c)
		})
	}
	return tg.Route{Endpoint: tele.OnText, Handler: handler}
}
