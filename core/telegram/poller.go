package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// DefaultLongPollTimeout is used when no positive timeout is configured.
const DefaultLongPollTimeout = 10 * time.Second

// BuildPoller returns the long poller used to receive updates.
func BuildPoller(timeoutSeconds int) *tele.LongPoller {
	return &tele.LongPoller{Timeout: PollTimeout(timeoutSeconds)}
}

// PollTimeout converts the configured seconds into the effective poll window.
func PollTimeout(timeoutSeconds int) time.Duration {
	if timeoutSeconds <= 0 {
		return DefaultLongPollTimeout
	}
	return time.Duration(timeoutSeconds) * time.Second
}
