package review

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/reviewbot/core/telegram/format"
	tghelpers "github.com/m3rciful/reviewbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Submission is one validated review on its way to the group. It is never stored.
type Submission struct {
	UserID      int64
	Username    string
	FirstName   string
	Text        string
	SubmittedAt time.Time
}

// NewSubmission captures the author and text of a review.
func NewSubmission(u *tele.User, text string, at time.Time) Submission {
	return Submission{
		UserID:      u.ID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		Text:        text,
		SubmittedAt: at,
	}
}

// Author returns "@username" or the first name.
func (s Submission) Author() string {
	return tghelpers.DisplayName(&tele.User{ID: s.UserID, Username: s.Username, FirstName: s.FirstName})
}

// Render formats the group message in legacy Markdown. Escapes are not honoured
// inside an entity, so the author stays outside the bold span.
func (s Submission) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "💬 *New review from* %s (`%d`)\n\n", format.EscapeMD(s.Author()), s.UserID)
	b.WriteString(format.EscapeMD(s.Text))
	b.WriteString("\n\n— Sent via the bot • ")
	b.WriteString(tghelpers.FormatReviewTime(s.SubmittedAt))
	return b.String()
}
