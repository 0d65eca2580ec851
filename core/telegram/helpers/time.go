package helpers

import "time"

// ReviewTimeLayout is the day.month.year hour:minute stamp shown to users.
const ReviewTimeLayout = "02.01.2006 15:04"

// FormatReviewTime renders t in the bot's local timezone.
func FormatReviewTime(t time.Time) string {
	return t.Local().Format(ReviewTimeLayout)
}
