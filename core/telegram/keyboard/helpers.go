package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes a convenience wrapper for inline button properties.
// A button with URL set opens the link; otherwise it sends callback data.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
	URL    string
}

// URLBtn returns a link button.
func URLBtn(text, url string) InlineBtn {
	return InlineBtn{Text: text, URL: url}
}

// DataBtn returns a callback button identified by unique.
func DataBtn(text, unique string) InlineBtn {
	return InlineBtn{Text: text, Unique: unique}
}

// InlineButtons builds an inline keyboard where each provided button is placed on its own row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineBtn{b})
	}
	return InlineButtonsRows(rows...)
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = *toBtn(markup, btn).Inline()
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}

func toBtn(markup *tele.ReplyMarkup, b InlineBtn) tele.Btn {
	if b.URL != "" {
		return markup.URL(b.Text, b.URL)
	}
	if b.Data != "" {
		return markup.Data(b.Text, b.Unique, b.Data)
	}
	return markup.Data(b.Text, b.Unique)
}

// TelegramURL returns the public t.me link for a username without the "@".
func TelegramURL(username string) string {
	return "https://t.me/" + username
}
