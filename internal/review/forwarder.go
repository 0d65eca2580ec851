package review

import (
	"fmt"

	tele "gopkg.in/telebot.v4"
)

// Forwarder delivers a rendered review to the moderation group.
type Forwarder interface {
	Forward(text string) error
}

// Sender is the part of *tele.Bot used for delivery.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// ChatResolver is the part of *tele.Bot used for the startup access check.
type ChatResolver interface {
	ChatByID(id int64) (*tele.Chat, error)
}

// GroupForwarder sends reviews to a fixed group chat with Markdown parse mode.
// Each review is attempted exactly once.
type GroupForwarder struct {
	bot   Sender
	group *tele.Chat
}

// NewGroupForwarder targets groupID through bot.
func NewGroupForwarder(bot Sender, groupID int64) *GroupForwarder {
	return &GroupForwarder{bot: bot, group: &tele.Chat{ID: groupID}}
}

// Forward sends text to the group.
func (g *GroupForwarder) Forward(text string) error {
	_, err := g.bot.Send(g.group, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}

// CheckGroupAccess verifies the bot can see the group before updates are served.
func CheckGroupAccess(bot ChatResolver, groupID int64) (*tele.Chat, error) {
	chat, err := bot.ChatByID(groupID)
	if err != nil {
		return nil, fmt.Errorf("group %d is not accessible: %w", groupID, err)
	}
	return chat, nil
}
