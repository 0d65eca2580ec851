// Package review implements the review submission conversation: the start
// menu, the "leave a review" prompt with its cooldown gate, and the handling
// of the review text itself.
package review

import (
	"time"

	"github.com/m3rciful/reviewbot/core/telegram/keyboard"
	"github.com/m3rciful/reviewbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Options wires a Flow.
type Options struct {
	Store           *state.Store
	Cooldown        time.Duration
	ChannelUsername string
	ProfileUsername string
	Forwarder       Forwarder
	// Ledger defaults to NopLedger.
	Ledger Ledger
	// LedgerTimeout bounds a single ledger write; defaults to DefaultLedgerTimeout.
	LedgerTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Flow owns the review conversation for all users.
type Flow struct {
	store    *state.Store
	cooldown time.Duration
	channel  string
	profile  string
	fwd      Forwarder
	ledger   Ledger
	ledgerTO time.Duration
	now      func() time.Time
}

// DefaultLedgerTimeout bounds ledger writes made while the user's lock is held.
const DefaultLedgerTimeout = 2 * time.Second

// NewFlow builds a Flow from opts.
func NewFlow(opts Options) *Flow {
	f := &Flow{
		store:    opts.Store,
		cooldown: opts.Cooldown,
		channel:  opts.ChannelUsername,
		profile:  opts.ProfileUsername,
		fwd:      opts.Forwarder,
		ledger:   opts.Ledger,
		ledgerTO: opts.LedgerTimeout,
		now:      opts.Now,
	}
	if f.store == nil {
		f.store = state.NewStore()
	}
	if f.ledger == nil {
		f.ledger = NopLedger{}
	}
	if f.ledgerTO <= 0 {
		f.ledgerTO = DefaultLedgerTimeout
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// InProgress reports whether userID is expected to send review text next.
func (f *Flow) InProgress(userID int64) bool {
	return f.store.InProgress(userID)
}

// CooldownRemaining returns the whole seconds left before userID may review
// again, and false when no cooldown applies.
func (f *Flow) CooldownRemaining(userID int64, now time.Time) (int, bool) {
	last, ok := f.store.LastReviewTime(userID)
	if !ok {
		return 0, false
	}
	elapsed := now.Sub(last)
	if elapsed >= f.cooldown {
		return 0, false
	}
	return int(f.cooldown/time.Second) - int(elapsed/time.Second), true
}

// StartMarkup is the inline menu shown by /start. Link buttons without a
// configured username are left out.
func (f *Flow) StartMarkup() *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, 3)
	if f.channel != "" {
		btns = append(btns, keyboard.URLBtn(ChannelButton, keyboard.TelegramURL(f.channel)))
	}
	if f.profile != "" {
		btns = append(btns, keyboard.URLBtn(ProfileButton, keyboard.TelegramURL(f.profile)))
	}
	btns = append(btns, keyboard.DataBtn(LeaveButton, LeaveReviewUnique))
	return keyboard.InlineButtons(btns)
}
