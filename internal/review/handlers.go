package review

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/m3rciful/reviewbot/core/logger"
	tghelpers "github.com/m3rciful/reviewbot/core/telegram/helpers"
	"github.com/m3rciful/reviewbot/core/telegram/netutil"
	"github.com/m3rciful/reviewbot/internal/metrics"

	tele "gopkg.in/telebot.v4"
)

const previewRunes = 50

// Start sends the main menu. It does not touch session state.
func (f *Flow) Start(c tele.Context) error {
	return tghelpers.SendText(c, StartText, f.StartMarkup())
}

// LeaveReview handles the "leave a review" button: it either shows the
// cooldown alert or switches the message to the writing prompt.
func (f *Flow) LeaveReview(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return c.Respond()
	}
	unlock := f.store.Lock(user.ID)
	defer unlock()

	ctx := tghelpers.BuildContext(c)
	if remaining, limited := f.CooldownRemaining(user.ID, f.now()); limited {
		metrics.PromptsTotal.WithLabelValues("cooldown").Inc()
		logger.LogEvent(ctx, logger.Review, slog.LevelInfo, "review.cooldown",
			slog.String("status", "cooldown"),
			slog.Int("remaining_s", remaining),
		)
		return tghelpers.Alert(c, fmt.Sprintf(CooldownText, remaining))
	}

	if err := tghelpers.Answer(c, ""); err != nil {
		logger.LogEvent(ctx, logger.Review, slog.LevelDebug, "review.answer_failed",
			slog.String("err", netutil.Redact(err)),
		)
	}
	if err := c.Edit(PromptText); err != nil {
		return err
	}
	f.store.SetAwaiting(user.ID, true)
	metrics.PromptsTotal.WithLabelValues("prompted").Inc()
	logger.LogEvent(ctx, logger.Review, slog.LevelDebug, "review.prompted",
		slog.String("status", "ok"),
		slog.String("outcome", "awaiting"),
	)
	return nil
}

// HandleText consumes the review text of a user who pressed the button.
// Every branch that reaches a decision leaves the user idle again.
func (f *Flow) HandleText(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	unlock := f.store.Lock(user.ID)
	defer unlock()

	if !f.store.Awaiting(user.ID) {
		return nil
	}
	defer f.store.SetAwaiting(user.ID, false)

	ctx := tghelpers.BuildContext(c)
	text := c.Text()
	textLen := utf8.RuneCountInString(text)

	if ok, reason := Validate(text); !ok {
		metrics.ReviewsTotal.WithLabelValues(OutcomeRejected).Inc()
		logger.LogEvent(ctx, logger.Review, slog.LevelWarn, "review.rejected",
			slog.String("status", "rejected"),
			slog.String("reason", reason),
			slog.Int("text_len", textLen),
		)
		err := c.Send(fmt.Sprintf(RejectText, reason))
		f.record(ctx, user, textLen, OutcomeRejected, reason)
		return err
	}

	now := f.now()
	f.store.SetLastReviewTime(user.ID, now)
	sub := NewSubmission(user, text, now)

	if err := f.fwd.Forward(sub.Render()); err != nil {
		metrics.ReviewsTotal.WithLabelValues(OutcomeFailed).Inc()
		logger.LogEvent(ctx, logger.Review, slog.LevelError, "review.forward_failed",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(netutil.Redact(err), 256)),
			slog.String("err_kind", netutil.Classify(err)),
			slog.Int("text_len", textLen),
		)
		sendErr := c.Send(FailureText)
		f.record(ctx, user, textLen, OutcomeFailed, netutil.Classify(err))
		return sendErr
	}

	metrics.ReviewsTotal.WithLabelValues(OutcomeForwarded).Inc()
	logger.LogEvent(ctx, logger.Review, slog.LevelInfo, "review.forwarded",
		slog.String("status", "ok"),
		slog.String("outcome", "forwarded"),
		slog.String("username", logger.SanitizeLimit(sub.Author(), 64)),
		slog.String("preview", logger.Preview(text, previewRunes)),
		slog.Int("text_len", textLen),
	)
	err := c.Send(SuccessText)
	f.record(ctx, user, textLen, OutcomeForwarded, "")
	return err
}

// record is bounded by the ledger timeout; failures are logged and dropped.
func (f *Flow) record(ctx context.Context, user *tele.User, textLen int, outcome, reason string) {
	ctx, cancel := context.WithTimeout(ctx, f.ledgerTO)
	defer cancel()
	err := f.ledger.Record(ctx, Entry{
		UserID:    user.ID,
		Username:  user.Username,
		TextLen:   textLen,
		Outcome:   outcome,
		Reason:    reason,
		CreatedAt: f.now(),
	})
	if err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelWarn, "ledger.write_failed",
			slog.String("status", "fail"),
			slog.String("outcome", outcome),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}
