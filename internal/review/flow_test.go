package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/reviewbot/core/telegram/state"
	"github.com/m3rciful/reviewbot/core/telegram/teletest"

	tele "gopkg.in/telebot.v4"
	"pgregory.net/rapid"
)

type fakeForwarder struct {
	err  error
	sent []string
}

func (f *fakeForwarder) Forward(text string) error {
	f.sent = append(f.sent, text)
	return f.err
}

type memLedger struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (l *memLedger) Record(_ context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return l.err
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var alice = &tele.User{ID: 100, Username: "alice", FirstName: "Alice"}

type harness struct {
	flow   *Flow
	store  *state.Store
	fwd    *fakeForwarder
	ledger *memLedger
	clock  *clock
}

func newHarness(cooldown time.Duration) *harness {
	h := &harness{
		store:  state.NewStore(),
		fwd:    &fakeForwarder{},
		ledger: &memLedger{},
		clock:  &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)},
	}
	h.flow = NewFlow(Options{
		Store:           h.store,
		Cooldown:        cooldown,
		ChannelUsername: "reviews_channel",
		ProfileUsername: "owner",
		Forwarder:       h.fwd,
		Ledger:          h.ledger,
		Now:             h.clock.Now,
	})
	return h
}

func lastText(t *testing.T, c *teletest.Context) string {
	t.Helper()
	texts := c.Texts()
	if len(texts) == 0 {
		t.Fatal("no message sent")
	}
	return texts[len(texts)-1]
}

func TestStartShowsMenu(t *testing.T) {
	h := newHarness(time.Minute)
	c := teletest.NewMessage(1, alice, "/start")
	if err := h.flow.Start(c); err != nil {
		t.Fatal(err)
	}
	calls := c.Calls()
	if len(calls) != 1 || calls[0].What != StartText {
		t.Fatalf("calls = %+v", calls)
	}
	markup, ok := calls[0].Opts[0].(*tele.ReplyMarkup)
	if !ok || len(markup.InlineKeyboard) != 3 {
		t.Fatalf("unexpected markup %+v", calls[0].Opts)
	}
	kb := markup.InlineKeyboard
	if kb[0][0].URL != "https://t.me/reviews_channel" || kb[1][0].URL != "https://t.me/owner" {
		t.Fatalf("link buttons = %+v / %+v", kb[0][0], kb[1][0])
	}
	if kb[2][0].Unique != LeaveReviewUnique || kb[2][0].Text != LeaveButton {
		t.Fatalf("leave button = %+v", kb[2][0])
	}
	if h.store.Len() != 0 {
		t.Fatal("start must not create a session")
	}
}

func TestLeaveReviewPromptsWithoutHistory(t *testing.T) {
	h := newHarness(time.Minute)
	c := teletest.NewCallback(2, alice, LeaveReviewUnique)
	if err := h.flow.LeaveReview(c); err != nil {
		t.Fatal(err)
	}
	if !h.store.Awaiting(alice.ID) {
		t.Fatal("user should be awaiting a review")
	}
	calls := c.Calls()
	if len(calls) != 1 || calls[0].Method != "edit" || calls[0].What != PromptText {
		t.Fatalf("calls = %+v", calls)
	}
	if r := c.Responses(); len(r) != 1 || r[0].ShowAlert {
		t.Fatalf("responses = %+v", r)
	}
}

func TestLeaveReviewCooldownAlert(t *testing.T) {
	h := newHarness(60 * time.Second)
	h.store.SetLastReviewTime(alice.ID, h.clock.Now())
	h.clock.Advance(30*time.Second + 400*time.Millisecond)

	c := teletest.NewCallback(3, alice, LeaveReviewUnique)
	if err := h.flow.LeaveReview(c); err != nil {
		t.Fatal(err)
	}
	r := c.Responses()
	if len(r) != 1 || !r[0].ShowAlert || r[0].Text != "⏳ Please wait 30 seconds before your next review." {
		t.Fatalf("responses = %+v", r)
	}
	if h.store.Awaiting(alice.ID) || len(c.Calls()) != 0 {
		t.Fatal("cooldown must not change state or message")
	}
}

func TestLeaveReviewAfterCooldown(t *testing.T) {
	h := newHarness(60 * time.Second)
	h.store.SetLastReviewTime(alice.ID, h.clock.Now())
	h.clock.Advance(60 * time.Second)

	if err := h.flow.LeaveReview(teletest.NewCallback(4, alice, LeaveReviewUnique)); err != nil {
		t.Fatal(err)
	}
	if !h.store.Awaiting(alice.ID) {
		t.Fatal("cooldown elapsed; user should be prompted")
	}
}

func TestLeaveReviewEditFailureKeepsIdle(t *testing.T) {
	h := newHarness(time.Minute)
	c := teletest.NewCallback(5, alice, LeaveReviewUnique)
	c.Err = errors.New("telegram: message is not modified (400)")
	if err := h.flow.LeaveReview(c); err == nil {
		t.Fatal("edit error must propagate")
	}
	if h.store.Awaiting(alice.ID) {
		t.Fatal("awaiting must stay false when the prompt was not shown")
	}
}

func TestHandleTextIgnoredWhenIdle(t *testing.T) {
	h := newHarness(time.Minute)
	c := teletest.NewMessage(6, alice, "hello there")
	if err := h.flow.HandleText(c); err != nil {
		t.Fatal(err)
	}
	if len(c.Calls()) != 0 || len(h.fwd.sent) != 0 || len(h.ledger.entries) != 0 {
		t.Fatal("idle text must produce no side effects")
	}
	if _, ok := h.store.LastReviewTime(alice.ID); ok {
		t.Fatal("idle text must not start a cooldown")
	}
}

func TestHandleTextRejectsInvalid(t *testing.T) {
	h := newHarness(time.Minute)
	h.store.SetAwaiting(alice.ID, true)

	c := teletest.NewMessage(7, alice, "visit https://spam.example")
	if err := h.flow.HandleText(c); err != nil {
		t.Fatal(err)
	}
	want := "❌ Unable to send the review:\nlinks are not allowed\n\nPress the button and try again."
	if got := lastText(t, c); got != want {
		t.Fatalf("reply = %q", got)
	}
	if h.store.Awaiting(alice.ID) {
		t.Fatal("rejection must reset awaiting")
	}
	if _, ok := h.store.LastReviewTime(alice.ID); ok {
		t.Fatal("rejection must not start a cooldown")
	}
	if len(h.fwd.sent) != 0 {
		t.Fatal("rejected review must not be forwarded")
	}
	if len(h.ledger.entries) != 1 || h.ledger.entries[0].Outcome != OutcomeRejected || h.ledger.entries[0].Reason != ReasonLinks {
		t.Fatalf("ledger = %+v", h.ledger.entries)
	}
}

func TestHandleTextForwardsReview(t *testing.T) {
	h := newHarness(time.Minute)
	h.store.SetAwaiting(alice.ID, true)

	c := teletest.NewMessage(8, alice, "Loved the *fast* delivery")
	if err := h.flow.HandleText(c); err != nil {
		t.Fatal(err)
	}
	if got := lastText(t, c); got != SuccessText {
		t.Fatalf("reply = %q", got)
	}
	if len(h.fwd.sent) != 1 {
		t.Fatalf("forwarded %d messages", len(h.fwd.sent))
	}
	want := "💬 *New review from* @alice (`100`)\n\nLoved the \\*fast\\* delivery\n\n— Sent via the bot • 01.06.2024 12:00"
	if h.fwd.sent[0] != want {
		t.Fatalf("forwarded text:\n%q\nwant:\n%q", h.fwd.sent[0], want)
	}
	last, ok := h.store.LastReviewTime(alice.ID)
	if !ok || !last.Equal(h.clock.Now()) {
		t.Fatalf("last review = %v %v", last, ok)
	}
	if h.store.Awaiting(alice.ID) {
		t.Fatal("success must reset awaiting")
	}
	if len(h.ledger.entries) != 1 || h.ledger.entries[0].Outcome != OutcomeForwarded || h.ledger.entries[0].TextLen != 25 {
		t.Fatalf("ledger = %+v", h.ledger.entries)
	}
}

func TestHandleTextForwardFailureKeepsCooldown(t *testing.T) {
	h := newHarness(time.Minute)
	h.fwd.err = &tele.Error{Code: 400, Description: "Bad Request: chat not found"}
	h.store.SetAwaiting(alice.ID, true)

	c := teletest.NewMessage(9, alice, "nice")
	if err := h.flow.HandleText(c); err != nil {
		t.Fatal(err)
	}
	if got := lastText(t, c); got != FailureText {
		t.Fatalf("reply = %q", got)
	}
	if _, ok := h.store.LastReviewTime(alice.ID); !ok {
		t.Fatal("a failed delivery still counts toward the cooldown")
	}
	if h.store.Awaiting(alice.ID) {
		t.Fatal("failure must reset awaiting")
	}
	if len(h.fwd.sent) != 1 {
		t.Fatalf("delivery must be attempted exactly once, got %d", len(h.fwd.sent))
	}
	if e := h.ledger.entries; len(e) != 1 || e[0].Outcome != OutcomeFailed || e[0].Reason != "http_4xx" {
		t.Fatalf("ledger = %+v", e)
	}
}

func TestLedgerFailureDoesNotChangeOutcome(t *testing.T) {
	h := newHarness(time.Minute)
	h.ledger.err = errors.New("connection refused")
	h.store.SetAwaiting(alice.ID, true)

	c := teletest.NewMessage(10, alice, "still works")
	if err := h.flow.HandleText(c); err != nil {
		t.Fatal(err)
	}
	if got := lastText(t, c); got != SuccessText {
		t.Fatalf("reply = %q", got)
	}
}

func TestFullConversation(t *testing.T) {
	h := newHarness(60 * time.Second)

	if err := h.flow.LeaveReview(teletest.NewCallback(1, alice, LeaveReviewUnique)); err != nil {
		t.Fatal(err)
	}
	if err := h.flow.HandleText(teletest.NewMessage(2, alice, "first")); err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(10 * time.Second)
	again := teletest.NewCallback(3, alice, LeaveReviewUnique)
	if err := h.flow.LeaveReview(again); err != nil {
		t.Fatal(err)
	}
	if r := again.Responses(); len(r) != 1 || r[0].Text != fmt.Sprintf(CooldownText, 50) {
		t.Fatalf("responses = %+v", r)
	}

	second := teletest.NewMessage(4, alice, "second")
	if err := h.flow.HandleText(second); err != nil {
		t.Fatal(err)
	}
	if len(second.Calls()) != 0 || len(h.fwd.sent) != 1 {
		t.Fatal("text after a cooldown alert must be ignored")
	}
}

func TestPropertyCooldownRemaining(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cooldownS := rapid.IntRange(1, 3600).Draw(rt, "cooldown")
		elapsedMS := rapid.Int64Range(0, int64(cooldownS)*2000).Draw(rt, "elapsed_ms")

		h := newHarness(time.Duration(cooldownS) * time.Second)
		h.store.SetLastReviewTime(alice.ID, h.clock.Now())
		h.clock.Advance(time.Duration(elapsedMS) * time.Millisecond)

		remaining, limited := h.flow.CooldownRemaining(alice.ID, h.clock.Now())
		inWindow := elapsedMS < int64(cooldownS)*1000
		if limited != inWindow {
			rt.Fatalf("limited = %v for elapsed %dms of %ds", limited, elapsedMS, cooldownS)
		}
		if limited {
			want := cooldownS - int(elapsedMS/1000)
			if remaining != want || remaining < 1 || remaining > cooldownS {
				rt.Fatalf("remaining = %d, want %d", remaining, want)
			}
		}
	})
}

func TestZeroCooldownNeverLimits(t *testing.T) {
	h := newHarness(0)
	h.store.SetLastReviewTime(alice.ID, h.clock.Now())
	if _, limited := h.flow.CooldownRemaining(alice.ID, h.clock.Now()); limited {
		t.Fatal("zero cooldown must not limit")
	}
}

func TestSubmissionRenderEscapesFirstName(t *testing.T) {
	u := &tele.User{ID: 5, FirstName: "snake_case"}
	got := NewSubmission(u, "ok", time.Date(2024, 1, 2, 3, 4, 0, 0, time.Local)).Render()
	if !strings.HasPrefix(got, "💬 *New review from* snake\\_case (`5`)") {
		t.Fatalf("render = %q", got)
	}
	if !strings.HasSuffix(got, "02.01.2024 03:04") {
		t.Fatalf("render = %q", got)
	}
}

func TestSubmissionRenderKeepsAuthorOutsideBold(t *testing.T) {
	tests := []struct {
		name string
		user *tele.User
		want string
	}{
		{"underscore handle", &tele.User{ID: 1, Username: "john_doe"}, "💬 *New review from* @john\\_doe (`1`)"},
		{"star in name", &tele.User{ID: 2, FirstName: "A*B"}, "💬 *New review from* A\\*B (`2`)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewSubmission(tt.user, "ok", time.Now()).Render()
			if !strings.HasPrefix(got, tt.want) {
				t.Fatalf("render = %q, want prefix %q", got, tt.want)
			}
			header := strings.SplitN(got, "\n", 2)[0]
			if strings.Count(header, "*")-strings.Count(header, "\\*") != 2 {
				t.Fatalf("bold entity must close before the author: %q", header)
			}
		})
	}
}

type stallLedger struct {
	c       *teletest.Context
	replies int
	ctxErr  error
}

func (l *stallLedger) Record(ctx context.Context, _ Entry) error {
	l.replies = len(l.c.Texts())
	<-ctx.Done()
	l.ctxErr = ctx.Err()
	return ctx.Err()
}

func TestHandleTextRepliesBeforeStalledLedger(t *testing.T) {
	h := newHarness(time.Minute)
	c := teletest.NewMessage(20, alice, "Quick and friendly")
	ledger := &stallLedger{c: c}
	h.flow = NewFlow(Options{
		Store:         h.store,
		Cooldown:      time.Minute,
		Forwarder:     h.fwd,
		Ledger:        ledger,
		LedgerTimeout: 20 * time.Millisecond,
		Now:           h.clock.Now,
	})
	h.store.SetAwaiting(alice.ID, true)

	done := make(chan error, 1)
	go func() { done <- h.flow.HandleText(c) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("HandleText is stuck on the ledger write")
	}

	if ledger.replies != 1 {
		t.Fatalf("ledger saw %d replies, want the reply sent first", ledger.replies)
	}
	if !errors.Is(ledger.ctxErr, context.DeadlineExceeded) {
		t.Fatalf("ledger ctx err = %v, want deadline", ledger.ctxErr)
	}
	if got := lastText(t, c); got != SuccessText {
		t.Fatalf("reply = %q", got)
	}
	if h.store.Awaiting(alice.ID) {
		t.Fatal("awaiting must be reset")
	}

	unlocked := make(chan struct{})
	go func() {
		unlock := h.store.Lock(alice.ID)
		unlock()
		close(unlocked)
	}()
	select {
	case <-unlocked:
	case <-time.After(time.Second):
		t.Fatal("user lock still held after HandleText returned")
	}
}

func TestStartMarkupSkipsMissingLinks(t *testing.T) {
	flow := NewFlow(Options{ProfileUsername: "owner", Forwarder: &fakeForwarder{}})
	kb := flow.StartMarkup().InlineKeyboard
	if len(kb) != 2 {
		t.Fatalf("rows = %d, want profile link and leave button", len(kb))
	}
	if kb[0][0].URL != "https://t.me/owner" || kb[1][0].Unique != LeaveReviewUnique {
		t.Fatalf("keyboard = %+v", kb)
	}

	bare := NewFlow(Options{Forwarder: &fakeForwarder{}}).StartMarkup().InlineKeyboard
	if len(bare) != 1 || bare[0][0].Unique != LeaveReviewUnique {
		t.Fatalf("keyboard = %+v, want only the leave button", bare)
	}
}
