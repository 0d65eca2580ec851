package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"log/slog"

	coreconfig "github.com/m3rciful/reviewbot/core/config"
)

func newTestLogger(t *testing.T, format logFormat, component string) (*slog.Logger, *asyncWriter, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	return slog.New(handler).With("component", component), aw, buf
}

func drain(t *testing.T, aw *asyncWriter, buf *bytes.Buffer) string {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, aw, buf := newTestLogger(t, formatKV, "review")
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log, slog.LevelInfo, "review.forwarded",
		slog.String("status", "OK"),
		slog.String("cause", "unit"),
	)
	line := drain(t, aw, buf)

	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=review", "event=review.forwarded", "status=ok", "rid=rid-123"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
	if !strings.Contains(line, "user_id=7") || !strings.Contains(line, "update_id=42") {
		t.Fatalf("context metadata missing: %s", line)
	}
}

func TestStructuredHandlerJSONCompactRID(t *testing.T) {
	log, aw, buf := newTestLogger(t, formatJSON, "tg")
	rawRID := "12:34:56"
	LogEvent(WithRID(Background(), rawRID), log, slog.LevelError, "handler.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)
	line := drain(t, aw, buf)

	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"tg"`, `"event":"handler.failed"`, `"status":"fail"`, `"rid":"` + CompactRID(rawRID) + `"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
}

func TestStructuredHandlerFatalAndDuration(t *testing.T) {
	log, aw, buf := newTestLogger(t, formatKV, "app")
	log.Log(Background(), SlogLevelFatal, "group unreachable",
		slog.Duration("duration", 1500_000_000),
		slog.String("empty", ""),
	)
	line := drain(t, aw, buf)

	if !strings.Contains(line, "level=FATAL") {
		t.Fatalf("expected FATAL level, got %s", line)
	}
	if !strings.Contains(line, `event="group unreachable"`) {
		t.Fatalf("message should become the event, got %s", line)
	}
	if !strings.Contains(line, "duration_ms=1500") {
		t.Fatalf("duration should be rendered in ms, got %s", line)
	}
	if strings.Contains(line, "empty=") {
		t.Fatalf("empty values must be pruned, got %s", line)
	}
}

func TestStructuredHandlerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	var lv slog.LevelVar
	lv.Set(slog.LevelWarn)
	log := slog.New(newStructuredHandler(handlerConfig{level: &lv, writer: aw, format: formatKV}))

	log.Info("hidden")
	log.Warn("shown")
	line := drain(t, aw, buf)
	if strings.Contains(line, "hidden") || !strings.Contains(line, "shown") {
		t.Fatalf("level filter broken: %s", line)
	}
}

func TestBuildOutputsWritesStdoutAndFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{Dir: dir, File: "bot.log"}}
	stdout := &bytes.Buffer{}

	writers, closers, err := buildOutputs(cfg, stdout)
	if err != nil {
		t.Fatalf("build outputs: %v", err)
	}
	if len(writers) != 2 || len(closers) != 1 {
		t.Fatalf("writers=%d closers=%d, want 2 and 1", len(writers), len(closers))
	}
	aw := newAsyncWriter(writers, 1024)
	if err := aw.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, c := range closers {
		_ = c.Close()
	}

	data, err := os.ReadFile(filepath.Join(dir, "bot.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if string(data) != "hello\n" || stdout.String() != "hello\n" {
		t.Fatalf("file=%q stdout=%q", data, stdout.String())
	}
}

func TestSanitizeAndPreview(t *testing.T) {
	if got := Sanitize("a\x00b\u200bc\n"); got != "abc\n" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := SanitizeLimit("привет мир", 6); got != "привет" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := Preview("short", 50); got != "short" {
		t.Fatalf("Preview short = %q", got)
	}
	long := strings.Repeat("я", 60)
	if got := Preview(long, 50); got != strings.Repeat("я", 50)+"..." {
		t.Fatalf("Preview long = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG":    slog.LevelDebug,
		"info":     slog.LevelInfo,
		"Warning":  slog.LevelWarn,
		"error":    slog.LevelError,
		"CRITICAL": SlogLevelFatal,
		"fatal":    SlogLevelFatal,
		"":         slog.LevelInfo,
		"bogus":    slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildOutputsReportsUnusableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{Dir: blocker, File: "bot.log"}}
	if _, _, err := buildOutputs(cfg, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for a log dir that is a file")
	}
}

func TestAsyncWriterAfterCloseUsesFallback(t *testing.T) {
	sink := &bytes.Buffer{}
	fallback := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{sink}, 1024)
	aw.fallback = fallback
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	log := slog.New(newStructuredHandler(handlerConfig{level: slog.LevelInfo, writer: aw, format: formatKV}))
	LogEvent(Background(), log.With("component", "app"), SlogLevelFatal, "startup.failed",
		slog.String("err", "group is not accessible"),
	)

	line := fallback.String()
	if !strings.Contains(line, "level=FATAL") || !strings.Contains(line, "event=startup.failed") {
		t.Fatalf("fatal line missing from fallback: %q", line)
	}
	if sink.Len() != 0 {
		t.Fatalf("closed sink must not receive lines, got %q", sink.String())
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestAsyncWriterAfterCloseWithoutFallback(t *testing.T) {
	aw := newAsyncWriter([]io.Writer{&bytes.Buffer{}}, 1024)
	aw.fallback = nil
	_ = aw.Close()
	if err := aw.Write([]byte("late\n")); err != errWriterClosed {
		t.Fatalf("err = %v, want errWriterClosed", err)
	}
}
