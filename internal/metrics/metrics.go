// Package metrics exposes Prometheus counters for the review flow.
// The listener is optional and only started when an address is configured.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/reviewbot/core/logger"
)

var (
	// ReviewsTotal counts terminal review outcomes: "forwarded", "rejected" or "failed".
	ReviewsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewbot_reviews_total",
		Help: "Review submissions by terminal outcome",
	}, []string{"outcome"})

	// PromptsTotal counts "leave a review" presses: "prompted" or "cooldown".
	PromptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewbot_prompts_total",
		Help: "Review prompt button presses by result",
	}, []string{"result"})

	// UpdatesTotal counts incoming updates by kind.
	UpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewbot_updates_total",
		Help: "Incoming Telegram updates by kind",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(
		ReviewsTotal,
		PromptsTotal,
		UpdatesTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done. An empty addr is a no-op.
// The listener is bound before Serve returns so that bind errors surface at startup.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Metrics.Error("metrics listener stopped",
				slog.String("event", "metrics.serve"),
				slog.String("err", err.Error()),
			)
		}
	}()

	logger.Metrics.Info("metrics listener started",
		slog.String("event", "metrics.serve"),
		slog.String("addr", ln.Addr().String()),
	)
	return nil
}
