package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/reviewbot/core/config"
	"github.com/m3rciful/reviewbot/core/logger"
	coretelegram "github.com/m3rciful/reviewbot/core/telegram"
	"github.com/m3rciful/reviewbot/core/telegram/netutil"
)

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
	Close() error
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	// ConfigEnvVar names the variable holding the optional YAML path. Defaults to CONFIG_PATH.
	ConfigEnvVar string
	// DotEnvEnvVar names the variable holding the .env path. Defaults to DOTENV_PATH.
	DotEnvEnvVar string

	LoadConfig func(opts coreconfig.Options) (*coreconfig.Config, error)
	Bootstrap  func(cfg *coreconfig.Config) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run loads configuration, bootstraps the Telegram app, and starts the bot runtime.
// It returns when the process receives SIGINT/SIGTERM or the bot stops.
// A returned error has already been logged at FATAL level and the logger is shut down,
// so callers only need to exit.
func Run(opts Options) (err error) {
	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	var ready bool
	defer func() {
		if err != nil {
			event := "startup.failed"
			if ready {
				event = "run.failed"
			}
			logger.Event(logger.Background(), "app", logger.SlogLevelFatal, event,
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(netutil.Redact(err), 512)),
				slog.String("err_kind", netutil.Classify(err)),
			)
		}
		if shutdownErr := shutdownLogger(); shutdownErr != nil {
			log.Printf("logger shutdown error: %v", shutdownErr)
		}
	}()

	if opts.Bootstrap == nil {
		return fmt.Errorf("cmd: Bootstrap is required")
	}
	load := opts.LoadConfig
	if load == nil {
		load = coreconfig.Load
	}

	cfgEnv := opts.ConfigEnvVar
	if cfgEnv == "" {
		cfgEnv = "CONFIG_PATH"
	}
	dotEnv := opts.DotEnvEnvVar
	if dotEnv == "" {
		dotEnv = "DOTENV_PATH"
	}

	cfg, err := load(coreconfig.Options{
		DotEnvPath: os.Getenv(dotEnv),
		YAMLPath:   os.Getenv(cfgEnv),
	})
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	startedAt := time.Now()
	application, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	defer func() {
		if err := application.Close(); err != nil {
			logger.L.Warn("close failed",
				slog.String("component", "app"),
				slog.String("event", "shutdown"),
				slog.String("err", err.Error()),
			)
		}
	}()

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}

	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		ready = true
		logger.L.With("component", "app").Info("app ready",
			slog.String("event", "ready"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}

	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.L.With("component", "app").Info("shutting down...",
			slog.String("event", "shutdown"),
		)
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}
