// Package app assembles the review bot from the core building blocks.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/reviewbot/core/bootstrap"
	coreconfig "github.com/m3rciful/reviewbot/core/config"
	"github.com/m3rciful/reviewbot/core/logger"
	coretelegram "github.com/m3rciful/reviewbot/core/telegram"
	"github.com/m3rciful/reviewbot/core/telegram/commands"
	"github.com/m3rciful/reviewbot/core/telegram/router"
	"github.com/m3rciful/reviewbot/core/telegram/state"
	"github.com/m3rciful/reviewbot/internal/metrics"
	"github.com/m3rciful/reviewbot/internal/review"

	tele "gopkg.in/telebot.v4"
)

// App holds the wired review bot.
type App struct {
	cfg   *coreconfig.Config
	infra *bootstrap.Result
	store *state.Store

	// newBot is replaced in tests.
	newBot func(*coreconfig.Config) (*tele.Bot, error)
}

// New bootstraps logging and the optional ledger database.
func New(cfg *coreconfig.Config) (*App, error) {
	infra, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:    cfg,
		infra:  infra,
		store:  state.NewStore(),
		newBot: coretelegram.NewBot,
	}, nil
}

// Close releases the ledger database, if any.
func (a *App) Close() error {
	return a.infra.Close()
}

// TelegramRunOptions builds the bot, the review flow and all routes.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	bot, err := a.newBot(a.cfg)
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	flow := review.NewFlow(review.Options{
		Store:           a.store,
		Cooldown:        time.Duration(a.cfg.Cooldown()) * time.Second,
		ChannelUsername: a.cfg.Review.ChannelUsername,
		ProfileUsername: a.cfg.Review.ProfileUsername,
		Forwarder:       review.NewGroupForwarder(bot, a.cfg.Review.GroupID),
		Ledger:          a.ledger(),
	})

	reg, err := Registry(flow)
	if err != nil {
		return coretelegram.RunOptions{}, err
	}
	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Bot:         bot,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, nil),
		Routes:      Routes(reg, flow),
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			return a.start(ctx, rt.Bot)
		},
	}, nil
}

// Registry declares the bot's commands and callbacks.
func Registry(flow *review.Flow) (*coretelegram.Registry, error) {
	reg := coretelegram.NewRegistry()
	err := reg.RegisterCommand("/start", commands.Command{
		Handler:     flow.Start,
		Description: review.StartDescription,
	})
	if err != nil {
		return nil, err
	}
	if err := reg.RegisterCallback(review.LeaveReviewUnique, flow.LeaveReview); err != nil {
		return nil, err
	}
	return reg, nil
}

// Routes binds commands, the callback dispatcher and the review text handler.
func Routes(reg *coretelegram.Registry, flow *review.Flow) []coretelegram.Route {
	routes := router.CommandRoutes(reg)
	routes = append(routes,
		router.CallbackRoute(reg),
		router.TextRoute(flow),
	)
	return routes
}

func (a *App) ledger() review.Ledger {
	if a.infra.DB == nil {
		return review.NopLedger{}
	}
	return review.NewSQLLedger(a.infra.DB)
}

// start runs before updates are served: the group must be reachable and the
// metrics listener, when configured, must bind.
func (a *App) start(ctx context.Context, bot *tele.Bot) error {
	chat, err := review.CheckGroupAccess(bot, a.cfg.Review.GroupID)
	if err != nil {
		return err
	}
	logger.Review.Info("group reachable",
		slog.String("event", "group.check"),
		slog.Int64("group_id", chat.ID),
		slog.String("title", logger.SanitizeLimit(chat.Title, 64)),
		slog.Int("cooldown_s", a.cfg.Cooldown()),
	)
	if err := metrics.Serve(ctx, a.cfg.Metrics.Addr); err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return nil
}
