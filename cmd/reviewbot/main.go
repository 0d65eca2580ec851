package main

import (
	"os"

	"github.com/m3rciful/reviewbot/core/cmd"
	coreconfig "github.com/m3rciful/reviewbot/core/config"
	"github.com/m3rciful/reviewbot/internal/app"
)

func main() {
	err := cmd.Run(cmd.Options{
		Bootstrap: func(cfg *coreconfig.Config) (cmd.TelegramApp, error) {
			return app.New(cfg)
		},
	})
	if err != nil {
		// cmd.Run has already logged the failure at FATAL level.
		os.Exit(1)
	}
}
