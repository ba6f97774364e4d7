// Command local runs the bot with long polling, reading settings from .env.
package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"

	"moviefilter-bot/internal/app"
	"moviefilter-bot/internal/config"
)

func main() {
	// Variables already present in the environment win over .env.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.Mode = config.ModePolling
	cfg.PrettyLog = true

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("moviefilter-bot failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("moviefilter-bot stopped with error: %v", err)
	}
}
