package main

import (
	"log"

	"moviefilter-bot/internal/app"
	"moviefilter-bot/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("moviefilter-bot failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("moviefilter-bot stopped with error: %v", err)
	}
}
