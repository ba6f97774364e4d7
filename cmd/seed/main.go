// Command seed upserts the movies of a YAML file into the catalog.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"moviefilter-bot/internal/catalog"
	"moviefilter-bot/internal/config"
	"moviefilter-bot/internal/logger"
	"moviefilter-bot/internal/seed"
	"moviefilter-bot/internal/storage"
)

func main() {
	file := flag.String("file", "movies.yaml", "YAML file with a top-level movies list")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.LoadStore()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogLevel, cfg.PrettyLog)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	drafts, err := seed.Load(*file)
	if err != nil {
		lg.Error("seed file rejected", logger.String("file", *file), logger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	store, err := storage.NewMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	cancel()
	if err != nil {
		lg.Error("connect store", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = store.Close(context.Background()) }()

	n, err := seed.Import(ctx, catalog.NewService(store, cfg.StoreTimeout), drafts, lg)
	if err != nil {
		lg.Error("import stopped", logger.Int("imported", n), logger.Int("total", len(drafts)), logger.Error(err))
		os.Exit(1)
	}
	lg.Info("seed complete", logger.Int("imported", n), logger.Int("total", len(drafts)), logger.String("file", *file))
}
