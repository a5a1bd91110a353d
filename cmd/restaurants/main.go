package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mesaYaReviews/internal/config"
	"mesaYaReviews/internal/shared/logging"
)

func main() {
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(newApp(cfg, logger)).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		stop()
		os.Exit(1)
	}
}
