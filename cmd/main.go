package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"github.com/cjfitness/notifier/cmd/app"
	"github.com/cjfitness/notifier/internal/adapters/config"
	"github.com/cjfitness/notifier/pkg/logger"
)

func main() {
	cfg := config.Get(os.Getenv("CONFIG_FILE"))
	a, err := app.New(cfg)
	if err != nil {
		log.Panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Errorf("Service stopped with error: %v", err)
		os.Exit(1)
	}
	logger.Log.Info("Service stopped")
}
