// Package main запускает утилиту синхронизации архива тиражей Mark Six.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mmeshcher/marksix/internal/cli"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(logger).ExecuteContext(ctx); err != nil {
		sugar.Errorw("command failed", "error", err)
		stop()
		logger.Sync()
		os.Exit(1)
	}
}
