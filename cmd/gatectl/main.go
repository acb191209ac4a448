package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tg-channel-gate/internal/infra/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd(defaults{BackendURL: cfg.BackendURL, BotToken: cfg.Telegram.Token}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
