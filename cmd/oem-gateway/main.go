package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/loafoe/kong-plugin-oemgateway/cmd/oem-gateway/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.NewGatewayCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
