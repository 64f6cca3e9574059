// Package main is the entry point for the osmtiles-provider generator.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stacklok/osmtiles-provider/cmd/osmtiles-provider/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := app.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
