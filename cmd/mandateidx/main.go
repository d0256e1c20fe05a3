package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dalemusser/mandateidx/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, "mandateidx", os.Args[1:])
	stop()
	os.Exit(code)
}
