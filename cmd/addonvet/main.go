package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/petal-labs/addonvet/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCmd(version).ExecuteContext(ctx)
	stop()
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
