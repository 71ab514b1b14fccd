package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	premscmder "github.com/papercomputeco/prems/cmd/prems"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := premscmder.NewPremsCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
