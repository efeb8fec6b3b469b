package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/notekeeper/notekeeper/pkg/notekeeper"
)

func main() {
	// Cancelled on SIGINT or SIGTERM so the server can shut down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := notekeeper.Main(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, notekeeper.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}
