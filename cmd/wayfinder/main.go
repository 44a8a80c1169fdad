// Command wayfinder runs and inspects the campus AR wayfinding scene: it
// replays recorded tracker and touch sessions, serves a live command feed,
// and queries the room and student tables.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCommand(newApp()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
