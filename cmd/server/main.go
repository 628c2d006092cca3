// Command pokedex-api serves a Pokémon image classifier over HTTP.
//
// Without arguments it runs setup only: the checkpoint is downloaded if
// missing and loaded once to prove it works. "pokedex-api serve" does the same
// behind a listener on :8080 and then answers /analyze requests.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		slog.Error("Fatal", "error", err)
		stop()
		os.Exit(1)
	}
}
