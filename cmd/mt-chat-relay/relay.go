/*
mt-chat-relay forwards global chat between chat servers.
Every server connects to it with Relay.URL set to ws://host/relay.

Usage:

	mt-chat-relay [addr]

addr defaults to the Relay.BindAddr configuration value.
*/
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HimbeerserverDE/mt-multiserver-chat"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := chat.LoadConfig(); err != nil {
		log.Fatal("{←|⇶} ", err)
	}

	addr := chat.Conf().Relay.BindAddr
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	relay := chat.NewRelay()

	mux := http.NewServeMux()
	mux.Handle("/relay", relay)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Print("{←|⇶} relay listening on ", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		relay.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("{←|⇶} ", err)
	}

	log.Print("{←|⇶} relay stopped")
}
