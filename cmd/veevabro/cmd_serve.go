package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/clssck/VeevaBro/internal/api"
)

func cmdServe() {
	s := openApp()
	defer s.Close()

	token := uuid.NewString()
	srv := api.New(s.app, s.cfg.Addr, token, s.logger)
	ln, err := srv.Start()
	if err != nil {
		s.Close()
		fatal("start server: %v", err)
	}

	// Only after the bind succeeded: a stale server on the port keeps its own token.
	if err := writePopupToken(s.cfg, token); err != nil {
		srv.Stop(context.Background())
		s.Close()
		fatal("write token: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Popup server listening on %s\n", ln.Addr())
	fmt.Fprintf(os.Stderr, "Open it with 'veevabro ui'\n")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Fprintln(os.Stderr, "\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Stop(ctx)
	removePopupToken(s.cfg)
}
