// Package web serves scrapbook pages over HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"scrapbook/internal/identity"
	"scrapbook/internal/service"
)

type Deps struct {
	Addr       string
	Sessions   *service.Sessions
	Tokens     *identity.Tokens
	ObjectsDir string // served under /objects/ when set
	Logger     *log.Logger
}

type Server struct {
	log    *log.Logger
	server *http.Server
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("http")

	srv := &http.Server{
		Addr:              deps.Addr,
		Handler:           newRouter(deps.Sessions, deps.Tokens, deps.ObjectsDir, logger),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{server: srv, log: logger}
}

// Handler exposes the router, mainly for tests.
func (ws *Server) Handler() http.Handler { return ws.server.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (ws *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		ws.log.Info("listening", "addr", ws.server.Addr)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("listen %s: %w", ws.server.Addr, err)
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		ws.log.Warn("forced to shutdown", "err", err)
		return err
	}
	ws.log.Info("exited gracefully")
	return nil
}
