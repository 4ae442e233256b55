package app

import (
	"context"
	"errors"

	"scrapbook/internal/identity"
	mcpserver "scrapbook/internal/mcp"
)

// ServeMCP runs the MCP server on stdin/stdout for the configured user until ctx ends.
func (a *App) ServeMCP(ctx context.Context) error {
	if a.cfg.User.ID == "" {
		return errors.New("user.id is required for the MCP server (set SCRAPBOOK_USER_ID)")
	}
	if err := a.sessions.Start(); err != nil {
		return err
	}

	srv := mcpserver.New(mcpserver.Deps{
		Sessions: a.sessions,
		Identity: identity.Static(a.cfg.User.ID),
		Logger:   a.logger,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.ServeStdio() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return nil
	}
}
