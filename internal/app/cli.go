package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"scrapbook/internal/config"
	"scrapbook/internal/logx"
	"scrapbook/internal/render"
	"scrapbook/internal/secret"
	"scrapbook/internal/service"
	"scrapbook/internal/transport/web"
)

// Execute runs the scrapbook CLI.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// NewRootCmd builds the command tree. --verbose switches the logger to debug.
// Secrets come from the OS keychain.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithSecrets(nil)
}

// NewRootCmdWithSecrets builds the command tree on top of secrets; nil means the OS keychain.
func NewRootCmdWithSecrets(secrets secret.Store) *cobra.Command {
	if secrets == nil {
		secrets = secret.NewKeychainStore()
	}
	var (
		verbose    bool
		configFile string
	)

	root := &cobra.Command{
		Use:          "scrapbook",
		Short:        "Scrapbook pages: free-form boards of notes, photos and doodles",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(logx.WithLogger(cmd.Context(), logx.New(cmd.ErrOrStderr(), level)))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml, toml or json)")

	load := func(cmd *cobra.Command) (*App, error) {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		logger := logx.FromContext(cmd.Context())
		logger.Debug("config loaded", "config", cfg.String())
		return New(cmd.Context(), cfg, logger, secrets)
	}

	root.AddCommand(newServeCmd(load))
	root.AddCommand(newMCPCmd(load))
	root.AddCommand(newRenderCmd(load))
	root.AddCommand(newTokenCmd(&configFile))
	root.AddCommand(newSecretCmd(&configFile, secrets))
	return root
}

type loader func(cmd *cobra.Command) (*App, error)

func closeApp(cmd *cobra.Command, a *App) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		logx.FromContext(cmd.Context()).Error("shutdown", "err", err)
	}
}

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve pages over HTTP (and watch the image inbox when configured)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer closeApp(cmd, a)

			tokens, err := a.Tokens()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.sessions.Start(); err != nil {
				return err
			}
			if dir := a.cfg.Inbox.Dir; dir != "" {
				if a.cfg.User.ID == "" {
					return errors.New("inbox.dir needs user.id to know whose pages to fill")
				}
				inbox := service.NewInbox(dir, a.cfg.User.ID, a.sessions, a.logger)
				if err := inbox.Start(ctx); err != nil {
					return err
				}
				defer inbox.Stop()
			}

			return web.New(web.Deps{
				Addr:       a.cfg.HTTP.Addr,
				Sessions:   a.sessions,
				Tokens:     tokens,
				ObjectsDir: a.objectsDir,
				Logger:     a.logger,
			}).Run(ctx)
		},
	}
}

func newMCPCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer closeApp(cmd, a)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.ServeMCP(ctx)
		},
	}
}

func newRenderCmd(load loader) *cobra.Command {
	var (
		format string
		user   string
	)
	cmd := &cobra.Command{
		Use:   "render <slug>",
		Short: "Print a page as an HTML fragment or JSON scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer closeApp(cmd, a)

			if user == "" {
				user = a.cfg.User.ID
			}
			ed, err := a.sessions.Open(cmd.Context(), user, args[0])
			if err != nil {
				return err
			}
			if st := ed.Status(); st.Message != "" {
				return errors.New(st.Message)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "html":
				return render.WriteHTML(out, ed.Scene())
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ed.Scene())
			default:
				return fmt.Errorf("unknown format %q (use html or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "html", "output format: html or json")
	cmd.Flags().StringVarP(&user, "user", "u", "", "page owner (defaults to user.id)")
	return cmd
}

func newTokenCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "token <userId>",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			tokens, err := newTokens(cfg)
			if err != nil {
				return err
			}
			token, exp, err := tokens.Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			logx.FromContext(cmd.Context()).Info("token issued", "user", args[0], "expires", exp.Format(time.RFC3339))
			return nil
		},
	}
}
