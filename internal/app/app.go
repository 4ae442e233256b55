package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"scrapbook/internal/config"
	"scrapbook/internal/domain"
	"scrapbook/internal/identity"
	"scrapbook/internal/objectstore"
	"scrapbook/internal/secret"
	"scrapbook/internal/service"
	"scrapbook/internal/storage"
)

// App holds the wired process: page store, object store and open editors.
type App struct {
	cfg        *config.Config
	logger     *log.Logger
	store      domain.PageStore
	objects    domain.ObjectStore
	objectsDir string // set when images are stored on local disk
	sessions   *service.Sessions
}

// New connects the configured backends. secrets resolves *_ref settings; nil means the OS keychain.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger, secrets secret.Store) (*App, error) {
	if secrets == nil {
		secrets = secret.NewKeychainStore()
	}

	password, err := secret.Resolve(secrets, cfg.Store.PasswordRef, cfg.Store.Password)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, storage.Config{
		Driver:   storage.Driver(cfg.Store.Driver),
		DSN:      cfg.Store.DSN,
		Host:     cfg.Store.Host,
		Port:     cfg.Store.Port,
		User:     cfg.Store.User,
		Password: password,
		Database: cfg.Store.Database,
		SSLMode:  cfg.Store.SSLMode,
		DataDir:  cfg.DataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	logger.Debug("page store ready", "driver", cfg.Store.Driver)

	a := &App{cfg: cfg, logger: logger, store: store}
	if err := a.openObjects(ctx, secrets); err != nil {
		store.Close()
		return nil, err
	}

	a.sessions = service.NewSessions(service.EditorDeps{
		Store:    store,
		Objects:  a.objects,
		Emitter:  service.LogEmitter{Logger: logger.WithPrefix("events")},
		Logger:   logger,
		Debounce: cfg.Save.Debounce,
	}, service.SessionsConfig{
		IdleTTL:       cfg.Session.IdleTTL,
		SweepInterval: cfg.Session.SweepInterval,
	})
	return a, nil
}

func (a *App) openObjects(ctx context.Context, secrets secret.Store) error {
	switch a.cfg.Objects.Driver {
	case "s3":
		secretKey, err := secret.Resolve(secrets, a.cfg.S3.SecretRef, a.cfg.S3.SecretKey)
		if err != nil {
			return err
		}
		s3, err := objectstore.NewS3(objectstore.S3Config{
			Endpoint:  a.cfg.S3.Endpoint,
			Region:    a.cfg.S3.Region,
			Bucket:    a.cfg.S3.Bucket,
			AccessKey: a.cfg.S3.AccessKey,
			SecretKey: secretKey,
			UseSSL:    a.cfg.S3.UseSSL,
			PathStyle: a.cfg.S3.PathStyle,
			PublicURL: a.cfg.S3.PublicURL,
		})
		if err != nil {
			return err
		}
		if err := s3.EnsureBucket(ctx, a.cfg.S3.Region); err != nil {
			a.logger.Warn("bucket check failed", "bucket", a.cfg.S3.Bucket, "err", err)
		}
		a.objects = s3
	default:
		local, err := objectstore.NewLocal(a.cfg.Objects.Dir, a.cfg.Objects.BaseURL)
		if err != nil {
			return err
		}
		a.objects = local
		a.objectsDir = local.Dir()
	}
	a.logger.Debug("object store ready", "driver", a.cfg.Objects.Driver)
	return nil
}

// Tokens returns the bearer token issuer configured by auth.*.
func (a *App) Tokens() (*identity.Tokens, error) {
	return newTokens(a.cfg)
}

func newTokens(cfg *config.Config) (*identity.Tokens, error) {
	if cfg.Auth.Secret == "" {
		return nil, errors.New("auth.secret is required (set SCRAPBOOK_AUTH_SECRET)")
	}
	return identity.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TTL), nil
}

// Close flushes every open page and releases the stores.
func (a *App) Close(ctx context.Context) error {
	err := a.sessions.Shutdown(ctx)
	if cerr := a.store.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close store: %w", cerr))
	}
	return err
}
