package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"scrapbook/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Sessions: open editors keyed by (user, page)
// ─────────────────────────────────────────────────────────────

type SessionsConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// Sessions caches one Editor per page view and discards idle ones on a cron schedule.
type Sessions struct {
	deps   EditorDeps
	cfg    SessionsConfig
	logger *log.Logger

	mu      sync.Mutex
	editors map[domain.PageKey]*Editor
	sched   *cron.Cron
}

func NewSessions(deps EditorDeps, cfg SessionsConfig) *Sessions {
	deps = deps.withDefaults()
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Sessions{
		deps:    deps,
		cfg:     cfg,
		logger:  deps.Logger.WithPrefix("sessions"),
		editors: make(map[domain.PageKey]*Editor),
	}
}

// Start schedules the idle sweep.
func (s *Sessions) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.cfg.SweepInterval), s.Sweep); err != nil {
		return fmt.Errorf("schedule idle sweep: %w", err)
	}
	c.Start()
	s.mu.Lock()
	s.sched = c
	s.mu.Unlock()
	s.logger.Debug("idle sweep scheduled", "every", s.cfg.SweepInterval, "ttl", s.cfg.IdleTTL)
	return nil
}

// Open returns the editor for (userID, slug), creating and loading it on first use.
// A failed load still yields a usable, empty editor whose status shows the error;
// opening the page again retries the load until the page has been edited.
func (s *Sessions) Open(ctx context.Context, userID, slug string) (*Editor, error) {
	if userID == "" {
		return nil, domain.ErrNoUser
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: empty page slug", domain.ErrNotFound)
	}
	key := domain.PageKey{UserID: userID, Slug: slug}

	s.mu.Lock()
	ed, ok := s.editors[key]
	if !ok {
		ed = NewEditor(key, s.deps)
		s.editors[key] = ed
		s.logger.Debug("editor opened", "user", userID, "page", slug)
	}
	s.mu.Unlock()

	if err := ed.Load(ctx); err != nil {
		if kind, _ := domain.FailureKindOf(err); kind != domain.LoadFailure {
			return nil, err
		}
		s.logger.Warn("page opened without stored content", "user", userID, "page", slug, "err", err)
	}
	return ed, nil
}

// Pages lists the stored pages of userID, most recently saved first.
func (s *Sessions) Pages(ctx context.Context, userID string) ([]domain.PageSummary, error) {
	if userID == "" {
		return nil, domain.ErrNoUser
	}
	pages, err := s.deps.Store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list pages of %s: %w", userID, err)
	}
	return pages, nil
}

// DeletePage removes a page from the store. An open editor for it is
// discarded first, so no pending save can bring the page back. Deleting a page
// that was opened but never saved succeeds.
func (s *Sessions) DeletePage(ctx context.Context, userID, slug string) error {
	if userID == "" {
		return domain.ErrNoUser
	}
	if slug == "" {
		return fmt.Errorf("%w: empty page slug", domain.ErrNotFound)
	}
	key := domain.PageKey{UserID: userID, Slug: slug}

	s.mu.Lock()
	ed, open := s.editors[key]
	delete(s.editors, key)
	s.mu.Unlock()
	if open {
		ed.Discard(ctx)
	}

	err := s.deps.Store.Delete(ctx, key)
	if errors.Is(err, domain.ErrNotFound) && open {
		err = nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("page deleted", "user", userID, "page", slug)
	s.deps.Emitter.Emit(ctx, EventPageDeleted, key)
	return nil
}

func (s *Sessions) Get(key domain.PageKey) (*Editor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ed, ok := s.editors[key]
	return ed, ok
}

// Len returns the number of open editors.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.editors)
}

// Close flushes and discards the editor for key, if open.
func (s *Sessions) Close(ctx context.Context, key domain.PageKey) error {
	s.mu.Lock()
	ed, ok := s.editors[key]
	delete(s.editors, key)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return ed.Close(ctx)
}

// Sweep closes editors that have been idle longer than the TTL.
func (s *Sessions) Sweep() {
	now := s.deps.Now()
	s.mu.Lock()
	var idle []*Editor
	for key, ed := range s.editors {
		if ed.Idle(now, s.cfg.IdleTTL) {
			idle = append(idle, ed)
			delete(s.editors, key)
		}
	}
	s.mu.Unlock()

	for _, ed := range idle {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := ed.Close(ctx); err != nil {
			s.logger.Error("closing idle editor", "page", ed.Key(), "err", err)
		} else {
			s.logger.Debug("idle editor closed", "page", ed.Key())
		}
		cancel()
	}
}

// Shutdown stops the sweep and flushes every open editor.
func (s *Sessions) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	sched := s.sched
	s.sched = nil
	editors := s.editors
	s.editors = make(map[domain.PageKey]*Editor)
	s.mu.Unlock()

	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-ctx.Done():
		}
	}

	var errs []error
	for _, ed := range editors {
		if err := ed.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
