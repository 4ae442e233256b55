// Package persist loads a page once and writes it back as debounced full snapshots.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"

	"scrapbook/internal/domain"
)

const (
	DefaultDebounce = 800 * time.Millisecond
	saveTimeout     = 30 * time.Second
)

type State string

const (
	StateIdle   State = "idle"
	StateSaving State = "saving"
	StateSaved  State = "saved"
	StateError  State = "error"
)

// Status is the save indicator shown to the user.
type Status struct {
	State   State     `json:"state"`
	At      time.Time `json:"at,omitzero"`
	Message string    `json:"message,omitempty"`
}

type Config struct {
	Store    domain.PageStore
	Key      domain.PageKey
	Snapshot func() domain.Collection // read at save time, never at schedule time
	Debounce time.Duration
	Logger   *log.Logger
	OnStatus func(Status)
	Now      func() time.Time
}

// Coordinator owns the save cycle of one (user, page).
type Coordinator struct {
	store    domain.PageStore
	key      domain.PageKey
	snapshot func() domain.Collection
	logger   *log.Logger
	onStatus func(Status)
	now      func() time.Time
	debounce func(func())

	mu        sync.Mutex
	status    Status
	previous  Status // last non-error status, restored by DismissError
	pending   bool
	discarded bool
	inflight  sync.WaitGroup
}

func New(cfg Config) *Coordinator {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	idle := Status{State: StateIdle}
	return &Coordinator{
		store:    cfg.Store,
		key:      cfg.Key,
		snapshot: cfg.Snapshot,
		logger:   cfg.Logger.With("user", cfg.Key.UserID, "page", cfg.Key.Slug),
		onStatus: cfg.OnStatus,
		now:      cfg.Now,
		debounce: debounce.New(cfg.Debounce),
		status:   idle,
		previous: idle,
	}
}

// Load fetches the stored collection. A missing row is an empty page. A failing
// store yields an empty page plus a LoadFailure so editing can continue. A
// malformed collection is also a LoadFailure; its valid blocks are still returned.
// A successful load clears an earlier load error from the status.
func (c *Coordinator) Load(ctx context.Context) (domain.Collection, error) {
	if c.key.UserID == "" {
		c.logger.Debug("load skipped: no user")
		return domain.Collection{}, nil
	}
	blocks, found, err := c.store.Get(ctx, c.key)
	if err != nil {
		c.logger.Error("load failed", "err", err)
		c.setStatus(Status{State: StateError, Message: "load error: " + err.Error()})
		return domain.Collection{}, &domain.Failure{Kind: domain.LoadFailure, Err: err}
	}
	if !found {
		c.logger.Debug("no stored page, starting empty")
		c.DismissError()
		return domain.Collection{}, nil
	}
	valid, dropped := blocks.Sanitize()
	if len(dropped) > 0 {
		err := fmt.Errorf("stored page is malformed, %d of %d blocks dropped: %w", len(dropped), len(blocks), errors.Join(dropped...))
		c.logger.Error("load failed", "dropped", len(dropped), "err", err)
		c.setStatus(Status{State: StateError, Message: fmt.Sprintf("load error: %d invalid blocks were skipped", len(dropped))})
		return valid, &domain.Failure{Kind: domain.LoadFailure, Err: err}
	}
	c.DismissError()
	c.logger.Debug("page loaded", "blocks", len(blocks))
	return blocks, nil
}

// Schedule (re)starts the debounce window. Only the last call in a window saves.
func (c *Coordinator) Schedule() {
	c.mu.Lock()
	if c.discarded {
		c.mu.Unlock()
		return
	}
	c.pending = true
	c.mu.Unlock()
	c.debounce(c.fire)
}

func (c *Coordinator) fire() {
	if !c.takePending() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	_ = c.SaveNow(ctx)
}

func (c *Coordinator) takePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pending
	c.pending = false
	return p
}

// Pending reports whether a debounced save is waiting to fire.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// SaveNow writes the current snapshot: upsert, and on a uniqueness conflict a
// single update. It consumes a pending debounced save, since the snapshot it
// writes already holds those changes. Local state is never rolled back on failure.
func (c *Coordinator) SaveNow(ctx context.Context) error {
	if c.key.UserID == "" {
		c.logger.Debug("save skipped: no user")
		return domain.ErrNoUser
	}
	c.mu.Lock()
	if c.discarded {
		c.mu.Unlock()
		return fmt.Errorf("save page %s: %w", c.key, domain.ErrNotFound)
	}
	c.pending = false
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	c.setStatus(Status{State: StateSaving})
	blocks := c.snapshot()

	err := c.store.Upsert(ctx, c.key, blocks)
	if errors.Is(err, domain.ErrConflict) {
		c.logger.Debug("upsert conflict, retrying as update", "kind", domain.SaveConflict)
		err = c.store.Update(ctx, c.key, blocks)
	}
	if err != nil {
		c.logger.Error("save failed", "blocks", len(blocks), "err", err)
		c.setStatus(Status{State: StateError, Message: "save error: " + err.Error()})
		return &domain.Failure{Kind: domain.SaveFailure, Err: fmt.Errorf("save page %s: %w", c.key, err)}
	}

	c.logger.Debug("page saved", "blocks", len(blocks))
	c.setStatus(Status{State: StateSaved, At: c.now()})
	return nil
}

// Flush runs a pending debounced save immediately and waits for saves in flight.
func (c *Coordinator) Flush(ctx context.Context) error {
	var err error
	if c.takePending() {
		err = c.SaveNow(ctx)
		if errors.Is(err, domain.ErrNoUser) {
			err = nil
		}
	}
	waitGroup(ctx, &c.inflight)
	return err
}

// Discard drops a pending save and refuses later ones, then waits for saves in
// flight. Used when the page itself is deleted.
func (c *Coordinator) Discard(ctx context.Context) {
	c.mu.Lock()
	c.discarded = true
	c.pending = false
	c.mu.Unlock()
	waitGroup(ctx, &c.inflight)
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// DismissError hides a visible error, falling back to the last saved or idle status.
func (c *Coordinator) DismissError() {
	c.mu.Lock()
	if c.status.State != StateError {
		c.mu.Unlock()
		return
	}
	restore := c.previous
	c.mu.Unlock()
	c.setStatus(restore)
}

func (c *Coordinator) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	if s.State == StateSaved || s.State == StateIdle {
		c.previous = s
	}
	c.mu.Unlock()
	if c.onStatus != nil {
		c.onStatus(s)
	}
}
