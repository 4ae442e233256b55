package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// ─────────────────────────────────────────────────────────────
// Inbox: upload images by dropping files into a directory
// ─────────────────────────────────────────────────────────────

const inboxSeparator = "__"

// ParseInboxName splits "<slug>__<blockId>.<ext>" into its parts.
func ParseInboxName(name string) (slug, blockID string, ok bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".part") {
		return "", "", false
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	slug, blockID, found := strings.Cut(stem, inboxSeparator)
	if !found || slug == "" || blockID == "" {
		return "", "", false
	}
	return slug, blockID, true
}

// Inbox watches a directory and uploads matching files into image blocks of one user's pages.
type Inbox struct {
	dir      string
	userID   string
	sessions *Sessions
	logger   *log.Logger
	settle   time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}

	tmu    sync.Mutex
	timers map[string]*time.Timer // files waiting for their writer to finish
}

func NewInbox(dir, userID string, sessions *Sessions, logger *log.Logger) *Inbox {
	if logger == nil {
		logger = log.Default()
	}
	return &Inbox{
		dir:      dir,
		userID:   userID,
		sessions: sessions,
		logger:   logger.WithPrefix("inbox"),
		settle:   500 * time.Millisecond,
		timers:   make(map[string]*time.Timer),
	}
}

// Start begins watching. Files already present are ingested first.
func (in *Inbox) Start(ctx context.Context) error {
	if err := os.MkdirAll(in.dir, 0755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(in.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", in.dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	in.mu.Lock()
	in.watcher = watcher
	in.cancel = cancel
	in.done = make(chan struct{})
	in.mu.Unlock()

	entries, _ := os.ReadDir(in.dir)
	for _, e := range entries {
		if !e.IsDir() {
			in.ingestLogged(watchCtx, filepath.Join(in.dir, e.Name()))
		}
	}

	go in.loop(watchCtx, watcher, in.done)
	in.logger.Info("watching", "dir", in.dir, "user", in.userID)
	return nil
}

func (in *Inbox) loop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer in.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, _, ok := ParseInboxName(event.Name); !ok {
				continue
			}
			in.ingestWhenSettled(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			in.logger.Error("watcher error", "err", err)
		}
	}
}

// ingestWhenSettled (re)arms the timer of path; the file is ingested once no
// write has arrived for the settle period.
func (in *Inbox) ingestWhenSettled(ctx context.Context, path string) {
	in.tmu.Lock()
	defer in.tmu.Unlock()
	if t, ok := in.timers[path]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(in.settle, func() {
		in.tmu.Lock()
		if in.timers[path] == t {
			delete(in.timers, path)
		}
		in.tmu.Unlock()
		in.ingestLogged(ctx, path)
	})
	in.timers[path] = t
}

func (in *Inbox) stopTimers() {
	in.tmu.Lock()
	defer in.tmu.Unlock()
	for path, t := range in.timers {
		t.Stop()
		delete(in.timers, path)
	}
}

// Settling returns the number of files still waiting for their writer to finish.
func (in *Inbox) Settling() int {
	in.tmu.Lock()
	defer in.tmu.Unlock()
	return len(in.timers)
}

func (in *Inbox) ingestLogged(ctx context.Context, path string) {
	if err := in.Ingest(ctx, path); err != nil {
		in.logger.Error("ingest failed", "file", filepath.Base(path), "err", err)
	}
}

// Ingest uploads one inbox file into its target block and removes it on success.
func (in *Inbox) Ingest(ctx context.Context, path string) error {
	slug, blockID, ok := ParseInboxName(path)
	if !ok {
		return fmt.Errorf("unrecognized inbox file %q", filepath.Base(path))
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil // already ingested
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	ed, err := in.sessions.Open(ctx, in.userID, slug)
	if err != nil {
		return err
	}
	url, err := ed.UploadImage(ctx, blockID, info.Name(), f, info.Size())
	if err != nil {
		return err
	}
	f.Close()
	if err := os.Remove(path); err != nil {
		in.logger.Warn("could not remove ingested file", "file", path, "err", err)
	}
	in.logger.Info("ingested", "page", slug, "block", blockID, "url", url)
	return nil
}

// Stop ends the watch loop and releases the watcher.
func (in *Inbox) Stop() {
	in.mu.Lock()
	cancel, watcher, done := in.cancel, in.watcher, in.done
	in.cancel, in.watcher = nil, nil
	in.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if watcher != nil {
		watcher.Close()
	}
	if done != nil {
		<-done
	}
}
