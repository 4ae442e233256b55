package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"scrapbook/internal/canvas"
	"scrapbook/internal/domain"
	"scrapbook/internal/interaction"
	"scrapbook/internal/objectstore"
	"scrapbook/internal/persist"
	"scrapbook/internal/render"
)

// ─────────────────────────────────────────────────────────────
// Editor: one open scrapbook page
// ─────────────────────────────────────────────────────────────

const loadTimeout = 30 * time.Second

// EditorDeps are the collaborators shared by every editor of a process.
type EditorDeps struct {
	Store    domain.PageStore
	Objects  domain.ObjectStore // nil disables uploads
	Emitter  EventEmitter
	Logger   *log.Logger
	Debounce time.Duration
	Now      func() time.Time
	Board    []canvas.Option
}

func (d EditorDeps) withDefaults() EditorDeps {
	if d.Emitter == nil {
		d.Emitter = MultiEmitter(nil)
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// SaveStatusEvent is the payload of save:status.
type SaveStatusEvent struct {
	Page   domain.PageKey `json:"page"`
	Status persist.Status `json:"status"`
}

// UploadEvent is the payload of block:uploaded and block:upload-error.
type UploadEvent struct {
	Page    domain.PageKey `json:"page"`
	BlockID string         `json:"blockId"`
	URL     string         `json:"url,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Editor owns the board, gesture engine, save coordinator and uploads of one page.
// Pointer handling and I/O completions arrive on different goroutines; mu
// serializes them so the board only ever sees one mutation at a time.
type Editor struct {
	key     domain.PageKey
	deps    EditorDeps
	logger  *log.Logger
	saver   *persist.Coordinator
	uploads persist.UploadGuard

	loadMu  sync.Mutex
	loaded  bool
	tried   bool
	loadErr error

	mu         sync.Mutex
	board      *canvas.Board
	engine     *interaction.Engine
	uploadErrs map[string]string
	lastUsed   time.Time
	edited     bool // a local change exists that the stored page does not have
}

func NewEditor(key domain.PageKey, deps EditorDeps) *Editor {
	deps = deps.withDefaults()
	e := &Editor{
		key:        key,
		deps:       deps,
		logger:     deps.Logger.With("user", key.UserID, "page", key.Slug),
		board:      canvas.NewBoard(nil, deps.Board...),
		uploadErrs: make(map[string]string),
		lastUsed:   deps.Now(),
	}
	// the end hook runs with mu held
	e.engine = interaction.NewEngine(e.board, func(interaction.State) {
		e.edited = true
		e.saver.Schedule()
	})
	e.saver = persist.New(persist.Config{
		Store:    deps.Store,
		Key:      key,
		Snapshot: e.Blocks,
		Debounce: deps.Debounce,
		Logger:   deps.Logger,
		Now:      deps.Now,
		OnStatus: func(s persist.Status) {
			deps.Emitter.Emit(context.Background(), EventSaveStatus, SaveStatusEvent{Page: key, Status: s})
		},
	})
	return e
}

func (e *Editor) Key() domain.PageKey { return e.key }

// Load fetches the stored page. After a successful load it is a no-op. A load
// failure leaves an empty, editable page reported through the save status, and
// the next Load retries as long as nothing was edited in the meantime. Once the
// failed page has been edited, the local copy wins and Load keeps the error.
// The fetch is detached from ctx cancellation so a dropped request is not a load failure.
func (e *Editor) Load(ctx context.Context) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if e.loaded {
		return nil
	}
	e.mu.Lock()
	retry := e.tried
	edited := e.edited
	e.mu.Unlock()
	if retry && edited {
		return e.loadErr
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()
	blocks, err := e.saver.Load(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if retry && e.edited {
		// edited while the retry was in flight
		return e.loadErr
	}
	e.board.Replace(blocks)
	e.tried = true
	e.loadErr = err
	e.loaded = err == nil
	if e.loaded {
		e.logger.Debug("page loaded", "retry", retry, "blocks", len(blocks))
	}
	return err
}

// ─── Mutations ───

// AddBlock creates a block of type t at the viewport-derived position.
func (e *Editor) AddBlock(t domain.BlockType, content string, opts canvas.CreateOptions) (domain.Block, error) {
	if _, err := domain.ParseBlockType(string(t)); err != nil {
		return domain.Block{}, err
	}
	e.mu.Lock()
	blk := e.board.Create(t, content, canvas.DefaultOptions(t, opts))
	e.edited = true
	e.touchLocked()
	e.mu.Unlock()

	e.saver.Schedule()
	return blk, nil
}

func (e *Editor) UpdateBlock(id string, patch domain.BlockPatch) (domain.Block, error) {
	e.mu.Lock()
	blk, ok := e.board.Update(id, patch)
	e.edited = e.edited || ok
	e.touchLocked()
	e.mu.Unlock()

	if !ok {
		return domain.Block{}, fmt.Errorf("update %s: %w", id, domain.ErrBlockNotFound)
	}
	e.saver.Schedule()
	return blk, nil
}

func (e *Editor) DeleteBlock(id string) error {
	e.mu.Lock()
	ok := e.board.Delete(id)
	if ok {
		if e.engine.State().BlockID == id {
			e.engine.Cancel()
		}
		delete(e.uploadErrs, id)
		e.edited = true
	}
	e.touchLocked()
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("delete %s: %w", id, domain.ErrBlockNotFound)
	}
	e.saver.Schedule()
	return nil
}

func (e *Editor) BringToFront(id string) (domain.Block, error) {
	e.mu.Lock()
	blk, ok := e.board.BringToFront(id)
	e.edited = e.edited || ok
	e.touchLocked()
	e.mu.Unlock()

	if !ok {
		return domain.Block{}, fmt.Errorf("bring to front %s: %w", id, domain.ErrBlockNotFound)
	}
	e.saver.Schedule()
	return blk, nil
}

// ─── Pointer input ───

// PointerDown starts a drag or resize. It reports whether a gesture began.
func (e *Editor) PointerDown(blockID string, target interaction.Target, ev interaction.PointerEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touchLocked()
	return e.engine.Press(blockID, target, ev)
}

// PointerMove updates the active gesture. True means the caller should suppress scrolling.
func (e *Editor) PointerMove(ev interaction.PointerEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engine.Move(ev)
}

// PointerUp ends the gesture on up, leave or cancel and schedules one save.
func (e *Editor) PointerUp() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touchLocked()
	return e.engine.Release()
}

func (e *Editor) Gesture() interaction.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engine.State()
}

// ─── Uploads ───

// UploadImage stores the file and points the image block at its public URL.
// At most one upload per block may be pending.
func (e *Editor) UploadImage(ctx context.Context, blockID, filename string, r io.Reader, size int64) (string, error) {
	if e.key.UserID == "" {
		return "", domain.ErrNoUser
	}
	if e.deps.Objects == nil {
		return "", errors.New("image uploads are not configured")
	}
	blk, ok := e.Block(blockID)
	if !ok {
		return "", fmt.Errorf("upload %s: %w", blockID, domain.ErrBlockNotFound)
	}
	if blk.Type != domain.BlockTypeImage && blk.Type != domain.BlockTypePolaroid {
		return "", fmt.Errorf("%w: block %s is a %s, not an image", domain.ErrInvalidBlock, blockID, blk.Type)
	}
	if !e.uploads.TryLock(blockID) {
		return "", fmt.Errorf("upload %s: %w", blockID, domain.ErrUploadInProgress)
	}
	defer e.uploads.Unlock(blockID)

	e.mu.Lock()
	delete(e.uploadErrs, blockID)
	e.mu.Unlock()

	path := objectstore.ObjectPath(e.key.UserID, filename)
	url, err := e.deps.Objects.Upload(ctx, path, r, size, objectstore.ContentType(filename))
	if err != nil {
		e.logger.Error("upload failed", "block", blockID, "err", err)
		e.mu.Lock()
		e.uploadErrs[blockID] = err.Error()
		e.mu.Unlock()
		e.deps.Emitter.Emit(ctx, EventUploadError, UploadEvent{Page: e.key, BlockID: blockID, Error: err.Error()})
		return "", &domain.Failure{Kind: domain.UploadFailure, BlockID: blockID, Err: err}
	}

	if _, err := e.UpdateBlock(blockID, domain.BlockPatch{Content: &url}); err != nil {
		// deleted while uploading; the object stays orphaned
		e.logger.Warn("uploaded image for a removed block", "block", blockID, "url", url)
		return url, err
	}
	e.logger.Info("image uploaded", "block", blockID, "path", path)
	e.deps.Emitter.Emit(ctx, EventUploaded, UploadEvent{Page: e.key, BlockID: blockID, URL: url})
	return url, nil
}

// DismissUploadError clears the inline upload error of a block.
func (e *Editor) DismissUploadError(blockID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.uploadErrs, blockID)
}

// ─── Reads ───

func (e *Editor) Blocks() domain.Collection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board.Snapshot()
}

func (e *Editor) Block(id string) (domain.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board.Get(id)
}

func (e *Editor) Scene() render.Scene {
	uploading := e.uploads.Pending()
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := make(map[string]string, len(e.uploadErrs))
	for k, v := range e.uploadErrs {
		errs[k] = v
	}
	return render.Build(e.board.Snapshot(), render.Options{
		Active:       e.engine.State().BlockID,
		Uploading:    uploading,
		UploadErrors: errs,
	})
}

func (e *Editor) Status() persist.Status { return e.saver.Status() }

func (e *Editor) DismissError() { e.saver.DismissError() }

// SaveNow bypasses the debounce window.
func (e *Editor) SaveNow(ctx context.Context) error { return e.saver.SaveNow(ctx) }

// ─── Lifecycle ───

// Idle reports whether the editor has been unused for at least ttl and has no gesture in progress.
func (e *Editor) Idle(now time.Time, ttl time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.engine.State().Active() && now.Sub(e.lastUsed) >= ttl
}

// Close finishes pending uploads and flushes a pending save.
func (e *Editor) Close(ctx context.Context) error {
	e.mu.Lock()
	e.engine.Release()
	e.mu.Unlock()

	e.uploads.WaitAll(ctx)
	if err := e.saver.Flush(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", e.key, err)
	}
	return nil
}

// Discard drops unsaved changes and stops all further saves. Uploads in flight
// are waited for but no longer reach the store.
func (e *Editor) Discard(ctx context.Context) {
	e.mu.Lock()
	e.engine.Cancel()
	e.mu.Unlock()

	e.saver.Discard(ctx)
	e.uploads.WaitAll(ctx)
}

func (e *Editor) touchLocked() { e.lastUsed = e.deps.Now() }
