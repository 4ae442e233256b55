package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"scrapbook/internal/canvas"
	"scrapbook/internal/domain"
	"scrapbook/internal/interaction"
	"scrapbook/internal/logx"
	"scrapbook/internal/service"
	"scrapbook/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────

type fakeObjects struct {
	mu      sync.Mutex
	paths   []string
	fail    error
	release chan struct{} // when set, Upload blocks until closed
	started chan struct{}
}

func (f *fakeObjects) Upload(ctx context.Context, path string, r io.Reader, _ int64, _ string) (string, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	f.paths = append(f.paths, path)
	return "https://cdn.test/" + path, nil
}

type countingStore struct {
	*storage.Memory
	mu   sync.Mutex
	gets int
}

func (c *countingStore) Get(ctx context.Context, key domain.PageKey) (domain.Collection, bool, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Memory.Get(ctx, key)
}

func (c *countingStore) Gets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

// ctxStore fails reads whose context is already done, like a network driver would.
type ctxStore struct{ *storage.Memory }

func (c ctxStore) Get(ctx context.Context, key domain.PageKey) (domain.Collection, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return c.Memory.Get(ctx, key)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var key = domain.PageKey{UserID: "u1", Slug: "summer"}

func testDeps(store domain.PageStore, objects domain.ObjectStore, em *service.MockEmitter) service.EditorDeps {
	n := 0
	var mu sync.Mutex
	return service.EditorDeps{
		Store:    store,
		Objects:  objects,
		Emitter:  em,
		Logger:   logx.Discard(),
		Debounce: 30 * time.Millisecond,
		Board: []canvas.Option{
			canvas.WithRand(rand.New(rand.NewPCG(7, 7))),
			canvas.WithIDs(func() string { mu.Lock(); defer mu.Unlock(); n++; return fmt.Sprintf("blk-%d", n) }),
		},
	}
}

func mouse(x, y float64) interaction.PointerEvent {
	return interaction.PointerEvent{Device: interaction.Mouse, Page: interaction.Point{X: x, Y: y}}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)

	if m.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", m.Len())
	}
	if m.Events[0].Event != "test:event" {
		t.Errorf("expected 'test:event', got %q", m.Events[0].Event)
	}
	if len(m.Named("test:event2")) != 1 {
		t.Error("Named did not filter by event name")
	}
}

func TestMultiEmitter_FansOut(t *testing.T) {
	a, b := &service.MockEmitter{}, &service.MockEmitter{}
	service.MultiEmitter{a, b, service.LogEmitter{Logger: logx.Discard()}}.Emit(context.Background(), "x", 1)
	if a.Len() != 1 || b.Len() != 1 {
		t.Errorf("fan-out reached %d and %d emitters", a.Len(), b.Len())
	}
}

// ─────────────────────────────────────────────────────────────
// Editor tests
// ─────────────────────────────────────────────────────────────

func TestEditor_ScenarioResizeDragDelete(t *testing.T) {
	mem := storage.NewMemory()
	em := &service.MockEmitter{}
	ed := service.NewEditor(key, testDeps(mem, nil, em))
	if err := ed.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	other, _ := ed.AddBlock(domain.BlockTypeSticky, "A note...", canvas.CreateOptions{})
	txt, _ := ed.AddBlock(domain.BlockTypeText, "Start typing here...", canvas.CreateOptions{})
	x, y := 100.0, 100.0
	if _, err := ed.UpdateBlock(txt.ID, domain.BlockPatch{X: &x, Y: &y}); err != nil {
		t.Fatal(err)
	}
	if _, err := ed.BringToFront(other.ID); err != nil {
		t.Fatal(err)
	}

	// resize +150
	ed.PointerDown(txt.ID, "resize-handle", mouse(400, 110))
	ed.PointerMove(mouse(550, 110))
	ed.PointerUp()
	if b, _ := ed.Block(txt.ID); b.Width != 450 {
		t.Fatalf("width = %v, want 450", b.Width)
	}

	// drag by (50,-20)
	ed.PointerDown(txt.ID, "drag-handle", mouse(105, 105))
	ed.PointerMove(mouse(155, 85))
	ed.PointerUp()
	b, _ := ed.Block(txt.ID)
	if b.X != 150 || b.Y != 80 {
		t.Fatalf("position = (%v,%v), want (150,80)", b.X, b.Y)
	}
	for _, o := range ed.Blocks() {
		if o.ID != txt.ID && o.ZIndex >= b.ZIndex {
			t.Errorf("%s z %d not below dragged z %d", o.ID, o.ZIndex, b.ZIndex)
		}
	}

	before := ed.Blocks()
	if err := ed.DeleteBlock(txt.ID); err != nil {
		t.Fatal(err)
	}
	after := ed.Blocks()
	if len(after) != len(before)-1 || after[0] != before[0] {
		t.Errorf("delete changed other blocks: %+v", after)
	}

	waitFor(t, func() bool { return len(mem.Upserts()) >= 1 })
	if err := ed.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	stored, found, _ := mem.Get(context.Background(), key)
	if !found || len(stored) != 1 || stored[0].ID != other.ID {
		t.Errorf("stored = %+v", stored)
	}
	if len(em.Named(service.EventSaveStatus)) == 0 {
		t.Error("no save:status events emitted")
	}
}

func TestEditor_BurstOfMutationsSavesOnce(t *testing.T) {
	mem := storage.NewMemory()
	ed := service.NewEditor(key, testDeps(mem, nil, &service.MockEmitter{}))
	_ = ed.Load(context.Background())

	const n = 5
	for i := 0; i < n; i++ {
		if _, err := ed.AddBlock(domain.BlockTypeSticky, "note", canvas.CreateOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return len(mem.Upserts()) == 1 })
	time.Sleep(80 * time.Millisecond)

	ups := mem.Upserts()
	if len(ups) != 1 || len(ups[0]) != n {
		t.Fatalf("upserts = %d (first has %d blocks), want 1 with %d", len(ups), len(ups[0]), n)
	}
}

func TestEditor_DragMovesDoNotSave(t *testing.T) {
	mem := storage.NewMemory()
	mem.Put(key, domain.Collection{{ID: "a", Type: domain.BlockTypeImage, X: 0, Y: 0, ZIndex: 1}})
	ed := service.NewEditor(key, testDeps(mem, nil, &service.MockEmitter{}))
	_ = ed.Load(context.Background())

	if !ed.PointerDown("a", "body", mouse(5, 5)) {
		t.Fatal("press rejected")
	}
	for i := 1; i <= 6; i++ {
		if !ed.PointerMove(mouse(5+float64(i*10), 5)) {
			t.Fatal("move during drag not handled")
		}
		time.Sleep(15 * time.Millisecond)
	}
	if n := len(mem.Upserts()); n != 0 {
		t.Fatalf("saved %d times during drag", n)
	}
	if ed.Gesture().Mode != "dragging" {
		t.Errorf("mode = %s", ed.Gesture().Mode)
	}

	ed.PointerUp()
	waitFor(t, func() bool { return len(mem.Upserts()) == 1 })
	if got := mem.Upserts()[0][0]; got.X != 60 {
		t.Errorf("saved x = %v, want 60", got.X)
	}
}

func TestEditor_MissingBlock(t *testing.T) {
	ed := service.NewEditor(key, testDeps(storage.NewMemory(), nil, &service.MockEmitter{}))
	content := "x"
	if _, err := ed.UpdateBlock("nope", domain.BlockPatch{Content: &content}); !errors.Is(err, domain.ErrBlockNotFound) {
		t.Errorf("update err = %v", err)
	}
	if err := ed.DeleteBlock("nope"); !errors.Is(err, domain.ErrBlockNotFound) {
		t.Errorf("delete err = %v", err)
	}
	if _, err := ed.BringToFront("nope"); !errors.Is(err, domain.ErrBlockNotFound) {
		t.Errorf("bring to front err = %v", err)
	}
	if _, err := ed.AddBlock("video", "", canvas.CreateOptions{}); !errors.Is(err, domain.ErrInvalidBlock) {
		t.Errorf("add err = %v", err)
	}
}

func TestEditor_LoadFailureStillEditable(t *testing.T) {
	mem := storage.NewMemory()
	mem.FailGet(errors.New("connection refused"))
	ed := service.NewEditor(key, testDeps(mem, nil, &service.MockEmitter{}))

	err := ed.Load(context.Background())
	if kind, _ := domain.FailureKindOf(err); kind != domain.LoadFailure {
		t.Fatalf("err = %v", err)
	}
	if st := ed.Status(); st.State != "error" || !strings.Contains(st.Message, "connection refused") {
		t.Errorf("status = %+v", st)
	}
	if !ed.Scene().Empty {
		t.Error("expected the empty placeholder")
	}
	if _, err := ed.AddBlock(domain.BlockTypeText, "still works", canvas.CreateOptions{}); err != nil {
		t.Fatal(err)
	}
	if len(ed.Blocks()) != 1 {
		t.Error("block not added after load failure")
	}
}

func TestEditor_NoUserSkipsSaves(t *testing.T) {
	mem := storage.NewMemory()
	ed := service.NewEditor(domain.PageKey{Slug: "anon"}, testDeps(mem, nil, &service.MockEmitter{}))
	_, _ = ed.AddBlock(domain.BlockTypeText, "x", canvas.CreateOptions{})
	if err := ed.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(mem.Upserts()) != 0 {
		t.Error("saved without a user")
	}
}

// ─── Uploads ───

func TestEditor_UploadImage(t *testing.T) {
	mem := storage.NewMemory()
	objs := &fakeObjects{}
	em := &service.MockEmitter{}
	ed := service.NewEditor(key, testDeps(mem, objs, em))
	_ = ed.Load(context.Background())
	img, _ := ed.AddBlock(domain.BlockTypeImage, "", canvas.CreateOptions{})

	url, err := ed.UploadImage(context.Background(), img.ID, "beach.PNG", strings.NewReader("bytes"), 5)
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.test/u1/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("url = %q", url)
	}
	if b, _ := ed.Block(img.ID); b.Content != url {
		t.Errorf("content = %q", b.Content)
	}
	if len(em.Named(service.EventUploaded)) != 1 {
		t.Error("missing uploaded event")
	}
	waitFor(t, func() bool {
		ups := mem.Upserts()
		return len(ups) > 0 && ups[len(ups)-1][0].Content == url
	})
}

func TestEditor_UploadOnePerBlock(t *testing.T) {
	objs := &fakeObjects{release: make(chan struct{}), started: make(chan struct{})}
	ed := service.NewEditor(key, testDeps(storage.NewMemory(), objs, &service.MockEmitter{}))
	img, _ := ed.AddBlock(domain.BlockTypeImage, "", canvas.CreateOptions{})

	errc := make(chan error, 1)
	go func() {
		_, err := ed.UploadImage(context.Background(), img.ID, "a.jpg", strings.NewReader("a"), 1)
		errc <- err
	}()
	<-objs.started

	if !ed.Scene().Elements[0].Uploading {
		t.Error("scene should show the pending upload")
	}
	if _, err := ed.UploadImage(context.Background(), img.ID, "b.jpg", strings.NewReader("b"), 1); !errors.Is(err, domain.ErrUploadInProgress) {
		t.Errorf("second upload err = %v", err)
	}
	close(objs.release)
	if err := <-errc; err != nil {
		t.Fatalf("first upload: %v", err)
	}
}

func TestEditor_UploadFailureIsPerBlock(t *testing.T) {
	mem := storage.NewMemory()
	objs := &fakeObjects{fail: errors.New("bucket gone")}
	em := &service.MockEmitter{}
	ed := service.NewEditor(key, testDeps(mem, objs, em))
	img, _ := ed.AddBlock(domain.BlockTypeImage, "", canvas.CreateOptions{})
	note, _ := ed.AddBlock(domain.BlockTypeSticky, "keep", canvas.CreateOptions{})
	if err := ed.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	savesBefore := len(mem.Upserts())

	_, err := ed.UploadImage(context.Background(), img.ID, "x.png", strings.NewReader("x"), 1)
	if kind, _ := domain.FailureKindOf(err); kind != domain.UploadFailure {
		t.Fatalf("err = %v, want UploadFailure", err)
	}
	scene := ed.Scene()
	if scene.Elements[0].UploadError != "bucket gone" || scene.Elements[1].UploadError != "" {
		t.Errorf("upload errors = %q / %q", scene.Elements[0].UploadError, scene.Elements[1].UploadError)
	}
	if b, _ := ed.Block(note.ID); b.Content != "keep" {
		t.Error("other block changed")
	}
	if len(em.Named(service.EventUploadError)) != 1 {
		t.Error("missing upload-error event")
	}
	time.Sleep(60 * time.Millisecond)
	if len(mem.Upserts()) != savesBefore {
		t.Error("failed upload triggered a save")
	}

	ed.DismissUploadError(img.ID)
	if ed.Scene().Elements[0].UploadError != "" {
		t.Error("upload error not dismissed")
	}
}

func TestEditor_UploadRejections(t *testing.T) {
	objs := &fakeObjects{}
	ed := service.NewEditor(key, testDeps(storage.NewMemory(), objs, &service.MockEmitter{}))
	txt, _ := ed.AddBlock(domain.BlockTypeText, "", canvas.CreateOptions{})
	if _, err := ed.UploadImage(context.Background(), txt.ID, "a.png", strings.NewReader("a"), 1); !errors.Is(err, domain.ErrInvalidBlock) {
		t.Errorf("upload to text block err = %v", err)
	}

	anon := service.NewEditor(domain.PageKey{Slug: "x"}, testDeps(storage.NewMemory(), objs, &service.MockEmitter{}))
	img, _ := anon.AddBlock(domain.BlockTypeImage, "", canvas.CreateOptions{})
	if _, err := anon.UploadImage(context.Background(), img.ID, "a.png", strings.NewReader("a"), 1); !errors.Is(err, domain.ErrNoUser) {
		t.Errorf("anonymous upload err = %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// Sessions tests
// ─────────────────────────────────────────────────────────────

func TestSessions_OpenLoadsOnce(t *testing.T) {
	store := &countingStore{Memory: storage.NewMemory()}
	s := service.NewSessions(testDeps(store, nil, &service.MockEmitter{}), service.SessionsConfig{})

	a, err := s.Open(context.Background(), "u1", "summer")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := s.Open(context.Background(), "u1", "summer")
	if a != b {
		t.Error("expected the cached editor")
	}
	if store.Gets() != 1 {
		t.Errorf("store Get called %d times, want 1", store.Gets())
	}
	if _, err := s.Open(context.Background(), "", "summer"); !errors.Is(err, domain.ErrNoUser) {
		t.Errorf("open without user err = %v", err)
	}
}

func TestSessions_ReopenAfterLoadFailureRefetches(t *testing.T) {
	mem := storage.NewMemory()
	mem.Put(key, domain.Collection{
		{ID: "a", Type: domain.BlockTypeText, Content: "one"},
		{ID: "b", Type: domain.BlockTypeSticky, Content: "two"},
		{ID: "c", Type: domain.BlockTypeQuote, Content: "three"},
	})
	s := service.NewSessions(testDeps(mem, nil, &service.MockEmitter{}), service.SessionsConfig{})

	mem.FailGet(errors.New("transient blip"))
	ed, err := s.Open(context.Background(), key.UserID, key.Slug)
	if err != nil {
		t.Fatal(err)
	}
	if len(ed.Blocks()) != 0 || ed.Status().State != "error" {
		t.Fatalf("after failed load: blocks = %d, status = %+v", len(ed.Blocks()), ed.Status())
	}

	mem.FailGet(nil)
	ed, err = s.Open(context.Background(), key.UserID, key.Slug)
	if err != nil {
		t.Fatal(err)
	}
	if len(ed.Blocks()) != 3 {
		t.Fatalf("reopen kept %d blocks, want the 3 stored", len(ed.Blocks()))
	}
	if st := ed.Status(); st.State == "error" {
		t.Errorf("status still shows the old load error: %+v", st)
	}

	if _, err := ed.AddBlock(domain.BlockTypeText, "four", canvas.CreateOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(context.Background(), key); err != nil {
		t.Fatal(err)
	}
	stored, _, _ := mem.Get(context.Background(), key)
	if len(stored) != 4 {
		t.Errorf("stored page has %d blocks, want 4", len(stored))
	}
}

func TestSessions_EditedAfterLoadFailureKeepsLocalPage(t *testing.T) {
	store := &countingStore{Memory: storage.NewMemory()}
	store.Put(key, domain.Collection{{ID: "a", Type: domain.BlockTypeText}})
	deps := testDeps(store, nil, &service.MockEmitter{})
	deps.Debounce = time.Hour
	s := service.NewSessions(deps, service.SessionsConfig{})

	store.FailGet(errors.New("down"))
	ed, _ := s.Open(context.Background(), key.UserID, key.Slug)
	blk, _ := ed.AddBlock(domain.BlockTypeSticky, "local", canvas.CreateOptions{})

	store.FailGet(nil)
	again, _ := s.Open(context.Background(), key.UserID, key.Slug)
	if again != ed {
		t.Fatal("expected the cached editor")
	}
	if store.Gets() != 1 {
		t.Errorf("store Get called %d times, want 1", store.Gets())
	}
	if got := ed.Blocks(); len(got) != 1 || got[0].ID != blk.ID {
		t.Errorf("local edits replaced: %+v", got)
	}
}

func TestSessions_CanceledRequestStillLoads(t *testing.T) {
	mem := storage.NewMemory()
	mem.Put(key, domain.Collection{{ID: "a", Type: domain.BlockTypeText}})
	s := service.NewSessions(testDeps(ctxStore{mem}, nil, &service.MockEmitter{}), service.SessionsConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ed, err := s.Open(ctx, key.UserID, key.Slug)
	if err != nil {
		t.Fatal(err)
	}
	if len(ed.Blocks()) != 1 || ed.Status().State == "error" {
		t.Errorf("blocks = %d, status = %+v", len(ed.Blocks()), ed.Status())
	}
}

func TestSessions_PagesListsStoredPages(t *testing.T) {
	mem := storage.NewMemory()
	mem.Put(domain.PageKey{UserID: "u1", Slug: "spring"}, domain.Collection{{ID: "a", Type: domain.BlockTypeText}})
	mem.Put(domain.PageKey{UserID: "u2", Slug: "winter"}, domain.Collection{})
	s := service.NewSessions(testDeps(mem, nil, &service.MockEmitter{}), service.SessionsConfig{})

	pages, err := s.Pages(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0].Slug != "spring" || pages[0].Blocks != 1 {
		t.Errorf("pages = %+v", pages)
	}
	if _, err := s.Pages(context.Background(), ""); !errors.Is(err, domain.ErrNoUser) {
		t.Errorf("no user err = %v", err)
	}
}

func TestSessions_DeletePageDropsPendingSave(t *testing.T) {
	mem := storage.NewMemory()
	em := &service.MockEmitter{}
	deps := testDeps(mem, nil, em)
	deps.Debounce = 20 * time.Millisecond
	s := service.NewSessions(deps, service.SessionsConfig{})

	ed, _ := s.Open(context.Background(), key.UserID, key.Slug)
	if _, err := ed.AddBlock(domain.BlockTypeText, "bye", canvas.CreateOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeletePage(context.Background(), key.UserID, key.Slug); err != nil {
		t.Fatalf("delete unsaved open page: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	if _, found, _ := mem.Get(context.Background(), key); found {
		t.Error("pending save recreated the deleted page")
	}
	if _, ok := s.Get(key); ok {
		t.Error("editor still open after delete")
	}
	if len(em.Named(service.EventPageDeleted)) != 1 {
		t.Error("page:deleted not emitted")
	}
	if _, err := ed.AddBlock(domain.BlockTypeText, "late", canvas.CreateOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := ed.Close(context.Background()); err != nil {
		t.Errorf("closing a discarded editor: %v", err)
	}
	if len(mem.Upserts()) != 0 {
		t.Errorf("discarded editor saved %d times", len(mem.Upserts()))
	}
}

func TestSessions_DeleteStoredPage(t *testing.T) {
	mem := storage.NewMemory()
	mem.Put(key, domain.Collection{{ID: "a", Type: domain.BlockTypeText}})
	s := service.NewSessions(testDeps(mem, nil, &service.MockEmitter{}), service.SessionsConfig{})

	if err := s.DeletePage(context.Background(), key.UserID, key.Slug); err != nil {
		t.Fatal(err)
	}
	if pages, _ := s.Pages(context.Background(), key.UserID); len(pages) != 0 {
		t.Errorf("pages after delete = %+v", pages)
	}
	if err := s.DeletePage(context.Background(), key.UserID, key.Slug); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestSessions_SweepClosesIdleEditors(t *testing.T) {
	mem := storage.NewMemory()
	clk := &clock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	deps := testDeps(mem, nil, &service.MockEmitter{})
	deps.Debounce = time.Hour
	deps.Now = clk.Now
	s := service.NewSessions(deps, service.SessionsConfig{IdleTTL: 10 * time.Minute})

	idle, _ := s.Open(context.Background(), "u1", "old")
	_, _ = idle.AddBlock(domain.BlockTypeText, "pending", canvas.CreateOptions{})
	clk.Advance(8 * time.Minute)
	busy, _ := s.Open(context.Background(), "u1", "new")
	_, _ = busy.AddBlock(domain.BlockTypeText, "fresh", canvas.CreateOptions{})
	clk.Advance(5 * time.Minute)

	s.Sweep()

	if _, ok := s.Get(idle.Key()); ok {
		t.Error("idle editor still open")
	}
	if _, ok := s.Get(busy.Key()); !ok {
		t.Error("recently used editor was closed")
	}
	if stored, found, _ := mem.Get(context.Background(), idle.Key()); !found || len(stored) != 1 {
		t.Error("idle editor's pending save was not flushed")
	}
}

func TestSessions_ShutdownFlushesAll(t *testing.T) {
	mem := storage.NewMemory()
	deps := testDeps(mem, nil, &service.MockEmitter{})
	deps.Debounce = time.Hour
	s := service.NewSessions(deps, service.SessionsConfig{SweepInterval: time.Hour})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	for _, slug := range []string{"a", "b"} {
		ed, _ := s.Open(context.Background(), "u1", slug)
		_, _ = ed.AddBlock(domain.BlockTypeSticky, slug, canvas.CreateOptions{})
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 || len(mem.Upserts()) != 2 {
		t.Errorf("open = %d, upserts = %d", s.Len(), len(mem.Upserts()))
	}
}
