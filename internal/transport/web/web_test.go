package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scrapbook/internal/domain"
	"scrapbook/internal/identity"
	"scrapbook/internal/logx"
	"scrapbook/internal/objectstore"
	"scrapbook/internal/service"
	"scrapbook/internal/storage"
	"scrapbook/internal/transport/web"
)

type fixture struct {
	srv   *httptest.Server
	mem   *storage.Memory
	token string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	objectsDir := t.TempDir()
	objects, err := objectstore.NewLocal(objectsDir, "/objects")
	if err != nil {
		t.Fatal(err)
	}
	mem := storage.NewMemory()
	sessions := service.NewSessions(service.EditorDeps{
		Store:    mem,
		Objects:  objects,
		Logger:   logx.Discard(),
		Debounce: 20 * time.Millisecond,
	}, service.SessionsConfig{})
	t.Cleanup(func() { _ = sessions.Shutdown(context.Background()) })

	tokens := identity.NewTokens("test-secret", "scrapbook", time.Hour)
	token, _, err := tokens.Issue("u1")
	if err != nil {
		t.Fatal(err)
	}

	ws := web.New(web.Deps{Sessions: sessions, Tokens: tokens, ObjectsDir: objectsDir, Logger: logx.Discard()})
	srv := httptest.NewServer(ws.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, mem: mem, token: token}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code int    `json:"code"`
		Text string `json:"text"`
	} `json:"error"`
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, f.srv.URL+path, r)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return v
}

// ─── Auth / health ───

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestPages_RequireToken(t *testing.T) {
	f := newFixture(t)
	for _, auth := range []string{"", "Bearer nope"} {
		req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/v1/pages/summer", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("auth %q: status = %d, want 401", auth, resp.StatusCode)
		}
	}
}

// ─── Page workflow ───

func TestPages_EditWorkflow(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodGet, "/v1/pages/summer", nil)
	if code != http.StatusOK {
		t.Fatalf("get empty page: %d", code)
	}
	empty := decodeData[struct {
		Scene struct {
			Empty bool `json:"empty"`
		} `json:"scene"`
	}](t, env)
	if !empty.Scene.Empty {
		t.Error("new page should render the empty placeholder")
	}

	code, env = f.do(t, http.MethodPost, "/v1/pages/summer/blocks", map[string]any{"type": "text", "font": "Typewriter"})
	if code != http.StatusCreated {
		t.Fatalf("add block: %d %+v", code, env.Error)
	}
	txt := decodeData[domain.Block](t, env)
	if txt.Content != "Start typing here..." || txt.FontFamily != "'Courier New', monospace" {
		t.Errorf("text block = %+v", txt)
	}

	code, env = f.do(t, http.MethodPatch, "/v1/pages/summer/blocks/"+txt.ID, map[string]any{"x": 100, "y": 100, "width": 50})
	if code != http.StatusOK {
		t.Fatalf("patch: %d", code)
	}
	if got := decodeData[domain.Block](t, env); got.Width != domain.MinTextWidth {
		t.Errorf("width = %v, want clamp to %v", got.Width, domain.MinTextWidth)
	}

	// drag through the pointer endpoint
	steps := []map[string]any{
		{"phase": "down", "blockId": txt.ID, "target": "drag-handle", "page": map[string]any{"x": 110, "y": 110}},
		{"phase": "move", "page": map[string]any{"x": 160, "y": 90}},
		{"phase": "up"},
	}
	for _, s := range steps {
		if code, env := f.do(t, http.MethodPost, "/v1/pages/summer/pointer", s); code != http.StatusOK {
			t.Fatalf("pointer %v: %d %+v", s["phase"], code, env.Error)
		}
	}

	code, env = f.do(t, http.MethodPost, "/v1/pages/summer/blocks/"+txt.ID+"/front", nil)
	if code != http.StatusOK {
		t.Fatalf("front: %d", code)
	}
	moved := decodeData[domain.Block](t, env)
	if moved.X != 150 || moved.Y != 80 {
		t.Errorf("position = (%v,%v), want (150,80)", moved.X, moved.Y)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(f.mem.Upserts()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	_, env = f.do(t, http.MethodGet, "/v1/pages/summer/status", nil)
	if st := decodeData[struct {
		State string `json:"state"`
	}](t, env); st.State != "saved" && st.State != "saving" {
		t.Errorf("status = %s", st.State)
	}

	if code, _ := f.do(t, http.MethodDelete, "/v1/pages/summer/blocks/"+txt.ID, nil); code != http.StatusOK {
		t.Errorf("delete: %d", code)
	}
	if code, env := f.do(t, http.MethodDelete, "/v1/pages/summer/blocks/"+txt.ID, nil); code != http.StatusNotFound || env.Error.Code != web.CodeNotFound {
		t.Errorf("second delete: %d", code)
	}
}

func TestPages_BadRequests(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown type", http.MethodPost, "/v1/pages/p/blocks", map[string]any{"type": "video"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/pages/p/blocks", map[string]any{"type": "text", "colour": "red"}, http.StatusBadRequest},
		{"unknown font", http.MethodPost, "/v1/pages/p/blocks", map[string]any{"type": "text", "font": "Comic Sans"}, http.StatusBadRequest},
		{"unknown phase", http.MethodPost, "/v1/pages/p/pointer", map[string]any{"phase": "hover"}, http.StatusBadRequest},
		{"unknown target", http.MethodPost, "/v1/pages/p/pointer", map[string]any{"phase": "down", "target": "corner"}, http.StatusBadRequest},
		{"missing block", http.MethodPatch, "/v1/pages/p/blocks/ghost", map[string]any{"x": 1}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _ := f.do(t, tt.method, tt.path, tt.body); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}

// ─── Uploads ───

func TestPages_UploadImage(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, http.MethodPost, "/v1/pages/trip/blocks", map[string]any{"type": "image"})
	img := decodeData[domain.Block](t, env)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "beach.png")
	part.Write([]byte("fake png bytes"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, f.srv.URL+"/v1/pages/trip/blocks/"+img.ID+"/image", &body)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var env2 envelope
	_ = json.NewDecoder(resp.Body).Decode(&env2)
	out := decodeData[struct {
		URL string `json:"url"`
	}](t, env2)
	if !strings.HasPrefix(out.URL, "/objects/u1/") || !strings.HasSuffix(out.URL, ".png") {
		t.Fatalf("url = %q", out.URL)
	}

	got, err := http.Get(f.srv.URL + out.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer got.Body.Close()
	data, _ := io.ReadAll(got.Body)
	if string(data) != "fake png bytes" {
		t.Errorf("served object = %q", data)
	}

	// uploads into a non-image block are rejected
	_, env = f.do(t, http.MethodPost, "/v1/pages/trip/blocks", map[string]any{"type": "sticky"})
	sticky := decodeData[domain.Block](t, env)
	body.Reset()
	mw = multipart.NewWriter(&body)
	part, _ = mw.CreateFormFile("file", "x.png")
	part.Write([]byte("x"))
	mw.Close()
	req, _ = http.NewRequest(http.MethodPost, f.srv.URL+"/v1/pages/trip/blocks/"+sticky.ID+"/image", &body)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("sticky upload status = %d, want 400", resp2.StatusCode)
	}
}

func TestPages_HTMLFormat(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/pages/p/blocks", map[string]any{"type": "header", "content": "<b>Trip</b>"})

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/v1/pages/p?format=html", nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	html, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(html), "&lt;b&gt;Trip&lt;/b&gt;") {
		t.Errorf("header content not escaped: %s", html)
	}
}

// ─── Page listing ───

func TestPages_ListAndDelete(t *testing.T) {
	f := newFixture(t)
	f.mem.Put(domain.PageKey{UserID: "u1", Slug: "spring"}, domain.Collection{{ID: "a", Type: domain.BlockTypeText}})
	f.mem.Put(domain.PageKey{UserID: "u2", Slug: "private"}, domain.Collection{})

	code, env := f.do(t, http.MethodGet, "/v1/pages", nil)
	if code != http.StatusOK {
		t.Fatalf("list: %d", code)
	}
	listed := decodeData[struct {
		Pages []domain.PageSummary `json:"pages"`
	}](t, env)
	if len(listed.Pages) != 1 || listed.Pages[0].Slug != "spring" || listed.Pages[0].Blocks != 1 {
		t.Errorf("pages = %+v", listed.Pages)
	}

	if code, _ := f.do(t, http.MethodDelete, "/v1/pages/spring", nil); code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	if _, found, _ := f.mem.Get(context.Background(), domain.PageKey{UserID: "u1", Slug: "spring"}); found {
		t.Error("page still stored")
	}
	if code, env := f.do(t, http.MethodDelete, "/v1/pages/spring", nil); code != http.StatusNotFound || env.Error == nil {
		t.Errorf("second delete: %d %+v", code, env.Error)
	}
	if code, _ := f.do(t, http.MethodDelete, "/v1/pages/private", nil); code != http.StatusNotFound {
		t.Errorf("deleting another user's page: %d, want 404", code)
	}
}
