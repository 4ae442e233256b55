package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scrapbook/internal/canvas"
	"scrapbook/internal/domain"
	"scrapbook/internal/identity"
	"scrapbook/internal/interaction"
	"scrapbook/internal/logx"
	"scrapbook/internal/render"
	"scrapbook/internal/service"
)

const maxImageBytes = 20 << 20

// pageHandler serves one user's scrapbook pages.
type pageHandler struct {
	sessions *service.Sessions
}

func (h *pageHandler) editor(r *http.Request) (*service.Editor, error) {
	userID, ok := identity.FromContext(r.Context())
	if !ok {
		return nil, domain.ErrNoUser
	}
	return h.sessions.Open(r.Context(), userID, chi.URLParam(r, "slug"))
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// GET /v1/pages
func (h *pageHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.FromContext(r.Context())
	pages, err := h.sessions.Pages(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"pages": pages})
}

// DELETE /v1/pages/{slug}
func (h *pageHandler) deletePage(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.FromContext(r.Context())
	slug := chi.URLParam(r, "slug")
	if err := h.sessions.DeletePage(r.Context(), userID, slug); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"deleted": true, "slug": slug})
}

// GET /v1/pages/{slug}[?format=html]
func (h *pageHandler) get(w http.ResponseWriter, r *http.Request) {
	ed, err := h.editor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	scene := ed.Scene()
	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render.WriteHTML(w, scene); err != nil {
			logx.FromContext(r.Context()).Error("render html", "err", err)
		}
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{
		"scene":  scene,
		"status": ed.Status(),
	})
}

type addBlockRequest struct {
	Type        domain.BlockType `json:"type"`
	Content     *string          `json:"content"`
	Font        string           `json:"font"`
	Doodle      string           `json:"doodle"`
	StickerType string           `json:"stickerType"`
	BorderStyle string           `json:"borderStyle"`
	Viewport    canvas.Viewport  `json:"viewport"`
}

// POST /v1/pages/{slug}/blocks
func (h *pageHandler) addBlock(w http.ResponseWriter, r *http.Request) {
	var req addBlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	t, err := domain.ParseBlockType(string(req.Type))
	if err != nil {
		writeError(w, r, err)
		return
	}

	opts := canvas.CreateOptions{Viewport: req.Viewport, StickerType: req.StickerType, BorderStyle: req.BorderStyle}
	content := canvas.DefaultContent(t)
	if req.Font != "" {
		f, ok := domain.FontByName(req.Font)
		if !ok {
			writeBadRequest(w, r, fmt.Sprintf("unknown font %q", req.Font))
			return
		}
		opts.Font = f.Value
	}
	if req.Doodle != "" {
		d, ok := domain.DoodleByLabel(req.Doodle)
		if !ok {
			writeBadRequest(w, r, fmt.Sprintf("unknown doodle %q", req.Doodle))
			return
		}
		opts.DoodlePath, content = d.Path, d.Label
	}
	if req.Content != nil {
		content = *req.Content
	}

	ed, err := h.editor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	blk, err := ed.AddBlock(t, content, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, blk)
}

// PATCH /v1/pages/{slug}/blocks/{id}
func (h *pageHandler) updateBlock(w http.ResponseWriter, r *http.Request) {
	var patch domain.BlockPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	ed, err := h.editor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	blk, err := ed.UpdateBlock(chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, blk)
}

// DELETE /v1/pages/{slug}/blocks/{id}
func (h *pageHandler) deleteBlock(w http.ResponseWriter, r *http.Request) {
	ed, err := h.editor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := ed.DeleteBlock(id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

// POST /v1/pages/{slug}/blocks/{id}/front
func (h *pageHandler) bringToFront(w http.ResponseWriter, r *http.Request) {
	ed, err := h.editor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	blk, err := ed.BringToFront(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, blk)
}

type pointerRequest struct {
	Phase   string              `json:"phase"`
	BlockID string              `json:"blockId"`
	Target  string              `json:"target"`
	Device  interaction.Device  `json:"device"`
	Page    interaction.Point   `json:"page"`
	Touches []interaction.Point `json:"touches"`
}

// POST /v1/pages/{slug}/pointer
func (h *pageHandler) pointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	if req.Device == "" {
		req.Device = interaction.Mouse
	}
	ev := interaction.PointerEvent{Device: req.Device, Page: req.Page, Touches: req.Touches}

	ed, err := h.editor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var handled bool
	switch req.Phase {
	case "down":
		target, err := interaction.ParseTarget(req.Target)
		if err != nil {
			writeBadRequest(w, r, err.Error())
			return
		}
		handled = ed.PointerDown(req.BlockID, target, ev)
	case "move":
		handled = ed.PointerMove(ev)
	case "up", "leave", "cancel":
		handled = ed.PointerUp()
	default:
		writeBadRequest(w, r, fmt.Sprintf("unknown pointer phase %q", req.Phase))
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{
		"handled": handled,
		"gesture": ed.Gesture(),
	})
}

// POST /v1/pages/{slug}/blocks/{id}/image (multipart "file")
func (h *pageHandler) uploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeEnvelope(w, r, http.StatusRequestEntityTooLarge, envelope{Error: &apiError{CodeBadParams, "image too large"}})
			return
		}
		writeBadRequest(w, r, "invalid multipart")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, r, "missing file")
		return
	}
	defer file.Close()

	ed, err := h.editor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	url, err := ed.UploadImage(r.Context(), id, header.Filename, file, header.Size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"id": id, "url": url})
}

// GET /v1/pages/{slug}/status
func (h *pageHandler) status(w http.ResponseWriter, r *http.Request) {
	ed, err := h.editor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, ed.Status())
}

// POST /v1/pages/{slug}/status/dismiss
func (h *pageHandler) dismiss(w http.ResponseWriter, r *http.Request) {
	ed, err := h.editor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ed.DismissError()
	if id := r.URL.Query().Get("block"); id != "" {
		ed.DismissUploadError(id)
	}
	writeData(w, r, http.StatusOK, ed.Status())
}
