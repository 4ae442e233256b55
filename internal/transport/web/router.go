package web

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"scrapbook/internal/identity"
	"scrapbook/internal/service"
)

func newRouter(sessions *service.Sessions, tokens *identity.Tokens, objectsDir string, logger *log.Logger) http.Handler {
	pages := &pageHandler{sessions: sessions}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, r, http.StatusOK, map[string]any{"ok": true, "editors": sessions.Len()})
	})

	// locally stored images, addressed by the URLs the local object store hands out
	if objectsDir != "" {
		r.Handle("/objects/*", http.StripPrefix("/objects/", http.FileServer(http.Dir(objectsDir))))
	}

	r.With(requireAuth(tokens)).Get("/v1/pages", pages.list)

	r.Route("/v1/pages/{slug}", func(r chi.Router) {
		r.Use(requireAuth(tokens))

		r.Get("/", pages.get)
		r.Delete("/", pages.deletePage)
		r.Get("/status", pages.status)
		r.Post("/status/dismiss", pages.dismiss)
		r.With(limitBody(1<<20)).Post("/pointer", pages.pointer)

		r.Route("/blocks", func(r chi.Router) {
			r.With(limitBody(1<<20)).Post("/", pages.addBlock)
			r.With(limitBody(1<<20)).Patch("/{id}", pages.updateBlock)
			r.Delete("/{id}", pages.deleteBlock)
			r.Post("/{id}/front", pages.bringToFront)
			r.With(limitBody(maxImageBytes)).Post("/{id}/image", pages.uploadImage)
		})
	})

	return r
}
