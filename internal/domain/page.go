package domain

import (
	"context"
	"io"
	"slices"
	"strings"
	"time"
)

// PageKey identifies one persisted collection: a user's page.
type PageKey struct {
	UserID string `json:"userId"`
	Slug   string `json:"slug"`
}

func (k PageKey) String() string { return k.UserID + "/" + k.Slug }

// PageSummary is one entry of a user's page listing.
type PageSummary struct {
	Slug      string    `json:"slug"`
	Blocks    int       `json:"blocks"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// PageStore persists whole collections keyed by (user, page).
// Upsert returns ErrConflict when the backend reports a uniqueness violation.
// List orders a user's pages most recently saved first; Delete returns
// ErrNotFound for a page that is not stored.
type PageStore interface {
	Get(ctx context.Context, key PageKey) (Collection, bool, error)
	Upsert(ctx context.Context, key PageKey, blocks Collection) error
	Update(ctx context.Context, key PageKey, blocks Collection) error
	List(ctx context.Context, userID string) ([]PageSummary, error)
	Delete(ctx context.Context, key PageKey) error
	Close() error
}

// SortSummaries orders pages most recently saved first, then by slug.
func SortSummaries(pages []PageSummary) {
	slices.SortFunc(pages, func(a, b PageSummary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Slug, b.Slug)
	})
}

// ObjectStore accepts uploaded binaries and hands back a public URL.
type ObjectStore interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
}

// Identity resolves the user an operation acts for.
type Identity interface {
	CurrentUser(ctx context.Context) (string, bool)
}
