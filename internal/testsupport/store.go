package testsupport

import (
	"context"
	"testing"

	"worldip/internal/config"
	"worldip/internal/draft"
	"worldip/internal/ownership"
)

// MustOpenDraftStore opens a draft.Store for tests and registers cleanup.
func MustOpenDraftStore(t testing.TB, cfg *config.Config) *draft.Store {
	t.Helper()

	store, err := draft.Open(cfg)
	if err != nil {
		t.Fatalf("draft.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewDraft creates an open text draft owned by owner using the provided store.
func NewDraft(t testing.TB, store *draft.Store, owner ownership.Address, fingerprint string) *draft.Draft {
	t.Helper()

	d, err := store.Create(context.Background(), &draft.Draft{
		Owner:       owner,
		Fingerprint: fingerprint,
		InputKind:   "text",
		MetadataURI: config.MetadataURINone,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return d
}
