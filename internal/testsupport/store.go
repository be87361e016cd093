package testsupport

import (
	"testing"

	"github.com/waghmarepb/consolidate/internal/config"
	"github.com/waghmarepb/consolidate/internal/exceldata"
	"github.com/waghmarepb/consolidate/internal/slotstore"
)

// MustOpenSlotStore opens the queue slot database for tests and registers
// cleanup.
func MustOpenSlotStore(t testing.TB, cfg *config.Config) *slotstore.Store {
	t.Helper()

	store, err := slotstore.Open(cfg.QueueDatabasePath())
	if err != nil {
		t.Fatalf("slotstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenDataStore opens the ingested-rows database for tests and registers
// cleanup.
func MustOpenDataStore(t testing.TB, cfg *config.Config) *exceldata.Store {
	t.Helper()

	store, err := exceldata.Open(cfg.Server.DatabasePath)
	if err != nil {
		t.Fatalf("exceldata.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
