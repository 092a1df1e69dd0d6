package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gitpusher/pushkit/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := Outcome{
		ProjectID:     "p1",
		ProjectName:   "demo",
		Status:        models.StatusCompleted,
		RepositoryURL: "https://git.example.com/demo",
		CompletedAt:   time.Now().Add(-time.Hour),
	}
	second := Outcome{
		ProjectID:   "p2",
		ProjectName: "other",
		Status:      models.StatusFailed,
		Error:       "generation failed",
		CompletedAt: time.Now(),
	}
	if err := store.Record(ctx, first); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Record(ctx, second); err != nil {
		t.Fatalf("record: %v", err)
	}

	outcomes, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	// Newest first.
	if outcomes[0].ProjectID != "p2" || outcomes[1].ProjectID != "p1" {
		t.Errorf("unexpected order: %+v", outcomes)
	}
	if outcomes[1].RepositoryURL != first.RepositoryURL {
		t.Errorf("repository url lost: %+v", outcomes[1])
	}
}

func TestStore_RejectsNonTerminal(t *testing.T) {
	store := openTestStore(t)

	err := store.Record(context.Background(), Outcome{
		ProjectID:   "p1",
		Status:      models.StatusProcessing,
		CompletedAt: time.Now(),
	})
	if err == nil {
		t.Error("expected error for non-terminal status")
	}
}

func TestStore_TerminalStatusNotDowngraded(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	completed := Outcome{
		ProjectID:     "p1",
		ProjectName:   "demo",
		Status:        models.StatusCompleted,
		RepositoryURL: "https://git.example.com/demo",
		CompletedAt:   time.Now(),
	}
	if err := store.Record(ctx, completed); err != nil {
		t.Fatalf("record: %v", err)
	}

	// A later failed record for the same project is ignored.
	failed := completed
	failed.Status = models.StatusFailed
	failed.Error = "spurious"
	if err := store.Record(ctx, failed); err != nil {
		t.Fatalf("record: %v", err)
	}

	outcomes, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != models.StatusCompleted {
		t.Errorf("completed record was downgraded: %+v", outcomes)
	}

	// Archiving a completed project is the one allowed overwrite.
	archived := completed
	archived.Status = models.StatusArchived
	if err := store.Record(ctx, archived); err != nil {
		t.Fatalf("record: %v", err)
	}
	outcomes, _ = store.List(ctx, 10)
	if outcomes[0].Status != models.StatusArchived {
		t.Errorf("expected archived, got %s", outcomes[0].Status)
	}
}

func TestStore_ListLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.Record(ctx, Outcome{
			ProjectID:   string(rune('a' + i)),
			Status:      models.StatusCompleted,
			CompletedAt: time.Now().Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	outcomes, err := store.List(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(outcomes) != 3 {
		t.Errorf("expected 3 outcomes, got %d", len(outcomes))
	}
}
