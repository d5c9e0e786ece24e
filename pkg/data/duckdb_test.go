package data

import (
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "novels-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	repo, err := NewDuckDBRepository(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to init DB: %v", err)
	}

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func TestRepositoryUpsertAndGet(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	if err := repo.Upsert("100", "Test Novel", 4, 10); err != nil {
		t.Fatalf("Failed to upsert progress: %v", err)
	}
	if err := repo.Upsert("100", "Test Novel", 7, 10); err != nil {
		t.Fatalf("Failed to update progress: %v", err)
	}

	p, err := repo.Get("100")
	if err != nil {
		t.Fatalf("Failed to get progress: %v", err)
	}
	if p == nil {
		t.Fatal("Expected progress to be found")
	}
	if p.NextChapter != 7 {
		t.Errorf("Expected next chapter 7, got %d", p.NextChapter)
	}
	if p.Progress != "6/10" {
		t.Errorf("Expected progress '6/10', got '%s'", p.Progress)
	}
}

func TestRepositoryGetMissing(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p, err := repo.Get("missing")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if p != nil {
		t.Error("Expected nil progress for unknown work")
	}
}

func TestRepositoryDeleteClearList(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	for _, id := range []string{"b", "a", "c"} {
		if err := repo.Upsert(id, "Novel "+id, 2, 3); err != nil {
			t.Fatalf("Failed to upsert %s: %v", id, err)
		}
	}

	existed, err := repo.Delete("c")
	if err != nil || !existed {
		t.Fatalf("Expected delete of existing record, got existed=%v err=%v", existed, err)
	}
	existed, err = repo.Delete("c")
	if err != nil || existed {
		t.Fatalf("Expected second delete to report missing, got existed=%v err=%v", existed, err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(list) != 2 || list[0].WorkID != "a" || list[1].WorkID != "b" {
		t.Errorf("Unexpected list: %+v", list)
	}

	if err := repo.Clear(); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}
	list, _ = repo.List()
	if len(list) != 0 {
		t.Errorf("Expected empty list after clear, got %d", len(list))
	}
}
