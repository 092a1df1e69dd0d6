package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gitpusher/pushkit/internal/models"
)

func TestStager_StageReplaces(t *testing.T) {
	s := NewStager()

	s.Stage([]models.StagedFile{{Name: "a.txt"}, {Name: "b.txt"}})
	if s.Len() != 2 {
		t.Fatalf("expected 2 staged files, got %d", s.Len())
	}

	// Staging again replaces, never appends.
	s.Stage([]models.StagedFile{{Name: "c.txt"}})
	files := s.Files()
	if len(files) != 1 || files[0].Name != "c.txt" {
		t.Errorf("expected replacement with c.txt, got %+v", files)
	}
}

func TestStager_Remove(t *testing.T) {
	s := NewStager()
	s.Stage([]models.StagedFile{{Name: "a.txt"}, {Name: "b.txt"}})

	if !s.Remove("a.txt") {
		t.Error("expected Remove to report success")
	}
	if s.Remove("missing.txt") {
		t.Error("expected Remove of unknown file to report failure")
	}
	files := s.Files()
	if len(files) != 1 || files[0].Name != "b.txt" {
		t.Errorf("expected only b.txt left, got %+v", files)
	}
}

func TestStager_FilesIsCopy(t *testing.T) {
	s := NewStager()
	s.Stage([]models.StagedFile{{Name: "a.txt"}})

	files := s.Files()
	files[0].Name = "mutated"

	if got := s.Files()[0].Name; got != "a.txt" {
		t.Errorf("mutating the returned slice changed the stager: %s", got)
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "bbb")
	writeFile(t, dir, "a.go", "package a")
	writeFile(t, dir, ".hidden", "secret")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0750); err != nil {
		t.Fatal(err)
	}

	files, err := LoadFiles([]string{dir})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}

	// Hidden files and nested directories are skipped; results are sorted.
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %+v", len(files), files)
	}
	if files[0].Name != "a.go" || files[1].Name != "b.txt" {
		t.Errorf("expected sorted [a.go b.txt], got [%s %s]", files[0].Name, files[1].Name)
	}
	if files[1].Size != 3 || string(files[1].Content) != "bbb" {
		t.Errorf("unexpected content for b.txt: %+v", files[1])
	}
}

func TestLoadFiles_MissingPath(t *testing.T) {
	if _, err := LoadFiles([]string{"/does/not/exist"}); err == nil {
		t.Error("expected error for missing path")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}
