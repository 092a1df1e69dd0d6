// Package workflow implements the client-side push workflow: staging files
// in memory, then driving the upload → process sequence against the backend.
package workflow

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gitpusher/pushkit/internal/models"
)

// Stager holds the pending upload set for one project. Files exist only
// between staging and a successful upload; Clear is called by the controller
// once the upload resolves.
type Stager struct {
	mu    sync.Mutex
	files []models.StagedFile
}

// NewStager returns an empty Stager.
func NewStager() *Stager {
	return &Stager{}
}

// Stage replaces the pending upload set. Purely local, no backend contact.
func (s *Stager) Stage(files []models.StagedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append([]models.StagedFile(nil), files...)
}

// Remove drops a single staged file by name. Returns false when the name is
// not staged.
func (s *Stager) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f.Name == name {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return true
		}
	}
	return false
}

// Files returns a copy of the staged set in staging order.
func (s *Stager) Files() []models.StagedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StagedFile(nil), s.files...)
}

// Len returns the number of staged files.
func (s *Stager) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Clear empties the staged set.
func (s *Stager) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
}

// LoadFiles reads the given paths into staged file descriptors. Directories
// are walked one level deep; hidden files are skipped. Results are sorted by
// name for a stable upload order.
func LoadFiles(paths []string) ([]models.StagedFile, error) {
	var files []models.StagedFile
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, fmt.Errorf("read dir %s: %w", path, err)
			}
			for _, entry := range entries {
				if entry.IsDir() || filepath.Base(entry.Name())[0] == '.' {
					continue
				}
				f, err := loadFile(filepath.Join(path, entry.Name()))
				if err != nil {
					return nil, err
				}
				files = append(files, f)
			}
			continue
		}
		f, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func loadFile(path string) (models.StagedFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return models.StagedFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	return models.StagedFile{
		Name:    filepath.Base(path),
		Size:    int64(len(content)),
		Kind:    mime.TypeByExtension(filepath.Ext(path)),
		Content: content,
	}, nil
}
