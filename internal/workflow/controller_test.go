package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gitpusher/pushkit/internal/models"
	"github.com/gitpusher/pushkit/internal/session"
)

// fakeBackend records the order of calls and returns scripted results.
type fakeBackend struct {
	mu         sync.Mutex
	calls      []string
	uploadErr  error
	processErr error
	processed  models.Project
	jobs       []models.Job
	jobsErr    error

	uploadGate chan struct{} // when set, UploadFiles blocks until closed
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) UploadFiles(ctx context.Context, projectID string, files []models.StagedFile) error {
	f.record("upload")
	if f.uploadGate != nil {
		<-f.uploadGate
	}
	return f.uploadErr
}

func (f *fakeBackend) Process(ctx context.Context, projectID string) (models.Project, error) {
	f.record("process")
	if f.processErr != nil {
		return models.Project{}, f.processErr
	}
	return f.processed, nil
}

func (f *fakeBackend) ListJobs(ctx context.Context) ([]models.Job, error) {
	f.record("jobs")
	return f.jobs, f.jobsErr
}

func (f *fakeBackend) ArchiveProject(ctx context.Context, projectID string) error {
	f.record("archive")
	return nil
}

func (f *fakeBackend) DeleteProject(ctx context.Context, projectID string) error {
	f.record("delete")
	return nil
}

func newTestController(backend *fakeBackend) *Controller {
	sess, _ := session.New("tok", models.PlanFree)
	project := models.Project{ID: "p1", Name: "demo", Status: models.StatusDraft}
	return NewController(backend, sess, project, nil)
}

func stagedSet() []models.StagedFile {
	return []models.StagedFile{
		{Name: "main.go", Content: []byte("package main")},
		{Name: "go.mod", Content: []byte("module demo")},
	}
}

func TestController_LaunchHappyPath(t *testing.T) {
	backend := &fakeBackend{
		processed: models.Project{
			ID: "p1", Name: "demo",
			Status:        models.StatusCompleted,
			RepositoryURL: "https://git.example.com/demo",
		},
		jobs: []models.Job{
			{ID: "j1", ProjectID: "p1", Status: models.JobCompleted},
			{ID: "j2", ProjectID: "other", Status: models.JobCompleted},
		},
	}
	ctrl := newTestController(backend)

	if status := ctrl.Stage(stagedSet()); !status.OK() {
		t.Fatalf("stage failed: %s", status.Message)
	}

	status := ctrl.Launch(context.Background())
	if !status.OK() {
		t.Fatalf("launch failed: %s", status.Message)
	}

	// Upload must fully resolve before process is issued.
	calls := backend.callList()
	if len(calls) != 3 || calls[0] != "upload" || calls[1] != "process" || calls[2] != "jobs" {
		t.Errorf("unexpected call order: %v", calls)
	}

	project := ctrl.Project()
	if project.Status != models.StatusCompleted {
		t.Errorf("expected completed, got %s", project.Status)
	}
	if project.RepositoryURL != "https://git.example.com/demo" {
		t.Errorf("repository url missing: %+v", project)
	}
	if len(ctrl.Pending()) != 0 {
		t.Error("staged files should be cleared after a successful upload")
	}
	if ctrl.Progress() != 100 {
		t.Errorf("expected progress 100, got %d", ctrl.Progress())
	}

	// Only this project's jobs are kept.
	jobs := ctrl.Jobs()
	if len(jobs) != 1 || jobs[0].ID != "j1" {
		t.Errorf("expected only j1, got %+v", jobs)
	}
}

func TestController_UploadFailureRevertsToStaged(t *testing.T) {
	backend := &fakeBackend{uploadErr: fmt.Errorf("network down")}
	ctrl := newTestController(backend)
	ctrl.Stage(stagedSet())

	status := ctrl.Launch(context.Background())
	if status.OK() {
		t.Fatal("expected launch to fail")
	}

	// The process call is never made and the files stay staged for retry.
	for _, call := range backend.callList() {
		if call == "process" {
			t.Error("process was called despite upload failure")
		}
	}
	if got := ctrl.Project().Status; got != models.StatusStaged {
		t.Errorf("expected staged after upload failure, got %s", got)
	}
	if len(ctrl.Pending()) != 2 {
		t.Errorf("staged files were lost: %d left", len(ctrl.Pending()))
	}
}

func TestController_ProcessFailureIsTerminal(t *testing.T) {
	backend := &fakeBackend{processErr: fmt.Errorf("generation failed")}
	ctrl := newTestController(backend)
	ctrl.Stage(stagedSet())

	status := ctrl.Launch(context.Background())
	if status.OK() {
		t.Fatal("expected launch to fail")
	}

	project := ctrl.Project()
	if project.Status != models.StatusFailed {
		t.Errorf("expected failed, got %s", project.Status)
	}
	if project.Error == "" {
		t.Error("expected error detail to be retained")
	}
	// Unlike an upload failure, the uploaded set is not restored.
	if len(ctrl.Pending()) != 0 {
		t.Errorf("staged files should stay cleared after process failure, got %d", len(ctrl.Pending()))
	}
}

func TestController_ConcurrentLaunchSharesOneExecution(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{
		uploadGate: gate,
		processed:  models.Project{ID: "p1", Status: models.StatusCompleted},
	}
	ctrl := newTestController(backend)
	ctrl.Stage(stagedSet())

	var wg sync.WaitGroup
	results := make([]models.ActionStatus, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ctrl.Launch(context.Background())
		}(i)
	}

	// Let both goroutines reach the in-flight upload, then release it.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	uploads := 0
	for _, call := range backend.callList() {
		if call == "upload" {
			uploads++
		}
	}
	if uploads != 1 {
		t.Errorf("expected a single upload, got %d", uploads)
	}
	if results[0] != results[1] {
		t.Errorf("concurrent launches got different results: %+v vs %+v", results[0], results[1])
	}
}

func TestController_StageOnlyFromDraftOrStaged(t *testing.T) {
	backend := &fakeBackend{processErr: fmt.Errorf("boom")}
	ctrl := newTestController(backend)
	ctrl.Stage(stagedSet())
	ctrl.Launch(context.Background()) // ends in failed

	if status := ctrl.Stage(stagedSet()); status.OK() {
		t.Error("expected staging to be rejected on a failed project")
	}
}

func TestController_ArchiveAndRefresh(t *testing.T) {
	backend := &fakeBackend{}
	ctrl := newTestController(backend)

	if status := ctrl.Archive(context.Background()); !status.OK() {
		t.Fatalf("archive failed: %s", status.Message)
	}
	if got := ctrl.Project().Status; got != models.StatusArchived {
		t.Errorf("expected archived, got %s", got)
	}

	// Launch on an archived project is rejected without network calls.
	before := len(backend.callList())
	if status := ctrl.Launch(context.Background()); status.OK() {
		t.Error("expected launch on archived project to fail")
	}
	if after := len(backend.callList()); after != before {
		t.Error("launch on archived project hit the backend")
	}

	// A full refresh supersedes the local patch.
	ctrl.ApplyRefresh(models.Project{ID: "p1", Status: models.StatusCompleted})
	if got := ctrl.Project().Status; got != models.StatusCompleted {
		t.Errorf("expected refresh to overwrite, got %s", got)
	}
}

func TestController_FailedProjectCannotArchive(t *testing.T) {
	backend := &fakeBackend{processErr: fmt.Errorf("generation failed")}
	ctrl := newTestController(backend)
	ctrl.Stage(stagedSet())
	ctrl.Launch(context.Background()) // ends in failed

	before := len(backend.callList())
	if status := ctrl.Archive(context.Background()); status.OK() {
		t.Error("expected archive of a failed project to be rejected")
	}
	if after := len(backend.callList()); after != before {
		t.Error("archive of a failed project hit the backend")
	}
	if got := ctrl.Project().Status; got != models.StatusFailed {
		t.Errorf("expected project to stay failed, got %s", got)
	}
}

func TestController_DeleteBlocksLaunch(t *testing.T) {
	backend := &fakeBackend{}
	ctrl := newTestController(backend)

	if status := ctrl.Delete(context.Background()); !status.OK() {
		t.Fatalf("delete failed: %s", status.Message)
	}
	if !ctrl.Removed() {
		t.Error("expected controller to be marked removed")
	}
	if status := ctrl.Launch(context.Background()); status.OK() {
		t.Error("expected launch on deleted project to fail")
	}
}

func TestController_HandoffPreStages(t *testing.T) {
	backend := &fakeBackend{}
	sess, _ := session.New("tok", models.PlanFree)
	handoff := &session.Handoff{Files: stagedSet()}
	ctrl := NewController(backend, sess, models.Project{ID: "p1"}, handoff)

	if got := ctrl.Project().Status; got != models.StatusStaged {
		t.Errorf("expected staged from handoff, got %s", got)
	}
	if len(ctrl.Pending()) != 2 {
		t.Errorf("expected 2 pre-staged files, got %d", len(ctrl.Pending()))
	}
}

func TestController_CompletionCallback(t *testing.T) {
	backend := &fakeBackend{
		processed: models.Project{ID: "p1", Status: models.StatusCompleted, RepositoryURL: "https://x"},
	}
	ctrl := newTestController(backend)
	ctrl.Stage(stagedSet())

	var got models.Project
	ctrl.OnCompleted(func(p models.Project) { got = p })

	if status := ctrl.Launch(context.Background()); !status.OK() {
		t.Fatalf("launch failed: %s", status.Message)
	}
	if got.RepositoryURL != "https://x" {
		t.Errorf("callback did not receive the updated project: %+v", got)
	}
}
