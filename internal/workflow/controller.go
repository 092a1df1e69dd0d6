package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gitpusher/pushkit/internal/metrics"
	"github.com/gitpusher/pushkit/internal/models"
	"github.com/gitpusher/pushkit/internal/session"
)

// Backend is the slice of the API the controller depends on.
type Backend interface {
	UploadFiles(ctx context.Context, projectID string, files []models.StagedFile) error
	Process(ctx context.Context, projectID string) (models.Project, error)
	ListJobs(ctx context.Context) ([]models.Job, error)
	ArchiveProject(ctx context.Context, projectID string) error
	DeleteProject(ctx context.Context, projectID string) error
}

// Controller drives the workflow state machine for a single project:
//
//	draft → staged → uploading → processing → {completed | failed}
//
// plus a side transition to archived from any state that is not a terminal
// failure. Launch is single-flight per project: a second call while one is
// in flight produces no additional network effect.
type Controller struct {
	backend Backend
	sess    *session.Session
	stager  *Stager

	mu       sync.Mutex
	project  models.Project
	jobs     []models.Job
	removed  bool
	progress int

	flight    singleflight.Group
	completed []func(models.Project)
	verbose   bool
}

// NewController builds a controller around an existing project projection.
// A Handoff from the landing flow may pre-stage files.
func NewController(backend Backend, sess *session.Session, project models.Project, handoff *session.Handoff) *Controller {
	c := &Controller{
		backend: backend,
		sess:    sess,
		stager:  NewStager(),
		project: project,
	}
	if c.project.Status == "" {
		c.project.Status = models.StatusDraft
	}
	if handoff != nil && len(handoff.Files) > 0 {
		c.stager.Stage(handoff.Files)
		if c.project.Status == models.StatusDraft {
			c.project.Status = models.StatusStaged
		}
	}
	return c
}

// SetVerbose enables progress logging.
func (c *Controller) SetVerbose(v bool) { c.verbose = v }

// OnCompleted registers a callback invoked after a successful launch, with
// the updated project. Used by the credit view to refresh the authoritative
// balance; the client never charges locally.
func (c *Controller) OnCompleted(fn func(models.Project)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = append(c.completed, fn)
}

// Project returns a read-only copy of the current projection.
func (c *Controller) Project() models.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project
}

// Jobs returns the last refreshed job list for this project.
func (c *Controller) Jobs() []models.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Job(nil), c.jobs...)
}

// Removed reports whether the project was deleted locally.
func (c *Controller) Removed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removed
}

// Progress returns the coarse completion percentage of the last launch.
func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Pending returns a copy of the staged upload set.
func (c *Controller) Pending() []models.StagedFile {
	return c.stager.Files()
}

// RemovePending drops one staged file by name.
func (c *Controller) RemovePending(name string) bool {
	return c.stager.Remove(name)
}

// Stage replaces the pending upload set. Valid only from draft or staged;
// it never contacts the backend.
func (c *Controller) Stage(files []models.StagedFile) models.ActionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project.Status != models.StatusDraft && c.project.Status != models.StatusStaged {
		return models.Failure(fmt.Sprintf("cannot stage files while project is %s", c.project.Status))
	}
	c.stager.Stage(files)
	c.project.Status = models.StatusStaged
	return models.Success(fmt.Sprintf("%d file(s) staged", len(files)), 0)
}

// Launch runs the upload → process sequence. The upload must resolve before
// the process request is issued; the two are never in flight concurrently.
// Concurrent Launch calls for the same project share a single execution.
func (c *Controller) Launch(ctx context.Context) models.ActionStatus {
	c.mu.Lock()
	id := c.project.ID
	c.mu.Unlock()

	v, _, _ := c.flight.Do(id, func() (interface{}, error) {
		return c.launch(ctx), nil
	})
	return v.(models.ActionStatus)
}

func (c *Controller) launch(ctx context.Context) models.ActionStatus {
	c.mu.Lock()
	switch {
	case c.removed:
		c.mu.Unlock()
		return models.Failure("project has been deleted")
	case c.project.Status.InFlight():
		c.mu.Unlock()
		return models.Failure("a launch is already in progress")
	case c.project.Status == models.StatusArchived:
		c.mu.Unlock()
		return models.Failure("project is archived")
	}
	id := c.project.ID
	pending := c.stager.Files()
	if len(pending) > 0 {
		c.project.Status = models.StatusUploading
	}
	c.progress = 0
	c.mu.Unlock()

	if len(pending) > 0 {
		c.logf("uploading %d file(s) for project %s", len(pending), id)
		if err := c.backend.UploadFiles(ctx, id, pending); err != nil {
			// Revert to staged; files stay pending for retry and the
			// process call is never made.
			c.mu.Lock()
			c.project.Status = models.StatusStaged
			c.mu.Unlock()
			metrics.LaunchesTotal.WithLabelValues("upload_failed").Inc()
			return models.Failure(fmt.Sprintf("upload failed: %v", err))
		}
		// Upload resolved: the staged set is cleared and will not be
		// restored if processing fails below.
		c.stager.Clear()
		c.mu.Lock()
		c.progress = 33
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.project.Status = models.StatusProcessing
	c.progress = 60
	c.mu.Unlock()

	c.logf("processing project %s", id)
	updated, err := c.backend.Process(ctx, id)
	if err != nil {
		c.mu.Lock()
		c.project.Status = models.StatusFailed
		c.project.Error = err.Error()
		c.mu.Unlock()
		metrics.LaunchesTotal.WithLabelValues("process_failed").Inc()
		return models.Failure(fmt.Sprintf("processing failed: %v", err))
	}

	c.mu.Lock()
	c.project = updated
	if c.project.Status == "" {
		c.project.Status = models.StatusCompleted
	}
	c.progress = 100
	callbacks := append(make([]func(models.Project), 0, len(c.completed)), c.completed...)
	result := c.project
	c.mu.Unlock()

	// Job list comes from the source of truth after completion. A failed
	// refresh does not fail the launch.
	if jobs, err := c.backend.ListJobs(ctx); err == nil {
		own := jobs[:0:0]
		for _, j := range jobs {
			if j.ProjectID == id {
				own = append(own, j)
			}
		}
		c.mu.Lock()
		c.jobs = own
		c.mu.Unlock()
	} else {
		c.logf("job refresh failed: %v", err)
	}

	for _, fn := range callbacks {
		fn(result)
	}
	metrics.LaunchesTotal.WithLabelValues("completed").Inc()
	return models.Success(fmt.Sprintf("repository ready: %s", result.RepositoryURL), 100)
}

// Archive marks the project archived on the backend and patches the local
// projection without a full refetch. The next full refresh overwrites it.
func (c *Controller) Archive(ctx context.Context) models.ActionStatus {
	c.mu.Lock()
	switch {
	case c.project.Status.InFlight():
		c.mu.Unlock()
		return models.Failure("cannot archive while a launch is in flight")
	case c.project.Status == models.StatusFailed:
		// Archived is reachable from any state except a terminal failure.
		c.mu.Unlock()
		return models.Failure("cannot archive a failed project")
	}
	id := c.project.ID
	c.mu.Unlock()

	if err := c.backend.ArchiveProject(ctx, id); err != nil {
		return models.Failure(fmt.Sprintf("archive failed: %v", err))
	}
	c.mu.Lock()
	c.project.Status = models.StatusArchived
	c.mu.Unlock()
	return models.Success("project archived", 0)
}

// Delete removes the project on the backend and flags the local projection
// removed, again as a local patch for responsiveness.
func (c *Controller) Delete(ctx context.Context) models.ActionStatus {
	c.mu.Lock()
	if c.project.Status.InFlight() {
		c.mu.Unlock()
		return models.Failure("cannot delete while a launch is in flight")
	}
	id := c.project.ID
	c.mu.Unlock()

	if err := c.backend.DeleteProject(ctx, id); err != nil {
		return models.Failure(fmt.Sprintf("delete failed: %v", err))
	}
	c.mu.Lock()
	c.removed = true
	c.mu.Unlock()
	return models.Success("project deleted", 0)
}

// ApplyRefresh overwrites the local projection with the backend's view,
// superseding any local patches from Archive or Delete.
func (c *Controller) ApplyRefresh(project models.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project = project
	c.removed = false
}

func (c *Controller) logf(format string, args ...interface{}) {
	if c.verbose {
		log.Printf("[workflow] "+format, args...)
	}
}
