// Package models defines domain models for pushkit.
package models

import (
	"time"
)

// ProjectStatus represents the lifecycle state of a push workflow project.
type ProjectStatus string

const (
	StatusDraft      ProjectStatus = "draft"
	StatusStaged     ProjectStatus = "staged"
	StatusUploading  ProjectStatus = "uploading"
	StatusProcessing ProjectStatus = "processing"
	StatusCompleted  ProjectStatus = "completed"
	StatusFailed     ProjectStatus = "failed"
	StatusArchived   ProjectStatus = "archived"
)

// Terminal reports whether no further workflow transitions are possible.
// Archived is terminal for the workflow even though the backend may still
// delete the record.
func (s ProjectStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusArchived
}

// InFlight reports whether a launch is currently progressing.
func (s ProjectStatus) InFlight() bool {
	return s == StatusUploading || s == StatusProcessing
}

// Project represents a push workflow: an upload set that becomes a
// generated, pushed source repository.
type Project struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Status        ProjectStatus `json:"status"`
	Provider      string        `json:"provider,omitempty"`
	RepositoryURL string        `json:"repository_url,omitempty"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewProject creates a draft Project.
func NewProject(name, description string) *Project {
	return &Project{
		Name:        name,
		Description: description,
		Status:      StatusDraft,
		CreatedAt:   time.Now(),
	}
}

// StagedFile describes one file queued for upload. Content is held in
// memory only between staging and a successful upload.
type StagedFile struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Kind    string `json:"kind,omitempty"`
	Content []byte `json:"-"`
}
