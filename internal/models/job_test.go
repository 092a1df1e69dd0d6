package models

import "testing"

func TestJobStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from JobStatus
		to   JobStatus
		want bool
	}{
		{JobPending, JobProcessing, true},
		{JobPending, JobCompleted, true},
		{JobPending, JobFailed, true},
		{JobProcessing, JobCompleted, true},
		{JobProcessing, JobFailed, true},
		{JobProcessing, JobPending, false},
		// Terminal states have no outgoing edges.
		{JobCompleted, JobProcessing, false},
		{JobCompleted, JobFailed, false},
		{JobCompleted, JobPending, false},
		{JobFailed, JobProcessing, false},
		{JobFailed, JobCompleted, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestProjectStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   ProjectStatus
		terminal bool
		inFlight bool
	}{
		{StatusDraft, false, false},
		{StatusStaged, false, false},
		{StatusUploading, false, true},
		{StatusProcessing, false, true},
		{StatusCompleted, true, false},
		{StatusFailed, true, false},
		{StatusArchived, true, false},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal(): expected %v, got %v", tt.status, tt.terminal, got)
		}
		if got := tt.status.InFlight(); got != tt.inFlight {
			t.Errorf("%s.InFlight(): expected %v, got %v", tt.status, tt.inFlight, got)
		}
	}
}

func TestPlanTier_Unlimited(t *testing.T) {
	for _, plan := range []PlanTier{PlanFree, PlanStarter} {
		if plan.Unlimited() {
			t.Errorf("%s should be metered", plan)
		}
	}
	for _, plan := range []PlanTier{PlanPremium, PlanBusiness} {
		if !plan.Unlimited() {
			t.Errorf("%s should be unlimited", plan)
		}
	}
}
