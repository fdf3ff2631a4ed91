package model

import "time"

// TaskStatus represents the derived overall state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskType distinguishes the workflows tracked by the task store.
type TaskType string

const (
	TaskTypeHarvest    TaskType = "harvest"
	TaskTypeGeneration TaskType = "generation"
)

// StepStatus represents the state of a single step.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// Terminal reports whether the status is a final one.
func (s StepStatus) Terminal() bool {
	return s == StepStatusCompleted || s == StepStatusFailed
}

// ValidStepTransition reports whether a step may move from one status to
// another. Terminal statuses never change; pending may start or be
// force-closed; in_progress may only finish.
func ValidStepTransition(from, to StepStatus) bool {
	if from.Terminal() {
		return false
	}
	switch from {
	case StepStatusPending:
		return to == StepStatusInProgress || to.Terminal()
	case StepStatusInProgress:
		return to.Terminal()
	}
	return false
}

// StepDefinition declares a step at task-creation time.
type StepDefinition struct {
	StepID string `json:"step_id"`
	Name   string `json:"name"`
}

// Step is one unit of work inside a task.
type Step struct {
	StepID    string     `json:"step_id"`
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Task is a durable multi-step workflow record, keyed by the external
// correlation id of the event that triggered it.
type Task struct {
	ID         string            `json:"id"`
	ExternalID string            `json:"external_id"`
	TaskType   TaskType          `json:"task_type"`
	Status     TaskStatus        `json:"status"`
	CurrentStep int              `json:"current_step"`
	TotalSteps int               `json:"total_steps"`
	Steps      []Step            `json:"steps"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewTask builds a pending task with all steps pending and currentStep 0.
func NewTask(externalID string, tt TaskType, defs []StepDefinition, metadata map[string]string) Task {
	steps := make([]Step, 0, len(defs))
	for _, d := range defs {
		steps = append(steps, Step{
			StepID: d.StepID,
			Name:   d.Name,
			Status: StepStatusPending,
		})
	}
	return Task{
		ExternalID: externalID,
		TaskType:   tt,
		Status:     TaskStatusPending,
		CurrentStep: 0,
		TotalSteps: len(defs),
		Steps:      steps,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
}

// CurrentStepIndex derives the 1-based index of the first step that is
// still pending or in progress, or totalSteps when every step is terminal.
func CurrentStepIndex(steps []Step, totalSteps int) int {
	for i, s := range steps {
		if s.Status == StepStatusInProgress || s.Status == StepStatusPending {
			return i + 1
		}
	}
	return totalSteps
}

// NextTaskStatus derives the task status after a step moved to updated.
// A failed step fails the task; the first running step moves a pending task
// to in_progress; the task completes only when every step has completed.
func NextTaskStatus(current TaskStatus, steps []Step, updated StepStatus) TaskStatus {
	if updated == StepStatusFailed {
		return TaskStatusFailed
	}
	if updated == StepStatusInProgress && current == TaskStatusPending {
		return TaskStatusInProgress
	}
	all := true
	for _, s := range steps {
		if s.Status != StepStatusCompleted {
			all = false
			break
		}
	}
	if all {
		return TaskStatusCompleted
	}
	return current
}

// TaskProgress is a task with derived progress figures.
type TaskProgress struct {
	Task
	ProgressPercentage int   `json:"progress_percentage"`
	CompletedSteps     int   `json:"completed_steps"`
	FailedSteps        int   `json:"failed_steps"`
	InProgressSteps    int   `json:"in_progress_steps"`
	Duration           int64 `json:"duration_ms"` // sum of finished step durations
}

// Progress computes the derived progress view for a task.
func Progress(t Task) TaskProgress {
	p := TaskProgress{Task: t}
	for _, s := range t.Steps {
		switch s.Status {
		case StepStatusCompleted:
			p.CompletedSteps++
		case StepStatusFailed:
			p.FailedSteps++
		case StepStatusInProgress:
			p.InProgressSteps++
		}
		if s.StartTime != nil && s.EndTime != nil {
			p.Duration += s.EndTime.Sub(*s.StartTime).Milliseconds()
		}
	}
	if t.TotalSteps > 0 {
		p.ProgressPercentage = int(float64(p.CompletedSteps)/float64(t.TotalSteps)*100 + 0.5)
	}
	return p
}

// TaskStats aggregates task counts by status and type.
type TaskStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
	Harvest    int `json:"harvest"`
	Generation int `json:"generation"`
}
