// Package task implements the durable step tracker over the store. Tasks
// are keyed by the external id of the triggering event; creation is
// idempotent so at-least-once delivery never spawns duplicates.
package task

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salonscope/harvest-cli/internal/model"
	"github.com/salonscope/harvest-cli/internal/store"
)

// defaultFailureMessage fills a failed step's error when the caller gave none.
const defaultFailureMessage = "task failed"

// Service coordinates task lifecycle operations.
type Service struct {
	store store.Store
	log   *zap.Logger
}

// NewService creates a task Service.
func NewService(st store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log}
}

// Create registers a new task with every step pending. When a task with
// the same external id already exists the call is a no-op.
func (s *Service) Create(ctx context.Context, externalID string, taskType model.TaskType, defs []model.StepDefinition, metadata map[string]string) error {
	t := model.NewTask(externalID, taskType, defs, metadata)

	inserted, err := s.store.CreateTask(ctx, t)
	if err != nil {
		return eris.Wrapf(err, "task: create %s", externalID)
	}
	if !inserted {
		s.log.Info("task already exists, skipping create",
			zap.String("external_id", externalID))
		return nil
	}

	s.log.Info("task created",
		zap.String("external_id", externalID),
		zap.String("task_type", string(taskType)),
		zap.Int("total_steps", len(defs)))
	return nil
}

// UpdateStep moves one step to a new status, stamping its start time on
// the first transition into in_progress and its end time when it reaches
// a terminal status, then recomputes the task's current step and overall
// status. Unknown tasks and steps surface as store.ErrNotFound.
func (s *Service) UpdateStep(ctx context.Context, externalID, stepID string, status model.StepStatus, stepErr string) error {
	t, err := s.store.GetTask(ctx, externalID)
	if err != nil {
		return eris.Wrapf(err, "task: update step %s/%s", externalID, stepID)
	}

	idx := -1
	for i := range t.Steps {
		if t.Steps[i].StepID == stepID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return eris.Wrapf(store.ErrNotFound, "step %s in task %s", stepID, externalID)
	}

	step := &t.Steps[idx]
	if step.Status == status {
		return nil
	}
	if !model.ValidStepTransition(step.Status, status) {
		return eris.Errorf("task: invalid step transition %s -> %s for %s/%s",
			step.Status, status, externalID, stepID)
	}

	now := time.Now().UTC()

	if status == model.StepStatusInProgress && step.StartTime == nil {
		step.StartTime = &now
	}
	if status.Terminal() && step.EndTime == nil {
		step.EndTime = &now
	}
	step.Status = status
	if stepErr != "" {
		step.Error = stepErr
	}

	t.CurrentStep = model.CurrentStepIndex(t.Steps, t.TotalSteps)
	t.Status = model.NextTaskStatus(t.Status, t.Steps, status)

	if err := s.store.UpdateTask(ctx, *t); err != nil {
		return eris.Wrapf(err, "task: persist step %s/%s", externalID, stepID)
	}

	s.log.Debug("task step updated",
		zap.String("external_id", externalID),
		zap.String("step_id", stepID),
		zap.String("status", string(status)),
		zap.Int("current_step", t.CurrentStep))
	return nil
}

// Complete force-closes the task: every step still pending or in progress
// moves to the final outcome status with its end time stamped, and on
// failure an empty error is filled with a default message.
func (s *Service) Complete(ctx context.Context, externalID string, success bool, errMsg string) error {
	t, err := s.store.GetTask(ctx, externalID)
	if err != nil {
		return eris.Wrapf(err, "task: complete %s", externalID)
	}

	final := model.StepStatusCompleted
	if !success {
		final = model.StepStatusFailed
		if errMsg == "" {
			errMsg = defaultFailureMessage
		}
	}

	now := time.Now().UTC()
	for i := range t.Steps {
		step := &t.Steps[i]
		if step.Status.Terminal() {
			continue
		}
		step.Status = final
		if step.EndTime == nil {
			step.EndTime = &now
		}
		if !success && step.Error == "" {
			step.Error = errMsg
		}
	}

	if success {
		t.Status = model.TaskStatusCompleted
	} else {
		t.Status = model.TaskStatusFailed
	}
	t.CurrentStep = t.TotalSteps

	if err := s.store.UpdateTask(ctx, *t); err != nil {
		return eris.Wrapf(err, "task: persist completion %s", externalID)
	}

	s.log.Info("task completed",
		zap.String("external_id", externalID),
		zap.Bool("success", success))
	return nil
}

// Delete removes a task by external id; absence is an error.
func (s *Service) Delete(ctx context.Context, externalID string) error {
	return s.store.DeleteTask(ctx, externalID)
}

// DeleteByID removes a task row unconditionally.
func (s *Service) DeleteByID(ctx context.Context, id string) error {
	return s.store.DeleteTaskByID(ctx, id)
}

// Progress fetches a task with its derived progress figures.
func (s *Service) Progress(ctx context.Context, externalID string) (*model.TaskProgress, error) {
	t, err := s.store.GetTask(ctx, externalID)
	if err != nil {
		return nil, eris.Wrapf(err, "task: progress %s", externalID)
	}
	p := model.Progress(*t)
	return &p, nil
}

// ByStatus lists tasks with the given status.
func (s *Service) ByStatus(ctx context.Context, status model.TaskStatus) ([]model.Task, error) {
	return s.store.ListTasksByStatus(ctx, status)
}

// ByType lists tasks of the given type.
func (s *Service) ByType(ctx context.Context, taskType model.TaskType) ([]model.Task, error) {
	return s.store.ListTasksByType(ctx, taskType)
}

// Active lists pending and in-progress tasks.
func (s *Service) Active(ctx context.Context) ([]model.Task, error) {
	return s.store.ListActiveTasks(ctx)
}

// Finished lists completed and failed tasks.
func (s *Service) Finished(ctx context.Context) ([]model.Task, error) {
	return s.store.ListFinishedTasks(ctx)
}

// Stats aggregates task counts by status and type.
func (s *Service) Stats(ctx context.Context) (*model.TaskStats, error) {
	var stats model.TaskStats

	for _, status := range []model.TaskStatus{
		model.TaskStatusPending, model.TaskStatusInProgress,
		model.TaskStatusCompleted, model.TaskStatusFailed,
	} {
		tasks, err := s.store.ListTasksByStatus(ctx, status)
		if err != nil {
			return nil, eris.Wrapf(err, "task: stats %s", status)
		}
		n := len(tasks)
		stats.Total += n
		switch status {
		case model.TaskStatusPending:
			stats.Pending = n
		case model.TaskStatusInProgress:
			stats.InProgress = n
		case model.TaskStatusCompleted:
			stats.Completed = n
		case model.TaskStatusFailed:
			stats.Failed = n
		}
		for _, t := range tasks {
			switch t.TaskType {
			case model.TaskTypeHarvest:
				stats.Harvest++
			case model.TaskTypeGeneration:
				stats.Generation++
			}
		}
	}
	return &stats, nil
}
