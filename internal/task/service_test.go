package task

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonscope/harvest-cli/internal/model"
	"github.com/salonscope/harvest-cli/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return NewService(st, nil)
}

func stepDefs() []model.StepDefinition {
	return []model.StepDefinition{
		{StepID: "prepare", Name: "Prepare"},
		{StepID: "crawl-listings", Name: "Crawl listings"},
		{StepID: "export-results", Name: "Export results"},
	}
}

func TestServiceCreateIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "evt-1", model.TaskTypeHarvest, stepDefs(), nil))
	require.NoError(t, svc.Create(ctx, "evt-1", model.TaskTypeHarvest, stepDefs(), nil))

	progress, err := svc.Progress(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, progress.Status)
	assert.Equal(t, 0, progress.CurrentStep)
	assert.Equal(t, 0, progress.ProgressPercentage)
}

func TestServiceUpdateStepAdvances(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "evt-2", model.TaskTypeHarvest, stepDefs(), nil))

	require.NoError(t, svc.UpdateStep(ctx, "evt-2", "prepare", model.StepStatusInProgress, ""))
	p, err := svc.Progress(ctx, "evt-2")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusInProgress, p.Status)
	assert.Equal(t, 1, p.CurrentStep)

	require.NoError(t, svc.UpdateStep(ctx, "evt-2", "prepare", model.StepStatusCompleted, ""))
	p, err = svc.Progress(ctx, "evt-2")
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentStep)
	assert.Equal(t, 33, p.ProgressPercentage)
	require.NotNil(t, p.Steps[0].StartTime)
	require.NotNil(t, p.Steps[0].EndTime)

	// Remaining steps complete the task.
	require.NoError(t, svc.UpdateStep(ctx, "evt-2", "crawl-listings", model.StepStatusCompleted, ""))
	require.NoError(t, svc.UpdateStep(ctx, "evt-2", "export-results", model.StepStatusCompleted, ""))

	p, err = svc.Progress(ctx, "evt-2")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, p.Status)
	assert.Equal(t, 3, p.CurrentStep)
	assert.Equal(t, 100, p.ProgressPercentage)
}

func TestServiceUpdateStepFailureFailsTask(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "evt-3", model.TaskTypeHarvest, stepDefs(), nil))
	require.NoError(t, svc.UpdateStep(ctx, "evt-3", "crawl-listings", model.StepStatusFailed, "fetch exploded"))

	p, err := svc.Progress(ctx, "evt-3")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, p.Status)
	assert.Equal(t, "fetch exploded", p.Steps[1].Error)
}

func TestServiceUpdateStepNotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.UpdateStep(ctx, "ghost", "prepare", model.StepStatusInProgress, "")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, svc.Create(ctx, "evt-4", model.TaskTypeHarvest, stepDefs(), nil))
	err = svc.UpdateStep(ctx, "evt-4", "no-such-step", model.StepStatusInProgress, "")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestServiceUpdateStepRejectsBackwardTransition(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "evt-8", model.TaskTypeHarvest, stepDefs(), nil))
	require.NoError(t, svc.UpdateStep(ctx, "evt-8", "prepare", model.StepStatusCompleted, ""))

	// Terminal steps never reopen.
	err := svc.UpdateStep(ctx, "evt-8", "prepare", model.StepStatusInProgress, "")
	require.Error(t, err)

	// Re-sending the same status is a no-op, not an error.
	require.NoError(t, svc.UpdateStep(ctx, "evt-8", "prepare", model.StepStatusCompleted, ""))
}

func TestServiceCompleteForceClosesSteps(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "evt-5", model.TaskTypeHarvest, stepDefs(), nil))
	require.NoError(t, svc.UpdateStep(ctx, "evt-5", "prepare", model.StepStatusCompleted, ""))
	require.NoError(t, svc.UpdateStep(ctx, "evt-5", "crawl-listings", model.StepStatusInProgress, ""))

	require.NoError(t, svc.Complete(ctx, "evt-5", false, ""))

	p, err := svc.Progress(ctx, "evt-5")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, p.Status)
	assert.Equal(t, 3, p.CurrentStep)

	// Already-terminal steps keep their outcome; open ones were closed
	// with the default error message.
	assert.Equal(t, model.StepStatusCompleted, p.Steps[0].Status)
	assert.Equal(t, model.StepStatusFailed, p.Steps[1].Status)
	assert.Equal(t, "task failed", p.Steps[1].Error)
	assert.Equal(t, model.StepStatusFailed, p.Steps[2].Status)
	require.NotNil(t, p.Steps[2].EndTime)
}

func TestServiceCompleteSuccess(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "evt-6", model.TaskTypeHarvest, stepDefs(), nil))
	require.NoError(t, svc.Complete(ctx, "evt-6", true, ""))

	p, err := svc.Progress(ctx, "evt-6")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, p.Status)
	for _, step := range p.Steps {
		assert.Equal(t, model.StepStatusCompleted, step.Status)
		assert.Empty(t, step.Error)
	}
}

func TestServiceDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "evt-7", model.TaskTypeHarvest, stepDefs(), nil))
	require.NoError(t, svc.Delete(ctx, "evt-7"))
	require.ErrorIs(t, svc.Delete(ctx, "evt-7"), store.ErrNotFound)
}

func TestServiceStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "evt-a", model.TaskTypeHarvest, stepDefs(), nil))
	require.NoError(t, svc.Create(ctx, "evt-b", model.TaskTypeGeneration, stepDefs(), nil))
	require.NoError(t, svc.Create(ctx, "evt-c", model.TaskTypeHarvest, stepDefs(), nil))
	require.NoError(t, svc.Complete(ctx, "evt-c", true, ""))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 2, stats.Harvest)
	assert.Equal(t, 1, stats.Generation)
}
