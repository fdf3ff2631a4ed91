package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonscope/harvest-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func harvestSteps() []model.StepDefinition {
	return []model.StepDefinition{
		{StepID: "prepare", Name: "Prepare"},
		{StepID: "crawl-listings", Name: "Crawl listings"},
		{StepID: "export-results", Name: "Export results"},
	}
}

// --- Tasks ---

func TestSQLite_CreateTask_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	task := model.NewTask("evt-1", model.TaskTypeHarvest, harvestSteps(), map[string]string{"areaUrl": "https://example.com/a/"})

	inserted, err := st.CreateTask(ctx, task)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Second create with the same external id is a no-op.
	dup := model.NewTask("evt-1", model.TaskTypeHarvest, harvestSteps(), nil)
	inserted, err = st.CreateTask(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := st.GetTask(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, got.Status)
	assert.Equal(t, 3, got.TotalSteps)
	assert.Equal(t, "https://example.com/a/", got.Metadata["areaUrl"])
}

func TestSQLite_GetTask_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetTask(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpdateTask(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	task := model.NewTask("evt-2", model.TaskTypeHarvest, harvestSteps(), nil)
	_, err := st.CreateTask(ctx, task)
	require.NoError(t, err)

	stored, err := st.GetTask(ctx, "evt-2")
	require.NoError(t, err)

	now := time.Now().UTC()
	stored.Steps[0].Status = model.StepStatusInProgress
	stored.Steps[0].StartTime = &now
	stored.Status = model.TaskStatusInProgress
	stored.CurrentStep = 1

	require.NoError(t, st.UpdateTask(ctx, *stored))

	got, err := st.GetTask(ctx, "evt-2")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusInProgress, got.Status)
	assert.Equal(t, 1, got.CurrentStep)
	assert.Equal(t, model.StepStatusInProgress, got.Steps[0].Status)
	require.NotNil(t, got.Steps[0].StartTime)
}

func TestSQLite_UpdateTask_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	task := model.NewTask("ghost", model.TaskTypeHarvest, harvestSteps(), nil)
	err := st.UpdateTask(context.Background(), task)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_DeleteTask(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	task := model.NewTask("evt-3", model.TaskTypeHarvest, harvestSteps(), nil)
	_, err := st.CreateTask(ctx, task)
	require.NoError(t, err)

	require.NoError(t, st.DeleteTask(ctx, "evt-3"))
	require.ErrorIs(t, st.DeleteTask(ctx, "evt-3"), ErrNotFound)

	// By-id delete is unconditional.
	require.NoError(t, st.DeleteTaskByID(ctx, "no-such-id"))
}

func TestSQLite_ListTasks(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := model.NewTask("evt-a", model.TaskTypeHarvest, harvestSteps(), nil)
	b := model.NewTask("evt-b", model.TaskTypeGeneration, harvestSteps(), nil)
	c := model.NewTask("evt-c", model.TaskTypeHarvest, harvestSteps(), nil)
	c.Status = model.TaskStatusCompleted

	for _, task := range []model.Task{a, b, c} {
		_, err := st.CreateTask(ctx, task)
		require.NoError(t, err)
	}

	pending, err := st.ListTasksByStatus(ctx, model.TaskStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	harvest, err := st.ListTasksByType(ctx, model.TaskTypeHarvest)
	require.NoError(t, err)
	assert.Len(t, harvest, 2)

	active, err := st.ListActiveTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	finished, err := st.ListFinishedTasks(ctx)
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.Equal(t, "evt-c", finished[0].ExternalID)
}

// --- Harvests ---

func TestSQLite_SaveAndGetHarvest(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	phone := "03-1234-5678"
	harvest := model.Harvest{
		ExternalID: "evt-h1",
		AreaURL:    "https://example.com/area/",
		Results: []model.SalonDetails{
			{Name: "サロンABC", URL: "https://example.com/slnH1/", StableID: "1", Phone: &phone},
		},
		Duration:   1.2,
		TotalCount: 1,
		ExportInfo: &model.ExportInfo{FileName: "harvest.csv", RecordCount: 1},
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, st.SaveHarvest(ctx, harvest))

	got, err := st.GetHarvestByExternalID(ctx, "evt-h1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/area/", got.AreaURL)
	require.Len(t, got.Results, 1)
	require.NotNil(t, got.Results[0].Phone)
	assert.Equal(t, "03-1234-5678", *got.Results[0].Phone)
	require.NotNil(t, got.ExportInfo)
	assert.Equal(t, "harvest.csv", got.ExportInfo.FileName)
}

func TestSQLite_GetHarvest_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetHarvestByExternalID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListHarvestsByAreaURL(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i, ext := range []string{"evt-1", "evt-2", "evt-3"} {
		h := model.Harvest{
			ExternalID: ext,
			AreaURL:    "https://example.com/area/",
			Results:    nil,
			TotalCount: i,
			CreatedAt:  time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, st.SaveHarvest(ctx, h))
	}

	harvests, err := st.ListHarvestsByAreaURL(ctx, "https://example.com/area/", 2)
	require.NoError(t, err)
	assert.Len(t, harvests, 2)

	none, err := st.ListHarvestsByAreaURL(ctx, "https://example.com/other/", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// --- Files ---

func TestSQLite_SaveAndListFiles(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	file := model.ExportFile{
		FileName:    "harvest-2026-08-29.csv",
		ContentType: "text/csv",
		Size:        2048,
		StorageID:   "blob-1",
		Metadata:    map[string]string{"areaUrl": "https://example.com/area/"},
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.SaveFile(ctx, file))

	files, err := st.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "harvest-2026-08-29.csv", files[0].FileName)
	assert.Equal(t, "https://example.com/area/", files[0].Metadata["areaUrl"])
}
