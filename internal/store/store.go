package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/salonscope/harvest-cli/internal/model"
)

// ErrNotFound is returned when a lookup or targeted update matches no row.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for tasks, harvest results and
// export file metadata.
type Store interface {
	// Tasks. CreateTask reports false when a task with the same external
	// id already exists; the insert is a no-op in that case.
	CreateTask(ctx context.Context, task model.Task) (bool, error)
	GetTask(ctx context.Context, externalID string) (*model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, externalID string) error
	DeleteTaskByID(ctx context.Context, id string) error
	ListTasksByStatus(ctx context.Context, status model.TaskStatus) ([]model.Task, error)
	ListTasksByType(ctx context.Context, taskType model.TaskType) ([]model.Task, error)
	ListActiveTasks(ctx context.Context) ([]model.Task, error)
	ListFinishedTasks(ctx context.Context) ([]model.Task, error)

	// Harvest results
	SaveHarvest(ctx context.Context, harvest model.Harvest) error
	GetHarvestByExternalID(ctx context.Context, externalID string) (*model.Harvest, error)
	ListHarvestsByAreaURL(ctx context.Context, areaURL string, limit int) ([]model.Harvest, error)

	// Export files
	SaveFile(ctx context.Context, file model.ExportFile) error
	ListFiles(ctx context.Context) ([]model.ExportFile, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
