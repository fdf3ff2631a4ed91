package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/salonscope/harvest-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	external_id  TEXT NOT NULL UNIQUE,
	task_type    TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	current_step INTEGER NOT NULL DEFAULT 0,
	total_steps  INTEGER NOT NULL,
	steps        TEXT NOT NULL,
	metadata     TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS harvests (
	id          TEXT PRIMARY KEY,
	external_id TEXT NOT NULL,
	area_url    TEXT NOT NULL,
	results     TEXT NOT NULL,
	duration    REAL NOT NULL DEFAULT 0,
	total_count INTEGER NOT NULL DEFAULT 0,
	export_info TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS files (
	id           TEXT PRIMARY KEY,
	file_name    TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size         INTEGER NOT NULL DEFAULT 0,
	storage_id   TEXT NOT NULL,
	metadata     TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_task_type ON tasks(task_type);
CREATE INDEX IF NOT EXISTS idx_harvests_external_id ON harvests(external_id);
CREATE INDEX IF NOT EXISTS idx_harvests_area_url ON harvests(area_url);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTask inserts the task unless its external id is already present.
// The conflict-ignore insert makes the idempotency check atomic under
// concurrent duplicate triggers.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (bool, error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	stepsJSON, err := json.Marshal(task.Steps)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal steps")
	}
	metadataJSON, err := json.Marshal(task.Metadata)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal metadata")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, external_id, task_type, status, current_step, total_steps, steps, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (external_id) DO NOTHING`,
		task.ID, task.ExternalID, string(task.TaskType), string(task.Status),
		task.CurrentStep, task.TotalSteps, string(stepsJSON), string(metadataJSON), task.CreatedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert task %s", task.ExternalID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, externalID string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, external_id, task_type, status, current_step, total_steps, steps, metadata, created_at
		 FROM tasks WHERE external_id = ?`,
		externalID,
	)
	return scanTask(row)
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, task model.Task) error {
	stepsJSON, err := json.Marshal(task.Steps)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal steps")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, current_step = ?, steps = ? WHERE external_id = ?`,
		string(task.Status), task.CurrentStep, string(stepsJSON), task.ExternalID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update task %s", task.ExternalID)
	}
	return checkRowsAffected(res, task.ExternalID)
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, externalID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE external_id = ?`, externalID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete task %s", externalID)
	}
	return checkRowsAffected(res, externalID)
}

// DeleteTaskByID removes a task row without reporting absence.
func (s *SQLiteStore) DeleteTaskByID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: delete task by id %s", id)
}

func (s *SQLiteStore) ListTasksByStatus(ctx context.Context, status model.TaskStatus) ([]model.Task, error) {
	return s.listTasks(ctx, `status = ?`, string(status))
}

func (s *SQLiteStore) ListTasksByType(ctx context.Context, taskType model.TaskType) ([]model.Task, error) {
	return s.listTasks(ctx, `task_type = ?`, string(taskType))
}

func (s *SQLiteStore) ListActiveTasks(ctx context.Context) ([]model.Task, error) {
	return s.listTasks(ctx, `status IN (?, ?)`,
		string(model.TaskStatusPending), string(model.TaskStatusInProgress))
}

func (s *SQLiteStore) ListFinishedTasks(ctx context.Context) ([]model.Task, error) {
	return s.listTasks(ctx, `status IN (?, ?)`,
		string(model.TaskStatusCompleted), string(model.TaskStatusFailed))
}

func (s *SQLiteStore) listTasks(ctx context.Context, where string, args ...any) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, external_id, task_type, status, current_step, total_steps, steps, metadata, created_at
		 FROM tasks WHERE `+where+` ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tasks")
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, eris.Wrap(rows.Err(), "sqlite: list tasks iterate")
}

func (s *SQLiteStore) SaveHarvest(ctx context.Context, harvest model.Harvest) error {
	if harvest.ID == "" {
		harvest.ID = uuid.New().String()
	}

	resultsJSON, err := json.Marshal(harvest.Results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal results")
	}
	var exportJSON any
	if harvest.ExportInfo != nil {
		b, err := json.Marshal(harvest.ExportInfo)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal export info")
		}
		exportJSON = string(b)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO harvests (id, external_id, area_url, results, duration, total_count, export_info, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		harvest.ID, harvest.ExternalID, harvest.AreaURL, string(resultsJSON),
		harvest.Duration, harvest.TotalCount, exportJSON, harvest.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert harvest %s", harvest.ExternalID)
}

func (s *SQLiteStore) GetHarvestByExternalID(ctx context.Context, externalID string) (*model.Harvest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, external_id, area_url, results, duration, total_count, export_info, created_at
		 FROM harvests WHERE external_id = ? ORDER BY created_at DESC LIMIT 1`,
		externalID,
	)
	return scanHarvest(row)
}

func (s *SQLiteStore) ListHarvestsByAreaURL(ctx context.Context, areaURL string, limit int) ([]model.Harvest, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, external_id, area_url, results, duration, total_count, export_info, created_at
		 FROM harvests WHERE area_url = ? ORDER BY created_at DESC LIMIT ?`,
		areaURL, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list harvests")
	}
	defer rows.Close()

	var harvests []model.Harvest
	for rows.Next() {
		h, err := scanHarvest(rows)
		if err != nil {
			return nil, err
		}
		harvests = append(harvests, *h)
	}
	return harvests, eris.Wrap(rows.Err(), "sqlite: list harvests iterate")
}

func (s *SQLiteStore) SaveFile(ctx context.Context, file model.ExportFile) error {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}

	metadataJSON, err := json.Marshal(file.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal file metadata")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO files (id, file_name, content_type, size, storage_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.FileName, file.ContentType, file.Size, file.StorageID,
		string(metadataJSON), file.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert file %s", file.FileName)
}

func (s *SQLiteStore) ListFiles(ctx context.Context) ([]model.ExportFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, content_type, size, storage_id, metadata, created_at
		 FROM files ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list files")
	}
	defer rows.Close()

	var files []model.ExportFile
	for rows.Next() {
		var f model.ExportFile
		var metadataJSON sql.NullString
		if err := rows.Scan(&f.ID, &f.FileName, &f.ContentType, &f.Size, &f.StorageID, &metadataJSON, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan file")
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &f.Metadata); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal file metadata")
			}
		}
		files = append(files, f)
	}
	return files, eris.Wrap(rows.Err(), "sqlite: list files iterate")
}

// helpers

func checkRowsAffected(res sql.Result, externalID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "task %s", externalID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (*model.Task, error) {
	var t model.Task
	var stepsJSON string
	var metadataJSON sql.NullString

	err := row.Scan(&t.ID, &t.ExternalID, &t.TaskType, &t.Status, &t.CurrentStep,
		&t.TotalSteps, &stepsJSON, &metadataJSON, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan task")
	}

	if err := json.Unmarshal([]byte(stepsJSON), &t.Steps); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal steps")
	}
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &t.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metadata")
		}
	}
	return &t, nil
}

func scanHarvest(row scannable) (*model.Harvest, error) {
	var h model.Harvest
	var resultsJSON string
	var exportJSON sql.NullString

	err := row.Scan(&h.ID, &h.ExternalID, &h.AreaURL, &resultsJSON, &h.Duration,
		&h.TotalCount, &exportJSON, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan harvest")
	}

	if err := json.Unmarshal([]byte(resultsJSON), &h.Results); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal results")
	}
	if exportJSON.Valid && exportJSON.String != "" {
		h.ExportInfo = &model.ExportInfo{}
		if err := json.Unmarshal([]byte(exportJSON.String), h.ExportInfo); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal export info")
		}
	}
	return &h, nil
}
