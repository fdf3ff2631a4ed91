package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/salonscope/harvest-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs, kept as an
// interface so tests can substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_task": `INSERT INTO tasks (id, external_id, task_type, status, current_step, total_steps, steps, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (external_id) DO NOTHING`,
	"get_task":    `SELECT id, external_id, task_type, status, current_step, total_steps, steps, metadata, created_at FROM tasks WHERE external_id = $1`,
	"update_task": `UPDATE tasks SET status = $1, current_step = $2, steps = $3 WHERE external_id = $4`,
	"insert_harvest": `INSERT INTO harvests (id, external_id, area_url, results, duration, total_count, export_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_harvest": `SELECT id, external_id, area_url, results, duration, total_count, export_info, created_at
		FROM harvests WHERE external_id = $1 ORDER BY created_at DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	external_id  TEXT NOT NULL UNIQUE,
	task_type    TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	current_step INTEGER NOT NULL DEFAULT 0,
	total_steps  INTEGER NOT NULL,
	steps        JSONB NOT NULL,
	metadata     JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS harvests (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	external_id TEXT NOT NULL,
	area_url    TEXT NOT NULL,
	results     JSONB NOT NULL,
	duration    DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_count INTEGER NOT NULL DEFAULT 0,
	export_info JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS files (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	file_name    TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size         INTEGER NOT NULL DEFAULT 0,
	storage_id   TEXT NOT NULL,
	metadata     JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_task_type ON tasks(task_type);
CREATE INDEX IF NOT EXISTS idx_harvests_external_id ON harvests(external_id);
CREATE INDEX IF NOT EXISTS idx_harvests_area_url ON harvests(area_url);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, task model.Task) (bool, error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	stepsJSON, err := json.Marshal(task.Steps)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal steps")
	}
	metadataJSON, err := json.Marshal(task.Metadata)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal metadata")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, external_id, task_type, status, current_step, total_steps, steps, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (external_id) DO NOTHING`,
		task.ID, task.ExternalID, string(task.TaskType), string(task.Status),
		task.CurrentStep, task.TotalSteps, string(stepsJSON), string(metadataJSON), task.CreatedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert task %s", task.ExternalID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, externalID string) (*model.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, external_id, task_type, status, current_step, total_steps, steps, metadata, created_at
		 FROM tasks WHERE external_id = $1`,
		externalID,
	)
	return scanTaskPg(row)
}

func (s *PostgresStore) UpdateTask(ctx context.Context, task model.Task) error {
	stepsJSON, err := json.Marshal(task.Steps)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal steps")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, current_step = $2, steps = $3 WHERE external_id = $4`,
		string(task.Status), task.CurrentStep, string(stepsJSON), task.ExternalID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update task %s", task.ExternalID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "task %s", task.ExternalID)
	}
	return nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, externalID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE external_id = $1`, externalID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete task %s", externalID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "task %s", externalID)
	}
	return nil
}

func (s *PostgresStore) DeleteTaskByID(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: delete task by id %s", id)
}

func (s *PostgresStore) ListTasksByStatus(ctx context.Context, status model.TaskStatus) ([]model.Task, error) {
	return s.listTasks(ctx, `status = $1`, string(status))
}

func (s *PostgresStore) ListTasksByType(ctx context.Context, taskType model.TaskType) ([]model.Task, error) {
	return s.listTasks(ctx, `task_type = $1`, string(taskType))
}

func (s *PostgresStore) ListActiveTasks(ctx context.Context) ([]model.Task, error) {
	return s.listTasks(ctx, `status IN ($1, $2)`,
		string(model.TaskStatusPending), string(model.TaskStatusInProgress))
}

func (s *PostgresStore) ListFinishedTasks(ctx context.Context) ([]model.Task, error) {
	return s.listTasks(ctx, `status IN ($1, $2)`,
		string(model.TaskStatusCompleted), string(model.TaskStatusFailed))
}

func (s *PostgresStore) listTasks(ctx context.Context, where string, args ...any) ([]model.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, external_id, task_type, status, current_step, total_steps, steps, metadata, created_at
		 FROM tasks WHERE `+where+` ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tasks")
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTaskPg(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, eris.Wrap(rows.Err(), "postgres: list tasks iterate")
}

func (s *PostgresStore) SaveHarvest(ctx context.Context, harvest model.Harvest) error {
	if harvest.ID == "" {
		harvest.ID = uuid.New().String()
	}

	resultsJSON, err := json.Marshal(harvest.Results)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal results")
	}
	var exportJSON any
	if harvest.ExportInfo != nil {
		b, err := json.Marshal(harvest.ExportInfo)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal export info")
		}
		exportJSON = string(b)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO harvests (id, external_id, area_url, results, duration, total_count, export_info, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		harvest.ID, harvest.ExternalID, harvest.AreaURL, string(resultsJSON),
		harvest.Duration, harvest.TotalCount, exportJSON, harvest.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert harvest %s", harvest.ExternalID)
}

func (s *PostgresStore) GetHarvestByExternalID(ctx context.Context, externalID string) (*model.Harvest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, external_id, area_url, results, duration, total_count, export_info, created_at
		 FROM harvests WHERE external_id = $1 ORDER BY created_at DESC LIMIT 1`,
		externalID,
	)
	return scanHarvestPg(row)
}

func (s *PostgresStore) ListHarvestsByAreaURL(ctx context.Context, areaURL string, limit int) ([]model.Harvest, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, external_id, area_url, results, duration, total_count, export_info, created_at
		 FROM harvests WHERE area_url = $1 ORDER BY created_at DESC LIMIT $2`,
		areaURL, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list harvests")
	}
	defer rows.Close()

	var harvests []model.Harvest
	for rows.Next() {
		h, err := scanHarvestPg(rows)
		if err != nil {
			return nil, err
		}
		harvests = append(harvests, *h)
	}
	return harvests, eris.Wrap(rows.Err(), "postgres: list harvests iterate")
}

func (s *PostgresStore) SaveFile(ctx context.Context, file model.ExportFile) error {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}

	metadataJSON, err := json.Marshal(file.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal file metadata")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO files (id, file_name, content_type, size, storage_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		file.ID, file.FileName, file.ContentType, file.Size, file.StorageID,
		string(metadataJSON), file.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert file %s", file.FileName)
}

func (s *PostgresStore) ListFiles(ctx context.Context) ([]model.ExportFile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, file_name, content_type, size, storage_id, metadata, created_at
		 FROM files ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list files")
	}
	defer rows.Close()

	var files []model.ExportFile
	for rows.Next() {
		var f model.ExportFile
		var metadataJSON *string
		if err := rows.Scan(&f.ID, &f.FileName, &f.ContentType, &f.Size, &f.StorageID, &metadataJSON, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan file")
		}
		if metadataJSON != nil && *metadataJSON != "" {
			if err := json.Unmarshal([]byte(*metadataJSON), &f.Metadata); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal file metadata")
			}
		}
		files = append(files, f)
	}
	return files, eris.Wrap(rows.Err(), "postgres: list files iterate")
}

func scanTaskPg(row pgx.Row) (*model.Task, error) {
	var t model.Task
	var stepsJSON string
	var metadataJSON *string

	err := row.Scan(&t.ID, &t.ExternalID, &t.TaskType, &t.Status, &t.CurrentStep,
		&t.TotalSteps, &stepsJSON, &metadataJSON, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan task")
	}

	if err := json.Unmarshal([]byte(stepsJSON), &t.Steps); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal steps")
	}
	if metadataJSON != nil && *metadataJSON != "" && *metadataJSON != "null" {
		if err := json.Unmarshal([]byte(*metadataJSON), &t.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal metadata")
		}
	}
	return &t, nil
}

func scanHarvestPg(row pgx.Row) (*model.Harvest, error) {
	var h model.Harvest
	var resultsJSON string
	var exportJSON *string

	err := row.Scan(&h.ID, &h.ExternalID, &h.AreaURL, &resultsJSON, &h.Duration,
		&h.TotalCount, &exportJSON, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan harvest")
	}

	if err := json.Unmarshal([]byte(resultsJSON), &h.Results); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal results")
	}
	if exportJSON != nil && *exportJSON != "" {
		h.ExportInfo = &model.ExportInfo{}
		if err := json.Unmarshal([]byte(*exportJSON), h.ExportInfo); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal export info")
		}
	}
	return &h, nil
}
