package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Capstone-NovoCert/novo/am"
	"github.com/Capstone-NovoCert/novo/db"
	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

// NewSQLite returns a store backed by the pipeline_executions table of the
// database at path. The schema is migrated on open.
func NewSQLite(path string, opts Options) (*PartitionStore, error) {
	opts = opts.withDefaults()
	if err := os.MkdirAll(filepath.Dir(path), am.DefaultDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory for %s", path)
	}
	conn, err := db.OpenWithMigrations(path, opts.Logger)
	if err != nil {
		return nil, err
	}
	return newPartitionStore(&sqliteBackend{db: conn, path: path, log: opts.Logger}, opts)
}

// NewSQLiteWithDB wraps an already migrated connection. The store owns conn
// and closes it on Close.
func NewSQLiteWithDB(conn *sql.DB, opts Options) (*PartitionStore, error) {
	opts = opts.withDefaults()
	return newPartitionStore(&sqliteBackend{db: conn, path: "", log: opts.Logger}, opts)
}

type sqliteBackend struct {
	db   *sql.DB
	path string
	log  *zap.SugaredLogger
}

func (b *sqliteBackend) name() string { return am.BackendSQLite }

func (b *sqliteBackend) location() string {
	if b.path == "" {
		return ":memory:"
	}
	return b.path
}

// load reads every row of the partition. Rows whose record cannot be
// decoded are skipped with a warning.
func (b *sqliteBackend) load(ctx context.Context, t pipeline.Type) (map[string]*pipeline.Execution, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, record FROM pipeline_executions WHERE pipeline_type = ?`, string(t))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s partition", t)
	}
	defer rows.Close()

	records := map[string]*pipeline.Execution{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to scan execution row")
		}
		rec := &pipeline.Execution{}
		if err := json.Unmarshal([]byte(raw), rec); err != nil {
			b.log.Warnw("Skipping undecodable execution row",
				logger.FieldPartition, t,
				logger.FieldExecutionID, id,
				logger.FieldError, err,
			)
			continue
		}
		records[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s partition", t)
	}
	return records, nil
}

func (b *sqliteBackend) upsert(ctx context.Context, t pipeline.Type, _ map[string]*pipeline.Execution, rec *pipeline.Execution) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "failed to encode execution %s", rec.ID)
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO pipeline_executions (id, pipeline_type, status, record, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			record = excluded.record,
			updated_at = excluded.updated_at`,
		rec.ID,
		string(t),
		string(rec.Status),
		string(raw),
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to write execution %s", rec.ID)
	}
	return nil
}

func (b *sqliteBackend) remove(ctx context.Context, t pipeline.Type, _ map[string]*pipeline.Execution, id string) error {
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM pipeline_executions WHERE pipeline_type = ? AND id = ?`, string(t), id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete execution %s", id)
	}
	return nil
}

func (b *sqliteBackend) truncate(ctx context.Context, t pipeline.Type) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM pipeline_executions WHERE pipeline_type = ?`, string(t))
	if err != nil {
		return errors.Wrapf(err, "failed to clear %s partition", t)
	}
	return nil
}

// flush has nothing to do: every write is committed as it happens
func (b *sqliteBackend) flush(context.Context, pipeline.Type, map[string]*pipeline.Execution) error {
	return nil
}

func (b *sqliteBackend) close() error {
	if err := b.db.Close(); err != nil && !db.IsDatabaseClosed(err) {
		return err
	}
	return nil
}

// backup writes a consistent copy of the database with VACUUM INTO
func (b *sqliteBackend) backup(ctx context.Context, dest string, now time.Time) (string, error) {
	if dest == "" {
		if b.path == "" {
			return "", errors.New("in-memory database needs an explicit backup destination")
		}
		dest = filepath.Join(filepath.Dir(b.path), "backup-"+BackupStamp(now))
	}
	if err := os.MkdirAll(dest, am.DefaultDirPermissions); err != nil {
		return "", errors.Wrapf(err, "failed to create backup directory %s", dest)
	}
	target := filepath.Join(dest, "novo.db")
	if _, err := b.db.ExecContext(ctx, `VACUUM INTO ?`, target); err != nil {
		return "", errors.Wrapf(err, "failed to copy database to %s", target)
	}
	return dest, nil
}
