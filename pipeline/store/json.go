package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Capstone-NovoCert/novo/am"
	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

// PartitionFileSuffix ends every partition file name: <type>-db.json
const PartitionFileSuffix = "-db.json"

// PartitionFile returns the path of t's partition file inside dir
func PartitionFile(dir string, t pipeline.Type) string {
	return filepath.Join(dir, string(t)+PartitionFileSuffix)
}

// PartitionFromFile maps a partition file name back to its type
func PartitionFromFile(path string) (pipeline.Type, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, PartitionFileSuffix) {
		return "", false
	}
	t := pipeline.Type(strings.TrimSuffix(base, PartitionFileSuffix))
	return t, t.Valid()
}

// NewJSON returns a store keeping one pretty-printed JSON file per partition
// in dir, which is created if needed.
func NewJSON(dir string, opts Options) (*PartitionStore, error) {
	if dir == "" {
		return nil, errors.NewInvalidRequestError("json store needs a data directory")
	}
	if err := os.MkdirAll(dir, am.DefaultDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to create data directory %s", dir)
	}
	opts = opts.withDefaults()
	return newPartitionStore(&jsonBackend{dir: dir, log: opts.Logger}, opts)
}

type jsonBackend struct {
	dir string
	log *zap.SugaredLogger
}

func (b *jsonBackend) name() string     { return am.BackendJSON }
func (b *jsonBackend) location() string { return b.dir }

// load reads the partition file. A file that cannot be parsed is moved aside
// and the partition starts empty.
func (b *jsonBackend) load(ctx context.Context, t pipeline.Type) (map[string]*pipeline.Execution, error) {
	path := PartitionFile(b.dir, t)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]*pipeline.Execution{}, nil
	}
	if err != nil {
		b.reset(path, err)
		return map[string]*pipeline.Execution{}, nil
	}

	records := map[string]*pipeline.Execution{}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			b.reset(path, err)
			return map[string]*pipeline.Execution{}, nil
		}
	}

	for id, rec := range records {
		if rec == nil || rec.PipelineType != t {
			b.log.Warnw("Dropping foreign record from partition file",
				logger.FieldPath, path,
				logger.FieldExecutionID, id,
			)
			delete(records, id)
			continue
		}
		if rec.ID == "" {
			rec.ID = id
		}
	}
	return records, nil
}

func (b *jsonBackend) reset(path string, cause error) {
	aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
	if err := os.Rename(path, aside); err != nil {
		aside = ""
	}
	b.log.Warnw("Partition file unreadable, starting empty",
		logger.FieldPath, path,
		logger.FieldError, cause,
		"moved_to", aside,
	)
}

func (b *jsonBackend) upsert(ctx context.Context, t pipeline.Type, records map[string]*pipeline.Execution, _ *pipeline.Execution) error {
	return b.write(t, records)
}

func (b *jsonBackend) remove(ctx context.Context, t pipeline.Type, records map[string]*pipeline.Execution, _ string) error {
	return b.write(t, records)
}

func (b *jsonBackend) truncate(ctx context.Context, t pipeline.Type) error {
	return b.write(t, map[string]*pipeline.Execution{})
}

func (b *jsonBackend) flush(ctx context.Context, t pipeline.Type, records map[string]*pipeline.Execution) error {
	return b.write(t, records)
}

func (b *jsonBackend) close() error { return nil }

// write replaces the partition file atomically: temp file in the same
// directory, fsync, rename.
func (b *jsonBackend) write(t pipeline.Type, records map[string]*pipeline.Execution) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s partition", t)
	}

	path := PartitionFile(b.dir, t)
	tmp, err := os.CreateTemp(b.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %s", path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err := os.Chmod(tmpName, am.DefaultFilePermissions); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to replace %s", path)
	}
	return nil
}

// backup copies every existing partition file into dest
func (b *jsonBackend) backup(ctx context.Context, dest string, now time.Time) (string, error) {
	if dest == "" {
		dest = filepath.Join(b.dir, "backup-"+BackupStamp(now))
	}
	if err := os.MkdirAll(dest, am.DefaultDirPermissions); err != nil {
		return "", errors.Wrapf(err, "failed to create backup directory %s", dest)
	}

	for _, t := range pipeline.AllTypes {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		src := PartitionFile(b.dir, t)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := copyFile(src, PartitionFile(dest, t)); err != nil {
			return "", err
		}
	}
	return dest, nil
}

// BackupStamp formats now for backup directory names, filesystem-safe
func BackupStamp(now time.Time) string {
	return strings.NewReplacer(":", "-", ".", "-").Replace(now.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, am.DefaultFilePermissions)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "failed to copy %s", src)
	}
	return errors.Wrapf(out.Close(), "failed to close %s", dst)
}
