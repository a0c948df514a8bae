package store

import (
	"context"
	"time"

	"github.com/Capstone-NovoCert/novo/pipeline"
)

// backend is the durable side of a PartitionStore. Calls for one partition
// are serialized by the partition lock. records is always the complete
// partition as it will be after the call succeeds.
type backend interface {
	name() string
	location() string
	// load returns the partition's records; a missing partition is empty
	load(ctx context.Context, t pipeline.Type) (map[string]*pipeline.Execution, error)
	upsert(ctx context.Context, t pipeline.Type, records map[string]*pipeline.Execution, rec *pipeline.Execution) error
	remove(ctx context.Context, t pipeline.Type, records map[string]*pipeline.Execution, id string) error
	truncate(ctx context.Context, t pipeline.Type) error
	flush(ctx context.Context, t pipeline.Type, records map[string]*pipeline.Execution) error
	close() error
}

// backupBackend is implemented by backends with durable data
type backupBackend interface {
	backup(ctx context.Context, dest string, now time.Time) (string, error)
}
