// Package store persists executions, one partition per pipeline type.
//
// Every backend shares the same engine: partitions load lazily on first
// access, each partition has its own lock, and every mutation is written
// through to the backend before the in-memory copy changes. A failed write
// leaves the partition exactly as it was.
package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

var (
	// ErrPersistence marks a failed durable write. The operation that hit it
	// had no effect.
	ErrPersistence = errors.New("failed to persist execution store")

	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("execution store is closed")
)

// Mutation edits a copy of a stored execution. Returning an error aborts the
// update without writing.
type Mutation func(*pipeline.Execution) error

// Store maps (partition, id) to an execution. Partitions are pipeline types.
// Lookups that miss return nil with a nil error.
type Store interface {
	Create(ctx context.Context, partition pipeline.Type, rec *pipeline.Execution) (*pipeline.Execution, error)
	FindByID(ctx context.Context, partition pipeline.Type, id string) (*pipeline.Execution, error)
	FindAll(ctx context.Context, partition pipeline.Type) ([]*pipeline.Execution, error)
	Update(ctx context.Context, partition pipeline.Type, id string, mutate Mutation) (*pipeline.Execution, error)
	Delete(ctx context.Context, partition pipeline.Type, id string) (bool, error)
	Clear(ctx context.Context) error
	Flush(ctx context.Context) error
	Close() error
}

// Options tune a PartitionStore
type Options struct {
	// EagerLoad reads every partition at construction instead of on first access
	EagerLoad bool
	Logger    *zap.SugaredLogger
	// Now and NewID are replaced in tests
	Now   func() time.Time
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.ComponentLogger("store")
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// PartitionStore is the Store implementation shared by every backend
type PartitionStore struct {
	backend    backend
	partitions *partitionSet
	log        *zap.SugaredLogger
	now        func() time.Time
	newID      func() string
	closed     atomic.Bool
}

var _ Store = (*PartitionStore)(nil)

func newPartitionStore(b backend, opts Options) (*PartitionStore, error) {
	opts = opts.withDefaults()
	s := &PartitionStore{
		backend:    b,
		partitions: newPartitionSet(),
		log:        opts.Logger,
		now:        opts.Now,
		newID:      opts.NewID,
	}
	if opts.EagerLoad {
		if err := s.loadAll(context.Background()); err != nil {
			b.close()
			return nil, err
		}
	}
	return s, nil
}

// Backend names the storage behind the store (json, memory, sqlite)
func (s *PartitionStore) Backend() string { return s.backend.name() }

// Location is where the backend keeps its data: a directory, a database
// file, or ":memory:"
func (s *PartitionStore) Location() string { return s.backend.location() }

// Create assigns a fresh id and timestamps, persists the elided record and
// returns the full one.
func (s *PartitionStore) Create(ctx context.Context, t pipeline.Type, rec *pipeline.Execution) (*pipeline.Execution, error) {
	if rec == nil {
		return nil, errors.NewInvalidRequestError("cannot create a nil execution")
	}
	if rec.PipelineType != "" && rec.PipelineType != t {
		return nil, errors.NewInvalidRequestError("%s execution cannot be stored in the %s partition", rec.PipelineType, t)
	}
	p, err := s.acquire(ctx, t)
	if err != nil {
		return nil, err
	}
	defer p.mu.Unlock()

	out := rec.Clone()
	out.ID = s.newID()
	out.PipelineType = t
	if out.Status == "" {
		out.Status = pipeline.StatusPending
	}
	now := s.now()
	out.CreatedAt = now
	out.UpdatedAt = now

	stored := elide(out)
	next := p.with(stored)
	if err := s.backend.upsert(ctx, t, next, stored); err != nil {
		return nil, s.persistError(err, t, "create")
	}
	p.records = next
	p.written = true

	s.log.Debugw("Created execution", logger.FieldPartition, t, logger.FieldExecutionID, out.ID)
	return out, nil
}

// FindByID returns a copy of the record, or nil when absent
func (s *PartitionStore) FindByID(ctx context.Context, t pipeline.Type, id string) (*pipeline.Execution, error) {
	p, err := s.acquire(ctx, t)
	if err != nil {
		return nil, err
	}
	defer p.mu.Unlock()

	return p.records[id].Clone(), nil
}

// FindAll returns copies of every record in the partition, in no particular order
func (s *PartitionStore) FindAll(ctx context.Context, t pipeline.Type) ([]*pipeline.Execution, error) {
	p, err := s.acquire(ctx, t)
	if err != nil {
		return nil, err
	}
	defer p.mu.Unlock()

	out := make([]*pipeline.Execution, 0, len(p.records))
	for _, rec := range p.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Update applies mutate to a copy of the stored record under the partition
// lock, refreshes updatedAt and persists. id, pipelineType, params and
// createdAt cannot be changed by the mutation. Returns the full merged
// record, or nil when absent.
func (s *PartitionStore) Update(ctx context.Context, t pipeline.Type, id string, mutate Mutation) (*pipeline.Execution, error) {
	p, err := s.acquire(ctx, t)
	if err != nil {
		return nil, err
	}
	defer p.mu.Unlock()

	cur, ok := p.records[id]
	if !ok {
		return nil, nil
	}

	work := cur.Clone()
	if mutate != nil {
		if err := mutate(work); err != nil {
			return nil, err
		}
	}
	work.ID = cur.ID
	work.PipelineType = cur.PipelineType
	work.Params = cur.Clone().Params
	work.CreatedAt = cur.CreatedAt
	work.UpdatedAt = s.now()

	stored := elide(work)
	next := p.with(stored)
	if err := s.backend.upsert(ctx, t, next, stored); err != nil {
		return nil, s.persistError(err, t, "update")
	}
	p.records = next
	p.written = true

	s.log.Debugw("Updated execution",
		logger.FieldPartition, t,
		logger.FieldExecutionID, id,
		logger.FieldStatus, work.Status,
	)
	return work, nil
}

// Delete removes the record and reports whether it existed. A miss writes
// nothing.
func (s *PartitionStore) Delete(ctx context.Context, t pipeline.Type, id string) (bool, error) {
	p, err := s.acquire(ctx, t)
	if err != nil {
		return false, err
	}
	defer p.mu.Unlock()

	if _, ok := p.records[id]; !ok {
		return false, nil
	}

	next := p.without(id)
	if err := s.backend.remove(ctx, t, next, id); err != nil {
		return false, s.persistError(err, t, "delete")
	}
	p.records = next
	p.written = true

	s.log.Debugw("Deleted execution", logger.FieldPartition, t, logger.FieldExecutionID, id)
	return true, nil
}

// Clear empties every partition
func (s *PartitionStore) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	for _, t := range pipeline.AllTypes {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := s.partitions.get(t)
		p.mu.Lock()
		err := s.backend.truncate(ctx, t)
		if err == nil {
			p.records = map[string]*pipeline.Execution{}
			p.loaded = true
		}
		p.mu.Unlock()
		if err != nil {
			return s.persistError(err, t, "clear")
		}
	}
	s.log.Infow("Cleared execution store", logger.FieldBackend, s.backend.name())
	return nil
}

// Flush rewrites every loaded partition to the backend
func (s *PartitionStore) Flush(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.flush(ctx, false)
}

// flush writes loaded partitions, or with writtenOnly just those this store
// has mutated. A store that only read never rewrites another process's data.
func (s *PartitionStore) flush(ctx context.Context, writtenOnly bool) error {
	for _, t := range pipeline.AllTypes {
		p := s.partitions.get(t)
		p.mu.Lock()
		var err error
		if p.loaded && (p.written || !writtenOnly) {
			err = s.backend.flush(ctx, t, p.records)
		}
		p.mu.Unlock()
		if err != nil {
			return s.persistError(err, t, "flush")
		}
	}
	return nil
}

// Close flushes the partitions this store wrote and releases the backend.
// Safe to call more than once.
func (s *PartitionStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	flushErr := s.flush(context.Background(), true)
	if err := s.backend.close(); err != nil {
		return errors.Wrap(err, "failed to close execution store")
	}
	return flushErr
}

// Backup copies the store's durable data to dest, or to a timestamped
// directory inside the data directory when dest is empty. Returns where the
// copy was written.
func (s *PartitionStore) Backup(ctx context.Context, dest string) (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	b, ok := s.backend.(backupBackend)
	if !ok {
		return "", errors.WithHint(
			errors.Newf("the %s backend has no durable data to back up", s.backend.name()),
			"set store.backend to json or sqlite",
		)
	}
	// Hold every partition so the copy is consistent
	for _, t := range pipeline.AllTypes {
		p := s.partitions.get(t)
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	out, err := b.backup(ctx, dest, s.now())
	if err != nil {
		return "", errors.Wrap(err, "failed to back up execution store")
	}
	s.log.Infow("Backed up execution store", logger.FieldPath, out)
	return out, nil
}

// acquire validates the partition, locks it and loads it if needed. The
// caller must unlock p.mu.
func (s *PartitionStore) acquire(ctx context.Context, t pipeline.Type) (*partition, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := s.partitions.get(t)
	if p == nil {
		return nil, errors.NewInvalidRequestError("unknown partition %q", t)
	}
	p.mu.Lock()
	if err := s.ensureLoaded(ctx, t, p); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	return p, nil
}

func (s *PartitionStore) ensureLoaded(ctx context.Context, t pipeline.Type, p *partition) error {
	if p.loaded {
		return nil
	}
	records, err := s.backend.load(ctx, t)
	if err != nil {
		return errors.Wrapf(err, "failed to load %s partition", t)
	}
	if records == nil {
		records = map[string]*pipeline.Execution{}
	}
	p.records = records
	p.loaded = true
	s.log.Debugw("Loaded partition", logger.FieldPartition, t, logger.FieldCount, len(records))
	return nil
}

func (s *PartitionStore) loadAll(ctx context.Context) error {
	for _, t := range pipeline.AllTypes {
		p := s.partitions.get(t)
		p.mu.Lock()
		err := s.ensureLoaded(ctx, t, p)
		p.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PartitionStore) persistError(err error, t pipeline.Type, op string) error {
	s.log.Errorw("Failed to persist partition",
		logger.FieldPartition, t,
		logger.FieldOperation, op,
		logger.FieldError, err,
	)
	return errors.Mark(errors.Wrapf(err, "%s in %s partition", op, t), ErrPersistence)
}
