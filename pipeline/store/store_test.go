package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Capstone-NovoCert/novo/errors"
	testutil "github.com/Capstone-NovoCert/novo/internal/testing"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

func decoyParams() *pipeline.DecoyParams {
	return &pipeline.DecoyParams{
		InputDir:           "/spectra/in",
		OutputDir:          "/spectra/out",
		PrecursorTolerance: "20",
		RandomSeed:         "7",
		Memory:             "4",
	}
}

func newDecoy(t *testing.T) *pipeline.Execution {
	t.Helper()
	rec, err := pipeline.NewExecution(pipeline.TypeDecoy, decoyParams())
	require.NoError(t, err)
	return rec
}

// backends returns a fresh store per backend, each behaving identically
func backends(t *testing.T) map[string]func(t *testing.T) *PartitionStore {
	return map[string]func(t *testing.T) *PartitionStore{
		"memory": func(t *testing.T) *PartitionStore {
			return NewMemory(Options{Logger: zaptest.NewLogger(t).Sugar()})
		},
		"json": func(t *testing.T) *PartitionStore {
			s, err := NewJSON(t.TempDir(), Options{Logger: zaptest.NewLogger(t).Sugar()})
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) *PartitionStore {
			s, err := NewSQLiteWithDB(testutil.CreateTestDB(t), Options{Logger: zaptest.NewLogger(t).Sugar()})
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			created, err := s.Create(ctx, pipeline.TypeDecoy, newDecoy(t))
			require.NoError(t, err)
			require.NotEmpty(t, created.ID)
			assert.Equal(t, pipeline.StatusPending, created.Status)
			assert.False(t, created.CreatedAt.IsZero())
			assert.Equal(t, created.CreatedAt, created.UpdatedAt)

			got, err := s.FindByID(ctx, pipeline.TypeDecoy, created.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, created.Params, got.Params)

			// Another partition never sees it
			other, err := s.FindByID(ctx, pipeline.TypeDenovo, created.ID)
			require.NoError(t, err)
			assert.Nil(t, other)

			// Update returns the full output, storage keeps only the marker
			updated, err := s.Update(ctx, pipeline.TypeDecoy, created.ID, func(e *pipeline.Execution) error {
				if err := e.Start(time.Now()); err != nil {
					return err
				}
				return e.Complete(&pipeline.DecoyResult{Outcome: pipeline.Outcome{
					Success: true, Message: "ok", Output: "spectra written", HasOutput: true,
				}}, time.Now())
			})
			require.NoError(t, err)
			assert.Equal(t, "spectra written", updated.Result.Summary().Output)
			assert.Equal(t, pipeline.StatusCompleted, updated.Status)
			assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

			got, err = s.FindByID(ctx, pipeline.TypeDecoy, created.ID)
			require.NoError(t, err)
			assert.Empty(t, got.Result.Summary().Output)
			assert.True(t, got.Result.Summary().HasOutput)

			all, err := s.FindAll(ctx, pipeline.TypeDecoy)
			require.NoError(t, err)
			assert.Len(t, all, 1)

			ok, err := s.Delete(ctx, pipeline.TypeDecoy, created.ID)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.Delete(ctx, pipeline.TypeDecoy, created.ID)
			require.NoError(t, err)
			assert.False(t, ok)

			missing, err := s.Update(ctx, pipeline.TypeDecoy, created.ID, nil)
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestStoreUpdateGuards(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			created, err := s.Create(ctx, pipeline.TypeDecoy, newDecoy(t))
			require.NoError(t, err)

			// A failing mutation writes nothing
			boom := errors.New("boom")
			_, err = s.Update(ctx, pipeline.TypeDecoy, created.ID, func(e *pipeline.Execution) error {
				e.Status = pipeline.StatusRunning
				return boom
			})
			assert.True(t, errors.Is(err, boom))
			got, _ := s.FindByID(ctx, pipeline.TypeDecoy, created.ID)
			assert.Equal(t, pipeline.StatusPending, got.Status)

			// Identity fields survive whatever the mutation does
			updated, err := s.Update(ctx, pipeline.TypeDecoy, created.ID, func(e *pipeline.Execution) error {
				e.ID = "hijacked"
				e.PipelineType = pipeline.TypeSA
				e.Params.(*pipeline.DecoyParams).Memory = "999"
				e.CreatedAt = time.Time{}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, created.ID, updated.ID)
			assert.Equal(t, pipeline.TypeDecoy, updated.PipelineType)
			assert.Equal(t, "4", updated.Params.(*pipeline.DecoyParams).Memory)
			assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
		})
	}
}

func TestStoreRejectsBadPartitions(t *testing.T) {
	s := NewMemory(Options{})
	ctx := context.Background()

	_, err := s.Create(ctx, pipeline.Type("blast"), &pipeline.Execution{})
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = s.Create(ctx, pipeline.TypeDenovo, newDecoy(t))
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = s.Create(ctx, pipeline.TypeDecoy, nil)
	assert.Error(t, err)

	_, err = s.FindAll(ctx, pipeline.Type(""))
	assert.Error(t, err)
}

func TestStoreConcurrentCreatesLoseNothing(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			const n = 40
			var wg sync.WaitGroup
			ids := make(chan string, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					rec, err := s.Create(ctx, pipeline.TypeDecoy, newDecoy(t))
					if assert.NoError(t, err) {
						ids <- rec.ID
					}
				}()
			}
			wg.Wait()
			close(ids)

			seen := map[string]bool{}
			for id := range ids {
				assert.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
			}

			all, err := s.FindAll(ctx, pipeline.TypeDecoy)
			require.NoError(t, err)
			assert.Len(t, all, n)
		})
	}
}

func TestStoreClear(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			_, err := s.Create(ctx, pipeline.TypeDecoy, newDecoy(t))
			require.NoError(t, err)
			_, err = s.Create(ctx, pipeline.TypeFDR, &pipeline.Execution{PipelineType: pipeline.TypeFDR,
				Params: &pipeline.StageParams{Stage: pipeline.TypeFDR}})
			require.NoError(t, err)

			require.NoError(t, s.Clear(ctx))

			for _, typ := range pipeline.AllTypes {
				all, err := s.FindAll(ctx, typ)
				require.NoError(t, err)
				assert.Empty(t, all, "%s", typ)
			}
		})
	}
}

func TestStoreClosed(t *testing.T) {
	s := NewMemory(Options{})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")

	_, err := s.FindAll(context.Background(), pipeline.TypeDecoy)
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, errors.Is(s.Flush(context.Background()), ErrClosed))
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	s := NewMemory(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, pipeline.TypeDecoy, newDecoy(t))
	assert.True(t, errors.Is(err, context.Canceled))
}

// failingBackend wraps memory and fails writes on demand
type failingBackend struct {
	memoryBackend
	fail bool
}

func (b *failingBackend) upsert(ctx context.Context, t pipeline.Type, r map[string]*pipeline.Execution, rec *pipeline.Execution) error {
	if b.fail {
		return fmt.Errorf("disk full")
	}
	return nil
}

func (b *failingBackend) remove(ctx context.Context, t pipeline.Type, r map[string]*pipeline.Execution, id string) error {
	if b.fail {
		return fmt.Errorf("permission denied")
	}
	return nil
}

func TestStorePersistenceFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	b := &failingBackend{}
	s, err := newPartitionStore(b, Options{})
	require.NoError(t, err)

	rec, err := s.Create(ctx, pipeline.TypeDecoy, newDecoy(t))
	require.NoError(t, err)

	b.fail = true

	_, err = s.Create(ctx, pipeline.TypeDecoy, newDecoy(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Contains(t, err.Error(), "disk full")

	_, err = s.Update(ctx, pipeline.TypeDecoy, rec.ID, func(e *pipeline.Execution) error {
		return e.Start(time.Now())
	})
	assert.True(t, errors.Is(err, ErrPersistence))

	_, err = s.Delete(ctx, pipeline.TypeDecoy, rec.ID)
	assert.True(t, errors.Is(err, ErrPersistence))

	// Nothing changed in memory
	all, err := s.FindAll(ctx, pipeline.TypeDecoy)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, pipeline.StatusPending, all[0].Status)
}

func TestStoreDeterministicIDsAndClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	s := NewMemory(Options{
		Now:   func() time.Time { return fixed },
		NewID: func() string { n++; return fmt.Sprintf("id-%d", n) },
	})

	rec, err := s.Create(context.Background(), pipeline.TypeDecoy, newDecoy(t))
	require.NoError(t, err)
	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, fixed, rec.CreatedAt)
	assert.Equal(t, "memory", s.Backend())
	assert.Equal(t, ":memory:", s.Location())
}

func TestElide(t *testing.T) {
	rec := &pipeline.Execution{
		PipelineType: pipeline.TypeDenovo,
		Result:       &pipeline.DenovoResult{Outcome: pipeline.Outcome{Output: "psm table"}},
	}
	e := elide(rec)
	assert.Empty(t, e.Result.Summary().Output)
	assert.True(t, e.Result.Summary().HasOutput)
	assert.Equal(t, "psm table", rec.Result.Summary().Output, "input untouched")

	// An already elided record keeps its marker
	again := elide(e)
	assert.True(t, again.Result.Summary().HasOutput)

	// Nothing captured, nothing claimed
	empty := elide(&pipeline.Execution{Result: &pipeline.DecoyResult{}})
	assert.False(t, empty.Result.Summary().HasOutput)

	assert.Nil(t, elide(&pipeline.Execution{}).Result)
}
