package store

import (
	"context"

	"github.com/Capstone-NovoCert/novo/pipeline"
)

// NewMemory returns a store with the same semantics as the durable backends,
// elision included, that keeps nothing across process restarts.
func NewMemory(opts Options) *PartitionStore {
	s, _ := newPartitionStore(memoryBackend{}, opts)
	return s
}

type memoryBackend struct{}

func (memoryBackend) name() string     { return "memory" }
func (memoryBackend) location() string { return ":memory:" }

func (memoryBackend) load(context.Context, pipeline.Type) (map[string]*pipeline.Execution, error) {
	return map[string]*pipeline.Execution{}, nil
}

func (memoryBackend) upsert(context.Context, pipeline.Type, map[string]*pipeline.Execution, *pipeline.Execution) error {
	return nil
}

func (memoryBackend) remove(context.Context, pipeline.Type, map[string]*pipeline.Execution, string) error {
	return nil
}

func (memoryBackend) truncate(context.Context, pipeline.Type) error { return nil }

func (memoryBackend) flush(context.Context, pipeline.Type, map[string]*pipeline.Execution) error {
	return nil
}

func (memoryBackend) close() error { return nil }
