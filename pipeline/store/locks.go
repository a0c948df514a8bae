package store

import (
	"sync"

	"github.com/Capstone-NovoCert/novo/pipeline"
)

// partition is one pipeline type's records. mu guards every field, and is
// held across the whole read-modify-write of a mutation.
type partition struct {
	mu      sync.Mutex
	loaded  bool
	written bool // mutated through this store since it was opened
	records map[string]*pipeline.Execution // elided
}

// with returns a copy of the records with rec set
func (p *partition) with(rec *pipeline.Execution) map[string]*pipeline.Execution {
	next := make(map[string]*pipeline.Execution, len(p.records)+1)
	for id, r := range p.records {
		next[id] = r
	}
	next[rec.ID] = rec
	return next
}

// without returns a copy of the records with id removed
func (p *partition) without(id string) map[string]*pipeline.Execution {
	next := make(map[string]*pipeline.Execution, len(p.records))
	for rid, r := range p.records {
		if rid != id {
			next[rid] = r
		}
	}
	return next
}

// partitionSet holds one partition per pipeline type. The type set is
// closed, so the map is built once and never written again.
type partitionSet struct {
	byType map[pipeline.Type]*partition
}

func newPartitionSet() *partitionSet {
	s := &partitionSet{byType: make(map[pipeline.Type]*partition, len(pipeline.AllTypes))}
	for _, t := range pipeline.AllTypes {
		s.byType[t] = &partition{}
	}
	return s
}

// get returns nil for an unknown type
func (s *partitionSet) get(t pipeline.Type) *partition {
	return s.byType[t]
}
