package controller

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

// Stats counts executions. Total equals the sum of either map.
type Stats struct {
	Total    int                     `json:"total"`
	ByStatus map[pipeline.Status]int `json:"byStatus"`
	ByType   map[pipeline.Type]int   `json:"byType"`
}

// GetStatus finds an execution by id in any partition. Returns nil when no
// partition has it.
func (c *Controller) GetStatus(ctx context.Context, id string) (*pipeline.Execution, error) {
	for _, t := range pipeline.AllTypes {
		rec, err := c.store.FindByID(ctx, t, id)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to look up %s in %s partition", id, t)
		}
		if rec != nil {
			return rec, nil
		}
	}
	return nil, nil
}

// ListAll returns every execution, newest first. Executions created at the
// same instant are ordered by id.
func (c *Controller) ListAll(ctx context.Context) ([]*pipeline.Execution, error) {
	parts := make([][]*pipeline.Execution, len(pipeline.AllTypes))

	// Partitions lock independently, so read them side by side
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range pipeline.AllTypes {
		g.Go(func() error {
			recs, err := c.store.FindAll(gctx, t)
			if err != nil {
				return errors.Wrapf(err, "failed to list %s partition", t)
			}
			parts[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*pipeline.Execution
	for _, recs := range parts {
		all = append(all, recs...)
	}
	sortNewestFirst(all)
	return all, nil
}

// ListByType returns the executions of one type, newest first
func (c *Controller) ListByType(ctx context.Context, t pipeline.Type) ([]*pipeline.Execution, error) {
	recs, err := c.store.FindAll(ctx, t)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s partition", t)
	}
	sortNewestFirst(recs)
	return recs, nil
}

// Delete removes an execution from whichever partition holds it
func (c *Controller) Delete(ctx context.Context, id string) (bool, error) {
	for _, t := range pipeline.AllTypes {
		rec, err := c.store.FindByID(ctx, t, id)
		if err != nil {
			return false, errors.Wrapf(err, "failed to look up %s in %s partition", id, t)
		}
		if rec == nil {
			continue
		}
		ok, err := c.store.Delete(ctx, t, id)
		if err != nil {
			return false, errors.Wrapf(err, "failed to delete execution %s", id)
		}
		if ok {
			c.log.Infow("Deleted execution", logger.FieldExecutionID, id, logger.FieldPipelineType, t)
		}
		return ok, nil
	}
	return false, nil
}

// Stats counts executions by status and by type in one pass
func (c *Controller) Stats(ctx context.Context) (Stats, error) {
	all, err := c.ListAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{
		Total:    len(all),
		ByStatus: make(map[pipeline.Status]int),
		ByType:   make(map[pipeline.Type]int),
	}
	for _, rec := range all {
		s.ByStatus[rec.Status]++
		s.ByType[rec.PipelineType]++
	}
	return s, nil
}

// LastParamsFor returns the params of the newest execution of type t, or nil
// when there is none
func (c *Controller) LastParamsFor(ctx context.Context, t pipeline.Type) (pipeline.Params, error) {
	recs, err := c.ListByType(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0].Params, nil
}

// SuggestParams proposes params for the next execution of type t: the last
// ones used, or for a first denovo run, the last decoy run's output
// directory as both the target and decoy spectra directories.
func (c *Controller) SuggestParams(ctx context.Context, t pipeline.Type) (pipeline.Params, error) {
	last, err := c.LastParamsFor(ctx, t)
	if err != nil || last != nil || t != pipeline.TypeDenovo {
		return last, err
	}

	prev, err := c.LastParamsFor(ctx, pipeline.TypeDecoy)
	if err != nil {
		return nil, err
	}
	decoy, ok := prev.(*pipeline.DecoyParams)
	if !ok || decoy.OutputDir == "" {
		return nil, nil
	}
	return &pipeline.DenovoParams{
		TargetSpectraDir: decoy.OutputDir,
		DecoySpectraDir:  decoy.OutputDir,
	}, nil
}

// RecoverOrphaned fails every pending or running execution that no
// submission in this process is working on, which means the process that
// started it died. Returns the ids it marked.
func (c *Controller) RecoverOrphaned(ctx context.Context) ([]string, error) {
	var recovered []string
	for _, t := range pipeline.AllTypes {
		recs, err := c.store.FindAll(ctx, t)
		if err != nil {
			return recovered, errors.Wrapf(err, "failed to list %s partition", t)
		}
		for _, rec := range recs {
			if rec.Status.Terminal() || c.isInFlight(rec.ID) {
				continue
			}
			updated, err := c.store.Update(ctx, t, rec.ID, func(e *pipeline.Execution) error {
				// Skip anything that finished since the scan
				if e.Status.Terminal() {
					return nil
				}
				return e.Fail(pipeline.ErrorCodeInterrupted, pipeline.MessageInterrupted, nil, c.now())
			})
			if err != nil {
				return recovered, errors.Wrapf(err, "failed to recover execution %s", rec.ID)
			}
			if updated != nil && updated.Code == pipeline.ErrorCodeInterrupted {
				recovered = append(recovered, rec.ID)
				c.log.Warnw("Recovered orphaned execution",
					logger.FieldExecutionID, rec.ID,
					logger.FieldPipelineType, t,
					"was", rec.Status,
				)
			}
		}
	}
	return recovered, nil
}

func sortNewestFirst(recs []*pipeline.Execution) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}
