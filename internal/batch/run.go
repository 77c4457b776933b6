package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/curenest/internal/engine"
	"github.com/piwi3910/curenest/internal/model"
)

// Request is one problem submission.
type Request struct {
	RunID     string // optional, generated when empty
	Parts     []model.Part
	Beds      []model.Bed
	Budget    time.Duration   // overrides Settings.TimeBudget when > 0
	Objective model.Objective // overrides Settings.Objective when named
	Window    model.Window    // reservation window; defaults to now + CycleLength, End to Start + CycleLength
}

// BedOutcome is the per-bed result of a run: a draft batch, nothing (bed
// not needed), or a structured failure.
type BedOutcome struct {
	BedID string
	Batch *model.Batch
	Err   error
}

// RunResult is the outcome of one submission across all beds.
type RunResult struct {
	RunID     string
	Batches   []model.Batch
	Outcomes  []BedOutcome
	Unplaced  []string
	Cancelled bool
}

// Submit solves a problem across all of its beds and registers one draft
// batch per bed that received parts. A single bed is solved directly. Several
// beds are partitioned with the fallback placer and then solved on their own
// in parallel. Leftovers are finally spilled into spare room. No part is
// placed twice across the run.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (RunResult, error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()[:8]
	}
	result := RunResult{RunID: runID}

	settings := o.settings
	if req.Budget > 0 {
		settings.TimeBudget = req.Budget
	}
	if req.Objective.Name != "" {
		settings.Objective = req.Objective
	}

	window := req.Window
	switch {
	case window.IsZero():
		window.Start = o.now()
		window.End = window.Start.Add(settings.CycleLength)
	case window.End.IsZero():
		window.End = window.Start.Add(settings.CycleLength)
	}
	if !window.Valid() {
		return result, &model.InstanceError{Reason: "reservation window must end after it starts"}
	}

	m, err := engine.NewModel(engine.Problem{Parts: req.Parts, Beds: req.Beds}, settings)
	if err != nil {
		return result, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := o.startRun(runID, cancel); err != nil {
		return result, err
	}

	log := o.logger.With("run", runID)
	log.Info("run started", "parts", len(req.Parts), "beds", len(req.Beds), "budget", settings.TimeBudget)

	perBed, unplaced, err := o.plan(runCtx, m, settings)
	if err == nil && runCtx.Err() != nil {
		err = model.ErrCancelled
	}
	if err != nil {
		cancelled := errors.Is(err, model.ErrCancelled)
		o.finishRun(runID, nil, nil, cancelled)
		if cancelled {
			log.Info("run cancelled before completion")
			result.Cancelled = true
			return result, model.ErrCancelled
		}
		return result, err
	}

	now := o.now()
	var created []*model.Batch
	for bi, bed := range m.Beds {
		out := BedOutcome{BedID: bed.ID}
		sol := perBed[bi]
		switch {
		case len(sol.Placements) > 0:
			b := &model.Batch{
				ID:        uuid.New().String()[:8],
				RunID:     runID,
				BedID:     bed.ID,
				BedLabel:  bed.Label,
				Solution:  sol,
				State:     model.BatchDraft,
				Window:    window,
				CreatedAt: now,
				UpdatedAt: now,
			}
			created = append(created, b)
			out.Batch = b
		case len(unplaced) > 0:
			out.Err = fmt.Errorf("bed %s: no part could be placed: %w", bed.ID, model.ErrInfeasible)
		}
		result.Outcomes = append(result.Outcomes, out)
	}

	if !o.finishRun(runID, created, unplaced, false) {
		log.Info("run cancelled before completion")
		result.Outcomes = nil
		result.Cancelled = true
		return result, model.ErrCancelled
	}

	for _, b := range created {
		result.Batches = append(result.Batches, *b)
	}
	result.Unplaced = unplaced
	log.Info("run finished", "batches", len(created), "unplaced", len(unplaced))
	return result, nil
}

func (o *Orchestrator) startRun(runID string, cancel context.CancelFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.runs[runID]; exists {
		return &model.InstanceError{Reason: "run " + runID + " already exists"}
	}
	o.runs[runID] = &run{id: runID, cancel: cancel}
	return nil
}

// finishRun registers the created batches unless the run was cancelled in
// the meantime. It reports whether the batches were registered.
func (o *Orchestrator) finishRun(runID string, created []*model.Batch, unplaced []string, cancelled bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	r := o.runs[runID]
	r.done = true
	r.cancel = nil
	if cancelled || r.cancelled {
		r.cancelled = true
		return false
	}
	for _, b := range created {
		o.batches[b.ID] = b
		r.batchIDs = append(r.batchIDs, b.ID)
	}
	r.unplaced = append([]string(nil), unplaced...)
	return true
}

// plan produces one solution per bed (indexed like m.Beds) plus the run-wide
// unplaced part ids. A single bed is solved on the whole model. With several
// beds the fallback partition seeds each bed, and every bed also competes for
// the parts the partition could not place; a part claimed by more than one
// bed stays with the first.
func (o *Orchestrator) plan(ctx context.Context, m *engine.Model, settings model.Settings) ([]model.Solution, []string, error) {
	partition := engine.SolveFallback(m)

	perBed := make([]model.Solution, len(m.Beds))
	if len(m.Beds) == 1 {
		bed := m.Beds[0]
		solver := engine.New(settings, engine.WithLogger(o.logger.Named("bed").With("bed", bed.ID)))
		sol, err := solver.Solve(ctx, m)
		if errors.Is(err, model.ErrCancelled) {
			return nil, nil, err
		}
		if err != nil {
			o.logger.Warn("bed solve failed, keeping partition layout", "bed", bed.ID, "error", err)
			sol = partitionFor(partition, bed.ID, bed.Area())
		}
		perBed[0] = sol
	} else if err := o.solveBeds(ctx, m, settings, partition, perBed); err != nil {
		return nil, nil, err
	}
	if ctx.Err() != nil {
		return nil, nil, model.ErrCancelled
	}

	// Spill pass: leftovers go into whatever room the per-bed layouts left.
	var combined model.Solution
	placed := make(map[string]bool)
	for bi, sol := range perBed {
		kept := sol.Placements[:0:0]
		for _, p := range sol.Placements {
			if placed[p.PartID] {
				continue
			}
			kept = append(kept, p)
			placed[p.PartID] = true
		}
		perBed[bi].Placements = kept
		combined.Placements = append(combined.Placements, kept...)
	}
	var leftovers []string
	for _, p := range m.Parts {
		if !placed[p.ID] {
			leftovers = append(leftovers, p.ID)
		}
	}
	final := combined
	if len(leftovers) > 0 {
		final = engine.ExtendFallback(m, combined, leftovers)
	} else {
		final.BedAreas = partition.BedAreas
	}

	if violations := engine.Validate(m, final); len(violations) > 0 {
		return nil, nil, &model.ViolationError{Violations: violations}
	}

	unplaced := make([]string, 0)
	placed = make(map[string]bool)
	for _, p := range final.Placements {
		placed[p.PartID] = true
	}
	for _, p := range m.Parts {
		if !placed[p.ID] {
			unplaced = append(unplaced, p.ID)
		}
	}

	for bi, bed := range m.Beds {
		sol := perBed[bi]
		sol.Placements = final.ForBed(bed.ID)
		sol.BedAreas = map[string]float64{bed.ID: bed.Area()}
		sol.Unplaced = nil
		if len(sol.Placements) > 0 {
			sol.Feasible = true
			if sol.Status == "" || sol.Status == model.StatusInfeasible {
				sol.Status = model.StatusFeasible
			}
			if sol.Solver == "" {
				sol.Solver = model.SolverFallback
			}
			// Spilled placements are not covered by the bed's search.
			if len(sol.Placements) > len(perBed[bi].Placements) && sol.Status == model.StatusOptimal {
				sol.Status = model.StatusFeasible
			}
		}
		perBed[bi] = sol
	}
	return perBed, unplaced, nil
}

// solveBeds solves every bed on its own in parallel. Each bed sees the parts
// the partition gave it plus the parts the partition left over.
func (o *Orchestrator) solveBeds(ctx context.Context, m *engine.Model, settings model.Settings,
	partition model.Solution, perBed []model.Solution) error {
	assigned := make([][]string, len(m.Beds))
	bedIdx := make(map[string]int, len(m.Beds))
	for i, b := range m.Beds {
		bedIdx[b.ID] = i
	}
	for _, p := range partition.Placements {
		bi := bedIdx[p.BedID]
		assigned[bi] = append(assigned[bi], p.PartID)
	}

	workers := settings.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for bi, bed := range m.Beds {
		parts := append(append([]string(nil), assigned[bi]...), partition.Unplaced...)
		if len(parts) == 0 {
			continue
		}
		bi, bed := bi, bed
		g.Go(func() error {
			sub := m.Restrict(parts, []string{bed.ID})
			solver := engine.New(settings, engine.WithLogger(o.logger.Named("bed").With("bed", bed.ID)))
			sol, err := solver.Solve(gctx, sub)
			if errors.Is(err, model.ErrCancelled) {
				return err
			}
			if err != nil {
				// Keep the partition's placements for this bed.
				o.logger.Warn("bed solve failed, keeping partition layout", "bed", bed.ID, "error", err)
				sol = partitionFor(partition, bed.ID, bed.Area())
			}
			// A bed solved on its share alone proves nothing about the run.
			if sol.Status == model.StatusOptimal {
				sol.Status = model.StatusFeasible
			}
			perBed[bi] = sol
			return nil
		})
	}
	return g.Wait()
}

func partitionFor(partition model.Solution, bedID string, area float64) model.Solution {
	return model.Solution{
		Placements: partition.ForBed(bedID),
		Status:     model.StatusFeasible,
		Feasible:   true,
		Solver:     model.SolverFallback,
		Degraded:   true,
		BedAreas:   map[string]float64{bedID: area},
	}
}
