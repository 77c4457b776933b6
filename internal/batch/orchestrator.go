package batch

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/piwi3910/curenest/internal/model"
)

// Orchestrator turns solves into draft batches and drives their lifecycle.
// It keeps batches in memory only; persisting them is the caller's job.
type Orchestrator struct {
	settings model.Settings
	logger   hclog.Logger
	now      func() time.Time

	// mu guards the registry. State changes hold it exclusively from the
	// conflict check to the write, so two confirms never both pass.
	mu      sync.RWMutex
	batches map[string]*model.Batch
	runs    map[string]*run
}

// run tracks one submission.
type run struct {
	id        string
	batchIDs  []string
	unplaced  []string
	cancel    context.CancelFunc
	cancelled bool
	done      bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func New(settings model.Settings, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		settings: settings,
		logger:   hclog.NewNullLogger(),
		now:      time.Now,
		batches:  make(map[string]*model.Batch),
		runs:     make(map[string]*run),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns a copy of a batch.
func (o *Orchestrator) Status(batchID string) (model.Batch, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	b, ok := o.batches[batchID]
	if !ok {
		return model.Batch{}, fmt.Errorf("batch %s: %w", batchID, model.ErrNotFound)
	}
	return *b, nil
}

// Confirm reserves the batch's bed for its window. It fails with
// ErrReservationConflict when another confirmed batch holds the same bed in
// an overlapping window, and with ErrPartConflict when one of its parts is
// already held by a confirmed or completed batch.
func (o *Orchestrator) Confirm(batchID string) (model.Batch, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	b, ok := o.batches[batchID]
	if !ok {
		return model.Batch{}, fmt.Errorf("batch %s: %w", batchID, model.ErrNotFound)
	}
	if !b.State.CanTransition(model.BatchConfirmed) {
		return *b, fmt.Errorf("confirm batch %s from %s: %w", batchID, b.State, model.ErrInvalidTransition)
	}

	held := make(map[string]string)
	for _, other := range o.batches {
		if other.ID == b.ID || !other.State.HoldsParts() {
			continue
		}
		if other.State == model.BatchConfirmed && other.BedID == b.BedID && other.Window.Overlaps(b.Window) {
			return *b, fmt.Errorf("bed %s already reserved by batch %s: %w", b.BedID, other.ID, model.ErrReservationConflict)
		}
		for _, id := range other.PartIDs() {
			held[id] = other.ID
		}
	}
	for _, id := range b.PartIDs() {
		if owner, ok := held[id]; ok {
			return *b, fmt.Errorf("part %s held by batch %s: %w", id, owner, model.ErrPartConflict)
		}
	}

	o.setState(b, model.BatchConfirmed)
	o.logger.Info("batch confirmed", "batch", b.ID, "bed", b.BedID, "parts", len(b.Solution.Placements))
	return *b, nil
}

// Abort discards a draft or confirmed batch.
func (o *Orchestrator) Abort(batchID string) (model.Batch, error) {
	return o.transition(batchID, model.BatchAborted)
}

// Complete records that a confirmed batch has been cured.
func (o *Orchestrator) Complete(batchID string) (model.Batch, error) {
	return o.transition(batchID, model.BatchCompleted)
}

func (o *Orchestrator) transition(batchID string, next model.BatchState) (model.Batch, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	b, ok := o.batches[batchID]
	if !ok {
		return model.Batch{}, fmt.Errorf("batch %s: %w", batchID, model.ErrNotFound)
	}
	if !b.State.CanTransition(next) {
		return *b, fmt.Errorf("batch %s: %s -> %s: %w", batchID, b.State, next, model.ErrInvalidTransition)
	}
	o.setState(b, next)
	o.logger.Info("batch state changed", "batch", b.ID, "state", next)
	return *b, nil
}

// setState must be called with o.mu held.
func (o *Orchestrator) setState(b *model.Batch, next model.BatchState) {
	b.State = next
	b.UpdatedAt = o.now()
}

// RunStatus reports the current view of a run.
func (o *Orchestrator) RunStatus(runID string) (RunResult, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.runs[runID]
	if !ok {
		return RunResult{}, fmt.Errorf("run %s: %w", runID, model.ErrNotFound)
	}
	res := RunResult{
		RunID:     r.id,
		Unplaced:  append([]string(nil), r.unplaced...),
		Cancelled: r.cancelled,
	}
	for _, id := range r.batchIDs {
		if b, ok := o.batches[id]; ok {
			res.Batches = append(res.Batches, *b)
		}
	}
	return res, nil
}

// Cancel stops an in-flight run. Runs that already finished are left as is.
func (o *Orchestrator) Cancel(runID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, model.ErrNotFound)
	}
	if r.done {
		return nil
	}
	r.cancelled = true
	if r.cancel != nil {
		r.cancel()
	}
	o.logger.Info("run cancelled", "run", runID)
	return nil
}

// EligibleParts lists the parts of a run that may be submitted again: those
// left unplaced and those in batches that are neither confirmed nor
// completed.
func (o *Orchestrator) EligibleParts(runID string) ([]string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, model.ErrNotFound)
	}

	held := o.heldParts()
	var out []string
	for _, id := range r.unplaced {
		if !held[id] {
			out = append(out, id)
		}
	}
	for _, bid := range r.batchIDs {
		b := o.batches[bid]
		if b == nil || b.State.HoldsParts() {
			continue
		}
		for _, id := range b.PartIDs() {
			if !held[id] {
				out = append(out, id)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// heldParts must be called with o.mu held.
func (o *Orchestrator) heldParts() map[string]bool {
	held := make(map[string]bool)
	for _, b := range o.batches {
		if b.State.HoldsParts() {
			for _, id := range b.PartIDs() {
				held[id] = true
			}
		}
	}
	return held
}

// Snapshot returns copies of every batch, oldest first.
func (o *Orchestrator) Snapshot() []model.Batch {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]model.Batch, 0, len(o.batches))
	for _, b := range o.batches {
		out = append(out, *b)
	}
	sortBatches(out)
	return out
}

// Restore loads batches saved by a previous process. Existing batches with
// the same id are replaced; runs are rebuilt from the batches' run ids.
// Every batch needs a window that ends after it starts.
func (o *Orchestrator) Restore(batches []model.Batch) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, b := range batches {
		if b.ID == "" || b.BedID == "" {
			return fmt.Errorf("restore: batch without id or bed: %w", model.ErrInvalidInstance)
		}
		switch b.State {
		case model.BatchDraft, model.BatchConfirmed, model.BatchCompleted, model.BatchAborted:
		default:
			return fmt.Errorf("restore batch %s: unknown state %q: %w", b.ID, b.State, model.ErrInvalidTransition)
		}
		if !b.Window.Valid() {
			return fmt.Errorf("restore batch %s: window %s - %s: %w", b.ID, b.Window.Start, b.Window.End, model.ErrInvalidInstance)
		}
	}
	for i := range batches {
		b := batches[i]
		o.batches[b.ID] = &b
		if b.RunID == "" {
			continue
		}
		r, ok := o.runs[b.RunID]
		if !ok {
			r = &run{id: b.RunID, done: true}
			o.runs[b.RunID] = r
		}
		if !slices.Contains(r.batchIDs, b.ID) {
			r.batchIDs = append(r.batchIDs, b.ID)
		}
	}
	o.logger.Debug("batches restored", "count", len(batches))
	return nil
}

// RestoreUnplaced records the unplaced parts of a run loaded from storage,
// so EligibleParts can offer them again.
func (o *Orchestrator) RestoreUnplaced(runID string, unplaced []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.runs[runID]
	if !ok {
		r = &run{id: runID, done: true}
		o.runs[runID] = r
	}
	r.unplaced = append([]string(nil), unplaced...)
}

func sortBatches(bs []model.Batch) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].CreatedAt.Equal(bs[j].CreatedAt) {
			return bs[i].CreatedAt.Before(bs[j].CreatedAt)
		}
		return bs[i].ID < bs[j].ID
	})
}
