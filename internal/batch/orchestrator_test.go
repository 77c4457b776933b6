package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/curenest/internal/engine"
	"github.com/piwi3910/curenest/internal/model"
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func testSettings() model.Settings {
	s := model.DefaultSettings()
	s.TimeBudget = time.Second
	s.Workers = 2
	s.CycleLength = 4 * time.Hour
	return s
}

func testBed(id string, w, h float64) model.Bed {
	return model.Bed{ID: id, Label: "Autoclave " + id, Width: w, Height: h}
}

func testPart(id string, w, h float64) model.Part {
	return model.Part{ID: id, Label: id, Width: w, Height: h, Rotatable: true, Weight: 1, Group: "G1"}
}

func newTestOrchestrator() *Orchestrator {
	return New(testSettings(), WithClock(func() time.Time { return testNow }))
}

func submit(t *testing.T, o *Orchestrator, parts []model.Part, beds []model.Bed) RunResult {
	t.Helper()
	res, err := o.Submit(context.Background(), Request{Parts: parts, Beds: beds})
	require.NoError(t, err)
	return res
}

func TestSubmit_SingleBedDraft(t *testing.T) {
	o := newTestOrchestrator()
	res := submit(t, o, []model.Part{testPart("a", 40, 40), testPart("b", 30, 30)}, []model.Bed{testBed("B1", 100, 100)})

	require.Len(t, res.Batches, 1)
	b := res.Batches[0]
	assert.Equal(t, model.BatchDraft, b.State)
	assert.Equal(t, "B1", b.BedID)
	assert.Equal(t, "Autoclave B1", b.BedLabel)
	assert.Equal(t, res.RunID, b.RunID)
	assert.ElementsMatch(t, []string{"a", "b"}, b.PartIDs())
	assert.Equal(t, testNow, b.Window.Start)
	assert.Equal(t, testNow.Add(4*time.Hour), b.Window.End)
	assert.Empty(t, res.Unplaced)

	stored, err := o.Status(b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, stored.ID)
}

func TestSubmit_SpreadsAcrossBedsWithoutDuplicates(t *testing.T) {
	o := newTestOrchestrator()
	parts := []model.Part{
		testPart("p1", 60, 60), testPart("p2", 60, 60), testPart("p3", 60, 60), testPart("p4", 60, 60),
	}
	beds := []model.Bed{testBed("B1", 100, 100), testBed("B2", 100, 100)}

	res := submit(t, o, parts, beds)

	require.Len(t, res.Batches, 2)
	require.Len(t, res.Outcomes, 2)
	seen := make(map[string]bool)
	for _, b := range res.Batches {
		require.Len(t, b.PartIDs(), 1)
		for _, id := range b.PartIDs() {
			assert.False(t, seen[id], "part %s placed twice", id)
			seen[id] = true
		}
	}
	assert.Len(t, res.Unplaced, 2)
	for _, id := range res.Unplaced {
		assert.False(t, seen[id])
	}
}

// tightParts only reach full cover on an 8x8 bed when the largest part is
// left out.
func tightParts() []model.Part {
	return []model.Part{
		testPart("p1", 5, 2), testPart("p2", 6, 6), testPart("p3", 6, 5), testPart("p4", 3, 6),
	}
}

func TestSubmit_SingleBedMatchesDirectSolve(t *testing.T) {
	bed := testBed("B1", 8, 8)
	direct, err := engine.New(testSettings()).SolveProblem(context.Background(),
		engine.Problem{Parts: tightParts(), Beds: []model.Bed{bed}})
	require.NoError(t, err)
	require.InDelta(t, 58, direct.CoveredArea(), 1e-6)

	o := newTestOrchestrator()
	res := submit(t, o, tightParts(), []model.Bed{bed})

	require.Len(t, res.Batches, 1)
	b := res.Batches[0]
	assert.InDelta(t, direct.CoveredArea(), b.Solution.CoveredArea(), 1e-6)
	assert.ElementsMatch(t, []string{"p1", "p3", "p4"}, b.PartIDs())
	assert.Equal(t, []string{"p2"}, res.Unplaced)
	assert.Equal(t, direct.Status, b.Solution.Status)
}

func TestSubmit_BedsCompeteForPartitionLeftovers(t *testing.T) {
	o := newTestOrchestrator()
	res := submit(t, o, tightParts(), []model.Bed{testBed("B1", 8, 8), testBed("B2", 2, 2)})

	require.Len(t, res.Outcomes, 2)
	first := res.Outcomes[0].Batch
	require.NotNil(t, first)
	assert.InDelta(t, 58, first.Solution.CoveredArea(), 1e-6)
	assert.ElementsMatch(t, []string{"p1", "p3", "p4"}, first.PartIDs())
	assert.Equal(t, model.StatusFeasible, first.Solution.Status, "a bed solved alone is not optimal for the run")

	assert.Nil(t, res.Outcomes[1].Batch)
	assert.ErrorIs(t, res.Outcomes[1].Err, model.ErrInfeasible)
	assert.Equal(t, []string{"p2"}, res.Unplaced)
}

func TestSubmit_InfeasibleBedOutcome(t *testing.T) {
	o := newTestOrchestrator()
	parts := []model.Part{testPart("a", 90, 90), testPart("b", 90, 90)}
	beds := []model.Bed{testBed("B1", 100, 100), testBed("B2", 50, 50)}

	res := submit(t, o, parts, beds)

	require.Len(t, res.Outcomes, 2)
	assert.NotNil(t, res.Outcomes[0].Batch)
	assert.NoError(t, res.Outcomes[0].Err)
	assert.Nil(t, res.Outcomes[1].Batch)
	assert.ErrorIs(t, res.Outcomes[1].Err, model.ErrInfeasible)
	assert.Len(t, res.Unplaced, 1)
}

func TestSubmit_UnusedBedHasNoBatch(t *testing.T) {
	o := newTestOrchestrator()
	res := submit(t, o, []model.Part{testPart("a", 10, 10)}, []model.Bed{testBed("B1", 100, 100), testBed("B2", 100, 100)})

	require.Len(t, res.Outcomes, 2)
	assert.Nil(t, res.Outcomes[1].Batch)
	assert.NoError(t, res.Outcomes[1].Err)
	assert.Len(t, res.Batches, 1)
}

func TestSubmit_InvalidInstance(t *testing.T) {
	o := newTestOrchestrator()
	_, err := o.Submit(context.Background(), Request{
		Parts: []model.Part{testPart("huge", 500, 500)},
		Beds:  []model.Bed{testBed("B1", 100, 100)},
	})
	assert.ErrorIs(t, err, model.ErrInvalidInstance)
	assert.Empty(t, o.Snapshot())
}

func TestSubmit_DuplicateRunID(t *testing.T) {
	o := newTestOrchestrator()
	req := Request{RunID: "r1", Parts: []model.Part{testPart("a", 10, 10)}, Beds: []model.Bed{testBed("B1", 100, 100)}}
	_, err := o.Submit(context.Background(), req)
	require.NoError(t, err)

	_, err = o.Submit(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrInvalidInstance)
}

func TestSubmit_CancelledContext(t *testing.T) {
	o := newTestOrchestrator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := o.Submit(ctx, Request{RunID: "r1", Parts: []model.Part{testPart("a", 10, 10)}, Beds: []model.Bed{testBed("B1", 100, 100)}})
	assert.ErrorIs(t, err, model.ErrCancelled)
	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Batches)
	assert.Empty(t, o.Snapshot())

	status, err := o.RunStatus("r1")
	require.NoError(t, err)
	assert.True(t, status.Cancelled)
}

func TestCancel(t *testing.T) {
	o := newTestOrchestrator()
	assert.ErrorIs(t, o.Cancel("missing"), model.ErrNotFound)

	res := submit(t, o, []model.Part{testPart("a", 10, 10)}, []model.Bed{testBed("B1", 100, 100)})
	// Finished runs are not affected.
	require.NoError(t, o.Cancel(res.RunID))
	status, err := o.RunStatus(res.RunID)
	require.NoError(t, err)
	assert.False(t, status.Cancelled)
	assert.Len(t, status.Batches, 1)
}

func TestLifecycle(t *testing.T) {
	o := newTestOrchestrator()
	res := submit(t, o, []model.Part{testPart("a", 10, 10)}, []model.Bed{testBed("B1", 100, 100)})
	id := res.Batches[0].ID

	_, err := o.Complete(id)
	assert.ErrorIs(t, err, model.ErrInvalidTransition, "draft cannot complete")

	b, err := o.Confirm(id)
	require.NoError(t, err)
	assert.Equal(t, model.BatchConfirmed, b.State)

	b, err = o.Complete(id)
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, b.State)

	_, err = o.Abort(id)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = o.Confirm("missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestConfirm_ConcurrentReservationConflict(t *testing.T) {
	o := newTestOrchestrator()
	bed := testBed("B1", 100, 100)
	first := submit(t, o, []model.Part{testPart("a", 10, 10)}, []model.Bed{bed})
	second := submit(t, o, []model.Part{testPart("b", 10, 10)}, []model.Bed{bed})
	ids := []string{first.Batches[0].ID, second.Batches[0].ID}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = o.Confirm(id)
		}(i, id)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, model.ErrReservationConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
}

func TestConfirm_ConcurrentAcrossBeds(t *testing.T) {
	o := newTestOrchestrator()
	var ids []string
	for i, bedID := range []string{"B1", "B1", "B1", "B2", "B2", "B2"} {
		part := testPart(fmt.Sprintf("p%d", i), 10, 10)
		res := submit(t, o, []model.Part{part}, []model.Bed{testBed(bedID, 100, 100)})
		ids = append(ids, res.Batches[0].ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = o.Confirm(id)
		}(i, id)
	}
	wg.Wait()

	confirmed := make(map[string]int)
	for i, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, model.ErrReservationConflict)
			continue
		}
		b, err := o.Status(ids[i])
		require.NoError(t, err)
		confirmed[b.BedID]++
	}
	assert.Equal(t, map[string]int{"B1": 1, "B2": 1}, confirmed)
}

func TestConfirm_DisjointWindowsDoNotConflict(t *testing.T) {
	o := newTestOrchestrator()
	bed := testBed("B1", 100, 100)
	first := submit(t, o, []model.Part{testPart("a", 10, 10)}, []model.Bed{bed})
	later, err := o.Submit(context.Background(), Request{
		Parts:  []model.Part{testPart("b", 10, 10)},
		Beds:   []model.Bed{bed},
		Window: model.Window{Start: testNow.Add(4 * time.Hour), End: testNow.Add(8 * time.Hour)},
	})
	require.NoError(t, err)

	_, err = o.Confirm(first.Batches[0].ID)
	require.NoError(t, err)
	_, err = o.Confirm(later.Batches[0].ID)
	assert.NoError(t, err)
}

func TestSubmit_OpenWindowGetsCycleLength(t *testing.T) {
	o := newTestOrchestrator()
	bed := testBed("B1", 100, 100)
	first, err := o.Submit(context.Background(), Request{
		Parts: []model.Part{testPart("a", 10, 10)}, Beds: []model.Bed{bed},
		Window: model.Window{Start: testNow},
	})
	require.NoError(t, err)
	second, err := o.Submit(context.Background(), Request{
		Parts: []model.Part{testPart("b", 10, 10)}, Beds: []model.Bed{bed},
		Window: model.Window{Start: testNow.Add(time.Hour)},
	})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(4*time.Hour), first.Batches[0].Window.End)

	_, err = o.Confirm(first.Batches[0].ID)
	require.NoError(t, err)
	_, err = o.Confirm(second.Batches[0].ID)
	assert.ErrorIs(t, err, model.ErrReservationConflict)
}

func TestSubmit_RejectsBackwardWindow(t *testing.T) {
	o := newTestOrchestrator()
	for _, w := range []model.Window{
		{Start: testNow, End: testNow},
		{Start: testNow, End: testNow.Add(-time.Hour)},
		{End: testNow},
	} {
		_, err := o.Submit(context.Background(), Request{
			Parts: []model.Part{testPart("a", 10, 10)}, Beds: []model.Bed{testBed("B1", 100, 100)},
			Window: w,
		})
		assert.ErrorIs(t, err, model.ErrInvalidInstance)
	}
	assert.Empty(t, o.Snapshot())
}

func TestConfirm_PartConflict(t *testing.T) {
	o := newTestOrchestrator()
	part := testPart("a", 10, 10)
	first := submit(t, o, []model.Part{part}, []model.Bed{testBed("B1", 100, 100)})
	second := submit(t, o, []model.Part{part}, []model.Bed{testBed("B2", 100, 100)})

	_, err := o.Confirm(first.Batches[0].ID)
	require.NoError(t, err)
	_, err = o.Confirm(second.Batches[0].ID)
	assert.ErrorIs(t, err, model.ErrPartConflict)

	// Aborting the holder frees the part.
	_, err = o.Abort(first.Batches[0].ID)
	require.NoError(t, err)
	_, err = o.Confirm(second.Batches[0].ID)
	assert.NoError(t, err)
}

func TestEligibleParts(t *testing.T) {
	o := newTestOrchestrator()
	parts := []model.Part{testPart("a", 90, 90), testPart("b", 90, 90)}
	res := submit(t, o, parts, []model.Bed{testBed("B1", 100, 100)})
	require.Len(t, res.Batches, 1)
	placed := res.Batches[0].PartIDs()[0]

	eligible, err := o.EligibleParts(res.RunID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, eligible, "draft parts and unplaced parts")

	_, err = o.Confirm(res.Batches[0].ID)
	require.NoError(t, err)
	eligible, err = o.EligibleParts(res.RunID)
	require.NoError(t, err)
	assert.NotContains(t, eligible, placed)
	assert.Len(t, eligible, 1)

	_, err = o.EligibleParts("missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSnapshotRestore(t *testing.T) {
	o := newTestOrchestrator()
	res := submit(t, o, []model.Part{testPart("a", 10, 10)}, []model.Bed{testBed("B1", 100, 100)})
	_, err := o.Confirm(res.Batches[0].ID)
	require.NoError(t, err)

	snap := o.Snapshot()
	require.Len(t, snap, 1)

	restored := newTestOrchestrator()
	require.NoError(t, restored.Restore(snap))

	b, err := restored.Status(res.Batches[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchConfirmed, b.State)

	status, err := restored.RunStatus(res.RunID)
	require.NoError(t, err)
	assert.Len(t, status.Batches, 1)

	// The restored reservation still blocks the bed.
	other := submit(t, restored, []model.Part{testPart("z", 10, 10)}, []model.Bed{testBed("B1", 100, 100)})
	_, err = restored.Confirm(other.Batches[0].ID)
	assert.ErrorIs(t, err, model.ErrReservationConflict)
}

func TestRestore_RejectsUnknownState(t *testing.T) {
	o := newTestOrchestrator()
	err := o.Restore([]model.Batch{{ID: "x", BedID: "B1", State: "paused"}})
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Empty(t, o.Snapshot())

	err = o.Restore([]model.Batch{{State: model.BatchDraft}})
	assert.ErrorIs(t, err, model.ErrInvalidInstance)

	backward := model.Window{Start: testNow, End: testNow.Add(-time.Hour)}
	for _, w := range []model.Window{{}, {Start: testNow}, backward} {
		err = o.Restore([]model.Batch{{ID: "x", BedID: "B1", State: model.BatchConfirmed, Window: w}})
		assert.ErrorIs(t, err, model.ErrInvalidInstance)
	}
	assert.Empty(t, o.Snapshot())
}

func TestRestoreUnplaced(t *testing.T) {
	o := newTestOrchestrator()
	res := submit(t, o, []model.Part{testPart("a", 10, 10)}, []model.Bed{testBed("B1", 100, 100)})
	_, err := o.Confirm(res.Batches[0].ID)
	require.NoError(t, err)

	restored := newTestOrchestrator()
	require.NoError(t, restored.Restore(o.Snapshot()))
	restored.RestoreUnplaced(res.RunID, []string{"x", "a"})

	// "a" is held by the confirmed batch and is not offered again.
	eligible, err := restored.EligibleParts(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, eligible)

	status, err := restored.RunStatus(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "a"}, status.Unplaced)
}
