package model

import (
	"testing"
	"time"
)

func TestBatchStateTransitions(t *testing.T) {
	tests := []struct {
		from, to BatchState
		ok       bool
	}{
		{BatchDraft, BatchConfirmed, true},
		{BatchDraft, BatchAborted, true},
		{BatchDraft, BatchCompleted, false},
		{BatchConfirmed, BatchCompleted, true},
		{BatchConfirmed, BatchAborted, true},
		{BatchConfirmed, BatchDraft, false},
		{BatchCompleted, BatchAborted, false},
		{BatchAborted, BatchConfirmed, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}

func TestBatchStateFlags(t *testing.T) {
	if BatchDraft.Terminal() || BatchConfirmed.Terminal() {
		t.Error("draft and confirmed are not terminal")
	}
	if !BatchCompleted.Terminal() || !BatchAborted.Terminal() {
		t.Error("completed and aborted are terminal")
	}
	if BatchDraft.HoldsParts() || BatchAborted.HoldsParts() {
		t.Error("draft and aborted batches release their parts")
	}
	if !BatchConfirmed.HoldsParts() || !BatchCompleted.HoldsParts() {
		t.Error("confirmed and completed batches hold their parts")
	}
}

func TestWindowOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	w := Window{Start: base, End: base.Add(4 * time.Hour)}

	tests := []struct {
		name  string
		other Window
		want  bool
	}{
		{"identical", w, true},
		{"inside", Window{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}, true},
		{"straddles start", Window{Start: base.Add(-time.Hour), End: base.Add(time.Hour)}, true},
		{"touches end", Window{Start: base.Add(4 * time.Hour), End: base.Add(8 * time.Hour)}, false},
		{"touches start", Window{Start: base.Add(-2 * time.Hour), End: base}, false},
		{"later", Window{Start: base.Add(5 * time.Hour), End: base.Add(6 * time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Overlaps(tt.other); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if got := tt.other.Overlaps(w); got != tt.want {
				t.Errorf("overlap should be symmetric")
			}
		})
	}

	if !(Window{}).IsZero() || w.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestBatchPartIDs(t *testing.T) {
	b := Batch{Solution: Solution{Placements: []Placement{{PartID: "a"}, {PartID: "b"}}}}
	ids := b.PartIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("unexpected ids %v", ids)
	}
	if len((Batch{}).PartIDs()) != 0 {
		t.Error("empty batch should have no parts")
	}
}
