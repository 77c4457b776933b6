package model

import "time"

// BatchState is the lifecycle state of a nesting batch.
type BatchState string

const (
	BatchDraft     BatchState = "draft"
	BatchConfirmed BatchState = "confirmed"
	BatchCompleted BatchState = "completed" // terminal, production done
	BatchAborted   BatchState = "aborted"   // terminal, discarded
)

// Terminal reports whether no further transition is possible.
func (s BatchState) Terminal() bool {
	return s == BatchCompleted || s == BatchAborted
}

// CanTransition reports whether moving from s to next is allowed.
func (s BatchState) CanTransition(next BatchState) bool {
	switch s {
	case BatchDraft:
		return next == BatchConfirmed || next == BatchAborted
	case BatchConfirmed:
		return next == BatchCompleted || next == BatchAborted
	default:
		return false
	}
}

// HoldsParts reports whether a batch in this state keeps its parts out of
// re-submission.
func (s BatchState) HoldsParts() bool {
	return s == BatchConfirmed || s == BatchCompleted
}

// Window is the time span a batch occupies its autoclave.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open windows intersect.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Valid reports whether the window has a start and ends after it.
func (w Window) Valid() bool {
	return !w.Start.IsZero() && w.End.After(w.Start)
}

// IsZero reports whether the window is unset.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Batch binds one solution to one bed.
type Batch struct {
	ID        string     `json:"id"`
	RunID     string     `json:"run_id"`
	BedID     string     `json:"bed_id"`
	BedLabel  string     `json:"bed_label"`
	Solution  Solution   `json:"solution"`
	State     BatchState `json:"state"`
	Window    Window     `json:"window"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PartIDs returns the ids of every part placed in the batch.
func (b Batch) PartIDs() []string {
	ids := make([]string, 0, len(b.Solution.Placements))
	for _, p := range b.Solution.Placements {
		ids = append(ids, p.PartID)
	}
	return ids
}
