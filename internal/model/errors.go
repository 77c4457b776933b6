package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the nesting core.
var (
	ErrInvalidInstance     = errors.New("invalid instance")
	ErrInfeasible          = errors.New("infeasible")
	ErrTimeout             = errors.New("solver timeout")
	ErrGeometryViolation   = errors.New("geometry violation")
	ErrCancelled           = errors.New("cancelled")
	ErrReservationConflict = errors.New("bed reservation conflict")
	ErrPartConflict        = errors.New("part already committed to another batch")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrNotFound            = errors.New("not found")
)

// InstanceError describes why a problem instance was rejected.
type InstanceError struct {
	PartID string
	BedID  string
	Reason string
}

func (e *InstanceError) Error() string {
	switch {
	case e.PartID != "":
		return fmt.Sprintf("invalid instance: part %s: %s", e.PartID, e.Reason)
	case e.BedID != "":
		return fmt.Sprintf("invalid instance: bed %s: %s", e.BedID, e.Reason)
	default:
		return "invalid instance: " + e.Reason
	}
}

func (e *InstanceError) Unwrap() error { return ErrInvalidInstance }

// ViolationKind classifies a geometric or capacity failure of a candidate solution.
type ViolationKind string

const (
	ViolationOverlap          ViolationKind = "overlap"
	ViolationCapacity         ViolationKind = "capacity"
	ViolationOutOfBounds      ViolationKind = "out-of-bounds"
	ViolationUnsupportedLevel ViolationKind = "unsupported-level"
	ViolationDuplicate        ViolationKind = "duplicate-assignment"
	ViolationMissing          ViolationKind = "missing-part"
)

// Violation is one broken invariant found by validation.
type Violation struct {
	Kind   ViolationKind `json:"kind"`
	BedID  string        `json:"bed_id,omitempty"`
	PartID string        `json:"part_id,omitempty"`
	Other  string        `json:"other,omitempty"` // second part for overlaps
	Detail string        `json:"detail"`
}

func (v Violation) String() string {
	var b strings.Builder
	b.WriteString(string(v.Kind))
	if v.BedID != "" {
		b.WriteString(" bed=" + v.BedID)
	}
	if v.PartID != "" {
		b.WriteString(" part=" + v.PartID)
	}
	if v.Other != "" {
		b.WriteString(" other=" + v.Other)
	}
	if v.Detail != "" {
		b.WriteString(": " + v.Detail)
	}
	return b.String()
}

// ViolationError is returned when every recovery path produced an invalid solution.
type ViolationError struct {
	Violations []Violation
}

func (e *ViolationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrGeometryViolation.Error()
	}
	return fmt.Sprintf("%s: %s (and %d more)", ErrGeometryViolation, e.Violations[0], len(e.Violations)-1)
}

func (e *ViolationError) Unwrap() error { return ErrGeometryViolation }
