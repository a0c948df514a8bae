// Package pipeline defines the execution record shared by the store, the
// runner and the controller, together with its state machine.
package pipeline

import (
	"strings"

	"github.com/Capstone-NovoCert/novo/errors"
)

// Type identifies an analysis stage. Each type owns one store partition.
type Type string

const (
	TypeDecoy      Type = "decoy"
	TypeDenovo     Type = "denovo"
	TypeFDR        Type = "fdr"
	TypePercolator Type = "percolator"
	TypePIF        Type = "pif"
	TypePost       Type = "post"
	TypeSA         Type = "sa"
)

// AllTypes lists every pipeline type in lookup order. Controllers scan
// partitions in this order when resolving an id.
var AllTypes = []Type{
	TypeDecoy,
	TypeDenovo,
	TypeFDR,
	TypePercolator,
	TypePIF,
	TypePost,
	TypeSA,
}

// Valid reports whether t is one of AllTypes
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Implemented reports whether a tool exists for t. The remaining stages are
// reserved: submissions are recorded and failed.
func (t Type) Implemented() bool {
	return t == TypeDecoy || t == TypeDenovo
}

func (t Type) String() string { return string(t) }

// ParseType converts user input into a Type
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.NewInvalidRequestError("unknown pipeline type %q (want one of %s)", s, typeList())
	}
	return t, nil
}

func typeList() string {
	names := make([]string, len(AllTypes))
	for i, t := range AllTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Status represents the lifecycle state of an execution
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists statuses in lifecycle order
var AllStatuses = []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled}

// IsValidStatus returns true if the status string is a valid Status
func IsValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition may leave s
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
