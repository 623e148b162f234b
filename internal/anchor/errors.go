package anchor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAnchors is returned when recovery or resolution gets zero anchor groups
	ErrNoAnchors = errors.New("at least one anchor is required")
	// ErrDimensionMismatch is returned when an anchor vector does not live in Q's row space
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// UnknownTokenError reports an anchor token missing from the vocabulary
type UnknownTokenError struct {
	Token string
	Group int
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("anchor group %d: unknown token %q", e.Group, e.Token)
}

// EmptyAnchorGroupError reports an anchor group with no tokens
type EmptyAnchorGroupError struct {
	Group int
}

func (e *EmptyAnchorGroupError) Error() string {
	return fmt.Sprintf("anchor group %d is empty", e.Group)
}

// RecoveryNonConvergenceError is a warning: the row's solve hit its iteration
// budget and the best iterate was kept
type RecoveryNonConvergenceError struct {
	Row        int
	Iterations int
	Gap        float64
}

func (e *RecoveryNonConvergenceError) Error() string {
	return fmt.Sprintf("row %d did not converge after %d iterations (gap %.3g)", e.Row, e.Iterations, e.Gap)
}
