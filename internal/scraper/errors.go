package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrCountMismatch means the materialized item count never reached the
	// advertised total within the attempt budget.
	ErrCountMismatch = errors.New("item count did not converge")

	// ErrNotSelectable is returned by a select callback to skip a control
	// without recording an error.
	ErrNotSelectable = errors.New("control is not selectable")

	// ErrStaleView means neither the URL nor the result indicator changed
	// after a control was clicked.
	ErrStaleView = errors.New("view did not update after selection")
)

type ConvergenceError struct {
	Op       string
	Expected int
	Actual   int
	Err      error
}

func (e *ConvergenceError) Error() string {
	if errors.Is(e.Err, ErrCountMismatch) {
		return fmt.Sprintf("count mismatch: expected %d items, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("convergence failed during %s: %v", e.Op, e.Err)
}

func (e *ConvergenceError) Unwrap() error {
	return e.Err
}

type NavError struct {
	Index int
	Label string
	Op    string
	Err   error
}

func (e *NavError) Error() string {
	return fmt.Sprintf("control %d (%q) failed during %s: %v", e.Index, e.Label, e.Op, e.Err)
}

func (e *NavError) Unwrap() error {
	return e.Err
}
