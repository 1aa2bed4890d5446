package compute

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned by Init when the raster format cannot be stored.
	ErrUnsupportedFormat = errors.New("compute: unsupported raster format")
	// ErrNoVariables is returned by Init for an empty graph.
	ErrNoVariables = errors.New("compute: graph has no variables")
	// ErrInvalidVariable covers empty or duplicate names and missing kernels.
	ErrInvalidVariable = errors.New("compute: invalid variable")
	// ErrDimensionMismatch is returned when a raster does not match the graph size.
	ErrDimensionMismatch = errors.New("compute: raster dimensions do not match graph")
	// ErrUnknownVariable is returned for a dependency on a variable of another graph.
	ErrUnknownVariable = errors.New("compute: dependency on unknown variable")
	// ErrInvalidDependency is returned when a same-frame read would observe unwritten data.
	ErrInvalidDependency = errors.New("compute: invalid dependency")
	// ErrNotInitialized is returned by Compute before a successful Init.
	ErrNotInitialized = errors.New("compute: graph not initialized")
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("compute: graph already initialized")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("compute: graph closed")
	// ErrUndeclaredRead is raised when a kernel reads a variable it does not depend on.
	ErrUndeclaredRead = errors.New("compute: read of undeclared dependency")
)

// KernelError reports a failed evaluation. The graph is halted after it:
// no rasters from the failed frame are committed.
type KernelError struct {
	Variable string
	Frame    uint64
	Err      error
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("compute: kernel %q failed at frame %d: %v", e.Variable, e.Frame, e.Err)
}

func (e *KernelError) Unwrap() error { return e.Err }
