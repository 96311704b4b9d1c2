// Package errors provides structured error handling for the compositor.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindConfig indicates a settings or project resolution failure.
	KindConfig
	// KindScene indicates a malformed scene document.
	KindScene
	// KindInvariant indicates a broken compositor invariant.
	KindInvariant
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindScene:
		return "scene"
	case KindInvariant:
		return "invariant"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// CompositorError represents a structured error reported by the compositor
// or its front ends.
type CompositorError struct {
	// Op is the operation that failed (e.g., "scene.Decode").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Layer is the id of the layer involved, or 0.
	Layer int
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *CompositorError) Error() string {
	if e.Layer != 0 {
		return fmt.Sprintf("%s [%s] layer=%d: %v", e.Op, e.Kind, e.Layer, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *CompositorError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "compositor.UpdateCompositingLayers").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// InvariantError describes compositor state that the update passes are
// designed never to produce, such as a reflection whose compositing state
// disagrees with its source.
type InvariantError struct {
	// Invariant names the broken rule.
	Invariant string
	// Layer is the id of the offending layer.
	Layer int
	// Detail is a human-readable description.
	Detail string
}

func (e *InvariantError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invariant %q violated at layer %d: %s", e.Invariant, e.Layer, e.Detail)
	}
	return fmt.Sprintf("invariant %q violated at layer %d", e.Invariant, e.Layer)
}

// ErrorHandler receives errors reported by the compositor.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *CompositorError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
