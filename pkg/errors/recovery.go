package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError is a recovered panic turned into an error. gonum's mat and
// optimize packages panic on shape mismatches and bad settings; estimators
// recover those so callers get an error value instead of a crash.
type PanicError struct {
	Operation  string
	PanicValue interface{}
	StackTrace string

	// Prior is the error the function had already set when it panicked.
	Prior error
}

func (e *PanicError) Error() string {
	msg := fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
	if e.Prior != nil {
		msg += " (after: " + e.Prior.Error() + ")"
	}
	return msg
}

// Unwrap returns the panic value if it is an error, otherwise Prior.
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return e.Prior
}

// String includes the stack captured at recovery.
func (e *PanicError) String() string {
	return e.Error() + "\nStack trace:\n" + e.StackTrace
}

// NewPanicError captures the current stack for a recovered panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		Operation:  operation,
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
	}
}

// Recover must be deferred directly. It turns a panic into a *PanicError
// stored in *err, keeping any error already there as Prior.
//
//	func (pr *PoissonRegressor) Fit(X, y mat.Matrix) (err error) {
//		defer errors.Recover(&err, "PoissonRegressor.Fit")
//		...
//	}
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	pe := NewPanicError(operation, r)
	pe.Prior = *err
	*err = pe
}

// SafeExecute runs fn and reports a panic inside it as a *PanicError.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
