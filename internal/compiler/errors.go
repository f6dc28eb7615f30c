package compiler

import (
	stderrors "errors"
	"fmt"
)

// ConcurrentCompilationError is returned when Run or a watch is started on a
// compiler that already has an in-flight run/watch cycle. The failing call
// mutates no compiler state.
type ConcurrentCompilationError struct {
	CompilerName string
}

func (e *ConcurrentCompilationError) Error() string {
	if e.CompilerName == "" {
		return "concurrent compilation: compiler is already running"
	}
	return fmt.Sprintf("concurrent compilation: compiler %q is already running", e.CompilerName)
}

// IsConcurrentCompilation reports whether err is a re-entrancy failure.
func IsConcurrentCompilation(err error) bool {
	var cce *ConcurrentCompilationError
	return stderrors.As(err, &cce)
}
