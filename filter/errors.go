package filter

import "fmt"

// CompilationError indicates a filter expression could not be compiled.
type CompilationError struct {
	Expression string
	Reason     string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compilation error in %q: %s", e.Expression, e.Reason)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// EvaluationError indicates a filter could not be evaluated against a demo.
type EvaluationError struct {
	Expression string
	Demo       string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error for %q on demo %q: %v", e.Expression, e.Demo, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
