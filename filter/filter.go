// Package filter compiles expr expressions into predicates over demos, used
// by the CLI to narrow listing results client-side.
package filter

import (
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/demostf/go-client/demostf"
)

// Filter is a compiled filter expression.
type Filter struct {
	program *vm.Program
	source  string
}

// Compile compiles a filter expression. Expressions see the demo under
// "Demo" plus a few helpers, e.g.:
//
//	Demo.PlayerCount >= 12 && contains(Demo.Map, "gully")
//	daysSince(Demo.Time) < 30
func Compile(expression string) (*Filter, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, &CompilationError{Expression: expression, Reason: "empty expression"}
	}

	program, err := expr.Compile(expression,
		expr.Env(newEnv(demostf.Demo{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{Expression: expression, Reason: err.Error(), Err: err}
	}

	return &Filter{program: program, source: expression}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.source
}

// Match evaluates the filter against a single demo.
func (f *Filter) Match(demo demostf.Demo) (bool, error) {
	out, err := expr.Run(f.program, newEnv(demo))
	if err != nil {
		return false, &EvaluationError{Expression: f.source, Demo: demo.Name, Err: err}
	}
	matched, ok := out.(bool)
	return ok && matched, nil
}

// Apply returns the demos matching the filter, preserving their order.
func (f *Filter) Apply(demos []demostf.Demo) ([]demostf.Demo, error) {
	matched := make([]demostf.Demo, 0, len(demos))
	for _, demo := range demos {
		ok, err := f.Match(demo)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, demo)
		}
	}
	return matched, nil
}

func newEnv(demo demostf.Demo) map[string]any {
	return map[string]any{
		"Demo": demo,
		"daysSince": func(t time.Time) int {
			return int(time.Since(t).Hours() / 24)
		},
		"contains": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"lower": strings.ToLower,
		"now":   time.Now,
	}
}
