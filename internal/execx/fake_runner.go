package execx

import (
	"context"
	"strings"
)

// Call records one FakeRunner invocation.
type Call struct {
	Name  string
	Args  []string
	Shell bool
	// Script holds the full pipeline for shell calls.
	Script string
}

// Outcome scripts the result of one FakeRunner invocation.
type Outcome struct {
	Result Result
	Err    error
}

// FakeRunner implements Runner for testing. Calls are recorded in order;
// outcomes are consumed in order and default to a clean exit when exhausted.
type FakeRunner struct {
	Calls    []Call
	Outcomes []Outcome
}

func (f *FakeRunner) Run(_ context.Context, name string, args ...string) (Result, error) {
	f.Calls = append(f.Calls, Call{Name: name, Args: args})
	return f.next()
}

func (f *FakeRunner) RunShell(_ context.Context, script string) (Result, error) {
	f.Calls = append(f.Calls, Call{Shell: true, Script: script})
	return f.next()
}

func (f *FakeRunner) next() (Result, error) {
	if len(f.Outcomes) == 0 {
		return Result{}, nil
	}
	out := f.Outcomes[0]
	f.Outcomes = f.Outcomes[1:]
	return out.Result, out.Err
}

// ShellCalls returns only the shell-pipeline invocations.
func (f *FakeRunner) ShellCalls() []Call {
	var calls []Call
	for _, c := range f.Calls {
		if c.Shell {
			calls = append(calls, c)
		}
	}
	return calls
}

// ExecCalls returns only the direct-exec invocations.
func (f *FakeRunner) ExecCalls() []Call {
	var calls []Call
	for _, c := range f.Calls {
		if !c.Shell {
			calls = append(calls, c)
		}
	}
	return calls
}

// Argv renders a direct-exec call as a single command line.
func (c Call) Argv() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}
