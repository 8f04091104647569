package pipeline

import (
	"testing"
	"time"
)

func TestCompileAndRunSimpleProgram(t *testing.T) {
	src := `
fun main() -> int {
	return 40 + 2;
}
`
	code, errs := CompileAndRun(src)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if code != 42 {
		t.Fatalf("exit code = %d, want 42", code)
	}
}

func TestLexErrorShortCircuits(t *testing.T) {
	src := `fun main() -> int { return "unterminated; }`
	_, errs := CompileAndRun(src)
	if len(errs) != 1 || errs[0].Kind != Lex {
		t.Fatalf("errs = %+v, want exactly one Lex error", errs)
	}
}

func TestParseErrorShortCircuits(t *testing.T) {
	src := `fun main() -> int { return 1 }`
	_, errs := CompileAndRun(src)
	if len(errs) == 0 {
		t.Fatalf("expected at least one parse error")
	}
	for _, e := range errs {
		if e.Kind != Parse {
			t.Errorf("error kind = %v, want Parse", e.Kind)
		}
	}
}

func TestControlFlowAndTypeErrorsAccumulate(t *testing.T) {
	// missing return on one path AND a type error in the returning
	// branch - both semantic passes run, so both errors surface, the
	// control-flow error first.
	src := `
fun f(int x) -> int {
	if x > 0 {
		return true;
	}
}
fun main() -> int {
	return f(1);
}
`
	_, errs := CompileAndRun(src)
	if len(errs) != 2 || errs[0].Kind != ControlFlow || errs[1].Kind != Type {
		t.Fatalf("errs = %+v, want one ControlFlow error then one Type error", errs)
	}
}

func TestTypeErrorsAccumulateWithMissingMain(t *testing.T) {
	src := `
fun f() -> int {
	return true;
}
`
	_, errs := CompileAndRun(src)
	if len(errs) < 2 {
		t.Fatalf("expected both a Type error and a missing-main error, got %+v", errs)
	}
	var sawType, sawMissingMain bool
	for _, e := range errs {
		if e.Kind == Type {
			sawType = true
		}
		if e.Kind == Parse && e.Message == `program has no "main" function` {
			sawMissingMain = true
		}
	}
	if !sawType || !sawMissingMain {
		t.Fatalf("errs = %+v, want a Type error and a Parse (missing main) error", errs)
	}
}

func TestRuntimeErrorSurfacesAsRuntimeKind(t *testing.T) {
	src := `
fun main() -> int {
	return 1 / 0;
}
`
	_, errs := CompileAndRun(src)
	if len(errs) != 1 || errs[0].Kind != Runtime {
		t.Fatalf("errs = %+v, want exactly one Runtime error", errs)
	}
}

func TestCompileAndRunBoundedCompletesWithinBudget(t *testing.T) {
	src := `
fun main() -> int {
	return 42;
}
`
	code, timedOut, errs := CompileAndRunBounded(src, time.Second, 10*time.Millisecond)
	if timedOut {
		t.Fatalf("expected the run to finish within budget")
	}
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if code != 42 {
		t.Fatalf("exit code = %d, want 42", code)
	}
}

func TestCompileAndRunBoundedTimesOutOnInfiniteLoop(t *testing.T) {
	src := `
fun main() -> int {
	while true {
	}
	return 0;
}
`
	_, timedOut, _ := CompileAndRunBounded(src, 50*time.Millisecond, 5*time.Millisecond)
	if !timedOut {
		t.Fatalf("expected an infinite loop to time out")
	}
}
