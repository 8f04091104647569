package compiler

import (
	"nilanc/ast"
	"nilanc/token"

	"github.com/sirupsen/logrus"
)

// Output is the composer's result: the frozen pools plus one ordered,
// still-labeled instruction stream ready for the assembler.
type Output struct {
	Consts       []byte
	StringPool   []string
	Instructions []Instruction
}

// workerResult pairs one function's compiled instructions with its name,
// so the composer can restore a deterministic, main-first order
// regardless of which worker goroutine finishes first.
type workerResult struct {
	name  string
	instr []Instruction
}

// Compile runs the full code-generation phase: build the shared constant
// and string pools, dispatch one goroutine per function to lower it
// independently, then join and compose the results with main's
// instructions placed first — spec.md's explicit ordering requirement,
// enforced here rather than left to goroutine completion order (the
// point original_source/src/lang/codegen.rs's parallel_compile leaves
// ambiguous).
//
// Grounded on codegen.rs's CompilerComposer::parallel_compile
// (Arc+mpsc::channel+thread::spawn), translated to a shared struct
// passed by pointer, a channel buffered with one slot per function, and one goroutine per
// function — the concurrency idiom informatter-nilan's cmd_* files use
// for I/O, generalized here to CPU-bound lowering work.
func Compile(funcs []ast.Function) (Output, error) {
	if _, ok := indexOf(funcs, "main"); !ok {
		return Output{}, SemanticError{Message: "program has no \"main\" function"}
	}

	cb := newConstBuilder()
	cb.scanFuncs(funcs)
	logrus.WithFields(logrus.Fields{"phase": "codegen-constants", "funcCount": len(funcs)}).Debug("constant pool built")

	shared := &sharedConsts{consts: cb.consts, pool: cb.pool, retTypes: collectRetTypes(funcs)}

	results := make(chan workerResult, len(funcs))
	for _, fn := range funcs {
		go func(fn ast.Function) {
			fc := newFuncCompiler(shared, fn)
			results <- workerResult{name: fn.Name, instr: fc.Compile()}
		}(fn)
	}

	byName := make(map[string][]Instruction, len(funcs))
	for range funcs {
		r := <-results
		byName[r.name] = r.instr
	}
	close(results)

	var out []Instruction
	out = append(out, byName["main"]...)
	for _, fn := range funcs {
		if fn.Name == "main" {
			continue
		}
		out = append(out, byName[fn.Name]...)
	}

	logrus.WithFields(logrus.Fields{"phase": "codegen-join", "funcCount": len(funcs)}).Debug("code generation complete")

	return Output{Consts: cb.consts, StringPool: cb.pool, Instructions: out}, nil
}

func collectRetTypes(funcs []ast.Function) map[string]token.Type {
	m := make(map[string]token.Type, len(funcs))
	for _, fn := range funcs {
		m[fn.Name] = fn.ReturnType
	}
	return m
}

func indexOf(funcs []ast.Function, name string) (int, bool) {
	for i, fn := range funcs {
		if fn.Name == name {
			return i, true
		}
	}
	return 0, false
}
