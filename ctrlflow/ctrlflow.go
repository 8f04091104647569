// Package ctrlflow implements nilan's control-flow checker: for each
// function it builds a basic-block graph and proves every path reaches a
// return. Grounded directly on original_source/src/lang/ctrlflow.rs
// (BasicBlock, OneOrTwo<T>, check_for_returns, create_basic_blocks,
// create_if_basic, create_while_basic, check_for_ret) — the teacher repo
// has no equivalent static pass, so this module translates the Rust
// original's Rc-based shared-ownership graph into Go *Block pointers.
package ctrlflow

import (
	"fmt"

	"nilanc/ast"
)

// ControlFlowError reports that a function has at least one path that
// never reaches a return statement.
type ControlFlowError struct {
	FuncName string
}

func (e ControlFlowError) Error() string {
	return fmt.Sprintf("💥 control-flow error: function %q does not return on all paths", e.FuncName)
}

// Block is one basic block: whether it (locally) returns, and its
// predecessor edges. The block's statements themselves are not stored.
type Block struct {
	Returns bool
	Preds   Predecessors
}

// PredKind selects how many predecessor edges a block has.
type PredKind int

const (
	PredNone PredKind = iota
	PredOne
	PredTwo
)

// Predecessors is the OneOrTwo<Rc<Block>> of the original: None, One(block),
// or Two(block, block) — modeled as two optional pointers plus a kind tag.
type Predecessors struct {
	Kind PredKind
	A    *Block
	B    *Block
}

// returnsOnAllPaths reports whether this block provably returns on every path
// reaching it, recursing on predecessors inputs-first exactly as
// check_for_ret does in the original.
func (b *Block) returnsOnAllPaths() bool {
	if b.Returns {
		return true
	}
	switch b.Preds.Kind {
	case PredNone:
		return false
	case PredOne:
		return b.Preds.A.returnsOnAllPaths()
	case PredTwo:
		return b.Preds.A.returnsOnAllPaths() && b.Preds.B.returnsOnAllPaths()
	default:
		return false
	}
}

// Check proves that every function in funcs returns on all paths,
// accumulating one ControlFlowError per offending function (not
// fail-fast — the pipeline driver will concatenate these with every
// other phase's errors per spec.md §7).
func Check(funcs []ast.Function) []error {
	var errs []error
	for _, fn := range funcs {
		terminal := buildBlocks(fn.Body, nil)
		if !terminal.returnsOnAllPaths() {
			errs = append(errs, ControlFlowError{FuncName: fn.Name})
		}
	}
	return errs
}

// buildBlocks walks a statement list building the chain of basic blocks,
// starting from an optional entry predecessor, and returns the terminal
// block — the block whose return-status (transitively) determines whether
// the statement list as a whole always returns.
func buildBlocks(stmts []ast.Stmt, entry *Block) *Block {
	current := &Block{Preds: predOf(entry)}
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.Return:
			current.Returns = true
			// A straight-line return terminates this block; anything
			// after it in the same statement list is unreachable and
			// does not change whether this block returns.
			return current
		case *ast.If:
			current = buildIfBlock(s, current)
		case *ast.While:
			current = buildWhileBlock(s, current)
		default:
			// straight-line statement: stays within the current block
		}
	}
	return current
}

func predOf(b *Block) Predecessors {
	if b == nil {
		return Predecessors{Kind: PredNone}
	}
	return Predecessors{Kind: PredOne, A: b}
}

// buildIfBlock builds then/else basic blocks from entry and returns a join
// block whose predecessor is Two(thenTerminal, elseTerminal) — a join
// block returns only if both branches return.
func buildIfBlock(s *ast.If, entry *Block) *Block {
	thenTerminal := buildBlocks(s.Then, entry)
	var elseTerminal *Block
	if s.Else != nil {
		elseTerminal = buildBlocks(s.Else, entry)
	} else {
		// No else branch: control can fall through entry unchanged.
		elseTerminal = entry
		if elseTerminal == nil {
			elseTerminal = &Block{Preds: Predecessors{Kind: PredNone}}
		}
	}
	join := &Block{Preds: Predecessors{Kind: PredTwo, A: thenTerminal, B: elseTerminal}}
	return join
}

// buildWhileBlock builds the loop body's blocks from entry and returns an
// exit block whose only predecessor is entry (One(entry)); the body's
// terminal block is not linked to it. Since the loop condition may be
// false on entry (0 iterations), the block following a while loop only
// provably returns through the entry edge, matching create_while_basic's
// semantics.
func buildWhileBlock(s *ast.While, entry *Block) *Block {
	bodyEntry := &Block{Preds: predOf(entry)}
	bodyTerminal := buildBlocks(s.Body, bodyEntry)
	_ = bodyTerminal // the loop body's own return-ness doesn't guarantee the loop runs
	exit := &Block{Preds: predOf(entry)}
	return exit
}
