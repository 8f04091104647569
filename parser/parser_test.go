package parser

import (
	"testing"

	"nilanc/ast"
	"nilanc/lexer"
	"nilanc/token"
)

func mustParse(t *testing.T, src string) []ast.Function {
	t.Helper()
	toks, err := lexer.New(src).Scan()
	if err != nil {
		t.Fatalf("lexer error: %v", err)
	}
	funcs, errs := Make(toks).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return funcs
}

func TestParseSimpleFunction(t *testing.T) {
	funcs := mustParse(t, `fun main() -> int { return 5 - 4; }`)
	if len(funcs) != 1 {
		t.Fatalf("got %d functions, want 1", len(funcs))
	}
	fn := funcs[0]
	if fn.Name != "main" || len(fn.Params) != 0 {
		t.Fatalf("unexpected function shape: %+v", fn)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("expected a single return statement, got %d", len(fn.Body))
	}
	ret, ok := fn.Body[0].(*ast.Return)
	if !ok {
		t.Fatalf("expected *ast.Return, got %T", fn.Body[0])
	}
	bin, ok := ret.Value.(*ast.BinOp)
	if !ok {
		t.Fatalf("expected *ast.BinOp, got %T", ret.Value)
	}
	if bin.Op != "-" {
		t.Errorf("operator = %q, want '-'", bin.Op)
	}
}

func TestParseFunctionWithParams(t *testing.T) {
	funcs := mustParse(t, `fun add(int a, int b) -> int { return a + b; }`)
	fn := funcs[0]
	if len(fn.Params) != 2 || fn.Params[0].Name != "a" || fn.Params[1].Name != "b" {
		t.Fatalf("unexpected params: %+v", fn.Params)
	}
}

func TestParseIfElse(t *testing.T) {
	funcs := mustParse(t, `fun main() -> int { if true { return 32; } else { return 0; } }`)
	ifStmt, ok := funcs[0].Body[0].(*ast.If)
	if !ok {
		t.Fatalf("expected *ast.If, got %T", funcs[0].Body[0])
	}
	if len(ifStmt.Then) != 1 || len(ifStmt.Else) != 1 {
		t.Fatalf("unexpected if-else shape: %+v", ifStmt)
	}
}

func TestParseWhile(t *testing.T) {
	funcs := mustParse(t, `fun main() -> int { int i = 0; while i < 10 { i = i + 1; } return i; }`)
	whileStmt, ok := funcs[0].Body[1].(*ast.While)
	if !ok {
		t.Fatalf("expected *ast.While, got %T", funcs[0].Body[1])
	}
	if len(whileStmt.Body) != 1 {
		t.Fatalf("unexpected while body: %+v", whileStmt.Body)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	// "1 + 2 * 3" should parse as 1 + (2 * 3): the outer node's operator is '+'.
	funcs := mustParse(t, `fun main() -> int { return 1 + 2 * 3; }`)
	ret := funcs[0].Body[0].(*ast.Return)
	outer, ok := ret.Value.(*ast.BinOp)
	if !ok || outer.Op != "+" {
		t.Fatalf("expected top-level '+', got %+v", ret.Value)
	}
	inner, ok := outer.Right.(*ast.BinOp)
	if !ok || inner.Op != "*" {
		t.Fatalf("expected nested '*', got %+v", outer.Right)
	}
}

func TestPostfixArrayOperations(t *testing.T) {
	funcs := mustParse(t, `fun main() -> int {
		return [int; 1, 2][0];
	}`)
	ret := funcs[0].Body[0].(*ast.Return)
	idx, ok := ret.Value.(*ast.Indexed)
	if !ok {
		t.Fatalf("expected *ast.Indexed, got %T", ret.Value)
	}
	if _, ok := idx.Receiver.(*ast.ArrayLit); !ok {
		t.Fatalf("expected array literal receiver, got %T", idx.Receiver)
	}
}

func TestArrayDeclAndPostfixChain(t *testing.T) {
	funcs := mustParse(t, `fun main() -> int {
		[int] xs = [int; 1, 2, 3];
		xs.push(4);
		int n = xs.len;
		xs.pop();
		return xs[0] + n;
	}`)
	decl, ok := funcs[0].Body[0].(*ast.Decl)
	if !ok || decl.Type.Tag != token.ArrayTag {
		t.Fatalf("expected array Decl, got %+v", funcs[0].Body[0])
	}
	pushStmt, ok := funcs[0].Body[1].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt for push, got %T", funcs[0].Body[1])
	}
	dotOp, ok := pushStmt.Expression.(*ast.DotOp)
	if !ok || dotOp.Kind != ast.DotPush {
		t.Fatalf("expected DotOp(push), got %+v", pushStmt.Expression)
	}
}

func TestCastExpression(t *testing.T) {
	funcs := mustParse(t, `fun main() -> int { return int(1.5); }`)
	ret := funcs[0].Body[0].(*ast.Return)
	cast, ok := ret.Value.(*ast.Cast)
	if !ok {
		t.Fatalf("expected *ast.Cast, got %T", ret.Value)
	}
	if cast.Target.String() != "int" {
		t.Errorf("cast target = %v, want int", cast.Target)
	}
}

func TestCallExpression(t *testing.T) {
	funcs := mustParse(t, `fun main() -> int { return add(7, 35); }`)
	ret := funcs[0].Body[0].(*ast.Return)
	call, ok := ret.Value.(*ast.Call)
	if !ok || call.Name != "add" || len(call.Args) != 2 {
		t.Fatalf("unexpected call expression: %+v", ret.Value)
	}
}

func TestMissingSemicolonIsError(t *testing.T) {
	toks, _ := lexer.New(`fun main() -> int { return 5 }`).Scan()
	_, errs := Make(toks).Parse()
	if len(errs) == 0 {
		t.Fatalf("expected a syntax error for a missing semicolon")
	}
}

func TestShortHandOperatorRejected(t *testing.T) {
	toks, _ := lexer.New(`fun main() -> int { int x = 0; x += 1; return x; }`).Scan()
	_, errs := Make(toks).Parse()
	if len(errs) == 0 {
		t.Fatalf("expected a syntax error rejecting '+='")
	}
}

func TestMissingMainIsNotAParserConcern(t *testing.T) {
	// The parser accepts any set of well-formed functions; absence of
	// "main" is reported later by the pipeline driver, not the parser.
	funcs := mustParse(t, `fun f() -> int { return 1; }`)
	if len(funcs) != 1 {
		t.Fatalf("got %d functions, want 1", len(funcs))
	}
}
