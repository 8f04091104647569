package compiler

import (
	"testing"

	"nilanc/ast"
	"nilanc/token"
)

func intLit(v int32) *ast.Lit    { return &ast.Lit{Kind: ast.IntLit, IntVal: v} }
func boolLit(v bool) *ast.Lit    { return &ast.Lit{Kind: ast.BoolLit, BolVal: v} }
func varE(name string) *ast.Var  { return &ast.Var{Name: name} }

func TestConstantPoolDeduplicatesAcrossFunctions(t *testing.T) {
	funcs := []ast.Function{
		{
			Name:       "helper",
			ReturnType: token.Int,
			Body: []ast.Stmt{
				&ast.Return{Value: intLit(7)},
			},
		},
		{
			Name:       "main",
			ReturnType: token.Int,
			Body: []ast.Stmt{
				&ast.ExprStmt{Expression: &ast.Call{Name: "helper"}},
				&ast.Return{Value: intLit(7)},
			},
		},
	}
	out, err := Compile(funcs)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	intEntries := 0
	i := 0
	for i < len(out.Consts) {
		tag := token.Tag(out.Consts[i])
		if tag == token.IntTag {
			intEntries++
		}
		i += tagPayloadSize(tag)
	}
	if intEntries != 1 {
		t.Fatalf("expected exactly 1 deduplicated int constant, got %d", intEntries)
	}
}

func TestMainInstructionsComeFirst(t *testing.T) {
	funcs := []ast.Function{
		{Name: "helper", ReturnType: token.Int, Body: []ast.Stmt{&ast.Return{Value: intLit(1)}}},
		{Name: "main", ReturnType: token.Int, Body: []ast.Stmt{&ast.Return{Value: intLit(0)}}},
	}
	out, err := Compile(funcs)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(out.Instructions) == 0 || out.Instructions[0].Op != Label || out.Instructions[0].LabelName != "main" {
		t.Fatalf("expected main's Label to be first instruction, got %+v", out.Instructions[0])
	}
}

func TestMissingMainIsSemanticError(t *testing.T) {
	funcs := []ast.Function{
		{Name: "helper", ReturnType: token.Int, Body: []ast.Stmt{&ast.Return{Value: intLit(1)}}},
	}
	if _, err := Compile(funcs); err == nil {
		t.Fatalf("expected a SemanticError for a program with no main")
	}
}

func TestVariablePushOffsetTracksDeclarationOrder(t *testing.T) {
	fn := ast.Function{
		Name:       "f",
		ReturnType: token.Int,
		Body: []ast.Stmt{
			&ast.Decl{Type: token.Int, Name: "x", Value: intLit(1)},
			&ast.Decl{Type: token.Int, Name: "y", Value: intLit(2)},
			&ast.Return{Value: &ast.BinOp{Op: token.ADD, Left: varE("x"), Right: varE("y")}},
		},
	}
	shared := &sharedConsts{
		consts:   []byte{byte(token.IntTag), 1, 0, 0, 0, byte(token.IntTag), 2, 0, 0, 0},
		retTypes: map[string]token.Type{"f": token.Int},
	}
	fc := newFuncCompiler(shared, fn)
	code := fc.Compile()

	var pushes []Instruction
	for _, i := range code {
		if i.Op == Push && i.Src == SrcStack {
			pushes = append(pushes, i)
		}
	}
	if len(pushes) != 2 {
		t.Fatalf("expected 2 stack pushes (x and y), got %d", len(pushes))
	}
	// x is pushed with x and y on the stack, so y's 5 wire bytes lie above
	// x's tag; y is then pushed with the copy of x on top, whose 5 wire
	// bytes lie above y's tag. Both offsets are therefore 5.
	if pushes[0].Offset != 5 || pushes[1].Offset != 5 {
		t.Errorf("push offsets = (%d, %d), want (5, 5)", pushes[0].Offset, pushes[1].Offset)
	}
}

func TestScopeExitEmitsPopThenFreeArrInReverseDeclarationOrder(t *testing.T) {
	arrType := token.ArrayOf(token.Int)
	fn := ast.Function{
		Name:       "f",
		ReturnType: token.Int,
		Body: []ast.Stmt{
			&ast.If{
				Cond: boolLit(true),
				Then: []ast.Stmt{
					&ast.Decl{Type: arrType, Name: "arr", Value: &ast.ArrayLit{ElemType: token.Int, Elems: []ast.Expr{intLit(1)}}},
					&ast.Decl{Type: token.Int, Name: "n", Value: intLit(2)},
				},
			},
			&ast.Return{Value: intLit(0)},
		},
	}
	shared := &sharedConsts{
		consts: []byte{
			byte(token.BoolTag), 1,
			byte(token.IntTag), 1, 0, 0, 0,
			byte(token.IntTag), 2, 0, 0, 0,
			byte(token.IntTag), 0, 0, 0, 0,
		},
		retTypes: map[string]token.Type{"f": token.Int},
	}
	fc := newFuncCompiler(shared, fn)
	code := fc.Compile()

	found := false
	for i := 0; i+1 < len(code); i++ {
		if code[i].Op == Pop && code[i+1].Op == FreeArr {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected a Pop (for n) immediately followed by a FreeArr (for arr) at scope exit, got %+v", code)
	}
}

func TestIfUsesJnzNotJz(t *testing.T) {
	fn := ast.Function{
		Name:       "f",
		ReturnType: token.Int,
		Body: []ast.Stmt{
			&ast.If{Cond: boolLit(true), Then: []ast.Stmt{&ast.Return{Value: intLit(1)}}},
			&ast.Return{Value: intLit(0)},
		},
	}
	shared := &sharedConsts{
		consts: []byte{
			byte(token.BoolTag), 1,
			byte(token.IntTag), 1, 0, 0, 0,
			byte(token.IntTag), 0, 0, 0, 0,
		},
		retTypes: map[string]token.Type{"f": token.Int},
	}
	fc := newFuncCompiler(shared, fn)
	code := fc.Compile()
	for _, i := range code {
		if i.Op == Jz {
			t.Fatalf("expected If to lower via Jnz per spec.md's codegen rule, found a Jz")
		}
	}
}
