// Package typecheck implements nilan's two-pass type checker: pass 1
// collects function signatures, pass 2 checks every expression and
// statement of every function body against a scoped variable
// environment. Grounded on original_source/src/lang/typecheck.rs
// (TypeChecker, check_expr exhaustive match, check_statement, add_err
// dedup), adding the Bool-condition check for If/While that the original
// omits (spec.md's explicit correction) and the DotOp/Indexed typing
// rules the original stubs with todo!().
package typecheck

import (
	"fmt"

	"nilanc/ast"
	"nilanc/token"
)

// TypeError reports an operand/return/call/assign type mismatch.
type TypeError struct {
	Line    int32
	Column  int
	Message string
}

func (e TypeError) Error() string {
	return fmt.Sprintf("💥 type error:\nline:%d, column:%d - %s", e.Line, e.Column, e.Message)
}

// VariableError reports use of an undeclared variable, or redeclaration
// (shadowing) within the same lexical scope.
type VariableError struct {
	Line    int32
	Column  int
	Message string
}

func (e VariableError) Error() string {
	return fmt.Sprintf("💥 variable error:\nline:%d, column:%d - %s", e.Line, e.Column, e.Message)
}

type signature struct {
	params []token.Type
	ret    token.Type
}

// Checker holds state shared by both passes: the signature table and the
// accumulated, deduplicated error list.
type Checker struct {
	sigs   map[string]signature
	errs   []error
	seen   map[string]bool // dedup key: kind|line|col
}

// Check runs both passes over funcs and returns every type/variable error
// found, accumulated (not fail-fast) and deduplicated by (kind, line, col).
func Check(funcs []ast.Function) []error {
	c := &Checker{sigs: map[string]signature{}, seen: map[string]bool{}}
	c.collectSignatures(funcs)
	for _, fn := range funcs {
		c.checkFunction(fn)
	}
	return c.errs
}

func (c *Checker) collectSignatures(funcs []ast.Function) {
	for _, fn := range funcs {
		params := make([]token.Type, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Type
		}
		c.sigs[fn.Name] = signature{params: params, ret: fn.ReturnType}
	}
}

func (c *Checker) addErr(kind string, loc ast.Location, format string, args ...any) {
	key := fmt.Sprintf("%s|%d|%d", kind, loc.Line, loc.Column)
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	msg := fmt.Sprintf(format, args...)
	if kind == "Variable" {
		c.errs = append(c.errs, VariableError{Line: loc.Line, Column: loc.Column, Message: msg})
	} else {
		c.errs = append(c.errs, TypeError{Line: loc.Line, Column: loc.Column, Message: msg})
	}
}

// scope is one lexical block's variable environment; it extends an
// enclosing scope for lookups but never shares its own declarations set,
// so a same-name declaration within one block is rejected as shadowing.
type scope struct {
	vars   map[string]token.Type
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: map[string]token.Type{}, parent: parent}
}

func (s *scope) declare(name string, typ token.Type) bool {
	if _, exists := s.vars[name]; exists {
		return false
	}
	s.vars[name] = typ
	return true
}

func (s *scope) lookup(name string) (token.Type, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return token.Type{}, false
}

type funcChecker struct {
	*Checker
	fn *ast.Function
}

func (c *Checker) checkFunction(fn ast.Function) {
	fc := &funcChecker{Checker: c, fn: &fn}
	root := newScope(nil)
	for _, p := range fn.Params {
		root.declare(p.Name, p.Type)
	}
	fc.checkStmts(fn.Body, root)
}

func (fc *funcChecker) checkStmts(stmts []ast.Stmt, s *scope) {
	for _, stmt := range stmts {
		fc.checkStmt(stmt, s)
	}
}

func (fc *funcChecker) checkStmt(stmt ast.Stmt, s *scope) {
	switch st := stmt.(type) {
	case *ast.ExprStmt:
		fc.typeOf(st.Expression, s)
	case *ast.Decl:
		valType := fc.typeOf(st.Value, s)
		if !valType.Equal(st.Type) && valType.Tag != 0 {
			fc.addErr("Type", st.Loc, "declared type %s does not match initializer type %s", st.Type, valType)
		}
		if !s.declare(st.Name, st.Type) {
			fc.addErr("Variable", st.Loc, "redeclaration of %q shadows an existing name in this scope", st.Name)
		}
	case *ast.Assign:
		declared, ok := s.lookup(st.Name)
		if !ok {
			fc.addErr("Variable", st.Loc, "assignment to undeclared variable %q", st.Name)
			return
		}
		valType := fc.typeOf(st.Value, s)
		if valType.Tag != 0 && !valType.Equal(declared) {
			fc.addErr("Type", st.Loc, "cannot assign %s to variable %q of type %s", valType, st.Name, declared)
		}
	case *ast.If:
		condType := fc.typeOf(st.Cond, s)
		if condType.Tag != 0 && !condType.Equal(token.Bool) {
			fc.addErr("Type", st.Loc, "if condition must be bool, got %s", condType)
		}
		fc.checkStmts(st.Then, newScope(s))
		if st.Else != nil {
			fc.checkStmts(st.Else, newScope(s))
		}
	case *ast.While:
		condType := fc.typeOf(st.Cond, s)
		if condType.Tag != 0 && !condType.Equal(token.Bool) {
			fc.addErr("Type", st.Loc, "while condition must be bool, got %s", condType)
		}
		fc.checkStmts(st.Body, newScope(s))
	case *ast.Return:
		valType := fc.typeOf(st.Value, s)
		if valType.Tag != 0 && !valType.Equal(fc.fn.ReturnType) {
			fc.addErr("Type", st.Loc, "return type %s does not match declared return type %s", valType, fc.fn.ReturnType)
		}
	}
}

// typeOf computes the static type of an expression, reporting an error and
// returning the zero Type (Tag 0, treated as "unknown" to avoid cascading
// false positives) whenever it cannot be determined.
func (fc *funcChecker) typeOf(expr ast.Expr, s *scope) token.Type {
	switch e := expr.(type) {
	case *ast.Var:
		if t, ok := s.lookup(e.Name); ok {
			return t
		}
		fc.addErr("Variable", e.Loc, "undefined variable %q", e.Name)
		return token.Type{}

	case *ast.Lit:
		switch e.Kind {
		case ast.IntLit:
			return token.Int
		case ast.DcmlLit:
			return token.Dcml
		case ast.BoolLit:
			return token.Bool
		case ast.StringLit:
			return token.StringT
		}
		return token.Type{}

	case *ast.BinOp:
		return fc.typeOfBinOp(e, s)

	case *ast.Call:
		sig, ok := fc.sigs[e.Name]
		if !ok {
			fc.addErr("Variable", e.Loc, "call to undefined function %q", e.Name)
			return token.Type{}
		}
		if len(sig.params) != len(e.Args) {
			fc.addErr("Type", e.Loc, "function %q expects %d argument(s), got %d", e.Name, len(sig.params), len(e.Args))
			return sig.ret
		}
		for i, arg := range e.Args {
			argType := fc.typeOf(arg, s)
			if argType.Tag != 0 && !argType.Equal(sig.params[i]) {
				fc.addErr("Type", arg.Pos(), "argument %d to %q has type %s, want %s", i+1, e.Name, argType, sig.params[i])
			}
		}
		return sig.ret

	case *ast.Cast:
		innerType := fc.typeOf(e.Inner, s)
		if innerType.Tag == 0 {
			return e.Target
		}
		if !castAllowed(innerType, e.Target) {
			fc.addErr("Type", e.Loc, "cannot cast %s to %s", innerType, e.Target)
		}
		return e.Target

	case *ast.DotOp:
		recvType := fc.typeOf(e.Receiver, s)
		switch e.Kind {
		case ast.DotLen:
			if recvType.Tag != 0 && recvType.Tag != token.ArrayTag {
				fc.addErr("Type", e.Loc, ".len requires an array receiver, got %s", recvType)
			}
			return token.Int
		case ast.DotPop:
			if recvType.Tag != 0 && recvType.Tag != token.ArrayTag {
				fc.addErr("Type", e.Loc, ".pop() requires an array receiver, got %s", recvType)
			}
			return token.Type{}
		case ast.DotPush:
			argType := fc.typeOf(e.PushArg, s)
			if recvType.Tag == token.ArrayTag && argType.Tag != 0 && !argType.Equal(*recvType.Elem) {
				fc.addErr("Type", e.Loc, ".push() element type %s does not match array element type %s", argType, *recvType.Elem)
			} else if recvType.Tag != 0 && recvType.Tag != token.ArrayTag {
				fc.addErr("Type", e.Loc, ".push() requires an array receiver, got %s", recvType)
			}
			return token.Type{}
		}
		return token.Type{}

	case *ast.Indexed:
		recvType := fc.typeOf(e.Receiver, s)
		idxType := fc.typeOf(e.Index, s)
		if idxType.Tag != 0 && !idxType.Equal(token.Int) {
			fc.addErr("Type", e.Loc, "array index must be int, got %s", idxType)
		}
		if recvType.Tag == token.ArrayTag {
			return *recvType.Elem
		}
		if recvType.Tag != 0 {
			fc.addErr("Type", e.Loc, "indexing requires an array receiver, got %s", recvType)
		}
		return token.Type{}

	case *ast.ArrayLit:
		for _, el := range e.Elems {
			elType := fc.typeOf(el, s)
			if elType.Tag != 0 && !elType.Equal(e.ElemType) {
				fc.addErr("Type", el.Pos(), "array element has type %s, want %s", elType, e.ElemType)
			}
		}
		return token.ArrayOf(e.ElemType)
	}
	return token.Type{}
}

func (fc *funcChecker) typeOfBinOp(e *ast.BinOp, s *scope) token.Type {
	left := fc.typeOf(e.Left, s)
	right := fc.typeOf(e.Right, s)
	if left.Tag == 0 || right.Tag == 0 {
		return token.Type{}
	}
	switch e.Op {
	case token.ADD, token.SUB, token.MULT, token.DIV:
		if left.Equal(token.Int) && right.Equal(token.Int) {
			return token.Int
		}
		if left.Equal(token.Dcml) && right.Equal(token.Dcml) {
			return token.Dcml
		}
	case token.MOD:
		if left.Equal(token.Int) && right.Equal(token.Int) {
			return token.Int
		}
	case token.EQUAL_EQUAL, token.NOT_EQUAL:
		if left.Equal(right) {
			return token.Bool
		}
	case token.LESS, token.LESS_EQUAL, token.LARGER, token.LARGER_EQUAL:
		if (left.Equal(token.Int) && right.Equal(token.Int)) || (left.Equal(token.Dcml) && right.Equal(token.Dcml)) {
			return token.Bool
		}
	case token.AND, token.OR, token.XOR:
		if left.Equal(token.Bool) && right.Equal(token.Bool) {
			return token.Bool
		}
	case token.BIT_AND, token.BIT_OR, token.BIT_XOR:
		if left.Equal(token.Int) && right.Equal(token.Int) {
			return token.Int
		}
		if left.Equal(token.Bool) && right.Equal(token.Bool) {
			return token.Bool
		}
	}
	fc.addErr("Type", e.Loc, "operator %q not defined for %s and %s", e.Op, left, right)
	return token.Type{}
}

func castAllowed(from, to token.Type) bool {
	switch {
	case from.Equal(token.Int) && to.Equal(token.Dcml):
		return true
	case from.Equal(token.Dcml) && to.Equal(token.Int):
		return true
	case from.Equal(token.Bool) && to.Equal(token.Int):
		return true
	}
	return false
}
