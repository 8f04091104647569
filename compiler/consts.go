package compiler

import (
	"encoding/binary"
	"math"

	"nilanc/ast"
	"nilanc/token"
)

// constBuilder accumulates the deduplicated constant pool and string pool
// ahead of per-function compilation, mirroring
// original_source/src/lang/codegen.rs's CompilerComposer::create_constants
// pre-pass (every function's literals are scanned before any worker
// starts, since the pool must be frozen and shared immutably once
// dispatched).
type constBuilder struct {
	consts []byte
	pool   []string
}

func newConstBuilder() *constBuilder { return &constBuilder{} }

func (b *constBuilder) scanFuncs(funcs []ast.Function) {
	for _, fn := range funcs {
		b.scanStmts(fn.Body)
	}
}

func (b *constBuilder) scanStmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case *ast.ExprStmt:
			b.scanExpr(st.Expression)
		case *ast.Decl:
			b.scanExpr(st.Value)
		case *ast.Assign:
			b.scanExpr(st.Value)
		case *ast.If:
			b.scanExpr(st.Cond)
			b.scanStmts(st.Then)
			b.scanStmts(st.Else)
		case *ast.While:
			b.scanExpr(st.Cond)
			b.scanStmts(st.Body)
		case *ast.Return:
			b.scanExpr(st.Value)
		}
	}
}

func (b *constBuilder) scanExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Lit:
		b.addConst(e)
	case *ast.Var:
	case *ast.BinOp:
		b.scanExpr(e.Left)
		b.scanExpr(e.Right)
	case *ast.Call:
		for _, a := range e.Args {
			b.scanExpr(a)
		}
	case *ast.Cast:
		b.scanExpr(e.Inner)
	case *ast.DotOp:
		b.scanExpr(e.Receiver)
		if e.Kind == ast.DotPush {
			b.scanExpr(e.PushArg)
		}
	case *ast.Indexed:
		b.scanExpr(e.Receiver)
		b.scanExpr(e.Index)
	case *ast.ArrayLit:
		for _, el := range e.Elems {
			b.scanExpr(el)
		}
	}
}

func (b *constBuilder) find(lit *ast.Lit) bool {
	shared := &sharedConsts{consts: b.consts, pool: b.pool}
	_, ok := shared.findConst(lit)
	return ok
}

func (b *constBuilder) addConst(lit *ast.Lit) {
	if b.find(lit) {
		return
	}
	switch lit.Kind {
	case ast.IntLit:
		b.consts = append(b.consts, byte(token.IntTag))
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(lit.IntVal))
		b.consts = append(b.consts, buf[:]...)
	case ast.DcmlLit:
		b.consts = append(b.consts, byte(token.DcmlTag))
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(lit.DcmVal))
		b.consts = append(b.consts, buf[:]...)
	case ast.BoolLit:
		b.consts = append(b.consts, byte(token.BoolTag))
		if lit.BolVal {
			b.consts = append(b.consts, 1)
		} else {
			b.consts = append(b.consts, 0)
		}
	case ast.StringLit:
		b.pool = append(b.pool, lit.StrVal)
		idx := uint16(len(b.pool) - 1)
		b.consts = append(b.consts, byte(token.StringTag))
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], idx)
		b.consts = append(b.consts, buf[:]...)
	}
}
