package compiler

import (
	"fmt"
	"math"

	"nilanc/ast"
	"nilanc/token"
)

// sharedConsts is the immutable state every per-function worker reads:
// the deduplicated constant pool, string pool, and every function's
// return type (needed to size a Call's post-return stack growth). Built
// once by the composer before workers are dispatched, then shared by
// reference — Go's analogue of the Rust original's Arc<...>.
type sharedConsts struct {
	consts   []byte
	pool     []string
	retTypes map[string]token.Type
}

func (s *sharedConsts) findConst(lit *ast.Lit) (uint16, bool) {
	i := 0
	for i < len(s.consts) {
		tag := token.Tag(s.consts[i])
		switch tag {
		case token.IntTag:
			v := int32(le32(s.consts[i+1:]))
			if lit.Kind == ast.IntLit && lit.IntVal == v {
				return uint16(i), true
			}
		case token.DcmlTag:
			v := le64ToFloat(s.consts[i+1:])
			if lit.Kind == ast.DcmlLit && lit.DcmVal == v {
				return uint16(i), true
			}
		case token.BoolTag:
			v := s.consts[i+1] != 0
			if lit.Kind == ast.BoolLit && lit.BolVal == v {
				return uint16(i), true
			}
		case token.StringTag:
			idx := le16(s.consts[i+1:])
			if lit.Kind == ast.StringLit && int(idx) < len(s.pool) && lit.StrVal == s.pool[idx] {
				return uint16(i), true
			}
		}
		i += tagPayloadSize(tag)
	}
	return 0, false
}

func tagPayloadSize(tag token.Tag) int {
	switch tag {
	case token.IntTag:
		return 1 + 4
	case token.DcmlTag:
		return 1 + 8
	case token.BoolTag:
		return 1 + 1
	case token.StringTag:
		return 1 + 2
	default:
		return 1
	}
}

// FuncCompiler lowers one function's body into labeled instructions.
// Grounded on original_source/src/lang/codegen.rs's FuncCompiler: the
// const-pool dedup scan, track_var/get_var offset bookkeeping, and
// pop_the_scope discipline are all reused, re-expressed over wire sizes
// (payload+tag) instead of the original's payload-only sizes, since this
// implementation's VM (original_source/src/lang/vm.rs is an
// unimplemented stub) tags every stack value uniformly and the two
// bookkeeping schemes must agree with each other, not with an upstream
// VM that was never built.
type FuncCompiler struct {
	shared *sharedConsts
	fn     ast.Function
	code   []Instruction

	varTracker map[string]varInfo
	stackTop   uint16
	scopes     []scopeFrame
}

type varInfo struct {
	declEnd uint16 // fc.stackTop immediately after this var was pushed
	typ     token.Type
}

// scopeFrame records, in declaration order, every local declared directly
// in one lexical block — needed at scope-exit to emit one Pop per
// non-array local and one FreeArr per array local, in reverse
// (LIFO) order.
type scopeFrame struct {
	decls []token.Type
}

func newFuncCompiler(shared *sharedConsts, fn ast.Function) *FuncCompiler {
	return &FuncCompiler{
		shared:     shared,
		fn:         fn,
		varTracker: map[string]varInfo{},
		scopes:     []scopeFrame{{}},
	}
}

func (fc *FuncCompiler) trackVar(name string, typ token.Type) {
	fc.varTracker[name] = varInfo{declEnd: fc.stackTop, typ: typ}
}

func (fc *FuncCompiler) getVar(name string) varInfo {
	info, ok := fc.varTracker[name]
	if !ok {
		panic(DeveloperError{Message: fmt.Sprintf("codegen: undeclared variable %q reached lowering", name)})
	}
	return info
}

func (fc *FuncCompiler) emit(i Instruction) { fc.code = append(fc.code, i) }

// Compile lowers the function's prologue and body, returning its
// labeled instruction stream. The function's entry point is a Label
// carrying its own name, immediately followed by Fun(argCount).
func (fc *FuncCompiler) Compile() []Instruction {
	fc.emit(LabelInstr(fc.fn.Name))
	for _, p := range fc.fn.Params {
		fc.stackTop += uint16(p.Type.WireSize())
		fc.trackVar(p.Name, p.Type)
	}
	fc.emit(FunInstr(uint16(len(fc.fn.Params))))
	for _, st := range fc.fn.Body {
		fc.compileStmt(st)
	}
	return fc.code
}

func (fc *FuncCompiler) pushScope() { fc.scopes = append(fc.scopes, scopeFrame{}) }

// popScope emits the scope-exit Pop/FreeArr sequence in reverse
// declaration order (the most recently declared local is topmost) and
// restores stackTop.
func (fc *FuncCompiler) popScope() {
	top := fc.scopes[len(fc.scopes)-1]
	for i := len(top.decls) - 1; i >= 0; i-- {
		typ := top.decls[i]
		if typ.Tag == token.ArrayTag {
			fc.emit(Simple(FreeArr))
		} else {
			fc.emit(Simple(Pop))
		}
		fc.stackTop -= uint16(typ.WireSize())
	}
	fc.scopes = fc.scopes[:len(fc.scopes)-1]
}

func (fc *FuncCompiler) declareLocal(name string, typ token.Type) {
	fc.trackVar(name, typ)
	cur := &fc.scopes[len(fc.scopes)-1]
	cur.decls = append(cur.decls, typ)
}

// typeOf recomputes an expression's static type during lowering. The
// program already passed the type checker, so every case here is
// expected to succeed; failure indicates a compiler bug, not a user
// error, hence the DeveloperError panic instead of an accumulated error.
func (fc *FuncCompiler) typeOf(expr ast.Expr) token.Type {
	switch e := expr.(type) {
	case *ast.Var:
		return fc.getVar(e.Name).typ
	case *ast.Lit:
		switch e.Kind {
		case ast.IntLit:
			return token.Int
		case ast.DcmlLit:
			return token.Dcml
		case ast.BoolLit:
			return token.Bool
		default:
			return token.StringT
		}
	case *ast.BinOp:
		switch e.Op {
		case token.EQUAL_EQUAL, token.NOT_EQUAL, token.LESS, token.LESS_EQUAL, token.LARGER, token.LARGER_EQUAL:
			return token.Bool
		default:
			return fc.typeOf(e.Left)
		}
	case *ast.Call:
		ret, ok := fc.shared.retTypes[e.Name]
		if !ok {
			panic(DeveloperError{Message: fmt.Sprintf("codegen: call to undefined function %q", e.Name)})
		}
		return ret
	case *ast.Cast:
		return e.Target
	case *ast.DotOp:
		if e.Kind == ast.DotLen {
			return token.Int
		}
		return token.Type{}
	case *ast.Indexed:
		recv := fc.typeOf(e.Receiver)
		return *recv.Elem
	case *ast.ArrayLit:
		return token.ArrayOf(e.ElemType)
	default:
		panic(DeveloperError{Message: "codegen: unreachable expression kind in typeOf"})
	}
}

func (fc *FuncCompiler) compileExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Var:
		info := fc.getVar(e.Name)
		fc.emit(PushStack(fc.stackTop - info.declEnd))
		fc.stackTop += uint16(info.typ.WireSize())

	case *ast.Lit:
		idx, ok := fc.shared.findConst(e)
		if !ok {
			panic(DeveloperError{Message: "codegen: literal missing from pre-scanned constant pool"})
		}
		fc.emit(PushConst(idx))
		fc.stackTop += uint16(fc.typeOf(e).WireSize())

	case *ast.BinOp:
		leftType := fc.typeOf(e.Left)
		rightType := fc.typeOf(e.Right)
		fc.compileExpr(e.Left)
		fc.compileExpr(e.Right)
		fc.compileOp(e.Op)
		resultType := fc.typeOf(e)
		fc.stackTop = fc.stackTop - uint16(leftType.WireSize()) - uint16(rightType.WireSize()) + uint16(resultType.WireSize())

	case *ast.Call:
		// The callee's Ret consumes the arguments along with its frame and
		// leaves only the return value in their place.
		var argBytes uint16
		for _, arg := range e.Args {
			argBytes += uint16(fc.typeOf(arg).WireSize())
			fc.compileExpr(arg)
		}
		fc.emit(JumpInstr(Call, e.Name))
		fc.stackTop = fc.stackTop - argBytes + uint16(fc.shared.retTypes[e.Name].WireSize())

	case *ast.Cast:
		innerType := fc.typeOf(e.Inner)
		fc.compileExpr(e.Inner)
		fc.emit(CastInstr(e.Target))
		fc.stackTop = fc.stackTop - uint16(innerType.WireSize()) + uint16(e.Target.WireSize())

	case *ast.DotOp:
		recvType := fc.typeOf(e.Receiver)
		fc.compileExpr(e.Receiver)
		switch e.Kind {
		case ast.DotLen:
			fc.emit(Simple(ArrLen))
			fc.stackTop = fc.stackTop - uint16(recvType.WireSize()) + uint16(token.Int.WireSize())
		case ast.DotPop:
			fc.emit(Simple(ArrPop))
		case ast.DotPush:
			argType := fc.typeOf(e.PushArg)
			fc.compileExpr(e.PushArg)
			fc.emit(Simple(ArrPush))
			fc.stackTop -= uint16(argType.WireSize())
		}

	case *ast.Indexed:
		recvType := fc.typeOf(e.Receiver)
		fc.compileExpr(e.Receiver)
		fc.compileExpr(e.Index)
		fc.emit(Simple(ArrInd))
		elemType := *recvType.Elem
		fc.stackTop = fc.stackTop - uint16(recvType.WireSize()) - uint16(token.Int.WireSize()) + uint16(elemType.WireSize())

	case *ast.ArrayLit:
		fc.emit(ArrNewInstr(e.ElemType))
		fc.stackTop += uint16(token.ArrayOf(e.ElemType).WireSize())
		for _, el := range e.Elems {
			elType := fc.typeOf(el)
			fc.compileExpr(el)
			fc.emit(Simple(ArrPush))
			fc.stackTop -= uint16(elType.WireSize())
		}

	default:
		panic(DeveloperError{Message: "codegen: unreachable expression kind in compileExpr"})
	}
}

// compileOp lowers a binary operator token into its instruction,
// matching original_source/src/lang/codegen.rs::compile_op, including
// its Not-eq-means-Eq-then-Not expansion for !=.
func (fc *FuncCompiler) compileOp(op token.TokenType) {
	switch op {
	case token.ADD:
		fc.emit(Simple(Add))
	case token.SUB:
		fc.emit(Simple(Sub))
	case token.MULT:
		fc.emit(Simple(Mul))
	case token.DIV:
		fc.emit(Simple(Div))
	case token.MOD:
		fc.emit(Simple(Mod))
	case token.EQUAL_EQUAL:
		fc.emit(Simple(Eq))
	case token.NOT_EQUAL:
		fc.emit(Simple(Eq))
		fc.emit(Simple(Not))
	case token.LESS:
		fc.emit(Simple(L))
	case token.LESS_EQUAL:
		fc.emit(Simple(Le))
	case token.LARGER:
		fc.emit(Simple(G))
	case token.LARGER_EQUAL:
		fc.emit(Simple(Ge))
	case token.BIT_AND, token.AND:
		fc.emit(Simple(And))
	case token.BIT_OR, token.OR:
		fc.emit(Simple(Or))
	case token.BIT_XOR, token.XOR:
		fc.emit(Simple(Xor))
	default:
		panic(DeveloperError{Message: fmt.Sprintf("codegen: unreachable operator %v", op)})
	}
}

func (fc *FuncCompiler) compileStmt(stmt ast.Stmt) {
	switch st := stmt.(type) {
	case *ast.ExprStmt:
		before := fc.stackTop
		fc.compileExpr(st.Expression)
		fc.emit(Simple(Pop))
		fc.stackTop = before

	case *ast.Decl:
		fc.compileExpr(st.Value)
		fc.declareLocal(st.Name, st.Type)

	case *ast.Assign:
		before := fc.stackTop
		fc.compileExpr(st.Value)
		info := fc.getVar(st.Name)
		fc.emit(MovInstr(fc.stackTop - info.declEnd))
		fc.emit(Simple(Pop))
		fc.stackTop = before

	case *ast.Return:
		before := fc.stackTop
		fc.compileExpr(st.Value)
		fc.emit(RetInstr(fc.stackTop))
		fc.stackTop = before

	case *ast.If:
		// Jnz pops Bool itself (spec.md's documented Jz/Jnz-inverted
		// convention: Jnz jumps when the popped condition is false), so
		// no separate Pop of the condition is emitted here.
		before := fc.stackTop
		startIP := len(fc.code)
		elseLabel := fmt.Sprintf("%s-if_%d_else", fc.fn.Name, startIP)
		endLabel := fmt.Sprintf("%s-if_%d_end", fc.fn.Name, startIP)

		fc.compileExpr(st.Cond)
		fc.emit(JumpInstr(Jnz, elseLabel))
		fc.stackTop -= uint16(token.Bool.WireSize())

		fc.pushScope()
		for _, s := range st.Then {
			fc.compileStmt(s)
		}
		fc.popScope()

		fc.emit(JumpInstr(Jmp, endLabel))
		fc.emit(LabelInstr(elseLabel))

		fc.pushScope()
		for _, s := range st.Else {
			fc.compileStmt(s)
		}
		fc.popScope()

		fc.emit(LabelInstr(endLabel))
		fc.stackTop = before

	case *ast.While:
		before := fc.stackTop
		startIP := len(fc.code)
		headLabel := fmt.Sprintf("%s-while_%d", fc.fn.Name, startIP)
		endLabel := fmt.Sprintf("%s-while_%d_end", fc.fn.Name, startIP)

		fc.emit(LabelInstr(headLabel))
		fc.compileExpr(st.Cond)
		fc.emit(JumpInstr(Jnz, endLabel))
		fc.stackTop -= uint16(token.Bool.WireSize())

		fc.pushScope()
		for _, s := range st.Body {
			fc.compileStmt(s)
		}
		fc.popScope()

		fc.emit(JumpInstr(Jmp, headLabel))
		fc.emit(LabelInstr(endLabel))
		fc.stackTop = before
	}
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
func le64ToFloat(b []byte) float64 { return math.Float64frombits(le64(b)) }
