package parser

import (
	"encoding/json"
	"os"

	"nilanc/ast"
)

// astPrinter implements ast.ExprVisitor and ast.StmtVisitor, building a
// JSON-friendly representation of the AST using maps and slices. Adapted
// from informatter-nilan's parser/printer.go, generalized to the new node
// set (Cast, DotOp, Indexed, ArrayLit, Decl/Assign/If/While/Return).
type astPrinter struct{}

func (p astPrinter) VisitVar(e *ast.Var) any {
	return map[string]any{"type": "Var", "name": e.Name}
}

func (p astPrinter) VisitLit(e *ast.Lit) any {
	var value any
	switch e.Kind {
	case ast.IntLit:
		value = e.IntVal
	case ast.DcmlLit:
		value = e.DcmVal
	case ast.BoolLit:
		value = e.BolVal
	case ast.StringLit:
		value = e.StrVal
	}
	return map[string]any{"type": "Lit", "value": value}
}

func (p astPrinter) VisitBinOp(e *ast.BinOp) any {
	return map[string]any{
		"type":     "BinOp",
		"operator": string(e.Op),
		"left":     e.Left.Accept(p),
		"right":    e.Right.Accept(p),
	}
}

func (p astPrinter) VisitCall(e *ast.Call) any {
	args := make([]any, 0, len(e.Args))
	for _, a := range e.Args {
		args = append(args, a.Accept(p))
	}
	return map[string]any{"type": "Call", "name": e.Name, "args": args}
}

func (p astPrinter) VisitCast(e *ast.Cast) any {
	return map[string]any{"type": "Cast", "target": e.Target.String(), "inner": e.Inner.Accept(p)}
}

func (p astPrinter) VisitDotOp(e *ast.DotOp) any {
	m := map[string]any{"type": "DotOp", "receiver": e.Receiver.Accept(p)}
	switch e.Kind {
	case ast.DotLen:
		m["op"] = "len"
	case ast.DotPop:
		m["op"] = "pop"
	case ast.DotPush:
		m["op"] = "push"
		m["arg"] = e.PushArg.Accept(p)
	}
	return m
}

func (p astPrinter) VisitIndexed(e *ast.Indexed) any {
	return map[string]any{"type": "Indexed", "receiver": e.Receiver.Accept(p), "index": e.Index.Accept(p)}
}

func (p astPrinter) VisitArrayLit(e *ast.ArrayLit) any {
	elems := make([]any, 0, len(e.Elems))
	for _, el := range e.Elems {
		elems = append(elems, el.Accept(p))
	}
	return map[string]any{"type": "ArrayLit", "elemType": e.ElemType.String(), "elems": elems}
}

func (p astPrinter) VisitExprStmt(s *ast.ExprStmt) any {
	return map[string]any{"type": "ExprStmt", "expression": s.Expression.Accept(p)}
}

func (p astPrinter) VisitDecl(s *ast.Decl) any {
	return map[string]any{"type": "Decl", "declType": s.Type.String(), "name": s.Name, "value": s.Value.Accept(p)}
}

func (p astPrinter) VisitAssign(s *ast.Assign) any {
	return map[string]any{"type": "Assign", "name": s.Name, "value": s.Value.Accept(p)}
}

func (p astPrinter) VisitIf(s *ast.If) any {
	return map[string]any{
		"type":      "If",
		"condition": s.Cond.Accept(p),
		"then":      stmtsToAny(s.Then, p),
		"else":      stmtsToAny(s.Else, p),
	}
}

func (p astPrinter) VisitWhile(s *ast.While) any {
	return map[string]any{"type": "While", "condition": s.Cond.Accept(p), "body": stmtsToAny(s.Body, p)}
}

func (p astPrinter) VisitReturn(s *ast.Return) any {
	return map[string]any{"type": "Return", "value": s.Value.Accept(p)}
}

func stmtsToAny(stmts []ast.Stmt, p astPrinter) []any {
	out := make([]any, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, s.Accept(p))
	}
	return out
}

// Print renders a list of functions as an indented JSON document.
func Print(functions []ast.Function) (string, error) {
	p := astPrinter{}
	docs := make([]any, 0, len(functions))
	for _, fn := range functions {
		params := make([]any, 0, len(fn.Params))
		for _, prm := range fn.Params {
			params = append(params, map[string]any{"name": prm.Name, "type": prm.Type.String()})
		}
		docs = append(docs, map[string]any{
			"type":       "Function",
			"name":       fn.Name,
			"params":     params,
			"returnType": fn.ReturnType.String(),
			"body":       stmtsToAny(fn.Body, p),
		})
	}
	b, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PrintToFile writes the JSON AST dump for the given functions to path.
func PrintToFile(functions []ast.Function, path string) error {
	s, err := Print(functions)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0o644)
}
