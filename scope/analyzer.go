package scope

import "eva/ast"

var operators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true,
	"<": true, ">": true, "==": true, ">=": true, "<=": true, "!=": true,
}

// Analyzer runs the scope-analysis pre-pass described in spec §4.1. It
// attaches a *Scope to every scope-introducing AST node (the implicit
// top-level `begin`, nested `begin`s, and `def`/`lambda` bodies) keyed by
// the node's address, so the compiler's later walk over the identical tree
// can look classifications up in O(1) without re-deriving them.
type Analyzer struct {
	scopes map[*ast.Node]*Scope
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{scopes: make(map[*ast.Node]*Scope)}
}

// ScopeOf returns the Scope attached to a scope-introducing node, or nil if
// n never introduced one.
func (a *Analyzer) ScopeOf(n *ast.Node) *Scope {
	return a.scopes[n]
}

// Analyze treats program as the implicit top-level `begin` (its own Global
// scope, per §4.1: "entering top-level creates a GLOBAL scope"), and walks
// every form beneath it, classifying every symbol reference it finds.
func (a *Analyzer) Analyze(program *ast.Node) error {
	global := New(Global, nil)
	a.scopes[program] = global
	return a.analyzeBody(program, global)
}

func (a *Analyzer) analyzeBody(n *ast.Node, s *Scope) error {
	for i := 1; i < len(n.Elements); i++ {
		if err := a.analyzeForm(&n.Elements[i], s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeForm(n *ast.Node, s *Scope) error {
	switch n.Kind {
	case ast.Number, ast.String:
		return nil
	case ast.Symbol:
		if n.SymbolName == "true" || n.SymbolName == "false" {
			return nil
		}
		_, err := Resolve(s, n.SymbolName)
		return err
	case ast.List:
		return a.analyzeList(n, s)
	}
	return nil
}

func (a *Analyzer) analyzeList(n *ast.Node, s *Scope) error {
	if len(n.Elements) == 0 {
		return nil
	}
	head := n.Elements[0]
	if head.Kind == ast.Symbol {
		switch head.SymbolName {
		case "begin":
			return a.analyzeBegin(n, s)
		case "var":
			return a.analyzeVar(n, s)
		case "set":
			return a.analyzeSet(n, s)
		case "if":
			return a.analyzeIf(n, s)
		case "while":
			return a.analyzeWhile(n, s)
		case "def":
			return a.analyzeDef(n, s)
		case "lambda":
			return a.analyzeLambda(n, s)
		}
		if operators[head.SymbolName] {
			return a.analyzeOperator(n, s)
		}
	}
	return a.analyzeCall(n, s)
}

func (a *Analyzer) analyzeBegin(n *ast.Node, parent *Scope) error {
	s := New(Block, parent)
	a.scopes[n] = s
	return a.analyzeBody(n, s)
}

// analyzeVar handles `(var name init)`. The name is declared in the
// enclosing scope s; per spec.md §4.1, only `def` registers a function's
// own name inside its own Function scope for self-recursion, so a
// `(var f (lambda ...))` resolves recursive calls to f through the
// enclosing scope (promoting f to a cell, or leaving it global) rather than
// a local self-slot.
func (a *Analyzer) analyzeVar(n *ast.Node, s *Scope) error {
	name := n.Elements[1].SymbolName
	s.AddLocal(name)
	return a.analyzeForm(&n.Elements[2], s)
}

func (a *Analyzer) analyzeSet(n *ast.Node, s *Scope) error {
	name := n.Elements[1].SymbolName
	if err := a.analyzeForm(&n.Elements[2], s); err != nil {
		return err
	}
	_, err := Resolve(s, name)
	return err
}

func (a *Analyzer) analyzeIf(n *ast.Node, s *Scope) error {
	if err := a.analyzeForm(&n.Elements[1], s); err != nil {
		return err
	}
	if err := a.analyzeForm(&n.Elements[2], s); err != nil {
		return err
	}
	if len(n.Elements) > 3 {
		return a.analyzeForm(&n.Elements[3], s)
	}
	return nil
}

func (a *Analyzer) analyzeWhile(n *ast.Node, s *Scope) error {
	if err := a.analyzeForm(&n.Elements[1], s); err != nil {
		return err
	}
	return a.analyzeForm(&n.Elements[2], s)
}

// analyzeDef handles `(def name (params...) body)`: sugar for
// `(var name (lambda (params...) body))`, except the name is additionally
// bound inside the new Function scope so the function can call itself by a
// direct local reference.
func (a *Analyzer) analyzeDef(n *ast.Node, s *Scope) error {
	name := n.Elements[1].SymbolName
	s.AddLocal(name)

	fn := New(Function, s)
	a.scopes[n] = fn
	fn.AddLocal(name)

	params := n.Elements[2]
	for i := range params.Elements {
		fn.AddLocal(params.Elements[i].SymbolName)
	}
	return a.analyzeForm(&n.Elements[3], fn)
}

// analyzeLambda handles `(lambda (params...) body)`.
func (a *Analyzer) analyzeLambda(n *ast.Node, s *Scope) error {
	fn := New(Function, s)
	a.scopes[n] = fn

	params := n.Elements[1]
	for i := range params.Elements {
		fn.AddLocal(params.Elements[i].SymbolName)
	}
	return a.analyzeForm(&n.Elements[2], fn)
}

func (a *Analyzer) analyzeOperator(n *ast.Node, s *Scope) error {
	if err := a.analyzeForm(&n.Elements[1], s); err != nil {
		return err
	}
	return a.analyzeForm(&n.Elements[2], s)
}

func (a *Analyzer) analyzeCall(n *ast.Node, s *Scope) error {
	for i := range n.Elements {
		if err := a.analyzeForm(&n.Elements[i], s); err != nil {
			return err
		}
	}
	return nil
}
