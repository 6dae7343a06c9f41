// Package ast defines the S-expression tree the parser produces and the
// compiler consumes. Eva's surface grammar has exactly four node shapes, so
// unlike a typical visitor-pattern AST (one Go type per grammar rule) a
// single tagged Node covers the whole language.
package ast

import "fmt"

// Kind classifies a Node.
type Kind int

const (
	Number Kind = iota
	String
	Symbol
	List
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "NUMBER"
	case String:
		return "STRING"
	case Symbol:
		return "SYMBOL"
	case List:
		return "LIST"
	default:
		return "UNKNOWN"
	}
}

// Node is a single S-expression: an atom (NUMBER, STRING, SYMBOL) or a LIST
// of child Nodes, e.g. `(+ 2 (* 3 4))` parses to:
//
//	List{Symbol("+"), Number(2), List{Symbol("*"), Number(3), Number(4)}}
type Node struct {
	Kind Kind

	// Valid when Kind == Number.
	NumberValue float64
	// Valid when Kind == String.
	StringValue string
	// Valid when Kind == Symbol.
	SymbolName string
	// Valid when Kind == List.
	Elements []Node

	// Line is the 1-based source line the node started on, used only for
	// diagnostics.
	Line int32
}

func NewNumber(v float64, line int32) Node {
	return Node{Kind: Number, NumberValue: v, Line: line}
}

func NewString(v string, line int32) Node {
	return Node{Kind: String, StringValue: v, Line: line}
}

func NewSymbol(name string, line int32) Node {
	return Node{Kind: Symbol, SymbolName: name, Line: line}
}

func NewList(elements []Node, line int32) Node {
	return Node{Kind: List, Elements: elements, Line: line}
}

// IsCall reports whether this list node's head is the given symbol, e.g.
// IsCall("if") matches `(if ...)`.
func (n Node) IsCall(head string) bool {
	return n.Kind == List && len(n.Elements) > 0 &&
		n.Elements[0].Kind == Symbol && n.Elements[0].SymbolName == head
}

func (n Node) String() string {
	switch n.Kind {
	case Number:
		return fmt.Sprintf("%g", n.NumberValue)
	case String:
		return fmt.Sprintf("%q", n.StringValue)
	case Symbol:
		return n.SymbolName
	case List:
		s := "("
		for i, e := range n.Elements {
			if i > 0 {
				s += " "
			}
			s += e.String()
		}
		return s + ")"
	default:
		return "<invalid-node>"
	}
}
