package parser

import (
	"testing"

	"eva/ast"
	"eva/lexer"
)

func mustParse(t *testing.T, src string) []ast.Node {
	t.Helper()
	toks, err := lexer.New(src).Scan()
	if err != nil {
		t.Fatalf("lexer error: %v", err)
	}
	forms, errs := Make(toks).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return forms
}

func TestParseAtoms(t *testing.T) {
	forms := mustParse(t, `42 "foo" bar true false`)
	if len(forms) != 5 {
		t.Fatalf("got %d forms, want 5", len(forms))
	}
	if forms[0].Kind != ast.Number || forms[0].NumberValue != 42 {
		t.Errorf("forms[0] = %+v, want Number 42", forms[0])
	}
	if forms[1].Kind != ast.String || forms[1].StringValue != "foo" {
		t.Errorf("forms[1] = %+v, want String foo", forms[1])
	}
	if forms[2].Kind != ast.Symbol || forms[2].SymbolName != "bar" {
		t.Errorf("forms[2] = %+v, want Symbol bar", forms[2])
	}
	if forms[3].SymbolName != "true" || forms[4].SymbolName != "false" {
		t.Errorf("forms[3:5] = %+v, want [true false]", forms[3:5])
	}
}

func TestParseNestedList(t *testing.T) {
	forms := mustParse(t, "(+ 2 (* 3 4))")
	if len(forms) != 1 || forms[0].Kind != ast.List {
		t.Fatalf("got %+v, want a single List form", forms)
	}
	top := forms[0]
	if len(top.Elements) != 3 {
		t.Fatalf("got %d elements, want 3", len(top.Elements))
	}
	if !top.Elements[2].IsCall("*") {
		t.Errorf("top.Elements[2] = %+v, want a (* ...) call", top.Elements[2])
	}
}

func TestParseUnterminatedListIsError(t *testing.T) {
	toks, err := lexer.New("(+ 1 2").Scan()
	if err != nil {
		t.Fatal(err)
	}
	_, errs := Make(toks).Parse()
	if len(errs) == 0 {
		t.Fatal("expected an unterminated-list error")
	}
}

func TestParseUnexpectedCloseParenIsError(t *testing.T) {
	toks, err := lexer.New(")").Scan()
	if err != nil {
		t.Fatal(err)
	}
	_, errs := Make(toks).Parse()
	if len(errs) == 0 {
		t.Fatal("expected an unexpected-')' error")
	}
}
