package lexer

import (
	"testing"

	"eva/token"
)

func scanTypes(t *testing.T, input string) []token.TokenType {
	t.Helper()
	toks, err := New(input).Scan()
	if err != nil {
		t.Fatalf("Scan(%q) returned error: %v", input, err)
	}
	types := make([]token.TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.TokenType
	}
	return types
}

func TestScanParens(t *testing.T) {
	got := scanTypes(t, "(+ 1 2)")
	want := []token.TokenType{token.LPAREN, token.SYMBOL, token.NUMBER, token.NUMBER, token.RPAREN, token.EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d] = %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestScanNumberLiteral(t *testing.T) {
	toks, err := New("3.14").Scan()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].TokenType != token.NUMBER || toks[0].Literal.(float64) != 3.14 {
		t.Errorf("got %+v, want NUMBER 3.14", toks[0])
	}
}

func TestScanNegativeNumberLiteral(t *testing.T) {
	toks, err := New("-5").Scan()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].TokenType != token.NUMBER || toks[0].Literal.(float64) != -5 {
		t.Errorf("got %+v, want NUMBER -5", toks[0])
	}
}

func TestScanMinusOperatorSymbol(t *testing.T) {
	toks, err := New("(- 5 3)").Scan()
	if err != nil {
		t.Fatal(err)
	}
	if toks[1].TokenType != token.SYMBOL || toks[1].Lexeme != "-" {
		t.Errorf("got %+v, want SYMBOL \"-\"", toks[1])
	}
}

func TestScanStringLiteral(t *testing.T) {
	toks, err := New(`"foo"`).Scan()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].TokenType != token.STRING || toks[0].Literal.(string) != "foo" {
		t.Errorf("got %+v, want STRING foo", toks[0])
	}
}

func TestScanUnclosedStringIsError(t *testing.T) {
	_, err := New(`"foo`).Scan()
	if err == nil {
		t.Fatal("expected an unclosed-string error")
	}
}

func TestScanBooleans(t *testing.T) {
	got := scanTypes(t, "true false")
	want := []token.TokenType{token.TRUE, token.FALSE, token.EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanComparisonOperators(t *testing.T) {
	toks, err := New("(< > == >= <= !=)").Scan()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"(", "<", ">", "==", ">=", "<=", "!=", ")"}
	for i, w := range want {
		if toks[i].Lexeme != w {
			t.Fatalf("token[%d].Lexeme = %q, want %q", i, toks[i].Lexeme, w)
		}
	}
}

func TestScanSkipsComments(t *testing.T) {
	got := scanTypes(t, "1 ; a comment\n2")
	want := []token.TokenType{token.NUMBER, token.NUMBER, token.EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
