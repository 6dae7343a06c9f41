package token

import "testing"

func TestCreateToken(t *testing.T) {
	tok := CreateToken(LPAREN, 0, 0)
	if tok.TokenType != LPAREN || tok.Lexeme != "(" {
		t.Errorf("CreateToken(LPAREN) = %+v, want lexeme \"(\"", tok)
	}
}

func TestCreateLiteralToken(t *testing.T) {
	tok := CreateLiteralToken(NUMBER, 42.0, "42", 1, 3)
	if tok.TokenType != NUMBER || tok.Literal != 42.0 || tok.Lexeme != "42" {
		t.Errorf("CreateLiteralToken(NUMBER) = %+v, want literal 42, lexeme \"42\"", tok)
	}
	if tok.Line != 1 || tok.Column != 3 {
		t.Errorf("CreateLiteralToken position = line %d col %d, want 1,3", tok.Line, tok.Column)
	}
}

func TestString(t *testing.T) {
	tok := CreateLiteralToken(SYMBOL, nil, "foo", 0, 0)
	if got := tok.String(); got == "" {
		t.Errorf("Token.String() returned empty string")
	}
}
