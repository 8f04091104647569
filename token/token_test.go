package token

import "testing"

func TestCreateToken(t *testing.T) {
	tests := []struct {
		name      string
		tokenType TokenType
		line      int32
		column    int
	}{
		{name: "Create ASSIGN token", tokenType: ASSIGN, line: 1, column: 4},
		{name: "Create MULT token", tokenType: MULT, line: 2, column: 0},
		{name: "Create IF keyword token", tokenType: IF, line: 3, column: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CreateToken(tt.tokenType, tt.line, tt.column)
			if got.TokenType != tt.tokenType {
				t.Errorf("TokenType = %v, want %v", got.TokenType, tt.tokenType)
			}
			if got.Lexeme != string(tt.tokenType) {
				t.Errorf("Lexeme = %q, want %q", got.Lexeme, string(tt.tokenType))
			}
			if got.Line != tt.line || got.Column != tt.column {
				t.Errorf("position = (%d,%d), want (%d,%d)", got.Line, got.Column, tt.line, tt.column)
			}
		})
	}
}

func TestCreateLiteralToken(t *testing.T) {
	got := CreateLiteralToken(IDENTIFIER, nil, "myVar", 3, 10)
	want := Token{TokenType: IDENTIFIER, Lexeme: "myVar", Literal: nil, Line: 3, Column: 10}
	if got != want {
		t.Errorf("CreateLiteralToken() = %v, want %v", got, want)
	}
}

func TestIsShortHand(t *testing.T) {
	for _, tt := range []TokenType{ADD_ASSIGN, SUB_ASSIGN, MUL_ASSIGN, DIV_ASSIGN, MOD_ASSIGN} {
		if !IsShortHand(tt) {
			t.Errorf("IsShortHand(%v) = false, want true", tt)
		}
	}
	if IsShortHand(ASSIGN) {
		t.Errorf("IsShortHand(ASSIGN) = true, want false")
	}
}

func TestTypeSizesAndWireSizes(t *testing.T) {
	cases := []struct {
		typ      Type
		size     int
		wireSize int
	}{
		{Int, 4, 5},
		{Dcml, 8, 9},
		{Bool, 1, 2},
		{StringT, 2, 3},
		{CallStack, 4, 5},
		{ArrayOf(Int), 2, 3},
	}
	for _, c := range cases {
		if got := c.typ.Size(); got != c.size {
			t.Errorf("%s.Size() = %d, want %d", c.typ, got, c.size)
		}
		if got := c.typ.WireSize(); got != c.wireSize {
			t.Errorf("%s.WireSize() = %d, want %d", c.typ, got, c.wireSize)
		}
	}
}
