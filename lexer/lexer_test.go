package lexer

import (
	"testing"

	"nilanc/token"
)

func tokenTypes(toks []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.TokenType
	}
	return out
}

func assertTypes(t *testing.T, got []token.Token, want []token.TokenType) {
	t.Helper()
	gotTypes := tokenTypes(got)
	if len(gotTypes) != len(want) {
		t.Fatalf("token count = %d, want %d (%v)", len(gotTypes), len(want), gotTypes)
	}
	for i := range want {
		if gotTypes[i] != want[i] {
			t.Errorf("token[%d] = %v, want %v", i, gotTypes[i], want[i])
		}
	}
}

func TestOperatorsAndPunctuation(t *testing.T) {
	src := "+ - * / % == != < <= > >= & | ^ ! = ( ) { } [ ] , ; -> ."
	toks, err := New(src).Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	assertTypes(t, toks, []token.TokenType{
		token.ADD, token.SUB, token.MULT, token.DIV, token.MOD,
		token.EQUAL_EQUAL, token.NOT_EQUAL, token.LESS, token.LESS_EQUAL,
		token.LARGER, token.LARGER_EQUAL, token.BIT_AND, token.BIT_OR, token.BIT_XOR,
		token.BANG, token.ASSIGN, token.LPA, token.RPA, token.LCUR, token.RCUR,
		token.LBRACKET, token.RBRACKET, token.COMMA, token.SEMICOLON, token.ARROW, token.DOT,
		token.EOF,
	})
}

func TestShortHandOperators(t *testing.T) {
	toks, err := New("+= -= *= /= %=").Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	assertTypes(t, toks, []token.TokenType{
		token.ADD_ASSIGN, token.SUB_ASSIGN, token.MUL_ASSIGN, token.DIV_ASSIGN, token.MOD_ASSIGN, token.EOF,
	})
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks, err := New("fun main int dcml bool string if else while return true false and or xor myVar").Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	assertTypes(t, toks, []token.TokenType{
		token.FUNC, token.IDENTIFIER, token.INT_TYPE, token.DCML_TYPE, token.BOOL_TYPE, token.STRING_TYPE,
		token.IF, token.ELSE, token.WHILE, token.RETURN, token.TRUE, token.FALSE,
		token.AND, token.OR, token.XOR, token.IDENTIFIER, token.EOF,
	})
}

func TestNumericLiterals(t *testing.T) {
	toks, err := New("42 3.14 .5").Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if toks[0].TokenType != token.INT || toks[0].Literal.(int32) != 42 {
		t.Errorf("token[0] = %v, want INT 42", toks[0])
	}
	if toks[1].TokenType != token.DCML || toks[1].Literal.(float64) != 3.14 {
		t.Errorf("token[1] = %v, want DCML 3.14", toks[1])
	}
	if toks[2].TokenType != token.DCML || toks[2].Literal.(float64) != 0.5 {
		t.Errorf("token[2] = %v, want DCML 0.5 (leading dot normalized)", toks[2])
	}
}

func TestMalformedNumberSecondDot(t *testing.T) {
	_, err := New("1.2.3").Scan()
	if err == nil {
		t.Fatalf("expected a LexError for a second '.' in a numeric literal")
	}
}

func TestStringEscapes(t *testing.T) {
	toks, err := New(`"a\nb\"c\\d"`).Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	want := "a\nb\"c\\d"
	if toks[0].Literal.(string) != want {
		t.Errorf("string literal = %q, want %q", toks[0].Literal, want)
	}
}

func TestUnterminatedString(t *testing.T) {
	_, err := New(`"abc`).Scan()
	if err == nil {
		t.Fatalf("expected a LexError for an unterminated string")
	}
}

func TestInvalidEscape(t *testing.T) {
	_, err := New(`"\q"`).Scan()
	if err == nil {
		t.Fatalf("expected a LexError for an invalid escape sequence")
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	toks, err := New("1 # this is a comment\n2").Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	assertTypes(t, toks, []token.TokenType{token.INT, token.INT, token.EOF})
}

func TestEmptySource(t *testing.T) {
	toks, err := New("").Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	assertTypes(t, toks, []token.TokenType{token.EOF})
}

func TestUnknownSymbol(t *testing.T) {
	_, err := New("@").Scan()
	if err == nil {
		t.Fatalf("expected a LexError for an unknown symbol")
	}
}
