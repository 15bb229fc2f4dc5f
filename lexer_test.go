package rossete

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allTokens(t *testing.T, src string) []Token {
	t.Helper()
	lex := NewLexer([]byte(src), "test.ttl")
	var toks []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			require.ErrorIs(t, err, &Error{Kind: KindUnexpectedEOF})
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestLexerSpanAccuracy(t *testing.T) {
	src := `@prefix ex: <http://ex.com/> .
<#M1> rr:predicate ex:name, "A" "" """triple""" [ ] a.
`
	toks := allTokens(t, src)
	require.NotEmpty(t, toks)
	for _, tok := range toks {
		slice := src[tok.Span.Start:tok.Span.End]
		switch tok.Kind {
		case Literal:
			assert.Contains(t, slice, tok.Literal)
		case URI, Ident:
			assert.Contains(t, slice, tok.Literal)
		default:
			assert.Equal(t, tok.Literal, slice)
		}
	}
}

func TestLexerKinds(t *testing.T) {
	toks := allTokens(t, `@prefix ex: <http://ex.com/> .`)
	kinds := make([]TokenKind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []TokenKind{Prefix, Term, Colon, URI, Dot}, kinds)
}

func TestLexerIdentVsURI(t *testing.T) {
	toks := allTokens(t, `<#M1> <http://ex.com/>`)
	require.Len(t, toks, 2)
	assert.Equal(t, Ident, toks[0].Kind)
	assert.Equal(t, "M1", toks[0].Literal)
	assert.Equal(t, URI, toks[1].Kind)
	assert.Equal(t, "http://ex.com/", toks[1].Literal)
}

func TestLexerAKeyword(t *testing.T) {
	toks := allTokens(t, `a abc`)
	require.Len(t, toks, 2)
	assert.Equal(t, A, toks[0].Kind)
	assert.Equal(t, Term, toks[1].Kind)
}

func TestLexerTripleQuotedLiteral(t *testing.T) {
	toks := allTokens(t, `"""multi "word" line"""`)
	require.Len(t, toks, 1)
	assert.Equal(t, Literal, toks[0].Kind)
	assert.Equal(t, `multi "word" line`, toks[0].Literal)
}

func TestLexerUnterminatedLiteral(t *testing.T) {
	lex := NewLexer([]byte(`"unterminated`), "bad.ttl")
	_, err := lex.Next()
	require.Error(t, err)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindUnterminatedLiteral, rerr.Kind)
}

func TestLexerInvalidCharacter(t *testing.T) {
	lex := NewLexer([]byte(`%invalid`), "bad.ttl")
	_, err := lex.Next()
	require.Error(t, err)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindInvalidToken, rerr.Kind)
}

func TestLexerTerminatesAfterError(t *testing.T) {
	lex := NewLexer([]byte(`%bad more tokens`), "bad.ttl")
	_, err1 := lex.Next()
	require.Error(t, err1)
	_, err2 := lex.Next()
	require.Error(t, err2)
	assert.Equal(t, err1, err2)
}
