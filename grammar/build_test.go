package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *astGrammar {
	t.Helper()
	ast, err := Parse(src)
	require.NoError(t, err)
	return ast
}

func TestBuildFusesConsecutiveTerminals(t *testing.T) {
	ast := mustParse(t, `<start> ::= 'b' 'o' 'y'`)
	g, err := Build(ast, "start")
	require.NoError(t, err)
	prods := g.Productions[g.Start]
	require.Len(t, prods, 1)
	require.Len(t, prods[0], 1)
	assert.Equal(t, SymTerminal, prods[0][0].Kind)
	assert.Equal(t, []byte("boy"), prods[0][0].Terminal)
}

func TestBuildUndefinedNonterminal(t *testing.T) {
	ast := mustParse(t, `<start> ::= <missing>`)
	_, err := Build(ast, "start")
	assert.ErrorIs(t, err, ErrUndefinedNonterminal)
}

func TestBuildNoStart(t *testing.T) {
	ast := mustParse(t, `<a> ::= "x"`)
	_, err := Build(ast, "start")
	assert.ErrorIs(t, err, ErrNoStart)
}

func TestBuildDirectLeftRecursion(t *testing.T) {
	ast := mustParse(t, `<start> ::= <start> "x" | "y"`)
	_, err := Build(ast, "start")
	assert.ErrorIs(t, err, ErrLeftRecursion)
}

func TestBuildIndirectLeftRecursion(t *testing.T) {
	ast := mustParse(t, `<a> ::= <b> "x"
<b> ::= <a> "y" | "z"`)
	_, err := Build(ast, "a")
	assert.ErrorIs(t, err, ErrLeftRecursion)
}

func TestBuildRightRecursionAllowed(t *testing.T) {
	ast := mustParse(t, `<seq> ::= <any!> | <any!> <seq>`)
	g, err := Build(ast, "seq")
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestBuildRejectsNestedExcept(t *testing.T) {
	ast := mustParse(t, `<start> ::= <except!([inner])>
<inner> ::= <except!('x')>`)
	_, err := Build(ast, "start")
	assert.ErrorIs(t, err, ErrNestedExcept)
}

func TestBuildAllowsExceptNonterminalWithoutNestedExcept(t *testing.T) {
	ast := mustParse(t, `<start> ::= <except!([word])>
<word> ::= "a" | "b" <word>`)
	g, err := Build(ast, "start")
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestParseRejectsEmptyAlternative(t *testing.T) {
	_, err := Parse(`<start> ::= "a" | `)
	assert.ErrorIs(t, err, ErrEmptyAlternative)
}

func TestBuildAlternationOrderPreserved(t *testing.T) {
	ast := mustParse(t, `<start> ::= "A" | "B" | "C"`)
	g, err := Build(ast, "start")
	require.NoError(t, err)
	prods := g.Productions[g.Start]
	require.Len(t, prods, 3)
	assert.Equal(t, []byte("A"), prods[0][0].Terminal)
	assert.Equal(t, []byte("B"), prods[1][0].Terminal)
	assert.Equal(t, []byte("C"), prods[2][0].Terminal)
}
