package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorganca/gbnf/engine"
	"github.com/jmorganca/gbnf/grammar"
	"github.com/jmorganca/gbnf/trie"
)

func build(t *testing.T, src, start string) *grammar.Grammar {
	t.Helper()
	ast, err := grammar.Parse(src)
	require.NoError(t, err)
	g, err := grammar.Build(ast, start)
	require.NoError(t, err)
	return g
}

func vocabOf(t *testing.T, toks ...string) *trie.Vocabulary {
	t.Helper()
	bs := make([][]byte, len(toks))
	for i, tok := range toks {
		bs[i] = []byte(tok)
	}
	v, err := trie.Build(bs)
	require.NoError(t, err)
	return v
}

func tokenID(t *testing.T, v *trie.Vocabulary, tok string) int32 {
	t.Helper()
	for id := int32(0); id < int32(v.Len()); id++ {
		if string(v.Bytes(id)) == tok {
			return id
		}
	}
	t.Fatalf("token %q not in vocabulary", tok)
	return -1
}

func TestSamplerExactSequence(t *testing.T) {
	g := build(t, `<start> ::= <A> <B>
<A> ::= "boy"
<B> ::= "next"`, "start")
	v := vocabOf(t, "boy", "next", "cat")
	s := New(g, v, nil)

	ts, err := s.AllPossibleTokens()
	require.NoError(t, err)
	assert.True(t, ts.Test(tokenID(t, v, "boy")))
	assert.False(t, ts.Test(tokenID(t, v, "cat")))

	require.NoError(t, s.AcceptToken(tokenID(t, v, "boy")))
	assert.False(t, s.IsTerminated())

	require.NoError(t, s.AcceptToken(tokenID(t, v, "next")))
	assert.True(t, s.IsTerminated())
}

func TestSamplerRejectedTokenLeavesStateUnchanged(t *testing.T) {
	g := build(t, `<start> ::= "boy"`, "start")
	v := vocabOf(t, "boy", "cat")
	s := New(g, v, nil)

	err := s.AcceptToken(tokenID(t, v, "cat"))
	assert.ErrorIs(t, err, ErrTokenRejected)
	assert.False(t, s.IsTerminated())

	// still able to accept the correct token after a rejection
	require.NoError(t, s.AcceptToken(tokenID(t, v, "boy")))
	assert.True(t, s.IsTerminated())
}

func TestSamplerTerminatedRejectsFurtherTokens(t *testing.T) {
	g := build(t, `<start> ::= "boy"`, "start")
	v := vocabOf(t, "boy")
	s := New(g, v, nil)

	require.NoError(t, s.AcceptToken(tokenID(t, v, "boy")))
	require.True(t, s.IsTerminated())

	err := s.AcceptToken(tokenID(t, v, "boy"))
	assert.ErrorIs(t, err, ErrSamplerTerminated)
}

func TestSamplerReset(t *testing.T) {
	g := build(t, `<start> ::= "boy"`, "start")
	v := vocabOf(t, "boy")
	s := New(g, v, nil)

	require.NoError(t, s.AcceptToken(tokenID(t, v, "boy")))
	require.True(t, s.IsTerminated())

	s.Reset()
	assert.False(t, s.IsTerminated())
	require.NoError(t, s.AcceptToken(tokenID(t, v, "boy")))
	assert.True(t, s.IsTerminated())
}

func TestSamplerSharedEnumerator(t *testing.T) {
	g := build(t, `<start> ::= "A" | "B"`, "start")
	v := vocabOf(t, "A", "B")

	shared := engine.NewEnumerator(g, v)
	s1 := New(g, v, shared)
	s2 := New(g, v, shared)

	ts1, err := s1.AllPossibleTokens()
	require.NoError(t, err)
	ts2, err := s2.AllPossibleTokens()
	require.NoError(t, err)
	assert.Equal(t, ts1.Slice(), ts2.Slice())
}

func TestSamplerHasStableID(t *testing.T) {
	g := build(t, `<start> ::= "A"`, "start")
	v := vocabOf(t, "A")
	s := New(g, v, nil)
	assert.NotEqual(t, s.ID().String(), "")

	id := s.ID()
	require.NoError(t, s.AcceptToken(tokenID(t, v, "A")))
	s.Reset()
	assert.Equal(t, id, s.ID())
}
