package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRejectsEmptyToken(t *testing.T) {
	_, err := Build([][]byte{[]byte("a"), {}})
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestBuildRejectsDuplicateToken(t *testing.T) {
	_, err := Build([][]byte{[]byte("a"), []byte("a")})
	assert.ErrorIs(t, err, ErrDuplicateToken)
}

func TestLongestTokenAlong(t *testing.T) {
	v, err := Build([][]byte{[]byte("apple"), []byte("66"), []byte("666")})
	require.NoError(t, err)

	id, consumed, ok := v.Trie().LongestTokenAlong(Root, []byte("apple66666"))
	require.True(t, ok)
	assert.Equal(t, 5, consumed)
	assert.Equal(t, []byte("apple"), v.Bytes(id))
}

func TestLongestTokenAlongPrefersLongerToken(t *testing.T) {
	v, err := Build([][]byte{[]byte("66"), []byte("666")})
	require.NoError(t, err)

	id, consumed, ok := v.Trie().LongestTokenAlong(Root, []byte("66666"))
	require.True(t, ok)
	assert.Equal(t, 3, consumed)
	assert.Equal(t, []byte("666"), v.Bytes(id))
}

func TestLongestTokenAlongNoMatch(t *testing.T) {
	v, err := Build([][]byte{[]byte("cat")})
	require.NoError(t, err)

	_, _, ok := v.Trie().LongestTokenAlong(Root, []byte("dog"))
	assert.False(t, ok)
}

func TestWalk(t *testing.T) {
	v, err := Build([][]byte{[]byte("ab")})
	require.NoError(t, err)
	tr := v.Trie()

	n1, ok := tr.Walk(Root, 'a')
	require.True(t, ok)
	n2, ok := tr.Walk(n1, 'b')
	require.True(t, ok)
	id, ok := tr.TokenAt(n2)
	require.True(t, ok)
	assert.Equal(t, []byte("ab"), v.Bytes(id))

	_, ok = tr.Walk(Root, 'z')
	assert.False(t, ok)
}

func TestEnumerate(t *testing.T) {
	v, err := Build([][]byte{[]byte("card"), []byte("cat"), []byte("c")})
	require.NoError(t, err)
	tr := v.Trie()

	entries := tr.Enumerate(Root)
	got := map[string]bool{}
	for _, e := range entries {
		got[string(e.Suffix)] = true
	}
	assert.True(t, got["card"])
	assert.True(t, got["cat"])

	// "c" terminates one edge below Root; Enumerate skips the token at the
	// node it starts from, but TokenAt reports it directly.
	cNode, ok := tr.Walk(Root, 'c')
	require.True(t, ok)
	id, ok := tr.TokenAt(cNode)
	require.True(t, ok)
	assert.Equal(t, []byte("c"), v.Bytes(id))
}

func TestContains(t *testing.T) {
	v, err := Build([][]byte{[]byte("card"), []byte("cat")})
	require.NoError(t, err)

	cardID, _, _ := v.Trie().LongestTokenAlong(Root, []byte("card"))
	assert.True(t, v.Contains(cardID, []byte("ar")))
	assert.False(t, v.Contains(cardID, []byte("xy")))
}
