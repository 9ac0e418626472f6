// Package trie implements the vocabulary-indexed trie the matching engine
// walks jointly with a grammar to enumerate admissible tokens, plus the
// dense bitset used to report the result.
package trie

import (
	"bytes"
	"errors"
	"fmt"
)

// Sentinel errors returned by Build.
var (
	ErrEmptyToken     = errors.New("trie: vocabulary token is empty")
	ErrDuplicateToken = errors.New("trie: duplicate vocabulary token")
)

const noToken int32 = -1

type trieNode struct {
	children map[byte]int32 // byte -> index into Trie.nodes
	token    int32          // noToken unless this node terminates a vocabulary token
}

// Trie is an arena of nodes addressed by index rather than pointer, so a
// Vocabulary (and its Trie) can be shared read-only across many Samplers.
type Trie struct {
	nodes []trieNode
}

// Root is the index of the trie's root node.
const Root int32 = 0

func newTrie() *Trie {
	return &Trie{nodes: []trieNode{{children: map[byte]int32{}, token: noToken}}}
}

func (t *Trie) insert(tok []byte, id int32) {
	cur := Root
	for _, b := range tok {
		next, ok := t.nodes[cur].children[b]
		if !ok {
			t.nodes = append(t.nodes, trieNode{children: map[byte]int32{}, token: noToken})
			next = int32(len(t.nodes) - 1)
			t.nodes[cur].children[b] = next
		}
		cur = next
	}
	t.nodes[cur].token = id
}

// Walk follows a single byte edge from node, reporting the child's index
// and whether the edge exists.
func (t *Trie) Walk(node int32, b byte) (int32, bool) {
	next, ok := t.nodes[node].children[b]
	return next, ok
}

// TokenAt returns the vocabulary token id terminating at node, if any.
func (t *Trie) TokenAt(node int32) (int32, bool) {
	id := t.nodes[node].token
	if id == noToken {
		return 0, false
	}
	return id, true
}

// LongestTokenAlong walks path from node and returns the id and byte
// length of the longest vocabulary token that is a prefix of path. ok is
// false if no prefix of path (of any length, including zero) is a
// complete vocabulary token.
func (t *Trie) LongestTokenAlong(node int32, path []byte) (id int32, consumed int, ok bool) {
	cur := node
	bestID, bestLen, found := int32(0), 0, false
	if tid, has := t.TokenAt(cur); has {
		bestID, bestLen, found = tid, 0, true
	}
	for i, b := range path {
		next, has := t.Walk(cur, b)
		if !has {
			break
		}
		cur = next
		if tid, has := t.TokenAt(cur); has {
			bestID, bestLen, found = tid, i+1, true
		}
	}
	return bestID, bestLen, found
}

// Entry is one (token id, bytes) pair yielded while enumerating a subtree.
type Entry struct {
	ID     int32
	Suffix []byte // bytes from node down to this token, exclusive of node's own prefix
}

// Enumerate returns every vocabulary token reachable below node, along
// with the suffix of bytes (relative to node) needed to reach it. It is
// used to discover tokens that extend past the end of a terminal the
// grammar has already matched in full (vocabulary tokens don't
// necessarily align with grammar terminal boundaries).
func (t *Trie) Enumerate(node int32) []Entry {
	var out []Entry
	var walk func(n int32, prefix []byte)
	walk = func(n int32, prefix []byte) {
		if id, ok := t.TokenAt(n); ok && len(prefix) > 0 {
			cp := make([]byte, len(prefix))
			copy(cp, prefix)
			out = append(out, Entry{ID: id, Suffix: cp})
		}
		for b, child := range t.nodes[n].children {
			walk(child, append(prefix, b))
		}
	}
	walk(node, nil)
	return out
}

// Vocabulary is an indexed, immutable set of byte-string tokens plus the
// trie built over them.
type Vocabulary struct {
	tokens [][]byte
	trie   *Trie
}

// Build constructs a Vocabulary from tokens, indexed by their position in
// the slice. Empty tokens and duplicates are rejected.
func Build(tokens [][]byte) (*Vocabulary, error) {
	seen := make(map[string]int32, len(tokens))
	t := newTrie()
	for i, tok := range tokens {
		if len(tok) == 0 {
			return nil, fmt.Errorf("%w: index %d", ErrEmptyToken, i)
		}
		key := string(tok)
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %q (indices %d and %d)", ErrDuplicateToken, tok, prev, i)
		}
		seen[key] = int32(i)
		t.insert(tok, int32(i))
	}
	cp := make([][]byte, len(tokens))
	copy(cp, tokens)
	return &Vocabulary{tokens: cp, trie: t}, nil
}

// Len returns the number of tokens in the vocabulary.
func (v *Vocabulary) Len() int { return len(v.tokens) }

// Bytes returns the byte string for a token id. It panics if id is out of
// range, which indicates a programming error (ids are only ever handed out
// by this package).
func (v *Vocabulary) Bytes(id int32) []byte { return v.tokens[id] }

// Trie returns the vocabulary's trie, rooted at Root.
func (v *Vocabulary) Trie() *Trie { return v.trie }

// Contains reports whether lit occurs anywhere within the bytes of token
// id.
func (v *Vocabulary) Contains(id int32, lit []byte) bool {
	return bytes.Contains(v.tokens[id], lit)
}
