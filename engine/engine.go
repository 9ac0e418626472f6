// Package engine implements the recursive-descent matcher at the heart of
// grammar-constrained decoding: committing a chosen token's bytes against
// the live grammar state (Feed), and enumerating every vocabulary token
// that could be accepted next (Enumerate).
package engine

import (
	"bytes"
	"fmt"

	"github.com/jmorganca/gbnf/grammar"
	"github.com/jmorganca/gbnf/gstate"
	"github.com/jmorganca/gbnf/trie"
)

// Result classifies the outcome of feeding a token's bytes against the
// grammar.
type Result int

const (
	// Invalid means the bytes cannot be derived from the grammar at all.
	Invalid Result = iota
	// Partial means the bytes are a valid prefix of some derivation, but
	// at least one live stack still has pending frames.
	Partial
	// Accepted means every live derivation has fully consumed its stack:
	// the grammar is satisfied and no further bytes are required.
	Accepted
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Partial:
		return "partial"
	default:
		return "invalid"
	}
}

// ErrInvariantViolation is raised (via panic, recovered at the Feed/
// Enumerate boundary) if the engine reaches a state its own invariants
// say is unreachable, e.g. a Symbol with a Kind no switch below handles.
// It is a programming-error signal, not a grammar-authoring error.
type ErrInvariantViolation struct {
	Detail string
}

func (e *ErrInvariantViolation) Error() string {
	return fmt.Sprintf("engine: invariant violation: %s", e.Detail)
}

// Feed advances every live stack in state by consuming tok in full,
// returning the resulting state and classification. On Invalid, the
// returned state is the original, unmodified state (invariant: a rejected
// token never mutates the sampler's committed state).
func Feed(g *grammar.Grammar, vocab *trie.Vocabulary, state gstate.State, tok []byte) (next gstate.State, result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			if iv, ok := r.(*ErrInvariantViolation); ok {
				err = iv
				return
			}
			panic(r)
		}
	}()

	var out []gstate.Stack
	seen := map[string]bool{}
	add := func(s gstate.Stack) {
		k := s.Key()
		if !seen[k] {
			seen[k] = true
			out = append(out, s)
		}
	}
	for _, s := range state.Stacks() {
		advance(g, vocab, s, tok, add)
	}
	if len(out) == 0 {
		return state, Invalid, nil
	}
	next = gstate.FromStacks(out)
	if next.IsDone() {
		return next, Accepted, nil
	}
	return next, Partial, nil
}

// advance collects, into add, every stack reachable from s after consuming
// input in full. A dead end (input left over with nothing to match it, or
// a terminal/except mismatch) simply contributes nothing.
func advance(g *grammar.Grammar, vocab *trie.Vocabulary, s gstate.Stack, input []byte, add func(gstate.Stack)) {
	frame, rest, ok := s.Pop()
	if !ok {
		if len(input) == 0 {
			add(s)
		}
		return
	}
	switch frame.Symbol.Kind {
	case grammar.SymNonterminal:
		prods := g.Productions[frame.Symbol.Nonterminal]
		for _, prod := range prods {
			next := rest
			for i := len(prod) - 1; i >= 0; i-- {
				next = next.Push(gstate.Frame{Symbol: prod[i]})
			}
			advance(g, vocab, next, input, add)
		}
	case grammar.SymTerminal:
		advanceTerminal(g, vocab, frame.Symbol.Terminal, rest, input, add)
	case grammar.SymAny:
		if len(input) == 0 {
			add(s)
			return
		}
		advance(g, vocab, rest, nil, add)
	case grammar.SymExceptLiteral:
		if len(input) == 0 {
			add(s)
			return
		}
		if bytes.Contains(input, frame.Symbol.Terminal) {
			return
		}
		advance(g, vocab, rest, nil, add)
	case grammar.SymExceptNonterminal:
		if len(input) == 0 {
			add(s)
			return
		}
		if containsMatchOfNonterminal(g, vocab, frame.Symbol.Nonterminal, input) {
			return
		}
		advance(g, vocab, rest, nil, add)
	default:
		panic(&ErrInvariantViolation{Detail: fmt.Sprintf("unhandled symbol kind %v", frame.Symbol.Kind)})
	}
}

func advanceTerminal(g *grammar.Grammar, vocab *trie.Vocabulary, term []byte, rest gstate.Stack, input []byte, add func(gstate.Stack)) {
	if len(input) == 0 {
		add(rest.Push(gstate.Frame{Symbol: grammar.Symbol{Kind: grammar.SymTerminal, Terminal: term}}))
		return
	}
	n := len(term)
	if len(input) < n {
		if !bytes.Equal(input, term[:len(input)]) {
			return
		}
		remaining := term[len(input):]
		add(rest.Push(gstate.Frame{Symbol: grammar.Symbol{Kind: grammar.SymTerminal, Terminal: remaining}}))
		return
	}
	if !bytes.Equal(input[:n], term) {
		return
	}
	advance(g, vocab, rest, input[n:], add)
}

// containsMatchOfNonterminal reports whether some substring of input is
// exactly derivable from nonterminal n. n is guaranteed (by
// grammar.Build's nesting check) to be free of except symbols in its
// reachable closure, so this recursion always terminates.
func containsMatchOfNonterminal(g *grammar.Grammar, vocab *trie.Vocabulary, n grammar.NonterminalID, input []byte) bool {
	for i := range input {
		for j := i + 1; j <= len(input); j++ {
			if exactlyMatches(g, vocab, n, input[i:j]) {
				return true
			}
		}
	}
	return false
}

func exactlyMatches(g *grammar.Grammar, vocab *trie.Vocabulary, n grammar.NonterminalID, s []byte) bool {
	start := gstate.New(n)
	match := false
	advance(g, vocab, start, s, func(result gstate.Stack) {
		if result.Empty() {
			match = true
		}
	})
	return match
}
