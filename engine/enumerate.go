package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jmorganca/gbnf/gbnfconfig"
	"github.com/jmorganca/gbnf/grammar"
	"github.com/jmorganca/gbnf/gstate"
	"github.com/jmorganca/gbnf/trie"
)

// Enumerator computes the admissible-token set for a state, memoizing
// results keyed by the state's stack configuration so that repeated calls
// across Samplers sharing the same grammar and vocabulary (or repeated
// calls against a state reached by more than one path) don't redo the
// trie walk. An Enumerator is safe for concurrent use by multiple
// Samplers built over the same grammar and vocabulary.
type Enumerator struct {
	g     *grammar.Grammar
	vocab *trie.Vocabulary
	arena *gstate.Arena

	mu    sync.RWMutex
	cache map[string]*trie.TokenSet
	group singleflight.Group

	fanoutWarnOnce sync.Once
}

func NewEnumerator(g *grammar.Grammar, vocab *trie.Vocabulary) *Enumerator {
	return &Enumerator{
		g:     g,
		vocab: vocab,
		arena: gstate.NewArena(gbnfconfig.StackArenaCapacity),
		cache: make(map[string]*trie.TokenSet),
	}
}

// Enumerate returns the set of vocabulary token ids admissible as the next
// token from state. The returned TokenSet must not be mutated by the
// caller; Clone it first if a mutable copy is needed.
func (e *Enumerator) Enumerate(state gstate.State) (*trie.TokenSet, error) {
	key := stateKey(state)

	e.mu.RLock()
	ts, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return ts, nil
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		e.mu.RLock()
		ts, ok := e.cache[key]
		e.mu.RUnlock()
		if ok {
			return ts, nil
		}
		ts, err := e.enumerateUncached(state)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.cache[key] = ts
		e.mu.Unlock()
		return ts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*trie.TokenSet), nil
}

func stateKey(state gstate.State) string {
	stacks := state.Stacks()
	keys := make([]string, len(stacks))
	for i, s := range stacks {
		keys[i] = s.Key()
	}
	// Order-independent key: the stack set has no canonical order, so sort
	// via a simple insertion since the set is typically small.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	s := ""
	for _, k := range keys {
		s += k + "\x00"
	}
	return s
}

func (e *Enumerator) enumerateUncached(state gstate.State) (ts *trie.TokenSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			if iv, ok := r.(*ErrInvariantViolation); ok {
				err = iv
				return
			}
			panic(r)
		}
	}()
	ts = trie.NewTokenSet(e.vocab.Len())
	for _, s := range state.Stacks() {
		e.enumerateStack(s, ts)
	}
	return ts, nil
}

// enumerateStack marks, in ts, every vocabulary token admissible as the
// next token given a single candidate stack s.
func (e *Enumerator) enumerateStack(s gstate.Stack, ts *trie.TokenSet) {
	frame, rest, ok := s.Pop()
	if !ok {
		return // a fully derived stack offers nothing further
	}
	switch frame.Symbol.Kind {
	case grammar.SymNonterminal:
		// Each alternative's frames are built through the arena rather than
		// Stack.Push: enumerateStack never stores next anywhere but its own
		// call stack (only bits land in ts), so once the recursive call
		// below returns, every node built for this alternative is free to
		// recycle for the next one.
		for _, prod := range e.g.Productions[frame.Symbol.Nonterminal] {
			next := rest
			for i := len(prod) - 1; i >= 0; i-- {
				next = e.arena.Push(next, gstate.Frame{Symbol: prod[i]})
			}
			e.enumerateStack(next, ts)
			e.arena.ReleaseAbove(next, rest)
		}
	case grammar.SymTerminal:
		e.enumerateTerminal(frame.Symbol.Terminal, rest, ts)
	case grammar.SymAny:
		if fanoutCap := gbnfconfig.MaxAnyFanout; fanoutCap > 0 && e.vocab.Len() > fanoutCap {
			e.fanoutWarnOnce.Do(func() {
				slog.Warn("engine: <any!> fanout exceeds configured cap, enumerating in full anyway",
					"vocab_size", e.vocab.Len(), "cap", fanoutCap)
			})
		}
		for id := int32(0); id < int32(e.vocab.Len()); id++ {
			ts.Set(id)
		}
	case grammar.SymExceptLiteral:
		for id := int32(0); id < int32(e.vocab.Len()); id++ {
			if !e.vocab.Contains(id, frame.Symbol.Terminal) {
				ts.Set(id)
			}
		}
	case grammar.SymExceptNonterminal:
		for id := int32(0); id < int32(e.vocab.Len()); id++ {
			if !containsMatchOfNonterminal(e.g, e.vocab, frame.Symbol.Nonterminal, e.vocab.Bytes(id)) {
				ts.Set(id)
			}
		}
	default:
		panic(&ErrInvariantViolation{Detail: fmt.Sprintf("unhandled symbol kind %v", frame.Symbol.Kind)})
	}
}

// enumerateTerminal lists the tokens admissible against a pending
// terminal. Two disjoint families qualify:
//
//   - tokens that are a byte-prefix of term (the token ends inside or
//     exactly at the terminal's boundary). Among these only the longest
//     is listed; shorter proper prefixes are deliberately omitted even
//     when the vocabulary contains them.
//   - tokens that extend past term, covering it in full and spilling
//     their remaining bytes into whatever rest accepts next. Every such
//     token is listed: past the terminal's end the extensions diverge
//     into independent derivations, so no longest-match rule applies
//     among them (this is how several single-byte terminals in a row can
//     jointly be covered by one longer vocabulary token).
func (e *Enumerator) enumerateTerminal(term []byte, rest gstate.Stack, ts *trie.TokenSet) {
	trieIdx := e.vocab.Trie()
	if id, _, ok := trieIdx.LongestTokenAlong(trie.Root, term); ok {
		ts.Set(id)
	}

	node := trie.Root
	for _, b := range term {
		next, ok := trieIdx.Walk(node, b)
		if !ok {
			return // no vocabulary token reaches past this terminal
		}
		node = next
	}
	for _, entry := range trieIdx.Enumerate(node) {
		if acceptsPrefix(e.g, e.vocab, rest, entry.Suffix) {
			ts.Set(entry.ID)
		}
	}
}

// acceptsPrefix reports whether feeding suffix in full to rest produces at
// least one live stack (i.e. is not Invalid).
func acceptsPrefix(g *grammar.Grammar, vocab *trie.Vocabulary, rest gstate.Stack, suffix []byte) bool {
	found := false
	advance(g, vocab, rest, suffix, func(gstate.Stack) { found = true })
	return found
}
