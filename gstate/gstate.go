// Package gstate holds the runtime stack state the matching engine
// advances as it consumes token bytes: an ordered sequence of pending
// grammar frames, represented so that cloning a state for backtracking or
// speculative exploration is O(1).
package gstate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jmorganca/gbnf/grammar"
)

// Frame is one pending element of a stack: a grammar symbol still waiting
// to be matched. For a partially consumed terminal, Symbol.Terminal holds
// only the unconsumed suffix already narrowed down by prior bytes.
type Frame struct {
	Symbol grammar.Symbol
}

// node is one link of a persistent (structurally shared) stack. Pushing
// never mutates an existing node, so two stacks can share a common tail at
// no cost, and cloning a Stack is copying a single pointer.
type node struct {
	frame Frame
	next  *node
	depth int
}

// Stack is an immutable LIFO sequence of frames. The zero value is the
// empty stack.
type Stack struct {
	top *node
}

// Push returns a new stack with frame on top; the receiver is unchanged.
func (s Stack) Push(f Frame) Stack {
	d := 0
	if s.top != nil {
		d = s.top.depth + 1
	}
	return Stack{top: &node{frame: f, next: s.top, depth: d}}
}

// Pop returns the top frame, the stack beneath it, and whether the stack
// was non-empty.
func (s Stack) Pop() (Frame, Stack, bool) {
	if s.top == nil {
		return Frame{}, s, false
	}
	return s.top.frame, Stack{top: s.top.next}, true
}

// Peek returns the top frame without removing it.
func (s Stack) Peek() (Frame, bool) {
	if s.top == nil {
		return Frame{}, false
	}
	return s.top.frame, true
}

// Empty reports whether the stack has no pending frames, i.e. the grammar
// it represents has been fully derived.
func (s Stack) Empty() bool { return s.top == nil }

// Depth returns the number of frames on the stack.
func (s Stack) Depth() int {
	if s.top == nil {
		return 0
	}
	return s.top.depth + 1
}

// Key returns a canonical string encoding of the stack's content, suitable
// for use as a map key when deduplicating structurally identical stacks
// produced along different derivation paths.
func (s Stack) Key() string {
	var b strings.Builder
	for n := s.top; n != nil; n = n.next {
		sym := n.frame.Symbol
		fmt.Fprintf(&b, "%d:", sym.Kind)
		switch sym.Kind {
		case grammar.SymTerminal, grammar.SymExceptLiteral:
			fmt.Fprintf(&b, "%q", sym.Terminal)
		case grammar.SymNonterminal, grammar.SymExceptNonterminal:
			fmt.Fprintf(&b, "%d", sym.Nonterminal)
		}
		b.WriteByte('|')
	}
	return b.String()
}

// Arena is a pool of stack-frame nodes for speculative, single-call
// construction: code that builds a chain of frames through an Arena and
// never lets it escape past the call that built it can release the chain
// back to the pool instead of abandoning it to the garbage collector.
// This is only safe for chains that are never retained (unlike a committed
// Feed result): see gstate.(*Arena).ReleaseAbove.
type Arena struct {
	pool sync.Pool
}

// NewArena returns an Arena, optionally prewarmed with capacityHint free
// nodes so the first speculative call doesn't pay allocation cost under
// load. capacityHint of 0 leaves the pool to grow on demand.
func NewArena(capacityHint int) *Arena {
	a := &Arena{}
	for i := 0; i < capacityHint; i++ {
		a.pool.Put(&node{})
	}
	return a
}

// Push returns a new stack with frame on top, drawing the backing node
// from the arena's pool instead of allocating. Semantically identical to
// Stack.Push.
func (a *Arena) Push(s Stack, f Frame) Stack {
	n, _ := a.pool.Get().(*node)
	if n == nil {
		n = &node{}
	}
	d := 0
	if s.top != nil {
		d = s.top.depth + 1
	}
	n.frame = f
	n.next = s.top
	n.depth = d
	return Stack{top: n}
}

// ReleaseAbove returns to the arena every node of s above base (exclusive
// of base.top), i.e. the frames pushed onto base to produce s. The
// caller must guarantee no other live Stack still references those
// nodes; it is only safe for a chain built through this Arena's Push and
// never stored anywhere but the local recursion that built it (this is
// how the token Enumerator uses it: enumeration only extracts bits into a
// TokenSet, never retains the stacks it walks).
func (a *Arena) ReleaseAbove(s Stack, base Stack) {
	n := s.top
	for n != nil && n != base.top {
		next := n.next
		n.next = nil
		a.pool.Put(n)
		n = next
	}
}

// New returns a stack holding only start.
func New(start grammar.NonterminalID) Stack {
	return Stack{}.Push(Frame{Symbol: grammar.Symbol{Kind: grammar.SymNonterminal, Nonterminal: start}})
}

// State is the set of live stack configurations a Sampler currently
// entertains. A grammar with alternation or recursion can be genuinely
// ambiguous about how much of the input a given nonterminal has consumed;
// State tracks every derivation that remains consistent with the bytes
// fed so far as a set of candidate stacks rather than a single one.
type State struct {
	stacks map[string]Stack
}

// NewState returns the initial state of a grammar: a single stack holding
// its start nonterminal.
func NewState(g *grammar.Grammar) State {
	s := New(g.Start)
	return State{stacks: map[string]Stack{s.Key(): s}}
}

// FromStacks builds a State from an explicit, already-deduplicated set of
// stacks. It's used by the engine to assemble the result of advancing a
// prior State.
func FromStacks(stacks []Stack) State {
	m := make(map[string]Stack, len(stacks))
	for _, s := range stacks {
		m[s.Key()] = s
	}
	return State{stacks: m}
}

// Stacks returns the live candidate stacks, in no particular order.
func (st State) Stacks() []Stack {
	out := make([]Stack, 0, len(st.stacks))
	for _, s := range st.stacks {
		out = append(out, s)
	}
	return out
}

// Len reports the number of live candidate stacks.
func (st State) Len() int { return len(st.stacks) }

// IsDone reports whether every live candidate stack is empty, i.e. no
// further bytes can be consumed by any remaining derivation and the
// grammar is fully satisfied.
func (st State) IsDone() bool {
	if len(st.stacks) == 0 {
		return false
	}
	for _, s := range st.stacks {
		if !s.Empty() {
			return false
		}
	}
	return true
}

// CanContinue reports whether at least one live candidate stack is
// non-empty, i.e. more tokens could still be validly accepted.
func (st State) CanContinue() bool {
	for _, s := range st.stacks {
		if !s.Empty() {
			return true
		}
	}
	return false
}
