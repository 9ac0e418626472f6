// Package grammar holds the in-memory representation of a BNF grammar
// constrained-decoding uses, the text parser that produces it, and the JSON
// Schema compiler that emits grammar text as a convenience front end.
package grammar

import "fmt"

// SymbolKind discriminates the forms a grammar symbol can take.
type SymbolKind int

const (
	// SymTerminal matches a fixed, already-fused byte string.
	SymTerminal SymbolKind = iota
	// SymNonterminal expands to one of its productions.
	SymNonterminal
	// SymAny matches an entire vocabulary token, any one of them.
	SymAny
	// SymExceptLiteral matches an entire vocabulary token whose bytes do
	// not contain a given literal anywhere.
	SymExceptLiteral
	// SymExceptNonterminal matches an entire vocabulary token whose bytes
	// do not contain, anywhere, any string the named nonterminal derives.
	SymExceptNonterminal
)

func (k SymbolKind) String() string {
	switch k {
	case SymTerminal:
		return "terminal"
	case SymNonterminal:
		return "nonterminal"
	case SymAny:
		return "any"
	case SymExceptLiteral:
		return "except-literal"
	case SymExceptNonterminal:
		return "except-nonterminal"
	default:
		return "unknown"
	}
}

// NonterminalID is an interned handle to a nonterminal name. The zero value
// is never assigned to a real nonterminal.
type NonterminalID int32

// Symbol is one element of a production. Its meaning is determined by Kind;
// only the fields relevant to that kind are populated.
type Symbol struct {
	Kind        SymbolKind
	Terminal    []byte        // SymTerminal, SymExceptLiteral: the literal bytes
	Nonterminal NonterminalID // SymNonterminal, SymExceptNonterminal: the referenced rule
}

// Production is one alternative of a nonterminal: a sequence of symbols
// matched left to right.
type Production []Symbol

// Grammar is the normalized, immutable grammar IR. It is safe for
// concurrent read-only use by many Samplers at once.
type Grammar struct {
	Start       NonterminalID
	Productions map[NonterminalID][]Production
	Names       map[NonterminalID]string
	ids         map[string]NonterminalID
}

// NameOf returns the source-level name of a nonterminal, for diagnostics.
func (g *Grammar) NameOf(id NonterminalID) string {
	if n, ok := g.Names[id]; ok {
		return n
	}
	return fmt.Sprintf("nonterminal#%d", id)
}

// Lookup returns the id interned for name, if any.
func (g *Grammar) Lookup(name string) (NonterminalID, bool) {
	id, ok := g.ids[name]
	return id, ok
}

// reachable computes the set of nonterminals reachable from the given
// nonterminal, by any symbol that names a nonterminal (plain or except).
func (g *Grammar) reachable(start NonterminalID) map[NonterminalID]bool {
	seen := map[NonterminalID]bool{start: true}
	stack := []NonterminalID{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, prod := range g.Productions[n] {
			for _, sym := range prod {
				var ref NonterminalID
				switch sym.Kind {
				case SymNonterminal, SymExceptNonterminal:
					ref = sym.Nonterminal
				default:
					continue
				}
				if !seen[ref] {
					seen[ref] = true
					stack = append(stack, ref)
				}
			}
		}
	}
	return seen
}
