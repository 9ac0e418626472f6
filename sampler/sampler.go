// Package sampler provides the Sampler façade: the per-conversation object
// a decoding loop actually drives, wrapping a grammar, a vocabulary, and
// the committed runtime state between them.
package sampler

import (
	"errors"

	"github.com/google/uuid"

	"github.com/jmorganca/gbnf/engine"
	"github.com/jmorganca/gbnf/grammar"
	"github.com/jmorganca/gbnf/gstate"
	"github.com/jmorganca/gbnf/logutil"
	"github.com/jmorganca/gbnf/trie"
)

// Sentinel errors returned by Sampler methods.
var (
	// ErrTokenRejected is returned by AcceptToken when the proposed token
	// cannot be derived from the current state (no live stack survives
	// its bytes); the sampler's state is left unchanged.
	ErrTokenRejected = errors.New("sampler: token rejected")
	// ErrSamplerTerminated is returned by AcceptToken when called after
	// the grammar has already been fully satisfied (every live stack is
	// empty): there is nothing left to match against.
	ErrSamplerTerminated = errors.New("sampler: already terminated")
)

// Sampler drives one grammar-constrained decoding session. A Sampler is
// not safe for concurrent use; the Grammar and Vocabulary it's built from
// are immutable and may be shared across many concurrently running
// Samplers.
type Sampler struct {
	id         uuid.UUID
	g          *grammar.Grammar
	vocab      *trie.Vocabulary
	enumerator *engine.Enumerator
	state      gstate.State
}

// New returns a Sampler for g over vocab, positioned at g's start
// nonterminal. enumerator may be shared across Samplers built from the
// same grammar and vocabulary to amortize enumeration work; pass nil to
// have New create a private one.
func New(g *grammar.Grammar, vocab *trie.Vocabulary, enumerator *engine.Enumerator) *Sampler {
	if enumerator == nil {
		enumerator = engine.NewEnumerator(g, vocab)
	}
	return &Sampler{
		id:         uuid.New(),
		g:          g,
		vocab:      vocab,
		enumerator: enumerator,
		state:      gstate.NewState(g),
	}
}

// ID returns the session identifier used to correlate this sampler's log
// lines.
func (s *Sampler) ID() uuid.UUID { return s.id }

// AllPossibleTokens returns the set of vocabulary token ids admissible as
// the next token given everything accepted so far.
func (s *Sampler) AllPossibleTokens() (*trie.TokenSet, error) {
	ts, err := s.enumerator.Enumerate(s.state)
	if err != nil {
		logutil.Trace("sampler: enumerate failed", "id", s.id, "error", err)
		return nil, err
	}
	return ts, nil
}

// AcceptToken commits the vocabulary token id against the current state.
// On success, the sampler's state advances. On ErrTokenRejected, the
// state is unchanged and the caller may try a different token.
func (s *Sampler) AcceptToken(id int32) error {
	if s.state.IsDone() {
		return ErrSamplerTerminated
	}
	tok := s.vocab.Bytes(id)
	next, result, err := engine.Feed(s.g, s.vocab, s.state, tok)
	if err != nil {
		return err
	}
	if result == engine.Invalid {
		logutil.Trace("sampler: token rejected", "id", s.id, "token", string(tok))
		return ErrTokenRejected
	}
	s.state = next
	logutil.Trace("sampler: token accepted", "id", s.id, "token", string(tok), "result", result.String())
	return nil
}

// IsTerminated reports whether every live derivation has been fully
// consumed: no further token can be accepted.
func (s *Sampler) IsTerminated() bool { return s.state.IsDone() }

// Reset returns the sampler to its initial state, as if newly created
// from New.
func (s *Sampler) Reset() { s.state = gstate.NewState(s.g) }
