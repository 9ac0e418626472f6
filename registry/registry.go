// Package registry loads a directory of named grammar/vocabulary
// descriptors so a host juggling several schemas (one per API route, one
// per tool call, ...) can load them by name instead of wiring file paths
// by hand. It is a convenience layer on top of grammar.Parse, grammar.Build
// and vocab.LoadFile, not a new capability.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emirpasic/gods/v2/lists/arraylist"
	"github.com/mitchellh/mapstructure"

	"github.com/jmorganca/gbnf/grammar"
	"github.com/jmorganca/gbnf/sampler"
	"github.com/jmorganca/gbnf/trie"
	"github.com/jmorganca/gbnf/vocab"
)

// Entry describes one named grammar/vocabulary pairing, decoded from an
// arbitrary map[string]any so hosts can keep their descriptors in
// whatever format (YAML, TOML, JSON) they already parse into a generic
// map; this package only cares about the resulting fields.
type Entry struct {
	Name           string `mapstructure:"name"`
	GrammarPath    string `mapstructure:"grammar_path"`
	VocabularyPath string `mapstructure:"vocabulary_path"`
	Start          string `mapstructure:"start"`
}

// Registry holds every descriptor loaded from a directory, plus the built
// grammar and vocabulary for each, keyed by name. names preserves
// insertion order (directory entries are visited in lexical filename
// order) so callers that list registered grammars get a stable, readable
// ordering instead of Go's randomized map iteration.
type Registry struct {
	entries map[string]*built
	names   *arraylist.List[string]
}

type built struct {
	entry Entry
	gram  *grammar.Grammar
	vocab *trie.Vocabulary
}

// Load reads every *.json descriptor file in dir (skipping *.vocab.json
// vocabulary files kept beside them), decodes it into an Entry, and
// eagerly builds the grammar and vocabulary it names. A
// descriptor that fails to decode or build is a fatal error for the whole
// Load call: a registry is either fully usable or not returned at all,
// mirroring the "grammar is not usable" propagation policy for
// grammar.BuildError.
func Load(dir string) (*Registry, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("registry: glob %s: %w", dir, err)
	}
	sort.Strings(matches)

	r := &Registry{
		entries: make(map[string]*built, len(matches)),
		names:   arraylist.New[string](),
	}
	for _, path := range matches {
		if strings.HasSuffix(path, ".vocab.json") {
			continue
		}
		if err := r.loadOne(dir, path); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) loadOne(dir, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("registry: %s: %w", path, err)
	}

	var entry Entry
	if err := mapstructure.Decode(raw, &entry); err != nil {
		return fmt.Errorf("registry: %s: %w", path, err)
	}
	if entry.Name == "" {
		entry.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if _, dup := r.entries[entry.Name]; dup {
		return fmt.Errorf("registry: %s: duplicate grammar name %q", path, entry.Name)
	}
	if entry.Start == "" {
		entry.Start = "start"
	}

	grammarSrc, err := os.ReadFile(resolve(dir, entry.GrammarPath))
	if err != nil {
		return fmt.Errorf("registry: %s: grammar: %w", entry.Name, err)
	}
	ast, err := grammar.Parse(string(grammarSrc))
	if err != nil {
		return fmt.Errorf("registry: %s: %w", entry.Name, err)
	}
	gram, err := grammar.Build(ast, entry.Start)
	if err != nil {
		return fmt.Errorf("registry: %s: %w", entry.Name, err)
	}

	v, err := vocab.LoadFile(resolve(dir, entry.VocabularyPath))
	if err != nil {
		return fmt.Errorf("registry: %s: vocabulary: %w", entry.Name, err)
	}

	r.entries[entry.Name] = &built{entry: entry, gram: gram, vocab: v}
	r.names.Add(entry.Name)
	return nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Names returns every registered grammar name in the stable order they
// were loaded.
func (r *Registry) Names() []string {
	out := make([]string, 0, r.names.Size())
	r.names.Each(func(_ int, name string) {
		out = append(out, name)
	})
	return out
}

// Entry returns the descriptor a name was loaded from.
func (r *Registry) Entry(name string) (Entry, bool) {
	b, ok := r.entries[name]
	if !ok {
		return Entry{}, false
	}
	return b.entry, true
}

// NewSampler returns a fresh Sampler for the named grammar. Every call
// gets an independent Sampler over the same shared, immutable Grammar and
// Vocabulary; nothing about the registry's internal state is mutated.
func (r *Registry) NewSampler(name string) (*sampler.Sampler, error) {
	b, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("registry: no such grammar %q", name)
	}
	return sampler.New(b.gram, b.vocab, nil), nil
}
