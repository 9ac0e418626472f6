// Package vocab loads a tokenizer vocabulary from disk into the indexed
// form the matching engine walks.
package vocab

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jmorganca/gbnf/trie"
)

// Load reads a vocabulary from r, a JSON array of token strings ordered by
// token id (token id == array index), and builds the trie over it.
func Load(r io.Reader) (*trie.Vocabulary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("vocab: read: %w", err)
	}
	var strs []string
	if err := json.Unmarshal(data, &strs); err != nil {
		return nil, fmt.Errorf("vocab: decode: %w", err)
	}
	toks := make([][]byte, len(strs))
	for i, s := range strs {
		toks[i] = []byte(s)
	}
	return trie.Build(toks)
}

// LoadFile opens path and loads a vocabulary from it.
func LoadFile(path string) (*trie.Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()
	return Load(f)
}
