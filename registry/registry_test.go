package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistryFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.gbnf"), []byte(`<start> ::= "hi" | "hello"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.vocab.json"), []byte(`["hi","hello","bye"]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.json"), []byte(`{
		"name": "greeting",
		"grammar_path": "greeting.gbnf",
		"vocabulary_path": "greeting.vocab.json",
		"start": "start"
	}`), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "farewell.gbnf"), []byte(`<start> ::= "bye"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "farewell.vocab.json"), []byte(`["bye"]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "farewell.json"), []byte(`{
		"grammar_path": "farewell.gbnf",
		"vocabulary_path": "farewell.vocab.json"
	}`), 0o644))

	return dir
}

func TestRegistryLoadAndNames(t *testing.T) {
	dir := writeRegistryFixture(t)
	reg, err := Load(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"greeting", "farewell"}, reg.Names())
}

func TestRegistryEntryDefaultsNameAndStart(t *testing.T) {
	dir := writeRegistryFixture(t)
	reg, err := Load(dir)
	require.NoError(t, err)

	entry, ok := reg.Entry("farewell")
	require.True(t, ok)
	assert.Equal(t, "farewell", entry.Name) // derived from filename, absent in the descriptor
	assert.Equal(t, "start", entry.Start)   // defaulted
}

func TestRegistryNewSamplerDrivesGrammar(t *testing.T) {
	dir := writeRegistryFixture(t)
	reg, err := Load(dir)
	require.NoError(t, err)

	s, err := reg.NewSampler("greeting")
	require.NoError(t, err)

	ts, err := s.AllPossibleTokens()
	require.NoError(t, err)
	assert.Equal(t, 2, ts.Count()) // "hi" and "hello", not "bye"
}

func TestRegistryNewSamplerUnknownName(t *testing.T) {
	dir := writeRegistryFixture(t)
	reg, err := Load(dir)
	require.NoError(t, err)

	_, err = reg.NewSampler("nonexistent")
	assert.Error(t, err)
}

func TestRegistryLoadRejectsBadGrammar(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.gbnf"), []byte(`<start> ::= <undefined>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.vocab.json"), []byte(`["a"]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{
		"grammar_path": "bad.gbnf",
		"vocabulary_path": "bad.vocab.json"
	}`), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}
