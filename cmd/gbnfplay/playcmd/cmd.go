// Package playcmd implements the gbnfplay CLI: cobra subcommands layered
// over the sampler package, each a small RunE closing over whatever state
// it needs.
package playcmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmorganca/gbnf/grammar"
	"github.com/jmorganca/gbnf/logutil"
	"github.com/jmorganca/gbnf/registry"
	"github.com/jmorganca/gbnf/sampler"
	"github.com/jmorganca/gbnf/trie"
	"github.com/jmorganca/gbnf/vocab"
)

// NewCLI builds the gbnfplay root command.
func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gbnfplay",
		Short: "Interactive playground for grammar-constrained decoding",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
			logutil.Setup(os.Stderr)
		},
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newRegistryCmd())
	return rootCmd
}

func buildSampler(grammarPath, vocabPath, start string) (*sampler.Sampler, *trie.Vocabulary, error) {
	spinner, _ := pterm.DefaultSpinner.Start("loading grammar and vocabulary")

	src, err := os.ReadFile(grammarPath)
	if err != nil {
		spinner.Fail(err.Error())
		return nil, nil, err
	}
	ast, err := grammar.Parse(string(src))
	if err != nil {
		spinner.Fail(err.Error())
		return nil, nil, err
	}
	g, err := grammar.Build(ast, start)
	if err != nil {
		spinner.Fail(err.Error())
		return nil, nil, err
	}

	v, err := vocab.LoadFile(vocabPath)
	if err != nil {
		spinner.Fail(err.Error())
		return nil, nil, err
	}

	spinner.Success(fmt.Sprintf("built grammar (start <%s>) over a %d-token vocabulary", start, v.Len()))
	return sampler.New(g, v, nil), v, nil
}

func newRunCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "run <grammar-file> <vocab-file>",
		Short: "Step through decoding interactively, one vocabulary token per line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, v, err := buildSampler(args[0], args[1], start)
			if err != nil {
				return err
			}
			return runInteractive(cmd, s, v)
		},
	}
	cmd.Flags().StringVar(&start, "start", "start", "name of the grammar's start nonterminal")
	return cmd
}

// runInteractive reads one vocabulary token per line from stdin, feeds it
// to the sampler, and reports the outcome plus a preview of the next
// admissible set. A line of "id:N" accepts the token by numeric id
// instead of by text, for vocabularies with non-printable tokens. When
// stdin is not a terminal (tokens piped in), the per-step previews are
// skipped and only the final admissible set is printed.
func runInteractive(cmd *cobra.Command, s *sampler.Sampler, v *trie.Vocabulary) error {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		printAdmissible(cmd, s, v)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := scanner.Text()
		id, ok := resolveToken(v, line)
		if !ok {
			pterm.Error.Printfln("no such vocabulary token: %q", line)
			continue
		}
		if err := s.AcceptToken(id); err != nil {
			pterm.Error.Printfln("rejected %q: %v", line, err)
			continue
		}
		pterm.Success.Printfln("accepted %q", line)
		if s.IsTerminated() {
			pterm.Info.Println("sampler terminated: grammar fully satisfied")
			return nil
		}
		if interactive {
			printAdmissible(cmd, s, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if !interactive {
		printAdmissible(cmd, s, v)
	}
	return nil
}

func resolveToken(v *trie.Vocabulary, line string) (int32, bool) {
	if id, ok := strings.CutPrefix(line, "id:"); ok {
		var n int32
		if _, err := fmt.Sscanf(id, "%d", &n); err != nil || n < 0 || int(n) >= v.Len() {
			return 0, false
		}
		return n, true
	}
	for id := int32(0); id < int32(v.Len()); id++ {
		if string(v.Bytes(id)) == line {
			return id, true
		}
	}
	return 0, false
}

func printAdmissible(cmd *cobra.Command, s *sampler.Sampler, v *trie.Vocabulary) {
	ts, err := s.AllPossibleTokens()
	if err != nil {
		pterm.Error.Printfln("enumeration failed: %v", err)
		return
	}

	const preview = 20
	ids := ts.Slice()
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"ID", "TOKEN"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	for _, id := range ids[:min(len(ids), preview)] {
		table.Append([]string{fmt.Sprintf("%d", id), fmt.Sprintf("%q", v.Bytes(id))})
	}
	table.Render()
	if len(ids) > preview {
		pterm.Info.Printfln("... and %d more (%d admissible total)", len(ids)-preview, len(ids))
	} else {
		pterm.Info.Printfln("%d admissible", len(ids))
	}
}

func newCheckCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "check <grammar-file> <vocab-file> <token>...",
		Short: "Feed a fixed sequence of tokens non-interactively and report the outcome",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, v, err := buildSampler(args[0], args[1], start)
			if err != nil {
				return err
			}
			for _, tok := range args[2:] {
				id, ok := resolveToken(v, tok)
				if !ok {
					return fmt.Errorf("no such vocabulary token: %q", tok)
				}
				if err := s.AcceptToken(id); err != nil {
					return fmt.Errorf("rejected %q: %w", tok, err)
				}
				pterm.Success.Printfln("accepted %q", tok)
			}
			if s.IsTerminated() {
				pterm.Info.Println("sampler terminated: grammar fully satisfied")
			} else {
				printAdmissible(cmd, s, v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "start", "name of the grammar's start nonterminal")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <json-schema-file>",
		Short: "Compile a JSON Schema document into grammar source text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out, err := grammar.FromSchema(nil, schema)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry <directory>",
		Short: "List the named grammars described by *.json descriptors in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(args[0])
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"NAME", "START", "GRAMMAR", "VOCABULARY"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetBorder(false)
			table.SetHeaderLine(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			for _, name := range reg.Names() {
				entry, _ := reg.Entry(name)
				table.Append([]string{entry.Name, entry.Start, entry.GrammarPath, entry.VocabularyPath})
			}
			table.Render()
			return nil
		},
	}
	return cmd
}
