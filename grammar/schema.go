package grammar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"

	"github.com/jmorganca/gbnf/grammar/jsonschema"
)

// jsonTerms seeds every schema-derived grammar with the handful of JSON
// value rules a schema can bottom out in (an unconstrained string, number,
// and so on) plus a fallback <value> that accepts any JSON value. Rules
// reference each other with <angle> brackets, matching the surface syntax
// Parse accepts.
//
// This dialect has no grouping, no "*"/"+"/"?" repetition operators, and no
// epsilon production (see grammar.ErrEmptyAlternative), unlike llama.cpp's
// GBNF dialect. Every "zero or more" / "optional" shape below is therefore
// expanded by hand into right-recursive rules and enumerated
// presence/absence alternatives instead of written with EBNF operators.
const jsonTerms = `
<null>      ::= "null"
<object>    ::= "{" "}" | "{" <kvlist> "}"
<kvlist>    ::= <kv> | <kv> "," <kvlist>
<kv>        ::= <string> ":" <value>
<array>     ::= "[" "]" | "[" <valuelist> "]"
<valuelist> ::= <value> | <value> "," <valuelist>
<integer>   ::= "0" | <nonzero> | <nonzero> <digits>
<digits>    ::= <digit> | <digit> <digits>
<number>    ::= <integer>
              | <integer> <frac>
              | <integer> <exp>
              | <integer> <frac> <exp>
              | "-" <integer>
              | "-" <integer> <frac>
              | "-" <integer> <exp>
              | "-" <integer> <frac> <exp>
<frac>      ::= "." <digits>
<exp>       ::= "e" <digits> | "e" "+" <digits> | "e" "-" <digits>
              | "E" <digits> | "E" "+" <digits> | "E" "-" <digits>
<string>    ::= "\"" "\"" | "\"" <chars> "\""
<chars>     ::= <char> | <char> <chars>
<char>      ::= <any!>
<hex>       ::= <digit> | "a" | "b" | "c" | "d" | "e" | "f" | "A" | "B" | "C" | "D" | "E" | "F"
<digit>     ::= "0" | <nonzero>
<nonzero>   ::= "1" | "2" | "3" | "4" | "5" | "6" | "7" | "8" | "9"
<boolean>   ::= "true" | "false"
<value>     ::= <object> | <array> | <string> | <number> | <boolean> | "null"

`

// FromSchema generates a grammar from a JSON schema.
func FromSchema(buf []byte, jsonSchema []byte) ([]byte, error) {
	var s *jsonschema.Schema
	if err := json.Unmarshal(jsonSchema, &s); err != nil {
		return nil, err
	}

	var g builder

	// "root" is the only rule that is guaranteed to exist, so we start
	// with its length for padding, and then adjust it as we go.
	g.pad = len("root")
	for id := range dependencies("root", s) {
		g.pad = max(g.pad, len(id))
	}

	g.b.WriteString(jsonTerms)

	ids := make(map[*jsonschema.Schema]string)
	for id, s := range dependencies("root", s) {
		ids[s] = id
		if err := emitSchema(&g, ids, id, s); err != nil {
			return nil, err
		}
	}
	if err := emitSchema(&g, ids, "root", s); err != nil {
		return nil, err
	}
	g.define("") // finalize the last rule
	return g.b.Bytes(), nil
}

// emitSchema defines id's rule (and, for an open-ended array, the
// right-recursive list helper its trailing repetition needs) and fills it
// in from s. It exists alongside fromSchema because an open array is the
// one schema shape that needs more than one rule of its own: this dialect
// has no "*" operator, so "zero or more trailing items" has to be spelled
// out as its own named, right-recursive rule instead of an inline group.
func emitSchema(g *builder, ids map[*jsonschema.Schema]string, id string, s *jsonschema.Schema) error {
	if s.EffectiveType() == "array" && s.Items != nil {
		listID := id + "_list"
		itemID := ids[s.Items]
		g.define(listID)
		g.u(itemID)
		g.alt()
		g.u(itemID)
		g.q(",")
		g.u(listID)

		g.define(id)
		g.q("[")
		for i, p := range s.PrefixItems {
			if i > 0 {
				g.q(",")
			}
			g.u(ids[p])
		}
		g.q("]")
		g.alt()
		g.q("[")
		for i, p := range s.PrefixItems {
			if i > 0 {
				g.q(",")
			}
			g.u(ids[p])
		}
		if len(s.PrefixItems) > 0 {
			g.q(",")
		}
		g.u(listID)
		g.q("]")
		return nil
	}

	g.define(id)
	return fromSchema(g, ids, s)
}

func fromSchema(g *builder, ids map[*jsonschema.Schema]string, s *jsonschema.Schema) error {
	switch typ := s.EffectiveType(); typ {
	case "array":
		// The s.Items != nil case is handled by emitSchema, which needs to
		// define an extra list-helper rule alongside this one; only the
		// fully-unconstrained and closed-tuple shapes reach here.
		if len(s.PrefixItems) == 0 {
			g.u("array")
		} else {
			g.q("[")
			for i, p := range s.PrefixItems {
				if i > 0 {
					g.q(",")
				}
				g.u(ids[p])
			}
			g.q("]")
		}
	case "object":
		if len(s.Properties) == 0 {
			g.u("object")
		} else {
			g.q("{")
			for i, p := range s.Properties {
				name := ids[p]
				if i > 0 {
					g.q(",")
				}
				g.q(p.Name)
				g.q(":")
				g.u(name)
			}
			g.q("}")
		}
	case "number":
		buildConstrainedNumber(g, s)
	case "string":
		if len(s.Enum) == 0 {
			g.u("string")
		} else {
			for i, e := range s.Enum {
				if i > 0 {
					g.alt()
				}
				g.q(string(e))
			}
		}
	case "boolean", "value", "null", "integer":
		g.u(typ)
	default:
		return fmt.Errorf("%s: unsupported type %q", s.Name, typ)
	}
	return nil
}

// dependencies returns a sequence of all child dependencies of the schema in
// post-order.
//
// The first value is the id/pointer to the dependency, and the second value
// is the schema.
func dependencies(id string, s *jsonschema.Schema) iter.Seq2[string, *jsonschema.Schema] {
	return func(yield func(string, *jsonschema.Schema) bool) {
		for i, p := range s.Properties {
			id := fmt.Sprintf("%s_%d", id, i)
			for did, d := range dependencies(id, p) {
				if !yield(did, d) {
					return
				}
			}
			if !yield(id, p) {
				return
			}
		}
		for i, p := range s.PrefixItems {
			id := fmt.Sprintf("tuple_%d", i)
			for did, d := range dependencies(id, p) {
				id := fmt.Sprintf("%s_%s", id, did)
				if !yield(id, d) {
					return
				}
			}
			if !yield(id, p) {
				return
			}
		}
		if s.Items != nil {
			id := fmt.Sprintf("%s_tuple_%d", id, len(s.PrefixItems))
			for did, d := range dependencies(id, s.Items) {
				if !yield(did, d) {
					return
				}
			}
			if !yield(id, s.Items) {
				return
			}
		}
	}
}

type builder struct {
	b     bytes.Buffer
	pad   int
	rules int
	items int
}

// define terminates the current rule, if any, and then either starts a new
// rule or does nothing else if the name is empty.
func (b *builder) define(name string) {
	if b.rules > 0 {
		b.b.WriteString("\n")
	}
	if name == "" {
		return
	}
	// Pad outside the closing bracket: whitespace inside <...> would
	// become part of the nonterminal's name when parsed back.
	fmt.Fprintf(&b.b, "%-*s", b.pad+2, "<"+name+">")
	b.b.WriteString(" ::=")
	b.rules++
	b.items = 0
}

// alt starts a new alternative of the rule currently being built, emitting
// a "|" the way define emits " ::=" for the first one. This dialect has no
// inline grouping or repetition operators (see jsonTerms), so a schema node
// with more than one admissible literal (e.g. an enum) can only be
// expressed as several whole "|"-joined productions of the same rule,
// never as a parenthesized group nested inside one production.
func (b *builder) alt() {
	b.b.WriteString("\n")
	fmt.Fprintf(&b.b, "%*s|", b.pad+2, "")
	b.items = 0
}

// quote appends a terminal to the current rule.
func (b *builder) q(s string) {
	if b.items > 0 {
		b.b.WriteString(" ")
	}
	b.b.WriteString(" ")
	b.b.WriteString(strconv.Quote(s))
	b.items++
}

// u appends a non-terminal to the current rule.
func (b *builder) u(s string) {
	if b.items > 0 {
		b.b.WriteString(" ")
	}
	b.b.WriteString(" <")
	b.b.WriteString(s)
	b.b.WriteString(">")
	b.items++
}

// buildConstrainedNumber emits a reference to the unconstrained <number>
// rule. Minimum/Maximum bounds aren't enforceable at the token-matching
// level this grammar operates at (they're arithmetic properties of the
// decoded value, not its byte shape), so they're accepted by the schema
// decoder but not reflected in the emitted grammar.
func buildConstrainedNumber(b *builder, s *jsonschema.Schema) {
	b.u("number")
}
