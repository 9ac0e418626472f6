package grammar

// Build normalizes parsed grammar source into a Grammar IR: it interns
// nonterminal names, fuses consecutive terminal symbols within a
// production, rejects left recursion and illegally nested except!([n])
// forms, and picks start as the grammar's start symbol.
//
// start must name a rule defined in ast; this lets callers parse a library
// of rules once and instantiate several grammars (one per start symbol)
// from it.
func Build(ast *astGrammar, start string) (*Grammar, error) {
	g := &Grammar{
		Productions: make(map[NonterminalID][]Production),
		Names:       make(map[NonterminalID]string),
		ids:         make(map[string]NonterminalID),
	}

	// Pass 1: intern every rule name so forward references resolve.
	var next NonterminalID = 1
	for _, rule := range ast.rules {
		if _, ok := g.ids[rule.name]; ok {
			continue // redefinition: later productions appended below
		}
		g.ids[rule.name] = next
		g.Names[next] = rule.name
		next++
	}

	intern := func(name string, line int) (NonterminalID, error) {
		id, ok := g.ids[name]
		if !ok {
			return 0, &BuildError{Err: ErrUndefinedNonterminal, Rule: name, Line: line}
		}
		return id, nil
	}

	// Pass 2: translate each production's symbols, fusing adjacent
	// terminals and resolving nonterminal references to ids.
	for _, rule := range ast.rules {
		id := g.ids[rule.name]
		for _, aprod := range rule.prods {
			prod, err := buildProduction(aprod, intern)
			if err != nil {
				if be, ok := err.(*BuildError); ok && be.Rule == "" {
					be.Rule = rule.name
				}
				return nil, err
			}
			g.Productions[id] = append(g.Productions[id], prod)
		}
	}

	startID, ok := g.ids[start]
	if !ok {
		return nil, &BuildError{Err: ErrNoStart, Rule: start}
	}
	g.Start = startID

	if err := checkLeftRecursion(g); err != nil {
		return nil, err
	}
	if err := checkExceptNesting(g); err != nil {
		return nil, err
	}
	return g, nil
}

func buildProduction(aprod astProduction, intern func(string, int) (NonterminalID, error)) (Production, error) {
	var prod Production
	for _, asym := range aprod {
		switch asym.kind {
		case astTerminal:
			if len(prod) > 0 && prod[len(prod)-1].Kind == SymTerminal {
				prod[len(prod)-1].Terminal = append(prod[len(prod)-1].Terminal, asym.text...)
				continue
			}
			prod = append(prod, Symbol{Kind: SymTerminal, Terminal: asym.text})
		case astAny:
			prod = append(prod, Symbol{Kind: SymAny})
		case astExceptLiteral:
			prod = append(prod, Symbol{Kind: SymExceptLiteral, Terminal: asym.text})
		case astNonterminal:
			id, err := intern(asym.name, asym.line)
			if err != nil {
				return nil, err
			}
			prod = append(prod, Symbol{Kind: SymNonterminal, Nonterminal: id})
		case astExceptNonterminal:
			id, err := intern(asym.name, asym.line)
			if err != nil {
				return nil, err
			}
			prod = append(prod, Symbol{Kind: SymExceptNonterminal, Nonterminal: id})
		}
	}
	return prod, nil
}

// checkLeftRecursion computes the left-corner relation (n -> first symbol
// of each of n's productions, when that symbol is itself a nonterminal) and
// fails if any nonterminal is in its own left-corner closure.
func checkLeftRecursion(g *Grammar) error {
	for n := range g.Productions {
		seen := map[NonterminalID]bool{}
		stack := []NonterminalID{n}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, prod := range g.Productions[cur] {
				if len(prod) == 0 {
					continue
				}
				first := prod[0]
				if first.Kind != SymNonterminal {
					continue
				}
				if first.Nonterminal == n {
					return &BuildError{Err: ErrLeftRecursion, Rule: g.NameOf(n)}
				}
				if !seen[first.Nonterminal] {
					seen[first.Nonterminal] = true
					stack = append(stack, first.Nonterminal)
				}
			}
		}
	}
	return nil
}

// checkExceptNesting rejects any except!([n]) whose n's reachable closure
// itself contains an except nonterminal (literal or nested).
func checkExceptNesting(g *Grammar) error {
	for _, prods := range g.Productions {
		for _, prod := range prods {
			for _, sym := range prod {
				if sym.Kind != SymExceptNonterminal {
					continue
				}
				for reached := range g.reachable(sym.Nonterminal) {
					for _, p := range g.Productions[reached] {
						for _, s := range p {
							if s.Kind == SymExceptLiteral || s.Kind == SymExceptNonterminal {
								return &BuildError{Err: ErrNestedExcept, Rule: g.NameOf(sym.Nonterminal)}
							}
						}
					}
				}
			}
		}
	}
	return nil
}
