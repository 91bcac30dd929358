package state

// SetAlias and Unalias are ShellState's half of alias handling; the
// other half is AliasView, which adapts the alias table to pkg/parser's
// AliasLookup interface. A separate type is needed because
// AliasLookup's Lookup(name string) (string, bool) has the exact same
// shape as Env's variable Lookup — ShellState itself implements the
// latter, so aliases need their own small view type to avoid a single
// method doing double duty for two different tables.
func (s *ShellState) SetAlias(name, value string) {
	s.aliases[name] = value
}

func (s *ShellState) Unalias(name string) {
	delete(s.aliases, name)
}

// AliasView satisfies pkg/parser.AliasLookup without pkg/state
// importing pkg/parser — the interface is small enough to implement
// structurally.
type AliasView struct{ state *ShellState }

func (s *ShellState) Aliases() AliasView { return AliasView{state: s} }

func (a AliasView) Lookup(name string) (string, bool) {
	v, ok := a.state.aliases[name]
	return v, ok
}
