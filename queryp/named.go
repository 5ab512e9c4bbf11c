package queryp

import "strings"

// NamedQuery is a query with named parameters, eg. ":id".
// Building the final query and its arguments waits until String, Args or Execute is called.
type NamedQuery struct {
	query         string
	params        map[string]any
	placeholderer Placeholderer
	builtQuery    string
	builtArgs     *Args
}

func Named(query string) *NamedQuery {
	return &NamedQuery{
		query:  query,
		params: make(map[string]any),
	}
}

// WithPlaceholderer sets the Placeholderer for the NamedQuery.
func (n *NamedQuery) WithPlaceholderer(p Placeholderer) *NamedQuery {
	n.reset()
	n.placeholderer = p
	return n
}

// WithQuery sets the query string for the NamedQuery.
func (n *NamedQuery) WithQuery(q string) *NamedQuery {
	n.reset()
	n.query = q
	return n
}

// Params adds the given map of params to the NamedQuery.
func (n *NamedQuery) Params(m map[string]any) *NamedQuery {
	n.reset()
	for key, value := range m {
		n.params[key] = value
	}
	return n
}

// Param adds a single named parameter to the NamedQuery.
func (n *NamedQuery) Param(key string, v any) *NamedQuery {
	n.reset()
	n.params[key] = v
	return n
}

// String returns the final built query with all named parameters replaced.
func (n *NamedQuery) String() string {
	if n.builtArgs == nil {
		n.build()
	}
	return n.builtQuery
}

// Args returns the arguments for the query, with named parameters replaced by their placeholders.
func (n *NamedQuery) Args() []any {
	if n.builtArgs == nil {
		n.build()
	}
	return n.builtArgs.Args()
}

// Execute returns the query and arguments for the named query.
func (n *NamedQuery) Execute() (string, []any) {
	if n.builtArgs == nil {
		n.build()
	}
	return n.builtQuery, n.builtArgs.Args()
}

////////////////////////////////////////////////////////////////////////////////

func (n *NamedQuery) reset() {
	n.builtArgs = nil
	n.builtQuery = ""
}

// build replaces every named parameter that has a value with a placeholder, in order of
// appearance, since positional drivers bind by order (eg. 'WHERE id = :id AND name = :name' binds
// id first). Parameters without a value are left as is.
func (n *NamedQuery) build() {
	n.builtArgs = NewArgs().WithPlaceholderer(n.placeholderer)

	q := strings.Builder{}
	for _, s := range segments(n.query) {
		v, ok := n.params[s.name]
		if s.kind != named || !ok {
			q.WriteString(s.text)
			continue
		}
		q.WriteString(n.builtArgs.Add(v))
	}
	n.builtQuery = q.String()
}
