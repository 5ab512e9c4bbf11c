package queryp

// Count returns how many arguments query binds: one per question mark or named parameter, and
// the highest numbered $n placeholder.
func Count(query string) int {
	var count, highest int
	for _, s := range segments(query) {
		switch s.kind {
		case question, named:
			count++
		case dollar:
			highest = max(highest, s.n)
		}
	}
	return count + highest
}

// Positional rewrites named parameters as positional placeholders, returning the names in
// binding order. A name used twice is bound twice.
//
//	Positional("WHERE a = :a OR b = :a", QuestionPlaceholderer) // "WHERE a = ? OR b = ?", [a a]
func Positional(query string, p Placeholderer) (string, []string) {
	if p == nil {
		p = QuestionPlaceholderer
	}
	var names []string
	args := NewArgs().WithPlaceholderer(p)
	var b []byte
	for _, s := range segments(query) {
		if s.kind != named {
			b = append(b, s.text...)
			continue
		}
		names = append(names, s.name)
		b = append(b, args.Add(s.name)...)
	}
	return string(b), names
}
