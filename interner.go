package dtd

// Name is a handle to an interned string. The zero Name is the empty
// string.
type Name uint32

// InternerStats reports how an Interner has been used.
type InternerStats struct {
	Count  int
	Hits   int
	Misses int
}

// Interner maps each distinct name to a single canonical string and a
// Name handle. An Interner lives for one parse and is not safe for
// concurrent use.
type Interner struct {
	ids    map[string]Name
	names  []string
	hits   int
	misses int
}

func NewInterner() *Interner {
	return &Interner{
		ids:   make(map[string]Name),
		names: []string{""},
	}
}

// Intern returns the handle for s, allocating one on first sight.
func (in *Interner) Intern(s string) Name {
	if s == "" {
		return 0
	}
	if id, ok := in.ids[s]; ok {
		in.hits++
		return id
	}
	in.misses++
	id := Name(len(in.names))
	in.names = append(in.names, s)
	in.ids[s] = id
	return id
}

// Lookup returns the handle for s without interning it.
func (in *Interner) Lookup(s string) (Name, bool) {
	if s == "" {
		return 0, true
	}
	id, ok := in.ids[s]
	return id, ok
}

// String returns the canonical string for n.
func (in *Interner) String(n Name) string {
	if int(n) >= len(in.names) {
		return ""
	}
	return in.names[n]
}

// Canonical interns s and returns the canonical instance.
func (in *Interner) Canonical(s string) string {
	return in.names[in.Intern(s)]
}

func (in *Interner) Stats() InternerStats {
	return InternerStats{
		Count:  len(in.names) - 1,
		Hits:   in.hits,
		Misses: in.misses,
	}
}
