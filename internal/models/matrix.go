package models

// RelationEntry is one declared relationship between two domains.
type RelationEntry struct {
	A        string
	B        string
	Strength float64
}

// RelationMatrix is an immutable view of the configured domain relationships.
// Positive strength marks a reinforcing pair, negative a conflicting one, and
// a diagonal entry a self-amplifying domain. Lookups are symmetric.
type RelationMatrix struct {
	relations map[string]map[string]float64
}

// NewRelationMatrix builds a matrix from declared pair entries. Later entries
// overwrite earlier ones for the same pair.
func NewRelationMatrix(entries []RelationEntry) *RelationMatrix {
	m := &RelationMatrix{relations: make(map[string]map[string]float64)}
	for _, e := range entries {
		if e.A == "" || e.B == "" {
			continue
		}
		if m.relations[e.A] == nil {
			m.relations[e.A] = make(map[string]float64)
		}
		m.relations[e.A][e.B] = e.Strength
	}
	return m
}

// Relation returns the declared strength between two domains, checking both
// orientations. Zero means no declared relationship.
func (m *RelationMatrix) Relation(a, b string) float64 {
	if m == nil {
		return 0
	}
	if row, ok := m.relations[a]; ok {
		if s, ok := row[b]; ok {
			return s
		}
	}
	if row, ok := m.relations[b]; ok {
		if s, ok := row[a]; ok {
			return s
		}
	}
	return 0
}

// Related reports whether any relationship is declared between two domains.
func (m *RelationMatrix) Related(a, b string) bool {
	return m.Relation(a, b) != 0
}

// SelfAmplifying returns the diagonal strength for a domain (0 when none).
func (m *RelationMatrix) SelfAmplifying(domain string) float64 {
	return m.Relation(domain, domain)
}
