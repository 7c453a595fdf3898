package history

// VisitSet is an insertion-ordered mapping from visit ID to record.
type VisitSet struct {
	order []VisitID
	byID  map[VisitID]Record
}

// NewVisitSet creates an empty VisitSet.
func NewVisitSet() *VisitSet {
	return &VisitSet{byID: make(map[VisitID]Record)}
}

// Add inserts rec unless its visit ID is already present. It reports whether the
// record was inserted; the first record seen for an ID wins.
func (s *VisitSet) Add(rec Record) bool {
	if _, ok := s.byID[rec.Visit.ID]; ok {
		return false
	}
	s.byID[rec.Visit.ID] = rec
	s.order = append(s.order, rec.Visit.ID)
	return true
}

// Get returns the record for id.
func (s *VisitSet) Get(id VisitID) (Record, bool) {
	rec, ok := s.byID[id]
	return rec, ok
}

// Len returns the number of records.
func (s *VisitSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// IDs returns the visit IDs in insertion order.
func (s *VisitSet) IDs() []VisitID {
	out := make([]VisitID, len(s.order))
	copy(out, s.order)
	return out
}

// Each calls fn for every record in insertion order.
func (s *VisitSet) Each(fn func(Record)) {
	if s == nil {
		return
	}
	for _, id := range s.order {
		fn(s.byID[id])
	}
}
