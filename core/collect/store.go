package collect

import "github.com/gaurav-prasanna/chatexport/core"

// Store accumulates turn records keyed by identity. The first record seen
// for an identity wins; later ones are dropped. Records keep capture
// (insertion) order.
type Store struct {
	records map[string]*core.TurnRecord
	order   []string
	hashIDs int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[string]*core.TurnRecord)}
}

// Add stores rec unless its identity is already present. It reports
// whether rec was added.
func (s *Store) Add(rec *core.TurnRecord) bool {
	if rec == nil {
		return false
	}
	if _, seen := s.records[rec.ID]; seen {
		return false
	}
	s.records[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	if rec.HashDerived() {
		s.hashIDs++
	}
	return true
}

// Get returns the record stored under id.
func (s *Store) Get(id string) (*core.TurnRecord, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of unique records.
func (s *Store) Len() int {
	return len(s.order)
}

// HasHashIDs reports whether any stored identity is content-hash derived.
func (s *Store) HasHashIDs() bool {
	return s.hashIDs > 0
}

// Records returns all records in capture order.
func (s *Store) Records() []*core.TurnRecord {
	out := make([]*core.TurnRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// Messages returns all records in capture order as messages.
func (s *Store) Messages() []core.Message {
	out := make([]core.Message, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		out = append(out, core.Message{Role: rec.Role, Content: rec.Content})
	}
	return out
}
