// Package inventory resolves candidate medicine names against a read-only
// snapshot of stock and substitution links.
package inventory

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

// Snapshot is an immutable view of the inventory. Items are kept in name
// order; links keep the order they were supplied in.
type Snapshot struct {
	items []entity.Medicine
	byID  map[uuid.UUID]int
	links map[uuid.UUID][]uuid.UUID
}

// NewSnapshot copies items and links. Items are sorted by name (stable),
// negative stock is read as zero and links to unknown items are ignored.
func NewSnapshot(items []entity.Medicine, links []entity.Alternative) *Snapshot {
	s := &Snapshot{
		items: slices.Clone(items),
		byID:  make(map[uuid.UUID]int, len(items)),
		links: make(map[uuid.UUID][]uuid.UUID),
	}
	slices.SortStableFunc(s.items, func(a, b entity.Medicine) int { return strings.Compare(a.Name, b.Name) })
	for i := range s.items {
		if s.items[i].StockQuantity < 0 {
			s.items[i].StockQuantity = 0
		}
		s.byID[s.items[i].ID] = i
	}
	for _, l := range links {
		_, okFrom := s.byID[l.MedicineID]
		_, okTo := s.byID[l.AlternativeID]
		if !okFrom || !okTo {
			continue
		}
		s.links[l.MedicineID] = append(s.links[l.MedicineID], l.AlternativeID)
	}
	return s
}

func (s *Snapshot) Len() int { return len(s.items) }

// Items returns the medicines in name order.
func (s *Snapshot) Items() []entity.Medicine { return slices.Clone(s.items) }

// Match returns the first medicine, in name order, whose name contains
// candidate case-insensitively. Blank candidates never match.
func (s *Snapshot) Match(candidate string) (entity.Medicine, bool) {
	needle := strings.ToLower(strings.TrimSpace(candidate))
	if needle == "" {
		return entity.Medicine{}, false
	}
	for _, m := range s.items {
		// equality is a special case of containment
		if strings.Contains(strings.ToLower(m.Name), needle) {
			return m, true
		}
	}
	return entity.Medicine{}, false
}

// FirstAlternative returns the target of the first link sourced at id.
func (s *Snapshot) FirstAlternative(id uuid.UUID) (entity.Medicine, bool) {
	targets := s.links[id]
	if len(targets) == 0 {
		return entity.Medicine{}, false
	}
	return s.items[s.byID[targets[0]]], true
}

// Alternatives returns every substitute linked from id, in link order.
func (s *Snapshot) Alternatives(id uuid.UUID) []entity.Medicine {
	out := make([]entity.Medicine, 0, len(s.links[id]))
	for _, t := range s.links[id] {
		out = append(out, s.items[s.byID[t]])
	}
	return out
}
