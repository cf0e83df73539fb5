package inventory

import (
	"encoding/json"
	"fmt"
)

type Status string

const (
	StatusAvailable  Status = "Available"
	StatusOutOfStock Status = "Out of Stock"
	StatusNotFound   Status = "Not Found"
)

// Suggestion is an in-stock substitute.
type Suggestion struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// Entry is the resolution of one candidate name.
//
// MedicineName is the matched inventory name, or the candidate itself when
// nothing matched. Stock and Alternative are nil for NotFound.
type Entry struct {
	Candidate    string      `json:"-"`
	MedicineName string      `json:"medicine_name"`
	Status       Status      `json:"status"`
	Stock        *int        `json:"stock"`
	Alternative  *Suggestion `json:"alternative"`
}

// Resolve returns one entry per candidate, in order. Duplicates are not merged.
// Found items, available or not, carry their first linked substitute when
// that substitute is in stock.
func Resolve(candidates []string, snap *Snapshot) []Entry {
	if snap == nil {
		snap = NewSnapshot(nil, nil)
	}
	out := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, resolveOne(c, snap))
	}
	return out
}

func resolveOne(candidate string, snap *Snapshot) Entry {
	m, ok := snap.Match(candidate)
	if !ok {
		return Entry{Candidate: candidate, MedicineName: candidate, Status: StatusNotFound}
	}

	stock := m.StockQuantity
	e := Entry{Candidate: candidate, MedicineName: m.Name, Stock: &stock, Status: StatusOutOfStock}
	if stock > 0 {
		e.Status = StatusAvailable
	}
	if alt, ok := snap.FirstAlternative(m.ID); ok && alt.StockQuantity > 0 {
		e.Alternative = &Suggestion{Name: alt.Name, Stock: alt.StockQuantity}
	}
	return e
}

// Check reports the first entry breaking the status/stock rules, if any.
func (e Entry) Check() error {
	switch e.Status {
	case StatusAvailable:
		if e.Stock == nil || *e.Stock <= 0 {
			return fmt.Errorf("%s: available without stock", e.MedicineName)
		}
	case StatusOutOfStock:
		if e.Stock == nil || *e.Stock != 0 {
			return fmt.Errorf("%s: out of stock with non-zero stock", e.MedicineName)
		}
	case StatusNotFound:
		if e.Stock != nil || e.Alternative != nil {
			return fmt.Errorf("%s: not found with stock or alternative", e.MedicineName)
		}
	default:
		return fmt.Errorf("%s: unknown status %q", e.MedicineName, e.Status)
	}
	if e.Alternative != nil && e.Alternative.Stock <= 0 {
		return fmt.Errorf("%s: alternative without stock", e.MedicineName)
	}
	return nil
}

// MarshalEntries encodes entries as the results JSON stored with a prescription.
func MarshalEntries(entries []Entry) (json.RawMessage, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}

// UnmarshalEntries is the inverse of MarshalEntries.
func UnmarshalEntries(raw json.RawMessage) ([]Entry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []Entry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return out, nil
}
