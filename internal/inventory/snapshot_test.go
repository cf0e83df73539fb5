package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

func sample() *Snapshot {
	para := entity.Medicine{ID: uuid.New(), Name: "Paracetamol 500mg", Composition: "Paracetamol", StockQuantity: 150, Manufacturer: "ABC Pharmaceuticals"}
	ibu := entity.Medicine{ID: uuid.New(), Name: "Ibuprofen 400mg", Composition: "Ibuprofen", StockQuantity: 0, Manufacturer: "ABC Pharmaceuticals"}
	cet := entity.Medicine{ID: uuid.New(), Name: "Cetirizine 10mg", Composition: "Cetirizine Hydrochloride", StockQuantity: 120, Manufacturer: "MedCorp Industries"}
	aml := entity.Medicine{ID: uuid.New(), Name: "Amlodipine 5mg", Composition: "Amlodipine Besylate", StockQuantity: 5, Manufacturer: "XYZ Pharma Ltd"}
	return NewSnapshot(
		[]entity.Medicine{para, ibu, cet, aml},
		[]entity.Alternative{
			{MedicineID: para.ID, AlternativeID: ibu.ID},
			{MedicineID: para.ID, AlternativeID: uuid.New()}, // dangling, dropped
		},
	)
}

func TestSnapshot_SortedByName(t *testing.T) {
	s := sample()
	var names []string
	for _, m := range s.Items() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Amlodipine 5mg", "Cetirizine 10mg", "Ibuprofen 400mg", "Paracetamol 500mg"}, names)
	assert.Equal(t, 4, s.Len())
}

func TestSnapshot_Alternatives(t *testing.T) {
	s := sample()
	para, ok := s.Match("paracetamol")
	assert.True(t, ok)

	alts := s.Alternatives(para.ID)
	assert.Len(t, alts, 1)
	assert.Equal(t, "Ibuprofen 400mg", alts[0].Name)
}
