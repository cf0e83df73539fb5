package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
	"github.com/joseph-ayodele/rx-resolver/internal/inventory"
	"github.com/joseph-ayodele/rx-resolver/internal/pipeline"
)

type memReader struct {
	rows []entity.Prescription
}

func (m memReader) Get(_ context.Context, id uuid.UUID) (*entity.Prescription, error) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			return &m.rows[i], nil
		}
	}
	return nil, common.NotFoundError("prescription")
}

func (m memReader) ListRecent(context.Context, int) ([]entity.Prescription, error) { return m.rows, nil }

func readRows(t *testing.T, b []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{sheet}, f.GetSheetList())
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestPrescriptionsXLSX(t *testing.T) {
	done := entity.Prescription{
		ID:         uuid.New(),
		SourcePath: "/scans/rx-001.png",
		Results: json.RawMessage(`[
			{"medicine_name":"Ibuprofen 400mg","status":"Out of Stock","stock":0,"alternative":{"name":"Paracetamol 500mg","stock":150}},
			{"medicine_name":"Aspirin","status":"Not Found","stock":null,"alternative":null}
		]`),
	}
	failed := entity.Prescription{ID: uuid.New(), SourcePath: "/scans/blurry.jpg"}
	svc := NewService(memReader{rows: []entity.Prescription{done, failed}}, nil)

	b, err := svc.PrescriptionsXLSX(context.Background(), nil)
	require.NoError(t, err)

	rows := readRows(t, b, "Results")
	require.Len(t, rows, 3)
	assert.Equal(t, "Prescription ID", rows[0][0])
	assert.Equal(t, []string{done.ID.String(), "rx-001.png", "Ibuprofen 400mg", "Out of Stock", "0", "Paracetamol 500mg", "150"}, rows[1])
	assert.Equal(t, []string{done.ID.String(), "rx-001.png", "Aspirin", "Not Found"}, rows[2])

	_, err = svc.PrescriptionsXLSX(context.Background(), []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestOutcomesXLSX(t *testing.T) {
	stock := 80
	b, err := OutcomesXLSX([]pipeline.Outcome{{
		Source:  "/tmp/rx.pdf",
		Entries: []inventory.Entry{{MedicineName: "Amoxicillin 250mg", Status: inventory.StatusAvailable, Stock: &stock}},
	}})
	require.NoError(t, err)

	rows := readRows(t, b, "Results")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"", "rx.pdf", "Amoxicillin 250mg", "Available", "80"}, rows[1])
}

func TestInventoryXLSX(t *testing.T) {
	b, err := InventoryXLSX([]entity.Medicine{
		{Name: "Amlodipine 5mg", Composition: "Amlodipine Besylate", Manufacturer: "XYZ Pharma Ltd", StockQuantity: 5},
		{Name: "Ibuprofen 400mg", Composition: "Ibuprofen", Manufacturer: "ABC Pharmaceuticals"},
	})
	require.NoError(t, err)

	rows := readRows(t, b, "Inventory")
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Composition", "Manufacturer", "Stock", "Available"}, rows[0])
	assert.Equal(t, []string{"Amlodipine 5mg", "Amlodipine Besylate", "XYZ Pharma Ltd", "5", "yes"}, rows[1])
	assert.Equal(t, []string{"Ibuprofen 400mg", "Ibuprofen", "ABC Pharmaceuticals", "0", "no"}, rows[2])
}
