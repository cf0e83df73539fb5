// Package export writes prescription results and inventory listings as XLSX workbooks.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/rx-resolver/internal/entity"
	"github.com/joseph-ayodele/rx-resolver/internal/inventory"
	"github.com/joseph-ayodele/rx-resolver/internal/pipeline"
)

const (
	resultsSheet   = "Results"
	inventorySheet = "Inventory"
)

// PrescriptionReader is the read side of repository.PrescriptionRepository.
type PrescriptionReader interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Prescription, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Prescription, error)
}

// Service is a tiny façade over the prescription store that produces XLSX bytes.
type Service struct {
	prescriptions PrescriptionReader
	logger        *slog.Logger
}

func NewService(prescriptions PrescriptionReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{prescriptions: prescriptions, logger: logger}
}

type resultRow struct {
	id      string
	file    string
	entries []inventory.Entry
}

// PrescriptionsXLSX exports the given prescriptions, or every stored one when ids is empty.
// Prescriptions without results (queued, failed) produce no rows.
func (s *Service) PrescriptionsXLSX(ctx context.Context, ids []uuid.UUID) ([]byte, error) {
	start := time.Now()

	var recs []entity.Prescription
	if len(ids) == 0 {
		all, err := s.prescriptions.ListRecent(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("list prescriptions: %w", err)
		}
		recs = all
	} else {
		for _, id := range ids {
			p, err := s.prescriptions.Get(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("get prescription %s: %w", id, err)
			}
			recs = append(recs, *p)
		}
	}

	rows := make([]resultRow, 0, len(recs))
	for _, p := range recs {
		if len(p.Results) == 0 {
			continue
		}
		entries, err := inventory.UnmarshalEntries(p.Results)
		if err != nil {
			return nil, fmt.Errorf("prescription %s results: %w", p.ID, err)
		}
		rows = append(rows, resultRow{id: p.ID.String(), file: filepath.Base(p.SourcePath), entries: entries})
	}

	b, n, err := writeResults(rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"prescriptions", len(rows),
		"rows", n,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

// OutcomesXLSX exports pipeline outcomes that were never stored.
func OutcomesXLSX(outcomes []pipeline.Outcome) ([]byte, error) {
	rows := make([]resultRow, 0, len(outcomes))
	for _, o := range outcomes {
		id := ""
		if o.PrescriptionID != uuid.Nil {
			id = o.PrescriptionID.String()
		}
		rows = append(rows, resultRow{id: id, file: filepath.Base(o.Source), entries: o.Entries})
	}
	b, _, err := writeResults(rows)
	return b, err
}

func writeResults(rows []resultRow) ([]byte, int, error) {
	f, err := newWorkbook(resultsSheet, []string{
		"Prescription ID",
		"File",
		"Medicine",
		"Status",
		"Stock",
		"Alternative",
		"Alternative Stock",
	})
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	row := 2
	for _, r := range rows {
		for _, e := range r.entries {
			write := cellWriter(f, resultsSheet, row)
			write(1, r.id)
			write(2, r.file)
			write(3, e.MedicineName)
			write(4, string(e.Status))
			if e.Stock != nil {
				write(5, *e.Stock)
			}
			if e.Alternative != nil {
				write(6, e.Alternative.Name)
				write(7, e.Alternative.Stock)
			}
			row++
		}
	}

	_ = f.SetColWidth(resultsSheet, "A", "A", 38) // uuid
	_ = f.SetColWidth(resultsSheet, "B", "B", 28)
	_ = f.SetColWidth(resultsSheet, "C", "C", 28)
	_ = f.SetColWidth(resultsSheet, "D", "D", 14)
	_ = f.SetColWidth(resultsSheet, "F", "F", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), row - 2, nil
}

// InventoryXLSX lists medicines in the given order.
func InventoryXLSX(items []entity.Medicine) ([]byte, error) {
	f, err := newWorkbook(inventorySheet, []string{"Name", "Composition", "Manufacturer", "Stock", "Available"})
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for i, m := range items {
		write := cellWriter(f, inventorySheet, i+2)
		write(1, m.Name)
		write(2, m.Composition)
		write(3, m.Manufacturer)
		write(4, m.StockQuantity)
		if m.IsAvailable() {
			write(5, "yes")
		} else {
			write(5, "no")
		}
	}
	_ = f.SetColWidth(inventorySheet, "A", "C", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// newWorkbook returns a file whose only sheet is named sheet, with a header row.
func newWorkbook(sheet string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	return f, nil
}

func cellWriter(f *excelize.File, sheet string, row int) func(col int, v any) {
	return func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
