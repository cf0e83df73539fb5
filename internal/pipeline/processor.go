// Package pipeline chains text recovery, name extraction and inventory
// resolution for one prescription document.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/rx-resolver/constants"
	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
	"github.com/joseph-ayodele/rx-resolver/internal/extract"
	"github.com/joseph-ayodele/rx-resolver/internal/inventory"
	"github.com/joseph-ayodele/rx-resolver/internal/ocr"
)

type TextRecoverer interface {
	RecoverText(ctx context.Context, doc entity.Document) (ocr.Result, error)
}

type NameExtractor interface {
	ExtractNames(ctx context.Context, text string) extract.Result
}

// InventorySource supplies a fresh snapshot per document.
type InventorySource interface {
	Snapshot(ctx context.Context) (*inventory.Snapshot, error)
}

// PrescriptionStore records progress. It is a subset of
// repository.PrescriptionRepository.
type PrescriptionStore interface {
	Create(ctx context.Context, doc entity.Document, status constants.JobStatus) (*entity.Prescription, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	SaveText(ctx context.Context, id uuid.UUID, text, method string) error
	SaveResults(ctx context.Context, id uuid.UUID, candidates []string, nameMethod string, results json.RawMessage, count int) error
	Fail(ctx context.Context, id uuid.UUID, msg string) error
}

// Outcome is everything one run produced. PrescriptionID is uuid.Nil when
// nothing was stored.
type Outcome struct {
	PrescriptionID uuid.UUID         `json:"prescription_id"`
	Source         string            `json:"source"`
	Text           string            `json:"extracted_text"`
	OCRMethod      string            `json:"ocr_method"`
	Names          []string          `json:"medicines_found"`
	NameMethod     string            `json:"name_method"`
	Entries        []inventory.Entry `json:"results"`
	Duration       time.Duration     `json:"-"`
}

// Processor coordinates OCR, name extraction and resolution.
type Processor struct {
	logger *slog.Logger
	text   TextRecoverer
	names  NameExtractor
	inv    InventorySource
	store  PrescriptionStore
}

// NewProcessor wires the stages. store may be nil, in which case nothing is persisted.
func NewProcessor(logger *slog.Logger, text TextRecoverer, names NameExtractor, inv InventorySource, store PrescriptionStore) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, text: text, names: names, inv: inv, store: store}
}

// Process records a new prescription (when a store is set) and runs every stage on doc.
func (p *Processor) Process(ctx context.Context, doc entity.Document) (Outcome, error) {
	id := uuid.Nil
	if p.store != nil {
		rec, err := p.store.Create(ctx, doc, constants.JobStatusRunning)
		if err != nil {
			return Outcome{Source: doc.Name()}, fmt.Errorf("create prescription: %w", err)
		}
		id = rec.ID
	}
	return p.run(ctx, id, doc)
}

// ProcessQueued runs the stages for a prescription created earlier in QUEUED state.
func (p *Processor) ProcessQueued(ctx context.Context, id uuid.UUID, doc entity.Document) (Outcome, error) {
	if p.store != nil {
		if err := p.store.MarkRunning(ctx, id); err != nil {
			return Outcome{PrescriptionID: id, Source: doc.Name()}, fmt.Errorf("mark running: %w", err)
		}
	}
	return p.run(ctx, id, doc)
}

func (p *Processor) run(ctx context.Context, id uuid.UUID, doc entity.Document) (Outcome, error) {
	start := time.Now()
	ctx, reqID := common.EnsureRequestID(ctx)
	log := p.logger.With("req_id", reqID, "path", doc.Name())
	if id != uuid.Nil {
		log = log.With("prescription_id", id)
	}
	out := Outcome{PrescriptionID: id, Source: doc.Name()}

	// 1) text recovery
	res, err := p.text.RecoverText(ctx, doc)
	if err != nil {
		log.Error("pipeline.ocr.failed", "error", err)
		return out, p.fail(ctx, id, err, log)
	}
	out.Text, out.OCRMethod = res.Text, res.Method
	if id != uuid.Nil {
		if err := p.store.SaveText(ctx, id, res.Text, res.Method); err != nil {
			log.Error("pipeline.store.failed", "step", "text", "error", err)
			return out, p.fail(ctx, id, fmt.Errorf("save text: %w", err), log)
		}
	}
	log.Debug("pipeline.ocr.ok", "method", res.Method, "chars", len(res.Text), "warnings", len(res.Warnings))

	// 2) candidate names
	names := p.names.ExtractNames(ctx, res.Text)
	out.Names, out.NameMethod = names.Names, names.Method
	log.Debug("pipeline.names.ok", "method", names.Method, "count", len(names.Names))

	// 3) resolution against a fresh snapshot
	snap, err := p.inv.Snapshot(ctx)
	if err != nil {
		log.Error("pipeline.inventory.failed", "error", err)
		return out, p.fail(ctx, id, fmt.Errorf("inventory snapshot: %w", err), log)
	}
	out.Entries = inventory.Resolve(names.Names, snap)

	if id != uuid.Nil {
		raw, err := inventory.MarshalEntries(out.Entries)
		if err != nil {
			return out, p.fail(ctx, id, err, log)
		}
		if err := p.store.SaveResults(ctx, id, names.Names, names.Method, raw, len(out.Entries)); err != nil {
			log.Error("pipeline.store.failed", "step", "results", "error", err)
			return out, p.fail(ctx, id, fmt.Errorf("save results: %w", err), log)
		}
	}

	out.Duration = time.Since(start)
	log.Info("pipeline.done",
		"ocr_method", out.OCRMethod,
		"name_method", out.NameMethod,
		"candidates", len(out.Names),
		"elapsed_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

// fail marks the prescription FAILED and returns cause. A failure to record
// the status is logged, never returned in place of cause.
func (p *Processor) fail(ctx context.Context, id uuid.UUID, cause error, log *slog.Logger) error {
	if id == uuid.Nil {
		return cause
	}
	if err := p.store.Fail(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		log.Error("pipeline.fail.record", "error", err)
	}
	return cause
}
