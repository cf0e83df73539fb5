package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/rx-resolver/constants"
	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
	"github.com/joseph-ayodele/rx-resolver/internal/extract"
	"github.com/joseph-ayodele/rx-resolver/internal/inventory"
	"github.com/joseph-ayodele/rx-resolver/internal/ocr"
)

type stubText struct {
	res ocr.Result
	err error
}

func (s stubText) RecoverText(context.Context, entity.Document) (ocr.Result, error) {
	return s.res, s.err
}

type stubNames struct{ reqID string }

func (s *stubNames) ExtractNames(ctx context.Context, text string) extract.Result {
	s.reqID = common.RequestIDFromContext(ctx)
	return extract.Result{Names: extract.Heuristic(text), Method: extract.MethodHeuristic}
}

type stubInventory struct {
	snap *inventory.Snapshot
	err  error
}

func (s stubInventory) Snapshot(context.Context) (*inventory.Snapshot, error) { return s.snap, s.err }

type memStore struct {
	rows map[uuid.UUID]*entity.Prescription
}

func newMemStore() *memStore { return &memStore{rows: map[uuid.UUID]*entity.Prescription{}} }

func (m *memStore) Create(_ context.Context, doc entity.Document, status constants.JobStatus) (*entity.Prescription, error) {
	p := &entity.Prescription{ID: uuid.New(), SourcePath: doc.Path, Status: status}
	m.rows[p.ID] = p
	return p, nil
}

func (m *memStore) MarkRunning(_ context.Context, id uuid.UUID) error {
	p, ok := m.rows[id]
	if !ok {
		return common.NotFoundError("prescription")
	}
	p.Status = constants.JobStatusRunning
	return nil
}

func (m *memStore) SaveText(_ context.Context, id uuid.UUID, text, method string) error {
	p := m.rows[id]
	p.Status, p.ExtractedText, p.OCRMethod = constants.JobStatusOCROK, &text, &method
	return nil
}

func (m *memStore) SaveResults(_ context.Context, id uuid.UUID, candidates []string, nameMethod string, results json.RawMessage, count int) error {
	p := m.rows[id]
	p.Status, p.Candidates, p.NameMethod, p.Results, p.ResultsCount = constants.JobStatusDone, candidates, &nameMethod, results, count
	return nil
}

func (m *memStore) Fail(_ context.Context, id uuid.UUID, msg string) error {
	p := m.rows[id]
	p.Status, p.ErrorMessage = constants.JobStatusFailed, &msg
	return nil
}

// failingStore refuses one kind of write and behaves like memStore otherwise.
type failingStore struct {
	*memStore
	textErr, resultsErr error
}

func (f failingStore) SaveText(ctx context.Context, id uuid.UUID, text, method string) error {
	if f.textErr != nil {
		return f.textErr
	}
	return f.memStore.SaveText(ctx, id, text, method)
}

func (f failingStore) SaveResults(ctx context.Context, id uuid.UUID, candidates []string, nameMethod string, results json.RawMessage, count int) error {
	if f.resultsErr != nil {
		return f.resultsErr
	}
	return f.memStore.SaveResults(ctx, id, candidates, nameMethod, results, count)
}

func testSnapshot() *inventory.Snapshot {
	para := entity.Medicine{ID: uuid.New(), Name: "Paracetamol 500mg", StockQuantity: 150}
	ibu := entity.Medicine{ID: uuid.New(), Name: "Ibuprofen 400mg", StockQuantity: 0}
	amox := entity.Medicine{ID: uuid.New(), Name: "Amoxicillin 250mg", StockQuantity: 80}
	return inventory.NewSnapshot(
		[]entity.Medicine{para, ibu, amox},
		[]entity.Alternative{{MedicineID: ibu.ID, AlternativeID: para.ID}},
	)
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const rxText = "Dr. Smith Clinic\nParacetamol 500mg twice daily\nIbuprofen 400mg\nAspirin 75mg"

func TestProcess_EndToEnd(t *testing.T) {
	store := newMemStore()
	names := &stubNames{}
	p := NewProcessor(quietLogger(),
		stubText{res: ocr.Result{Text: rxText, Method: "tesseract"}},
		names,
		stubInventory{snap: testSnapshot()},
		store,
	)

	out, err := p.Process(context.Background(), entity.Document{Path: "rx.png", Kind: constants.MediaKindImageRasterAlt})
	require.NoError(t, err)

	assert.Equal(t, []string{"Paracetamol", "Ibuprofen", "Aspirin"}, out.Names)
	require.Len(t, out.Entries, 3)
	assert.Equal(t, inventory.StatusAvailable, out.Entries[0].Status)
	assert.Equal(t, inventory.StatusOutOfStock, out.Entries[1].Status)
	require.NotNil(t, out.Entries[1].Alternative)
	assert.Equal(t, "Paracetamol 500mg", out.Entries[1].Alternative.Name)
	assert.Equal(t, inventory.StatusNotFound, out.Entries[2].Status)
	assert.NotEmpty(t, names.reqID)

	rec := store.rows[out.PrescriptionID]
	require.NotNil(t, rec)
	assert.Equal(t, constants.JobStatusDone, rec.Status)
	assert.Equal(t, 3, rec.ResultsCount)
	assert.Equal(t, "tesseract", *rec.OCRMethod)

	entries, err := inventory.UnmarshalEntries(rec.Results)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestProcess_WithoutStore(t *testing.T) {
	p := NewProcessor(quietLogger(),
		stubText{res: ocr.Result{Text: "", Method: "google-vision"}},
		&stubNames{},
		stubInventory{snap: testSnapshot()},
		nil,
	)
	out, err := p.Process(context.Background(), entity.Document{Path: "blank.jpg", Kind: constants.MediaKindImageRaster})
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, out.PrescriptionID)
	assert.Empty(t, out.Entries)
}

func TestProcess_OCRFailureMarksFailed(t *testing.T) {
	store := newMemStore()
	p := NewProcessor(quietLogger(),
		stubText{err: ocr.ErrBackendUnavailable},
		&stubNames{},
		stubInventory{snap: testSnapshot()},
		store,
	)
	out, err := p.Process(context.Background(), entity.Document{Path: "rx.jpg", Kind: constants.MediaKindImageRaster})
	require.ErrorIs(t, err, ocr.ErrBackendUnavailable)

	rec := store.rows[out.PrescriptionID]
	require.NotNil(t, rec)
	assert.Equal(t, constants.JobStatusFailed, rec.Status)
	require.NotNil(t, rec.ErrorMessage)
	assert.Contains(t, *rec.ErrorMessage, ocr.ErrBackendUnavailable.Error())
}

func TestProcess_SnapshotFailure(t *testing.T) {
	store := newMemStore()
	boom := errors.New("db down")
	p := NewProcessor(quietLogger(),
		stubText{res: ocr.Result{Text: rxText, Method: "pdftotext"}},
		&stubNames{},
		stubInventory{err: boom},
		store,
	)
	out, err := p.Process(context.Background(), entity.Document{Path: "rx.pdf", Kind: constants.MediaKindPDF})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, constants.JobStatusFailed, store.rows[out.PrescriptionID].Status)
	assert.Equal(t, []string{"Paracetamol", "Ibuprofen", "Aspirin"}, out.Names)
}

func TestProcessQueued(t *testing.T) {
	store := newMemStore()
	doc := entity.Document{Path: "rx.pdf", Kind: constants.MediaKindPDF}
	rec, err := store.Create(context.Background(), doc, constants.JobStatusQueued)
	require.NoError(t, err)

	p := NewProcessor(quietLogger(),
		stubText{res: ocr.Result{Text: "Amoxicillin 250mg", Method: "pdftotext"}},
		&stubNames{},
		stubInventory{snap: testSnapshot()},
		store,
	)
	out, err := p.ProcessQueued(context.Background(), rec.ID, doc)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, out.PrescriptionID)
	assert.Equal(t, constants.JobStatusDone, store.rows[rec.ID].Status)

	_, err = p.ProcessQueued(context.Background(), uuid.New(), doc)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProcess_StoreWriteFailureMarksFailed(t *testing.T) {
	diskFull := errors.New("disk full")
	tests := []struct {
		name  string
		store failingStore
		want  string
	}{
		{"text", failingStore{memStore: newMemStore(), textErr: diskFull}, "save text: disk full"},
		{"results", failingStore{memStore: newMemStore(), resultsErr: diskFull}, "save results: disk full"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProcessor(quietLogger(),
				stubText{res: ocr.Result{Text: rxText, Method: "tesseract"}},
				&stubNames{},
				stubInventory{snap: testSnapshot()},
				tc.store,
			)
			out, err := p.Process(context.Background(), entity.Document{Path: "rx.png", Kind: constants.MediaKindImageRasterAlt})
			require.ErrorIs(t, err, diskFull)

			rec := tc.store.rows[out.PrescriptionID]
			require.NotNil(t, rec)
			assert.Equal(t, constants.JobStatusFailed, rec.Status)
			require.NotNil(t, rec.ErrorMessage)
			assert.Equal(t, tc.want, *rec.ErrorMessage)
		})
	}
}
