package repository

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/rx-resolver/constants"
	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

const tablePrescriptions = "prescriptions"

var prescriptionColumns = []string{
	"id", "source_path", "file_ext", "content_hash", "status",
	"extracted_text", "ocr_method", "candidates", "name_method", "results",
	"results_count", "error_message", "created_at", "updated_at",
}

type PrescriptionRepository interface {
	Create(ctx context.Context, doc entity.Document, status constants.JobStatus) (*entity.Prescription, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	SaveText(ctx context.Context, id uuid.UUID, text, method string) error
	SaveResults(ctx context.Context, id uuid.UUID, candidates []string, nameMethod string, results json.RawMessage, count int) error
	Fail(ctx context.Context, id uuid.UUID, msg string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Prescription, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Prescription, error)
	LatestDoneByHash(ctx context.Context, hashHex string) (*entity.Prescription, error)
}

type prescriptionRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewPrescriptionRepository(db *DB, logger *slog.Logger) PrescriptionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &prescriptionRepo{
		db:     db,
		logger: logger,
	}
}

func (r *prescriptionRepo) Create(ctx context.Context, doc entity.Document, status constants.JobStatus) (*entity.Prescription, error) {
	now := nowNano()
	p := entity.Prescription{
		ID:          uuid.New(),
		SourcePath:  doc.Path,
		FileExt:     constants.NormalizeExt(filepath.Ext(doc.Path)),
		ContentHash: doc.HashHex,
		Status:      status,
		CreatedAt:   fromNano(now),
		UpdatedAt:   fromNano(now),
	}
	q, args := r.db.builder().Insert(tablePrescriptions).
		Columns("id", "source_path", "file_ext", "content_hash", "status", "results_count", "created_at", "updated_at").
		Values(p.ID.String(), p.SourcePath, p.FileExt, p.ContentHash, string(status), 0, now, now).
		Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to create prescription", "source_path", doc.Path, "error", err)
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepo) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusRunning))
	})
}

func (r *prescriptionRepo) SaveText(ctx context.Context, id uuid.UUID, text, method string) error {
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusOCROK)).
			Set("extracted_text", text).
			Set("ocr_method", method)
	})
}

func (r *prescriptionRepo) SaveResults(ctx context.Context, id uuid.UUID, candidates []string, nameMethod string, results json.RawMessage, count int) error {
	if candidates == nil {
		candidates = []string{}
	}
	cands, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusDone)).
			Set("candidates", string(cands)).
			Set("name_method", nameMethod).
			Set("results", string(results)).
			Set("results_count", count)
	})
}

func (r *prescriptionRepo) Fail(ctx context.Context, id uuid.UUID, msg string) error {
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusFailed)).
			Set("error_message", msg)
	})
}

func (r *prescriptionRepo) update(ctx context.Context, id uuid.UUID, set func(*entsql.UpdateBuilder)) error {
	u := r.db.builder().Update(tablePrescriptions)
	set(u)
	q, args := u.Set("updated_at", nowNano()).
		Where(entsql.EQ("id", id.String())).
		Query()
	n, err := r.db.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to update prescription", "id", id, "error", err)
		return err
	}
	if n == 0 {
		return common.NotFoundError(fmt.Sprintf("prescription %s", id))
	}
	return nil
}

func (r *prescriptionRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Prescription, error) {
	rows, err := r.list(ctx, entsql.EQ("id", id.String()), 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.NotFoundError(fmt.Sprintf("prescription %s", id))
	}
	return &rows[0], nil
}

func (r *prescriptionRepo) ListRecent(ctx context.Context, limit int) ([]entity.Prescription, error) {
	return r.list(ctx, nil, limit)
}

func (r *prescriptionRepo) LatestDoneByHash(ctx context.Context, hashHex string) (*entity.Prescription, error) {
	rows, err := r.list(ctx, entsql.And(
		entsql.EQ("content_hash", hashHex),
		entsql.EQ("status", string(constants.JobStatusDone)),
	), 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.NotFoundError("prescription with hash " + hashHex)
	}
	return &rows[0], nil
}

func (r *prescriptionRepo) list(ctx context.Context, where *entsql.Predicate, limit int) ([]entity.Prescription, error) {
	sel := r.db.builder().Select(prescriptionColumns...).
		From(entsql.Table(tablePrescriptions)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if where != nil {
		sel.Where(where)
	}
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()

	var out []entity.Prescription
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			p                                  entity.Prescription
			id, status                         string
			text, ocrMethod, cands, nameMethod stdsql.NullString
			results, errMsg                    stdsql.NullString
			created, updated                   int64
		)
		if err := rows.Scan(&id, &p.SourcePath, &p.FileExt, &p.ContentHash, &status,
			&text, &ocrMethod, &cands, &nameMethod, &results,
			&p.ResultsCount, &errMsg, &created, &updated); err != nil {
			return err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return fmt.Errorf("prescription id %q: %w", id, err)
		}
		p.ID = parsed
		p.Status = constants.JobStatus(status)
		p.ExtractedText = nullable(text)
		p.OCRMethod = nullable(ocrMethod)
		p.NameMethod = nullable(nameMethod)
		p.ErrorMessage = nullable(errMsg)
		if cands.Valid && cands.String != "" {
			if err := json.Unmarshal([]byte(cands.String), &p.Candidates); err != nil {
				return fmt.Errorf("prescription %s candidates: %w", id, err)
			}
		}
		if results.Valid && results.String != "" {
			p.Results = json.RawMessage(results.String)
		}
		p.CreatedAt, p.UpdatedAt = fromNano(created), fromNano(updated)
		out = append(out, p)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list prescriptions", "error", err)
	}
	return out, err
}

func nullable(s stdsql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
