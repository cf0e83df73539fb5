package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
	"github.com/joseph-ayodele/rx-resolver/internal/inventory"
)

const (
	tableMedicines    = "medicines"
	tableAlternatives = "alternatives"
)

var medicineColumns = []string{"id", "name", "composition", "stock_quantity", "manufacturer", "created_at", "updated_at"}

type InventoryRepository interface {
	CreateMedicine(ctx context.Context, m entity.Medicine) (*entity.Medicine, error)
	GetMedicineByName(ctx context.Context, name string) (*entity.Medicine, error)
	ListMedicines(ctx context.Context) ([]entity.Medicine, error)
	SearchMedicines(ctx context.Context, query string, limit int) ([]entity.Medicine, error)
	LowStock(ctx context.Context, threshold int) ([]entity.Medicine, error)
	SetStock(ctx context.Context, name string, qty int) (*entity.Medicine, error)

	AddAlternative(ctx context.Context, medicineID, alternativeID uuid.UUID) (*entity.Alternative, bool, error)
	RemoveAlternative(ctx context.Context, medicineID, alternativeID uuid.UUID) error
	ListAlternatives(ctx context.Context) ([]entity.Alternative, error)

	Snapshot(ctx context.Context) (*inventory.Snapshot, error)
}

type inventoryRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewInventoryRepository(db *DB, logger *slog.Logger) InventoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &inventoryRepo{
		db:     db,
		logger: logger,
	}
}

func validateMedicine(m entity.Medicine) error {
	v := common.NewValidator().
		Field("name", m.Name, common.Required, common.MaxLength(200)).
		Field("stock_quantity", m.StockQuantity, common.NonNegative).
		Field("manufacturer", m.Manufacturer, common.MaxLength(200))
	return common.ValidateAndReturnError(v)
}

func (r *inventoryRepo) CreateMedicine(ctx context.Context, m entity.Medicine) (*entity.Medicine, error) {
	m.Name = strings.TrimSpace(m.Name)
	if err := validateMedicine(m); err != nil {
		return nil, err
	}
	if _, err := r.GetMedicineByName(ctx, m.Name); err == nil {
		return nil, common.NewAppError("ALREADY_EXISTS", fmt.Sprintf("medicine %q already exists", m.Name), common.ErrAlreadyExists)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	now := nowNano()
	m.ID = uuid.New()
	m.CreatedAt, m.UpdatedAt = fromNano(now), fromNano(now)

	q, args := r.db.builder().Insert(tableMedicines).
		Columns(medicineColumns...).
		Values(m.ID.String(), m.Name, m.Composition, m.StockQuantity, m.Manufacturer, now, now).
		Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to create medicine", "name", m.Name, "error", err)
		return nil, err
	}
	return &m, nil
}

func (r *inventoryRepo) GetMedicineByName(ctx context.Context, name string) (*entity.Medicine, error) {
	q, args := r.db.builder().Select(medicineColumns...).
		From(entsql.Table(tableMedicines)).
		Where(entsql.EQ("name", strings.TrimSpace(name))).
		Query()
	rows, err := r.medicines(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to get medicine by name", "name", name, "error", err)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.NotFoundError(fmt.Sprintf("medicine %q", name))
	}
	return &rows[0], nil
}

func (r *inventoryRepo) ListMedicines(ctx context.Context) ([]entity.Medicine, error) {
	q, args := r.db.builder().Select(medicineColumns...).
		From(entsql.Table(tableMedicines)).
		OrderBy("name").
		Query()
	return r.medicines(ctx, q, args)
}

func (r *inventoryRepo) SearchMedicines(ctx context.Context, query string, limit int) ([]entity.Medicine, error) {
	sel := r.db.builder().Select(medicineColumns...).
		From(entsql.Table(tableMedicines)).
		OrderBy("name")
	if q := strings.TrimSpace(query); q != "" {
		sel.Where(entsql.Or(
			entsql.ContainsFold("name", q),
			entsql.ContainsFold("composition", q),
			entsql.ContainsFold("manufacturer", q),
		))
	}
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()
	return r.medicines(ctx, q, args)
}

func (r *inventoryRepo) LowStock(ctx context.Context, threshold int) ([]entity.Medicine, error) {
	q, args := r.db.builder().Select(medicineColumns...).
		From(entsql.Table(tableMedicines)).
		Where(entsql.LT("stock_quantity", threshold)).
		OrderBy("stock_quantity", "name").
		Query()
	return r.medicines(ctx, q, args)
}

func (r *inventoryRepo) SetStock(ctx context.Context, name string, qty int) (*entity.Medicine, error) {
	if err := common.ValidateAndReturnError(common.NewValidator().Field("stock_quantity", qty, common.NonNegative)); err != nil {
		return nil, err
	}
	q, args := r.db.builder().Update(tableMedicines).
		Set("stock_quantity", qty).
		Set("updated_at", nowNano()).
		Where(entsql.EQ("name", strings.TrimSpace(name))).
		Query()
	n, err := r.db.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to set stock", "name", name, "error", err)
		return nil, err
	}
	if n == 0 {
		return nil, common.NotFoundError(fmt.Sprintf("medicine %q", name))
	}
	return r.GetMedicineByName(ctx, name)
}

// AddAlternative links alternativeID as a substitute for medicineID. An
// existing link is returned unchanged with created=false.
func (r *inventoryRepo) AddAlternative(ctx context.Context, medicineID, alternativeID uuid.UUID) (*entity.Alternative, bool, error) {
	if medicineID == alternativeID {
		return nil, false, common.InvalidArgumentErrorf("a medicine cannot be its own alternative")
	}

	existing, err := r.alternatives(ctx, entsql.And(
		entsql.EQ("medicine_id", medicineID.String()),
		entsql.EQ("alternative_id", alternativeID.String()),
	))
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		return &existing[0], false, nil
	}

	now := nowNano()
	a := entity.Alternative{ID: uuid.New(), MedicineID: medicineID, AlternativeID: alternativeID, CreatedAt: fromNano(now)}
	q, args := r.db.builder().Insert(tableAlternatives).
		Columns("id", "medicine_id", "alternative_id", "created_at").
		Values(a.ID.String(), medicineID.String(), alternativeID.String(), now).
		Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to add alternative", "medicine_id", medicineID, "alternative_id", alternativeID, "error", err)
		return nil, false, err
	}
	return &a, true, nil
}

func (r *inventoryRepo) RemoveAlternative(ctx context.Context, medicineID, alternativeID uuid.UUID) error {
	q, args := r.db.builder().Delete(tableAlternatives).
		Where(entsql.And(
			entsql.EQ("medicine_id", medicineID.String()),
			entsql.EQ("alternative_id", alternativeID.String()),
		)).
		Query()
	n, err := r.db.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to remove alternative", "medicine_id", medicineID, "alternative_id", alternativeID, "error", err)
		return err
	}
	if n == 0 {
		return common.NotFoundError("alternative link")
	}
	return nil
}

func (r *inventoryRepo) ListAlternatives(ctx context.Context) ([]entity.Alternative, error) {
	return r.alternatives(ctx, nil)
}

// Snapshot reads every medicine and link in store order.
func (r *inventoryRepo) Snapshot(ctx context.Context) (*inventory.Snapshot, error) {
	meds, err := r.ListMedicines(ctx)
	if err != nil {
		return nil, fmt.Errorf("load medicines: %w", err)
	}
	links, err := r.ListAlternatives(ctx)
	if err != nil {
		return nil, fmt.Errorf("load alternatives: %w", err)
	}
	r.logger.Debug("inventory snapshot loaded", "medicines", len(meds), "links", len(links))
	return inventory.NewSnapshot(meds, links), nil
}

func (r *inventoryRepo) medicines(ctx context.Context, q string, args []any) ([]entity.Medicine, error) {
	var out []entity.Medicine
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			m                entity.Medicine
			id               string
			created, updated int64
		)
		if err := rows.Scan(&id, &m.Name, &m.Composition, &m.StockQuantity, &m.Manufacturer, &created, &updated); err != nil {
			return err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return fmt.Errorf("medicine id %q: %w", id, err)
		}
		m.ID = parsed
		m.CreatedAt, m.UpdatedAt = fromNano(created), fromNano(updated)
		out = append(out, m)
		return nil
	})
	return out, err
}

// alternatives lists links in creation order, optionally filtered.
func (r *inventoryRepo) alternatives(ctx context.Context, where *entsql.Predicate) ([]entity.Alternative, error) {
	sel := r.db.builder().Select("id", "medicine_id", "alternative_id", "created_at").
		From(entsql.Table(tableAlternatives)).
		OrderBy("created_at", "id")
	if where != nil {
		sel.Where(where)
	}
	q, args := sel.Query()

	var out []entity.Alternative
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			id, med, alt string
			created      int64
		)
		if err := rows.Scan(&id, &med, &alt, &created); err != nil {
			return err
		}
		a := entity.Alternative{CreatedAt: fromNano(created)}
		var err error
		if a.ID, err = uuid.Parse(id); err != nil {
			return err
		}
		if a.MedicineID, err = uuid.Parse(med); err != nil {
			return err
		}
		if a.AlternativeID, err = uuid.Parse(alt); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list alternatives", "error", err)
	}
	return out, err
}
