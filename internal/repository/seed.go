package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

//go:embed seed/sample.toml
var sampleSeed []byte

// SeedData is the on-disk shape of an inventory seed file.
type SeedData struct {
	Medicines    []entity.Medicine `json:"medicines" toml:"medicines"`
	Alternatives []SeedLink        `json:"alternatives" toml:"alternatives"`
}

// SeedLink names both ends of an alternative link.
type SeedLink struct {
	Medicine    string `json:"medicine" toml:"medicine"`
	Alternative string `json:"alternative" toml:"alternative"`
}

type SeedReport struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
	Links    int `json:"links"`
}

// SampleSeed returns the bundled sample inventory.
func SampleSeed() (SeedData, error) {
	var d SeedData
	if err := toml.Unmarshal(sampleSeed, &d); err != nil {
		return SeedData{}, fmt.Errorf("parse sample seed: %w", err)
	}
	return d, nil
}

// LoadSeedFile parses a .json seed file, or TOML for any other extension.
func LoadSeedFile(path string) (SeedData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return SeedData{}, err
	}
	var d SeedData
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(b, &d)
	} else {
		err = toml.Unmarshal(b, &d)
	}
	if err != nil {
		return SeedData{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return d, nil
}

// Seed creates missing medicines and links. Medicines that already exist by
// name are left as they are.
func Seed(ctx context.Context, repo InventoryRepository, data SeedData, logger *slog.Logger) (SeedReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var rep SeedReport
	byName := make(map[string]*entity.Medicine, len(data.Medicines))

	for _, m := range data.Medicines {
		existing, err := repo.GetMedicineByName(ctx, m.Name)
		switch {
		case err == nil:
			rep.Existing++
			byName[existing.Name] = existing
			logger.Debug("seed.medicine.exists", "name", existing.Name)
			continue
		case !errors.Is(err, common.ErrNotFound):
			return rep, err
		}
		created, err := repo.CreateMedicine(ctx, m)
		if err != nil {
			return rep, fmt.Errorf("seed medicine %q: %w", m.Name, err)
		}
		rep.Created++
		byName[created.Name] = created
		logger.Debug("seed.medicine.created", "name", created.Name)
	}

	resolve := func(name string) (*entity.Medicine, error) {
		name = strings.TrimSpace(name)
		if m, ok := byName[name]; ok {
			return m, nil
		}
		return repo.GetMedicineByName(ctx, name)
	}
	for _, l := range data.Alternatives {
		from, err := resolve(l.Medicine)
		if err != nil {
			return rep, fmt.Errorf("seed link %q -> %q: %w", l.Medicine, l.Alternative, err)
		}
		to, err := resolve(l.Alternative)
		if err != nil {
			return rep, fmt.Errorf("seed link %q -> %q: %w", l.Medicine, l.Alternative, err)
		}
		if _, created, err := repo.AddAlternative(ctx, from.ID, to.ID); err != nil {
			return rep, err
		} else if created {
			rep.Links++
		}
	}

	logger.Info("seed.done", "created", rep.Created, "existing", rep.Existing, "links", rep.Links)
	return rep, nil
}
