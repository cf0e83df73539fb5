package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rx-resolver/constants"
	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/entity"
	"github.com/joseph-ayodele/rx-resolver/internal/export"
	"github.com/joseph-ayodele/rx-resolver/internal/repository"
)

var (
	inventoryJSON     bool
	seedSample        bool
	searchLimit       int
	lowStockThreshold int
	addComposition    string
	addManufacturer   string
	addStock          int
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Manage medicines and stock",
}

var inventorySeedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load medicines and alternatives from a TOML or JSON file",
	Long: `Creates every medicine in the file that does not exist yet and links the
listed alternatives. Existing medicines are left unchanged.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInventorySeed,
}

var inventoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a medicine",
	Args:  cobra.ExactArgs(1),
	RunE:  runInventoryAdd,
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List medicines by name",
	Args:  cobra.NoArgs,
	RunE:  runInventoryList,
}

var inventorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search name, composition and manufacturer",
	Args:  cobra.ExactArgs(1),
	RunE:  runInventorySearch,
}

var inventoryLowStockCmd = &cobra.Command{
	Use:   "low-stock",
	Short: "List medicines below a stock threshold",
	Args:  cobra.NoArgs,
	RunE:  runInventoryLowStock,
}

var inventorySetStockCmd = &cobra.Command{
	Use:   "set-stock <name> <quantity>",
	Short: "Set the stock of a medicine",
	Args:  cobra.ExactArgs(2),
	RunE:  runInventorySetStock,
}

var inventoryExportCmd = &cobra.Command{
	Use:   "export <out.xlsx>",
	Short: "Write the inventory to an XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInventoryExport,
}

func init() {
	inventoryCmd.PersistentFlags().BoolVar(&inventoryJSON, "json", false, "output as JSON")
	inventorySeedCmd.Flags().BoolVar(&seedSample, "sample", false, "load the bundled sample inventory")
	inventoryAddCmd.Flags().StringVar(&addComposition, "composition", "", "active ingredients")
	inventoryAddCmd.Flags().StringVar(&addManufacturer, "manufacturer", "", "manufacturer name")
	inventoryAddCmd.Flags().IntVar(&addStock, "stock", 0, "initial stock")
	inventorySearchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results")
	inventoryLowStockCmd.Flags().IntVar(&lowStockThreshold, "threshold", constants.LowStockThreshold, "report stock below this value")

	inventoryCmd.AddCommand(
		inventorySeedCmd,
		inventoryAddCmd,
		inventoryListCmd,
		inventorySearchCmd,
		inventoryLowStockCmd,
		inventorySetStockCmd,
		inventoryExportCmd,
	)
	rootCmd.AddCommand(inventoryCmd)
}

type medicineView struct {
	entity.Medicine
	IsAvailable bool `json:"is_available"`
}

func runInventorySeed(cmd *cobra.Command, args []string) error {
	var (
		data repository.SeedData
		err  error
	)
	switch {
	case seedSample:
		data, err = repository.SampleSeed()
	case len(args) == 1:
		data, err = repository.LoadSeedFile(args[0])
	default:
		return common.InvalidArgumentErrorf("a seed file or --sample is required")
	}
	if err != nil {
		return err
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openDB(cmd.Context()); err != nil {
		return err
	}
	rep, err := repository.Seed(cmd.Context(), a.inventory, data, a.logger)
	if err != nil {
		return err
	}
	if inventoryJSON {
		return printJSON(cmd, rep)
	}
	cmd.Printf("Created %d medicines (%d already present), %d alternative links.\n", rep.Created, rep.Existing, rep.Links)
	return nil
}

func runInventoryAdd(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openDB(cmd.Context()); err != nil {
		return err
	}
	m, err := a.inventory.CreateMedicine(cmd.Context(), entity.Medicine{
		Name:          args[0],
		Composition:   addComposition,
		Manufacturer:  addManufacturer,
		StockQuantity: addStock,
	})
	if err != nil {
		return err
	}
	if inventoryJSON {
		return printJSON(cmd, medicineView{Medicine: *m, IsAvailable: m.IsAvailable()})
	}
	cmd.Printf("Added %s (stock %d)\n", m.Name, m.StockQuantity)
	return nil
}

func runInventoryList(cmd *cobra.Command, _ []string) error {
	return withInventory(cmd, func(a *app) ([]entity.Medicine, error) {
		return a.inventory.ListMedicines(cmd.Context())
	})
}

func runInventorySearch(cmd *cobra.Command, args []string) error {
	return withInventory(cmd, func(a *app) ([]entity.Medicine, error) {
		return a.inventory.SearchMedicines(cmd.Context(), args[0], searchLimit)
	})
}

func runInventoryLowStock(cmd *cobra.Command, _ []string) error {
	return withInventory(cmd, func(a *app) ([]entity.Medicine, error) {
		return a.inventory.LowStock(cmd.Context(), lowStockThreshold)
	})
}

func runInventorySetStock(cmd *cobra.Command, args []string) error {
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return common.InvalidArgumentErrorf("quantity %q is not a number", args[1])
	}
	return withInventory(cmd, func(a *app) ([]entity.Medicine, error) {
		m, err := a.inventory.SetStock(cmd.Context(), args[0], qty)
		if err != nil {
			return nil, err
		}
		return []entity.Medicine{*m}, nil
	})
}

func runInventoryExport(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openDB(cmd.Context()); err != nil {
		return err
	}
	items, err := a.inventory.ListMedicines(cmd.Context())
	if err != nil {
		return err
	}
	b, err := export.InventoryXLSX(items)
	if err != nil {
		return err
	}
	if err := writeFile(args[0], b); err != nil {
		return err
	}
	cmd.Printf("Wrote %d medicines to %s\n", len(items), args[0])
	return nil
}

// withInventory opens the database, runs list and prints the medicines it returns.
func withInventory(cmd *cobra.Command, list func(a *app) ([]entity.Medicine, error)) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openDB(cmd.Context()); err != nil {
		return err
	}
	items, err := list(a)
	if err != nil {
		return err
	}

	views := make([]medicineView, 0, len(items))
	for _, m := range items {
		views = append(views, medicineView{Medicine: m, IsAvailable: m.IsAvailable()})
	}
	if inventoryJSON {
		return printJSON(cmd, views)
	}
	if len(views) == 0 {
		cmd.Println("No medicines found.")
		return nil
	}
	for _, v := range views {
		cmd.Printf("  %-28s %6d  %-26s %s\n", v.Name, v.StockQuantity, v.Composition, v.Manufacturer)
	}
	return nil
}
