package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/export"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently processed prescriptions",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var exportCmd = &cobra.Command{
	Use:   "export <out.xlsx> [prescription-id...]",
	Short: "Write prescription results to an XLSX file",
	Long: `Writes one row per medicine of each listed prescription. Without ids every
stored prescription with results is exported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of prescriptions")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd, exportCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openDB(cmd.Context()); err != nil {
		return err
	}
	recs, err := a.prescriptions.ListRecent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		return printJSON(cmd, recs)
	}
	if len(recs) == 0 {
		cmd.Println("No prescriptions yet.")
		return nil
	}
	for _, p := range recs {
		cmd.Printf("  %s  %s  %-7s %2d medicines  %s\n",
			p.ID, p.CreatedAt.Local().Format("2006-01-02 15:04"), p.Status, p.ResultsCount, p.SourcePath)
		if p.ErrorMessage != nil {
			cmd.Printf("      error: %s\n", *p.ErrorMessage)
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ids := make([]uuid.UUID, 0, len(args)-1)
	for _, s := range args[1:] {
		id, err := uuid.Parse(s)
		if err != nil {
			return common.InvalidArgumentErrorf("prescription id %q: %v", s, err)
		}
		ids = append(ids, id)
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openDB(cmd.Context()); err != nil {
		return err
	}
	b, err := export.NewService(a.prescriptions, a.logger).PrescriptionsXLSX(cmd.Context(), ids)
	if err != nil {
		return err
	}
	if err := writeFile(args[0], b); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", args[0])
	return nil
}
