package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rx-resolver/internal/export"
	"github.com/joseph-ayodele/rx-resolver/internal/ingest"
	"github.com/joseph-ayodele/rx-resolver/internal/inventory"
	"github.com/joseph-ayodele/rx-resolver/internal/pipeline"
)

var (
	processJSON    bool
	processXLSX    string
	processNoStore bool
	ocrJSON        bool
)

var processCmd = &cobra.Command{
	Use:   "process <file|dir>...",
	Short: "Extract medicines from prescriptions and check inventory",
	Long: `Recovers the text of each prescription (jpg, jpeg, png or pdf), extracts
the medicine names and reports availability, stock and a substitute for each.
Directories are scanned recursively.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

var ocrCmd = &cobra.Command{
	Use:   "ocr <file>",
	Short: "Print the recovered text of a prescription",
	Args:  cobra.ExactArgs(1),
	RunE:  runOCR,
}

func init() {
	processCmd.Flags().BoolVar(&processJSON, "json", false, "output results as JSON")
	processCmd.Flags().StringVar(&processXLSX, "xlsx", "", "also write the results to this XLSX file")
	processCmd.Flags().BoolVar(&processNoStore, "no-store", false, "do not record the prescriptions")
	ocrCmd.Flags().BoolVar(&ocrJSON, "json", false, "output text and backend details as JSON")
	rootCmd.AddCommand(processCmd, ocrCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	paths, err := ingest.ExpandPaths(args, true)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no prescriptions found")
	}
	if err := a.openDB(ctx); err != nil {
		return err
	}
	proc, err := a.newProcessor(ctx, !processNoStore)
	if err != nil {
		return err
	}

	var (
		outcomes []pipeline.Outcome
		errs     []error
	)
	for _, p := range paths {
		doc, err := ingest.LoadDocument(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		out, err := proc.Process(ctx, doc)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		outcomes = append(outcomes, out)
	}

	if processJSON {
		if err := printJSON(cmd, outcomes); err != nil {
			return err
		}
	} else {
		for _, o := range outcomes {
			printOutcome(cmd, o)
		}
	}
	if processXLSX != "" && len(outcomes) > 0 {
		b, err := export.OutcomesXLSX(outcomes)
		if err != nil {
			return err
		}
		if err := writeFile(processXLSX, b); err != nil {
			return err
		}
		cmd.PrintErrf("wrote %s\n", processXLSX)
	}
	return errors.Join(errs...)
}

func runOCR(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := ingest.LoadDocument(args[0])
	if err != nil {
		return err
	}
	res, err := a.newEngine().RecoverText(cmd.Context(), doc)
	if err != nil {
		return err
	}
	if ocrJSON {
		return printJSON(cmd, map[string]any{
			"path":       doc.Path,
			"kind":       res.Kind,
			"method":     res.Method,
			"pages":      res.Pages,
			"elapsed_ms": res.Duration.Milliseconds(),
			"warnings":   res.Warnings,
			"text":       res.Text,
			"sha256":     doc.HashHex,
			"size_bytes": doc.Size,
		})
	}
	cmd.Println(res.Text)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printOutcome(cmd *cobra.Command, o pipeline.Outcome) {
	cmd.Printf("%s (text: %s, names: %s)\n", o.Source, o.OCRMethod, o.NameMethod)
	if len(o.Entries) == 0 {
		cmd.Println("  No medicines found.")
		cmd.Println()
		return
	}
	for _, e := range o.Entries {
		printEntry(cmd, e)
	}
	cmd.Println()
}

func printEntry(cmd *cobra.Command, e inventory.Entry) {
	switch {
	case e.Stock == nil:
		cmd.Printf("  %-28s %s\n", e.MedicineName, e.Status)
	default:
		cmd.Printf("  %-28s %-13s stock %d\n", e.MedicineName, e.Status, *e.Stock)
	}
	if e.Alternative != nil {
		cmd.Printf("  %-28s alternative %s (stock %d)\n", "", e.Alternative.Name, e.Alternative.Stock)
	}
}
