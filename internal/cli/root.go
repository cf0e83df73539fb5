// Package cli is the rxctl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rx-resolver/internal/common"
	"github.com/joseph-ayodele/rx-resolver/internal/ingest"
	"github.com/joseph-ayodele/rx-resolver/internal/ocr"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "rxctl",
	Short: "Read prescriptions and check the medicines against inventory",
	Long: `rxctl recovers the text of a prescription scan (image or PDF), picks out
the medicine names and reports stock and substitutes for each of them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default $RX_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default $RX_LOG_LEVEL or info)")
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return ExitCode(err)
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ocr.ErrUnsupportedMediaKind), errors.Is(err, ingest.ErrUnsupportedExtension):
		return 2
	case errors.Is(err, ocr.ErrBackendUnavailable):
		return 3
	case errors.Is(err, ocr.ErrDocumentExtraction):
		return 4
	case errors.Is(err, common.ErrInvalidInput):
		return 5
	case errors.Is(err, common.ErrDatabase):
		return 6
	default:
		return 1
	}
}
