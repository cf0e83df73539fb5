//go:build !gosseract

package ocr

import "log/slog"

// newLocalBackend shells out to the tesseract executable. Build with
// -tags gosseract to link libtesseract instead.
func newLocalBackend(cfg Config, runner Runner, _ *slog.Logger) Backend {
	return &tesseractCLI{
		bin:      cfg.TesseractCmd,
		lang:     cfg.TesseractLang,
		tessdata: cfg.TessdataDir,
		psm:      cfg.PSM,
		oem:      cfg.OEM,
		runner:   runner,
	}
}
