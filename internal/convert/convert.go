// Package convert turns .docx input into the .pdf form the upload API
// expects. Conversion shells out to LibreOffice; the result is probed before
// use so an unreadable output fails fast instead of at generation time.
package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const DefaultBinary = "soffice"

// Converter produces a PDF from a source document and returns its path.
type Converter interface {
	ToPDF(ctx context.Context, sourcePath string, outputDirectory string) (string, error)
}

// LibreOffice converts via a headless soffice invocation.
type LibreOffice struct {
	Binary string
	Logger *zap.Logger
}

func (l LibreOffice) ToPDF(ctx context.Context, sourcePath string, outputDirectory string) (string, error) {
	binary := l.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	if err := os.MkdirAll(outputDirectory, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", outputDirectory, err)
	}

	command := exec.CommandContext(ctx, binary,
		"--headless", "--convert-to", "pdf", "--outdir", outputDirectory, sourcePath)
	output, runErr := command.CombinedOutput()
	if runErr != nil {
		return "", fmt.Errorf("convert %s: %w: %s", sourcePath, runErr, strings.TrimSpace(string(output)))
	}

	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	converted := filepath.Join(outputDirectory, stem+".pdf")
	if _, statErr := os.Stat(converted); statErr != nil {
		return "", fmt.Errorf("converted file missing for %s: %w", sourcePath, statErr)
	}
	if l.Logger != nil {
		l.Logger.Info("converted document", zap.String("source", sourcePath), zap.String("pdf", converted))
	}
	return converted, nil
}
