package convert

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ProbePDF checks that a converted file is a readable PDF with at least one
// page. LibreOffice occasionally writes a zero-page shell on malformed
// input.
func ProbePDF(path string) error {
	file, reader, openErr := pdf.Open(path)
	if openErr != nil {
		return fmt.Errorf("open pdf %s: %w", path, openErr)
	}
	defer file.Close()

	if reader.NumPage() < 1 {
		return fmt.Errorf("pdf %s has no pages", path)
	}
	return nil
}
