package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/teemow/mailexport/internal/extract"
)

// RowWriter writes CSV rows in one shape, flushing after every row.
// Lines end in CRLF as RFC 4180 prescribes.
type RowWriter struct {
	csv   *csv.Writer
	shape RowShape
}

// NewRowWriter creates a RowWriter on w.
func NewRowWriter(w io.Writer, shape RowShape) *RowWriter {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return &RowWriter{csv: cw, shape: shape}
}

// WriteHeader writes the shape's header row.
func (w *RowWriter) WriteHeader() error {
	return w.write(w.shape.Header())
}

// Write writes one row.
func (w *RowWriter) Write(row extract.Row) error {
	return w.write(w.shape.Record(row))
}

func (w *RowWriter) write(record []string) error {
	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV row: %w", err)
	}
	return nil
}
