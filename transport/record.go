package transport

import (
	"bufio"
	"fmt"
	"io"

	"github.com/AbhishekMusku/spraptor/engine"
)

// RecordWriter emits OutputRecords as text lines. spec.md §4.5/§9 leaves
// the numeric rendering as an open choice between decimal-real and
// integer formatting; this implementation picks integer (see
// DESIGN.md's Open Question resolution) since Value has no fractional
// semantics anywhere in the data model.
type RecordWriter struct {
	w *bufio.Writer
}

// NewRecordWriter wraps w for buffered line-at-a-time emission.
func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: bufio.NewWriter(w)}
}

// Write encodes one record as "<row>,<col>,<value>\n".
func (rw *RecordWriter) Write(r engine.OutputRecord) error {
	_, err := fmt.Fprintf(rw.w, "%d,%d,%d\n", r.Row, r.Col, r.Value)
	return err
}

// Flush pushes any buffered bytes to the underlying writer.
func (rw *RecordWriter) Flush() error {
	return rw.w.Flush()
}
