package ukf

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StateHeaders are the CSV headers of the CTRV state components.
var StateHeaders = []string{"px", "py", "v", "yaw", "yawd"}

// Exporter defines an export interface.
type Exporter interface {
	Write(Estimate) error
	Close() error
}

// CSVExporter writes estimates as CSV rows.
type CSVExporter struct {
	delimiter string
	w         *bufio.Writer
	closer    io.Closer
}

// Close writes the closing date and closes the underlying writer.
func (e *CSVExporter) Close() error {
	if err := e.WriteRawLn(fmt.Sprintf("# Closing date (UTC): %s", time.Now().UTC())); err != nil {
		return err
	}
	if err := e.w.Flush(); err != nil {
		return err
	}
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}

// Write writes the estimate to the CSV file.
func (e *CSVExporter) Write(est Estimate) error {
	state := est.State()
	covar := est.Covariance()
	r := state.Len()
	vals := make([]string, 0, r*3+3)
	for i := 0; i < r; i++ {
		x := state.AtVec(i)
		bound := 2 * math.Sqrt(covar.At(i, i))
		vals = append(vals,
			fmt.Sprintf("%f", x),
			fmt.Sprintf("%f", x+bound),
			fmt.Sprintf("%f", x-bound))
	}
	nis := ""
	if est.Corrected() {
		nis = fmt.Sprintf("%f", est.NIS())
	}
	vals = append(vals, fmt.Sprintf("%d", est.Timestamp()), est.Sensor().String(), nis)
	return e.WriteRawLn(strings.Join(vals, e.delimiter))
}

// WriteRawLn writes a raw line to the CSV file.
func (e *CSVExporter) WriteRawLn(s string) error {
	_, err := e.w.WriteString(s + "\n")
	return err
}

// NewCSVExporter initializes a new CSV export to w. If w is an io.Closer, it
// is closed by Close.
func NewCSVExporter(headers []string, w io.Writer) (*CSVExporter, error) {
	delimiter := ","
	hdr := make([]string, 0, len(headers)*3+3)
	for _, h := range headers {
		hdr = append(hdr, h, h+"+2s", h+"-2s")
	}
	hdr = append(hdr, "timestamp", "sensor", "nis")
	e := &CSVExporter{delimiter: delimiter, w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		e.closer = c
	}
	if err := e.WriteRawLn(fmt.Sprintf("# Creation date (UTC): %s\n%s", time.Now().UTC(), strings.Join(hdr, delimiter))); err != nil {
		return nil, err
	}
	return e, nil
}

// CreateCSVExporter creates the file dir/filename and returns an exporter writing to it.
func CreateCSVExporter(headers []string, dir, filename string) (*CSVExporter, error) {
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return nil, err
	}
	e, err := NewCSVExporter(headers, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return e, nil
}
