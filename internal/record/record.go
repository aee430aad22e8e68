// Package record serializes per-cycle bench output as flat CSV. This
// is the only persistence the bench has: a header, one numeric row per
// cycle, and a couple of '#' comment lines carrying run metadata.
package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/roverbench/slip.report/internal/estimator"
)

// Meta identifies a run. It is written as comment lines ahead of the
// CSV header.
type Meta struct {
	RunID   string
	Terrain string
}

// NewRunID returns a globally unique run identifier.
func NewRunID() string {
	return fmt.Sprintf("run_%s", uuid.NewString())
}

// Cycle is one bench cycle: ground truth, what the sensors reported,
// what the estimator concluded, and the slip signals.
type Cycle struct {
	Time         float64
	Truth        estimator.Vec
	Measurement  estimator.Vec
	Estimate     estimator.Vec
	Innovation   float64
	SlipDetected bool
	SlipInjected bool
}

// Header returns the CSV column names, ordered as rows are written.
func Header() []string {
	cols := []string{"time"}
	for _, group := range []string{"truth", "meas", "est"} {
		for _, comp := range []string{"x", "y", "z", "heading", "pitch"} {
			cols = append(cols, group+"_"+comp)
		}
	}
	return append(cols, "innovation", "slip_detected", "slip_injected")
}

func (c Cycle) row() []string {
	row := make([]string, 0, len(Header()))
	row = append(row, formatFloat(c.Time))
	for _, vec := range []estimator.Vec{c.Truth, c.Measurement, c.Estimate} {
		for _, v := range vec {
			row = append(row, formatFloat(v))
		}
	}
	row = append(row, formatFloat(c.Innovation), formatBool(c.SlipDetected), formatBool(c.SlipInjected))
	return row
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Writer streams cycles to CSV.
type Writer struct {
	cw *csv.Writer
}

// NewWriter writes the metadata comments and header to w and returns a
// Writer for the cycle rows.
func NewWriter(w io.Writer, meta Meta) (*Writer, error) {
	if _, err := fmt.Fprintf(w, "# run_id=%s\n# terrain=%s\n", meta.RunID, meta.Terrain); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{cw: cw}, nil
}

// Write appends one cycle row.
func (w *Writer) Write(c Cycle) error {
	return w.cw.Write(c.row())
}

// Flush flushes buffered rows and reports any deferred write error.
func (w *Writer) Flush() error {
	w.cw.Flush()
	return w.cw.Error()
}

// Read parses a run written by Writer: metadata comments, header, then
// cycle rows.
func Read(r io.Reader) (Meta, []Cycle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Meta{}, nil, fmt.Errorf("read run: %w", err)
	}

	var meta Meta
	var body strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "#") {
			key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), "=")
			if !ok {
				continue
			}
			switch key {
			case "run_id":
				meta.RunID = value
			case "terrain":
				meta.Terrain = value
			}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}

	cr := csv.NewReader(strings.NewReader(body.String()))
	rows, err := cr.ReadAll()
	if err != nil {
		return Meta{}, nil, fmt.Errorf("parse run CSV: %w", err)
	}
	if len(rows) == 0 {
		return Meta{}, nil, fmt.Errorf("run CSV has no header")
	}
	want := Header()
	if len(rows[0]) != len(want) {
		return Meta{}, nil, fmt.Errorf("run CSV header has %d columns, want %d", len(rows[0]), len(want))
	}

	cycles := make([]Cycle, 0, len(rows)-1)
	for i, row := range rows[1:] {
		c, err := parseRow(row)
		if err != nil {
			return Meta{}, nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		cycles = append(cycles, c)
	}
	return meta, cycles, nil
}

func parseRow(row []string) (Cycle, error) {
	want := len(Header())
	if len(row) != want {
		return Cycle{}, fmt.Errorf("has %d columns, want %d", len(row), want)
	}

	fields := make([]float64, len(row))
	for i, s := range row {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Cycle{}, fmt.Errorf("column %q: %w", Header()[i], err)
		}
		fields[i] = v
	}

	var c Cycle
	c.Time = fields[0]
	next := 1
	for _, vec := range []*estimator.Vec{&c.Truth, &c.Measurement, &c.Estimate} {
		for i := 0; i < estimator.StateDim; i++ {
			vec[i] = fields[next]
			next++
		}
	}
	c.Innovation = fields[next]
	c.SlipDetected = fields[next+1] != 0
	c.SlipInjected = fields[next+2] != 0
	return c, nil
}
