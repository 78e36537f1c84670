package feature

import (
	"time"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Table is a dated feature matrix. Rows share the ordering of the source bar
// series; columns are named derived indicators. Each column records how many
// leading rows are undefined (its warm-up), so the engine can trim the
// maximal warm-up prefix once all columns are present.
type Table struct {
	dates   []time.Time
	names   []string
	index   map[string]int
	cols    [][]float64
	warmups []int
}

// NewTable creates an empty table over the given daily timeline.
func NewTable(dates []time.Time) *Table {
	copied := make([]time.Time, len(dates))
	copy(copied, dates)

	return &Table{
		dates:   copied,
		names:   nil,
		index:   make(map[string]int),
		cols:    nil,
		warmups: nil,
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.dates)
}

// Dates returns the row timeline.
func (t *Table) Dates() []time.Time {
	return t.dates
}

// Names returns the column names in insertion order.
func (t *Table) Names() []string {
	names := make([]string, len(t.names))
	copy(names, t.names)

	return names
}

// Has reports whether the table contains a column.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]

	return ok
}

// Add appends a named column. The warmup is the count of leading rows whose
// values are undefined for this column.
func (t *Table) Add(name string, values []float64, warmup int) error {
	if len(values) != len(t.dates) {
		return errors.Newf(errors.ErrCodeFeatureCalculation,
			"column %s has %d values for %d rows", name, len(values), len(t.dates))
	}

	if _, exists := t.index[name]; exists {
		return errors.Newf(errors.ErrCodeFeatureCalculation, "column %s already present", name)
	}

	t.index[name] = len(t.names)
	t.names = append(t.names, name)
	t.cols = append(t.cols, values)
	t.warmups = append(t.warmups, warmup)

	return nil
}

// Column returns the values of a named column.
func (t *Table) Column(name string) ([]float64, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeFeatureNotFound, "column %s not found", name)
	}

	return t.cols[idx], nil
}

// Value returns a single cell.
func (t *Table) Value(name string, row int) (float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return 0, err
	}

	if row < 0 || row >= len(col) {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "row %d out of range [0,%d)", row, len(col))
	}

	return col[row], nil
}

// Warmup returns the maximal warm-up across all columns: the number of
// leading rows that must be dropped before every column is defined.
func (t *Table) Warmup() int {
	warmup := 0

	for _, w := range t.warmups {
		if w > warmup {
			warmup = w
		}
	}

	return warmup
}

// TrimWarmup drops the maximal warm-up prefix from every column and the
// timeline, returning the number of rows removed.
func (t *Table) TrimWarmup() int {
	warmup := t.Warmup()
	if warmup == 0 {
		return 0
	}

	if warmup > len(t.dates) {
		warmup = len(t.dates)
	}

	t.dates = t.dates[warmup:]
	for i := range t.cols {
		t.cols[i] = t.cols[i][warmup:]
		t.warmups[i] = 0
	}

	return warmup
}

// Matrix materializes a row-major matrix over the manifest columns, in
// manifest order. A missing column is a manifest mismatch error naming the
// offending column.
func (t *Table) Matrix(manifest []string) ([][]float64, error) {
	selected := make([][]float64, len(manifest))

	for i, name := range manifest {
		idx, ok := t.index[name]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeManifestMismatch, "feature table is missing manifest column %s", name)
		}

		selected[i] = t.cols[idx]
	}

	rows := make([][]float64, t.Len())

	for r := range rows {
		row := make([]float64, len(manifest))
		for c := range manifest {
			row[c] = selected[c][r]
		}

		rows[r] = row
	}

	return rows, nil
}
