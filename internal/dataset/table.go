package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Table is the unified observation table: one row per timestamped sensor
// reading, column-major float64 storage with NaN for missing values, and a
// country label per row assigned by the loader. Tables are never mutated
// after construction; filtering produces a new Table.
type Table struct {
	timestamps []time.Time
	countries  []string
	order      []string
	columns    map[string][]float64
}

// ColumnNotFoundError signals that a requested metric is not a column of
// the table. Callers treat it as a precondition violation, not a skip.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

// NewTable returns an empty table with the given measurement columns.
func NewTable(columns []string) *Table {
	t := &Table{
		order:   append([]string(nil), columns...),
		columns: make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		t.columns[c] = nil
	}
	return t
}

// AppendRow adds one reading. Columns absent from values are stored as NaN.
func (t *Table) AppendRow(ts time.Time, country string, values map[string]float64) {
	t.timestamps = append(t.timestamps, ts)
	t.countries = append(t.countries, country)
	for _, c := range t.order {
		v, ok := values[c]
		if !ok {
			v = math.NaN()
		}
		t.columns[c] = append(t.columns[c], v)
	}
}

func (t *Table) Len() int {
	return len(t.timestamps)
}

// Columns returns the measurement column names in their original order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.order...)
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns the values for a column. The slice is shared with the
// table and must not be modified.
func (t *Table) Column(name string) ([]float64, bool) {
	vals, ok := t.columns[name]
	return vals, ok
}

func (t *Table) TimestampAt(i int) time.Time {
	return t.timestamps[i]
}

func (t *Table) CountryAt(i int) string {
	return t.countries[i]
}

// Countries returns the distinct country labels present, sorted.
func (t *Table) Countries() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range t.countries {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// GroupedColumn partitions a column's non-missing values by country.
func (t *Table) GroupedColumn(name string) (map[string][]float64, bool) {
	vals, ok := t.columns[name]
	if !ok {
		return nil, false
	}
	groups := make(map[string][]float64)
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		groups[t.countries[i]] = append(groups[t.countries[i]], v)
	}
	return groups, true
}

// FilterCountries returns a copy restricted to rows whose country is in
// names. An empty names list yields an empty table.
func (t *Table) FilterCountries(names ...string) *Table {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	return t.filter(func(i int) bool { return want[t.countries[i]] })
}

// FilterRange returns a copy restricted to rows with from <= ts < to.
func (t *Table) FilterRange(from, to time.Time) *Table {
	return t.filter(func(i int) bool {
		ts := t.timestamps[i]
		return !ts.Before(from) && ts.Before(to)
	})
}

func (t *Table) filter(keep func(i int) bool) *Table {
	out := NewTable(t.order)
	for i := range t.timestamps {
		if !keep(i) {
			continue
		}
		out.timestamps = append(out.timestamps, t.timestamps[i])
		out.countries = append(out.countries, t.countries[i])
		for _, c := range t.order {
			out.columns[c] = append(out.columns[c], t.columns[c][i])
		}
	}
	return out
}

// Concat concatenates tables row-wise, preserving row order within each
// table and table order across the arguments. The result's columns are the
// union of the inputs' columns in first-seen order; columns missing from
// an input are NaN-filled for its rows.
func Concat(tables ...*Table) *Table {
	var order []string
	seen := make(map[string]bool)
	for _, t := range tables {
		for _, c := range t.order {
			if !seen[c] {
				seen[c] = true
				order = append(order, c)
			}
		}
	}

	out := NewTable(order)
	for _, t := range tables {
		for i := range t.timestamps {
			out.timestamps = append(out.timestamps, t.timestamps[i])
			out.countries = append(out.countries, t.countries[i])
		}
		for _, c := range order {
			src, ok := t.columns[c]
			if ok {
				out.columns[c] = append(out.columns[c], src...)
				continue
			}
			for range t.timestamps {
				out.columns[c] = append(out.columns[c], math.NaN())
			}
		}
	}
	return out
}
