package stats

import (
	"math"

	"github.com/abelk/solarscope/internal/dataset"
)

// DefaultZThreshold matches the conventional |Z| > 3 outlier rule.
const DefaultZThreshold = 3.0

// OutlierResult pairs the per-row outlier mask with a cleaned view of the
// table that drops every flagged row.
type OutlierResult struct {
	Mask    []bool
	Flagged int
	Cleaned *dataset.Table
}

// FlagOutliers marks a row when any of the requested columns has
// |value-mean|/std above threshold, standardising each column on its
// non-missing values. Missing cells never flag a row. A column with zero
// standard deviation contributes no flags.
func FlagOutliers(t *dataset.Table, columns []string, threshold float64) (*OutlierResult, error) {
	if threshold <= 0 {
		threshold = DefaultZThreshold
	}

	mask := make([]bool, t.Len())
	for _, name := range columns {
		vals, ok := t.Column(name)
		if !ok {
			return nil, &dataset.ColumnNotFoundError{Column: name}
		}

		present := dropMissing(vals)
		mean := meanOf(present)
		std := stdOf(present)
		if math.IsNaN(std) || std == 0 {
			continue
		}

		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			if math.Abs(v-mean)/std > threshold {
				mask[i] = true
			}
		}
	}

	res := &OutlierResult{Mask: mask}
	for _, flagged := range mask {
		if flagged {
			res.Flagged++
		}
	}
	res.Cleaned = dropRows(t, mask)
	return res, nil
}

func dropRows(t *dataset.Table, mask []bool) *dataset.Table {
	out := dataset.NewTable(t.Columns())
	for i := 0; i < t.Len(); i++ {
		if mask[i] {
			continue
		}
		values := make(map[string]float64, len(t.Columns()))
		for _, c := range t.Columns() {
			col, _ := t.Column(c)
			values[c] = col[i]
		}
		out.AppendRow(t.TimestampAt(i), t.CountryAt(i), values)
	}
	return out
}
