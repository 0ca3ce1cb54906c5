package stats

import (
	"github.com/abelk/solarscope/internal/dataset"
)

// ComparisonRow is one (metric, country) comparative record.
type ComparisonRow struct {
	Metric  string
	Country string
	Mean    float64
	Median  float64
	Std     float64
}

// Compare computes mean, median and sample standard deviation per country
// for each requested metric, ignoring missing values. Records are ordered
// by the metric list, then by country label; every country present in the
// table gets a record even when all its values for a metric are missing
// (the stats are then NaN). A metric that is not a column of the table is
// a *dataset.ColumnNotFoundError, never silently skipped.
func Compare(t *dataset.Table, metricNames []string) ([]ComparisonRow, error) {
	countries := t.Countries()

	var out []ComparisonRow
	for _, metric := range metricNames {
		groups, ok := t.GroupedColumn(metric)
		if !ok {
			return nil, &dataset.ColumnNotFoundError{Column: metric}
		}

		for _, country := range countries {
			vals := groups[country]
			out = append(out, ComparisonRow{
				Metric:  metric,
				Country: country,
				Mean:    meanOf(vals),
				Median:  medianOf(vals),
				Std:     stdOf(vals),
			})
		}
	}
	return out, nil
}
