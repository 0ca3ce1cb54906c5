package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/abelk/solarscope/internal/dataset"
)

// InsufficientGroupsError signals a one-way ANOVA request over fewer than
// two non-empty country groups. The test is undefined there; returning it
// as a hard error keeps a NaN p-value from ever being read as a verdict.
type InsufficientGroupsError struct {
	Metric string
	Groups int
}

func (e *InsufficientGroupsError) Error() string {
	return fmt.Sprintf("anova on %q: need at least 2 non-empty groups, have %d", e.Metric, e.Groups)
}

// InsufficientObservationsError signals groups too small to leave any
// within-group degrees of freedom (for example one observation per group).
// Like the group-count case, the test is undefined, so it is a
// precondition failure rather than a degenerate result.
type InsufficientObservationsError struct {
	Metric       string
	Observations int
	Groups       int
}

func (e *InsufficientObservationsError) Error() string {
	return fmt.Sprintf("anova on %q: %d observations across %d groups leave no within-group degrees of freedom",
		e.Metric, e.Observations, e.Groups)
}

// ANOVAResult is the outcome of a one-way ANOVA across country groups.
type ANOVAResult struct {
	Metric       string
	F            float64
	P            float64
	Groups       int
	Observations int
}

// OneWayANOVA partitions the metric's non-missing values by country and
// tests equality of group means with the standard equal-variance F test.
// No multiple-comparison correction is applied; callers sweeping many
// metrics must correct on their side.
func OneWayANOVA(t *dataset.Table, metric string) (*ANOVAResult, error) {
	byCountry, ok := t.GroupedColumn(metric)
	if !ok {
		return nil, &dataset.ColumnNotFoundError{Column: metric}
	}

	countries := make([]string, 0, len(byCountry))
	for c, vals := range byCountry {
		if len(vals) > 0 {
			countries = append(countries, c)
		}
	}
	sort.Strings(countries)

	k := len(countries)
	if k < 2 {
		return nil, &InsufficientGroupsError{Metric: metric, Groups: k}
	}

	n := 0
	var grandSum float64
	for _, c := range countries {
		for _, v := range byCountry[c] {
			grandSum += v
			n++
		}
	}
	if n-k < 1 {
		return nil, &InsufficientObservationsError{Metric: metric, Observations: n, Groups: k}
	}
	grandMean := grandSum / float64(n)

	var ssBetween, ssWithin float64
	for _, c := range countries {
		vals := byCountry[c]
		groupMean := meanOf(vals)
		diff := groupMean - grandMean
		ssBetween += float64(len(vals)) * diff * diff
		for _, v := range vals {
			d := v - groupMean
			ssWithin += d * d
		}
	}

	res := &ANOVAResult{Metric: metric, Groups: k, Observations: n}

	// Zero within-group variance is decided explicitly instead of pushing
	// a zero denominator through the F distribution.
	if ssWithin == 0 {
		if ssBetween == 0 {
			res.F, res.P = 0, 1
		} else {
			res.F, res.P = math.Inf(1), 0
		}
		return res, nil
	}

	dfB := float64(k - 1)
	dfW := float64(n - k)
	res.F = (ssBetween / dfB) / (ssWithin / dfW)
	res.P = distuv.F{D1: dfB, D2: dfW}.Survival(res.F)
	return res, nil
}
