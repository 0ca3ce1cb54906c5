package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/abelk/solarscope/internal/dataset"
)

func TestCorrelation_PerfectPairs(t *testing.T) {
	var rows []testRow
	for _, v := range []float64{1, 2, 3, 4} {
		rows = append(rows, testRow{"Benin", map[string]float64{
			"GHI":  v,
			"DNI":  2 * v,
			"Tamb": -v,
		}})
	}
	m, err := Correlation(mkTable(t, []string{"GHI", "DNI", "Tamb"}, rows), []string{"GHI", "DNI", "Tamb"})
	if err != nil {
		t.Fatalf("Correlation: %v", err)
	}

	if got := m.Values[0][0]; got != 1 {
		t.Errorf("corr(GHI,GHI) = %v, want 1", got)
	}
	if got := m.Values[0][1]; math.Abs(got-1) > 1e-12 {
		t.Errorf("corr(GHI,DNI) = %v, want 1", got)
	}
	if got := m.Values[0][2]; math.Abs(got+1) > 1e-12 {
		t.Errorf("corr(GHI,Tamb) = %v, want -1", got)
	}
	if m.Values[1][2] != m.Values[2][1] {
		t.Error("matrix not symmetric")
	}
}

func TestCorrelation_PairwiseComplete(t *testing.T) {
	nan := math.NaN()
	rows := []testRow{
		{"Benin", map[string]float64{"GHI": 1, "DNI": 10}},
		{"Benin", map[string]float64{"GHI": 2, "DNI": nan}},
		{"Benin", map[string]float64{"GHI": 3, "DNI": 30}},
		{"Benin", map[string]float64{"GHI": 4, "DNI": 40}},
	}
	m, err := Correlation(mkTable(t, []string{"GHI", "DNI"}, rows), []string{"GHI", "DNI"})
	if err != nil {
		t.Fatalf("Correlation: %v", err)
	}
	// The row with a missing DNI is excluded pairwise; the remaining three
	// pairs are perfectly linear.
	if got := m.Values[0][1]; math.Abs(got-1) > 1e-12 {
		t.Errorf("corr(GHI,DNI) = %v, want 1", got)
	}
}

func TestCorrelation_InsufficientPairs(t *testing.T) {
	nan := math.NaN()
	rows := []testRow{
		{"Benin", map[string]float64{"GHI": 1, "DNI": nan}},
		{"Benin", map[string]float64{"GHI": nan, "DNI": 2}},
	}
	m, err := Correlation(mkTable(t, []string{"GHI", "DNI"}, rows), []string{"GHI", "DNI"})
	if err != nil {
		t.Fatalf("Correlation: %v", err)
	}
	if !math.IsNaN(m.Values[0][1]) {
		t.Errorf("corr with zero complete pairs = %v, want NaN", m.Values[0][1])
	}
}

func TestCorrelation_UnknownMetric(t *testing.T) {
	_, err := Correlation(ghiScenario(t), []string{"GHI", "RH"})
	var notFound *dataset.ColumnNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want ColumnNotFoundError", err)
	}
}
