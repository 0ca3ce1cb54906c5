package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/abelk/solarscope/internal/dataset"
)

func TestFlagOutliers(t *testing.T) {
	var rows []testRow
	for i := 0; i < 20; i++ {
		rows = append(rows, testRow{"Benin", map[string]float64{"GHI": 100 + float64(i%3)}})
	}
	rows = append(rows, testRow{"Benin", map[string]float64{"GHI": 100000}})

	res, err := FlagOutliers(mkTable(t, []string{"GHI"}, rows), []string{"GHI"}, 3.0)
	if err != nil {
		t.Fatalf("FlagOutliers: %v", err)
	}
	if res.Flagged != 1 {
		t.Fatalf("Flagged = %d, want 1", res.Flagged)
	}
	if !res.Mask[len(rows)-1] {
		t.Error("extreme row not flagged")
	}
	if res.Cleaned.Len() != len(rows)-1 {
		t.Errorf("Cleaned.Len = %d, want %d", res.Cleaned.Len(), len(rows)-1)
	}
}

func TestFlagOutliers_MissingAndConstant(t *testing.T) {
	nan := math.NaN()
	rows := []testRow{
		{"Benin", map[string]float64{"GHI": 5, "WS": nan}},
		{"Benin", map[string]float64{"GHI": 5, "WS": 1}},
		{"Benin", map[string]float64{"GHI": 5, "WS": 2}},
	}
	res, err := FlagOutliers(mkTable(t, []string{"GHI", "WS"}, rows), []string{"GHI", "WS"}, 3.0)
	if err != nil {
		t.Fatalf("FlagOutliers: %v", err)
	}
	// Constant GHI has zero std and must not flag; the NaN WS cell cannot
	// flag its row either.
	if res.Flagged != 0 {
		t.Errorf("Flagged = %d, want 0", res.Flagged)
	}
}

func TestFlagOutliers_UnknownColumn(t *testing.T) {
	_, err := FlagOutliers(ghiScenario(t), []string{"WS"}, 3.0)
	var notFound *dataset.ColumnNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want ColumnNotFoundError", err)
	}
}

func TestWindRose(t *testing.T) {
	rows := []testRow{
		{"Benin", map[string]float64{"WS": 2, "WD": 0}},    // N, bin 1-3
		{"Benin", map[string]float64{"WS": 2, "WD": 359}},  // wraps to N
		{"Benin", map[string]float64{"WS": 6, "WD": 90}},   // E, bin 5-7
		{"Benin", map[string]float64{"WS": 20, "WD": 180}}, // S, open bin
	}
	rose, err := WindRose(mkTable(t, []string{"WS", "WD"}, rows), "WS", "WD", 16)
	if err != nil {
		t.Fatalf("WindRose: %v", err)
	}

	if rose.Samples != 4 {
		t.Fatalf("Samples = %d, want 4", rose.Samples)
	}
	if len(rose.Sectors) != 16 || rose.Sectors[0] != "N" {
		t.Fatalf("Sectors = %v, want 16-point compass", rose.Sectors)
	}

	sector := func(name string) int {
		for i, s := range rose.Sectors {
			if s == name {
				return i
			}
		}
		t.Fatalf("no sector %q", name)
		return -1
	}
	if got := rose.Freq[sector("N")][1]; got != 0.5 {
		t.Errorf("N 1-3 freq = %v, want 0.5", got)
	}
	if got := rose.Freq[sector("E")][3]; got != 0.25 {
		t.Errorf("E 5-7 freq = %v, want 0.25", got)
	}
	if got := rose.Freq[sector("S")][len(rose.SpeedBins)-1]; got != 0.25 {
		t.Errorf("S open-bin freq = %v, want 0.25", got)
	}
}

func TestWindRose_SkipsMissing(t *testing.T) {
	nan := math.NaN()
	rows := []testRow{
		{"Benin", map[string]float64{"WS": 2, "WD": nan}},
		{"Benin", map[string]float64{"WS": nan, "WD": 90}},
		{"Benin", map[string]float64{"WS": 2, "WD": 90}},
	}
	rose, err := WindRose(mkTable(t, []string{"WS", "WD"}, rows), "WS", "WD", 8)
	if err != nil {
		t.Fatalf("WindRose: %v", err)
	}
	if rose.Samples != 1 {
		t.Errorf("Samples = %d, want 1", rose.Samples)
	}
}
