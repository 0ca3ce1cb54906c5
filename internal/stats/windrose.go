package stats

import (
	"fmt"
	"math"

	"github.com/abelk/solarscope/internal/dataset"
)

// DefaultSectors is the conventional 16-point compass rose.
const DefaultSectors = 16

var compass16 = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

var compass8 = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// defaultSpeedEdges are the wind-speed bin boundaries in m/s; the last bin
// is open-ended.
var defaultSpeedEdges = []float64{1, 3, 5, 7, 10}

// WindRoseTable is the binned joint frequency of wind direction and speed.
// Freq[sector][bin] is the fraction of usable rows in that cell; rows
// missing either field are excluded from Samples.
type WindRoseTable struct {
	Sectors   []string
	SpeedBins []string
	Freq      [][]float64
	Samples   int
}

// WindRose bins wind direction (degrees, 0 = north) into sectors and wind
// speed into fixed bins. Sector 0 is centred on north, matching the usual
// rose convention.
func WindRose(t *dataset.Table, speedCol, dirCol string, sectors int) (*WindRoseTable, error) {
	speeds, ok := t.Column(speedCol)
	if !ok {
		return nil, &dataset.ColumnNotFoundError{Column: speedCol}
	}
	dirs, ok := t.Column(dirCol)
	if !ok {
		return nil, &dataset.ColumnNotFoundError{Column: dirCol}
	}
	if sectors <= 0 {
		sectors = DefaultSectors
	}

	table := &WindRoseTable{
		Sectors:   sectorNames(sectors),
		SpeedBins: speedBinNames(defaultSpeedEdges),
		Freq:      make([][]float64, sectors),
	}
	counts := make([][]int, sectors)
	for i := range counts {
		counts[i] = make([]int, len(defaultSpeedEdges)+1)
		table.Freq[i] = make([]float64, len(defaultSpeedEdges)+1)
	}

	width := 360.0 / float64(sectors)
	for i := range speeds {
		ws, wd := speeds[i], dirs[i]
		if math.IsNaN(ws) || math.IsNaN(wd) || ws < 0 {
			continue
		}
		// Shift by half a sector so that sector 0 straddles north.
		deg := math.Mod(wd+width/2, 360)
		if deg < 0 {
			deg += 360
		}
		sector := int(deg / width)
		if sector >= sectors {
			sector = sectors - 1
		}
		counts[sector][speedBin(ws)]++
		table.Samples++
	}

	if table.Samples > 0 {
		for s := range counts {
			for b, n := range counts[s] {
				table.Freq[s][b] = float64(n) / float64(table.Samples)
			}
		}
	}
	return table, nil
}

func speedBin(ws float64) int {
	for i, edge := range defaultSpeedEdges {
		if ws < edge {
			return i
		}
	}
	return len(defaultSpeedEdges)
}

func speedBinNames(edges []float64) []string {
	names := make([]string, 0, len(edges)+1)
	low := 0.0
	for _, edge := range edges {
		names = append(names, fmt.Sprintf("%g-%g", low, edge))
		low = edge
	}
	return append(names, fmt.Sprintf(">%g", low))
}

func sectorNames(sectors int) []string {
	switch sectors {
	case 16:
		return append([]string(nil), compass16...)
	case 8:
		return append([]string(nil), compass8...)
	}
	names := make([]string, sectors)
	width := 360.0 / float64(sectors)
	for i := range names {
		names[i] = fmt.Sprintf("%.0f°", float64(i)*width)
	}
	return names
}
