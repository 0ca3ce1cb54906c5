package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/abelk/solarscope/internal/metrics"
)

const cleanSuffix = "-clean.csv"

// DefaultTimestampColumn is the column interpreted as the reading time.
const DefaultTimestampColumn = "Timestamp"

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02",
	"2/1/2006 15:04",
}

// Source names one per-country input: a local path, an http(s) URL, or an
// ftp URL. The country label always comes from the source, never from the
// file contents.
type Source struct {
	Country  string
	Location string
}

// FileReport records the outcome for one source. Err is set when the whole
// file was skipped; SkippedRows counts individually dropped rows.
type FileReport struct {
	Source      Source
	Rows        int
	SkippedRows int
	Err         error
}

// Result is the outcome of a load: the merged table plus one report per
// source. A load with zero usable sources yields an empty table, not an
// error; callers must check Table.Len before proceeding.
type Result struct {
	Table       *Table
	Files       []FileReport
	Fingerprint string
}

// Loader reads per-country CSV sources into one country-tagged table.
type Loader struct {
	// TimestampColumn is matched case-insensitively against the header.
	TimestampColumn string
}

func NewLoader() *Loader {
	return &Loader{TimestampColumn: DefaultTimestampColumn}
}

// DiscoverDir scans dir for files named <identifier>-clean.csv and derives
// each country label from the identifier. Results are ordered by filename.
func DiscoverDir(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var sources []Source
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), cleanSuffix) {
			continue
		}
		sources = append(sources, Source{
			Country:  CountryFromFile(e.Name()),
			Location: filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Location < sources[j].Location })
	return sources, nil
}

// CountryFromFile derives a human-readable country label from a source
// filename: the -clean.csv suffix is stripped, underscores and hyphens
// become spaces, and each word is title-cased.
func CountryFromFile(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), cleanSuffix)
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	words := strings.Fields(base)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// Load parses every source and concatenates the survivors. A source that
// cannot be opened or parsed is skipped with a warning; the rest of the
// batch is unaffected.
func (l *Loader) Load(ctx context.Context, sources []Source) (*Result, error) {
	res := &Result{Fingerprint: Fingerprint(sources)}

	var tables []*Table
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		report := FileReport{Source: src}
		t, skipped, err := l.loadOne(ctx, src)
		if err != nil {
			report.Err = err
			res.Files = append(res.Files, report)
			metrics.SourceFiles.WithLabelValues(src.Country, "skipped").Inc()
			log.Printf("dataset: skipping %s (%s): %v", src.Location, src.Country, err)
			continue
		}

		report.Rows = t.Len()
		report.SkippedRows = skipped
		res.Files = append(res.Files, report)
		tables = append(tables, t)
		metrics.SourceFiles.WithLabelValues(src.Country, "loaded").Inc()
		metrics.RowsLoaded.Add(float64(t.Len()))
		log.Printf("dataset: loaded %s: %d rows for %s (%d rows skipped)",
			src.Location, t.Len(), src.Country, skipped)
	}

	res.Table = Concat(tables...)
	return res, nil
}

func (l *Loader) loadOne(ctx context.Context, src Source) (*Table, int, error) {
	rc, err := open(ctx, src.Location)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()
	return l.parse(rc, src.Country)
}

func (l *Loader) parse(r io.Reader, country string) (*Table, int, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	tsCol := l.TimestampColumn
	if tsCol == "" {
		tsCol = DefaultTimestampColumn
	}
	tsIdx := -1
	var columns []string
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if tsIdx < 0 && strings.EqualFold(h, tsCol) {
			tsIdx = i
			continue
		}
		// A repeated column name would leave two order entries sharing
		// one storage slice, so the whole file is rejected.
		if seen[h] {
			return nil, 0, fmt.Errorf("duplicate column %q in header", h)
		}
		seen[h] = true
		columns = append(columns, h)
	}
	if tsIdx < 0 {
		return nil, 0, fmt.Errorf("no %q column in header", tsCol)
	}

	t := NewTable(columns)
	skipped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read record: %w", err)
		}

		// Short rows are dropped with the unparseable-timestamp ones;
		// extra trailing fields are ignored.
		if tsIdx >= len(record) {
			skipped++
			continue
		}
		ts, ok := parseTimestamp(record[tsIdx])
		if !ok {
			skipped++
			continue
		}

		values := make(map[string]float64, len(columns))
		col := 0
		for i, cell := range record {
			if i == tsIdx {
				continue
			}
			if col >= len(columns) {
				break
			}
			values[columns[col]] = parseCell(cell)
			col++
		}
		t.AppendRow(ts, country, values)
	}
	return t, skipped, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// parseCell interprets a CSV cell as a measurement. Empty and non-numeric
// cells are missing values, so a wholly textual column degenerates to an
// all-missing one rather than failing the file.
func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
