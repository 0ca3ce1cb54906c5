package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	_ "modernc.org/sqlite"

	"github.com/abelk/solarscope/internal/api"
	"github.com/abelk/solarscope/internal/dataset"
	"github.com/abelk/solarscope/internal/stats"
	"github.com/abelk/solarscope/internal/store"
)

type CLI struct {
	DataDir         string   `help:"Directory scanned for <country>-clean.csv files." default:"data/cleaned" env:"SOLARSCOPE_DATA_DIR"`
	Source          []string `help:"Extra source as country=location, where location is a path or an http(s)/ftp URL. Repeatable." env:"SOLARSCOPE_SOURCES"`
	TimestampColumn string   `help:"CSV column holding the reading time." default:"Timestamp" env:"SOLARSCOPE_TIMESTAMP_COLUMN"`
	Port            string   `help:"HTTP server port." default:"8080" env:"SOLARSCOPE_PORT"`
	Snapshot        string   `help:"Write a SQLite snapshot of the dataset to this path and exit." type:"path"`
	Once            bool     `help:"Load the dataset, log per-column summaries and exit."`
	NoCache         bool     `help:"Re-read source files on every request instead of memoising."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("solarscope"),
		kong.Description("Aggregation service for cleaned solar irradiance sensor logs."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	sources, err := collectSources(cli)
	if err != nil {
		log.Fatalf("sources: %v", err)
	}
	if len(sources) == 0 {
		log.Fatalf("no sources: nothing matching *-clean.csv in %s and no --source given", cli.DataDir)
	}

	loader := dataset.NewLoader()
	loader.TimestampColumn = cli.TimestampColumn
	cache := dataset.NewCache(loader)
	if cli.NoCache {
		cache.Disable()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := cache.Load(ctx, sources)
	if err != nil {
		log.Fatalf("load dataset: %v", err)
	}
	if res.Table.Len() == 0 {
		log.Fatal("no observations loaded; all sources empty or unreadable")
	}
	log.Printf("loaded %d rows across %d countries from %d sources",
		res.Table.Len(), len(res.Table.Countries()), len(sources))

	if cli.Snapshot != "" {
		if err := writeSnapshot(cli.Snapshot, res); err != nil {
			log.Fatalf("snapshot: %v", err)
		}
		return
	}

	if cli.Once {
		for _, row := range stats.Summarize(res.Table) {
			log.Printf("%-16s count=%-6d mean=%-10.3f std=%-10.3f missing=%.2f%%",
				row.Column, row.Count, row.Mean, row.Std, row.MissingPct)
		}
		return
	}

	server := api.NewServer(cache, sources, cli.Port)
	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// collectSources merges discovered data-dir files with explicit --source
// flags. Explicit flags win on country label collisions by coming later.
func collectSources(cli CLI) ([]dataset.Source, error) {
	sources, err := dataset.DiscoverDir(cli.DataDir)
	if err != nil && len(cli.Source) == 0 {
		return nil, err
	}

	for _, raw := range cli.Source {
		country, location, ok := strings.Cut(raw, "=")
		if !ok || country == "" || location == "" {
			return nil, fmt.Errorf("bad --source %q, want country=location", raw)
		}
		sources = append(sources, dataset.Source{Country: country, Location: location})
	}
	return sources, nil
}

func writeSnapshot(path string, res *dataset.Result) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := st.SnapshotTable(res.Table, res.Fingerprint); err != nil {
		return err
	}

	metrics := presentMetrics(res.Table, []string{"GHI", "DNI", "DHI"})
	comparison, err := stats.Compare(res.Table, metrics)
	if err != nil {
		return err
	}
	if err := st.SnapshotSummaries(comparison); err != nil {
		return err
	}

	n, err := st.CountReadings()
	if err != nil {
		return err
	}
	log.Printf("snapshot written to %s (%d readings)", path, n)
	return nil
}

func presentMetrics(t *dataset.Table, want []string) []string {
	var out []string
	for _, m := range want {
		if t.HasColumn(m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		out = t.Columns()
	}
	return out
}
