// Command packcases converts Johns Hopkins style time series CSV files into
// the compact pair the service loads by default: a regions CSV and a binary
// case file. It runs the same matrix loader as the service so the output
// describes exactly the tree the service would build.
//
// Usage:
//
//	go run ./cmd/packcases \
//	  -confirmed data/time_series_covid19_confirmed_global.csv \
//	  -deaths data/time_series_covid19_deaths_global.csv \
//	  -out data
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/covid-trends-service/internal/codec"
	"github.com/couchcryptid/covid-trends-service/internal/dataset"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	confirmed := flag.String("confirmed", "", "confirmed cases time series CSV")
	deaths := flag.String("deaths", "", "deaths time series CSV (optional)")
	recovered := flag.String("recovered", "", "recovered time series CSV (optional)")
	outDir := flag.String("out", "data", "output directory")
	regionsName := flag.String("regions-file", "regioninfo.csv", "regions CSV file name")
	casesName := flag.String("cases-file", "caseinfo.dat", "binary case file name")
	flag.Parse()

	if *confirmed == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -confirmed")
	}

	inputs := []struct {
		ct   domain.CaseType
		path string
	}{
		{domain.Confirmed, *confirmed},
		{domain.Deaths, *deaths},
		{domain.Recovered, *recovered},
	}
	var files []dataset.MatrixFile
	for _, in := range inputs {
		if in.path == "" {
			continue
		}
		data, err := os.ReadFile(in.path)
		if err != nil {
			return fmt.Errorf("read %s: %w", in.ct, err)
		}
		files = append(files, dataset.MatrixFile{CaseType: in.ct, Data: data})
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ds, err := dataset.FromMatrix(files, domain.DefaultLookupTables(), logger)
	if err != nil {
		return fmt.Errorf("load matrix: %w", err)
	}

	records, entries := pack(ds)

	var regions bytes.Buffer
	if err := codec.WriteRegionRecords(&regions, records); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(*outDir, *regionsName), regions.Bytes()); err != nil {
		return fmt.Errorf("writing regions: %w", err)
	}
	if err := writeFile(filepath.Join(*outDir, *casesName), codec.EncodeCases(entries)); err != nil {
		return fmt.Errorf("writing cases: %w", err)
	}

	stats := ds.Stats()
	log.Printf("regions: %d (placeholders %d, duplicates %d), case entries: %d, days: %d",
		len(records), stats.Placeholders, stats.Duplicates, len(entries), ds.TotalDays())
	log.Printf("latest %s: global confirmed %d, deaths %d",
		ds.LatestDateLabel(), ds.Global().Latest(domain.Confirmed), ds.Global().Latest(domain.Deaths))
	return nil
}

// pack flattens the tree into region rows for every node below Global and
// case entries for the leaves. Internal nodes carry no entry because loading
// recomputes them from their children.
func pack(ds *dataset.DataSet) ([]domain.RegionFields, []codec.CaseEntry) {
	var records []domain.RegionFields
	var entries []codec.CaseEntry

	ds.Global().Walk(func(r *domain.Region) {
		if r.IsGlobal() {
			return
		}
		records = append(records, regionFields(r))
		if r.HasChildren() {
			return
		}
		var counts [domain.NumCaseTypes][]int64
		for _, ct := range domain.CaseTypes {
			counts[ct] = r.Series(ct)
		}
		entries = append(entries, codec.CaseEntry{ID: r.ID, Counts: counts})
	})
	return records, entries
}

// regionFields rebuilds the row a region was loaded from. The level names
// are the keys along the path from the country down.
func regionFields(r *domain.Region) domain.RegionFields {
	f := domain.RegionFields{
		ID:           r.ID,
		Level:        r.Level,
		Kind:         r.Kind,
		LocationName: r.Name,
		AltName:      r.ShortName,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
	}
	for n := r; n != nil && !n.IsGlobal(); n = n.Parent() {
		switch n.Level {
		case domain.LevelCountry:
			f.Level1 = n.Key
		case domain.LevelProvince:
			f.Level2 = n.Key
		case domain.LevelCounty:
			f.Level3 = n.Key
		}
	}
	return f
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
