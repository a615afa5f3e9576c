// Command validate performs data integrity checks on the input files the
// service loads: the compact regions CSV and binary case file, and optionally
// the time series CSVs they were packed from. It verifies that every case
// entry resolves, that every series has the full day count, that aggregated
// nodes equal the sum of their children, and that both formats agree.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -regions data/regioninfo.csv \
//	  -cases data/caseinfo.dat \
//	  -confirmed data/time_series_covid19_confirmed_global.csv \
//	  -deaths data/time_series_covid19_deaths_global.csv
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/covid-trends-service/internal/dataset"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// inputs names the files to check. Matrix files are optional.
type inputs struct {
	regions   string
	cases     string
	confirmed string
	deaths    string
}

func main() {
	var in inputs
	flag.StringVar(&in.regions, "regions", "data/regioninfo.csv", "regions CSV")
	flag.StringVar(&in.cases, "cases", "data/caseinfo.dat", "binary case file")
	flag.StringVar(&in.confirmed, "confirmed", "", "confirmed time series CSV for the parity check")
	flag.StringVar(&in.deaths, "deaths", "", "deaths time series CSV for the parity check")
	flag.Parse()

	os.Exit(run(in, os.Stdout))
}

func run(in inputs, out io.Writer) int {
	fmt.Fprintln(out, "=== COVID Trends Data Validation ===")
	fmt.Fprintln(out)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tables := domain.DefaultLookupTables()

	regionsCSV, err := os.ReadFile(in.regions)
	if err != nil {
		fmt.Fprintf(out, "FATAL: read regions: %v\n", err)
		return 1
	}
	casesDat, err := os.ReadFile(in.cases)
	if err != nil {
		fmt.Fprintf(out, "FATAL: read cases: %v\n", err)
		return 1
	}
	compact, err := dataset.FromCompact(regionsCSV, casesDat, tables, logger)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load compact files: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateLoad(compact),
		validateSeries(compact),
		validateAggregation(compact),
	}

	if in.confirmed != "" {
		matrix, err := loadMatrix(in, tables, logger)
		if err != nil {
			fmt.Fprintf(out, "FATAL: load time series: %v\n", err)
			return 1
		}
		phases = append(phases, validateParity(compact, matrix))
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	stats := compact.Stats()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Regions: %d (%d placeholders), days: %d, latest: %s\n",
		stats.Regions, stats.Placeholders, compact.TotalDays(), compact.LatestDateLabel())
	fmt.Fprintf(out, "Global: %d confirmed, %d deaths\n",
		compact.Global().Latest(domain.Confirmed), compact.Global().Latest(domain.Deaths))
	if stats.LookupMisses > 0 {
		fmt.Fprintf(out, "Regions without population or bed data: %d\n", stats.LookupMisses)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func loadMatrix(in inputs, tables *domain.LookupTables, logger *slog.Logger) (*dataset.DataSet, error) {
	confirmed, err := os.ReadFile(in.confirmed)
	if err != nil {
		return nil, err
	}
	files := []dataset.MatrixFile{{CaseType: domain.Confirmed, Data: confirmed}}
	if in.deaths != "" {
		deaths, err := os.ReadFile(in.deaths)
		if err != nil {
			return nil, err
		}
		files = append(files, dataset.MatrixFile{CaseType: domain.Deaths, Data: deaths})
	}
	return dataset.FromMatrix(files, tables, logger)
}

// ── Phase 1: Load integrity ──

func validateLoad(ds *dataset.DataSet) *phase {
	p := &phase{name: "Load integrity"}
	stats := ds.Stats()

	if stats.SkippedRows > 0 {
		p.errorf("%d region rows skipped", stats.SkippedRows)
	}
	if stats.Duplicates > 0 {
		p.errorf("%d duplicate regions", stats.Duplicates)
	}
	if stats.UnresolvedCaseIDs > 0 {
		p.errorf("%d case entries reference unknown region ids", stats.UnresolvedCaseIDs)
	}
	if ds.TotalDays() == 0 {
		p.errorf("no days of data")
	}
	if len(ds.Countries()) == 0 {
		p.errorf("no countries")
	}
	return p
}

// ── Phase 2: Series shape ──

func validateSeries(ds *dataset.DataSet) *phase {
	p := &phase{name: "Series shape"}
	days := ds.TotalDays()

	for _, r := range ds.Regions() {
		for _, ct := range domain.CaseTypes {
			s := r.Series(ct)
			if len(s) != days {
				p.errorf("%s %s: %d days, want %d", r.Name, ct, len(s), days)
				continue
			}
			for d, v := range s {
				if v < 0 {
					p.errorf("%s %s: negative count %d on %s", r.Name, ct, v, domain.DayLabel(d))
					break
				}
			}
		}
	}
	return p
}

// ── Phase 3: Aggregation ──

func validateAggregation(ds *dataset.DataSet) *phase {
	p := &phase{name: "Aggregation consistency"}

	for _, r := range ds.Regions() {
		if !r.HasChildren() {
			continue
		}
		for _, ct := range domain.CaseTypes {
			want := make([]int64, len(r.Series(ct)))
			for _, c := range r.Children() {
				for d, v := range c.Series(ct) {
					if d < len(want) {
						want[d] += v
					}
				}
			}
			for d, v := range r.Series(ct) {
				if v != want[d] {
					p.errorf("%s %s on %s: %d, children sum to %d",
						r.Name, ct, domain.DayLabel(d), v, want[d])
					break
				}
			}
		}
	}
	return p
}

// ── Phase 4: Compact vs time series parity ──

func validateParity(compact, matrix *dataset.DataSet) *phase {
	p := &phase{name: "Compact / time series parity"}

	if compact.TotalDays() != matrix.TotalDays() {
		p.errorf("day count: compact %d, time series %d", compact.TotalDays(), matrix.TotalDays())
	}

	for _, ct := range []domain.CaseType{domain.Confirmed, domain.Deaths} {
		if a, b := compact.Global().Latest(ct), matrix.Global().Latest(ct); a != b {
			p.errorf("global %s: compact %d, time series %d", ct, a, b)
		}
	}

	for _, c := range matrix.Countries() {
		other := compact.RegionByName(c.Name)
		if other == nil {
			p.errorf("country %q missing from compact files", c.Name)
			continue
		}
		if a, b := other.Latest(domain.Confirmed), c.Latest(domain.Confirmed); a != b {
			p.errorf("%s confirmed: compact %d, time series %d", c.Name, a, b)
		}
	}
	return p
}
