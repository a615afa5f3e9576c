package dataset

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/covid-trends-service/internal/codec"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
)

// MatrixFile is one wide-format file together with the case type it holds.
type MatrixFile struct {
	CaseType domain.CaseType
	Data     []byte
}

// FromMatrix builds a complete dataset from one or more matrix files. Rows
// for the same location across files map to the same region.
func FromMatrix(files []MatrixFile, tables *domain.LookupTables, logger *slog.Logger) (*DataSet, error) {
	ds := New(tables, logger)
	for _, f := range files {
		m, err := codec.ParseMatrix(f.Data)
		if err != nil {
			return nil, fmt.Errorf("parse %s matrix: %w", f.CaseType, err)
		}
		ds.LoadMatrix(f.CaseType, m)
	}
	ds.Finish()
	return ds, nil
}

type matrixEntry struct {
	fields domain.RegionFields
	counts []int64
}

// LoadMatrix adds the rows of m as series of case type ct. Rows are
// classified into countries, provinces, US states, counties and cities;
// rows naming the same location are merged, keeping the first nonzero value
// of each day. A country's own row is moved under a "(mainland)" child when
// the country also has province rows, so that the country node stays the sum
// of its children.
func (ds *DataSet) LoadMatrix(ct domain.CaseType, m *codec.Matrix) {
	entries := make(map[string]*matrixEntry)
	var order []string

	for _, row := range m.Rows {
		f := ds.classifyRow(row)
		name := f.LocationName
		if existing, ok := entries[name]; ok {
			ds.mergeSplitEntry(name, m.Dates, existing.counts, row.Counts)
			continue
		}
		entries[name] = &matrixEntry{fields: f, counts: row.Counts}
		order = append(order, name)
	}

	hasChildren := make(map[string]bool)
	for _, e := range entries {
		if e.fields.Level > domain.LevelCountry {
			hasChildren[e.fields.Level1] = true
		}
	}

	// Demote country rows and add the parents no row provides.
	for _, name := range order {
		e := entries[name]
		f := &e.fields
		if f.Level == domain.LevelCountry && hasChildren[f.Level1] {
			f.Level = domain.LevelProvince
			f.Kind = domain.KindProvince
			f.Level2 = f.Level1
			f.LocationName = f.Level1 + " (mainland)"
		}
	}
	var parents []domain.RegionFields
	seen := make(map[string]bool)
	for _, name := range order {
		f := entries[name].fields
		if f.Level >= domain.LevelProvince && !seen[f.Level1] {
			seen[f.Level1] = true
			parents = append(parents, domain.RegionFields{
				Level:        domain.LevelCountry,
				Kind:         domain.KindCountry,
				Level1:       f.Level1,
				LocationName: f.Level1,
			})
		}
		if f.Level == domain.LevelCounty {
			stateName := f.Level2 + ", " + f.Level1
			if _, ok := entries[stateName]; !ok && !seen[stateName] {
				seen[stateName] = true
				kind := domain.KindProvince
				if f.Level1 == "US" {
					kind = domain.KindState
				}
				abbrev, _ := ds.tables.StateAbbreviation(f.Level2)
				parents = append(parents, domain.RegionFields{
					Level:        domain.LevelProvince,
					Kind:         kind,
					Level1:       f.Level1,
					Level2:       f.Level2,
					LocationName: stateName,
					AltName:      abbrev,
				})
			}
		}
	}

	var fresh []domain.RegionFields
	for _, f := range parents {
		if _, ok := ds.matrixIDs[f.LocationName]; ok {
			continue
		}
		fresh = append(fresh, ds.assignMatrixID(f))
	}
	for _, name := range order {
		f := entries[name].fields
		if _, ok := ds.matrixIDs[f.LocationName]; ok {
			continue
		}
		fresh = append(fresh, ds.assignMatrixID(f))
	}
	ds.LoadRegions(fresh)

	for _, name := range order {
		e := entries[name]
		if r := ds.byID[ds.matrixIDs[e.fields.LocationName]]; r != nil {
			r.SetSeries(ct, e.counts)
		}
	}
}

func (ds *DataSet) assignMatrixID(f domain.RegionFields) domain.RegionFields {
	f.ID = ds.nextMatrixID
	ds.nextMatrixID++
	ds.matrixIDs[f.LocationName] = f.ID
	return f
}

// classifyRow maps a matrix row to region fields. The location name doubles
// as the merge key for split rows.
func (ds *DataSet) classifyRow(row codec.MatrixRow) domain.RegionFields {
	country := ds.tables.NormalizeRegion(row.Country)
	province := ds.tables.NormalizeProvince(row.Province)

	f := domain.RegionFields{
		Level1:    country,
		Latitude:  row.Latitude,
		Longitude: row.Longitude,
	}
	switch {
	case province == "" || province == country:
		f.Level = domain.LevelCountry
		f.Kind = domain.KindCountry
		f.LocationName = country
	case country == "US":
		ds.classifyUS(&f, province)
	default:
		f.Level = domain.LevelProvince
		f.Kind = domain.KindProvince
		f.Level2 = province
		f.LocationName = province + ", " + country
	}
	return f
}

// classifyUS handles the several shapes US rows took in the legacy files:
// "Washington, D.C.", "King County, WA", "Washington", "Portland, OR", and
// anything else such as cruise ships.
func (ds *DataSet) classifyUS(f *domain.RegionFields, province string) {
	const suffix = ", US"

	if strings.Contains(province, "D.C.") {
		province = "District of Columbia"
	}

	if abbrev, ok := ds.tables.StateAbbreviation(province); ok {
		f.Level = domain.LevelProvince
		f.Kind = domain.KindState
		f.Level2 = province
		f.AltName = abbrev
		f.LocationName = province + suffix
		return
	}

	place, abbrev, hasComma := strings.Cut(province, ",")
	if hasComma {
		place = strings.TrimSpace(place)
		abbrev = strings.TrimSpace(abbrev)
		state, ok := ds.tables.StateName(abbrev)
		if !ok {
			state = abbrev
		}
		f.Level = domain.LevelCounty
		f.Kind = domain.KindOther
		if strings.Contains(place, "County") {
			f.Kind = domain.KindCounty
		}
		f.Level2 = state
		f.Level3 = place
		f.LocationName = place + ", " + state + suffix
		return
	}

	f.Level = domain.LevelProvince
	f.Kind = domain.KindOther
	f.Level2 = province
	f.LocationName = province + suffix
}

// mergeSplitEntry folds a repeated row into the first one seen. Days already
// nonzero keep their value; disagreements are logged.
func (ds *DataSet) mergeSplitEntry(name string, dates []string, into, from []int64) {
	ds.stats.SplitEntries++
	ds.logger.Warn("merging split entry", "region", name)
	for d := range into {
		if d >= len(from) {
			break
		}
		switch {
		case into[d] == 0:
			into[d] = from[d]
		case from[d] != 0 && from[d] != into[d]:
			ds.logger.Warn("split entry has conflicting values",
				"region", name, "date", dates[d], "kept", into[d], "dropped", from[d])
		}
	}
}
