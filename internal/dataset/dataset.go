// Package dataset builds the region tree from decoded input files and answers
// lookups against it.
package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/covid-trends-service/internal/codec"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
)

// firstPlaceholderID is the lowest ID handed to synthesized parents.
const firstPlaceholderID = 10000

// LoadStats counts the inconsistencies tolerated while building a dataset.
type LoadStats struct {
	Regions           int
	Placeholders      int
	Duplicates        int
	SkippedRows       int
	UnresolvedCaseIDs int
	LookupMisses      int
	SplitEntries      int
}

// DataSet owns one region tree. It is not safe for concurrent use; callers
// that share a dataset across goroutines serialize access themselves.
type DataSet struct {
	tables *domain.LookupTables
	logger *slog.Logger

	global  *domain.Region
	byID    map[int]*domain.Region
	byName  map[string]*domain.Region
	regions []*domain.Region

	nextPlaceholderID int
	nextMatrixID      int
	matrixIDs         map[string]int
	totalDays         int
	loadedAt          time.Time
	stats             LoadStats
}

// New creates an empty dataset holding only the Global root.
func New(tables *domain.LookupTables, logger *slog.Logger) *DataSet {
	ds := &DataSet{
		tables:            tables,
		logger:            logger,
		byID:              make(map[int]*domain.Region),
		byName:            make(map[string]*domain.Region),
		nextPlaceholderID: firstPlaceholderID,
		nextMatrixID:      1,
		matrixIDs:         make(map[string]int),
	}
	ds.global = domain.NewRegion(domain.RegionFields{
		ID:           0,
		Level:        domain.LevelGlobal,
		Kind:         domain.KindGlobal,
		LocationName: domain.GlobalName,
	}, tables)
	ds.register(ds.global)
	return ds
}

// FromCompact builds a complete dataset from a regions CSV and a binary case
// file. A truncated case file is tolerated as long as at least one entry was
// decoded; the entries read before the break are kept.
func FromCompact(regionsCSV, casesDat []byte, tables *domain.LookupTables, logger *slog.Logger) (*DataSet, error) {
	table, err := codec.ParseRegionRecords(regionsCSV)
	if err != nil {
		return nil, fmt.Errorf("parse regions: %w", err)
	}

	ds := New(tables, logger)
	for _, skipped := range table.Skipped {
		ds.stats.SkippedRows++
		logger.Warn("skipping region row", "error", skipped)
	}
	ds.LoadRegions(table.Records)

	entries, err := codec.DecodeCases(casesDat)
	if err != nil {
		if !errors.Is(err, codec.ErrTruncated) || len(entries) == 0 {
			return nil, fmt.Errorf("decode cases: %w", err)
		}
		logger.Warn("case file truncated, keeping decoded entries", "error", err, "entries", len(entries))
	}
	ds.AttachCases(entries)
	ds.Finish()
	return ds, nil
}

// LoadRegions inserts records into the tree. Records are processed by
// ascending level so parents exist before their children; a parent that is
// still missing is synthesized as a placeholder.
func (ds *DataSet) LoadRegions(records []domain.RegionFields) {
	sorted := make([]domain.RegionFields, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	for _, f := range sorted {
		ds.addRegion(f)
	}
}

func (ds *DataSet) addRegion(f domain.RegionFields) *domain.Region {
	if existing, ok := ds.byID[f.ID]; ok {
		ds.stats.Duplicates++
		ds.logger.Warn("duplicate region id",
			"id", f.ID, "region", f.LocationName, "existing", existing.Name)
		return nil
	}

	var parent *domain.Region
	switch f.Level {
	case domain.LevelCountry:
		parent = ds.global
	case domain.LevelProvince:
		parent = ds.ensureCountry(f.Level1)
	case domain.LevelCounty:
		parent = ds.ensureProvince(ds.ensureCountry(f.Level1), f.Level1, f.Level2)
	default:
		ds.stats.SkippedRows++
		ds.logger.Warn("region has no valid level", "id", f.ID, "level", int(f.Level))
		return nil
	}

	key := f.Key()
	if parent.Child(key) != nil {
		ds.stats.Duplicates++
		ds.logger.Error("duplicate region in tree",
			"id", f.ID, "key", key, "level", int(f.Level), "parent", parent.Name)
		return nil
	}

	r := domain.NewRegion(f, ds.tables)
	parent.AddChild(r)
	ds.register(r)
	return r
}

func (ds *DataSet) ensureCountry(name string) *domain.Region {
	if c := ds.global.Child(name); c != nil {
		return c
	}
	ds.logger.Warn("adding missing region", "key", name, "level", int(domain.LevelCountry))
	return ds.addPlaceholder(ds.global, domain.RegionFields{
		Level:        domain.LevelCountry,
		Kind:         domain.KindCountry,
		Level1:       name,
		LocationName: name,
	})
}

func (ds *DataSet) ensureProvince(country *domain.Region, level1, name string) *domain.Region {
	if p := country.Child(name); p != nil {
		return p
	}
	kind := domain.KindProvince
	if level1 == "US" {
		kind = domain.KindState
	}
	ds.logger.Warn("adding missing region", "key", name, "level", int(domain.LevelProvince), "parent", country.Name)
	return ds.addPlaceholder(country, domain.RegionFields{
		Level:        domain.LevelProvince,
		Kind:         kind,
		Level1:       level1,
		Level2:       name,
		LocationName: name,
	})
}

func (ds *DataSet) addPlaceholder(parent *domain.Region, f domain.RegionFields) *domain.Region {
	for ds.byID[ds.nextPlaceholderID] != nil {
		ds.nextPlaceholderID++
	}
	f.ID = ds.nextPlaceholderID
	ds.nextPlaceholderID++

	r := domain.NewRegion(f, ds.tables)
	parent.AddChild(r)
	ds.register(r)
	ds.stats.Placeholders++
	return r
}

// register indexes r by ID and by its canonical and short names. When two
// regions claim the same name the first one keeps it.
func (ds *DataSet) register(r *domain.Region) {
	ds.byID[r.ID] = r
	ds.regions = append(ds.regions, r)
	ds.stats.Regions++

	for _, name := range []string{r.Name, r.ShortName} {
		if name == "" {
			continue
		}
		if existing, ok := ds.byName[name]; ok {
			if existing != r {
				ds.logger.Warn("duplicate region name, keeping first",
					"region", name, "id", r.ID, "existing_id", existing.ID)
			}
			continue
		}
		ds.byName[name] = r
	}

	if r.MissingDemographics() && !r.IsGlobal() {
		ds.stats.LookupMisses++
		ds.logger.Debug("no population or bed data",
			"region", r.Name, "short_name", r.ShortName, "id", r.ID)
	}
}

// AttachCases sets the series of each entry's region. Entries whose ID is not
// in the tree are logged and skipped.
func (ds *DataSet) AttachCases(entries []codec.CaseEntry) {
	for _, e := range entries {
		r, ok := ds.byID[e.ID]
		if !ok {
			ds.stats.UnresolvedCaseIDs++
			ds.logger.Warn("region not found for case entry", "id", e.ID)
			continue
		}
		r.SetCounts(e.Counts)
	}
}

// Finish pads every series to the longest one seen, aggregates the tree and
// stamps the load time. It is called once after all input has been attached.
func (ds *DataSet) Finish() {
	days := 0
	for _, r := range ds.regions {
		for _, ct := range domain.CaseTypes {
			days = max(days, len(r.Series(ct)))
		}
	}
	for _, r := range ds.regions {
		r.PadTo(days)
	}
	ds.totalDays = days
	ds.Aggregate()
	ds.loadedAt = domain.Now()

	ds.logger.Info("dataset loaded",
		"regions", ds.stats.Regions,
		"days", ds.totalDays,
		"placeholders", ds.stats.Placeholders,
		"unresolved_case_ids", ds.stats.UnresolvedCaseIDs,
	)
}

// Aggregate recomputes every internal node from its children.
func (ds *DataSet) Aggregate() {
	ds.global.AggregateCounts()
}

// Global returns the tree root.
func (ds *DataSet) Global() *domain.Region { return ds.global }

// RegionByID returns the region with the given ID, or nil.
func (ds *DataSet) RegionByID(id int) *domain.Region { return ds.byID[id] }

// RegionByName resolves a canonical or short name. Alternate spellings known
// to the synonym table are accepted too.
func (ds *DataSet) RegionByName(name string) *domain.Region {
	if r, ok := ds.byName[name]; ok {
		return r
	}
	return ds.byName[ds.tables.NormalizeRegion(name)]
}

// Regions returns every region in registration order, Global first.
func (ds *DataSet) Regions() []*domain.Region { return ds.regions }

// Countries returns the level 1 regions ordered by key.
func (ds *DataSet) Countries() []*domain.Region {
	return ds.global.Children()
}

// SortedCountries returns the level 1 regions ordered by field.
func (ds *DataSet) SortedCountries(field domain.SortField) []*domain.Region {
	return ds.global.SortedChildren(field)
}

// SubRegions returns the direct children of the named country ordered by key.
func (ds *DataSet) SubRegions(country string) ([]*domain.Region, error) {
	c, err := ds.country(country)
	if err != nil {
		return nil, err
	}
	return c.Children(), nil
}

// SortedSubRegions returns the direct children of the named country ordered
// by field.
func (ds *DataSet) SortedSubRegions(country string, field domain.SortField) ([]*domain.Region, error) {
	c, err := ds.country(country)
	if err != nil {
		return nil, err
	}
	return c.SortedChildren(field), nil
}

// ErrUnknownRegion is returned for names that resolve to no region.
var ErrUnknownRegion = errors.New("unknown region")

func (ds *DataSet) country(name string) (*domain.Region, error) {
	r := ds.RegionByName(name)
	if r == nil || r.Level != domain.LevelCountry {
		return nil, fmt.Errorf("%w: %q is not a country", ErrUnknownRegion, name)
	}
	return r, nil
}

// Showing returns the regions currently selected for display, Global first
// and the rest in tree order.
func (ds *DataSet) Showing() []*domain.Region {
	var out []*domain.Region
	ds.global.Walk(func(r *domain.Region) {
		if r.Showing() {
			out = append(out, r)
		}
	})
	return out
}

// AnyShowing reports whether a region other than Global is selected.
func (ds *DataSet) AnyShowing() bool {
	for _, r := range ds.regions {
		if r.Showing() && !r.IsGlobal() {
			return true
		}
	}
	return false
}

// ShowRegions selects every named region and returns the names that did not
// resolve.
func (ds *DataSet) ShowRegions(names []string) []string {
	var unknown []string
	for _, name := range names {
		r := ds.RegionByName(name)
		if r == nil {
			unknown = append(unknown, name)
			continue
		}
		r.SetShowing(true)
	}
	return unknown
}

// ClearShowing deselects every region.
func (ds *DataSet) ClearShowing() {
	for _, r := range ds.regions {
		r.SetShowing(false)
	}
}

// TotalDays is the length of every series after loading.
func (ds *DataSet) TotalDays() int { return ds.totalDays }

// LatestDay is the offset of the last day with data, or -1 for an empty
// dataset.
func (ds *DataSet) LatestDay() int { return ds.totalDays - 1 }

// LatestDateLabel formats the last day with data as "M/D".
func (ds *DataSet) LatestDateLabel() string {
	if ds.totalDays == 0 {
		return ""
	}
	return domain.DayLabel(ds.LatestDay())
}

// LoadedAt is when Finish ran.
func (ds *DataSet) LoadedAt() time.Time { return ds.loadedAt }

// Stats reports the inconsistencies tolerated during the load.
func (ds *DataSet) Stats() LoadStats { return ds.stats }
