package domain

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed lookupdata/tables.json
var embeddedTables []byte

// LookupTables is the static reference data used to normalize region names
// and resolve demographics. A value is read-only after construction and is
// shared by every region built from it.
type LookupTables struct {
	provinceSynonyms   map[string]string
	regionSynonyms     map[string]string
	stateAbbreviations map[string]string
	stateNames         map[string]string
	population         map[string]int64
	bedsPer1K          map[string]float64
}

type lookupDocument struct {
	ProvinceSynonyms   map[string]string  `json:"provinceSynonyms"`
	RegionSynonyms     map[string]string  `json:"regionSynonyms"`
	StateAbbreviations map[string]string  `json:"stateAbbreviations"`
	Population         map[string]int64   `json:"population"`
	BedsPer1K          map[string]float64 `json:"bedsPer1K"`
}

// ParseLookupTables decodes a lookup table document.
func ParseLookupTables(data []byte) (*LookupTables, error) {
	var doc lookupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse lookup tables: %w", err)
	}

	t := &LookupTables{
		provinceSynonyms:   nonNil(doc.ProvinceSynonyms),
		regionSynonyms:     nonNil(doc.RegionSynonyms),
		stateAbbreviations: nonNil(doc.StateAbbreviations),
		stateNames:         make(map[string]string, len(doc.StateAbbreviations)),
		population:         doc.Population,
		bedsPer1K:          doc.BedsPer1K,
	}
	if t.population == nil {
		t.population = map[string]int64{}
	}
	if t.bedsPer1K == nil {
		t.bedsPer1K = map[string]float64{}
	}
	for name, abbrev := range t.stateAbbreviations {
		t.stateNames[abbrev] = name
	}
	return t, nil
}

var (
	defaultTablesOnce sync.Once
	defaultTables     *LookupTables
)

// DefaultLookupTables returns the tables compiled into the binary. They are
// decoded on first use and shared afterwards.
func DefaultLookupTables() *LookupTables {
	defaultTablesOnce.Do(func() {
		t, err := ParseLookupTables(embeddedTables)
		if err != nil {
			panic(err)
		}
		defaultTables = t
	})
	return defaultTables
}

// NormalizeRegion maps alternate spellings of a region name to its canonical
// form ("Korea, South" -> "South Korea"). Unknown names are returned as-is.
func (t *LookupTables) NormalizeRegion(name string) string {
	if canonical, ok := t.regionSynonyms[name]; ok {
		return canonical
	}
	return name
}

// NormalizeProvince maps alternate province names to their canonical form.
func (t *LookupTables) NormalizeProvince(name string) string {
	if canonical, ok := t.provinceSynonyms[name]; ok {
		return canonical
	}
	return name
}

// StateAbbreviation returns the short name of a primary US region
// ("New York" -> "NY").
func (t *LookupTables) StateAbbreviation(name string) (string, bool) {
	abbrev, ok := t.stateAbbreviations[name]
	return abbrev, ok
}

// StateName is the inverse of StateAbbreviation.
func (t *LookupTables) StateName(abbrev string) (string, bool) {
	name, ok := t.stateNames[abbrev]
	return name, ok
}

// Population returns the population recorded for the first of names that has
// an entry.
func (t *LookupTables) Population(names ...string) (int64, bool) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if pop, ok := t.population[name]; ok {
			return pop, true
		}
	}
	return 0, false
}

// Beds returns the hospital bed capacity for the first of names that has both
// a beds-per-1000 figure and a population.
func (t *LookupTables) Beds(names ...string) (float64, bool) {
	for _, name := range names {
		if name == "" {
			continue
		}
		per1K, okBeds := t.bedsPer1K[name]
		pop, okPop := t.population[name]
		if okBeds && okPop {
			return per1K * float64(pop) / 1000.0, true
		}
	}
	return 0, false
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
