package domain

import (
	"fmt"
	"strings"
)

// CaseType identifies one of the four count series carried by every region.
type CaseType int

const (
	Confirmed CaseType = iota
	Deaths
	Recovered
	Active

	NumCaseTypes = 4
)

// CaseTypes lists every case type in wire order (the order series appear in
// the binary cases file).
var CaseTypes = [NumCaseTypes]CaseType{Confirmed, Deaths, Recovered, Active}

var caseTypeNames = [NumCaseTypes]string{"confirmed", "deaths", "recovered", "active"}

func (c CaseType) String() string {
	if c < 0 || int(c) >= NumCaseTypes {
		return fmt.Sprintf("CaseType(%d)", int(c))
	}
	return caseTypeNames[c]
}

// ParseCaseType maps a case type name (case-insensitive) to its tag.
func ParseCaseType(s string) (CaseType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range caseTypeNames {
		if name == s {
			return CaseType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown case type %q", s)
}

// DeltaMode selects how a cumulative series is differenced before display.
type DeltaMode int

const (
	Cumulative DeltaMode = iota
	Delta
	DeltaDelta
	DeltaPercent
)

var deltaModeNames = map[DeltaMode]string{
	Cumulative:   "cumulative",
	Delta:        "deltaCount",
	DeltaDelta:   "deltaDeltaCount",
	DeltaPercent: "deltaPercent",
}

func (d DeltaMode) String() string {
	if name, ok := deltaModeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DeltaMode(%d)", int(d))
}

// ParseDeltaMode accepts the query-string names used for sharing chart links.
func ParseDeltaMode(s string) (DeltaMode, error) {
	for mode, name := range deltaModeNames {
		if strings.EqualFold(name, s) {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown delta mode %q", s)
}

// CountRatio normalizes a count against a region's population or bed capacity.
type CountRatio int

const (
	Absolute CountRatio = iota
	PerMillion
	PerBed
)

var countRatioNames = map[CountRatio]string{
	Absolute:   "absolute",
	PerMillion: "per1MPop",
	PerBed:     "perBed",
}

func (r CountRatio) String() string {
	if name, ok := countRatioNames[r]; ok {
		return name
	}
	return fmt.Sprintf("CountRatio(%d)", int(r))
}

// ParseCountRatio maps a ratio name to its tag.
func ParseCountRatio(s string) (CountRatio, error) {
	for ratio, name := range countRatioNames {
		if strings.EqualFold(name, s) {
			return ratio, nil
		}
	}
	return 0, fmt.Errorf("unknown count ratio %q", s)
}

// ChartKind is the rendering style requested from the charting collaborator.
type ChartKind int

const (
	Line ChartKind = iota
	StackedArea
	StackedColumn
)

var chartKindNames = map[ChartKind]string{
	Line:          "line",
	StackedArea:   "stackedArea",
	StackedColumn: "stackedColumn",
}

func (k ChartKind) String() string {
	if name, ok := chartKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ChartKind(%d)", int(k))
}

// Stacked reports whether regions are drawn on top of each other, in which
// case the axis maximum is taken from the day-wise sum across regions.
func (k ChartKind) Stacked() bool { return k != Line }

// ParseChartKind maps a chart kind name to its tag.
func ParseChartKind(s string) (ChartKind, error) {
	for kind, name := range chartKindNames {
		if strings.EqualFold(name, s) {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown chart kind %q", s)
}

// RegionKind classifies a node of the region tree.
type RegionKind int

const (
	KindOther RegionKind = iota
	KindGlobal
	KindCountry
	KindProvince
	KindState
	KindCounty
)

var regionKindNames = map[RegionKind]string{
	KindOther:    "other",
	KindGlobal:   "global",
	KindCountry:  "country",
	KindProvince: "province",
	KindState:    "state",
	KindCounty:   "county",
}

func (k RegionKind) String() string {
	if name, ok := regionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RegionKind(%d)", int(k))
}

// ParseRegionKind maps a regionType column value to its tag. Unknown values
// classify as KindOther.
func ParseRegionKind(s string) RegionKind {
	s = strings.ToLower(strings.TrimSpace(s))
	for kind, name := range regionKindNames {
		if name == s {
			return kind
		}
	}
	return KindOther
}

// Level is the depth of a region in the tree.
type Level int

const (
	LevelGlobal   Level = 0
	LevelCountry  Level = 1
	LevelProvince Level = 2
	LevelCounty   Level = 3
)

// SortField orders region lists: by the latest count of a case type
// (descending) or by canonical name (ascending).
type SortField struct {
	ByName   bool
	CaseType CaseType
}

// SortByName orders regions alphabetically by canonical name.
var SortByName = SortField{ByName: true}

// SortByCount orders regions by the latest value of ct, largest first.
func SortByCount(ct CaseType) SortField { return SortField{CaseType: ct} }

func (f SortField) String() string {
	if f.ByName {
		return "name"
	}
	return f.CaseType.String()
}

// ParseSortField accepts "name" or any case type name.
func ParseSortField(s string) (SortField, error) {
	if strings.EqualFold(strings.TrimSpace(s), "name") {
		return SortByName, nil
	}
	ct, err := ParseCaseType(s)
	if err != nil {
		return SortField{}, fmt.Errorf("unknown sort field %q", s)
	}
	return SortByCount(ct), nil
}
