package domain

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortRegions orders regions in place and returns the slice. Count sorts are
// descending by the latest value of the case type; ties keep no particular
// order. Name sorts use English collation so accented names sort next to
// their unaccented neighbours.
func SortRegions(regions []*Region, field SortField) []*Region {
	if field.ByName {
		col := collate.New(language.English)
		sort.SliceStable(regions, func(i, j int) bool {
			return col.CompareString(regions[i].Name, regions[j].Name) < 0
		})
		return regions
	}

	ct := field.CaseType
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Latest(ct) > regions[j].Latest(ct)
	})
	return regions
}
