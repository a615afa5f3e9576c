// Package domain models the region hierarchy and the case-count series
// attached to it.
//
// # Region Tree
//
// Every dataset has a single root named "Global" (level 0). Below it:
//
//	Level 1  countries and other top-level regions ("US", "Diamond Princess")
//	Level 2  provinces and US states ("Hubei", "New York")
//	Level 3  counties and cities ("Kings County", "Portland, OR")
//
// A parent indexes its children by tree key, the literal level name from the
// source row (regionLevel1/2/3). The canonical name shown to users is the
// location name passed through the region synonym table, so "Korea, South"
// keys as itself but displays as "South Korea".
//
// # Series
//
// Each region carries four cumulative series (confirmed, deaths, recovered,
// active) indexed by day offset from [Epoch], 2020-01-22. Internal nodes hold
// the elementwise sum of their children after [Region.AggregateCounts].
//
// # Demographics
//
// Population and hospital bed capacity come from [LookupTables], an embedded
// JSON document. They are resolved for levels 0 and 1 and for US states, by
// canonical name first and then by alternate name (state populations are
// keyed by postal abbreviation). Beds are stored per 1000 residents and
// converted to an absolute count at construction.
package domain
