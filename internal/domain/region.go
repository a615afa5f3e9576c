package domain

import "sort"

// GlobalName is the canonical name of the tree root.
const GlobalName = "Global"

// RegionFields is the identity and metadata of a region as read from a
// regions file row, before normalization.
type RegionFields struct {
	ID           int
	Level        Level
	Kind         RegionKind
	Level1       string // country or other top-level region
	Level2       string // province or state
	Level3       string // county
	LocationName string
	AltName      string
	Latitude     float64
	Longitude    float64
	FIPS         string
}

// Key returns the literal name of the region at its own level. Parents index
// their children by this key.
func (f RegionFields) Key() string {
	switch f.Level {
	case LevelGlobal:
		return GlobalName
	case LevelCountry:
		return f.Level1
	case LevelProvince:
		return f.Level2
	default:
		return f.Level3
	}
}

// Region is one node of the geographic hierarchy together with its count
// series. Regions are built once per load; after construction the only
// mutations are attaching series, aggregation, and the showing flag.
type Region struct {
	ID         int
	Name       string
	ShortName  string
	Key        string
	Kind       RegionKind
	Level      Level
	Latitude   float64
	Longitude  float64
	Population int64
	Beds       float64

	parent   *Region
	children map[string]*Region
	counts   [NumCaseTypes][]int64
	showing  bool

	missingDemographics bool

	firstNonZero    int
	firstNonZeroSet bool
}

// NewRegion builds a region from its source fields. The canonical name is
// normalized through the region synonym table. Population and bed capacity
// are resolved for countries, top-level regions and US states; a miss leaves
// them at 0 and is reported by MissingDemographics.
func NewRegion(f RegionFields, tables *LookupTables) *Region {
	r := &Region{
		ID:        f.ID,
		Name:      tables.NormalizeRegion(f.LocationName),
		ShortName: f.AltName,
		Key:       f.Key(),
		Kind:      f.Kind,
		Level:     f.Level,
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		children:  make(map[string]*Region),
	}
	for _, ct := range CaseTypes {
		r.counts[ct] = []int64{}
	}

	if r.Level < LevelProvince || r.Kind == KindState {
		pop, okPop := tables.Population(r.Name, r.ShortName)
		beds, okBeds := tables.Beds(r.Name, r.ShortName)
		r.Population = pop
		r.Beds = beds
		r.missingDemographics = !okPop || !okBeds
	}
	return r
}

// MissingDemographics reports whether a population or bed lookup that should
// have succeeded for this region did not.
func (r *Region) MissingDemographics() bool { return r.missingDemographics }

// SetCounts replaces all four series at once.
func (r *Region) SetCounts(counts [NumCaseTypes][]int64) {
	for _, ct := range CaseTypes {
		r.SetSeries(ct, counts[ct])
	}
}

// SetSeries replaces the series of one case type.
func (r *Region) SetSeries(ct CaseType, series []int64) {
	if series == nil {
		series = []int64{}
	}
	r.counts[ct] = series
	r.firstNonZeroSet = false
}

// Series returns the raw series for a case type. The slice is owned by the
// region and must not be modified.
func (r *Region) Series(ct CaseType) []int64 {
	return r.counts[ct]
}

// PadTo extends every series shorter than days with trailing zeros.
func (r *Region) PadTo(days int) {
	for _, ct := range CaseTypes {
		s := r.counts[ct]
		if len(s) >= days {
			continue
		}
		padded := make([]int64, days)
		copy(padded, s)
		r.counts[ct] = padded
	}
	r.firstNonZeroSet = false
}

// DayCount is the number of days in the confirmed series.
func (r *Region) DayCount() int {
	return len(r.counts[Confirmed])
}

// Latest returns the most recent value of a series, or 0 if it is empty.
func (r *Region) Latest(ct CaseType) int64 {
	s := r.counts[ct]
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// LatestDelta returns the change between the two most recent days. A
// single-day series reports its only value.
func (r *Region) LatestDelta(ct CaseType) int64 {
	s := r.counts[ct]
	switch len(s) {
	case 0:
		return 0
	case 1:
		return s[0]
	default:
		return s[len(s)-1] - s[len(s)-2]
	}
}

// FirstNonZeroDay returns the first day on which either confirmed cases or
// deaths are nonzero. If no such day exists the last day is returned. The
// result is memoized until the series change.
func (r *Region) FirstNonZeroDay() int {
	if !r.firstNonZeroSet {
		r.firstNonZero = firstNonZero(r.counts[Confirmed], r.counts[Deaths])
		r.firstNonZeroSet = true
	}
	return r.firstNonZero
}

func firstNonZero(confirmed, deaths []int64) int {
	if len(confirmed) == 0 {
		return 0
	}
	c := 0
	for ; c < len(confirmed)-1; c++ {
		if confirmed[c] > 0 || (c < len(deaths) && deaths[c] > 0) {
			break
		}
	}
	return c
}

// Parent returns the enclosing region, or nil for the root.
func (r *Region) Parent() *Region { return r.parent }

// AddChild links child under r by its key. An existing child with the same
// key is replaced; callers decide the collision policy before calling.
func (r *Region) AddChild(child *Region) {
	child.parent = r
	r.children[child.Key] = child
}

// Child returns the direct child with the given key, or nil.
func (r *Region) Child(key string) *Region {
	return r.children[key]
}

// HasChildren reports whether r is an internal node.
func (r *Region) HasChildren() bool { return len(r.children) > 0 }

// Children returns the direct children ordered by key.
func (r *Region) Children() []*Region {
	out := make([]*Region, 0, len(r.children))
	for _, c := range r.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SortedChildren returns the direct children ordered by field.
func (r *Region) SortedChildren(field SortField) []*Region {
	return SortRegions(r.Children(), field)
}

func (r *Region) Showing() bool { return r.showing }

func (r *Region) SetShowing(showing bool) { r.showing = showing }

func (r *Region) IsGlobal() bool { return r.Kind == KindGlobal }

func (r *Region) IsCountry() bool { return r.Kind == KindCountry }

func (r *Region) IsStateOrProvince() bool {
	return r.Kind == KindState || r.Kind == KindProvince
}

// ShortestName prefers the alternate name when one exists.
func (r *Region) ShortestName() string {
	if r.ShortName != "" {
		return r.ShortName
	}
	return r.Name
}

// AggregateCounts recomputes, depth first, the series of every internal node
// as the elementwise sum of its direct children. Leaf series are left as
// loaded. Internal nodes are rebuilt from scratch, so repeated calls produce
// the same result.
func (r *Region) AggregateCounts() {
	if len(r.children) == 0 {
		return
	}
	for _, child := range r.children {
		child.AggregateCounts()
	}
	for _, ct := range CaseTypes {
		n := 0
		for _, child := range r.children {
			if l := len(child.counts[ct]); l > n {
				n = l
			}
		}
		sum := make([]int64, n)
		for _, child := range r.children {
			for i, v := range child.counts[ct] {
				sum[i] += v
			}
		}
		r.counts[ct] = sum
	}
	r.firstNonZeroSet = false
}

// Walk visits r and every descendant depth first, parents before children.
func (r *Region) Walk(fn func(*Region)) {
	fn(r)
	for _, child := range r.Children() {
		child.Walk(fn)
	}
}
