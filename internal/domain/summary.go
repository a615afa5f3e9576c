package domain

import "time"

// RegionSummary is the latest state of one region, published for downstream
// consumers after every load.
type RegionSummary struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	ShortName   string    `json:"shortName,omitempty"`
	Parent      string    `json:"parent,omitempty"`
	Kind        string    `json:"kind"`
	Level       int       `json:"level"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Population  int64     `json:"population,omitempty"`
	Beds        float64   `json:"beds,omitempty"`
	AsOf        string    `json:"asOf"`
	FirstDay    string    `json:"firstDay"`
	Confirmed   int64     `json:"confirmed"`
	Deaths      int64     `json:"deaths"`
	Recovered   int64     `json:"recovered"`
	Active      int64     `json:"active"`
	NewCases    int64     `json:"newCases"`
	NewDeaths   int64     `json:"newDeaths"`
	ProcessedAt time.Time `json:"processedAt"`
}

// Summarize captures r's latest counts. ProcessedAt is left for the
// publisher to stamp.
func Summarize(r *Region) RegionSummary {
	s := RegionSummary{
		ID:         r.ID,
		Name:       r.Name,
		ShortName:  r.ShortName,
		Kind:       r.Kind.String(),
		Level:      int(r.Level),
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Population: r.Population,
		Beds:       r.Beds,
		Confirmed:  r.Latest(Confirmed),
		Deaths:     r.Latest(Deaths),
		Recovered:  r.Latest(Recovered),
		Active:     r.Latest(Active),
		NewCases:   r.LatestDelta(Confirmed),
		NewDeaths:  r.LatestDelta(Deaths),
	}
	if r.parent != nil {
		s.Parent = r.parent.Name
	}
	if days := r.DayCount(); days > 0 {
		s.AsOf = DayDate(days - 1).Format(time.DateOnly)
		s.FirstDay = DayDate(r.FirstNonZeroDay()).Format(time.DateOnly)
	}
	return s
}
