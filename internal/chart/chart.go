// Package chart assembles the data and options a charting front end needs to
// draw the selected regions.
package chart

import "github.com/couchcryptid/covid-trends-service/internal/domain"

// Chart is the complete drawing contract: global options plus one series per
// region, in display order.
type Chart struct {
	Options Options  `json:"options"`
	Series  []Series `json:"series"`
}

// Options applies to the whole chart.
type Options struct {
	Title         string  `json:"title"`
	AxisMaximum   float64 `json:"axisMaximum"`
	Logarithmic   bool    `json:"logarithmic"`
	LabelInterval int     `json:"labelInterval"`
	ValueFormat   string  `json:"valueFormat"`
	ColorSet      string  `json:"colorSet,omitempty"`
	LatestDate    string  `json:"latestDate,omitempty"`
}

// Series is one region's line, area or column set. ToolTip is a template in
// which {name}, {label} and {y} are substituted per point by the renderer.
type Series struct {
	Name    string  `json:"name"`
	ToolTip string  `json:"toolTip"`
	Kind    string  `json:"type"`
	Points  []Point `json:"points"`
}

// Point is one x position of a series. Y is nil for placeholder points that
// only reserve space and for values that are not finite.
type Point struct {
	X          int      `json:"x"`
	Y          *float64 `json:"y,omitempty"`
	Label      string   `json:"label,omitempty"`
	Format     string   `json:"format,omitempty"`
	Marker     *Marker  `json:"marker,omitempty"`
	ToolTip    string   `json:"toolTip,omitempty"`
	IndexLabel string   `json:"indexLabel,omitempty"`
}

// Marker highlights a point, used for doubling annotations.
type Marker struct {
	Type string `json:"type"`
	Size int    `json:"size"`
}

// Params are the display parameters that shape a chart.
type Params struct {
	CaseType      domain.CaseType
	Delta         domain.DeltaMode
	Ratio         domain.CountRatio
	Kind          domain.ChartKind
	Logarithmic   bool
	AlignDayZero  bool
	ShowLabels    bool
	StartDay      int
	Smooth        int
	ViewportWidth int
	TightAxis     bool
}
