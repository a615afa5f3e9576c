package chart

import (
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	percentFormat = "0.##%"
	countFormat   = "#,###,###"
)

var caseTitles = map[domain.CaseType]string{
	domain.Confirmed: "COVID-19 Confirmed Cases by Country",
	domain.Deaths:    "COVID-19 Deaths by Country",
	domain.Recovered: "COVID-19 Recovered Cases by Country",
	domain.Active:    "COVID-19 Active Cases by Country",
}

var deltaTitles = map[domain.DeltaMode]string{
	domain.Cumulative:   " Cumulative Total",
	domain.Delta:        " Daily Deltas (Δ)",
	domain.DeltaDelta:   " Daily Acceleration (ΔΔ)",
	domain.DeltaPercent: " Daily Delta %",
}

var ratioTitles = map[domain.CountRatio]string{
	domain.Absolute:   "",
	domain.PerMillion: " per 1M Population",
	domain.PerBed:     " as % of Hospital Beds",
}

// Title composes the chart heading from the display parameters.
func Title(p Params) string {
	var b strings.Builder
	b.WriteString(caseTitles[p.CaseType])
	b.WriteString(deltaTitles[p.Delta])
	b.WriteString(ratioTitles[p.Ratio])
	if p.AlignDayZero {
		b.WriteString(" with Day Zeroes Aligned")
	}
	return b.String()
}

// LabelInterval spaces x-axis labels so they stay legible at the given
// viewport width in pixels.
func LabelInterval(viewportWidth int) int {
	switch {
	case viewportWidth > 1300:
		return 1
	case viewportWidth > 800:
		return 2
	default:
		return 5
	}
}

// ValueFormat is the y-axis format for the whole chart.
func ValueFormat(p Params) string {
	if p.Ratio == domain.PerBed || p.Delta == domain.DeltaPercent {
		return percentFormat
	}
	return countFormat
}

// pointFormat picks a per-point format hint by magnitude. Fractions of beds
// and percentage deltas always render as percentages.
func pointFormat(v float64, p Params) string {
	if p.Ratio == domain.PerBed || p.Delta == domain.DeltaPercent {
		return percentFormat
	}
	switch {
	case v >= 100:
		return countFormat
	case v >= 1:
		return "#.#"
	case v >= 0.01:
		return "0.###"
	case v == 0 || math.IsNaN(v):
		return "#"
	default:
		return "0.######"
	}
}

// toolTipTemplate describes what a point shows, for example
// "{name}: Δ deaths on day {label}: {y}/1M Pop (7 pt moving avg)".
func toolTipTemplate(p Params) string {
	measure := "Total"
	switch p.Delta {
	case domain.Delta, domain.DeltaPercent:
		measure = "Δ"
	case domain.DeltaDelta:
		measure = "ΔΔ"
	}

	tmpl := "{name}: " + measure + " " + p.CaseType.String() + " on day {label}: {y}"
	switch p.Ratio {
	case domain.PerMillion:
		tmpl += "/1M Pop"
	case domain.PerBed:
		tmpl += "/Bed"
	}
	if p.Smooth > 1 {
		tmpl += " (" + strconv.Itoa(p.Smooth) + " pt moving avg)"
	}
	return tmpl
}

func expandToolTip(tmpl, name, label string, y float64) string {
	r := strings.NewReplacer("{name}", name, "{label}", label, "{y}", formatNumber(y, 2))
	return r.Replace(tmpl)
}

var printer = message.NewPrinter(language.English)

// formatNumber renders v with thousands separators and at most maxFraction
// decimal places.
func formatNumber(v float64, maxFraction int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(maxFraction)))
}
