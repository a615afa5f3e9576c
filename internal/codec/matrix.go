package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MatrixRow is one region row of a matrix file with its per-day counts.
type MatrixRow struct {
	Country   string
	Province  string
	Latitude  float64
	Longitude float64
	Counts    []int64
}

// Matrix is a decoded wide-format time series file: one row per region, one
// column per day.
type Matrix struct {
	Dates []string
	Rows  []MatrixRow
}

// ParseMatrix decodes a matrix file whose header names "Province/State",
// "Country/Region", optionally "Lat" and "Long", and then one column per day.
// A column is a day column when its header starts with a digit. An empty or
// unreadable cell repeats the previous day's count.
func ParseMatrix(data []byte) (*Matrix, error) {
	lines := splitLines(data)
	if len(lines) == 0 {
		return nil, errors.New("matrix file is empty")
	}

	header := ParseLine(lines[0])
	var (
		m        Matrix
		dateCols []int
	)
	countryCol, provinceCol, latCol, lonCol := -1, -1, -1, -1
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case name == "Country/Region":
			countryCol = i
		case name == "Province/State":
			provinceCol = i
		case name == "Lat":
			latCol = i
		case name == "Long":
			lonCol = i
		case isDateColumn(name):
			dateCols = append(dateCols, i)
			m.Dates = append(m.Dates, name)
		}
	}
	if countryCol < 0 {
		return nil, fmt.Errorf("matrix header is missing column %q", "Country/Region")
	}

	cell := func(row []string, col int) string {
		if col < 0 || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	for _, line := range lines[1:] {
		row := ParseLine(line)
		country := cell(row, countryCol)
		if country == "" {
			continue
		}
		mr := MatrixRow{
			Country:   country,
			Province:  cell(row, provinceCol),
			Latitude:  parseFloatOrZero(cell(row, latCol)),
			Longitude: parseFloatOrZero(cell(row, lonCol)),
			Counts:    make([]int64, len(dateCols)),
		}
		var last int64
		for d, col := range dateCols {
			if v, ok := parseCount(cell(row, col)); ok {
				last = v
			}
			mr.Counts[d] = last
		}
		m.Rows = append(m.Rows, mr)
	}
	return &m, nil
}

func isDateColumn(name string) bool {
	return name != "" && name[0] >= '0' && name[0] <= '9'
}

func parseCount(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}
