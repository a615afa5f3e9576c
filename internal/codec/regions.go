package codec

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/covid-trends-service/internal/domain"
)

// regionColumns is the column order written by WriteRegionRecords.
var regionColumns = []string{
	"id",
	"regionLevel",
	"regionLevel1",
	"regionLevel2",
	"regionLevel3",
	"regionType",
	"locationName",
	"altLocationName",
	"latitude",
	"longitude",
	"fips",
}

// RegionTable is the decoded content of a regions CSV. Rows that could not be
// decoded are reported in Skipped and otherwise ignored.
type RegionTable struct {
	Records []domain.RegionFields
	Skipped []error
}

// ParseRegionRecords decodes a regions CSV. Columns are located by header
// name, so their order is free and unknown columns are ignored. Only id and
// regionLevel are required.
func ParseRegionRecords(data []byte) (RegionTable, error) {
	var table RegionTable

	lines := splitLines(data)
	if len(lines) == 0 {
		return table, errors.New("regions file is empty")
	}

	pos := make(map[string]int)
	for i, name := range ParseLine(lines[0]) {
		pos[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"id", "regionLevel"} {
		if _, ok := pos[required]; !ok {
			return table, fmt.Errorf("regions header is missing column %q", required)
		}
	}

	for i, line := range lines[1:] {
		row := ParseLine(line)
		field := func(name string) string {
			if p, ok := pos[name]; ok && p < len(row) {
				return strings.TrimSpace(row[p])
			}
			return ""
		}

		rec, err := regionRecord(field)
		if err != nil {
			table.Skipped = append(table.Skipped, fmt.Errorf("line %d: %w", i+2, err))
			continue
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

func regionRecord(field func(string) string) (domain.RegionFields, error) {
	id, err := strconv.Atoi(field("id"))
	if err != nil {
		return domain.RegionFields{}, fmt.Errorf("invalid id %q", field("id"))
	}
	level, err := strconv.Atoi(field("regionLevel"))
	if err != nil || level < int(domain.LevelCountry) || level > int(domain.LevelCounty) {
		return domain.RegionFields{}, fmt.Errorf("id %d: invalid regionLevel %q", id, field("regionLevel"))
	}

	rec := domain.RegionFields{
		ID:           id,
		Level:        domain.Level(level),
		Kind:         domain.ParseRegionKind(field("regionType")),
		Level1:       field("regionLevel1"),
		Level2:       field("regionLevel2"),
		Level3:       field("regionLevel3"),
		LocationName: field("locationName"),
		AltName:      field("altLocationName"),
		Latitude:     parseFloatOrZero(field("latitude")),
		Longitude:    parseFloatOrZero(field("longitude")),
		FIPS:         field("fips"),
	}
	if rec.Key() == "" {
		return domain.RegionFields{}, fmt.Errorf("id %d: empty regionLevel%d", id, level)
	}
	if rec.LocationName == "" {
		rec.LocationName = rec.Key()
	}
	return rec, nil
}

func parseFloatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// WriteRegionRecords writes records as a regions CSV with a header row. Text
// fields containing a comma are wrapped in double quotes.
func WriteRegionRecords(w io.Writer, records []domain.RegionFields) error {
	if _, err := io.WriteString(w, strings.Join(regionColumns, ",")+"\n"); err != nil {
		return fmt.Errorf("write regions header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.ID),
			strconv.Itoa(int(r.Level)),
			QuoteField(r.Level1),
			QuoteField(r.Level2),
			QuoteField(r.Level3),
			r.Kind.String(),
			QuoteField(r.LocationName),
			QuoteField(r.AltName),
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
			QuoteField(r.FIPS),
		}
		if _, err := io.WriteString(w, strings.Join(row, ",")+"\n"); err != nil {
			return fmt.Errorf("write region %d: %w", r.ID, err)
		}
	}
	return nil
}

// QuoteField wraps s in double quotes when it contains a comma.
func QuoteField(s string) string {
	if strings.Contains(s, ",") {
		return `"` + s + `"`
	}
	return s
}
