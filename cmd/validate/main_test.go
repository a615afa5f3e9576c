package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/covid-trends-service/internal/codec"
	"github.com/couchcryptid/covid-trends-service/internal/dataset"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRegions = `id,regionLevel,regionLevel1,regionLevel2,regionLevel3,regionType,locationName,altLocationName,latitude,longitude
1,1,US,,,country,US,,37,-95
11,2,US,New York,,state,"New York, US",NY,42.1,-74.9
2,1,Italy,,,country,Italy,,42,12
`

func loadCompact(t *testing.T, entries []codec.CaseEntry) *dataset.DataSet {
	t.Helper()
	ds, err := dataset.FromCompact([]byte(testRegions), codec.EncodeCases(entries),
		domain.DefaultLookupTables(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return ds
}

func entry(id int, confirmed ...int64) codec.CaseEntry {
	return codec.CaseEntry{ID: id, Counts: [domain.NumCaseTypes][]int64{confirmed}}
}

func TestValidateLoad_ReportsUnresolvedIDs(t *testing.T) {
	ds := loadCompact(t, []codec.CaseEntry{entry(11, 1, 2), entry(2, 0, 1), entry(99, 5, 5)})
	p := validateLoad(ds)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "unknown region ids")
}

func TestValidateSeriesAndAggregation_Pass(t *testing.T) {
	ds := loadCompact(t, []codec.CaseEntry{entry(11, 1, 2, 4), entry(2, 0, 1, 1)})
	assert.True(t, validateSeries(ds).passed())
	assert.True(t, validateAggregation(ds).passed())
}

func TestValidateAggregation_DetectsDrift(t *testing.T) {
	ds := loadCompact(t, []codec.CaseEntry{entry(11, 1, 2, 4), entry(2, 0, 1, 1)})
	ds.RegionByName("US").SetSeries(domain.Confirmed, []int64{1, 2, 5})

	p := validateAggregation(ds)
	require.False(t, p.passed())
	assert.Contains(t, p.errors, "US confirmed on 1/24: 5, children sum to 4")
}

func TestValidateSeries_DetectsNegativeCounts(t *testing.T) {
	ds := loadCompact(t, []codec.CaseEntry{entry(11, 1, 2), entry(2, 0, 1)})
	ds.RegionByName("Italy").SetSeries(domain.Deaths, []int64{0, -1})

	p := validateSeries(ds)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "negative count -1 on 1/23")
}

func TestValidateParity(t *testing.T) {
	compact := loadCompact(t, []codec.CaseEntry{entry(11, 1, 2), entry(2, 0, 1)})
	matrix, err := dataset.FromMatrix([]dataset.MatrixFile{{
		CaseType: domain.Confirmed,
		Data: []byte("Province/State,Country/Region,Lat,Long,1/22/20,1/23/20\n" +
			"New York,US,42.1,-74.9,1,2\n,Italy,42,12,0,3\n"),
	}}, domain.DefaultLookupTables(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	p := validateParity(compact, matrix)
	assert.Contains(t, p.errors, "global confirmed: compact 3, time series 5")
	assert.Contains(t, p.errors, "Italy confirmed: compact 1, time series 3")
}

func TestRun_SampleData(t *testing.T) {
	dir := filepath.Join("..", "..", "data")
	var out bytes.Buffer
	code := run(inputs{
		regions:   filepath.Join(dir, "regioninfo.csv"),
		cases:     filepath.Join(dir, "caseinfo.dat"),
		confirmed: filepath.Join(dir, "time_series_covid19_confirmed_global.csv"),
		deaths:    filepath.Join(dir, "time_series_covid19_deaths_global.csv"),
	}, &out)

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "All validations passed.")
	assert.Contains(t, out.String(), "Global: 609 confirmed, 46 deaths")
}
