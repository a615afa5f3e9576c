package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/covid-trends-service/internal/chart"
	"github.com/couchcryptid/covid-trends-service/internal/config"
	"github.com/couchcryptid/covid-trends-service/internal/dataset"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"github.com/couchcryptid/covid-trends-service/internal/observability"
	"github.com/couchcryptid/covid-trends-service/internal/pipeline"
	"github.com/couchcryptid/covid-trends-service/internal/session"
	"github.com/couchcryptid/covid-trends-service/internal/source"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	failures int32
	calls    atomic.Int32
	payload  source.Payload
}

func (m *mockExtractor) Fetch(_ context.Context) (source.Payload, error) {
	if m.calls.Add(1) <= m.failures {
		return source.Payload{}, errors.New("source unavailable")
	}
	return m.payload, nil
}

type mockInstaller struct {
	mu        sync.Mutex
	installed []*dataset.DataSet
}

func (m *mockInstaller) SetDataSet(ds *dataset.DataSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installed = append(m.installed, ds)
}

func (m *mockInstaller) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.installed)
}

type mockSummaryLoader struct {
	err    error
	loaded []domain.RegionSummary
}

func (m *mockSummaryLoader) LoadSummaries(_ context.Context, summaries []domain.RegionSummary) error {
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, summaries...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

// sampleFetcher reads the sample files shipped in data/.
func sampleFetcher(t *testing.T, format string) *source.Fetcher {
	t.Helper()
	cfg := &config.Config{
		DataSource:       "../../data",
		DataFormat:       format,
		RegionsFile:      "regioninfo.csv",
		CasesFile:        "caseinfo.dat",
		MatrixFile:       "time_series_covid19_confirmed_global.csv",
		MatrixDeathsFile: "time_series_covid19_deaths_global.csv",
		FetchTimeout:     time.Second,
	}
	return source.NewFetcher(cfg, newTestMetrics(), testLogger())
}

func samplePayload(t *testing.T) source.Payload {
	t.Helper()
	p, err := sampleFetcher(t, config.FormatCompact).Fetch(context.Background())
	require.NoError(t, err)
	return p
}

// --- tests ---

func TestPipeline_LoadSampleData(t *testing.T) {
	for _, format := range []string{config.FormatCompact, config.FormatMatrix} {
		t.Run(format, func(t *testing.T) {
			metrics := newTestMetrics()
			sess := session.New(chart.NewCache(8), metrics, testLogger())
			summaries := &mockSummaryLoader{}
			p := pipeline.New(
				sampleFetcher(t, format),
				pipeline.NewTransformer(domain.DefaultLookupTables(), testLogger()),
				sess, summaries, testLogger(), metrics,
			)

			require.NoError(t, p.Load(context.Background()))
			require.NoError(t, p.CheckReadiness(context.Background()))

			require.NoError(t, sess.Read(func(ds *dataset.DataSet) error {
				assert.Equal(t, 14, ds.TotalDays())
				assert.Equal(t, int64(406), ds.RegionByName("US").Latest(domain.Confirmed))
				assert.Equal(t, int64(22), ds.RegionByName("Canada").Latest(domain.Confirmed))
				assert.Equal(t, int64(181), ds.RegionByName("Italy").Latest(domain.Confirmed))
				assert.Equal(t, int64(609), ds.Global().Latest(domain.Confirmed))
				assert.Equal(t, int64(46), ds.Global().Latest(domain.Deaths))
				return nil
			}))

			require.Len(t, summaries.loaded, 4, "Global and three countries")
			assert.Equal(t, domain.GlobalName, summaries.loaded[0].Name)
			assert.Equal(t, "2020-02-04", summaries.loaded[0].AsOf)

			assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Loads.WithLabelValues("success")), 1e-9)
			assert.InDelta(t, 4.0, testutil.ToFloat64(metrics.SummariesPublished), 1e-9)
			assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.DataLoaded), 1e-9)
			assert.Positive(t, testutil.ToFloat64(metrics.RegionsLoaded))

			c, err := sess.Chart(0)
			require.NoError(t, err)
			require.Len(t, c.Series, 1)
			assert.Equal(t, domain.GlobalName, c.Series[0].Name)
		})
	}
}

func TestPipeline_LoadWhileCharting(t *testing.T) {
	metrics := newTestMetrics()
	sess := session.New(chart.NewCache(8), metrics, testLogger())
	summaries := &mockSummaryLoader{}
	p := pipeline.New(
		&mockExtractor{payload: samplePayload(t)},
		pipeline.NewTransformer(domain.DefaultLookupTables(), testLogger()),
		sess, summaries, testLogger(), metrics,
	)
	require.NoError(t, p.Load(context.Background()))

	stop := make(chan struct{})
	charted := make(chan error, 1)
	go func() {
		for {
			select {
			case <-stop:
				charted <- nil
				return
			default:
			}
			if _, err := sess.Chart(0); err != nil {
				charted <- err
				return
			}
		}
	}()

	for range 5 {
		require.NoError(t, p.Load(context.Background()))
	}
	close(stop)
	require.NoError(t, <-charted)

	assert.Len(t, summaries.loaded, 6*4)
	assert.InDelta(t, 6.0, testutil.ToFloat64(metrics.Loads.WithLabelValues("success")), 1e-9)
}

func TestPipeline_LoadFailureKeepsCurrentDataset(t *testing.T) {
	ext := &mockExtractor{payload: samplePayload(t)}
	inst := &mockInstaller{}
	metrics := newTestMetrics()
	p := pipeline.New(ext, pipeline.NewTransformer(domain.DefaultLookupTables(), testLogger()), inst, nil, testLogger(), metrics)

	require.NoError(t, p.Load(context.Background()))
	ext.failures = 10
	err := p.Load(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, inst.count())
	assert.True(t, p.Ready(), "still serving the first dataset")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Loads.WithLabelValues("error")), 1e-9)
}

func TestPipeline_DecodeFailure(t *testing.T) {
	ext := &mockExtractor{payload: source.Payload{Format: config.FormatCompact, Regions: []byte("name\nx\n"), Cases: []byte{0x80}}}
	inst := &mockInstaller{}
	p := pipeline.New(ext, pipeline.NewTransformer(domain.DefaultLookupTables(), testLogger()), inst, nil, testLogger(), newTestMetrics())

	require.Error(t, p.Load(context.Background()))
	assert.Zero(t, inst.count())
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_SummaryFailureDoesNotFailLoad(t *testing.T) {
	ext := &mockExtractor{payload: samplePayload(t)}
	metrics := newTestMetrics()
	p := pipeline.New(ext, pipeline.NewTransformer(domain.DefaultLookupTables(), testLogger()),
		&mockInstaller{}, &mockSummaryLoader{err: errors.New("broker down")}, testLogger(), metrics)

	require.NoError(t, p.Load(context.Background()))
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SummaryErrors), 1e-9)
	assert.Zero(t, testutil.ToFloat64(metrics.SummariesPublished))
}

func TestPipeline_Run_RetriesInitialLoad(t *testing.T) {
	ext := &mockExtractor{failures: 2, payload: samplePayload(t)}
	inst := &mockInstaller{}
	p := pipeline.New(ext, pipeline.NewTransformer(domain.DefaultLookupTables(), testLogger()), inst, nil, testLogger(), newTestMetrics())
	p.SetRetryBackoff(time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, p.Ready, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, int32(3), ext.calls.Load())
	assert.Equal(t, 1, inst.count())
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{failures: 1000}
	p := pipeline.New(ext, pipeline.NewTransformer(domain.DefaultLookupTables(), testLogger()), &mockInstaller{}, nil, testLogger(), newTestMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	require.NoError(t, p.Run(ctx))
	assert.False(t, p.Ready())
}

func TestTransformer_UnknownFormat(t *testing.T) {
	tfm := pipeline.NewTransformer(domain.DefaultLookupTables(), testLogger())
	_, err := tfm.Transform(context.Background(), source.Payload{Format: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}
