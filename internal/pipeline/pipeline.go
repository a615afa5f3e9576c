// Package pipeline fetches, decodes and installs datasets, and publishes
// region summaries after each successful load.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/covid-trends-service/internal/dataset"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"github.com/couchcryptid/covid-trends-service/internal/observability"
	"github.com/couchcryptid/covid-trends-service/internal/source"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// Extractor reads the raw input files.
type Extractor interface {
	Fetch(ctx context.Context) (source.Payload, error)
}

// Transformer decodes raw input into a finished region tree.
type Transformer interface {
	Transform(ctx context.Context, p source.Payload) (*dataset.DataSet, error)
}

// Installer makes a dataset current.
type Installer interface {
	SetDataSet(ds *dataset.DataSet)
}

// SummaryLoader publishes region summaries.
type SummaryLoader interface {
	LoadSummaries(ctx context.Context, summaries []domain.RegionSummary) error
}

// Pipeline runs the fetch-decode-install cycle.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	installer   Installer
	summaries   SummaryLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	loadMu      sync.Mutex

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates a Pipeline. summaries may be nil to disable publishing.
func New(e Extractor, t Transformer, i Installer, summaries SummaryLoader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:      e,
		transformer:    t,
		installer:      i,
		summaries:      summaries,
		logger:         logger,
		metrics:        metrics,
		initialBackoff: time.Second,
		maxBackoff:     30 * time.Second,
	}
}

// SetRetryBackoff changes the delays between failed initial loads.
func (p *Pipeline) SetRetryBackoff(initial, maxBackoff time.Duration) {
	p.initialBackoff = initial
	p.maxBackoff = maxBackoff
}

// CheckReadiness returns nil once a dataset has been installed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no dataset has been loaded yet")
	}
	return nil
}

// Ready reports whether a dataset has been installed.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// Run loads the first dataset, retrying with exponential backoff until it
// succeeds, then waits for the context to be cancelled. Later loads happen
// through Load.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")

	backoff := p.initialBackoff
	for !p.ready.Load() {
		if ctx.Err() != nil {
			break
		}
		if err := p.Load(ctx); err == nil {
			break
		}
		if !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}

	<-ctx.Done()
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// Load runs one fetch-decode-install cycle. On failure the current dataset
// stays in place. Concurrent calls are serialized.
func (p *Pipeline) Load(ctx context.Context) error {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	start := time.Now()

	payload, err := p.extractor.Fetch(ctx)
	if err != nil {
		p.fail("fetch failed", err)
		return err
	}

	ds, err := p.transformer.Transform(ctx, payload)
	if err != nil {
		p.fail("decode failed", err)
		return err
	}

	// Summaries are built before install: Summarize fills region memos,
	// and once installed the tree is only touched under the session lock.
	summaries := p.summarize(ds)

	p.installer.SetDataSet(ds)
	p.ready.Store(true)
	p.record(ds, time.Since(start))

	p.publish(ctx, summaries)
	return nil
}

func (p *Pipeline) fail(msg string, err error) {
	p.logger.Error(msg, "error", err)
	p.metrics.Loads.WithLabelValues("error").Inc()
}

func (p *Pipeline) record(ds *dataset.DataSet, elapsed time.Duration) {
	stats := ds.Stats()
	p.metrics.Loads.WithLabelValues("success").Inc()
	p.metrics.LoadDuration.Observe(elapsed.Seconds())
	p.metrics.DataLoaded.Set(1)
	p.metrics.RegionsLoaded.Set(float64(stats.Regions))

	anomalies := map[string]int{
		"unresolved_case_id": stats.UnresolvedCaseIDs,
		"lookup_miss":        stats.LookupMisses,
		"placeholder":        stats.Placeholders,
		"duplicate":          stats.Duplicates,
		"skipped_row":        stats.SkippedRows,
		"split_entry":        stats.SplitEntries,
	}
	for kind, n := range anomalies {
		p.metrics.LoadAnomalies.WithLabelValues(kind).Set(float64(n))
	}
}

// summarize returns summaries of Global and every country, or nil when
// publishing is disabled.
func (p *Pipeline) summarize(ds *dataset.DataSet) []domain.RegionSummary {
	if p.summaries == nil {
		return nil
	}

	countries := ds.Countries()
	summaries := make([]domain.RegionSummary, 0, len(countries)+1)
	summaries = append(summaries, domain.Summarize(ds.Global()))
	for _, c := range countries {
		summaries = append(summaries, domain.Summarize(c))
	}
	return summaries
}

// publish sends the summaries. A publishing failure does not fail the load.
func (p *Pipeline) publish(ctx context.Context, summaries []domain.RegionSummary) {
	if p.summaries == nil {
		return
	}

	if err := p.summaries.LoadSummaries(ctx, summaries); err != nil {
		p.logger.Error("publish summaries failed", "error", err, "count", len(summaries))
		p.metrics.SummaryErrors.Inc()
		return
	}
	p.metrics.SummariesPublished.Add(float64(len(summaries)))
}
