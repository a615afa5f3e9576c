// Package session holds the loaded dataset together with the viewer's
// selection and display parameters, and turns them into charts.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/couchcryptid/covid-trends-service/internal/chart"
	"github.com/couchcryptid/covid-trends-service/internal/dataset"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"github.com/couchcryptid/covid-trends-service/internal/observability"
)

// ErrNotLoaded is returned by every operation that needs a dataset before
// one has been installed.
var ErrNotLoaded = errors.New("dataset not loaded")

// Session serializes access to the current region tree. All methods are safe
// for concurrent use.
type Session struct {
	mu     sync.Mutex
	ds     *dataset.DataSet
	params chart.Params

	// firstCountry is set until the viewer picks a region by hand; the first
	// pick replaces the initial Global selection instead of adding to it.
	firstCountry bool

	cache   *chart.Cache
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a session with default parameters and no dataset.
func New(cache *chart.Cache, metrics *observability.Metrics, logger *slog.Logger) *Session {
	return &Session{
		params:       DefaultParams(),
		firstCountry: true,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
	}
}

// SetDataSet replaces the current dataset. Regions showing in the old tree
// are selected again by name in the new one; if none resolve, Global is
// shown.
func (s *Session) SetDataSet(ds *dataset.DataSet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keep []string
	if s.ds != nil {
		for _, r := range s.ds.Showing() {
			keep = append(keep, r.Name)
		}
	}

	ds.ClearShowing()
	if unknown := ds.ShowRegions(keep); len(unknown) > 0 {
		s.logger.Warn("selected regions missing from new dataset", "regions", unknown)
	}
	s.ds = ds
	s.ensureSomethingShowing()
	s.params.StartDay = ClampStartDay(s.params.StartDay, ds.TotalDays())
	s.cache.Purge()

	s.logger.Info("dataset installed",
		"regions", len(ds.Regions()),
		"days", ds.TotalDays(),
		"showing", len(ds.Showing()),
	)
}

// Read runs fn with the current dataset while holding the session lock, so
// fn sees a consistent selection. fn must not retain ds.
func (s *Session) Read(fn func(ds *dataset.DataSet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return ErrNotLoaded
	}
	return fn(s.ds)
}

// Apply replaces the display parameters with those in q. When q names
// regions they become the whole selection; names that do not resolve are
// returned. Without region names the selection is left alone.
func (s *Session) Apply(q url.Values) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil, ErrNotLoaded
	}

	view, err := ParseQuery(q, s.ds.TotalDays())
	if err != nil {
		return nil, err
	}
	s.params = view.Params

	if len(view.Regions) == 0 {
		return nil, nil
	}
	s.ds.ClearShowing()
	unknown := s.ds.ShowRegions(view.Regions)
	s.firstCountry = !s.ds.AnyShowing()
	s.ensureSomethingShowing()
	return unknown, nil
}

// Params returns the current display parameters.
func (s *Session) Params() chart.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SetCaseType selects which series is charted.
func (s *Session) SetCaseType(ct domain.CaseType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.CaseType = ct
}

// SetDelta changes the differencing mode. Differenced series are drawn as
// stacked columns of absolute counts.
func (s *Session) SetDelta(d domain.DeltaMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Delta = d
	if d != domain.Cumulative {
		s.params.Ratio = domain.Absolute
		s.params.Kind = domain.StackedColumn
	}
}

// SetRatio changes the normalization.
func (s *Session) SetRatio(r domain.CountRatio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Ratio = r
}

// SetChartKind changes the rendering style. Stacked kinds only make sense for
// absolute counts.
func (s *Session) SetChartKind(k domain.ChartKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Kind = k
	if k != domain.Line {
		s.params.Ratio = domain.Absolute
	}
}

// SetLogarithmic toggles the logarithmic axis.
func (s *Session) SetLogarithmic(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Logarithmic = on
}

// SetTightAxis picks the tighter 1-2-...-9 axis maximum instead of 1-2-5.
func (s *Session) SetTightAxis(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.TightAxis = on
}

// SetAlignDayZero toggles day-zero alignment and resets the start day.
func (s *Session) SetAlignDayZero(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.AlignDayZero = on
	s.params.StartDay = 0
}

// SetShowLabels toggles region labels on the last point.
func (s *Session) SetShowLabels(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.ShowLabels = on
}

// SetStartDay moves the first day shown, clamped to the loaded range.
func (s *Session) SetStartDay(day int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	if s.ds != nil {
		total = s.ds.TotalDays()
	}
	s.params.StartDay = ClampStartDay(day, total)
}

// SetSmooth sets the moving-average window; 1 disables smoothing.
func (s *Session) SetSmooth(window int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Smooth = min(max(window, 1), maxSmooth)
}

// SetShowing selects or deselects one region by name. The first region
// picked by hand replaces the initial Global selection.
func (s *Session) SetShowing(name string, showing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return ErrNotLoaded
	}

	r := s.ds.RegionByName(name)
	if r == nil {
		return fmt.Errorf("%w: %q", dataset.ErrUnknownRegion, name)
	}
	if showing && s.firstCountry && !r.IsGlobal() {
		s.ds.Global().SetShowing(false)
		s.firstCountry = false
	}
	r.SetShowing(showing)
	s.ensureSomethingShowing()
	return nil
}

// SelectAll selects or deselects every country, or every sub-region of
// country when it is not empty. Global is shown exactly when the group is
// deselected.
func (s *Session) SelectAll(country string, showing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return ErrNotLoaded
	}

	regions := s.ds.Countries()
	if country != "" {
		var err error
		if regions, err = s.ds.SubRegions(country); err != nil {
			return err
		}
	}
	for _, r := range regions {
		r.SetShowing(showing)
	}
	s.ds.Global().SetShowing(!showing)
	s.firstCountry = false
	s.ensureSomethingShowing()
	return nil
}

// Showing returns the selected regions in tree order.
func (s *Session) Showing() ([]*domain.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil, ErrNotLoaded
	}
	return s.ds.Showing(), nil
}

// Chart builds, or returns from cache, the chart for the current selection.
// A positive viewportWidth overrides the stored one for this chart only.
func (s *Session) Chart(viewportWidth int) (*chart.Chart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil, ErrNotLoaded
	}

	p := s.params
	if viewportWidth > 0 {
		p.ViewportWidth = viewportWidth
	}
	regions := s.ds.Showing()
	latest := s.ds.LatestDateLabel()

	key := chart.CacheKey(p, regions, s.ds.LoadedAt())
	c, hit := s.cache.GetOrBuild(key, func() *chart.Chart {
		s.metrics.ChartBuilds.Inc()
		c := chart.Build(regions, p)
		c.Options.LatestDate = latest
		return c
	})
	if hit {
		s.metrics.ChartCache.WithLabelValues("hit").Inc()
	} else {
		s.metrics.ChartCache.WithLabelValues("miss").Inc()
	}
	return c, nil
}

// ShareQuery encodes the current parameters and selection so that Apply on
// another session reproduces this view.
func (s *Session) ShareQuery() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return "", ErrNotLoaded
	}

	showing := s.ds.Showing()
	names := make([]string, len(showing))
	for i, r := range showing {
		names[i] = r.ShortestName()
	}
	return Encode(s.params, names), nil
}

func (s *Session) ensureSomethingShowing() {
	if len(s.ds.Showing()) == 0 {
		s.ds.Global().SetShowing(true)
	}
}
