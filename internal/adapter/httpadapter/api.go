package httpadapter

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/couchcryptid/covid-trends-service/internal/chart"
	"github.com/couchcryptid/covid-trends-service/internal/dataset"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"github.com/couchcryptid/covid-trends-service/internal/session"
)

type chartResponse struct {
	Chart          *chart.Chart `json:"chart"`
	Share          string       `json:"share"`
	UnknownRegions []string     `json:"unknownRegions,omitempty"`
}

// regionView is one entry of a region list.
type regionView struct {
	ID                  int              `json:"id"`
	Name                string           `json:"name"`
	ShortName           string           `json:"shortName"`
	Kind                string           `json:"kind"`
	Level               int              `json:"level"`
	Population          int64            `json:"population"`
	Beds                float64          `json:"beds"`
	MissingDemographics bool             `json:"missingDemographics,omitempty"`
	Latest              map[string]int64 `json:"latest"`
	Showing             bool             `json:"showing"`
	HasChildren         bool             `json:"hasChildren"`
}

type regionDetail struct {
	domain.RegionSummary
	Showing  bool               `json:"showing"`
	Children []string           `json:"children,omitempty"`
	Series   map[string][]int64 `json:"series"`
}

type selectionResponse struct {
	Share string `json:"share"`
}

func newRegionView(r *domain.Region) regionView {
	latest := make(map[string]int64, domain.NumCaseTypes)
	for _, ct := range domain.CaseTypes {
		latest[ct.String()] = r.Latest(ct)
	}
	return regionView{
		ID:                  r.ID,
		Name:                r.Name,
		ShortName:           r.ShortestName(),
		Kind:                r.Kind.String(),
		Level:               int(r.Level),
		Population:          r.Population,
		Beds:                r.Beds,
		MissingDemographics: r.MissingDemographics(),
		Latest:              latest,
		Showing:             r.Showing(),
		HasChildren:         r.HasChildren(),
	}
}

func regionViews(regions []*domain.Region) []regionView {
	out := make([]regionView, len(regions))
	for i, r := range regions {
		out[i] = newRegionView(r)
	}
	return out
}

// handleChart applies any parameters and region names in the query string,
// then returns the chart for the resulting selection.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	var resp chartResponse
	q := r.URL.Query()
	if len(q) > 0 {
		unknown, err := s.session.Apply(q)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.UnknownRegions = unknown
	}

	c, err := s.session.Chart(0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp.Chart = c
	if resp.Share, err = s.session.ShareQuery(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	field, err := sortField(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var views []regionView
	err = s.session.Read(func(ds *dataset.DataSet) error {
		views = regionViews(ds.SortedCountries(field))
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSubRegions(w http.ResponseWriter, r *http.Request) {
	field, err := sortField(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var views []regionView
	err = s.session.Read(func(ds *dataset.DataSet) error {
		regions, err := ds.SortedSubRegions(r.PathValue("name"), field)
		if err != nil {
			return err
		}
		views = regionViews(regions)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var detail regionDetail
	err := s.session.Read(func(ds *dataset.DataSet) error {
		region := ds.RegionByName(name)
		if region == nil {
			return fmt.Errorf("%w: %q", dataset.ErrUnknownRegion, name)
		}
		detail = regionDetail{
			RegionSummary: domain.Summarize(region),
			Showing:       region.Showing(),
			Series:        make(map[string][]int64, domain.NumCaseTypes),
		}
		for _, ct := range domain.CaseTypes {
			detail.Series[ct.String()] = slices.Clone(region.Series(ct))
		}
		for _, c := range region.SortedChildren(domain.SortByName) {
			detail.Children = append(detail.Children, c.Name)
		}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleSelect shows or hides one region; ?showing=false hides it.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	showing, err := showingParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.session.SetShowing(r.PathValue("name"), showing); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSelection(w)
}

// handleSelectAll shows or hides every country, or every sub-region of
// ?country=.
func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	showing, err := showingParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.session.SelectAll(r.URL.Query().Get("country"), showing); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSelection(w)
}

func (s *Server) writeSelection(w http.ResponseWriter) {
	share, err := s.session.ShareQuery()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Share: share})
}

func sortField(r *http.Request) (domain.SortField, error) {
	v := r.URL.Query().Get("sort")
	if v == "" {
		return domain.SortByName, nil
	}
	f, err := domain.ParseSortField(v)
	if err != nil {
		return domain.SortField{}, fmt.Errorf("%w: %w", session.ErrInvalidParam, err)
	}
	return f, nil
}

func showingParam(r *http.Request) (bool, error) {
	v := r.URL.Query().Get("showing")
	if v == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w showing=%q", session.ErrInvalidParam, v)
	}
	return b, nil
}
