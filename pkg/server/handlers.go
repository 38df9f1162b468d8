package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/indexer"
	"github.com/ukaji3/finstruct-go/pkg/query"
)

type errorResponse struct {
	Error      string            `json:"error"`
	Diagnostic *query.Diagnostic `json:"diagnostic,omitempty"`
}

type queryResponse struct {
	query.Result
	Count int `json:"count"`
	// Total is omitted when the records mix sheets or financial types.
	Total *decimal.Decimal `json:"total,omitempty"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Generation string `json:"generation"`
	Periods    int    `json:"periods"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respondJSON(w, status, errorResponse{Error: err.Error()})
}

// ParseFilter reads a filter from query parameters named after the
// filter's JSON fields.
func ParseFilter(v url.Values) (query.Filter, error) {
	year, month, err := parsePeriod(v)
	if err != nil {
		return query.Filter{}, err
	}
	f := query.Filter{
		Year:           year,
		Month:          month,
		SheetName:      models.SheetName(v.Get("sheet_name")),
		FinancialType:  v.Get("financial_type"),
		ItemCode:       v.Get("item_code"),
		ItemCodePrefix: v.Get("item_code_prefix"),
		Trade:          v.Get("trade"),
	}
	return f.Normalize(), nil
}

func parsePeriod(v url.Values) (year, month int, err error) {
	if year, err = intParam(v, "year"); err != nil {
		return 0, 0, err
	}
	if month, err = intParam(v, "month"); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

func intParam(v url.Values, name string) (int, error) {
	raw := v.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", query.ErrInvalidFilter, name, raw)
	}
	return n, nil
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	var res query.Result
	if s.opts.Cache != nil {
		res, err = s.opts.Cache.Query(r.Context(), s.store, f)
	} else {
		res, err = s.store.Query(f)
	}
	if err != nil {
		if errors.Is(err, query.ErrInvalidFilter) {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}

	out := queryResponse{Result: res, Count: len(res.Records)}
	if total, ok := res.Total(); ok {
		out.Total = &total
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, query.Presets())
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := query.LookupPreset(name); !ok {
		s.respondError(w, http.StatusNotFound, fmt.Errorf("unknown preset %q", name))
		return
	}
	year, month, err := parsePeriod(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.store.Preset(name, year, month)
	if err != nil {
		var stale *query.StaleFilterError
		switch {
		case errors.As(err, &stale):
			d := stale.Diagnostic
			s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Diagnostic: &d})
		case errors.Is(err, query.ErrInvalidFilter):
			s.respondError(w, http.StatusBadRequest, err)
		default:
			s.respondError(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := parsePeriod(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	summary, err := s.store.FinancialSummary(year, month)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	periods := s.store.Periods()
	if periods == nil {
		periods = []indexer.Period{}
	}
	s.respondJSON(w, http.StatusOK, periods)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects := s.store.Projects()
	if projects == nil {
		projects = []models.ProjectInfo{}
	}
	s.respondJSON(w, http.StatusOK, projects)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	info, ok := s.store.Project(code)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Errorf("unknown project %q", code))
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.opts.Refresher == nil {
		s.respondError(w, http.StatusServiceUnavailable, errors.New("reindexing is not enabled"))
		return
	}
	report, err := s.opts.Refresher.Run(r.Context())
	if err != nil {
		s.log.Error("reindex request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Generation: s.store.Generation(),
		Periods:    len(s.store.Periods()),
	})
}
