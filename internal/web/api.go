package web

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"

	"fastcal/internal/clock"
	"fastcal/internal/config"
	"fastcal/internal/countdown"
	appLog "fastcal/internal/log"
	"fastcal/internal/model"
	"fastcal/internal/prefs"
	"fastcal/internal/schedule"
)

const (
	clientHeader = "X-Client-ID"
	clientCookie = "client_id"
)

type regionsResponse struct {
	Title   string   `json:"title,omitempty"`
	Year    int      `json:"year,omitempty"`
	Regions []string `json:"regions"`
}

type subRegionsResponse struct {
	Region     string   `json:"region"`
	SubRegions []string `json:"sub_regions"`
}

type scheduleResponse struct {
	Region     string            `json:"region"`
	SubRegion  string            `json:"sub_region"`
	Date       string            `json:"date"`
	Today      *model.DayEntry   `json:"today,omitempty"`
	Days       model.DaySequence `json:"days"`
	Groups     []schedule.Group  `json:"groups"`
	Coverage   schedule.Coverage `json:"coverage"`
	UTCOffset  string            `json:"utc_offset"`
	PeriodName string            `json:"period,omitempty"`
}

type countdownResponse struct {
	Region    string        `json:"region"`
	SubRegion string        `json:"sub_region"`
	Now       time.Time     `json:"now"`
	Labels    config.Labels `json:"labels"`
	Detail    string        `json:"detail,omitempty"`
	countdown.Result
}

type selectionBody struct {
	Region    string `json:"region"`
	SubRegion string `json:"sub_region"`
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	repo := s.dataset()
	if repo == nil {
		s.writeLoadError(w)
		return
	}
	writeJSON(w, http.StatusOK, regionsResponse{
		Title:   repo.Title(),
		Year:    repo.Year(),
		Regions: repo.ListRegions(),
	})
}

func (s *Server) handleSubRegions(w http.ResponseWriter, r *http.Request) {
	repo := s.dataset()
	if repo == nil {
		s.writeLoadError(w)
		return
	}
	region := mux.Vars(r)["region"]
	writeJSON(w, http.StatusOK, subRegionsResponse{
		Region:     region,
		SubRegions: repo.ListSubRegions(region),
	})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	repo := s.dataset()
	if repo == nil {
		s.writeLoadError(w)
		return
	}
	region, sub := s.selectionFor(w, r, repo)
	seq := repo.Resolve(region, sub)
	today := s.source.Now().Format(clock.DateLayout)

	resp := scheduleResponse{
		Region:     region,
		SubRegion:  sub,
		Date:       today,
		Days:       seq,
		Groups:     schedule.Groups(seq),
		Coverage:   schedule.CoverageOf(seq),
		UTCOffset:  s.cfg.UTCOffset,
		PeriodName: s.cfg.Labels.Period,
	}
	if e, ok := seq.Find(today); ok {
		resp.Today = &e
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCountdown(w http.ResponseWriter, r *http.Request) {
	repo := s.dataset()
	if repo == nil {
		s.writeLoadError(w)
		return
	}
	region, sub := s.selectionFor(w, r, repo)
	seq := repo.Resolve(region, sub)

	now := s.source.Now()
	res := s.engine.Evaluate(now, now.Format(clock.DateLayout), seq)
	resp := countdownResponse{
		Region:    region,
		SubRegion: sub,
		Now:       now,
		Labels:    s.cfg.Labels,
		Result:    res,
	}
	if res.Err != nil {
		resp.Detail = res.Err.Error()
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	repo := s.dataset()
	if repo == nil {
		s.writeLoadError(w)
		return
	}
	client := s.clientID(w, r)
	region, sub := prefs.Restore(r.Context(), repo, s.prefs, client)
	writeJSON(w, http.StatusOK, selectionBody{Region: region, SubRegion: sub})
}

func (s *Server) handlePutSelection(w http.ResponseWriter, r *http.Request) {
	repo := s.dataset()
	if repo == nil {
		s.writeLoadError(w)
		return
	}

	var body selectionBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !repo.HasRegion(body.Region) {
		writeError(w, http.StatusBadRequest, "unknown region")
		return
	}
	if body.SubRegion != "" && !slices.Contains(repo.ListSubRegions(body.Region), body.SubRegion) {
		writeError(w, http.StatusBadRequest, "unknown sub-region")
		return
	}

	client := s.clientID(w, r)
	if err := prefs.Remember(r.Context(), s.prefs, client, body.Region, body.SubRegion); err != nil {
		appLog.Error("save selection failed", err, "client", client)
		writeError(w, http.StatusInternalServerError, "failed to save selection")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// selectionFor takes the selection from the query, falling back to the
// client's remembered one when the query names none.
func (s *Server) selectionFor(w http.ResponseWriter, r *http.Request, repo *schedule.Repository) (region, sub string) {
	q := r.URL.Query()
	region, sub = q.Get("region"), q.Get("sub_region")
	if region == "" && sub == "" {
		return prefs.Restore(r.Context(), repo, s.prefs, s.clientID(w, r))
	}
	return region, sub
}

// clientID identifies the caller for selection persistence: the
// X-Client-ID header, else the client_id cookie, else a fresh ID that is
// set as the cookie.
func (s *Server) clientID(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get(clientHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(clientCookie); err == nil && c.Value != "" {
		return c.Value
	}

	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		appLog.Error("client id generation failed", err)
		return "anonymous"
	}
	id := hex.EncodeToString(b[:])
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   365 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// later lookups in this request see the same ID
	r.AddCookie(&http.Cookie{Name: clientCookie, Value: id})
	return id
}
