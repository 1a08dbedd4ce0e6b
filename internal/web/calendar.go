package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"fastcal/internal/clock"
	"fastcal/internal/config"
	"fastcal/internal/countdown"
	"fastcal/internal/export"
	appLog "fastcal/internal/log"
	"fastcal/internal/model"
	"fastcal/internal/schedule"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var calendarTmpl = template.Must(template.ParseFS(templateFS, "templates/calendar.html.tmpl"))

type dayRow struct {
	Index   int
	Date    string
	Label   string
	Start   string
	End     string
	IsToday bool
}

type groupView struct {
	Name string
	From int
	To   int
	Rows []dayRow
}

type calendarPage struct {
	Title      string
	YearLabel  string
	Labels     config.Labels
	LoadError  bool
	Regions    []string
	SubRegions []string
	Region     string
	SubRegion  string
	Date       string
	Today      *dayRow
	Countdown  countdown.Result
	Groups     []groupView
	ICSURL     string
	PDFURL     string
	Offset     string
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.source.Now()
	page := calendarPage{
		Title:  s.cfg.Labels.Period,
		Labels: s.cfg.Labels,
		Date:   now.Format(clock.DateLayout),
		Offset: s.cfg.UTCOffset,
	}

	repo := s.dataset()
	if repo == nil {
		page.LoadError = true
		page.Countdown = countdown.Result{
			Start: countdown.Boundary{Display: countdown.SentinelLoadError},
			End:   countdown.Boundary{Display: countdown.SentinelLoadError},
		}
		s.renderCalendar(w, http.StatusServiceUnavailable, page)
		return
	}

	region, sub := s.selectionFor(w, r, repo)
	seq := repo.Resolve(region, sub)

	if t := repo.Title(); t != "" {
		page.Title = t
	}
	page.YearLabel = s.cfg.YearLabel
	if page.YearLabel == "" && repo.Year() > 0 {
		page.YearLabel = strconv.Itoa(repo.Year())
	}
	page.Regions = repo.ListRegions()
	page.SubRegions = repo.ListSubRegions(region)
	page.Region, page.SubRegion = region, sub
	page.Countdown = s.engine.Evaluate(now, page.Date, seq)

	if e, ok := seq.Find(page.Date); ok {
		row := newDayRow(e, page.Date)
		page.Today = &row
	}
	for _, g := range schedule.Groups(seq) {
		gv := groupView{Name: g.Name, From: g.From, To: g.To}
		for _, e := range g.Days {
			gv.Rows = append(gv.Rows, newDayRow(e, page.Date))
		}
		page.Groups = append(page.Groups, gv)
	}

	if sub != "" {
		q := url.Values{"region": {region}, "sub_region": {sub}}
		page.ICSURL = "/calendar.ics?" + q.Encode()
	}
	if s.cfg.PDF.Path != "" || s.cfg.PDF.URL != "" {
		page.PDFURL = "/download.pdf"
	}

	s.renderCalendar(w, http.StatusOK, page)
}

func (s *Server) renderCalendar(w http.ResponseWriter, status int, page calendarPage) {
	var buf bytes.Buffer
	if err := calendarTmpl.Execute(&buf, page); err != nil {
		appLog.Error("render calendar failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	repo := s.dataset()
	if repo == nil {
		s.writeLoadError(w)
		return
	}
	region, sub := s.selectionFor(w, r, repo)
	seq := repo.Resolve(region, sub)
	if len(seq) == 0 {
		writeError(w, http.StatusNotFound, "no schedule for selection")
		return
	}

	name := s.cfg.Labels.Period
	if repo.Year() > 0 {
		name += " " + strconv.Itoa(repo.Year())
	}
	body := export.Serialize(seq, export.CalendarOptions{
		Region:     region,
		SubRegion:  sub,
		StartLabel: s.cfg.Labels.Start,
		EndLabel:   s.cfg.Labels.End,
		Name:       name + " - " + sub,
		Location:   s.source.Location(),
		Stamp:      s.source.Now(),
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="fastcal.ics"`)
	_, _ = w.Write([]byte(body))
}

// handlePDF serves the locally captured PDF, or redirects to the
// configured external one.
func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	switch {
	case s.cfg.PDF.Path != "":
		w.Header().Set("Content-Type", "application/pdf")
		http.ServeFile(w, r, s.cfg.PDF.Path)
	case s.cfg.PDF.URL != "":
		http.Redirect(w, r, s.cfg.PDF.URL, http.StatusFound)
	default:
		http.NotFound(w, r)
	}
}

func newDayRow(e model.DayEntry, today string) dayRow {
	return dayRow{
		Index:   e.SequenceIndex,
		Date:    e.Date,
		Label:   dateLabel(e.Date),
		Start:   Format12h(e.FastStart),
		End:     Format12h(e.FastEnd),
		IsToday: e.Date == today,
	}
}

// Format12h renders "HH:MM" as "h:MM AM/PM". Unparseable input is
// returned unchanged.
func Format12h(hhmm string) string {
	h, m, err := clock.ParseClock(hhmm)
	if err != nil {
		return hhmm
	}
	return time.Date(2000, 1, 1, h, m, 0, 0, time.UTC).Format("3:04 PM")
}

func dateLabel(date string) string {
	t, err := time.Parse(clock.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Mon, Jan 2")
}
