package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"fastcal/internal/clock"
	"fastcal/internal/config"
	"fastcal/internal/model"
	"fastcal/internal/schedule"
)

var dhakaZone = time.FixedZone("UTC+06:00", 6*3600)

func testRepo() *schedule.Repository {
	days := model.DaySequence{
		{Date: "2026-02-19", SequenceIndex: 1, FastStart: "05:09", FastEnd: "18:12"},
		{Date: "2026-02-20", SequenceIndex: 2, FastStart: "05:08", FastEnd: "18:13"},
		{Date: "2026-03-01", SequenceIndex: 11, FastStart: "05:01", FastEnd: "18:17"},
	}
	return schedule.NewRepository(map[string]map[string]model.DaySequence{
		"Dhaka":      {"Gazipur": days, "Dhaka": days},
		"Chattogram": {"Bandarban": days[:1]},
	}, language.English)
}

func newTestServer(t *testing.T, cfg *config.Config, repo *schedule.Repository, now time.Time) http.Handler {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	source := clock.NewSource(clock.Fixed{T: now}, dhakaZone)
	return NewServer(cfg, schedule.NewStore(repo), source, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, target string, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var morning = time.Date(2026, 2, 19, 5, 9, 0, 0, dhakaZone)

func TestHealthBypassesAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := newTestServer(t, cfg, testRepo(), morning)

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/regions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/api/regions", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegionsAndSubRegions(t *testing.T) {
	h := newTestServer(t, nil, testRepo(), morning)

	rec := do(t, h, http.MethodGet, "/api/regions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"Chattogram", "Dhaka"}, decode(t, rec)["regions"])

	rec = do(t, h, http.MethodGet, "/api/regions/Dhaka/subregions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"Dhaka", "Gazipur"}, decode(t, rec)["sub_regions"])

	rec = do(t, h, http.MethodGet, "/api/regions/Atlantis/subregions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["sub_regions"])
}

func TestCountdownBetweenStartAndEnd(t *testing.T) {
	h := newTestServer(t, nil, testRepo(), morning)

	rec := do(t, h, http.MethodGet, "/api/countdown?region=Dhaka&sub_region=Gazipur", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "between_start_and_end", out["phase"])
	assert.Equal(t, "Passed", out["start"].(map[string]any)["display"])
	assert.Equal(t, "13:03:00", out["end"].(map[string]any)["display"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestCountdownAfterEndCountsToNextDay(t *testing.T) {
	h := newTestServer(t, nil, testRepo(), time.Date(2026, 2, 19, 18, 12, 0, 0, dhakaZone))

	out := decode(t, do(t, h, http.MethodGet, "/api/countdown?region=Dhaka&sub_region=Gazipur", "", nil))
	assert.Equal(t, "after_end_has_next", out["phase"])
	start := out["start"].(map[string]any)
	assert.Equal(t, "10:56:00", start["display"])
	assert.Equal(t, true, start["tomorrow"])
}

func TestCountdownUnknownSelection(t *testing.T) {
	h := newTestServer(t, nil, testRepo(), morning)
	out := decode(t, do(t, h, http.MethodGet, "/api/countdown?region=Dhaka&sub_region=Nowhere", "", nil))
	assert.Equal(t, "not_selected", out["phase"])
	assert.Equal(t, "Not active", out["start"].(map[string]any)["display"])
}

func TestSelectionPersistsPerClient(t *testing.T) {
	h := newTestServer(t, nil, testRepo(), morning)
	alice := map[string]string{clientHeader: "alice"}

	out := decode(t, do(t, h, http.MethodGet, "/api/selection", "", alice))
	assert.Equal(t, "Chattogram", out["region"])
	assert.Equal(t, "Bandarban", out["sub_region"])

	rec := do(t, h, http.MethodPut, "/api/selection", `{"region":"Dhaka","sub_region":"Gazipur"}`, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out = decode(t, do(t, h, http.MethodGet, "/api/selection", "", alice))
	assert.Equal(t, "Dhaka", out["region"])
	assert.Equal(t, "Gazipur", out["sub_region"])

	out = decode(t, do(t, h, http.MethodGet, "/api/countdown", "", alice))
	assert.Equal(t, "Gazipur", out["sub_region"], "countdown falls back to the saved selection")

	out = decode(t, do(t, h, http.MethodGet, "/api/selection", "", map[string]string{clientHeader: "bob"}))
	assert.Equal(t, "Chattogram", out["region"])
}

func TestSelectionRejectsUnknownNames(t *testing.T) {
	h := newTestServer(t, nil, testRepo(), morning)
	hdr := map[string]string{clientHeader: "alice"}

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/selection", `{"region":"Atlantis"}`, hdr).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/selection", `{"region":"Dhaka","sub_region":"Bandarban"}`, hdr).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/selection", `not json`, hdr).Code)
}

func TestClientCookieIssued(t *testing.T) {
	h := newTestServer(t, nil, testRepo(), morning)
	rec := do(t, h, http.MethodGet, "/api/selection", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == clientCookie {
			found = true
			assert.Len(t, c.Value, 32)
		}
	}
	assert.True(t, found, "client_id cookie set")
}

func TestScheduleResponse(t *testing.T) {
	h := newTestServer(t, nil, testRepo(), morning)
	out := decode(t, do(t, h, http.MethodGet, "/api/schedule?region=Dhaka&sub_region=Dhaka", "", nil))

	assert.Equal(t, "2026-02-19", out["date"])
	assert.Equal(t, "05:09", out["today"].(map[string]any)["sahri_end"])
	assert.Len(t, out["days"], 3)
	groups := out["groups"].([]any)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0].(map[string]any)["days"], 2)
	assert.Len(t, groups[1].(map[string]any)["days"], 1)
	assert.Contains(t, out["coverage"].(map[string]any)["missing"], "2026-02-21")
}

func TestCalendarPage(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PDF.URL = "https://example.com/ramadan.pdf"
	h := newTestServer(t, cfg, testRepo(), morning)

	rec := do(t, h, http.MethodGet, "/calendar?region=Dhaka&sub_region=Gazipur", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "5:09 AM")
	assert.Contains(t, body, "6:12 PM")
	assert.Contains(t, body, "Rahmah")
	assert.Contains(t, body, "Maghfirah")
	assert.NotContains(t, body, "Najah", "empty groups are hidden")
	assert.Contains(t, body, "13:03:00")
	assert.Contains(t, body, `class="today"`)
	assert.Contains(t, body, "/download.pdf")
	assert.Contains(t, body, "/calendar.ics?region=Dhaka")
	assert.Contains(t, body, "setTimeout(tick, 1000)", "next poll is armed after the previous one settles")
	assert.NotContains(t, body, "setInterval")
}

func TestCalendarPageMarksTomorrowsCountdown(t *testing.T) {
	h := newTestServer(t, nil, testRepo(), time.Date(2026, 2, 19, 19, 0, 0, 0, dhakaZone))

	rec := do(t, h, http.MethodGet, "/calendar?region=Dhaka&sub_region=Dhaka", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="start-countdown">10:08:00 (tomorrow)</div>`)
	assert.Contains(t, body, `id="end-countdown">23:13:00 (tomorrow)</div>`)

	morningPage := newTestServer(t, nil, testRepo(), morning)
	rec = do(t, morningPage, http.MethodGet, "/calendar?region=Dhaka&sub_region=Dhaka", "", nil)
	assert.NotContains(t, rec.Body.String(), "(tomorrow)</div>")
}

func TestCountdownReadsClockOnce(t *testing.T) {
	reads := []time.Time{
		time.Date(2026, 2, 19, 23, 59, 59, 999e6, dhakaZone),
		time.Date(2026, 2, 20, 0, 0, 0, 1e6, dhakaZone),
	}
	calls := 0
	source := clock.NewSource(clock.Func(func() time.Time {
		now := reads[min(calls, len(reads)-1)]
		calls++
		return now
	}), dhakaZone)
	h := NewServer(config.DefaultConfig(), schedule.NewStore(testRepo()), source, nil).Handler()

	out := decode(t, do(t, h, http.MethodGet, "/api/countdown?region=Dhaka&sub_region=Gazipur", "", nil))
	assert.Equal(t, "after_end_has_next", out["phase"], "date is taken from the same instant as now")
	assert.Equal(t, "2026-02-19", out["today"].(map[string]any)["date"])
	assert.Equal(t, 1, calls)
}

func TestLoadErrorIsSurfaced(t *testing.T) {
	h := newTestServer(t, nil, nil, morning)

	rec := do(t, h, http.MethodGet, "/api/regions", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Error loading data", decode(t, rec)["error"])

	rec = do(t, h, http.MethodGet, "/calendar", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error loading data")
	assert.Contains(t, rec.Body.String(), `data-ready="true"`)
}

func TestICSExport(t *testing.T) {
	h := newTestServer(t, nil, testRepo(), morning)

	rec := do(t, h, http.MethodGet, "/calendar.ics?region=Dhaka&sub_region=Gazipur", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "2026-02-19-start-Gazipur@fastcal")
	assert.Equal(t, 6, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))

	rec = do(t, h, http.MethodGet, "/calendar.ics?region=Dhaka&sub_region=Nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadPDF(t *testing.T) {
	h := newTestServer(t, nil, testRepo(), morning)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/download.pdf", "", nil).Code)

	cfg := config.DefaultConfig()
	cfg.PDF.URL = "https://example.com/ramadan.pdf"
	h = newTestServer(t, cfg, testRepo(), morning)
	rec := do(t, h, http.MethodGet, "/download.pdf", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/ramadan.pdf", rec.Header().Get("Location"))
}

func TestFormat12h(t *testing.T) {
	cases := map[string]string{
		"05:09": "5:09 AM",
		"18:12": "6:12 PM",
		"00:00": "12:00 AM",
		"12:30": "12:30 PM",
		"noon":  "noon",
	}
	for in, want := range cases {
		assert.Equal(t, want, Format12h(in), in)
	}
}
