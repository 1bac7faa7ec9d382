package ui

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"medstat/internal/config"
	"medstat/internal/preview"
	"medstat/internal/session"
	"medstat/internal/testkit"
	"medstat/ui/middleware"
)

const trialCSV = "arm,age\nA,30\nB,40\nA,50\nB,60\n"

type harness struct {
	t   *testing.T
	srv *Server
	kit *testkit.TestKit
	sid string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kit := testkit.NewTestKit()
	t.Cleanup(kit.Close)

	cfg := &config.Config{
		StatsAPI: config.StatsAPIConfig{BaseURL: kit.Server.URL, RequestTimeout: 5 * time.Second, MaxUploadBytes: 1 << 20},
		Server:   config.ServerConfig{Port: "0", GinMode: gin.TestMode},
		Preview:  config.PreviewConfig{RowLimit: 20},
		Session:  config.SessionConfig{TTL: time.Hour, SweepInterval: time.Minute},
		Charts:   config.ChartConfig{Width: 400, Height: 300},
	}
	srv, err := NewServer(Deps{
		Config: cfg,
		State:  session.NewAppState(cfg.Session.TTL, cfg.StatsAPI.RequestTimeout, kit.Logger),
		API:    kit.Client,
		Logger: kit.Logger,
	})
	require.NoError(t, err)

	h := &harness{t: t, srv: srv, kit: kit}
	w := h.do(http.MethodPost, "/api/session", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	h.sid = gjson.Get(w.Body.String(), "session_id").String()
	require.NotEmpty(t, h.sid)
	return h
}

func (h *harness) request(method, path string, body io.Reader, contentType string) *http.Request {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if h.sid != "" {
		req.Header.Set(middleware.SessionHeader, h.sid)
	}
	return req
}

func (h *harness) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	return w
}

func (h *harness) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	return h.serve(h.request(method, path, body, contentType))
}

func (h *harness) postJSON(path, body string) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, path, strings.NewReader(body), "application/json")
}

func (h *harness) upload(kind, filename, content string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(h.t, err)
	_, err = io.WriteString(part, content)
	require.NoError(h.t, err)
	require.NoError(h.t, mw.Close())
	return h.do(http.MethodPost, "/api/tabs/"+kind+"/upload", &buf, mw.FormDataContentType())
}

func (h *harness) snapshot(w *httptest.ResponseRecorder) preview.Snapshot {
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	var snap preview.Snapshot
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/healthz", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())
	assert.EqualValues(t, 1, gjson.Get(w.Body.String(), "sessions").Int())
}

func TestIndexCreatesSessionCookie(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := h.serve(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Survival (Kaplan-Meier)")
	assert.Contains(t, w.Body.String(), "Upload a file")
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookie+"=")
}

func TestIndexReusesSessionFromCookie(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: h.sid})
	w := h.serve(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))
	assert.Contains(t, w.Body.String(), h.sid)
}

func TestAPIRequiresSession(t *testing.T) {
	h := newHarness(t)
	h.sid = ""
	w := h.do(http.MethodGet, "/api/preview", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", gjson.Get(w.Body.String(), "code").String())

	h.sid = "not-a-session"
	w = h.do(http.MethodGet, "/api/preview", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDropSessionDiscardsState(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodDelete, "/api/session", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(http.MethodGet, "/api/preview", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownAnalysisKind(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodPost, "/api/tabs/regression/activate", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, gjson.Get(w.Body.String(), "error").String(), "unknown analysis")
}

func TestUploadPreviewConfirmBindsDataset(t *testing.T) {
	h := newHarness(t)

	snap := h.snapshot(h.upload("ttest", "trial.csv", trialCSV))
	assert.True(t, snap.Active)
	assert.Equal(t, "trial.csv", snap.Label)
	assert.Equal(t, 4, snap.TotalRows)
	assert.Equal(t, 4, snap.MatchCount)
	require.Len(t, snap.Columns, 2)

	snap = h.snapshot(h.postJSON("/api/preview/filter", `{"search": "a", "from_row": "", "to_row": ""}`))
	assert.Equal(t, 2, snap.MatchCount)
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, 1, snap.Rows[0].Index)
	assert.Equal(t, 3, snap.Rows[1].Index)

	// Nothing is bound until the preview is confirmed
	w := h.do(http.MethodGet, "/api/tabs/ttest/dataset", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/preview/confirm", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ttest", gjson.Get(w.Body.String(), "kind").String())
	assert.EqualValues(t, 2, gjson.Get(w.Body.String(), "rows").Int())

	w = h.do(http.MethodGet, "/api/tabs/ttest/dataset", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, gjson.Get(w.Body.String(), "rows").Int())
	assert.Equal(t, "age", gjson.Get(w.Body.String(), "columns.1.name").String())
	assert.InDelta(t, 40.0, gjson.Get(w.Body.String(), "columns.1.numeric.mean").Float(), 1e-9)

	snap = h.snapshot(h.do(http.MethodGet, "/api/preview", nil, ""))
	assert.False(t, snap.Active)

	w = h.do(http.MethodPost, "/api/preview/confirm", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestToggleColumnsAndExport(t *testing.T) {
	h := newHarness(t)
	h.snapshot(h.upload("anova", "trial.csv", trialCSV))

	snap := h.snapshot(h.do(http.MethodPost, "/api/preview/columns/age/toggle", nil, ""))
	assert.Equal(t, 1, snap.IncludedCount)
	assert.False(t, snap.Columns[1].Included)

	// Unknown columns are ignored
	snap = h.snapshot(h.do(http.MethodPost, "/api/preview/columns/weight/toggle", nil, ""))
	assert.Equal(t, 1, snap.IncludedCount)

	w := h.do(http.MethodGet, "/api/preview/export?format=csv", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "arm\nA\nB\nA\nB\n", w.Body.String())
	assert.Equal(t, `attachment; filename="trial_selection.csv"`, w.Header().Get("Content-Disposition"))

	snap = h.snapshot(h.postJSON("/api/preview/columns", `{"included": true}`))
	assert.Equal(t, 2, snap.IncludedCount)

	w = h.do(http.MethodGet, "/api/preview/export?format=xlsx", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = h.do(http.MethodGet, "/api/preview/export?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportWithoutPreview(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/preview/export", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSwitchingTabsCancelsPreview(t *testing.T) {
	h := newHarness(t)
	h.snapshot(h.upload("ttest", "trial.csv", trialCSV))

	w := h.do(http.MethodPost, "/api/tabs/anova/activate", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "preview").Bool())

	snap := h.snapshot(h.do(http.MethodGet, "/api/preview", nil, ""))
	assert.False(t, snap.Active)
}

func TestFailedRequestsOnOtherTabsKeepPreview(t *testing.T) {
	h := newHarness(t)
	h.snapshot(h.upload("survival", "trial.csv", trialCSV))
	h.snapshot(h.do(http.MethodPost, "/api/preview/columns/age/toggle", nil, ""))

	w := h.postJSON("/api/tabs/meta/run", `{"studies": []}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "at least 2 studies are required", gjson.Get(w.Body.String(), "error").String())

	w = h.upload("ttest", "notes.txt", "hello")
	require.Equal(t, http.StatusBadGateway, w.Code)

	w = h.postJSON("/api/tabs/anova/redcap", `{"url": "https://redcap.example.org/api/"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	snap := h.snapshot(h.do(http.MethodGet, "/api/preview", nil, ""))
	assert.True(t, snap.Active)
	assert.Equal(t, "trial.csv", snap.Label)
	assert.Equal(t, 1, snap.IncludedCount)

	w = h.do(http.MethodPost, "/api/preview/confirm", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "survival", gjson.Get(w.Body.String(), "kind").String())
	assert.Equal(t, []any{"arm"}, gjson.Get(w.Body.String(), "columns").Value())
}

func TestSuccessfulRunOnOtherTabSwitchesTabs(t *testing.T) {
	h := newHarness(t)
	h.snapshot(h.upload("survival", "trial.csv", trialCSV))

	w := h.postJSON("/api/tabs/two_by_two/run", `{"a": 20, "b": 80, "c": 10, "d": 90}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	snap := h.snapshot(h.do(http.MethodGet, "/api/preview", nil, ""))
	assert.False(t, snap.Active)
}

func TestUploadErrors(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/tabs/ttest/upload", strings.NewReader(""), "multipart/form-data; boundary=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.upload("ttest", "notes.txt", "hello")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Unsupported file type. Please upload CSV or Excel.", gjson.Get(w.Body.String(), "error").String())

	snap := h.snapshot(h.do(http.MethodGet, "/api/preview", nil, ""))
	assert.False(t, snap.Active)
}

func TestREDCapFetchOpensPreview(t *testing.T) {
	h := newHarness(t)

	snap := h.snapshot(h.postJSON("/api/tabs/survival/redcap",
		`{"url": "https://redcap.example.org/api/", "token": "ABC123"}`))
	assert.True(t, snap.Active)
	assert.Equal(t, 30, snap.TotalRows)
	assert.Equal(t, "label", gjson.GetBytes(h.kit.API.LastBody("/api/data/redcap"), "raw_or_label").String())

	w := h.postJSON("/api/tabs/survival/redcap", `{"url": "https://redcap.example.org/api/"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, h.kit.API.Calls("/api/data/redcap"))
}

func TestRunWithUploadedDataset(t *testing.T) {
	h := newHarness(t)
	h.snapshot(h.upload("ttest", "trial.csv", trialCSV))
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/preview/confirm", nil, "").Code)

	w := h.postJSON("/api/tabs/ttest/run", `{"value_column": "age", "group_column": "arm"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Equal(t, "ttest", gjson.Get(body, "kind").String())
	assert.InDelta(t, 0.038, gjson.Get(body, "result.p_value").Float(), 1e-9)
	assert.Equal(t, "box", gjson.Get(body, "charts.0").String())

	sent := h.kit.API.LastBody("/api/clinical/ttest")
	assert.Equal(t, "[30,50]", gjson.GetBytes(sent, "group1").Raw)
	assert.Equal(t, "[40,60]", gjson.GetBytes(sent, "group2").Raw)

	w = h.do(http.MethodGet, "/api/tabs/ttest/result", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 5, gjson.Get(w.Body.String(), "result.n1").Int())

	w = h.do(http.MethodGet, "/api/tabs/ttest/chart.png?format=svg", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<svg")
}

func TestRunWithoutDataset(t *testing.T) {
	h := newHarness(t)
	w := h.postJSON("/api/tabs/ttest/run", `{"value_column": "age", "group_column": "arm"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "load a dataset and confirm the preview first", gjson.Get(w.Body.String(), "error").String())
	assert.Zero(t, h.kit.API.Calls("/api/clinical/ttest"))
}

func TestRunValidationNeverCallsAPI(t *testing.T) {
	h := newHarness(t)

	w := h.postJSON("/api/tabs/two_by_two/run", `{"a": -1, "b": 4, "c": 2, "d": 3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "a must be at least 0", gjson.Get(w.Body.String(), "error").String())

	w = h.postJSON("/api/tabs/two_by_two/run", `{"a": "many"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, h.kit.API.Calls("/api/epi/two_by_two"))
}

func TestRunRemoteErrorShowsDetail(t *testing.T) {
	h := newHarness(t)
	h.kit.API.Fail("/api/epi/two_by_two", http.StatusBadRequest, "Table cells must be non-negative integers")

	w := h.postJSON("/api/tabs/two_by_two/run", `{"a": 20, "b": 80, "c": 10, "d": 90}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Table cells must be non-negative integers", gjson.Get(w.Body.String(), "error").String())

	w = h.do(http.MethodGet, "/api/tabs/two_by_two/result", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunRejectedWhileInFlight(t *testing.T) {
	h := newHarness(t)
	h.kit.API.SetDelay(300 * time.Millisecond)

	var wg sync.WaitGroup
	var first *httptest.ResponseRecorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = h.postJSON("/api/tabs/two_by_two/run", `{"a": 20, "b": 80, "c": 10, "d": 90}`)
	}()

	require.Eventually(t, func() bool {
		return h.kit.API.Calls("/api/epi/two_by_two") == 1
	}, 2*time.Second, 5*time.Millisecond)

	second := h.postJSON("/api/tabs/two_by_two/run", `{"a": 20, "b": 80, "c": 10, "d": 90}`)
	assert.Equal(t, http.StatusConflict, second.Code)

	// Other tabs are not blocked
	other := h.postJSON("/api/tabs/incidence_rate/run", `{"events": 12, "person_time": 4000}`)
	assert.Equal(t, http.StatusOK, other.Code, other.Body.String())

	wg.Wait()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, h.kit.API.Calls("/api/epi/two_by_two"))
}

func TestHTMXResultFragment(t *testing.T) {
	h := newHarness(t)
	req := h.request(http.MethodPost, "/api/tabs/two_by_two/run",
		strings.NewReader(`{"a": 20, "b": 80, "c": 10, "d": 90}`), "application/json")
	req.Header.Set("HX-Request", "true")
	w := h.serve(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Odds ratio 2.250")
}

func TestHTMXErrorFragment(t *testing.T) {
	h := newHarness(t)
	req := h.request(http.MethodPost, "/api/preview/confirm", nil, "")
	req.Header.Set("HX-Request", "true")
	w := h.serve(req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `class="alert alert-error"`)
	assert.Contains(t, w.Body.String(), "no preview is open")
}

func TestSampleSizePowerChart(t *testing.T) {
	h := newHarness(t)
	w := h.postJSON("/api/tabs/sample_size/run", `{"effect_size": 0.5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "power", gjson.Get(w.Body.String(), "charts.0").String())

	w = h.do(http.MethodGet, "/api/tabs/sample_size/chart.png", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestChartErrors(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/api/tabs/roc/chart.png", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, h.postJSON("/api/tabs/two_by_two/run", `{"a": 20, "b": 80, "c": 10, "d": 90}`).Code)
	w = h.do(http.MethodGet, "/api/tabs/two_by_two/chart.png", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, h.postJSON("/api/tabs/sample_size/run", `{"effect_size": 0.5}`).Code)
	w = h.do(http.MethodGet, "/api/tabs/sample_size/chart.png?format=gif", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHelp(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/tabs/roc/help", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	html := gjson.Get(w.Body.String(), "html").String()
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "Youden")
	assert.Equal(t, "ROC / biomarker", gjson.Get(w.Body.String(), "title").String())
}
