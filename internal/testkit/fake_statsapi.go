package testkit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"medstat/adapters/excel"
	"medstat/domain/analysis"
	"medstat/domain/dataset"
)

const previewRows = 10

// CannedResponse is a status and raw JSON body served for one endpoint
type CannedResponse struct {
	Status int
	Body   string
}

// FakeStatsAPI is an in-process stand-in for the remote stats service.
// Uploads are parsed for real; analysis endpoints answer with fixtures that
// tests can override per path.
type FakeStatsAPI struct {
	router *chi.Mux

	mu        sync.Mutex
	overrides map[string]CannedResponse
	calls     map[string]int
	bodies    map[string][]byte
	delay     time.Duration
}

// NewFakeStatsAPI creates the fake with every endpoint routed
func NewFakeStatsAPI() *FakeStatsAPI {
	f := &FakeStatsAPI{
		router:    chi.NewRouter(),
		overrides: make(map[string]CannedResponse),
		calls:     make(map[string]int),
		bodies:    make(map[string][]byte),
	}

	f.router.Use(middleware.Recoverer)
	f.router.Use(f.record)

	f.router.Route("/api", func(r chi.Router) {
		r.Post("/data/upload", f.handleUpload)
		r.Post("/data/redcap", f.handleREDCap)
		r.Post("/survival/analyze", f.canned(survivalFixture))
		r.Post("/meta/analyze", f.canned(metaFixture))
		r.Post("/clinical/ttest", f.canned(ttestFixture))
		r.Post("/clinical/anova", f.canned(anovaFixture))
		r.Post("/clinical/chi_square", f.canned(chiSquareFixture))
		r.Post("/clinical/sample_size", f.canned(sampleSizeFixture))
		r.Post("/epi/two_by_two", f.canned(twoByTwoFixture))
		r.Post("/epi/incidence_rate", f.canned(incidenceFixture))
		r.Post("/epi/logistic", f.canned(logisticFixture))
		r.Post("/biomarker/roc", f.canned(rocFixture))
	})
	f.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return f
}

// Start serves the fake on a local port. Callers close the server.
func (f *FakeStatsAPI) Start() *httptest.Server {
	return httptest.NewServer(f)
}

func (f *FakeStatsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.router.ServeHTTP(w, r)
}

// Respond overrides the answer for path
func (f *FakeStatsAPI) Respond(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[path] = CannedResponse{Status: status, Body: body}
}

// Fail makes path answer with status and a detail message
func (f *FakeStatsAPI) Fail(path string, status int, detail string) {
	raw, _ := json.Marshal(map[string]string{"detail": detail})
	f.Respond(path, status, string(raw))
}

// SetDelay holds every response for d, or until the request is cancelled
func (f *FakeStatsAPI) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Calls returns how many requests reached path
func (f *FakeStatsAPI) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// LastBody returns the last request body posted to path
func (f *FakeStatsAPI) LastBody(path string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func (f *FakeStatsAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		f.mu.Lock()
		f.calls[r.URL.Path]++
		f.bodies[r.URL.Path] = body
		delay := f.delay
		override, ok := f.overrides[r.URL.Path]
		f.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(override.Status)
			_, _ = io.WriteString(w, override.Body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeStatsAPI) canned(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if !json.Valid(raw) {
			writeDetail(w, http.StatusUnprocessableEntity, "request body is not valid JSON")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func (f *FakeStatsAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "file: field required")
		return
	}
	defer file.Close()

	name := strings.ToLower(header.Filename)
	if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".xlsx") {
		writeDetail(w, http.StatusBadRequest, "Unsupported file type. Please upload CSV or Excel.")
		return
	}

	ds, err := excel.NewDataReader(header.Filename).ReadFrom(header.Filename, file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Could not parse file: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse(ds))
}

func (f *FakeStatsAPI) handleREDCap(w http.ResponseWriter, r *http.Request) {
	var req analysis.REDCapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "request body is not valid JSON")
		return
	}
	if req.URL == "" || req.Token == "" {
		writeDetail(w, http.StatusBadRequest, "REDCap URL and API token are required")
		return
	}

	cfg := DefaultTrialConfig()
	cfg.PatientCount = 30
	ds, err := NewTrialDataGenerator(cfg).Generate("redcap")
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse(ds))
}

// UploadResponse renders ds the way the upload endpoint describes a file
func UploadResponse(ds *dataset.Dataset) analysis.UploadResult {
	data := make([]map[string]string, len(ds.Rows))
	for i, rec := range ds.Rows {
		data[i] = map[string]string(rec)
	}
	n := min(previewRows, len(data))
	return analysis.UploadResult{
		NRows:   ds.RowCount(),
		NCols:   ds.ColumnCount(),
		Columns: ds.Columns,
		Preview: data[:n],
		Data:    data,
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
