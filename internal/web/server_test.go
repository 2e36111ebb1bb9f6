package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/dataclean/internal/config"
	"github.com/JonMunkholm/dataclean/internal/core"
	_ "github.com/JonMunkholm/dataclean/internal/core/datasets"
	"github.com/JonMunkholm/dataclean/internal/pipeline"
	"github.com/JonMunkholm/dataclean/internal/store"
)

const outbreakCSV = `year,week,outbreak_starting_date,reporting_date,state,district,disease_illness_name,status,cases,deaths
2024,2,2024-01-05,2024-01-08,Kerala,Ernakulam,Cholera,Active,10,1
2024,2,2024-01-06,2024-01-09,Kerala,Kollam,Dengue,Active,5,0
2024,3,2024-01-10,2024-01-15,Goa,North Goa,Measles,Closed,8,0
2024,3,2024-01-11,2024-01-16,Goa,South Goa,Measles,Closed,3,0
2024,4,2024-01-18,2024-01-22,Assam,Kamrup,Malaria,Active,12,2
2024,4,2024-01-19,2024-01-23,Assam,Cachar,Malaria,Active,6,1
2024,3,2024-01-12,2024-01-17,Bihar,Gaya,Dengue,Active,2,5
2024,4,2024-01-20,2024-01-24,Punjab,Amritsar,Typhoid,Closed,7,0
`

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	root := t.TempDir()
	st, err := store.OpenBolt(filepath.Join(root, "runs.db"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	proc := pipeline.NewProcessor(core.DefaultSettings(), st, 0, logger)
	svc := pipeline.NewService(pipeline.ServiceConfig{
		Paths: pipeline.Paths{
			OutputDir:     filepath.Join(root, "cleaned"),
			QuarantineDir: filepath.Join(root, "inconsistencies"),
			LogDir:        filepath.Join(root, "logs"),
		},
		MaxConcurrent: 1,
		MaxWait:       time.Second,
	}, proc, st)
	return NewServer(svc, opts)
}

func uploadRequest(t *testing.T, path, fileName, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(fw, content)
	} else {
		mw.WriteField("note", "no file")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&er); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return er
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestListDatasets(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))

	var infos []DatasetInfo
	if err := json.NewDecoder(rec.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var idsp *DatasetInfo
	for i := range infos {
		if infos[i].Key == "idsp" {
			idsp = &infos[i]
		}
	}
	if idsp == nil {
		t.Fatalf("idsp not listed in %+v", infos)
	}
	if !idsp.WeekCheck || len(idsp.Rules) != 2 || idsp.Rules[1].Reason != "deaths_vs_cases" {
		t.Errorf("idsp = %+v", idsp)
	}
}

func TestCleanAndDownload(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := serve(s, uploadRequest(t, "/api/clean/idsp", "outbreaks.csv", outbreakCSV))
	if rec.Code != http.StatusCreated {
		t.Fatalf("clean status = %d: %s", rec.Code, rec.Body.String())
	}
	var run store.RunRecord
	if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.Status != store.StatusSucceeded || run.FileName != "outbreaks.csv" || run.QuarantinedRows != 1 {
		t.Errorf("run = %s %s quarantined %d", run.Status, run.FileName, run.QuarantinedRows)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get run status = %d", rec.Code)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/runs?dataset=idsp", nil))
	var runs []store.RunRecord
	json.NewDecoder(rec.Body).Decode(&runs)
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("list runs = %+v", runs)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID+"/cleaned.csv", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv; charset=utf-8" {
		t.Fatalf("cleaned download = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if lines := strings.Count(rec.Body.String(), "\n"); lines != 9 {
		t.Errorf("cleaned csv has %d lines, want 9", lines)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "cleaned_idsp.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID+"/quarantine/deaths_vs_cases.csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("quarantine download = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Gaya") {
		t.Errorf("quarantine csv = %s", rec.Body.String())
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID+"/quarantine/week_mismatch.csv", nil))
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Code != "RUN004" {
		t.Errorf("missing batch = %d", rec.Code)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("run page = %d", rec.Code)
	}
	page := rec.Body.String()
	for _, want := range []string{"<h1>idsp", "Deaths vs Cases", "/quarantine/deaths_vs_cases.csv"} {
		if !strings.Contains(page, want) {
			t.Errorf("run page lacks %q", want)
		}
	}
}

func TestCleanErrors(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown dataset",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "/api/clean/nope", "a.csv", outbreakCSV) },
			wantStatus: http.StatusNotFound,
			wantCode:   "RUN001",
		},
		{
			name:       "no file",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "/api/clean/idsp", "", "") },
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
		{
			name:       "empty file",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "/api/clean/idsp", "a.csv", "") },
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE005",
		},
		{
			name:       "too large",
			opts:       Options{MaxUploadSize: 64},
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "/api/clean/idsp", "a.csv", outbreakCSV) },
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE001",
		},
		{
			name:       "invalid limit",
			req:        func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/api/runs?limit=x", nil) },
			wantStatus: http.StatusBadRequest,
			wantCode:   "REQ001",
		},
		{
			name:       "unknown run",
			req:        func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil) },
			wantStatus: http.StatusNotFound,
			wantCode:   "RUN002",
		},
		{
			name: "api key required",
			opts: Options{Security: config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k"}}},
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "AUTH001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.opts)
			rec := serve(s, tt.req(t))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeError(t, rec).Code; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestRunPage_NotFoundIsHTML(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/runs/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Cleaning run not found") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.allow("b") {
		t.Error("other client should not be limited")
	}
}

func TestRunPage_EscapesValues(t *testing.T) {
	var b strings.Builder
	rec := store.RunRecord{ID: "r1", Dataset: "<script>", Status: store.StatusFailed, Error: "bad & worse"}
	if err := RunPage(rec).Render(t.Context(), &b); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(b.String(), "<script>") {
		t.Error("dataset name was not escaped")
	}
	if !strings.Contains(b.String(), "bad &amp; worse") {
		t.Errorf("error not rendered: %s", b.String())
	}
}
