package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/logging"
	"github.com/JonMunkholm/dataclean/internal/store"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 32 << 20

// DatasetInfo describes a registered dataset.
type DatasetInfo struct {
	Key             string     `json:"key"`
	Label           string     `json:"label,omitempty"`
	FileName        string     `json:"file_name"`
	ExpectedColumns []string   `json:"expected_columns,omitempty"`
	DateColumns     []string   `json:"date_columns,omitempty"`
	Rules           []RuleInfo `json:"rules,omitempty"`
	WeekCheck       bool       `json:"week_check"`
	DedupKey        []string   `json:"dedup_key,omitempty"`
}

// RuleInfo describes one consistency rule.
type RuleInfo struct {
	Name      string `json:"name"`
	Reason    string `json:"reason"`
	Predicate string `json:"predicate"`
	Repair    string `json:"repair"`
}

func datasetInfo(def core.DatasetDefinition) DatasetInfo {
	info := DatasetInfo{
		Key:             def.Key,
		Label:           def.Label,
		FileName:        def.FileName,
		ExpectedColumns: def.ExpectedColumns,
		DateColumns:     def.DateColumns,
		WeekCheck:       def.Week != nil,
		DedupKey:        def.DedupKey,
	}
	for _, r := range def.Rules {
		info.Rules = append(info.Rules, RuleInfo{
			Name:      r.Name,
			Reason:    r.Reason,
			Predicate: r.Predicate.String(),
			Repair:    string(r.Repair),
		})
	}
	return info
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"runs":   s.service.Limiter().Status(),
	})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	defs := s.service.Datasets()
	infos := make([]DatasetInfo, len(defs))
	for i, def := range defs {
		infos[i] = datasetInfo(def)
	}
	writeJSON(w, infos)
}

// handleClean cleans an uploaded CSV ("file" form field) synchronously
// and returns the run record.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "dataset")

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large") {
			s.respondError(w, r, fmt.Errorf("%w: %v", errFileTooLarge, err))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	logging.WithFields(r.Context(), "dataset", key, "file", header.Filename, "size", header.Size).
		Info("cleaning upload")

	rec, err := s.service.Clean(r.Context(), key, file, header.Filename)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{Dataset: r.URL.Query().Get("dataset")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONStatus(w, http.StatusBadRequest, ErrorResponse{
				Error:   "invalid limit",
				Message: "The limit parameter must be a positive integer",
				Code:    "REQ001",
			})
			return
		}
		opts.Limit = n
	}

	runs, err := s.service.ListRuns(r.Context(), opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handleDownloadCleaned(w http.ResponseWriter, r *http.Request) {
	f, rec, err := s.service.OpenCleaned(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer f.Close()
	serveCSV(w, r, "cleaned_"+rec.Dataset+".csv", f)
}

func (s *Server) handleDownloadQuarantine(w http.ResponseWriter, r *http.Request) {
	reason := chi.URLParam(r, "reason")
	f, rec, err := s.service.OpenQuarantine(r.Context(), chi.URLParam(r, "runID"), reason)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer f.Close()
	serveCSV(w, r, rec.Dataset+"_"+reason+".csv", f)
}

func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := RunPage(rec).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render run page", "error", err)
	}
}

func serveCSV(w http.ResponseWriter, r *http.Request, name string, src io.Reader) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := io.Copy(w, src); err != nil {
		logging.FromContext(r.Context()).Error("stream csv", "file", name, "error", err)
	}
}
