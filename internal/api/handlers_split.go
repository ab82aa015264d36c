package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docsplit/internal/layout"
	"github.com/dgallion1/docsplit/internal/pipeline"
)

// splitParams are the form fields shared by single and batch submits.
type splitParams struct {
	family    string
	maxPages  int
	extractor pipeline.Extractor
	outline   []byte
}

func (s *Server) parseSplitParams(r *http.Request) (splitParams, error) {
	p := splitParams{
		family:    r.FormValue("family"),
		extractor: pipeline.ExtractGrammar,
	}
	if p.family == "" {
		return p, fmt.Errorf("family is required")
	}
	if _, ok := s.orchestrator.Families().Get(p.family); !ok {
		return p, fmt.Errorf("unknown family %q", p.family)
	}
	if v := r.FormValue("max_pages"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return p, fmt.Errorf("max_pages must be a positive integer")
		}
		p.maxPages = n
	}
	switch e := pipeline.Extractor(r.FormValue("extractor")); e {
	case "", pipeline.ExtractGrammar:
	case pipeline.ExtractLLM:
		p.extractor = e
	default:
		return p, fmt.Errorf("extractor must be %q or %q", pipeline.ExtractGrammar, pipeline.ExtractLLM)
	}

	// The outline may arrive as a file part or as a plain field.
	if f, _, err := r.FormFile("outline"); err == nil {
		data, err := io.ReadAll(io.LimitReader(f, 4<<20))
		f.Close()
		if err != nil {
			return p, fmt.Errorf("read outline: %w", err)
		}
		p.outline = data
	} else if v := r.FormValue("outline"); v != "" {
		p.outline = []byte(v)
	}
	return p, nil
}

var errTooLarge = errors.New("file exceeds max size")

// readUpload reads one uploaded file, enforcing the size limit.
func (s *Server) readUpload(fh *multipart.FileHeader) (string, []byte, error) {
	filename := sanitizeFilename(fh.Filename)
	if !layout.IsSupportedExtension(filename) {
		return filename, nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	f, err := fh.Open()
	if err != nil {
		return filename, nil, fmt.Errorf("failed to open file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return filename, nil, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return filename, nil, fmt.Errorf("%w (%d bytes)", errTooLarge, s.cfg.MaxUploadBytes)
	}
	return filename, data, nil
}

func (p splitParams) newJob(filename string, data []byte, title string) *pipeline.Job {
	job := pipeline.NewJob(filename, p.family, data)
	job.Title = title
	job.MaxPages = p.maxPages
	job.Extractor = p.extractor
	if len(p.outline) > 0 {
		job.SetOutline(p.outline)
	}
	return job
}

func jobResponse(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"job_id":   snap.ID,
		"filename": snap.Filename,
		"family":   snap.Family,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/split/%s/status", snap.ID),
	}
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	params, err := s.parseSplitParams(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	filename, data, err := s.readUpload(files[0])
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, errTooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		jsonError(w, err.Error(), code)
		return
	}

	job := params.newJob(filename, data, r.FormValue("title"))
	annotate(r, "job_id", job.ID, "family", job.Family)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, jobResponse(job))
}

func (s *Server) handleBatchSplit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	params, err := s.parseSplitParams(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	// A single outline cannot describe several documents.
	params.outline = nil

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	annotate(r, "family", params.family, "files", len(files))

	var results []map[string]any
	for _, fh := range files {
		filename, data, err := s.readUpload(fh)
		if err != nil {
			results = append(results, map[string]any{"filename": filename, "error": err.Error()})
			continue
		}
		job := params.newJob(filename, data, "")
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{"filename": filename, "error": err.Error()})
			continue
		}
		results = append(results, jobResponse(job))
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": results})
}

func (s *Server) jobFromURL(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil
	}
	annotate(r, "family", job.Family)
	return job
}

// resultFromURL returns the finished job's result, or writes 404/409.
func (s *Server) resultFromURL(w http.ResponseWriter, r *http.Request) *pipeline.Result {
	job := s.jobFromURL(w, r)
	if job == nil {
		return nil
	}
	res := job.Result()
	if res == nil {
		snap := job.Snapshot()
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return nil
	}
	return res
}

func (s *Server) handleSplitStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromURL(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleSplitPlan(w http.ResponseWriter, r *http.Request) {
	res := s.resultFromURL(w, r)
	if res == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"plan":      res.Plan,
		"artifacts": res.Artifacts,
	})
}

// handleSplitOutline serves the outline as markdown, or with
// ?format=tree|headers as JSON.
func (s *Server) handleSplitOutline(w http.ResponseWriter, r *http.Request) {
	res := s.resultFromURL(w, r)
	if res == nil {
		return
	}
	switch r.URL.Query().Get("format") {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, res.Markdown)
	case "tree":
		writeJSON(w, http.StatusOK, res.Tree)
	case "headers":
		writeJSON(w, http.StatusOK, res.Outline)
	default:
		jsonError(w, "format must be markdown, tree or headers", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
