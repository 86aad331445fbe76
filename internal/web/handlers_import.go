package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cardfile/cardfile/internal/importer"
	"github.com/cardfile/cardfile/internal/logging"
	"github.com/cardfile/cardfile/internal/service"
)

// previewResponse is the import preview payload. validation.errors is
// reserved and always an empty array; parse row errors travel in
// parseErrors instead.
type previewResponse struct {
	Contacts    []importer.CandidateRecord `json:"contacts"`
	Duplicates  []importer.DuplicateMatch  `json:"duplicates"`
	Validation  validationBlock            `json:"validation"`
	ParseErrors []string                   `json:"parseErrors"`
	TotalRows   int                        `json:"totalRows"`
}

type validationBlock struct {
	Warnings []importer.ValidationFinding `json:"warnings"`
	Errors   []importer.ValidationFinding `json:"errors"`
}

// handleImportPreview accepts a multipart upload in the "file" field,
// parses it, and reports what an import would do. Nothing is written.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "file too large or invalid form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "no file provided", err)
		return
	}
	defer file.Close()

	if !extensionAllowed(header.Filename, s.cfg.Upload.AllowedExtensions) {
		s.respondError(w, r, http.StatusBadRequest, "unsupported file type "+filepath.Ext(header.Filename), nil)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to read file", err)
		return
	}

	result, err := s.svc.Preview(r.Context(), string(data))
	if err != nil {
		if errors.Is(err, importer.ErrEmptyInput) || errors.Is(err, importer.ErrTooFewLines) {
			s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, "import preview failed", err)
		return
	}

	logging.FromContext(r.Context()).Info("import preview",
		"file", header.Filename,
		"rows", len(result.Candidates),
		"duplicates", len(result.Duplicates))

	writeJSON(w, http.StatusOK, buildPreviewResponse(result))
}

// buildPreviewResponse flattens a PreviewResult into the wire shape.
// File-scoped parse warnings lead the warning list as row-0 findings
// so clients render them ahead of per-row issues.
func buildPreviewResponse(result service.PreviewResult) previewResponse {
	warnings := make([]importer.ValidationFinding, 0, len(result.Diagnostics.Warnings)+len(result.Findings))
	for _, msg := range result.Diagnostics.Warnings {
		warnings = append(warnings, importer.ValidationFinding{Row: 0, Field: "file", Message: msg})
	}
	warnings = append(warnings, result.Findings...)

	resp := previewResponse{
		Contacts:    result.Candidates,
		Duplicates:  result.Duplicates,
		Validation:  validationBlock{Warnings: warnings, Errors: []importer.ValidationFinding{}},
		ParseErrors: result.Diagnostics.Errors,
		TotalRows:   len(result.Candidates),
	}
	if resp.Contacts == nil {
		resp.Contacts = []importer.CandidateRecord{}
	}
	if resp.Duplicates == nil {
		resp.Duplicates = []importer.DuplicateMatch{}
	}
	if resp.ParseErrors == nil {
		resp.ParseErrors = []string{}
	}
	return resp
}

// executeRequest mirrors the preview response: the client sends back
// the candidate rows plus one action per row it wants applied.
type executeRequest struct {
	Contacts []importer.CandidateRecord `json:"contacts"`
	Actions  []importer.ImportDecision  `json:"actions"`
}

// handleImportExecute applies the submitted decisions in a single
// transaction. Row failures roll everything back but still produce a
// 200 with success=false; only infrastructure failures are 500s.
func (s *Server) handleImportExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	outcome, err := s.svc.Execute(r.Context(), req.Contacts, req.Actions)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "import failed", err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// extensionAllowed reports whether the filename's extension is in the
// configured allowlist. Comparison is case-insensitive.
func extensionAllowed(filename string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == strings.ToLower(strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}
