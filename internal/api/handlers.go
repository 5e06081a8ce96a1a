package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/lifecycle"
	"github.com/sells-group/diagnostic-versions/internal/sheet"
)

type promptRequest struct {
	SystemPrompt *string `json:"system_prompt"`
	Note         *string `json:"note"`
}

type activateRequest struct {
	DiagnosticID int64 `json:"diagnostic_id" validate:"gte=0"`
}

func (s *Server) handleListDiagnostics(w http.ResponseWriter, r *http.Request) {
	include, err := lifecycle.ParseIncludeInactive(r.URL.Query().Get("include_inactive"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.versions.ListDiagnostics(r.Context(), include)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleActiveVersions(w http.ResponseWriter, r *http.Request) {
	var diagnosticID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("diagnostic_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, apperr.New(apperr.KindInvalidFilter, "diagnostic_id must be a positive integer"))
			return
		}
		diagnosticID = id
	}
	items, err := s.versions.ActiveVersions(r.Context(), diagnosticID, r.URL.Query().Get("diagnostic_code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	diagnosticID, err := pathID(r, "diagnostic_id", apperr.KindDiagnosticNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit := lifecycle.DefaultVersionLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeError(w, r, apperr.New(apperr.KindInvalidLimit, "limit must be an integer"))
			return
		}
	}
	list, err := s.versions.ListVersions(r.Context(), diagnosticID, r.URL.Query().Get("status"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.CreateInput
	if err := s.decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.versions.Create(r.Context(), in, adminID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            v.ID,
		"diagnostic_id": v.DiagnosticID,
		"name":          v.Name,
		"description":   v.Description,
		"note":          v.Note,
		"status":        v.Status(),
		"created_at":    v.CreatedAt.UTC(),
	})
}

func (s *Server) handleVersionDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := versionID(w, r)
	if !ok {
		return
	}
	d, err := s.versions.Detail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := versionID(w, r)
	if !ok {
		return
	}
	p, err := s.versions.Prompt(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := versionID(w, r)
	if !ok {
		return
	}
	var req promptRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.versions.UpdatePrompt(r.Context(), id, adminID(r), req.SystemPrompt, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "version_id"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, r, apperr.New(apperr.KindVersionNotFound, "version_id must be a non-negative integer"))
		return
	}
	var diagnosticID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("diagnostic_id")); raw != "" {
		if diagnosticID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			writeError(w, r, apperr.New(apperr.KindImportValidation, "diagnostic_id must be an integer"))
			return
		}
	}
	f, err := s.versions.Template(r.Context(), id, diagnosticID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", sheet.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Content)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	id, ok := versionID(w, r)
	if !ok {
		return
	}
	content, err := s.upload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.importer.ImportContent(r.Context(), id, adminID(r), content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, ok := versionID(w, r)
	if !ok {
		return
	}
	res, err := s.versions.Finalize(r.Context(), id, adminID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	id, ok := versionID(w, r)
	if !ok {
		return
	}
	var req activateRequest
	if err := s.decodeOptional(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.versions.Activate(r.Context(), id, adminID(r), req.DiagnosticID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// upload reads the workbook from a multipart "file" field or, for any other
// content type, from the raw body.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}

	var body io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, uploadError(err, s.maxUpload)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, apperr.New(apperr.KindImportValidation, `multipart upload must carry a "file" field`)
		}
		defer f.Close()
		body = f
	}

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, uploadError(err, s.maxUpload)
	}
	if len(content) == 0 {
		return nil, apperr.New(apperr.KindImportValidation, "uploaded workbook is empty")
	}
	return content, nil
}

func uploadError(err error, limit int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.New(apperr.KindImportValidation, fmt.Sprintf("upload exceeds %d bytes", limit))
	}
	return apperr.Wrap(err, apperr.KindImportValidation, "failed to read the upload")
}

// decode parses a JSON body and runs struct validation.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(err, apperr.KindImportValidation, "request body is not valid JSON")
	}
	return s.check(dst)
}

// decodeOptional is decode for endpoints whose body may be omitted.
func (s *Server) decodeOptional(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return apperr.Wrap(err, apperr.KindImportValidation, "request body is not valid JSON")
	}
	return s.check(dst)
}

func (s *Server) check(dst any) error {
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
			}
			return apperr.New(apperr.KindImportValidation, strings.Join(fields, "; "))
		}
		return apperr.Wrap(err, apperr.KindImportValidation, "request body is invalid")
	}
	return nil
}

// pathID parses a positive path id; anything else reports kind.
func pathID(r *http.Request, name string, kind apperr.Kind) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(kind, fmt.Sprintf("%s %q is not a positive integer", name, raw))
	}
	return id, nil
}

func versionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r, "version_id", apperr.KindVersionNotFound)
	if err != nil {
		writeError(w, r, err)
		return 0, false
	}
	return id, true
}
