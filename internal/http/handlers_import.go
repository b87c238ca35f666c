package http

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"kakeibo/internal/core"
)

// csvTemplate is what /api/import/template serves: the canonical header
// plus two illustrative rows.
const csvTemplate = "date,description,amount,category,memo\n" +
	"2024-01-15,スーパーマーケット,-3500,食費,週末の買い物\n" +
	"2024-01-25,1月給与,250000,給料,\n"

// handleImport accepts a CSV either as a multipart "file" field or as a raw
// text/csv body. Row failures are reported in the response; only a
// file-level failure produces success=false, and then nothing is written.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	defaultAccountID, err := queryInt64(r, "default_account")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid default_account")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.importMaxBytes)

	reader, err := importBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, result, err := s.imports.Import(r.Context(), reader, defaultAccountID)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAccount) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusBadRequest, importResponse{
			Success: false,
			Errors:  []string{err.Error()},
			Notes:   []string{},
		})
		return
	}

	if len(saved) > 0 {
		s.invalidateReports()
	}

	rowErrors := result.ErrorStrings()
	if rowErrors == nil {
		rowErrors = []string{}
	}
	notes := result.Notes
	if notes == nil {
		notes = []string{}
	}
	writeJSON(w, http.StatusOK, importResponse{
		Success:       true,
		TotalRows:     result.TotalRows,
		ImportedCount: result.ImportedCount,
		Errors:        rowErrors,
		Notes:         notes,
	})
}

// importBody picks the CSV stream out of the request.
func importBody(r *http.Request) (io.Reader, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("missing file field in multipart body")
		}
		return file, nil
	}
	return r.Body, nil
}

func (s *Server) handleImportTemplate(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="kakeibo_template.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(csvTemplate))
}
