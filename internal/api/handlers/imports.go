package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dvloznov/family-ledger/internal/api/middleware"
	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/dvloznov/family-ledger/internal/logger"
	"github.com/dvloznov/family-ledger/internal/pipeline"
)

// ImportsHandler drives the statement import of the caller's session.
type ImportsHandler struct {
	importer       *pipeline.Importer
	maxUploadBytes int64
}

// NewImportsHandler creates a new imports handler. Uploads larger than
// maxUploadBytes are rejected.
func NewImportsHandler(importer *pipeline.Importer, maxUploadBytes int64) *ImportsHandler {
	return &ImportsHandler{importer: importer, maxUploadBytes: maxUploadBytes}
}

// Upload handles POST /api/imports (multipart: file, account). The parsed
// rows are staged in the session and returned for review.
func (h *ImportsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeFailure(w, log, domain.Invalid("file", "multipart form expected"), "")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, log, domain.Invalid("file", "is required"), "")
		return
	}
	defer file.Close()

	batch, err := h.importer.Stage(ctx, userID(r), sessionID(r), pipeline.Upload{
		AccountID: r.FormValue("account"),
		Filename:  header.Filename,
		Body:      file,
	})
	if err != nil {
		writeFailure(w, log, err, "Failed to stage import")
		return
	}

	review, err := h.importer.Current(ctx, userID(r), sessionID(r))
	if err != nil {
		writeFailure(w, log, err, "Failed to load staged import")
		return
	}

	log.Info().
		Str("batch_id", batch.ID).
		Str("filename", header.Filename).
		Int("rows", len(batch.Rows)).
		Msg("Statement uploaded")
	middleware.WriteJSON(w, http.StatusCreated, review)
}

// Current handles GET /api/imports/current
func (h *ImportsHandler) Current(w http.ResponseWriter, r *http.Request) {
	review, err := h.importer.Current(r.Context(), userID(r), sessionID(r))
	if err != nil {
		writeFailure(w, logger.FromContext(r.Context()), err, "Failed to load import")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, review)
}

// Confirm handles POST /api/imports/confirm. The edited rows arrive as
// parallel form arrays: date, description, amount, type, category.
func (h *ImportsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(h.maxUploadBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		writeFailure(w, log, domain.Invalid("body", "form expected"), "")
		return
	}

	form := r.PostForm
	rows, err := pipeline.RowsFromForm(form["date"], form["description"], form["amount"], form["type"], form["category"])
	if err != nil {
		writeFailure(w, log, err, "")
		return
	}

	receipt, err := h.importer.Confirm(ctx, userID(r), sessionID(r), pipeline.Submission{
		AccountID: strings.TrimSpace(first(form["account"])),
		Rows:      rows,
	})
	if err != nil {
		writeFailure(w, log, err, "Failed to confirm import")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"state":        "committed",
		"batch_id":     receipt.BatchID,
		"count":        receipt.Count(),
		"transactions": receipt.Transactions,
	})
}

// Cancel handles POST /api/imports/cancel
func (h *ImportsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	state := h.importer.Cancel(r.Context(), sessionID(r))
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"state": state,
	})
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
