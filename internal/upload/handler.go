package upload

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/medconnect/backend/internal/apierror"
	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/logging"
	"github.com/medconnect/backend/internal/pagination"
)

const (
	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

func unauthorized(w http.ResponseWriter) {
	apierror.Respond(w, http.StatusUnauthorized, apierror.KindUnauthorized, "unauthorized")
}

// Upload handles POST /files
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.service.MaxBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierror.Write(w, ErrFileTooLarge)
			return
		}
		apierror.Write(w, apierror.Validation("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierror.Write(w, ErrMissingFile)
		return
	}
	defer file.Close()

	f, err := h.service.Upload(r.Context(), principal, UploadInput{
		FileName:     header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		PatientID:    r.FormValue("patientId"),
		Content:      file,
	})
	if err != nil {
		apierror.Handle(w, r, "upload file", err)
		return
	}
	apierror.JSON(w, http.StatusCreated, f)
}

// Get handles GET /files/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	f, err := h.service.Get(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		apierror.Handle(w, r, "get file", err)
		return
	}
	apierror.JSON(w, http.StatusOK, f)
}

// Download handles GET /files/{id}/download
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	f, content, err := h.service.Open(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		apierror.Handle(w, r, "download file", err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(f.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.FileName}))
	w.Header().Set("ETag", `"`+f.SHA256+`"`)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		logging.FromContext(r.Context()).Warn().Err(err).Str("file_id", f.ID).Msg("download interrupted")
	}
}

// Delete handles DELETE /files/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	if err := h.service.Delete(r.Context(), principal, mux.Vars(r)["id"]); err != nil {
		apierror.Handle(w, r, "delete file", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListForPatient handles GET /patients/{patientId}/files
func (h *Handler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	page, err := h.service.ListForPatient(r.Context(), principal, mux.Vars(r)["patientId"], pagination.ParseParams(r))
	if err != nil {
		apierror.Handle(w, r, "list patient files", err)
		return
	}
	apierror.JSON(w, http.StatusOK, page)
}
