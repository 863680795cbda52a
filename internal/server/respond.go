package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	errs "github.com/matzehuels/leafshift/pkg/errors"
)

type errorBody struct {
	Code      errs.Code `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonStatus(w, http.StatusOK, v)
}

func jsonStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// jsonError writes err with its localized message and the status its code
// maps to.
func (s *Server) jsonError(w http.ResponseWriter, r *http.Request, lang language.Tag, err error) {
	status := statusFor(err)
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "code", code, "error", err)
	}
	jsonStatus(w, status, map[string]errorBody{"error": {
		Code:      code,
		Message:   s.tr.Error(lang, err),
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	if errs.IsPlanError(err) {
		return http.StatusUnprocessableEntity
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeInvalidConfig, errs.ErrCodeUnknownFamily:
		return http.StatusBadRequest
	case errs.ErrCodeMissingAperture, errs.ErrCodeMissingCollimator:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeNotFound:
		return http.StatusNotFound
	case errs.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// wantsJSON reports whether the client asked for a JSON response instead of
// the raw file.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// readUpload returns the uploaded file and its name.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	var (
		data []byte
		name string
		err  error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			return nil, "", s.uploadError(err)
		}
		file, hdr, ferr := r.FormFile("file")
		if ferr != nil {
			return nil, "", errs.Wrap(errs.ErrCodeInvalidInput, ferr, "missing form field %q", "file")
		}
		defer file.Close()
		data, err = io.ReadAll(file)
		name = hdr.Filename
	} else {
		data, err = io.ReadAll(r.Body)
		name = r.URL.Query().Get("name")
	}
	if err != nil {
		return nil, "", s.uploadError(err)
	}
	if len(data) == 0 {
		return nil, "", errs.New(errs.ErrCodeInvalidInput, "empty upload")
	}
	if name != "" {
		if err := errs.ValidateUploadName(name); err != nil {
			return nil, "", err
		}
	}
	return data, name, nil
}

func (s *Server) uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return errs.Wrap(errs.ErrCodeTooLarge, err, "upload exceeds %d bytes", s.maxUpload)
	}
	return errs.Wrap(errs.ErrCodeInvalidInput, err, "read upload")
}

// attachment formats a Content-Disposition header for a download.
func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}
