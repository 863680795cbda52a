package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/matzehuels/leafshift/pkg/buildinfo"
	"github.com/matzehuels/leafshift/pkg/convert"
	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/history"
	"github.com/matzehuels/leafshift/pkg/linac"
	"github.com/matzehuels/leafshift/pkg/pipeline"
)

// Response headers describing a converted plan or an aperture image.
const (
	headerDirection = "X-Leafshift-Direction"
	headerWarnings  = "X-Leafshift-Warnings"
	headerCache     = "X-Leafshift-Cache"
	headerRejected  = "X-Leafshift-Rejected"
	headerReason    = "X-Leafshift-Reason"
)

// maxLinacBody limits PUT /api/linacs bodies.
const maxLinacBody = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]string{"status": "ok", "version": buildinfo.Version})
}

type warningResponse struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

type convertResponse struct {
	OutputName    string            `json:"output_name"`
	Direction     convert.Direction `json:"direction"`
	Label         string            `json:"label"`
	Beams         int               `json:"beams"`
	ControlPoints int               `json:"control_points"`
	Warnings      []warningResponse `json:"warnings"`
	OutputUID     string            `json:"output_uid"`
	CacheHit      bool              `json:"cache_hit"`
	Output        []byte            `json:"output"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	lang := s.tr.Match(r.Header.Get("Accept-Language"))

	data, name, err := s.readUpload(w, r)
	if err != nil {
		s.jsonError(w, r, lang, err)
		return
	}
	res, err := s.runner.Convert(r.Context(), data, pipeline.ConvertOptions{
		Name:    name,
		Refresh: r.URL.Query().Get("refresh") == "true",
	})
	if err != nil {
		s.jsonError(w, r, lang, err)
		return
	}

	if wantsJSON(r) {
		warnings := make([]warningResponse, len(res.Warnings))
		for i, wn := range res.Warnings {
			warnings[i] = warningResponse{Code: wn.Code, Message: s.tr.Warning(lang, wn)}
		}
		jsonOK(w, convertResponse{
			OutputName:    res.OutputName,
			Direction:     res.Direction,
			Label:         res.Direction.Label(),
			Beams:         res.Beams,
			ControlPoints: res.ControlPoints,
			Warnings:      warnings,
			OutputUID:     res.OutputUID,
			CacheHit:      res.CacheHit,
			Output:        res.Output,
		})
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/dicom")
	h.Set("Content-Disposition", attachment(res.OutputName))
	h.Set("Content-Length", strconv.Itoa(len(res.Output)))
	h.Set(headerDirection, res.Direction.String())
	h.Set(headerWarnings, strconv.Itoa(len(res.Warnings)))
	h.Set(headerCache, cacheStatus(res.CacheHit))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Output)
}

type apertureResponse struct {
	Format    string            `json:"format"`
	Direction convert.Direction `json:"direction"`
	Beam      int               `json:"beam"`
	Rejected  bool              `json:"rejected"`
	Reason    string            `json:"reason,omitempty"`
	Data      []byte            `json:"data"`
}

func (s *Server) handleAperture(w http.ResponseWriter, r *http.Request) {
	lang := s.tr.Match(r.Header.Get("Accept-Language"))

	opts, err := apertureOptions(r)
	if err != nil {
		s.jsonError(w, r, lang, err)
		return
	}
	data, _, err := s.readUpload(w, r)
	if err != nil {
		s.jsonError(w, r, lang, err)
		return
	}
	res, err := s.runner.Aperture(r.Context(), data, opts)
	if err != nil {
		s.jsonError(w, r, lang, err)
		return
	}

	if wantsJSON(r) {
		resp := apertureResponse{
			Format:    res.Format,
			Direction: res.Direction,
			Beam:      res.Beam,
			Rejected:  res.Rejected,
			Data:      res.Data,
		}
		if res.Reason != nil {
			resp.Reason = s.tr.Error(lang, res.Reason)
		}
		jsonOK(w, resp)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.ContentType())
	h.Set(headerDirection, res.Direction.String())
	h.Set(headerCache, cacheStatus(res.CacheHit))
	if res.Rejected {
		h.Set(headerRejected, "true")
		h.Set(headerReason, string(errs.GetCode(res.Reason)))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

// apertureOptions reads beam, cp, format, converted, scale and grid from
// the query string.
func apertureOptions(r *http.Request) (pipeline.ApertureOptions, error) {
	q := r.URL.Query()
	opts := pipeline.ApertureOptions{Format: q.Get("format")}
	if opts.Format == "" {
		opts.Format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(opts.Format); err != nil {
		return opts, err
	}

	var err error
	if v := q.Get("beam"); v != "" {
		if opts.Beam, err = strconv.Atoi(v); err != nil {
			return opts, errs.New(errs.ErrCodeInvalidInput, "beam must be an integer, got %q", v)
		}
	}
	if v := q.Get("cp"); v != "" {
		if opts.ControlPoint, err = strconv.Atoi(v); err != nil {
			return opts, errs.New(errs.ErrCodeInvalidInput, "cp must be an integer, got %q", v)
		}
	}
	if v := q.Get("scale"); v != "" {
		if opts.Scale, err = strconv.ParseFloat(v, 64); err != nil || opts.Scale <= 0 || opts.Scale > 10 {
			return opts, errs.New(errs.ErrCodeInvalidInput, "scale must be a number in (0, 10], got %q", v)
		}
	}
	opts.Converted = q.Get("converted") == "true"
	opts.Grid = q.Get("grid") == "true"
	return opts, nil
}

func (s *Server) handleGetLinacs(w http.ResponseWriter, r *http.Request) {
	s.writeLinacs(w, r, s.runner.Linacs.Snapshot())
}

func (s *Server) handlePutLinacs(w http.ResponseWriter, r *http.Request) {
	lang := s.tr.Match(r.Header.Get("Accept-Language"))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLinacBody))
	if err != nil {
		s.jsonError(w, r, lang, s.uploadError(err))
		return
	}
	cfg, err := linac.Parse(body)
	if err != nil {
		s.jsonError(w, r, lang, err)
		return
	}
	if err := s.runner.Linacs.Replace(cfg); err != nil {
		s.jsonError(w, r, lang, err)
		return
	}
	s.logger.Info("linac configuration updated",
		"millennium", cfg.Millennium.TreatmentMachineName,
		"hd", cfg.HD.TreatmentMachineName)
	s.writeLinacs(w, r, cfg)
}

func (s *Server) writeLinacs(w http.ResponseWriter, r *http.Request, cfg linac.Config) {
	data, err := linac.Marshal(cfg)
	if err != nil {
		s.jsonError(w, r, s.tr.Match(r.Header.Get("Accept-Language")), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	lang := s.tr.Match(r.Header.Get("Accept-Language"))

	limit := history.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			s.jsonError(w, r, lang, errs.New(errs.ErrCodeInvalidInput, "limit must be between 1 and 1000, got %q", v))
			return
		}
		limit = n
	}
	entries, err := s.runner.RecentHistory(r.Context(), limit)
	if err != nil {
		s.jsonError(w, r, lang, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	jsonOK(w, map[string]any{"entries": entries})
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
