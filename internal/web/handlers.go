package web

import (
	"encoding/base64"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"physioreport/internal/apperrors"
	"physioreport/internal/upload"
)

// anglesHeader carries the analysis service's joint angles as base64 JSON
// alongside the PDF body.
const anglesHeader = "X-Analysis-Angles"

type pageData struct {
	Accept      string
	MaxUploadMB int64
	Mode        string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := pageData{
		Accept:      upload.AcceptAttr(),
		MaxUploadMB: s.opts.MaxUploadBytes >> 20,
		Mode:        s.opts.Mode,
	}
	if err := pageTmpl.Execute(w, data); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sub, err := upload.Parse(w, r, s.uploadOptions())
	if err != nil {
		if s.metrics != nil && apperrors.IsValidation(err) {
			s.metrics.UploadsRejected.Inc()
		}
		s.errors.Handle(w, r, err)
		return
	}
	defer func() {
		if err := sub.Cleanup(); err != nil {
			s.logger.Warn("remove spooled video", zap.String("path", sub.Video.Path), zap.Error(err))
		}
	}()

	start := time.Now()
	rep, err := s.analyzer.Analyze(r.Context(), sub.Session, sub.Video)
	if s.metrics != nil {
		s.metrics.ObserveReport(s.opts.Mode, start, err)
	}
	if err != nil {
		s.errors.Handle(w, r, apperrors.Wrap(err, "report generation failed"))
		return
	}

	fields := []zap.Field{
		zap.String("requestID", middleware.GetReqID(r.Context())),
		zap.String("file", rep.FileName),
		zap.String("video", sub.Video.Name),
		zap.Int("bytes", len(rep.Body)),
		zap.Duration("duration", time.Since(start)),
	}
	if len(rep.Angles) > 0 {
		fields = append(fields, zap.ByteString("angles", rep.Angles))
	}
	s.logger.Info("report generated", fields...)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rep.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.Body)))
	if len(rep.Angles) > 0 {
		w.Header().Set(anglesHeader, base64.StdEncoding.EncodeToString(rep.Angles))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(rep.Body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"mode":   s.opts.Mode,
	})
}
