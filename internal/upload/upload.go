// Package upload reads the report form and spools the exercise video.
package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"physioreport/internal/apperrors"
	"physioreport/internal/report"
)

// Form field names.
const (
	FieldPatientID = "patient_id"
	FieldNotes     = "notes"
	FieldVideo     = "video"
)

// maxFieldBytes caps the text fields independently of the video size limit.
const maxFieldBytes = 64 << 10

// Allowed lists the accepted video container extensions.
var Allowed = []string{".mp4", ".avi"}

// AcceptAttr is the value for the file input's accept attribute.
func AcceptAttr() string {
	return strings.Join(Allowed, ",")
}

// CheckExtension rejects files whose extension is not in Allowed.
func CheckExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range Allowed {
		if ext == a {
			return nil
		}
	}
	return apperrors.NewValidationError(fmt.Sprintf("unsupported file type %q: upload an MP4 or AVI video", filepath.Ext(name)))
}

// Options controls Parse.
type Options struct {
	// Dir is the parent of each request's spool directory.
	Dir string
	// MaxBytes caps the whole request body.
	MaxBytes int64
}

// Submission is a parsed report request.
type Submission struct {
	Session report.Session
	Video   report.Video

	dir string
}

// Cleanup removes the request's spool directory and the video in it.
func (s *Submission) Cleanup() error {
	if s == nil || s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// Parse streams the multipart form in r. Parts may arrive in any order. The video
// extension is checked before any of its bytes are read.
func Parse(w http.ResponseWriter, r *http.Request, opts Options) (*Submission, error) {
	if opts.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBytes)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperrors.NewValidationError("expected a multipart/form-data upload").WithCause(err)
	}

	sub := &Submission{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			sub.Cleanup()
			return nil, readError(err)
		}

		switch part.FormName() {
		case FieldPatientID:
			sub.Session.PatientID, err = readField(part)
		case FieldNotes:
			sub.Session.Notes, err = readField(part)
		case FieldVideo:
			if sub.Video.Path != "" {
				err = apperrors.NewValidationError("only one video may be uploaded")
				break
			}
			sub.Video, sub.dir, err = spool(part, opts.Dir)
		}
		part.Close()
		if err != nil {
			sub.Cleanup()
			return nil, err
		}
	}

	if sub.Video.Path == "" {
		return nil, apperrors.NewValidationError("no video uploaded")
	}
	return sub, nil
}

func readField(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxFieldBytes+1))
	if err != nil {
		return "", readError(err)
	}
	if len(b) > maxFieldBytes {
		return "", apperrors.NewValidationError("form field too long")
	}
	return string(b), nil
}

type filePart interface {
	io.Reader
	FileName() string
}

// spool writes the video to <parent>/upload-*/video<ext> and returns the
// per-request directory it created.
func spool(part filePart, parent string) (report.Video, string, error) {
	name := filepath.Base(part.FileName())
	if part.FileName() == "" {
		return report.Video{}, "", apperrors.NewValidationError("no video uploaded")
	}
	if err := CheckExtension(name); err != nil {
		return report.Video{}, "", err
	}

	dir, err := os.MkdirTemp(parent, "upload-*")
	if err != nil {
		return report.Video{}, "", apperrors.NewInternalError("could not store upload", err)
	}
	ext := strings.ToLower(filepath.Ext(name))
	path := filepath.Join(dir, "video"+ext)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		os.RemoveAll(dir)
		return report.Video{}, "", apperrors.NewInternalError("could not store upload", err)
	}
	n, err := io.Copy(f, part)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.RemoveAll(dir)
		return report.Video{}, "", readError(err)
	}

	return report.Video{
		Name:        name,
		ContentType: contentType(ext),
		Path:        path,
		Size:        n,
	}, dir, nil
}

var contentTypes = map[string]string{
	".mp4": "video/mp4",
	".avi": "video/x-msvideo",
}

func contentType(ext string) string {
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

func readError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &apperrors.AppError{
			Type:       apperrors.ErrorTypeValidation,
			Message:    fmt.Sprintf("upload exceeds %d MB", tooLarge.Limit>>20),
			Cause:      err,
			HTTPStatus: http.StatusRequestEntityTooLarge,
		}
	}
	return apperrors.NewValidationError("malformed upload").WithCause(err)
}
