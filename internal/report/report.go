// Package report builds the downloadable exercise report.
package report

import "encoding/json"

// Session is the free-text input typed by the user. Both fields are optional.
type Session struct {
	PatientID string
	Notes     string
}

// Video is an uploaded exercise clip spooled to scratch storage.
type Video struct {
	Name        string
	ContentType string
	Path        string
	Size        int64
}

// Report is a finished document ready to hand to the user.
type Report struct {
	FileName string
	Body     []byte
	// Angles is set only when a remote analysis service produced the report.
	Angles json.RawMessage
}

// FileName names the download for a patient.
func FileName(patientID string) string {
	if patientID == "" {
		return "physio_report.pdf"
	}
	return patientID + "_physio_report.pdf"
}
