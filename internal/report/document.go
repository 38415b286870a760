package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"physioreport/internal/charts"
)

const (
	Title        = "Physiotherapy Exercise Report"
	SummaryText  = "Sample analysis results: Patient performed squats/lunges. Knee/hip joint angles tracked, with vertical displacement showing good form. Consistency between frames was within optimal clinical range. No abnormal gait detected. (This is sample data)"
	FooterText   = "Report generated: Go Demo"
	imageWidthMM = 160
)

// documentDate is stamped into every PDF so repeated runs produce identical bytes.
var documentDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Assemble lays out the one-page report and deletes the images once they are embedded.
// The images are deleted on failure too.
func Assemble(session Session, imagePaths []string) ([]byte, error) {
	body, err := layout(session, imagePaths)
	if rmErr := charts.Remove(imagePaths); rmErr != nil {
		return nil, errors.Join(err, rmErr)
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func layout(session Session, imagePaths []string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(documentDate)
	pdf.SetModificationDate(documentDate)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(Title, true)
	pdf.SetCreator("physioreport", true)

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 12, Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, coreFontText("Patient ID: "+singleLine(session.PatientID)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 8, coreFontText("Session Notes: "+singleLine(session.Notes)), "", 1, "", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 6, "Summary:", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, SummaryText, "", "", false)

	pageW, _ := pdf.GetPageSize()
	x := (pageW - imageWidthMM) / 2
	for _, path := range imagePaths {
		pdf.Ln(4)
		pdf.ImageOptions(path, x, 0, imageWidthMM, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.Ln(2)
	}

	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(0, 10, FooterText, "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// unrepresentable stands in for runes the core fonts cannot show.
const unrepresentable = '?'

// coreFontText encodes s as Windows-1252, the code page of the PDF core fonts.
func coreFontText(s string) string {
	var b strings.Builder
	for _, r := range s {
		c, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			c = unrepresentable
		}
		b.WriteByte(c)
	}
	return b.String()
}

// FitsCoreFont reports whether every rune of s survives coreFontText.
func FitsCoreFont(s string) bool {
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}

// singleLine folds line breaks so text stays on its cell.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
