package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"physioreport/internal/charts"
	"physioreport/internal/sample"
)

// Generator produces the demo report. It never looks at the uploaded video.
type Generator struct {
	renderer   *charts.Renderer
	scratchDir string
	logger     *zap.Logger
}

// NewGenerator creates a generator that renders charts under scratchDir
func NewGenerator(scratchDir string, renderer *charts.Renderer, logger *zap.Logger) *Generator {
	if renderer == nil {
		renderer = charts.NewRenderer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{renderer: renderer, scratchDir: scratchDir, logger: logger}
}

// Analyze builds the demo report for session. video is accepted for interface parity and ignored.
func (g *Generator) Analyze(ctx context.Context, session Session, video Video) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !FitsCoreFont(session.PatientID) || !FitsCoreFont(session.Notes) {
		g.logger.Warn("session text has characters outside Windows-1252; they print as '?'",
			zap.String("patientID", session.PatientID),
		)
	}
	g.logger.Debug("generating demo report",
		zap.String("patientID", session.PatientID),
		zap.String("video", video.Name),
		zap.Int64("videoBytes", video.Size),
	)

	body, err := g.Generate(session)
	if err != nil {
		return nil, err
	}
	return &Report{FileName: FileName(session.PatientID), Body: body}, nil
}

// Generate renders the sample charts and assembles the PDF in a private scratch directory.
func (g *Generator) Generate(session Session) (body []byte, err error) {
	start := time.Now()

	dir := filepath.Join(g.scratchDir, "physio-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(dir); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("remove scratch dir: %w", rmErr))
			body = nil
		}
	}()

	figs := DemoFigures(sample.Generate())
	// fpdf orders embedded images by pixel width, so equal widths would leave the order to map iteration
	for i := range figs {
		figs[i].Width = g.renderer.Width + i
	}

	paths, err := g.renderer.RenderAll(figs, dir)
	if err != nil {
		return nil, fmt.Errorf("render charts: %w", err)
	}

	body, err = Assemble(session, paths)
	if err != nil {
		return nil, fmt.Errorf("assemble report: %w", err)
	}

	g.logger.Debug("report assembled",
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return body, nil
}
