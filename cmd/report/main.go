package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"physioreport/internal/config"
	"physioreport/internal/logging"
	"physioreport/internal/report"
	"physioreport/internal/upload"
)

func main() {
	patientPtr := flag.String("patient", "", "Patient ID / name (optional)")
	notesPtr := flag.String("notes", "", "Session notes (optional)")
	videoPtr := flag.String("video", "", "Exercise video (MP4/AVI, optional; its content is not inspected)")
	outPtr := flag.String("out", ".", "Directory to write the PDF into")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Must(cfg.LogLevel, cfg.Environment)
	defer logger.Sync()

	if err := run(cfg, logger, *patientPtr, *notesPtr, *videoPtr, *outPtr); err != nil {
		logger.Error("report generation failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger, patientID, notes, video, outDir string) error {
	if video != "" {
		if err := upload.CheckExtension(video); err != nil {
			return err
		}
		if _, err := os.Stat(video); err != nil {
			return fmt.Errorf("video: %w", err)
		}
	}

	gen := report.NewGenerator(cfg.ScratchDir, nil, logger)
	body, err := gen.Generate(report.Session{PatientID: patientID, Notes: notes})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outDir, filepath.Base(report.FileName(patientID)))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Printf("Report saved to: %s\n", path)
	return nil
}
