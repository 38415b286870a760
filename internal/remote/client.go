// Package remote talks to an external video analysis service.
//
// The service accepts the video with the session fields as a multipart POST and answers
// with JSON holding the measured angles and a URL the finished PDF can be fetched from.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"physioreport/internal/apperrors"
	"physioreport/internal/report"
)

const serviceName = "analysis service"

// consecutive failures before the breaker opens
const maxFailures = 5

// maxErrorBody bounds how much of an error response is echoed back.
const maxErrorBody = 4 << 10

// DefaultMaxReportBytes caps the downloaded PDF when New is given no limit.
const DefaultMaxReportBytes = 50 << 20

// AnalysisResponse is the JSON body returned by the service.
type AnalysisResponse struct {
	Angles json.RawMessage `json:"angles"`
	PDFURL string          `json:"pdf_url"`
}

// Client submits videos to the analysis service.
type Client struct {
	endpoint   *url.URL
	maxReport  int64
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// New creates a client for the service at endpoint. Downloaded reports larger
// than maxReportBytes are rejected; zero selects DefaultMaxReportBytes.
func New(endpoint string, timeout time.Duration, maxReportBytes int64, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid analysis endpoint %q", endpoint)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxReportBytes <= 0 {
		maxReportBytes = DefaultMaxReportBytes
	}

	c := &Client{
		endpoint:   u,
		maxReport:  maxReportBytes,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        serviceName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: serviceHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c, nil
}

// Analyze uploads the video and downloads the PDF the service produced.
func (c *Client) Analyze(ctx context.Context, session report.Session, video report.Video) (*report.Report, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.analyze(ctx, session, video)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.NewUnavailableError(serviceName).WithCause(err)
	}
	if err != nil {
		return nil, err
	}
	return result.(*report.Report), nil
}

// serviceHealthy reports whether err leaves the service's health untouched.
// Local failures and caller cancellations say nothing about the service.
func serviceHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr.Type == apperrors.ErrorTypeInternal || appErr.Type == apperrors.ErrorTypeValidation
	}
	return false
}

func (c *Client) analyze(ctx context.Context, session report.Session, video report.Video) (*report.Report, error) {
	start := time.Now()

	analysis, err := c.submit(ctx, session, video)
	if err != nil {
		return nil, err
	}
	if analysis.PDFURL == "" {
		return nil, apperrors.NewExternalError(serviceName, "response has no pdf_url")
	}

	body, err := c.download(ctx, analysis.PDFURL)
	if err != nil {
		return nil, err
	}

	c.logger.Info("remote analysis complete",
		zap.String("patientID", session.PatientID),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return &report.Report{
		FileName: report.FileName(session.PatientID),
		Body:     body,
		Angles:   analysis.Angles,
	}, nil
}

func (c *Client) submit(ctx context.Context, session report.Session, video report.Video) (*AnalysisResponse, error) {
	f, err := os.Open(video.Path)
	if err != nil {
		return nil, apperrors.NewInternalError("open uploaded video", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, session, video, f))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), pr)
	if err != nil {
		return nil, apperrors.NewInternalError("build analysis request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError(serviceName, "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var out AnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.NewExternalError(serviceName, "invalid JSON response").WithCause(err)
	}
	return &out, nil
}

func writeForm(mw *multipart.Writer, session report.Session, video report.Video, src io.Reader) error {
	if err := mw.WriteField("patient_id", session.PatientID); err != nil {
		return err
	}
	if err := mw.WriteField("notes", session.Notes); err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename=%q`, video.Name))
	h.Set("Content-Type", video.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperrors.NewExternalError(serviceName, fmt.Sprintf("invalid pdf_url %q", rawURL)).WithCause(err)
	}
	target := c.endpoint.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, apperrors.NewInternalError("build report download", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError(serviceName, "report download failed").WithCause(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	if resp.ContentLength > c.maxReport {
		return nil, c.tooLarge()
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxReport+1))
	if err != nil {
		return nil, apperrors.NewExternalError(serviceName, "report download interrupted").WithCause(err)
	}
	if int64(len(body)) > c.maxReport {
		return nil, c.tooLarge()
	}
	return body, nil
}

func (c *Client) tooLarge() error {
	return apperrors.NewExternalError(serviceName, fmt.Sprintf("report exceeds %d bytes", c.maxReport))
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := fmt.Sprintf("status %d", resp.StatusCode)
	if t := strings.TrimSpace(string(text)); t != "" {
		msg += ": " + t
	}
	return apperrors.NewExternalError(serviceName, msg)
}
