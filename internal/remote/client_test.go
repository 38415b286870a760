package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physioreport/internal/apperrors"
	"physioreport/internal/report"
)

var fakePDF = []byte("%PDF-1.3 fake report")

func writeVideo(t *testing.T) report.Video {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload-1.mp4")
	require.NoError(t, os.WriteFile(path, []byte("frames"), 0o644))
	return report.Video{Name: "squat.mp4", ContentType: "video/mp4", Path: path, Size: 6}
}

func analysisServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/process_video/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "P001", r.FormValue("patient_id"))
		assert.Equal(t, "felt fine", r.FormValue("notes"))

		f, hdr, err := r.FormFile("video")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "squat.mp4", hdr.Filename)
		assert.Equal(t, "frames", string(data))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"angles":  map[string]float64{"right_knee": 92.5},
			"pdf_url": "/reports/abc.pdf",
		})
	})
	mux.HandleFunc("/reports/abc.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(fakePDF)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	_, err := New("localhost:8000", time.Second, 0, nil)
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	srv := analysisServer(t)
	c, err := New(srv.URL+"/process_video/", 5*time.Second, 0, nil)
	require.NoError(t, err)

	rep, err := c.Analyze(context.Background(), report.Session{PatientID: "P001", Notes: "felt fine"}, writeVideo(t))
	require.NoError(t, err)

	assert.Equal(t, "P001_physio_report.pdf", rep.FileName)
	assert.Equal(t, fakePDF, rep.Body)
	assert.JSONEq(t, `{"right_knee": 92.5}`, string(rep.Angles))
}

func TestAnalyzeServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		http.Error(w, "pose model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/process_video/", 5*time.Second, 0, nil)
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), report.Session{}, writeVideo(t))
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeExternal, appErr.Type)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
	assert.Contains(t, appErr.Message, "status 500: pose model not loaded")
}

func TestAnalyzeMissingPDFURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Write([]byte(`{"angles": {}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, 5*time.Second, 0, nil)
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), report.Session{}, writeVideo(t))
	assert.Contains(t, err.Error(), "no pdf_url")
}

func TestAnalyzeOpensBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL, 5*time.Second, 0, nil)
	require.NoError(t, err)
	video := writeVideo(t)

	for i := 0; i < maxFailures; i++ {
		_, err := c.Analyze(context.Background(), report.Session{}, video)
		require.Error(t, err)
	}

	_, err = c.Analyze(context.Background(), report.Session{}, video)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus)
	assert.Equal(t, int32(maxFailures), calls.Load())
}

func TestAnalyzeMissingVideoFile(t *testing.T) {
	c, err := New("http://127.0.0.1:1/process_video/", time.Second, 0, nil)
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), report.Session{}, report.Video{Path: filepath.Join(t.TempDir(), "gone.mp4")})
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeInternal, appErr.Type)
}

func TestAnalyzeRejectsOversizedReport(t *testing.T) {
	srv := analysisServer(t)
	c, err := New(srv.URL+"/process_video/", 5*time.Second, int64(len(fakePDF)-1), nil)
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), report.Session{PatientID: "P001", Notes: "felt fine"}, writeVideo(t))
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeExternal, appErr.Type)
	assert.Contains(t, appErr.Message, "report exceeds")
}

func TestAnalyzeAcceptsReportAtLimit(t *testing.T) {
	srv := analysisServer(t)
	c, err := New(srv.URL+"/process_video/", 5*time.Second, int64(len(fakePDF)), nil)
	require.NoError(t, err)

	rep, err := c.Analyze(context.Background(), report.Session{PatientID: "P001", Notes: "felt fine"}, writeVideo(t))
	require.NoError(t, err)
	assert.Equal(t, fakePDF, rep.Body)
}

func TestLocalFailuresDoNotOpenBreaker(t *testing.T) {
	srv := analysisServer(t)
	c, err := New(srv.URL+"/process_video/", 5*time.Second, 0, nil)
	require.NoError(t, err)

	missing := report.Video{Path: filepath.Join(t.TempDir(), "gone.mp4")}
	for i := 0; i < maxFailures+1; i++ {
		_, err := c.Analyze(context.Background(), report.Session{}, missing)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.GetAppError(err).Type)
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	video := writeVideo(t)
	for i := 0; i < maxFailures+1; i++ {
		_, err := c.Analyze(canceled, report.Session{PatientID: "P001", Notes: "felt fine"}, video)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	}

	rep, err := c.Analyze(context.Background(), report.Session{PatientID: "P001", Notes: "felt fine"}, video)
	require.NoError(t, err)
	assert.Equal(t, fakePDF, rep.Body)
}

func TestServiceHealthy(t *testing.T) {
	assert.True(t, serviceHealthy(nil))
	assert.True(t, serviceHealthy(context.Canceled))
	assert.True(t, serviceHealthy(apperrors.NewInternalError("open uploaded video", os.ErrNotExist)))
	assert.True(t, serviceHealthy(apperrors.NewExternalError(serviceName, "request failed").WithCause(context.Canceled)))
	assert.False(t, serviceHealthy(apperrors.NewExternalError(serviceName, "status 502")))
	assert.False(t, serviceHealthy(context.DeadlineExceeded))
}
