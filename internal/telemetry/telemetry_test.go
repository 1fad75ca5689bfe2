package telemetry

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	req := require.New(t)

	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	req.NoError(err)
	logger.Info("hidden")
	logger.Warn("shown", "channel", "c1")
	req.NotContains(buf.String(), "hidden")
	req.Contains(buf.String(), `"channel":"c1"`)

	_, err = newLogger(&buf, "loud", "text")
	req.Error(err)
	_, err = newLogger(&buf, "info", "xml")
	req.Error(err)
}

func TestMetrics(t *testing.T) {
	req := require.New(t)
	m := NewMetrics()

	m.ObserveRequest("GET /v1/channels", http.MethodGet, 200, 5*time.Millisecond)
	m.ObserveUpload("ok", 128)
	m.ObserveUpload("PAYLOAD_MISMATCH", 64)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	req.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	req.Contains(body, `xchat_http_requests_total{method="GET",route="GET /v1/channels",status="200"} 1`)
	req.Contains(body, "xchat_upload_bytes_total 128")
	req.Contains(body, `xchat_uploads_total{result="PAYLOAD_MISMATCH"} 1`)
}

func TestReporterWithoutDSN(t *testing.T) {
	r, err := NewReporter("", "test")
	require.NoError(t, err)
	r.ReportError(context.Background(), errors.New("ignored"), nil)
	r.Flush(time.Millisecond)
}
