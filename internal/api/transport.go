package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// loggingTransport tags every outgoing request with an X-Request-ID and logs
// the exchange at debug level.
type loggingTransport struct {
	Base   http.RoundTripper
	Logger *zap.Logger
}

var _ http.RoundTripper = (*loggingTransport)(nil)

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t0 := time.Now()

	id := req.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.New().String()
		req = req.Clone(req.Context())
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := t.Base.RoundTrip(req)

	fields := []zap.Field{
		zap.String("request_id", id),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Duration("elapsed", time.Since(t0)),
	}
	if err != nil {
		t.Logger.Debug("http request failed", append(fields, zap.Error(err))...)
		return resp, err
	}
	t.Logger.Debug("http request", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
