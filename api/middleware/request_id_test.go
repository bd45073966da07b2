package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
)

func TestRequestIDPropagatesCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	handler := RequestID(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logg.Info(r.Context(), "handled")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/sales", nil)
	req.Header.Set("X-Request-Id", "req-7")
	req.Header.Set("X-Transaction-Id", "txn-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-7" {
		t.Fatalf("request id not echoed: %q", got)
	}
	line := buf.String()
	if !strings.Contains(line, `"request_id":"req-7"`) {
		t.Fatalf("request id missing from log context: %s", line)
	}
	if !strings.Contains(line, `"transaction_id":"txn-42"`) {
		t.Fatalf("transaction id missing from log context: %s", line)
	}
}

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &bytes.Buffer{}})

	handler := RequestID(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("a request without a correlation id must be assigned one")
	}
}
