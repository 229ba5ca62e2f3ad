package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/PabloGalante/minidxo/internal/observability"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := observability.RegisterMetrics(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	var already prometheus.AlreadyRegisteredError
	if err := observability.RegisterMetrics(reg); !errors.As(err, &already) {
		t.Errorf("expected AlreadyRegisteredError, got %v", err)
	}
}

func TestEngineCall(t *testing.T) {
	ok := observability.EngineCallsTotal.WithLabelValues("test-caller", "ok")
	failed := observability.EngineCallsTotal.WithLabelValues("test-caller", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	observability.EngineCall("test-caller", nil)
	observability.EngineCall("test-caller", errors.New("boom"))
	observability.EngineCall("test-caller", nil)

	if got := testutil.ToFloat64(ok) - okBefore; got != 2 {
		t.Errorf("expected 2 ok calls, got %v", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 1 {
		t.Errorf("expected 1 failed call, got %v", got)
	}
}

func TestLoggerFromContextTagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	observability.InitWithWriter(&buf, "debug")
	t.Cleanup(func() { observability.InitWithWriter(&bytes.Buffer{}, "info") })

	ctx := observability.WithRequestID(context.Background(), "req-42")
	if got := observability.RequestIDFromContext(ctx); got != "req-42" {
		t.Fatalf("unexpected request id %q", got)
	}
	observability.LoggerFromContext(ctx).Debug("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["request_id"] != "req-42" {
		t.Errorf("expected request_id field, got %v", line)
	}
}
