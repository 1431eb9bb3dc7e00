package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMetrics_MiddlewareCountsByRoute(t *testing.T) {
	m := NewMetrics("test")
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/pacientes/:id", func(c echo.Context) error {
		if c.Param("id") == "9" {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return c.String(http.StatusOK, "ok")
	})

	for _, path := range []string{"/pacientes/1", "/pacientes/2", "/pacientes/9"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/pacientes/:id", "200")); got != 2 {
		t.Errorf("expected 2 successful requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/pacientes/:id", "404")); got != 1 {
		t.Errorf("expected 1 not-found request, got %v", got)
	}
	if got := testutil.ToFloat64(m.InFlight); got != 0 {
		t.Errorf("expected no in-flight requests, got %v", got)
	}
}

func TestMetrics_PatientMutationAndQueries(t *testing.T) {
	m := NewMetrics("test")

	m.PatientMutation("create")
	m.PatientMutation("create")
	m.PatientMutation("delete")
	m.ObserveQuery("select", 3*time.Millisecond, nil)
	m.ObserveQuery("insert", time.Millisecond, errors.New("unique violation"))

	if got := testutil.ToFloat64(m.PatientMutations.WithLabelValues("create")); got != 2 {
		t.Errorf("expected 2 creates, got %v", got)
	}
	if got := testutil.CollectAndCount(m.DBQueryDuration); got != 2 {
		t.Errorf("expected 2 query series, got %d", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("pacientes")
	m.PatientMutation("update")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `pacientes_patients_mutations_total{op="update"} 1`) {
		t.Errorf("expected mutation counter in exposition, got:\n%s", body)
	}
}

func TestTracing_RecordsServerSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	e := echo.New()
	e.Use(Tracing(tp))
	e.GET("/pacientes/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pacientes/3", nil))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "GET /pacientes/:id" {
		t.Errorf("unexpected span name %q", span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", span.Status().Code)
	}
}

func TestInitTracing_Disabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), TracingConfig{ServiceName: "pacientes"})
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	defer span.End()
	if span.SpanContext().IsSampled() {
		t.Error("expected spans to be dropped when tracing is disabled")
	}
}
