package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

func TestTxFromContext_Empty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx, got %v", tx)
	}
}

func TestInTx_NoBeginner(t *testing.T) {
	called := false
	err := InTx(context.Background(), nil, func(ctx context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error without a connection")
	}
	if err.Error() != "no database connection in context" {
		t.Errorf("unexpected error: %v", err)
	}
	if called {
		t.Error("fn must not run without a transaction")
	}
}

func TestOperation(t *testing.T) {
	tests := map[string]string{
		"SELECT 1":                      "select",
		"\n\t  INSERT INTO patient ...": "insert",
		"update patient SET":            "update",
		"":                              "unknown",
	}
	for sql, want := range tests {
		if got := Operation(sql); got != want {
			t.Errorf("Operation(%q) = %q, want %q", sql, got, want)
		}
	}
}

func TestQueryTracer_ReportsOperation(t *testing.T) {
	var gotOp string
	var gotErr error
	tracer := NewQueryTracer(func(op string, elapsed time.Duration, err error) {
		gotOp = op
		gotErr = err
		if elapsed < 0 {
			t.Errorf("negative elapsed %v", elapsed)
		}
	})

	boom := errors.New("boom")
	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "DELETE FROM patient WHERE id = $1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: boom})

	if gotOp != "delete" {
		t.Errorf("expected delete, got %q", gotOp)
	}
	if !errors.Is(gotErr, boom) {
		t.Errorf("expected boom, got %v", gotErr)
	}
}

func TestHealthHandler(t *testing.T) {
	stats := func() PoolStats { return PoolStats{TotalConns: 2, MaxConns: 20} }

	tests := []struct {
		name   string
		ping   func(context.Context) error
		code   int
		status string
	}{
		{"healthy", func(context.Context) error { return nil }, http.StatusOK, "healthy"},
		{"unhealthy", func(context.Context) error { return errors.New("refused") }, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/db", nil), rec)

			if err := healthHandler(tt.ping, stats)(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
			var body map[string]interface{}
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body["status"] != tt.status {
				t.Errorf("expected status %s, got %v", tt.status, body["status"])
			}
			if _, ok := body["pool"]; !ok {
				t.Error("expected pool stats in body")
			}
		})
	}
}
