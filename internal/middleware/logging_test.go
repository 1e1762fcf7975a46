package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name       string
		handler    echo.HandlerFunc
		wantStatus float64
		wantLevel  string
	}{
		{
			name:       "success",
			handler:    func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
			wantStatus: 200,
			wantLevel:  "INFO",
		},
		{
			name:       "client error",
			handler:    func(c echo.Context) error { return c.String(http.StatusBadRequest, "URL is required") },
			wantStatus: 400,
			wantLevel:  "WARN",
		},
		{
			name:       "returned HTTPError",
			handler:    func(c echo.Context) error { return echo.NewHTTPError(http.StatusServiceUnavailable) },
			wantStatus: 503,
			wantLevel:  "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := echo.New()
			e.Use(RequestLogger(captureLogger(&buf)))
			e.GET("/api/proxy/fetch", tt.handler)

			rec := serve(e, http.MethodGet, "/api/proxy/fetch?url=secret.example")
			if rec.Code != int(tt.wantStatus) {
				t.Errorf("response status = %d, want %v", rec.Code, tt.wantStatus)
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
			}
			if entry["status"] != tt.wantStatus {
				t.Errorf("logged status = %v, want %v", entry["status"], tt.wantStatus)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %v", entry["level"], tt.wantLevel)
			}
			if entry["route"] != "/api/proxy/fetch" {
				t.Errorf("route = %v, want /api/proxy/fetch", entry["route"])
			}
			if strings.Contains(buf.String(), "secret.example") {
				t.Error("query string must not be logged")
			}
		})
	}
}
