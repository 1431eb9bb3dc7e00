package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/pacientes/internal/platform/auth"
)

// AuditEntry describes one access to patient data.
type AuditEntry struct {
	RequestID string
	UserID    string
	Action    string
	PatientID string
	Method    string
	Route     string
	RemoteIP  string
	Status    int
}

// Audit emits a "patient_access" record for every request under one of the
// given path prefixes, after the handler ran. Query strings are never logged
// because search terms are patient names.
func Audit(logger zerolog.Logger, prefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !hasAnyPrefix(c.Request().URL.Path, prefixes) {
				return next(c)
			}

			err := next(c)

			entry := buildAuditEntry(c, err)
			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("action", entry.Action).
				Str("patient_id", entry.PatientID).
				Str("method", entry.Method).
				Str("route", entry.Route).
				Str("remote_ip", entry.RemoteIP).
				Int("status", entry.Status).
				Msg("patient_access")

			return err
		}
	}
}

func buildAuditEntry(c echo.Context, err error) AuditEntry {
	req := c.Request()
	e := AuditEntry{
		UserID:    auth.UserIDFromContext(req.Context()),
		Action:    auditAction(req.Method, c.Param("id") != "", c.QueryParam("nome") != ""),
		PatientID: c.Param("id"),
		Method:    req.Method,
		Route:     c.Path(),
		RemoteIP:  c.RealIP(),
		Status:    c.Response().Status,
	}
	if err != nil {
		e.Status = statusOf(err)
	}
	e.RequestID, _ = c.Get("request_id").(string)
	return e
}

func auditAction(method string, hasID, hasSearch bool) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	switch {
	case hasID:
		return "read"
	case hasSearch:
		return "search"
	default:
		return "list"
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
