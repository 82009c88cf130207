package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"warehouse/internal/domain"
	"warehouse/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type listResponse struct {
	Items any   `json:"items"`
	Count int   `json:"count"`
	Total int64 `json:"total"`
	Page  int   `json:"page,omitempty"`
	Pages int64 `json:"pages,omitempty"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// writeError maps service errors onto the wire. Messages of invalid-argument
// errors are caller-facing; everything else gets a fixed message.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, domain.ErrConflict):
		writeErrorCode(c, http.StatusConflict, "CONFLICT", "already exists")
	case errors.Is(err, domain.ErrForbidden):
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
	case errors.Is(err, domain.ErrUnavailable):
		s.logger.Error("backing store unavailable", zap.String("route", c.FullPath()), zap.Error(err))
		writeErrorCode(c, http.StatusServiceUnavailable, "UNAVAILABLE", "service unavailable")
	default:
		s.logger.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// bindJSON decodes the body into dst, answering 400 when the body is not JSON
// or fails its binding rules.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldError{Field: jsonFieldName(fe), Rule: fe.Tag(), Param: fe.Param()})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Code:    "VALIDATION_FAILED",
			Message: "request validation failed",
			Details: map[string]any{"fields": fields},
		})
		return false
	}
	writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
	return false
}

func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// parsePage reads page and limit query parameters. Absent values take the
// defaults; present ones must be in range.
func parsePage(c *gin.Context) (usecase.Page, bool) {
	var page usecase.Page
	if raw := strings.TrimSpace(c.Query("page")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "page must be a positive integer")
			return usecase.Page{}, false
		}
		page.Page = v
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > usecase.MaxPageLimit {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "limit must be between 1 and 100")
			return usecase.Page{}, false
		}
		page.Limit = v
	}
	return page.Normalize(), true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Warehouse API",
		"version":   s.cfg.Version,
		"status":    "running",
		"store":     s.storeMode(),
		"timestamp": formatTime(time.Now()),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.store.Enabled() {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mode": s.storeMode()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"mode":   s.storeMode(),
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) storeMode() string {
	if s.store.Enabled() {
		return "db"
	}
	return "no-db"
}
