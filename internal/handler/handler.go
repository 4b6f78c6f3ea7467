package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/attendance"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Config carries what the handlers need beyond the service.
type Config struct {
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	// Checks are run by /healthz, keyed by dependency name.
	Checks map[string]Check
}

type Handler struct {
	svc *attendance.Service
	cfg Config
}

func New(svc *attendance.Service, cfg Config) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/test", h.Test)
		api.POST("/login", h.LoginPost)
		api.GET("/login", h.LoginGet)
		api.GET("/logout", h.Logout)

		api.GET("/users", h.ListUsers)
		api.POST("/users", h.CreateUser)
		api.GET("/users/deleted", h.ListDeletedUsers)
		api.GET("/users/deleted/:id", h.GetDeletedUser)
		api.DELETE("/users/deleted/:id", h.PurgeUser)
		api.DELETE("/users/:id", h.DeleteUser)
		api.POST("/users/:id/undo", h.UndoUser)

		api.GET("/attendance", h.ListAttendance)
		api.POST("/attendance", h.MarkAttendance)
		api.GET("/attendance/stats", h.AttendanceStats)
		api.DELETE("/attendance/:id", h.DeleteAttendance)

		api.GET("/todos", h.ListTodos)
		api.POST("/todos", h.AddTodo)
		api.PUT("/todos/:id", h.UpdateTodo)
		api.DELETE("/todos/:id", h.DeleteTodo)
	}
}

// ---------- Service info ----------

func (h *Handler) Root(c *gin.Context) {
	ctx := c.Request.Context()
	users, err := h.svc.ListUsers(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	records, err := h.svc.ListAttendance(ctx, domain.Filter{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":                  "Office Attendance Management API",
		"version":                  "1.0.0",
		"status":                   "running",
		"total_users":              len(users),
		"total_attendance_records": len(records),
		"endpoints": gin.H{
			"login":      "/api/login",
			"users":      "/api/users",
			"attendance": "/api/attendance",
			"todos":      "/api/todos",
		},
	})
}

func (h *Handler) Test(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "API is working correctly", "status": "success"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "office-attendance-api"})
}

// Healthz runs the store check and every configured dependency check.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	if err := h.svc.Store().Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		deps["store"] = false
	} else {
		deps["store"] = true
	}
	for name, check := range h.cfg.Checks {
		healthy := check(ctx) == nil
		deps[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
		}
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "dependencies": deps})
}

// ---------- Errors and params ----------

// writeError maps domain errors to status codes. Unclassified errors are
// logged and reported without detail.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateEmail), errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "err", err, "request_id", c.GetString("request_id"))
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func pathID(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", domain.ErrValidation, c.Param("id"))
	}
	return id, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", domain.ErrValidation, key, raw)
	}
	return v, nil
}

func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
