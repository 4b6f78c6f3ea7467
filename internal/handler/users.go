package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/attendance"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/auth"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

// ---------- Login ----------

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *Handler) LoginPost(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	h.login(c, req)
}

func (h *Handler) LoginGet(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	h.login(c, req)
}

func (h *Handler) login(c *gin.Context, req loginRequest) {
	user, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, attendance.ErrInvalidCredentials) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	tok, err := auth.Issue(user.ID, string(user.Role), h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		writeError(c, fmt.Errorf("issue token: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Login successful",
		"user":       user.Public(),
		"token":      tok.AccessToken,
		"expires_at": tok.ExpiresAt.Unix(),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// ---------- Users ----------

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]domain.User, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req attendance.NewUser
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	req.Role = domain.Role(strings.ToLower(string(req.Role)))
	created, err := h.svc.CreateUser(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":                    true,
		"message":                    "User created successfully",
		"user":                       created.User.Public(),
		"attendance_records_created": created.AttendanceCreated,
		"todos_created":              created.TodosCreated,
	})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	entry, err := h.svc.DeleteUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	logActor(c, "user deleted", id)
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"message":            fmt.Sprintf("User %s deleted successfully", entry.User.FullName),
		"deleted_user":       entry.User.Public(),
		"attendance_removed": len(entry.Attendance),
		"todos_removed":      len(entry.Todos),
		"undo_available":     true,
	})
}

func (h *Handler) UndoUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	entry, err := h.svc.UndoUserDeletion(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	logActor(c, "user restored", id)
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"message":             fmt.Sprintf("User %s restored successfully", entry.User.FullName),
		"restored_user":       entry.User.Public(),
		"attendance_restored": len(entry.Attendance),
		"todos_restored":      len(entry.Todos),
	})
}

// publicEntry strips the password from an archived user.
func publicEntry(e domain.ArchiveEntry) domain.ArchiveEntry {
	e.User = e.User.Public()
	return e
}

func (h *Handler) ListDeletedUsers(c *gin.Context) {
	entries, err := h.svc.ListArchive(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]domain.ArchiveEntry, len(entries))
	for i, e := range entries {
		out[i] = publicEntry(e)
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetDeletedUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	entry, err := h.svc.GetArchiveEntry(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, publicEntry(entry))
}

func (h *Handler) PurgeUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	entry, err := h.svc.PermanentlyPurgeUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	logActor(c, "user purged", id)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("User %s permanently removed", entry.User.FullName),
		"user":    entry.User.Public(),
	})
}

func logActor(c *gin.Context, msg string, userID int) {
	args := []any{"user_id", userID, "request_id", c.GetString("request_id")}
	if actor, ok := auth.Actor(c); ok {
		args = append(args, "actor", actor.UserID)
	}
	slog.InfoContext(c.Request.Context(), msg, args...)
}
