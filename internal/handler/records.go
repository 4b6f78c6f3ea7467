package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/attendance"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

// ---------- Attendance ----------

func attendanceFilter(c *gin.Context) (domain.Filter, error) {
	var f domain.Filter
	var err error
	if f.UserID, err = queryInt(c, "user_id"); err != nil {
		return f, err
	}
	if f.Month, err = queryInt(c, "month"); err != nil {
		return f, err
	}
	if f.Year, err = queryInt(c, "year"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) ListAttendance(c *gin.Context) {
	f, err := attendanceFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	rows, err := h.svc.ListAttendanceRows(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) MarkAttendance(c *gin.Context) {
	var req attendance.Mark
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	rec, created, err := h.svc.MarkAttendance(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, rec)
}

func (h *Handler) AttendanceStats(c *gin.Context) {
	f, err := attendanceFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	st, err := h.svc.AttendanceStats(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) DeleteAttendance(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	rec, err := h.svc.DeleteAttendance(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance record deleted", "record": rec})
}

// ---------- Todos ----------

type todoRequest struct {
	UserID int    `json:"user_id"`
	Notes  string `json:"notes"`
}

func (h *Handler) ListTodos(c *gin.Context) {
	userID, err := queryInt(c, "user_id")
	if err != nil {
		writeError(c, err)
		return
	}
	todos, err := h.svc.ListTodos(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

func (h *Handler) AddTodo(c *gin.Context) {
	var req todoRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	todo, err := h.svc.AddTodo(c.Request.Context(), req.UserID, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

func (h *Handler) UpdateTodo(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req todoRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	todo, err := h.svc.UpdateTodoNotes(c.Request.Context(), id, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (h *Handler) DeleteTodo(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	todo, err := h.svc.DeleteTodo(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Todo deleted", "todo": todo})
}
