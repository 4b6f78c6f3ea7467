package attendance

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store"
)

// Mark is the input of MarkAttendance.
type Mark struct {
	UserID int           `json:"user_id"`
	Date   string        `json:"date"`
	Status domain.Status `json:"status"`
	Notes  *string       `json:"notes,omitempty"`
}

func (m Mark) validate() error {
	if m.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	if _, err := time.Parse(domain.DateLayout, m.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", domain.ErrValidation, m.Date)
	}
	if !m.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, m.Status)
	}
	return nil
}

// MarkAttendance upserts the record for (user, date). An existing record
// keeps its id and has status and notes overwritten. created reports
// whether a new record was inserted.
func (s *Service) MarkAttendance(ctx context.Context, m Mark) (rec domain.AttendanceRecord, created bool, err error) {
	defer func() { s.observe("mark_attendance", err) }()

	if err := m.validate(); err != nil {
		return domain.AttendanceRecord{}, false, err
	}
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().Get(ctx, m.UserID); err != nil {
			return err
		}
		existing, err := tx.Attendance().List(ctx, domain.Filter{UserID: m.UserID, Date: m.Date})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			upd := existing[0]
			upd.Status = m.Status
			upd.Notes = m.Notes
			rec, err = tx.Attendance().Update(ctx, upd)
			created = false
			return err
		}
		id, err := nextAttendanceID(ctx, tx)
		if err != nil {
			return err
		}
		rec, err = tx.Attendance().Insert(ctx, domain.AttendanceRecord{
			ID:     id,
			UserID: m.UserID,
			Status: m.Status,
			Date:   m.Date,
			Notes:  m.Notes,
		})
		created = true
		return err
	})
	if err != nil {
		return domain.AttendanceRecord{}, false, err
	}
	s.publish(ctx, EventAttendanceMarked, rec)
	return rec, created, nil
}

// DeleteAttendance removes one attendance record.
func (s *Service) DeleteAttendance(ctx context.Context, id int) (rec domain.AttendanceRecord, err error) {
	defer func() { s.observe("delete_attendance", err) }()

	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		rec, err = tx.Attendance().Delete(ctx, id)
		return err
	})
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	s.publish(ctx, EventAttendanceDeleted, rec)
	return rec, nil
}

// AttendanceRow is an attendance record with the owner's name and email.
type AttendanceRow struct {
	domain.AttendanceRecord
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// ListAttendance returns the records matching f ordered by id.
func (s *Service) ListAttendance(ctx context.Context, f domain.Filter) ([]domain.AttendanceRecord, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	return s.store.Attendance().List(ctx, f)
}

// ListAttendanceRows is ListAttendance joined with the active users.
func (s *Service) ListAttendanceRows(ctx context.Context, f domain.Filter) ([]AttendanceRow, error) {
	records, err := s.ListAttendance(ctx, f)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users().List(ctx, domain.Filter{UserID: f.UserID})
	if err != nil {
		return nil, err
	}
	byID := make(map[int]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	rows := make([]AttendanceRow, len(records))
	for i, r := range records {
		rows[i] = AttendanceRow{AttendanceRecord: r}
		if u, ok := byID[r.UserID]; ok {
			rows[i].UserName = u.FullName
			rows[i].UserEmail = u.Email
		}
	}
	return rows, nil
}

// AttendanceStats counts the records matching f. Percentages are rounded
// to two decimals and are zero for an empty set.
func (s *Service) AttendanceStats(ctx context.Context, f domain.Filter) (domain.Stats, error) {
	records, err := s.ListAttendance(ctx, f)
	if err != nil {
		return domain.Stats{}, err
	}
	return Summarize(records), nil
}

// Summarize computes Stats over records.
func Summarize(records []domain.AttendanceRecord) domain.Stats {
	st := domain.Stats{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case domain.StatusPresent:
			st.Present++
		case domain.StatusAbsent:
			st.Absent++
		}
	}
	if st.Total > 0 {
		st.PresentPercentage = round2(float64(st.Present) * 100 / float64(st.Total))
		st.AbsentPercentage = round2(float64(st.Absent) * 100 / float64(st.Total))
	}
	return st
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func validateFilter(f domain.Filter) error {
	if f.Month < 0 || f.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", domain.ErrValidation, f.Month)
	}
	if f.Year < 0 || f.Year > 9999 {
		return fmt.Errorf("%w: year %d out of range", domain.ErrValidation, f.Year)
	}
	return nil
}

// ListTodos returns todos ordered by id; userID 0 lists everyone's.
func (s *Service) ListTodos(ctx context.Context, userID int) ([]domain.Todo, error) {
	return s.store.Todos().List(ctx, domain.Filter{UserID: userID})
}

// AddTodo creates a todo for an active user.
func (s *Service) AddTodo(ctx context.Context, userID int, notes string) (todo domain.Todo, err error) {
	defer func() { s.observe("add_todo", err) }()

	if strings.TrimSpace(notes) == "" {
		return domain.Todo{}, fmt.Errorf("%w: notes are required", domain.ErrValidation)
	}
	now := s.now()
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().Get(ctx, userID); err != nil {
			return err
		}
		id, err := nextTodoID(ctx, tx)
		if err != nil {
			return err
		}
		todo, err = tx.Todos().Insert(ctx, domain.Todo{ID: id, UserID: userID, Notes: notes, DateCreated: now})
		return err
	})
	if err != nil {
		return domain.Todo{}, err
	}
	s.publish(ctx, EventTodoCreated, todo)
	return todo, nil
}

// UpdateTodoNotes replaces the notes of a todo.
func (s *Service) UpdateTodoNotes(ctx context.Context, id int, notes string) (todo domain.Todo, err error) {
	defer func() { s.observe("update_todo", err) }()

	if strings.TrimSpace(notes) == "" {
		return domain.Todo{}, fmt.Errorf("%w: notes are required", domain.ErrValidation)
	}
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		cur, err := tx.Todos().Get(ctx, id)
		if err != nil {
			return err
		}
		cur.Notes = notes
		todo, err = tx.Todos().Update(ctx, cur)
		return err
	})
	if err != nil {
		return domain.Todo{}, err
	}
	s.publish(ctx, EventTodoUpdated, todo)
	return todo, nil
}

// DeleteTodo removes a todo.
func (s *Service) DeleteTodo(ctx context.Context, id int) (todo domain.Todo, err error) {
	defer func() { s.observe("delete_todo", err) }()

	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		todo, err = tx.Todos().Delete(ctx, id)
		return err
	})
	if err != nil {
		return domain.Todo{}, err
	}
	s.publish(ctx, EventTodoDeleted, todo)
	return todo, nil
}
