package attendance

import (
	"context"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store"
)

// Keys are max+1 over the active collection and the archived copies, so a
// new record never takes an id that an undo will hand back.

func nextUserID(ctx context.Context, tx store.Tx) (int, error) {
	users, err := tx.Users().List(ctx, domain.Filter{})
	if err != nil {
		return 0, err
	}
	archived, err := tx.Archive().List(ctx, domain.Filter{})
	if err != nil {
		return 0, err
	}
	top := highest(users, func(u domain.User) int { return u.ID })
	if a := highest(archived, func(e domain.ArchiveEntry) int { return e.User.ID }); a > top {
		top = a
	}
	return top + 1, nil
}

func nextAttendanceID(ctx context.Context, tx store.Tx) (int, error) {
	records, err := tx.Attendance().List(ctx, domain.Filter{})
	if err != nil {
		return 0, err
	}
	archived, err := tx.Archive().List(ctx, domain.Filter{})
	if err != nil {
		return 0, err
	}
	top := highest(records, func(r domain.AttendanceRecord) int { return r.ID })
	for _, e := range archived {
		if a := highest(e.Attendance, func(r domain.AttendanceRecord) int { return r.ID }); a > top {
			top = a
		}
	}
	return top + 1, nil
}

func nextTodoID(ctx context.Context, tx store.Tx) (int, error) {
	todos, err := tx.Todos().List(ctx, domain.Filter{})
	if err != nil {
		return 0, err
	}
	archived, err := tx.Archive().List(ctx, domain.Filter{})
	if err != nil {
		return 0, err
	}
	top := highest(todos, func(t domain.Todo) int { return t.ID })
	for _, e := range archived {
		if a := highest(e.Todos, func(t domain.Todo) int { return t.ID }); a > top {
			top = a
		}
	}
	return top + 1, nil
}
