package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	attsvc "github.com/mufid-dev-alt/office-attendance-track-backend/internal/attendance"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, filepath.Join(t.TempDir(), "attendance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var created = time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)

func TestSQLiteUsers(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	a, err := s.Users().Insert(ctx, domain.User{Email: "a@x.io", Password: "pw", FullName: "A", Role: domain.RoleAdmin, CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, 1, a.ID)

	kept, err := s.Users().Insert(ctx, domain.User{ID: 9, Email: "b@x.io", Password: "pw", FullName: "B", Role: domain.RoleUser, CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, 9, kept.ID)

	next, err := s.Users().Insert(ctx, domain.User{Email: "c@x.io", Password: "pw", FullName: "C", Role: domain.RoleUser, CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, 10, next.ID)

	_, err = s.Users().Insert(ctx, domain.User{Email: "a@x.io", Password: "pw", FullName: "Dup", Role: domain.RoleUser, CreatedAt: created})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	got, err := s.Users().Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "B", got.FullName)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, time.UTC, got.CreatedAt.Location())

	byEmail, err := s.Users().List(ctx, domain.Filter{Email: "c@x.io"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, 10, byEmail[0].ID)

	got.FullName = "Bee"
	_, err = s.Users().Update(ctx, got)
	require.NoError(t, err)
	_, err = s.Users().Update(ctx, domain.User{ID: 77, Email: "z@x.io", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Users().Delete(ctx, 10)
	require.NoError(t, err)
	_, err = s.Users().Delete(ctx, 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteAttendance(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	u, err := s.Users().Insert(ctx, domain.User{Email: "a@x.io", Password: "pw", FullName: "A", Role: domain.RoleUser, CreatedAt: created})
	require.NoError(t, err)

	note := "offsite"
	for _, d := range []string{"2025-05-30", "2025-06-02", "2025-06-03", "2026-06-01"} {
		_, err := s.Attendance().Insert(ctx, domain.AttendanceRecord{UserID: u.ID, Status: domain.StatusPresent, Date: d, Notes: &note})
		require.NoError(t, err)
	}
	_, err = s.Attendance().Insert(ctx, domain.AttendanceRecord{UserID: u.ID, Status: domain.StatusAbsent, Date: "2025-06-02"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	june, err := s.Attendance().List(ctx, domain.Filter{Month: 6, Year: 2025})
	require.NoError(t, err)
	assert.Len(t, june, 2)

	anyJune, err := s.Attendance().List(ctx, domain.Filter{Month: 6})
	require.NoError(t, err)
	assert.Len(t, anyJune, 3)

	y2025, err := s.Attendance().List(ctx, domain.Filter{UserID: u.ID, Year: 2025})
	require.NoError(t, err)
	assert.Len(t, y2025, 3)
	require.NotNil(t, y2025[0].Notes)
	assert.Equal(t, "offsite", *y2025[0].Notes)

	rec := y2025[1]
	rec.Status = domain.StatusAbsent
	rec.Notes = nil
	_, err = s.Attendance().Update(ctx, rec)
	require.NoError(t, err)
	got, err := s.Attendance().Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	removed, err := s.Attendance().DeleteWhere(ctx, domain.Filter{UserID: u.ID})
	require.NoError(t, err)
	assert.Len(t, removed, 4)
	_, err = s.Attendance().Delete(ctx, rec.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteArchive(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	note := "late train"
	entry := domain.ArchiveEntry{
		User:       domain.User{ID: 4, Email: "d@x.io", Password: "pw", FullName: "D", Role: domain.RoleUser, CreatedAt: created},
		Attendance: []domain.AttendanceRecord{{ID: 12, UserID: 4, Status: domain.StatusAbsent, Date: "2025-06-02", Notes: &note}},
		Todos:      []domain.Todo{{ID: 3, UserID: 4, Notes: "hello", DateCreated: created}},
		DeletedAt:  created.Add(time.Hour),
	}

	_, err := s.Archive().Insert(ctx, entry)
	require.NoError(t, err)
	_, err = s.Archive().Insert(ctx, entry)
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = s.Archive().Insert(ctx, domain.ArchiveEntry{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := s.Archive().Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, entry.User.Email, got.User.Email)
	assert.True(t, entry.DeletedAt.Equal(got.DeletedAt))
	require.Len(t, got.Attendance, 1)
	assert.Equal(t, "late train", *got.Attendance[0].Notes)
	require.Len(t, got.Todos, 1)
	assert.True(t, created.Equal(got.Todos[0].DateCreated))

	all, err := s.Archive().List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.Archive().Delete(ctx, 4)
	require.NoError(t, err)
	_, err = s.Archive().Get(ctx, 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteAtomicRollsBack(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().Insert(ctx, domain.User{Email: "a@x.io", Password: "pw", FullName: "A", Role: domain.RoleUser, CreatedAt: created}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	users, err := s.Users().List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSQLiteLifecycle(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	svc := attsvc.NewService(s, attsvc.Options{
		BackfillStart: time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
		BackfillEnd:   time.Date(2025, time.June, 13, 0, 0, 0, 0, time.UTC),
		Status:        attsvc.Always(domain.StatusPresent),
	})

	out, err := svc.CreateUser(ctx, attsvc.NewUser{Email: "jane@x.io", Password: "pw", FullName: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, 10, out.AttendanceCreated)

	_, _, err = svc.MarkAttendance(ctx, attsvc.Mark{UserID: out.User.ID, Date: "2025-06-03", Status: domain.StatusAbsent})
	require.NoError(t, err)
	before, err := svc.ListAttendance(ctx, domain.Filter{UserID: out.User.ID})
	require.NoError(t, err)

	_, err = svc.DeleteUser(ctx, out.User.ID)
	require.NoError(t, err)
	left, err := svc.ListAttendance(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = svc.UndoUserDeletion(ctx, out.User.ID)
	require.NoError(t, err)
	after, err := svc.ListAttendance(ctx, domain.Filter{UserID: out.User.ID})
	require.NoError(t, err)
	assert.Equal(t, before, after)

	user, err := svc.GetUser(ctx, out.User.ID)
	require.NoError(t, err)
	assert.True(t, out.User.CreatedAt.Equal(user.CreatedAt))

	_, err = svc.UndoUserDeletion(ctx, out.User.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
