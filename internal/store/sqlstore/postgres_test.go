package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "pgx"), Postgres), mock
}

var lockSQL = regexp.QuoteMeta("SELECT pg_advisory_xact_lock(720415)")

func TestPostgresAtomicTakesAdvisoryLock(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	when := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, email, password, full_name, role, created_at FROM users`).
		WithArgs("a@x.io").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(3, "a@x.io", "pw", "A", "user", when))
	mock.ExpectCommit()

	var found []domain.User
	err := s.Atomic(ctx, func(tx store.Tx) error {
		var err error
		found, err = tx.Users().List(ctx, domain.Filter{Email: "a@x.io"})
		return err
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 3, found[0].ID)
	assert.Equal(t, domain.RoleUser, found[0].Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAtomicRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Atomic(context.Background(), func(store.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertMapsUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_unique"})
	mock.ExpectRollback()

	_, err := s.Users().Insert(ctx, domain.User{ID: 2, Email: "a@x.io", Password: "pw", FullName: "A", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertAssignsNextID(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(id), 0) + 1 FROM todos")).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(8))
	mock.ExpectExec(`INSERT INTO todos`).
		WithArgs(8, 3, "call IT", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectCommit()

	todo, err := s.Todos().Insert(ctx, domain.Todo{UserID: 3, Notes: "call IT", DateCreated: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 8, todo.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMonthFilter(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, user_id, status, date, notes FROM attendance WHERE (.+)user_id = \$1(.+)date LIKE \$2(.+)ORDER BY id`).
		WithArgs(5, "2025-06-%").
		WillReturnRows(sqlmock.NewRows(attendanceColumns).AddRow(1, 5, "present", "2025-06-02", nil))

	rows, err := s.Attendance().List(context.Background(), domain.Filter{UserID: 5, Month: 6, Year: 2025})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Notes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPingUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	s := New(sqlx.NewDb(db, "pgx"), Postgres)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.ErrorIs(t, s.Ping(context.Background()), domain.ErrStorageUnavailable)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&pgconn.PgError{Code: "23505", ConstraintName: "users_email_unique"}, domain.ErrDuplicateEmail},
		{&pgconn.PgError{Code: "23505", ConstraintName: "attendance_user_date_unique"}, domain.ErrConflict},
		{fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"}), domain.ErrConflict},
		{errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), domain.ErrDuplicateEmail},
		{errors.New("constraint failed: UNIQUE constraint failed: attendance.user_id, attendance.date (2067)"), domain.ErrConflict},
		{driver.ErrBadConn, domain.ErrStorageUnavailable},
		{&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, domain.ErrStorageUnavailable},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, classify(tc.err, "op"), tc.want, tc.err.Error())
	}

	plain := classify(&pgconn.PgError{Code: "23503"}, "op")
	for _, sentinel := range []error{domain.ErrConflict, domain.ErrDuplicateEmail, domain.ErrStorageUnavailable} {
		assert.NotErrorIs(t, plain, sentinel)
	}
	assert.NoError(t, classify(nil, "op"))
}
