package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store"
)

// Dialect captures what differs between the SQL backends.
type Dialect struct {
	Name        string
	driver      string
	placeholder sq.PlaceholderFormat
	schema      []string
	// lock runs first in every transaction; empty when the backend
	// serialises writers on its own.
	lock string
}

// lockKey identifies the advisory lock shared by every writer process.
const lockKey = 720_415

var (
	Postgres = Dialect{
		Name:        "postgres",
		driver:      "pgx",
		placeholder: sq.Dollar,
		schema:      postgresSchema,
		lock:        fmt.Sprintf("SELECT pg_advisory_xact_lock(%d)", lockKey),
	}
	SQLite = Dialect{
		Name:        "sqlite",
		driver:      "sqlite",
		placeholder: sq.Question,
		schema:      sqliteSchema,
	}
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          INTEGER PRIMARY KEY,
		email       TEXT NOT NULL,
		password    TEXT NOT NULL,
		full_name   TEXT NOT NULL,
		role        TEXT NOT NULL CHECK (role IN ('admin', 'user')),
		created_at  TIMESTAMPTZ NOT NULL,
		CONSTRAINT users_email_unique UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id       INTEGER PRIMARY KEY,
		user_id  INTEGER NOT NULL REFERENCES users(id),
		status   TEXT NOT NULL CHECK (status IN ('present', 'absent')),
		date     TEXT NOT NULL,
		notes    TEXT,
		CONSTRAINT attendance_user_date_unique UNIQUE (user_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id            INTEGER PRIMARY KEY,
		user_id       INTEGER NOT NULL REFERENCES users(id),
		notes         TEXT NOT NULL,
		date_created  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_todos_user ON todos(user_id)`,
	`CREATE TABLE IF NOT EXISTS deleted_users (
		user_id     INTEGER PRIMARY KEY,
		payload     JSONB NOT NULL,
		deleted_at  TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          INTEGER PRIMARY KEY,
		email       TEXT NOT NULL,
		password    TEXT NOT NULL,
		full_name   TEXT NOT NULL,
		role        TEXT NOT NULL CHECK (role IN ('admin', 'user')),
		created_at  DATETIME NOT NULL,
		CONSTRAINT users_email_unique UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id       INTEGER PRIMARY KEY,
		user_id  INTEGER NOT NULL REFERENCES users(id),
		status   TEXT NOT NULL CHECK (status IN ('present', 'absent')),
		date     TEXT NOT NULL,
		notes    TEXT,
		CONSTRAINT attendance_user_date_unique UNIQUE (user_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id            INTEGER PRIMARY KEY,
		user_id       INTEGER NOT NULL REFERENCES users(id),
		notes         TEXT NOT NULL,
		date_created  DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_todos_user ON todos(user_id)`,
	`CREATE TABLE IF NOT EXISTS deleted_users (
		user_id     INTEGER PRIMARY KEY,
		payload     TEXT NOT NULL,
		deleted_at  DATETIME NOT NULL
	)`,
}

// Store is a SQL-backed store.Store.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

// Open connects, applies the schema and returns a ready store.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	if d.driver == SQLite.driver {
		dsn = sqliteDSN(dsn)
	}
	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	if d.driver == SQLite.driver {
		// One connection makes every transaction exclusive.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	s := New(db, d)
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection without touching the schema.
func New(db *sqlx.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return classify(err, "migrate")
		}
	}
	return nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w: %v", s.dialect.Name, domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Atomic runs fn inside one transaction. On Postgres the transaction first
// takes an advisory lock so that writers in other processes queue behind it.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if s.dialect.lock != "" {
		if _, err := tx.ExecContext(ctx, s.dialect.lock); err != nil {
			return classify(err, "acquire writer lock")
		}
	}
	if err := fn(s.view(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err, "commit transaction")
	}
	return nil
}

func (s *Store) Users() store.Collection[domain.User] {
	return store.WriteThrough(s.view(s.db).Users(), s.Atomic, store.PickUsers)
}

func (s *Store) Attendance() store.Collection[domain.AttendanceRecord] {
	return store.WriteThrough(s.view(s.db).Attendance(), s.Atomic, store.PickAttendance)
}

func (s *Store) Todos() store.Collection[domain.Todo] {
	return store.WriteThrough(s.view(s.db).Todos(), s.Atomic, store.PickTodos)
}

func (s *Store) Archive() store.Collection[domain.ArchiveEntry] {
	return store.WriteThrough(s.view(s.db).Archive(), s.Atomic, store.PickArchive)
}

func (s *Store) view(q sqlx.ExtContext) txView {
	return txView{q: q, sb: sq.StatementBuilder.PlaceholderFormat(s.dialect.placeholder)}
}

// txView binds the collections to one queryer, either the pool or a tx.
type txView struct {
	q  sqlx.ExtContext
	sb sq.StatementBuilderType
}

func (v txView) Users() store.Collection[domain.User] { return users(v) }

func (v txView) Attendance() store.Collection[domain.AttendanceRecord] { return attendance(v) }

func (v txView) Todos() store.Collection[domain.Todo] { return todos(v) }

func (v txView) Archive() store.Collection[domain.ArchiveEntry] { return archive(v) }

func (v txView) exec(ctx context.Context, b sq.Sqlizer, op string) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}
	res, err := v.q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, op)
	}
	return res, nil
}

func (v txView) selectInto(ctx context.Context, dest any, b sq.Sqlizer, op string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	if err := sqlx.SelectContext(ctx, v.q, dest, query, args...); err != nil {
		return classify(err, op)
	}
	return nil
}

// nextID returns max(id)+1 for table, or 1 when it is empty.
func (v txView) nextID(ctx context.Context, table, column string) (int, error) {
	query, args, err := v.sb.Select("COALESCE(MAX(" + column + "), 0) + 1").From(table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build next id: %w", err)
	}
	var id int
	if err := sqlx.GetContext(ctx, v.q, &id, query, args...); err != nil {
		return 0, classify(err, "next "+table+" id")
	}
	return id, nil
}

// notFound builds the error returned when a keyed row is missing.
func notFound(what string, key int) error {
	return fmt.Errorf("%s %d: %w", what, key, domain.ErrNotFound)
}

// classify maps driver errors onto domain errors.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if c, ok := uniqueViolation(err); ok {
		if strings.Contains(c, "email") {
			return fmt.Errorf("%s: %w", op, domain.ErrDuplicateEmail)
		}
		return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, c)
	}
	if unavailable(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// uniqueViolation reports whether err is a unique-constraint failure and
// returns whatever names the constraint.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return pgErr.ConstraintName + " " + pgErr.Detail, true
		}
		return "", false
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return msg, true
	}
	return "", false
}

func unavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
