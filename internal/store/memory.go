package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

// Memory is an in-process Store. One mutex covers all four collections, so
// every call and every Atomic unit is serialised.
type Memory struct {
	mu         sync.Mutex
	users      *table[domain.User]
	attendance *table[domain.AttendanceRecord]
	todos      *table[domain.Todo]
	archive    *table[domain.ArchiveEntry]
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users: &table[domain.User]{
			name:   "user",
			rows:   map[int]domain.User{},
			key:    userKey,
			setKey: func(u domain.User, k int) domain.User { u.ID = k; return u },
			match: func(u domain.User, f domain.Filter) bool {
				return (f.Email == "" || u.Email == f.Email) && (f.UserID == 0 || u.ID == f.UserID)
			},
			unique: func(a, b domain.User) error {
				if a.Email == b.Email {
					return domain.ErrDuplicateEmail
				}
				return nil
			},
		},
		attendance: &table[domain.AttendanceRecord]{
			name:   "attendance record",
			rows:   map[int]domain.AttendanceRecord{},
			key:    attendanceKey,
			setKey: func(r domain.AttendanceRecord, k int) domain.AttendanceRecord { r.ID = k; return r },
			match: func(r domain.AttendanceRecord, f domain.Filter) bool {
				if f.UserID != 0 && r.UserID != f.UserID {
					return false
				}
				if f.Date != "" && r.Date != f.Date {
					return false
				}
				return f.MatchDate(r.Date)
			},
			unique: func(a, b domain.AttendanceRecord) error {
				if a.UserID == b.UserID && a.Date == b.Date {
					return fmt.Errorf("%w: attendance for user %d on %s exists", domain.ErrConflict, a.UserID, a.Date)
				}
				return nil
			},
			clone: cloneAttendance,
		},
		todos: &table[domain.Todo]{
			name:   "todo",
			rows:   map[int]domain.Todo{},
			key:    todoKey,
			setKey: func(t domain.Todo, k int) domain.Todo { t.ID = k; return t },
			match: func(t domain.Todo, f domain.Filter) bool {
				return f.UserID == 0 || t.UserID == f.UserID
			},
		},
		archive: &table[domain.ArchiveEntry]{
			name:  "archive entry",
			rows:  map[int]domain.ArchiveEntry{},
			key:   archiveKey,
			fixed: true,
			match: func(e domain.ArchiveEntry, f domain.Filter) bool {
				return f.UserID == 0 || e.User.ID == f.UserID
			},
			clone: cloneArchive,
		},
	}
}

func (m *Memory) Users() Collection[domain.User] {
	return memCollection[domain.User]{m: m, t: m.users}
}

func (m *Memory) Attendance() Collection[domain.AttendanceRecord] {
	return memCollection[domain.AttendanceRecord]{m: m, t: m.attendance}
}

func (m *Memory) Todos() Collection[domain.Todo] {
	return memCollection[domain.Todo]{m: m, t: m.todos}
}

func (m *Memory) Archive() Collection[domain.ArchiveEntry] {
	return memCollection[domain.ArchiveEntry]{m: m, t: m.archive}
}

// Atomic runs fn while holding the store lock. If fn fails every collection
// is restored to the state it had before fn started.
func (m *Memory) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	users, att, todos, arch := m.users.snapshot(), m.attendance.snapshot(), m.todos.snapshot(), m.archive.snapshot()
	if err := fn(memTx{m: m}); err != nil {
		m.users.rows, m.attendance.rows, m.todos.rows, m.archive.rows = users, att, todos, arch
		return err
	}
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// memTx hands out collections that assume the lock is already held.
type memTx struct {
	m *Memory
}

func (tx memTx) Users() Collection[domain.User] {
	return memCollection[domain.User]{m: tx.m, t: tx.m.users, held: true}
}

func (tx memTx) Attendance() Collection[domain.AttendanceRecord] {
	return memCollection[domain.AttendanceRecord]{m: tx.m, t: tx.m.attendance, held: true}
}

func (tx memTx) Todos() Collection[domain.Todo] {
	return memCollection[domain.Todo]{m: tx.m, t: tx.m.todos, held: true}
}

func (tx memTx) Archive() Collection[domain.ArchiveEntry] {
	return memCollection[domain.ArchiveEntry]{m: tx.m, t: tx.m.archive, held: true}
}

type memCollection[T any] struct {
	m    *Memory
	t    *table[T]
	held bool
}

func (c memCollection[T]) lock() func() {
	if c.held {
		return func() {}
	}
	c.m.mu.Lock()
	return c.m.mu.Unlock
}

func (c memCollection[T]) List(_ context.Context, f domain.Filter) ([]T, error) {
	defer c.lock()()
	return c.t.list(f), nil
}

func (c memCollection[T]) Get(_ context.Context, key int) (T, error) {
	defer c.lock()()
	return c.t.get(key)
}

func (c memCollection[T]) Insert(_ context.Context, rec T) (T, error) {
	defer c.lock()()
	return c.t.insert(rec)
}

func (c memCollection[T]) Update(_ context.Context, rec T) (T, error) {
	defer c.lock()()
	return c.t.update(rec)
}

func (c memCollection[T]) Delete(_ context.Context, key int) (T, error) {
	defer c.lock()()
	return c.t.delete(key)
}

func (c memCollection[T]) DeleteWhere(_ context.Context, f domain.Filter) ([]T, error) {
	defer c.lock()()
	return c.t.deleteWhere(f), nil
}

// table is a map of records plus the rules needed to key, filter and
// constrain them. Callers hold Memory.mu.
type table[T any] struct {
	name   string
	rows   map[int]T
	key    func(T) int
	setKey func(T, int) T
	match  func(T, domain.Filter) bool
	unique func(a, b T) error
	clone  func(T) T
	// fixed tables never assign keys; records must carry one.
	fixed bool
}

func (t *table[T]) copy(rec T) T {
	if t.clone == nil {
		return rec
	}
	return t.clone(rec)
}

func (t *table[T]) snapshot() map[int]T {
	out := make(map[int]T, len(t.rows))
	for k, v := range t.rows {
		out[k] = v
	}
	return out
}

func (t *table[T]) sortedKeys() []int {
	keys := make([]int, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func (t *table[T]) nextKey() int {
	highest := 0
	for k := range t.rows {
		if k > highest {
			highest = k
		}
	}
	return highest + 1
}

func (t *table[T]) list(f domain.Filter) []T {
	out := []T{}
	for _, k := range t.sortedKeys() {
		if rec := t.rows[k]; t.match(rec, f) {
			out = append(out, t.copy(rec))
		}
	}
	return out
}

func (t *table[T]) get(key int) (T, error) {
	rec, ok := t.rows[key]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %d: %w", t.name, key, domain.ErrNotFound)
	}
	return t.copy(rec), nil
}

func (t *table[T]) checkUnique(rec T) error {
	if t.unique == nil {
		return nil
	}
	k := t.key(rec)
	for other, existing := range t.rows {
		if other == k {
			continue
		}
		if err := t.unique(rec, existing); err != nil {
			return err
		}
	}
	return nil
}

func (t *table[T]) insert(rec T) (T, error) {
	var zero T
	k := t.key(rec)
	if k == 0 {
		if t.fixed {
			return zero, fmt.Errorf("%w: %s requires a key", domain.ErrValidation, t.name)
		}
		k = t.nextKey()
		rec = t.setKey(rec, k)
	} else if _, exists := t.rows[k]; exists {
		return zero, fmt.Errorf("%w: %s %d already exists", domain.ErrConflict, t.name, k)
	}
	if err := t.checkUnique(rec); err != nil {
		return zero, err
	}
	t.rows[k] = t.copy(rec)
	return t.copy(rec), nil
}

func (t *table[T]) update(rec T) (T, error) {
	var zero T
	k := t.key(rec)
	if _, ok := t.rows[k]; !ok {
		return zero, fmt.Errorf("%s %d: %w", t.name, k, domain.ErrNotFound)
	}
	if err := t.checkUnique(rec); err != nil {
		return zero, err
	}
	t.rows[k] = t.copy(rec)
	return t.copy(rec), nil
}

func (t *table[T]) delete(key int) (T, error) {
	rec, ok := t.rows[key]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %d: %w", t.name, key, domain.ErrNotFound)
	}
	delete(t.rows, key)
	return rec, nil
}

func (t *table[T]) deleteWhere(f domain.Filter) []T {
	out := []T{}
	for _, k := range t.sortedKeys() {
		if rec := t.rows[k]; t.match(rec, f) {
			out = append(out, rec)
			delete(t.rows, k)
		}
	}
	return out
}

func cloneAttendance(r domain.AttendanceRecord) domain.AttendanceRecord {
	if r.Notes != nil {
		n := *r.Notes
		r.Notes = &n
	}
	return r
}

func cloneArchive(e domain.ArchiveEntry) domain.ArchiveEntry {
	att := make([]domain.AttendanceRecord, len(e.Attendance))
	for i, r := range e.Attendance {
		att[i] = cloneAttendance(r)
	}
	e.Attendance = att
	e.Todos = append([]domain.Todo(nil), e.Todos...)
	if e.Todos == nil {
		e.Todos = []domain.Todo{}
	}
	return e
}
