package store

import (
	"context"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

// Collection is keyed storage for one record type. Keys are integers;
// Insert assigns max(key)+1 when the record has no key and keeps the key
// otherwise.
type Collection[T any] interface {
	List(ctx context.Context, f domain.Filter) ([]T, error)
	Get(ctx context.Context, key int) (T, error)
	Insert(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, rec T) (T, error)
	Delete(ctx context.Context, key int) (T, error)
	DeleteWhere(ctx context.Context, f domain.Filter) ([]T, error)
}

// Tx exposes the four collections. Inside Store.Atomic all calls belong to
// the same unit of work.
type Tx interface {
	Users() Collection[domain.User]
	Attendance() Collection[domain.AttendanceRecord]
	Todos() Collection[domain.Todo]
	Archive() Collection[domain.ArchiveEntry]
}

// Store is the entity store. Calls made directly on the embedded Tx apply
// one at a time; Atomic groups several calls so that either all of them
// are applied or none is observable.
type Store interface {
	Tx
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

func userKey(u domain.User) int { return u.ID }

func attendanceKey(r domain.AttendanceRecord) int { return r.ID }

func todoKey(t domain.Todo) int { return t.ID }

func archiveKey(e domain.ArchiveEntry) int { return e.User.ID }
