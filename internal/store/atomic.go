package store

import (
	"context"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

// AtomicFunc matches Store.Atomic.
type AtomicFunc func(ctx context.Context, fn func(tx Tx) error) error

// WriteThrough returns a collection that serves reads from read and runs
// each write in its own unit of work. Backends whose writes need more than
// one statement (key assignment, fetch-before-delete) use it for the
// collections they expose outside Atomic.
func WriteThrough[T any](read Collection[T], atomic AtomicFunc, pick func(Tx) Collection[T]) Collection[T] {
	return writeThrough[T]{read: read, atomic: atomic, pick: pick}
}

type writeThrough[T any] struct {
	read   Collection[T]
	atomic AtomicFunc
	pick   func(Tx) Collection[T]
}

func (w writeThrough[T]) List(ctx context.Context, f domain.Filter) ([]T, error) {
	return w.read.List(ctx, f)
}

func (w writeThrough[T]) Get(ctx context.Context, key int) (T, error) {
	return w.read.Get(ctx, key)
}

func (w writeThrough[T]) Insert(ctx context.Context, rec T) (out T, err error) {
	err = w.atomic(ctx, func(tx Tx) error {
		out, err = w.pick(tx).Insert(ctx, rec)
		return err
	})
	return out, err
}

func (w writeThrough[T]) Update(ctx context.Context, rec T) (out T, err error) {
	err = w.atomic(ctx, func(tx Tx) error {
		out, err = w.pick(tx).Update(ctx, rec)
		return err
	})
	return out, err
}

func (w writeThrough[T]) Delete(ctx context.Context, key int) (out T, err error) {
	err = w.atomic(ctx, func(tx Tx) error {
		out, err = w.pick(tx).Delete(ctx, key)
		return err
	})
	return out, err
}

func (w writeThrough[T]) DeleteWhere(ctx context.Context, f domain.Filter) (out []T, err error) {
	err = w.atomic(ctx, func(tx Tx) error {
		out, err = w.pick(tx).DeleteWhere(ctx, f)
		return err
	})
	return out, err
}

// PickUsers and friends select one collection from a Tx.
func PickUsers(tx Tx) Collection[domain.User] { return tx.Users() }

func PickAttendance(tx Tx) Collection[domain.AttendanceRecord] { return tx.Attendance() }

func PickTodos(tx Tx) Collection[domain.Todo] { return tx.Todos() }

func PickArchive(tx Tx) Collection[domain.ArchiveEntry] { return tx.Archive() }
