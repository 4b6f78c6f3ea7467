package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

func TestMemoryKeysAndUniqueness(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a, err := m.Users().Insert(ctx, domain.User{Email: "a@x.io", Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, 1, a.ID)

	_, err = m.Users().Insert(ctx, domain.User{ID: 5, Email: "b@x.io", Role: domain.RoleUser})
	require.NoError(t, err)
	c, err := m.Users().Insert(ctx, domain.User{Email: "c@x.io", Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, 6, c.ID)

	_, err = m.Users().Insert(ctx, domain.User{Email: "a@x.io", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	_, err = m.Users().Insert(ctx, domain.User{ID: 5, Email: "z@x.io", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrConflict)

	c.Email = "a@x.io"
	_, err = m.Users().Update(ctx, c)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	_, err = m.Attendance().Insert(ctx, domain.AttendanceRecord{UserID: 1, Date: "2025-06-02", Status: domain.StatusPresent})
	require.NoError(t, err)
	_, err = m.Attendance().Insert(ctx, domain.AttendanceRecord{UserID: 1, Date: "2025-06-02", Status: domain.StatusAbsent})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = m.Archive().Insert(ctx, domain.ArchiveEntry{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	note := "remote"
	rec, err := m.Attendance().Insert(ctx, domain.AttendanceRecord{UserID: 1, Date: "2025-06-02", Status: domain.StatusPresent, Notes: &note})
	require.NoError(t, err)

	*rec.Notes = "changed"
	got, err := m.Attendance().Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "remote", *got.Notes)

	_, err = m.Archive().Insert(ctx, domain.ArchiveEntry{User: domain.User{ID: 2}, Attendance: []domain.AttendanceRecord{got}})
	require.NoError(t, err)
	entry, err := m.Archive().Get(ctx, 2)
	require.NoError(t, err)
	*entry.Attendance[0].Notes = "changed"
	again, err := m.Archive().Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "remote", *again.Attendance[0].Notes)
	assert.NotNil(t, again.Todos)
}

func TestMemoryFilters(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, r := range []domain.AttendanceRecord{
		{UserID: 1, Date: "2025-05-30"},
		{UserID: 1, Date: "2025-06-02"},
		{UserID: 2, Date: "2025-06-02"},
		{UserID: 2, Date: "2026-06-01"},
	} {
		r.Status = domain.StatusPresent
		_, err := m.Attendance().Insert(ctx, r)
		require.NoError(t, err)
	}

	cases := []struct {
		name string
		f    domain.Filter
		want int
	}{
		{"all", domain.Filter{}, 4},
		{"user", domain.Filter{UserID: 2}, 2},
		{"date", domain.Filter{Date: "2025-06-02"}, 2},
		{"month and year", domain.Filter{Month: 6, Year: 2025}, 2},
		{"month only", domain.Filter{Month: 6}, 3},
		{"year only", domain.Filter{Year: 2026}, 1},
		{"user and month", domain.Filter{UserID: 1, Month: 5}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := m.Attendance().List(ctx, tc.f)
			require.NoError(t, err)
			assert.Len(t, rows, tc.want)
		})
	}

	removed, err := m.Attendance().DeleteWhere(ctx, domain.Filter{UserID: 1})
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	assert.Equal(t, 1, removed[0].ID)
	left, err := m.Attendance().List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestMemoryAtomicRestoresOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, err := m.Todos().Insert(ctx, domain.Todo{UserID: 1, Notes: "keep", DateCreated: time.Now()})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = m.Atomic(ctx, func(tx Tx) error {
		if _, err := tx.Todos().DeleteWhere(ctx, domain.Filter{}); err != nil {
			return err
		}
		if _, err := tx.Users().Insert(ctx, domain.User{Email: "a@x.io"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	todos, err := m.Todos().List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Len(t, todos, 1)
	users, err := m.Users().List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Empty(t, users)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, m.Atomic(cancelled, func(Tx) error { return nil }), context.Canceled)
}

func TestMemoryAtomicSerialises(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Atomic(ctx, func(tx Tx) error {
				rows, err := tx.Todos().List(ctx, domain.Filter{})
				if err != nil {
					return err
				}
				_, err = tx.Todos().Insert(ctx, domain.Todo{ID: len(rows) + 1, UserID: 1, Notes: "n"})
				return err
			})
		}()
	}
	wg.Wait()

	todos, err := m.Todos().List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Len(t, todos, 20)
}
