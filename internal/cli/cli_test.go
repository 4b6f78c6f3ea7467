package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/attendance"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store"
)

func newService() *attendance.Service {
	return attendance.NewService(store.NewMemory(), attendance.Options{
		BackfillStart: time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
		BackfillEnd:   time.Date(2025, time.June, 13, 0, 0, 0, 0, time.UTC),
		Status:        attendance.Always(domain.StatusPresent),
	})
}

// run executes one attendctl invocation against svc and returns stdout.
func run(t *testing.T, svc *attendance.Service, args ...string) (string, error) {
	t.Helper()
	released := false
	cmd := NewRootCommand(func(context.Context) (*attendance.Service, func(), error) {
		return svc, func() { released = true }, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		assert.True(t, released, "service not released")
	}
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(nil)
	for _, path := range [][]string{
		{"seed"},
		{"users", "list"},
		{"users", "deleted"},
		{"users", "delete"},
		{"users", "undo"},
		{"users", "purge"},
		{"attendance", "mark"},
		{"attendance", "list"},
		{"attendance", "stats"},
		{"purge-expired"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestSeedAndListJSON(t *testing.T) {
	svc := newService()

	out, err := run(t, svc, "seed", "--format", "json")
	require.NoError(t, err)
	var created []attendance.CreatedUser
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Len(t, created, 6)

	out, err = run(t, svc, "users", "list", "--format", "json")
	require.NoError(t, err)
	var users []domain.User
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	require.Len(t, users, 6)
	assert.Empty(t, users[0].Password)

	out, err = run(t, svc, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "admin@company.com")
	assert.Contains(t, out, "EMAIL")
}

func TestDeleteUndoPurge(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, attendance.NewUser{Email: "jo@x.io", Password: "pw", FullName: "Jo"})
	require.NoError(t, err)

	out, err := run(t, svc, "users", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted user 1 (10 attendance records, 1 todos archived)")

	out, err = run(t, svc, "users", "deleted")
	require.NoError(t, err)
	assert.Contains(t, out, "jo@x.io")

	out, err = run(t, svc, "users", "undo", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "restored user 1 <jo@x.io>")

	_, err = run(t, svc, "users", "delete", "1")
	require.NoError(t, err)
	_, err = run(t, svc, "users", "purge", "1")
	require.NoError(t, err)
	_, err = svc.GetArchiveEntry(ctx, u.User.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = run(t, svc, "users", "undo", "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = run(t, svc, "users", "delete", "abc")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAttendanceCommands(t *testing.T) {
	svc := newService()
	_, err := svc.CreateUser(context.Background(), attendance.NewUser{Email: "jo@x.io", Password: "pw", FullName: "Jo"})
	require.NoError(t, err)

	out, err := run(t, svc, "attendance", "mark", "1", "2025-06-03", "absent", "--notes", "dentist")
	require.NoError(t, err)
	assert.Contains(t, out, "updated record")

	out, err = run(t, svc, "attendance", "mark", "1", "2025-06-16", "present")
	require.NoError(t, err)
	assert.Contains(t, out, "created record 11")

	out, err = run(t, svc, "attendance", "list", "--date", "2025-06-03")
	require.NoError(t, err)
	assert.Contains(t, out, "dentist")

	out, err = run(t, svc, "attendance", "stats", "--user", "1", "--format", "json")
	require.NoError(t, err)
	var st domain.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, domain.Stats{Total: 11, Present: 10, Absent: 1, PresentPercentage: 90.91, AbsentPercentage: 9.09}, st)

	_, err = run(t, svc, "attendance", "mark", "1", "2025-06-03", "late")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPurgeExpiredAndBadFormat(t *testing.T) {
	svc := newService()
	out, err := run(t, svc, "purge-expired", "--retention", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "purged 0 archived users")

	_, err = run(t, svc, "purge-expired", "--retention", "0s")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = run(t, svc, "users", "list", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid format")
}
