package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

// archiveRow is the persisted form of an archive entry: the user and the
// rows removed with it travel together as one JSON document.
type archiveRow struct {
	UserID    int       `db:"user_id"`
	Payload   []byte    `db:"payload"`
	DeletedAt time.Time `db:"deleted_at"`
}

type archivePayload struct {
	User       domain.User               `json:"user"`
	Attendance []domain.AttendanceRecord `json:"attendance"`
	Todos      []domain.Todo             `json:"todos"`
}

func (r archiveRow) entry() (domain.ArchiveEntry, error) {
	var p archivePayload
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("decode archive entry %d: %w", r.UserID, err)
	}
	if p.Attendance == nil {
		p.Attendance = []domain.AttendanceRecord{}
	}
	if p.Todos == nil {
		p.Todos = []domain.Todo{}
	}
	p.User.CreatedAt = utc(p.User.CreatedAt)
	return domain.ArchiveEntry{
		User:       p.User,
		Attendance: p.Attendance,
		Todos:      p.Todos,
		DeletedAt:  utc(r.DeletedAt),
	}, nil
}

func encodeArchive(e domain.ArchiveEntry) (string, error) {
	b, err := json.Marshal(archivePayload{User: e.User, Attendance: e.Attendance, Todos: e.Todos})
	if err != nil {
		return "", fmt.Errorf("encode archive entry %d: %w", e.User.ID, err)
	}
	return string(b), nil
}

type archiveTable struct {
	txView
}

func archive(v txView) archiveTable { return archiveTable{v} }

func (t archiveTable) where(f domain.Filter) sq.Eq {
	eq := sq.Eq{}
	if f.UserID != 0 {
		eq["user_id"] = f.UserID
	}
	return eq
}

func (t archiveTable) List(ctx context.Context, f domain.Filter) ([]domain.ArchiveEntry, error) {
	var rows []archiveRow
	q := t.sb.Select("user_id", "payload", "deleted_at").From("deleted_users").Where(t.where(f)).OrderBy("user_id")
	if err := t.selectInto(ctx, &rows, q, "list archive"); err != nil {
		return nil, err
	}
	out := make([]domain.ArchiveEntry, 0, len(rows))
	for _, r := range rows {
		e, err := r.entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (t archiveTable) Get(ctx context.Context, key int) (domain.ArchiveEntry, error) {
	out, err := t.List(ctx, domain.Filter{UserID: key})
	if err != nil {
		return domain.ArchiveEntry{}, err
	}
	if len(out) == 0 {
		return domain.ArchiveEntry{}, notFound("archive entry", key)
	}
	return out[0], nil
}

func (t archiveTable) Insert(ctx context.Context, e domain.ArchiveEntry) (domain.ArchiveEntry, error) {
	if e.User.ID == 0 {
		return domain.ArchiveEntry{}, fmt.Errorf("%w: archive entry requires a user id", domain.ErrValidation)
	}
	payload, err := encodeArchive(e)
	if err != nil {
		return domain.ArchiveEntry{}, err
	}
	q := t.sb.Insert("deleted_users").Columns("user_id", "payload", "deleted_at").
		Values(e.User.ID, payload, e.DeletedAt.UTC())
	if _, err := t.exec(ctx, q, "insert archive entry"); err != nil {
		return domain.ArchiveEntry{}, err
	}
	return e, nil
}

func (t archiveTable) Update(ctx context.Context, e domain.ArchiveEntry) (domain.ArchiveEntry, error) {
	payload, err := encodeArchive(e)
	if err != nil {
		return domain.ArchiveEntry{}, err
	}
	q := t.sb.Update("deleted_users").
		Set("payload", payload).
		Set("deleted_at", e.DeletedAt.UTC()).
		Where(sq.Eq{"user_id": e.User.ID})
	res, err := t.exec(ctx, q, "update archive entry")
	if err != nil {
		return domain.ArchiveEntry{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ArchiveEntry{}, notFound("archive entry", e.User.ID)
	}
	return e, nil
}

func (t archiveTable) Delete(ctx context.Context, key int) (domain.ArchiveEntry, error) {
	e, err := t.Get(ctx, key)
	if err != nil {
		return domain.ArchiveEntry{}, err
	}
	if _, err := t.exec(ctx, t.sb.Delete("deleted_users").Where(sq.Eq{"user_id": key}), "delete archive entry"); err != nil {
		return domain.ArchiveEntry{}, err
	}
	return e, nil
}

func (t archiveTable) DeleteWhere(ctx context.Context, f domain.Filter) ([]domain.ArchiveEntry, error) {
	rows, err := t.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if _, err := t.exec(ctx, t.sb.Delete("deleted_users").Where(t.where(f)), "delete archive entries"); err != nil {
		return nil, err
	}
	return rows, nil
}
