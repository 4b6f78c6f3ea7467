package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

var userColumns = []string{"id", "email", "password", "full_name", "role", "created_at"}

type userTable struct {
	txView
}

func users(v txView) userTable { return userTable{v} }

func (t userTable) where(f domain.Filter) sq.Eq {
	eq := sq.Eq{}
	if f.UserID != 0 {
		eq["id"] = f.UserID
	}
	if f.Email != "" {
		eq["email"] = f.Email
	}
	return eq
}

func (t userTable) List(ctx context.Context, f domain.Filter) ([]domain.User, error) {
	out := []domain.User{}
	q := t.sb.Select(userColumns...).From("users").Where(t.where(f)).OrderBy("id")
	if err := t.selectInto(ctx, &out, q, "list users"); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].CreatedAt = utc(out[i].CreatedAt)
	}
	return out, nil
}

func (t userTable) Get(ctx context.Context, key int) (domain.User, error) {
	rows, err := t.List(ctx, domain.Filter{UserID: key})
	if err != nil {
		return domain.User{}, err
	}
	if len(rows) == 0 {
		return domain.User{}, notFound("user", key)
	}
	return rows[0], nil
}

func (t userTable) Insert(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == 0 {
		id, err := t.nextID(ctx, "users", "id")
		if err != nil {
			return domain.User{}, err
		}
		u.ID = id
	}
	q := t.sb.Insert("users").Columns(userColumns...).
		Values(u.ID, u.Email, u.Password, u.FullName, string(u.Role), u.CreatedAt.UTC())
	if _, err := t.exec(ctx, q, "insert user"); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (t userTable) Update(ctx context.Context, u domain.User) (domain.User, error) {
	q := t.sb.Update("users").SetMap(map[string]any{
		"email":      u.Email,
		"password":   u.Password,
		"full_name":  u.FullName,
		"role":       string(u.Role),
		"created_at": u.CreatedAt.UTC(),
	}).Where(sq.Eq{"id": u.ID})
	res, err := t.exec(ctx, q, "update user")
	if err != nil {
		return domain.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.User{}, notFound("user", u.ID)
	}
	return u, nil
}

func (t userTable) Delete(ctx context.Context, key int) (domain.User, error) {
	u, err := t.Get(ctx, key)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := t.exec(ctx, t.sb.Delete("users").Where(sq.Eq{"id": key}), "delete user"); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (t userTable) DeleteWhere(ctx context.Context, f domain.Filter) ([]domain.User, error) {
	rows, err := t.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if _, err := t.exec(ctx, t.sb.Delete("users").Where(t.where(f)), "delete users"); err != nil {
		return nil, err
	}
	return rows, nil
}

// utc normalises a scanned timestamp; drivers differ in the location they
// attach.
func utc(t time.Time) time.Time { return t.UTC() }
