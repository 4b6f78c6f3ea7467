package sqlstore

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

var todoColumns = []string{"id", "user_id", "notes", "date_created"}

type todoTable struct {
	txView
}

func todos(v txView) todoTable { return todoTable{v} }

func (t todoTable) where(f domain.Filter) sq.Eq {
	eq := sq.Eq{}
	if f.UserID != 0 {
		eq["user_id"] = f.UserID
	}
	return eq
}

func (t todoTable) List(ctx context.Context, f domain.Filter) ([]domain.Todo, error) {
	return t.query(ctx, t.where(f), "list todos")
}

func (t todoTable) query(ctx context.Context, pred sq.Sqlizer, op string) ([]domain.Todo, error) {
	out := []domain.Todo{}
	q := t.sb.Select(todoColumns...).From("todos").Where(pred).OrderBy("id")
	if err := t.selectInto(ctx, &out, q, op); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].DateCreated = utc(out[i].DateCreated)
	}
	return out, nil
}

func (t todoTable) Get(ctx context.Context, key int) (domain.Todo, error) {
	out, err := t.query(ctx, sq.Eq{"id": key}, "get todo")
	if err != nil {
		return domain.Todo{}, err
	}
	if len(out) == 0 {
		return domain.Todo{}, notFound("todo", key)
	}
	return out[0], nil
}

func (t todoTable) Insert(ctx context.Context, td domain.Todo) (domain.Todo, error) {
	if td.ID == 0 {
		id, err := t.nextID(ctx, "todos", "id")
		if err != nil {
			return domain.Todo{}, err
		}
		td.ID = id
	}
	q := t.sb.Insert("todos").Columns(todoColumns...).
		Values(td.ID, td.UserID, td.Notes, td.DateCreated.UTC())
	if _, err := t.exec(ctx, q, "insert todo"); err != nil {
		return domain.Todo{}, err
	}
	return td, nil
}

func (t todoTable) Update(ctx context.Context, td domain.Todo) (domain.Todo, error) {
	q := t.sb.Update("todos").SetMap(map[string]any{
		"user_id":      td.UserID,
		"notes":        td.Notes,
		"date_created": td.DateCreated.UTC(),
	}).Where(sq.Eq{"id": td.ID})
	res, err := t.exec(ctx, q, "update todo")
	if err != nil {
		return domain.Todo{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Todo{}, notFound("todo", td.ID)
	}
	return td, nil
}

func (t todoTable) Delete(ctx context.Context, key int) (domain.Todo, error) {
	td, err := t.Get(ctx, key)
	if err != nil {
		return domain.Todo{}, err
	}
	if _, err := t.exec(ctx, t.sb.Delete("todos").Where(sq.Eq{"id": key}), "delete todo"); err != nil {
		return domain.Todo{}, err
	}
	return td, nil
}

func (t todoTable) DeleteWhere(ctx context.Context, f domain.Filter) ([]domain.Todo, error) {
	rows, err := t.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if _, err := t.exec(ctx, t.sb.Delete("todos").Where(t.where(f)), "delete todos"); err != nil {
		return nil, err
	}
	return rows, nil
}
