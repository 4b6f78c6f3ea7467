package sqlstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

var attendanceColumns = []string{"id", "user_id", "status", "date", "notes"}

type attendanceTable struct {
	txView
}

func attendance(v txView) attendanceTable { return attendanceTable{v} }

// where turns the filter into predicates. Dates are stored as YYYY-MM-DD
// text, so month and year become a LIKE pattern.
func (t attendanceTable) where(f domain.Filter) sq.And {
	and := sq.And{}
	if f.UserID != 0 {
		and = append(and, sq.Eq{"user_id": f.UserID})
	}
	if f.Date != "" {
		and = append(and, sq.Eq{"date": f.Date})
	}
	if f.Month != 0 || f.Year != 0 {
		year, month := "____", "__"
		if f.Year != 0 {
			year = fmt.Sprintf("%04d", f.Year)
		}
		if f.Month != 0 {
			month = fmt.Sprintf("%02d", f.Month)
		}
		and = append(and, sq.Like{"date": year + "-" + month + "-%"})
	}
	return and
}

func (t attendanceTable) List(ctx context.Context, f domain.Filter) ([]domain.AttendanceRecord, error) {
	out := []domain.AttendanceRecord{}
	q := t.sb.Select(attendanceColumns...).From("attendance").Where(t.where(f)).OrderBy("id")
	if err := t.selectInto(ctx, &out, q, "list attendance"); err != nil {
		return nil, err
	}
	return out, nil
}

func (t attendanceTable) Get(ctx context.Context, key int) (domain.AttendanceRecord, error) {
	out := []domain.AttendanceRecord{}
	q := t.sb.Select(attendanceColumns...).From("attendance").Where(sq.Eq{"id": key})
	if err := t.selectInto(ctx, &out, q, "get attendance"); err != nil {
		return domain.AttendanceRecord{}, err
	}
	if len(out) == 0 {
		return domain.AttendanceRecord{}, notFound("attendance record", key)
	}
	return out[0], nil
}

func (t attendanceTable) Insert(ctx context.Context, r domain.AttendanceRecord) (domain.AttendanceRecord, error) {
	if r.ID == 0 {
		id, err := t.nextID(ctx, "attendance", "id")
		if err != nil {
			return domain.AttendanceRecord{}, err
		}
		r.ID = id
	}
	q := t.sb.Insert("attendance").Columns(attendanceColumns...).
		Values(r.ID, r.UserID, string(r.Status), r.Date, r.Notes)
	if _, err := t.exec(ctx, q, "insert attendance"); err != nil {
		return domain.AttendanceRecord{}, err
	}
	return r, nil
}

func (t attendanceTable) Update(ctx context.Context, r domain.AttendanceRecord) (domain.AttendanceRecord, error) {
	q := t.sb.Update("attendance").SetMap(map[string]any{
		"user_id": r.UserID,
		"status":  string(r.Status),
		"date":    r.Date,
		"notes":   r.Notes,
	}).Where(sq.Eq{"id": r.ID})
	res, err := t.exec(ctx, q, "update attendance")
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.AttendanceRecord{}, notFound("attendance record", r.ID)
	}
	return r, nil
}

func (t attendanceTable) Delete(ctx context.Context, key int) (domain.AttendanceRecord, error) {
	r, err := t.Get(ctx, key)
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	if _, err := t.exec(ctx, t.sb.Delete("attendance").Where(sq.Eq{"id": key}), "delete attendance"); err != nil {
		return domain.AttendanceRecord{}, err
	}
	return r, nil
}

func (t attendanceTable) DeleteWhere(ctx context.Context, f domain.Filter) ([]domain.AttendanceRecord, error) {
	rows, err := t.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if _, err := t.exec(ctx, t.sb.Delete("attendance").Where(t.where(f)), "delete attendance"); err != nil {
		return nil, err
	}
	return rows, nil
}
