package domain

import "time"

// Role is the access level of a user account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Status is the attendance outcome for one day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// DateLayout is the format of AttendanceRecord.Date.
const DateLayout = "2006-01-02"

// User is a staff account.
type User struct {
	ID        int       `json:"id" db:"id" bson:"id"`
	Email     string    `json:"email" db:"email" bson:"email"`
	Password  string    `json:"password,omitempty" db:"password" bson:"password"`
	FullName  string    `json:"full_name" db:"full_name" bson:"full_name"`
	Role      Role      `json:"role" db:"role" bson:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
}

// Public returns a copy of the user without the password.
func (u User) Public() User {
	u.Password = ""
	return u
}

// AttendanceRecord is one day of attendance for one user.
// At most one record exists per (UserID, Date).
type AttendanceRecord struct {
	ID     int     `json:"id" db:"id" bson:"id"`
	UserID int     `json:"user_id" db:"user_id" bson:"user_id"`
	Status Status  `json:"status" db:"status" bson:"status"`
	Date   string  `json:"date" db:"date" bson:"date"`
	Notes  *string `json:"notes,omitempty" db:"notes" bson:"notes,omitempty"`
}

// Todo is a free-form note owned by a user.
type Todo struct {
	ID          int       `json:"id" db:"id" bson:"id"`
	UserID      int       `json:"user_id" db:"user_id" bson:"user_id"`
	Notes       string    `json:"notes" db:"notes" bson:"notes"`
	DateCreated time.Time `json:"date_created" db:"date_created" bson:"date_created"`
}

// ArchiveEntry holds a soft-deleted user together with the rows that were
// removed with it. It is keyed by User.ID.
type ArchiveEntry struct {
	User       User               `json:"user" bson:"user"`
	Attendance []AttendanceRecord `json:"attendance" bson:"attendance"`
	Todos      []Todo             `json:"todos" bson:"todos"`
	DeletedAt  time.Time          `json:"deleted_at" bson:"deleted_at"`
}

// Filter narrows a List call. Zero fields are ignored; each collection
// applies only the fields that make sense for it.
type Filter struct {
	UserID int
	Email  string
	Date   string
	Month  int
	Year   int
}

// MatchDate reports whether a YYYY-MM-DD string satisfies the month/year
// part of f. Unparseable dates never match a month or year filter.
func (f Filter) MatchDate(date string) bool {
	if f.Month == 0 && f.Year == 0 {
		return true
	}
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	if f.Year != 0 && d.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(d.Month()) != f.Month {
		return false
	}
	return true
}

// Stats summarises a set of attendance records.
type Stats struct {
	Total             int     `json:"total"`
	Present           int     `json:"present"`
	Absent            int     `json:"absent"`
	PresentPercentage float64 `json:"present_percentage"`
	AbsentPercentage  float64 `json:"absent_percentage"`
}
