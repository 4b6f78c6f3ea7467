package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store"
)

// ErrInvalidCredentials is returned by Login when no active user matches.
var ErrInvalidCredentials = errors.New("invalid credentials")

// NewUser is the input of CreateUser.
type NewUser struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Role     domain.Role `json:"role"`
}

// CreatedUser reports a new account and the rows generated for it.
type CreatedUser struct {
	User              domain.User `json:"user"`
	AttendanceCreated int         `json:"attendance_records_created"`
	TodosCreated      int         `json:"todos_created"`
}

func (in NewUser) validate() (NewUser, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	switch {
	case in.Email == "":
		return in, fmt.Errorf("%w: email is required", domain.ErrValidation)
	case in.Password == "":
		return in, fmt.Errorf("%w: password is required", domain.ErrValidation)
	case in.FullName == "":
		return in, fmt.Errorf("%w: full_name is required", domain.ErrValidation)
	}
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if !in.Role.Valid() {
		return in, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, in.Role)
	}
	return in, nil
}

// CreateUser adds an account. Staff accounts get an attendance history
// over the backfill window and a welcome todo.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (out CreatedUser, err error) {
	defer func() { s.observe("create_user", err) }()

	in, err = in.validate()
	if err != nil {
		return CreatedUser{}, err
	}
	now := s.now()

	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		out, err = s.createUser(ctx, tx, in, now)
		return err
	})
	if err != nil {
		return CreatedUser{}, err
	}
	s.publish(ctx, EventUserCreated, out.User.Public())
	return out, nil
}

func (s *Service) createUser(ctx context.Context, tx store.Tx, in NewUser, now time.Time) (CreatedUser, error) {
	existing, err := tx.Users().List(ctx, domain.Filter{Email: in.Email})
	if err != nil {
		return CreatedUser{}, err
	}
	if len(existing) > 0 {
		return CreatedUser{}, fmt.Errorf("%s: %w", in.Email, domain.ErrDuplicateEmail)
	}
	id, err := nextUserID(ctx, tx)
	if err != nil {
		return CreatedUser{}, err
	}
	user, err := tx.Users().Insert(ctx, domain.User{
		ID:        id,
		Email:     in.Email,
		Password:  in.Password,
		FullName:  in.FullName,
		Role:      in.Role,
		CreatedAt: now,
	})
	if err != nil {
		return CreatedUser{}, err
	}
	out := CreatedUser{User: user}
	if user.Role == domain.RoleAdmin {
		return out, nil
	}

	next, err := nextAttendanceID(ctx, tx)
	if err != nil {
		return CreatedUser{}, err
	}
	for _, rec := range Backfill(user.ID, s.opts.BackfillStart, s.opts.BackfillEnd, s.opts.Status) {
		rec.ID = next
		if _, err := tx.Attendance().Insert(ctx, rec); err != nil {
			return CreatedUser{}, fmt.Errorf("backfill %s: %w", rec.Date, err)
		}
		next++
		out.AttendanceCreated++
	}

	todoID, err := nextTodoID(ctx, tx)
	if err != nil {
		return CreatedUser{}, err
	}
	if _, err := tx.Todos().Insert(ctx, domain.Todo{
		ID:          todoID,
		UserID:      user.ID,
		Notes:       fmt.Sprintf("Welcome aboard, %s! Remember to mark your attendance every working day.", user.FullName),
		DateCreated: now,
	}); err != nil {
		return CreatedUser{}, err
	}
	out.TodosCreated = 1
	return out, nil
}

// DeleteUser moves the user and every attendance record and todo they own
// into the archive.
func (s *Service) DeleteUser(ctx context.Context, userID int) (entry domain.ArchiveEntry, err error) {
	defer func() { s.observe("delete_user", err) }()

	now := s.now()
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		user, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.checkDeletable(ctx, tx, user); err != nil {
			return err
		}
		att, err := tx.Attendance().DeleteWhere(ctx, domain.Filter{UserID: userID})
		if err != nil {
			return err
		}
		todos, err := tx.Todos().DeleteWhere(ctx, domain.Filter{UserID: userID})
		if err != nil {
			return err
		}
		if _, err := tx.Users().Delete(ctx, userID); err != nil {
			return err
		}
		entry, err = tx.Archive().Insert(ctx, domain.ArchiveEntry{
			User:       user,
			Attendance: att,
			Todos:      todos,
			DeletedAt:  now,
		})
		return err
	})
	if err != nil {
		return domain.ArchiveEntry{}, err
	}
	s.publish(ctx, EventUserDeleted, eventUser{UserID: userID, Email: entry.User.Email, Attendance: len(entry.Attendance), Todos: len(entry.Todos)})
	return entry, nil
}

func (s *Service) checkDeletable(ctx context.Context, tx store.Tx, user domain.User) error {
	if user.Role != domain.RoleAdmin {
		return nil
	}
	if s.opts.ProtectAdminUsers {
		return fmt.Errorf("%w: admin accounts cannot be deleted", domain.ErrForbidden)
	}
	if !s.opts.ProtectLastAdmin {
		return nil
	}
	users, err := tx.Users().List(ctx, domain.Filter{})
	if err != nil {
		return err
	}
	admins := 0
	for _, u := range users {
		if u.Role == domain.RoleAdmin {
			admins++
		}
	}
	if admins <= 1 {
		return fmt.Errorf("%w: cannot delete the last admin account", domain.ErrForbidden)
	}
	return nil
}

// UndoUserDeletion restores an archived user with their original ids and
// removes the archive entry. The archive entry is kept when restoring fails.
func (s *Service) UndoUserDeletion(ctx context.Context, userID int) (entry domain.ArchiveEntry, err error) {
	defer func() { s.observe("undo_user_deletion", err) }()

	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		entry, err = tx.Archive().Get(ctx, userID)
		if err != nil {
			return err
		}
		taken, err := tx.Users().List(ctx, domain.Filter{Email: entry.User.Email})
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return fmt.Errorf("restore user %d: %s: %w", userID, entry.User.Email, domain.ErrDuplicateEmail)
		}
		if _, err := tx.Users().Insert(ctx, entry.User); err != nil {
			return fmt.Errorf("restore user %d: %w", userID, err)
		}
		for _, rec := range entry.Attendance {
			if _, err := tx.Attendance().Insert(ctx, rec); err != nil {
				return fmt.Errorf("restore attendance %d: %w", rec.ID, err)
			}
		}
		for _, todo := range entry.Todos {
			if _, err := tx.Todos().Insert(ctx, todo); err != nil {
				return fmt.Errorf("restore todo %d: %w", todo.ID, err)
			}
		}
		_, err = tx.Archive().Delete(ctx, userID)
		return err
	})
	if err != nil {
		return domain.ArchiveEntry{}, err
	}
	s.publish(ctx, EventUserRestored, eventUser{UserID: userID, Email: entry.User.Email, Attendance: len(entry.Attendance), Todos: len(entry.Todos)})
	return entry, nil
}

// PermanentlyPurgeUser drops an archive entry. Active collections are not
// touched.
func (s *Service) PermanentlyPurgeUser(ctx context.Context, userID int) (entry domain.ArchiveEntry, err error) {
	defer func() { s.observe("purge_user", err) }()

	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		entry, err = tx.Archive().Delete(ctx, userID)
		return err
	})
	if err != nil {
		return domain.ArchiveEntry{}, err
	}
	s.publish(ctx, EventUserPurged, eventUser{UserID: userID, Email: entry.User.Email})
	return entry, nil
}

// PurgeExpired drops archive entries deleted more than retention ago and
// returns them.
func (s *Service) PurgeExpired(ctx context.Context, retention time.Duration) (purged []domain.ArchiveEntry, err error) {
	defer func() { s.observe("purge_expired", err) }()

	if retention <= 0 {
		return nil, fmt.Errorf("%w: retention must be positive", domain.ErrValidation)
	}
	cutoff := s.now().Add(-retention)
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		purged = purged[:0]
		entries, err := tx.Archive().List(ctx, domain.Filter{})
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !e.DeletedAt.Before(cutoff) {
				continue
			}
			if _, err := tx.Archive().Delete(ctx, e.User.ID); err != nil {
				return err
			}
			purged = append(purged, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, e := range purged {
		s.publish(ctx, EventUserPurged, eventUser{UserID: e.User.ID, Email: e.User.Email})
	}
	return purged, nil
}

// ListUsers returns the active users ordered by id.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.store.Users().List(ctx, domain.Filter{})
}

// GetUser returns one active user.
func (s *Service) GetUser(ctx context.Context, userID int) (domain.User, error) {
	return s.store.Users().Get(ctx, userID)
}

// ListArchive returns the soft-deleted users ordered by user id.
func (s *Service) ListArchive(ctx context.Context) ([]domain.ArchiveEntry, error) {
	return s.store.Archive().List(ctx, domain.Filter{})
}

// GetArchiveEntry returns the archive entry of one soft-deleted user.
func (s *Service) GetArchiveEntry(ctx context.Context, userID int) (domain.ArchiveEntry, error) {
	return s.store.Archive().Get(ctx, userID)
}

// Login matches email and password against the active users.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, error) {
	users, err := s.store.Users().List(ctx, domain.Filter{Email: strings.TrimSpace(email)})
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range users {
		if u.Password == password {
			return u, nil
		}
	}
	return domain.User{}, ErrInvalidCredentials
}

// DefaultUsers are the accounts SeedDefaults creates.
var DefaultUsers = []NewUser{
	{Email: "admin@company.com", Password: "admin123", FullName: "Admin User", Role: domain.RoleAdmin},
	{Email: "user1@company.com", Password: "user123", FullName: "User One", Role: domain.RoleUser},
	{Email: "user2@company.com", Password: "user123", FullName: "User Two", Role: domain.RoleUser},
	{Email: "user3@company.com", Password: "user123", FullName: "User Three", Role: domain.RoleUser},
	{Email: "user4@company.com", Password: "user123", FullName: "User Four", Role: domain.RoleUser},
	{Email: "user5@company.com", Password: "user123", FullName: "User Five", Role: domain.RoleUser},
}

// SeedDefaults creates DefaultUsers when there are no active or archived
// users and returns the accounts it created.
func (s *Service) SeedDefaults(ctx context.Context) (created []CreatedUser, err error) {
	defer func() { s.observe("seed_defaults", err) }()

	now := s.now()
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		created = created[:0]
		users, err := tx.Users().List(ctx, domain.Filter{})
		if err != nil {
			return err
		}
		archived, err := tx.Archive().List(ctx, domain.Filter{})
		if err != nil {
			return err
		}
		if len(users) > 0 || len(archived) > 0 {
			return nil
		}
		for _, in := range DefaultUsers {
			c, err := s.createUser(ctx, tx, in, now)
			if err != nil {
				return fmt.Errorf("seed %s: %w", in.Email, err)
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, c := range created {
		s.publish(ctx, EventUserCreated, c.User.Public())
	}
	return created, nil
}

type eventUser struct {
	UserID     int    `json:"user_id"`
	Email      string `json:"email"`
	Attendance int    `json:"attendance,omitempty"`
	Todos      int    `json:"todos,omitempty"`
}
