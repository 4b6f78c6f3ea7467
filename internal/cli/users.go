package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

func newSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default users when the store is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := opts.svc.SeedDefaults(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, len(created))
			for i, c := range created {
				rows[i] = []string{strconv.Itoa(c.User.ID), c.User.Email, string(c.User.Role), strconv.Itoa(c.AttendanceCreated)}
			}
			return opts.out(cmd).emit(created, []string{"ID", "EMAIL", "ROLE", "ATTENDANCE"}, rows)
		},
	}
}

func newUsersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List, delete, restore and purge users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List active users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := opts.svc.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			public := make([]domain.User, len(users))
			rows := make([][]string, len(users))
			for i, u := range users {
				public[i] = u.Public()
				rows[i] = []string{strconv.Itoa(u.ID), u.Email, u.FullName, string(u.Role), u.CreatedAt.Format(time.RFC3339)}
			}
			return opts.out(cmd).emit(public, []string{"ID", "EMAIL", "NAME", "ROLE", "CREATED"}, rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "deleted",
		Short: "List archived users awaiting undo or purge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := opts.svc.ListArchive(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{
					strconv.Itoa(e.User.ID), e.User.Email,
					strconv.Itoa(len(e.Attendance)), strconv.Itoa(len(e.Todos)),
					e.DeletedAt.Format(time.RFC3339),
				}
				e.User = e.User.Public()
				entries[i] = e
			}
			return opts.out(cmd).emit(entries, []string{"ID", "EMAIL", "ATTENDANCE", "TODOS", "DELETED"}, rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <user-id>",
		Short: "Soft-delete a user and archive their records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			entry, err := opts.svc.DeleteUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.out(cmd).message(
				map[string]any{"user_id": id, "attendance_removed": len(entry.Attendance), "todos_removed": len(entry.Todos)},
				"deleted user %d (%d attendance records, %d todos archived)", id, len(entry.Attendance), len(entry.Todos))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "undo <user-id>",
		Short: "Restore a soft-deleted user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			entry, err := opts.svc.UndoUserDeletion(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.out(cmd).message(entry.User.Public(), "restored user %d <%s>", id, entry.User.Email)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "purge <user-id>",
		Short: "Permanently drop an archived user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := opts.svc.PermanentlyPurgeUser(cmd.Context(), id); err != nil {
				return err
			}
			return opts.out(cmd).message(map[string]any{"user_id": id, "purged": true}, "purged user %d", id)
		},
	})
	return cmd
}

func newPurgeExpiredCommand(opts *RootOptions) *cobra.Command {
	var retention time.Duration
	cmd := &cobra.Command{
		Use:   "purge-expired",
		Short: "Drop archived users deleted longer ago than the retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			purged, err := opts.svc.PurgeExpired(cmd.Context(), retention)
			if err != nil {
				return err
			}
			ids := make([]int, len(purged))
			for i, e := range purged {
				ids[i] = e.User.ID
			}
			return opts.out(cmd).message(map[string]any{"purged": ids}, "purged %d archived users", len(ids))
		},
	}
	cmd.Flags().DurationVar(&retention, "retention", 30*24*time.Hour, "how long archived users are kept")
	return cmd
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", domain.ErrValidation, s)
	}
	return id, nil
}
