package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/attendance"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

type filterFlags struct {
	user, month, year int
	date              string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.user, "user", 0, "only this user id")
	cmd.Flags().StringVar(&f.date, "date", "", "only this day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.month, "month", 0, "only this month (1-12)")
	cmd.Flags().IntVar(&f.year, "year", 0, "only this year")
}

func (f *filterFlags) filter() domain.Filter {
	return domain.Filter{UserID: f.user, Date: f.date, Month: f.month, Year: f.year}
}

func newAttendanceCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Mark, list and summarise attendance",
	}

	var mark struct {
		notes string
	}
	markCmd := &cobra.Command{
		Use:   "mark <user-id> <date> <present|absent>",
		Short: "Create or overwrite the record for a user and day",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m := attendance.Mark{UserID: id, Date: args[1], Status: domain.Status(args[2])}
			if cmd.Flags().Changed("notes") {
				m.Notes = &mark.notes
			}
			rec, created, err := opts.svc.MarkAttendance(cmd.Context(), m)
			if err != nil {
				return err
			}
			verb := "updated"
			if created {
				verb = "created"
			}
			return opts.out(cmd).message(rec, "%s record %d: user %d %s on %s", verb, rec.ID, rec.UserID, rec.Status, rec.Date)
		},
	}
	markCmd.Flags().StringVar(&mark.notes, "notes", "", "free-text notes")
	cmd.AddCommand(markCmd)

	var listFlags filterFlags
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List attendance records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := opts.svc.ListAttendanceRows(cmd.Context(), listFlags.filter())
			if err != nil {
				return err
			}
			table := make([][]string, len(rows))
			for i, r := range rows {
				notes := ""
				if r.Notes != nil {
					notes = *r.Notes
				}
				table[i] = []string{strconv.Itoa(r.ID), r.Date, r.UserEmail, string(r.Status), notes}
			}
			return opts.out(cmd).emit(rows, []string{"ID", "DATE", "USER", "STATUS", "NOTES"}, table)
		},
	}
	listFlags.bind(listCmd)
	cmd.AddCommand(listCmd)

	var statsFlags filterFlags
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise present and absent days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.svc.AttendanceStats(cmd.Context(), statsFlags.filter())
			if err != nil {
				return err
			}
			return opts.out(cmd).emit(st, []string{"TOTAL", "PRESENT", "ABSENT", "PRESENT %", "ABSENT %"}, [][]string{{
				strconv.Itoa(st.Total), strconv.Itoa(st.Present), strconv.Itoa(st.Absent),
				fmt.Sprintf("%.2f", st.PresentPercentage), fmt.Sprintf("%.2f", st.AbsentPercentage),
			}})
		},
	}
	statsFlags.bind(statsCmd)
	cmd.AddCommand(statsCmd)

	return cmd
}
