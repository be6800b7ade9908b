package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/medtracker/internal/adherence"
	"github.com/jwalitptl/medtracker/internal/app"
	progresssvc "github.com/jwalitptl/medtracker/internal/service/progress"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true)
	mutedStyle       = lipgloss.NewStyle().Faint(true)
	fullStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	partialStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	noneStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	unscheduledStyle = lipgloss.NewStyle().Faint(true)
	todayStyle       = lipgloss.NewStyle().Underline(true).Bold(true)
	cellStyle        = lipgloss.NewStyle().Padding(0, 1)
)

func todayPercent(st app.State) float64 {
	return adherence.TodayProgress(st.Medications)
}

var todayBar = progress.New(
	progress.WithSolidFill("#8BC34A"),
	progress.WithWidth(26),
)

// progressBar renders percent (0..100) as a static bar followed by the percentage.
func progressBar(percent float64) string {
	return todayBar.ViewAs(percent / 100)
}

// newTable returns a table with a bold header row and muted borders.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle.Padding(0, 1)
			}
			return cellStyle
		})
}

func statusStyle(s adherence.Status) lipgloss.Style {
	switch s {
	case adherence.StatusFull:
		return fullStyle
	case adherence.StatusPartial:
		return partialStyle
	case adherence.StatusNone:
		return noneStyle
	}
	return unscheduledStyle
}

// renderCalendar draws the month grid, one week per row starting on Sunday.
func renderCalendar(cells []adherence.Cell) string {
	var sb strings.Builder
	for _, d := range []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"} {
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("%3s", d)))
	}
	sb.WriteByte('\n')

	for i, cell := range cells {
		switch {
		case cell.Blank:
			sb.WriteString("   ")
		default:
			style := statusStyle(cell.Status)
			if cell.IsToday {
				style = style.Inherit(todayStyle)
			}
			sb.WriteString(" ")
			sb.WriteString(style.Render(fmt.Sprintf("%2d", cell.Day)))
		}
		if i%7 == 6 {
			sb.WriteByte('\n')
		}
	}
	if len(cells)%7 != 0 {
		sb.WriteByte('\n')
	}
	return sb.String()
}

func legend() string {
	return strings.Join([]string{
		fullStyle.Render("all taken"),
		partialStyle.Render("some taken"),
		noneStyle.Render("missed"),
		unscheduledStyle.Render("nothing scheduled"),
	}, "  ")
}

// parseMonth accepts YYYY-MM; empty means the current month.
func parseMonth(s string) (int, time.Month, error) {
	if s == "" {
		return 0, 0, nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("month must look like 2026-10, got %q", s)
	}
	return t.Year(), t.Month(), nil
}

func newProgressCmd(c *cli) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show 30-day compliance and the monthly calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			year, m, err := parseMonth(month)
			if err != nil {
				return err
			}
			report, err := c.client.Progress(cmd.Context(), c.userID, year, m, c.zoneName())
			if err != nil {
				return err
			}
			printReport(c, report)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month to show, YYYY-MM")
	return cmd
}

func printReport(c *cli, r *progresssvc.Report) {
	title := time.Date(r.Year, r.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
	fmt.Fprintln(c.out, titleStyle.Render(title))
	fmt.Fprint(c.out, renderCalendar(r.Calendar))
	fmt.Fprintln(c.out, legend())
	fmt.Fprintf(c.out, "\n30-day compliance: %d%%\n", r.Compliance)
	fmt.Fprintf(c.out, "Today (%s): %s\n", r.Today, progressBar(r.TodayProgress))
}

func newRemindersCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reminders",
		Short: "Show when each reminder fires next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			upcoming, err := c.client.Reminders(cmd.Context(), c.userID, c.zoneName())
			if err != nil {
				return err
			}
			if len(upcoming) == 0 {
				fmt.Fprintln(c.out, "No reminders set.")
				return nil
			}
			t := newTable("NEXT", "MEDICATION", "SCHEDULE")
			for _, u := range upcoming {
				t.Row(u.FireAt.In(c.loc).Format("Mon Jan 2 15:04"), u.Name, u.Schedule)
			}
			_, err = fmt.Fprintln(c.out, t.Render())
			return err
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show doses taken, grouped by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearAll {
				if _, err := c.mutate(cmd.Context(), func(st app.State) (app.State, error) {
					return st.ClearHistory(), nil
				}); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "History cleared")
				return nil
			}

			sess, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			groups := app.GroupHistoryByDay(sess.State().History, c.loc)
			if len(groups) == 0 {
				fmt.Fprintln(c.out, "No doses recorded yet.")
				return nil
			}
			for _, g := range groups {
				fmt.Fprintln(c.out, titleStyle.Render(g.Date.Format("Monday, January 2, 2006")))
				for _, e := range g.Entries {
					fmt.Fprintf(c.out, "  %s  %s\n", e.TakenAt.In(c.loc).Format("15:04"), e.MedicationName)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete the whole history")
	return cmd
}
