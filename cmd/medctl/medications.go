package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/medtracker/internal/app"
	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/schedule"
	"github.com/jwalitptl/medtracker/pkg/client"
)

func (c *cli) openSession(ctx context.Context, opts ...app.SessionOption) (*app.Session, error) {
	opts = append([]app.SessionOption{
		app.WithSessionLogger(c.log),
		app.WithPermission(c.permission()),
	}, opts...)
	sess := app.NewSession(c.userID, c.client, opts...)
	if err := sess.Open(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// mutate loads the document, applies one command and saves the result before returning.
func (c *cli) mutate(ctx context.Context, fn func(app.State) (app.State, error)) (app.State, error) {
	sess, err := c.openSession(ctx)
	if err != nil {
		return app.State{}, err
	}
	if err := sess.Apply(fn); err != nil {
		_ = sess.Close()
		return app.State{}, err
	}
	if err := sess.Close(); err != nil {
		return app.State{}, err
	}
	return sess.State(), nil
}

// resolveID accepts a 1-based list position, a full id or a unique id prefix.
func resolveID(st app.State, arg string) (string, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(st.Medications) {
			return "", fmt.Errorf("no medication at position %d", n)
		}
		return st.Medications[n-1].ID, nil
	}

	var match string
	for _, m := range st.Medications {
		if m.ID == arg {
			return m.ID, nil
		}
		if strings.HasPrefix(m.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("%q matches more than one medication", arg)
			}
			match = m.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no medication matches %q", arg)
	}
	return match, nil
}

func resolveIDs(st app.State, args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id, err := resolveID(st, arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print this profile's user id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(c.out, "%s\nserver: %s\nprofile: %s\n", c.userID, c.cfg.ServerURL, c.cfg.Home)
			return nil
		},
	}
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List medications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			return printMedications(c, sess.State())
		},
	}
}

func printMedications(c *cli, st app.State) error {
	if len(st.Medications) == 0 {
		_, err := fmt.Fprintln(c.out, "No medications yet. Add one with `medctl add` or `medctl scan`.")
		return err
	}

	t := newTable("#", "ID", "NAME", "DOSAGE", "TAKEN", "DOSES", "REMINDER")
	for i, m := range st.Medications {
		taken := "[ ]"
		if m.Taken {
			taken = "[x]"
		}
		t.Row(strconv.Itoa(i+1), shortID(m.ID), m.Name, m.Dosage, taken, doses(st, m), schedule.Describe(m.Reminder))
	}

	_, err := fmt.Fprintf(c.out, "%s\n\nToday: %s\n", t.Render(), progressBar(todayPercent(st)))
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func doses(st app.State, m model.Medication) string {
	n := st.DosesTaken(m.ID)
	if m.TotalQuantity != nil {
		return fmt.Sprintf("%d/%s", n, strconv.FormatFloat(*m.TotalQuantity, 'f', -1, 64))
	}
	return strconv.Itoa(n)
}

func newAddCmd(c *cli) *cobra.Command {
	var p model.ParsedMedication
	var total float64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a medication by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("total") {
				p.TotalQuantity = &total
			}
			var added model.Medication
			_, err := c.mutate(cmd.Context(), func(st app.State) (app.State, error) {
				next, med, err := st.AddManual(p)
				added = med
				return next, err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Added %s (%s)\n", added.Name, shortID(added.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "medication name (required)")
	cmd.Flags().StringVar(&p.Dosage, "dosage", "", "dosage, e.g. 500mg")
	cmd.Flags().StringVar(&p.Quantity, "quantity", "", "quantity per dose, e.g. 1 tablet")
	cmd.Flags().StringVar(&p.Instructions, "instructions", "", "how to take it")
	cmd.Flags().Float64Var(&total, "total", 0, "total doses prescribed")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newScanCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Extract medications from a prescription photo or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fmt.Fprintln(c.out, "Analyzing prescription...")
			found, err := c.client.Extract(cmd.Context(), filepath.Base(args[0]), f)
			if errors.Is(err, client.ErrNothingFound) {
				fmt.Fprintln(c.out, err.Error())
				return nil
			}
			if err != nil {
				return err
			}

			accepted := found
			if !yes {
				accepted = review(c, found)
			}
			if len(accepted) == 0 {
				fmt.Fprintln(c.out, "Nothing added.")
				return nil
			}

			if _, err := c.mutate(cmd.Context(), func(st app.State) (app.State, error) {
				return st.AddReviewed(accepted), nil
			}); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Added %d medication(s).\n", len(accepted))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "accept every extracted medication")
	return cmd
}

// review asks about each candidate; an empty answer accepts.
func review(c *cli, found []model.ParsedMedication) []model.ParsedMedication {
	in := bufio.NewScanner(c.in)
	var accepted []model.ParsedMedication
	for i, p := range found {
		fmt.Fprintf(c.out, "%d. %s %s", i+1, p.Name, p.Dosage)
		if p.Quantity != "" {
			fmt.Fprintf(c.out, ", %s", p.Quantity)
		}
		if p.Instructions != "" {
			fmt.Fprintf(c.out, " (%s)", p.Instructions)
		}
		fmt.Fprint(c.out, "\n   Add? [Y/n] ")
		answer := ""
		if in.Scan() {
			answer = strings.ToLower(strings.TrimSpace(in.Text()))
		}
		if answer == "" || answer == "y" || answer == "yes" {
			accepted = append(accepted, p)
		}
	}
	return accepted
}

func newToggleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <medication>",
		Short: "Mark a medication taken, or undo it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			var taken bool
			_, err := c.mutate(cmd.Context(), func(st app.State) (app.State, error) {
				id, err := resolveID(st, args[0])
				if err != nil {
					return st, err
				}
				next, err := st.ToggleTaken(id, c.now())
				if err != nil {
					return st, err
				}
				med, _ := next.Find(id)
				name, taken = med.Name, med.Taken
				return next, nil
			})
			if err != nil {
				return err
			}
			if taken {
				fmt.Fprintf(c.out, "%s marked as taken\n", name)
			} else {
				fmt.Fprintf(c.out, "%s marked as not taken\n", name)
			}
			return nil
		},
	}
}

func newMarkTakenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-taken <medication>...",
		Short: "Mark several medications taken",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.mutate(cmd.Context(), func(st app.State) (app.State, error) {
				ids, err := resolveIDs(st, args)
				if err != nil {
					return st, err
				}
				return st.BulkMarkTaken(ids, c.now()), nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Marked %d medication(s) as taken\n", len(args))
			return nil
		},
	}
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <medication>...",
		Aliases: []string{"rm"},
		Short:   "Delete medications and their history",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.mutate(cmd.Context(), func(st app.State) (app.State, error) {
				ids, err := resolveIDs(st, args)
				if err != nil {
					return st, err
				}
				return st.BulkDelete(ids), nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted %d medication(s)\n", len(args))
			return nil
		},
	}
}

func newRemindCmd(c *cli) *cobra.Command {
	var times []string
	var days string
	var clearReminder bool

	cmd := &cobra.Command{
		Use:   "remind <medication>",
		Short: "Set or clear a medication's reminder",
		Example: `  medctl remind 1 --at 08:00 --at 20:00
  medctl remind 2 --at 09:30 --days mon,wed,fri
  medctl remind 2 --clear`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reminder, err := buildReminder(times, days, clearReminder)
			if err != nil {
				return err
			}

			var med model.Medication
			_, err = c.mutate(cmd.Context(), func(st app.State) (app.State, error) {
				id, err := resolveID(st, args[0])
				if err != nil {
					return st, err
				}
				next, err := st.SetReminder(id, reminder)
				if err != nil {
					return st, err
				}
				med, _ = next.Find(id)
				return next, nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s: %s\n", med.Name, schedule.Describe(med.Reminder))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&times, "at", nil, "time of day, HH:MM (repeatable)")
	cmd.Flags().StringVar(&days, "days", "", "comma separated weekdays; omit for daily")
	cmd.Flags().BoolVar(&clearReminder, "clear", false, "remove the reminder")
	return cmd
}

func buildReminder(times []string, days string, remove bool) (*model.Reminder, error) {
	if remove {
		return nil, nil
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("give at least one --at time, or --clear")
	}

	r := &model.Reminder{Times: times, Frequency: model.FrequencyDaily}
	if strings.TrimSpace(days) == "" {
		return r, nil
	}
	r.Frequency = model.FrequencySpecificDays
	for _, d := range strings.Split(days, ",") {
		if strings.TrimSpace(d) == "" {
			continue
		}
		n, err := schedule.ParseWeekday(d)
		if err != nil {
			return nil, err
		}
		r.Days = append(r.Days, n)
	}
	return r, nil
}
