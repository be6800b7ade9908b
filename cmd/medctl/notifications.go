package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/medtracker/internal/app"
	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/notify"
)

const permissionFile = "permission"

// permission is the stored notification permission of this profile.
func (c *cli) permission() model.Permission {
	b, err := os.ReadFile(filepath.Join(c.cfg.Home, permissionFile))
	if err != nil {
		return model.PermissionDefault
	}
	if p, ok := model.ParsePermission(strings.TrimSpace(string(b))); ok {
		return p
	}
	return model.PermissionDefault
}

func (c *cli) setPermission(p model.Permission) error {
	if err := os.MkdirAll(c.cfg.Home, 0o700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.cfg.Home, permissionFile), []byte(string(p)+"\n"), 0o600)
}

func newNotificationsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "notifications [status|enable|disable|reset]",
		Short:     "Manage reminder notifications for this profile",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"status", "enable", "disable", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "status"
			if len(args) == 1 {
				action = args[0]
			}

			var next model.Permission
			switch action {
			case "status":
				fmt.Fprintf(c.out, "Notifications: %s\n", c.permission())
				return nil
			case "enable":
				next = model.PermissionGranted
			case "disable":
				next = model.PermissionDenied
			case "reset":
				if err := c.setPermission(model.PermissionDefault); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "Notifications: default")
				return nil
			default:
				return fmt.Errorf("unknown action %q", action)
			}

			// A denied permission stays denied until reset, like a browser setting.
			sess := app.NewSession(c.userID, c.client, app.WithPermission(c.permission()))
			got := sess.RequestPermission(next)
			if err := c.setPermission(got); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Notifications: %s\n", got)
			if got != next {
				fmt.Fprintln(c.out, "Notifications were blocked earlier; run `medctl notifications reset` first.")
			}
			return nil
		},
	}
	return cmd
}

func newWatchCmd(c *cli) *cobra.Command {
	var refresh time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay running and print reminders as they come due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if refresh <= 0 {
				return fmt.Errorf("--refresh must be positive")
			}
			ctx := cmd.Context()
			sch := notify.NewScheduler(
				notify.Multi(notify.NewWriterNotifier(c.out), notify.NewLogNotifier(c.log)),
				notify.WithOwner(c.userID),
				notify.WithLogger(c.log),
			)
			sess, err := c.openSession(ctx, app.WithScheduler(sch))
			if err != nil {
				return err
			}
			defer sess.Close()

			if sess.Permission() != model.PermissionGranted {
				fmt.Fprintln(c.out, "Notifications are not enabled; run `medctl notifications enable`.")
			}
			fmt.Fprintf(c.out, "Watching %d reminder(s). Press Ctrl+C to stop.\n", len(sch.Pending()))

			ticker := time.NewTicker(refresh)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					// Pick up changes made from other devices.
					if err := sess.Open(ctx); err != nil {
						c.log.Warn().Err(err).Msg("Failed to refresh medications")
					}
				}
			}
		},
	}
	cmd.Flags().DurationVar(&refresh, "refresh", time.Minute, "how often to reload medications")
	return cmd
}
