// Command medctl is the terminal client for the medication tracker.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/medtracker/internal/app"
	"github.com/jwalitptl/medtracker/pkg/client"
	"github.com/jwalitptl/medtracker/pkg/logger"
)

// cliConfig is read from MEDCTL_* environment variables only; no unprefixed fallbacks.
type cliConfig struct {
	ServerURL string `split_words:"true" default:"http://localhost:8080"`
	Home      string
	LogLevel  string        `split_words:"true" default:"warn"`
	Timeout   time.Duration `default:"60s"`
	TZ        string
}

type cli struct {
	cfg    cliConfig
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	log    zerolog.Logger
	loc    *time.Location
	client *client.Client
	userID string
	now    func() time.Time
}

func newCLI(in io.Reader, out, errOut io.Writer) *cli {
	return &cli{in: in, out: out, errOut: errOut, log: zerolog.Nop(), now: time.Now}
}

func (c *cli) setup() error {
	if err := envconfig.Process("medctl", &c.cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.cfg.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot locate home directory, set MEDCTL_HOME: %w", err)
		}
		c.cfg.Home = filepath.Join(home, ".medtracker")
	}

	c.log = logger.New(logger.Config{Level: c.cfg.LogLevel, Format: "console", Output: c.errOut})

	loc, err := c.location()
	if err != nil {
		return err
	}
	c.loc = loc

	userID, err := app.LoadOrCreateUserID(c.cfg.Home)
	if err != nil {
		return err
	}
	c.userID = userID
	c.client = client.New(c.cfg.ServerURL, client.WithTimeout(c.cfg.Timeout))
	return nil
}

// location picks MEDCTL_TZ, then TZ, then the system zone.
func (c *cli) location() (*time.Location, error) {
	name := c.cfg.TZ
	if name == "" {
		name = os.Getenv("TZ")
	}
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", name, err)
	}
	return loc, nil
}

// zoneName is the IANA name sent to the server, empty when only the system zone is known.
func (c *cli) zoneName() string {
	if c.loc == nil || c.loc == time.Local {
		return ""
	}
	return c.loc.String()
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "medctl",
		Short:         "Track medications, doses and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.SetIn(c.in)
	root.SetOut(c.out)

	root.AddCommand(
		newWhoamiCmd(c),
		newListCmd(c),
		newAddCmd(c),
		newScanCmd(c),
		newToggleCmd(c),
		newMarkTakenCmd(c),
		newDeleteCmd(c),
		newRemindCmd(c),
		newHistoryCmd(c),
		newProgressCmd(c),
		newRemindersCmd(c),
		newNotificationsCmd(c),
		newWatchCmd(c),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newCLI(os.Stdin, os.Stdout, os.Stderr)
	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
