package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := buildRoot(newCommand())
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// buildRoot creates the root command and all subcommands
func buildRoot(c command) *cobra.Command {
	globalFlags := &GlobalFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createServeCommand(c, globalFlags),
		createDashboardCommand(c, globalFlags),
		createInstallCommand(c, globalFlags),
		createStartCommand(c, globalFlags),
		createStopCommand(c, globalFlags),
		createQuitCommand(c, globalFlags),
		createOpenCommand(c, globalFlags),
		createStatusCommand(c, globalFlags),
		createHistoryCommand(c, globalFlags),
		createHealthCommand(c, globalFlags),
		createMockRecorderCommand(c),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "pipedeck",
		Short: "Supervisor and dashboard for the screenpipe recorder",
		Long: `Pipedeck installs, starts and stops the screenpipe recorder, and shows its
health in a terminal dashboard.

Examples:
  pipedeck serve                      # Run the host that owns the recorder
  pipedeck dashboard                  # Attach the dashboard to a running host
  pipedeck dashboard --embedded       # Host and dashboard in one process
  pipedeck start -- --fps 1           # Start the recorder with flags
  pipedeck health                     # Ask the recorder directly`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

// addAPIFlags binds the remote host connection flags.
func addAPIFlags(cmd *cobra.Command, f *APIFlags, timeout time.Duration) {
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "", "host bridge URL (e.g. http://127.0.0.1:8787/api)")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", timeout, "request timeout")
}

func createServeCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the host that supervises the recorder",
		Long: `Run the host: it owns the recorder process and exposes install, start,
stop and quit over an HTTP bridge.

Examples:
  pipedeck serve
  pipedeck serve --config pipedeck.toml
  pipedeck serve --daemonize --pidfile /tmp/pipedeck.pid --logfile /tmp/pipedeck.log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			return c.Serve(cmd.Context(), *serveFlags)
		},
	}
	cmd.Flags().BoolVar(&serveFlags.Daemonize, "daemonize", false, "run as daemon in background")
	cmd.Flags().StringVar(&serveFlags.PidFile, "pidfile", "", "daemon pidfile (overrides [server].pidfile)")
	cmd.Flags().StringVar(&serveFlags.LogFile, "logfile", "", "redirect daemon output to file")
	return cmd
}

func createDashboardCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	flags := &DashboardFlags{}
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show recorder health and controls in the terminal",
		Long: `Show the recorder dashboard. By default it drives a running host over the
bridge; with --embedded it supervises the recorder itself.

Keys: i install, s start/stop, r refresh, tab settings, d/a docs, Q quit host, q leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = globalFlags.ConfigPath
			return c.Dashboard(cmd.Context(), *flags)
		},
	}
	cmd.Flags().BoolVar(&flags.Embedded, "embedded", false, "supervise the recorder in this process")
	addAPIFlags(cmd, &flags.APIFlags, 10*time.Minute)
	return cmd
}

func createInstallCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	flags := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the recorder CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = globalFlags.ConfigPath
			return c.Install(cmd.Context(), *flags)
		},
	}
	// installers download binaries and can take minutes
	addAPIFlags(cmd, flags, 10*time.Minute)
	return cmd
}

func createStartCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	flags := &StartFlags{}
	cmd := &cobra.Command{
		Use:   "start [-- recorder flags...]",
		Short: "Start the recorder",
		Long: `Start the recorder. Arguments after -- are passed to it verbatim.

Examples:
  pipedeck start
  pipedeck start -- --fps 1 --disable-audio
  pipedeck start --settings           # flags from the [settings] table`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = globalFlags.ConfigPath
			flags.Flags = args
			return c.Start(cmd.Context(), *flags)
		},
	}
	cmd.Flags().BoolVar(&flags.UseSettings, "settings", false, "render the [settings] table as recorder flags")
	addAPIFlags(cmd, &flags.APIFlags, 30*time.Second)
	return cmd
}

func createStopCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	flags := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the recorder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = globalFlags.ConfigPath
			return c.Stop(cmd.Context(), *flags)
		},
	}
	addAPIFlags(cmd, flags, 30*time.Second)
	return cmd
}

func createQuitCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	flags := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "quit",
		Short: "Stop the recorder and shut the host down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = globalFlags.ConfigPath
			return c.Quit(cmd.Context(), *flags)
		},
	}
	addAPIFlags(cmd, flags, 10*time.Second)
	return cmd
}

func createOpenCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	flags := &OpenFlags{}
	cmd := &cobra.Command{
		Use:   "open <url>",
		Short: "Open a link in the host's browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = globalFlags.ConfigPath
			flags.URL = args[0]
			return c.Open(cmd.Context(), *flags)
		},
	}
	addAPIFlags(cmd, &flags.APIFlags, 10*time.Second)
	return cmd
}

func createStatusCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	flags := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the supervised recorder process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = globalFlags.ConfigPath
			return c.Status(cmd.Context(), *flags)
		},
	}
	addAPIFlags(cmd, flags, 10*time.Second)
	return cmd
}

func createHistoryCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	flags := &HistoryFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent recorder lifecycle events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = globalFlags.ConfigPath
			return c.History(cmd.Context(), *flags)
		},
	}
	cmd.Flags().IntVar(&flags.Limit, "limit", 20, "maximum number of events")
	addAPIFlags(cmd, &flags.APIFlags, 10*time.Second)
	return cmd
}

func createHealthCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	flags := &HealthFlags{}
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the recorder's health endpoint directly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = globalFlags.ConfigPath
			return c.Health(cmd.Context(), *flags)
		},
	}
	cmd.Flags().StringVar(&flags.URL, "url", "", "health URL (overrides [recorder].health_url)")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "request timeout (overrides [recorder].health_timeout)")
	return cmd
}

func createMockRecorderCommand(c command) *cobra.Command {
	flags := &MockRecorderFlags{}
	cmd := &cobra.Command{
		Use:    "mock-recorder",
		Short:  "Serve a fake recorder health endpoint",
		Hidden: true,
		Long: `Serve a fake /health endpoint. Point [recorder].executable at a wrapper
that runs this command to exercise the supervisor without screenpipe.`,
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.MockRecorder(cmd.Context(), *flags)
		},
	}
	cmd.Flags().IntVar(&flags.Port, "port", 3030, "listen port")
	cmd.Flags().StringVar(&flags.Status, "status", "", "report this status instead of healthy")
	return cmd
}
