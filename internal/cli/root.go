// Package cli builds the jackautoplug command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"jackautoplug/config"
	"jackautoplug/daemon"
	"jackautoplug/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const description = "Ensures that a certain set of JACK ports are always connected to each other (if they are present)."

// connFlags holds the connection settings shared by every command.
type connFlags struct {
	configPath string
	cfg        config.Config
}

func (f *connFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML file with connection settings")
	fs.StringVarP(&f.cfg.FromClient, "from-client", "f", "", "name of JACK client owning the source ports")
	fs.StringVarP(&f.cfg.ToClient, "to-client", "t", "", "name of JACK client owning the destination ports")
	fs.StringArrayVarP(&f.cfg.FromPorts, "from-port", "F", nil,
		"name of source port (give more than once to connect multiple ports)")
	fs.StringArrayVarP(&f.cfg.ToPorts, "to-port", "T", nil,
		"name of destination port (give more than once to connect multiple ports)")
	fs.StringVar(&f.cfg.ClientName, "client-name", "", `JACK client name (default "`+config.DefaultClientName+`")`)
	fs.BoolVar(&f.cfg.StartServer, "start-server", false, "start a JACK server if none is running")
}

// resolve loads the config file, if any, and applies the flags on top.
func (f *connFlags) resolve() (config.Config, error) {
	var base config.Config
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		base = loaded
	}
	return base.Merge(f.cfg), nil
}

// NewRootCmd returns the jackautoplug command. open obtains the graph
// runtime; it is never called when the arguments are invalid.
func NewRootCmd(open daemon.Opener) *cobra.Command {
	var (
		flags  connFlags
		listen string
		debug  bool
	)

	cmd := &cobra.Command{
		Use:           "jackautoplug",
		Short:         "Keep JACK ports connected",
		Long:          description,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelInfo
			if debug {
				level = logging.LevelDebug
			}
			return logging.ConfigureWriter(cmd.ErrOrStderr(), level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			return daemon.Run(cmd.Context(), cfg, open)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w (try --help)", err)
	})

	flags.bind(cmd.PersistentFlags())
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&listen, "listen", "", "serve health, metrics and pair status on this address")

	cmd.AddCommand(checkCmd(&flags, open))
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string, open daemon.Opener, stdout, stderr io.Writer) int {
	root := NewRootCmd(open)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	// Help wins over every other validation, including unknown flags.
	if wantsHelp(args) {
		target, _, err := root.Find(args)
		if err != nil || target == nil {
			target = root
		}
		if err := target.Help(); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func wantsHelp(args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == "-h" || a == "--help" {
			return true
		}
	}
	return false
}
