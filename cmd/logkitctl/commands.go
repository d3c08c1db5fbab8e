package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/handlers/amqphandler"
	"github.com/JailtonJunior94/logkit/pkg/handlers/kafkahandler"
	"github.com/JailtonJunior94/logkit/pkg/handlers/otelhandler"
	"github.com/JailtonJunior94/logkit/pkg/handlers/payload"
	"github.com/JailtonJunior94/logkit/pkg/handlers/sqlhandler"
	"github.com/JailtonJunior94/logkit/pkg/handlers/zaphandler"
	"github.com/JailtonJunior94/logkit/pkg/logging"
	"github.com/JailtonJunior94/logkit/pkg/mgmtserver"

	"github.com/spf13/cobra"
)

const defaultAddr = "localhost:9090"

var errInvalidConfiguration = errors.New("invalid configuration")

func newRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "logkitctl",
		Short: "Inspect logkit configuration and manage running loggers",
		Long: `logkitctl works offline against configuration files and file patterns,
and online against the management server of a running process:

  validate    check a .properties or .yaml configuration
  expand      render a FileHandler pattern
  levels      list the standard levels
  loggers     list the loggers of a running process
  get-level   show a logger level
  set-level   change a logger level`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	var (
		addr    string
		timeout time.Duration
		retries int
	)
	root.PersistentFlags().StringVar(&addr, "addr", defaultAddr, "management server address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().IntVar(&retries, "retries", 2, "retries for failed requests")

	client := func() *mgmtserver.Client {
		return mgmtserver.NewClient(addr, mgmtserver.WithRetry(retries, 200*time.Millisecond))
	}

	root.AddCommand(
		newValidateCommand(),
		newExpandCommand(),
		newLevelsCommand(),
		newLoggersCommand(client, &timeout),
		newGetLevelCommand(client, &timeout),
		newSetLevelCommand(client, &timeout),
	)
	return root
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a configuration file without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := logging.LoadConfigurationFile(args[0])
			if err != nil {
				return err
			}

			problems := validationManager().CheckProperties(props)
			for _, p := range problems {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%w: %d problem(s) in %s", errInvalidConfiguration, len(problems), args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d properties ok\n", args[0], len(props))
			return nil
		},
	}
}

// validationManager knows every handler and formatter name this module
// ships, so configurations that reference them check clean.
func validationManager() *logging.Manager {
	m := logging.NewManager()
	kafkahandler.Register(m)
	sqlhandler.Register(m)
	zaphandler.Register(m, nil)
	amqphandler.Register(m, nil)
	otelhandler.Register(m, nil)
	payload.Register(m)
	return m
}

func newExpandCommand() *cobra.Command {
	var (
		generation int
		unique     int
		count      int
		restricted bool
	)
	cmd := &cobra.Command{
		Use:   "expand <pattern>",
		Short: "Render a FileHandler file name pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := logging.ExpandPattern(args[0], generation, unique, count, restricted)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().IntVar(&generation, "generation", 0, "rotation generation for %g")
	cmd.Flags().IntVar(&unique, "unique", 0, "unique number for %u")
	cmd.Flags().IntVar(&count, "count", 1, "rotation file count")
	cmd.Flags().BoolVar(&restricted, "restricted", false, "reject patterns that escape the working directory")
	return cmd
}

func newLevelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List the standard levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVALUE")
			for _, lvl := range logging.StandardLevels() {
				fmt.Fprintf(w, "%s\t%d\n", lvl.Name(), lvl.Value())
			}
			return w.Flush()
		},
	}
}
