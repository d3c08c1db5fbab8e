package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/mgmtserver"

	"github.com/spf13/cobra"
)

type clientFunc func() *mgmtserver.Client

func newLoggersCommand(client clientFunc, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "loggers",
		Short: "List the loggers of a running process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			defer cancel()

			names, err := client().LoggerNames(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), displayName(name))
			}
			return nil
		},
	}
}

func newGetLevelCommand(client clientFunc, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "get-level [logger]",
		Short: "Show the level of a logger, the root logger when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			defer cancel()

			resp, err := client().LoggerLevel(ctx, argOrRoot(args))
			if err != nil {
				return err
			}
			return printLevel(cmd.OutOrStdout(), resp)
		},
	}
}

func newSetLevelCommand(client clientFunc, timeout *time.Duration) *cobra.Command {
	var inherit bool
	cmd := &cobra.Command{
		Use:   "set-level <logger> [level]",
		Short: "Change the level of a logger",
		Long:  `Use "" as the logger name for the root logger and --inherit to clear an explicit level.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := ""
			switch {
			case inherit && len(args) == 2:
				return fmt.Errorf("--inherit takes no level")
			case !inherit && len(args) < 2:
				return fmt.Errorf("a level is required unless --inherit is set")
			case !inherit:
				level = args[1]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			defer cancel()

			resp, err := client().SetLoggerLevel(ctx, args[0], level)
			if err != nil {
				return err
			}
			return printLevel(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().BoolVar(&inherit, "inherit", false, "clear the explicit level")
	return cmd
}

func printLevel(out io.Writer, resp mgmtserver.LoggerLevelResponse) error {
	level := resp.Level
	if level == "" {
		level = "(inherited)"
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "logger\t%s\n", displayName(resp.Logger))
	fmt.Fprintf(w, "level\t%s\n", level)
	fmt.Fprintf(w, "effective\t%s\n", resp.EffectiveLevel)
	if resp.Logger != "" {
		fmt.Fprintf(w, "parent\t%s\n", displayName(resp.Parent))
	}
	return w.Flush()
}

func displayName(name string) string {
	if name == "" {
		return "<root>"
	}
	return name
}

func argOrRoot(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
