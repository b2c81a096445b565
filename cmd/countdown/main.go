package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/countdown/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "countdown: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:           "countdown",
		Short:         "Count down to a shared target date",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/countdown/config.toml)")
	root.PersistentFlags().IntVar(&opts.PollEvery, "poll", 0, "source refresh interval in seconds (default from config)")

	root.AddCommand(
		newTileCmd(&opts),
		newSetCmd(&opts),
		newClearCmd(&opts),
		newLogsCmd(&opts),
	)
	return root
}

func newTileCmd(opts *app.Options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tile",
		Short: "Print the countdown once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Tile(cmd.Context(), *opts, cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a status-bar JSON payload")
	return cmd
}

func newSetCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:     `set "yyyy-MM-dd HH:mm"`,
		Short:   "Set the target date",
		Example: `  countdown set "2030-01-01 00:00"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Set(cmd.Context(), *opts, args[0])
		},
	}
}

func newClearCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the target date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Clear(cmd.Context(), *opts)
		},
	}
}

func newLogsCmd(opts *app.Options) *cobra.Command {
	var (
		lines int
		level string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the tail of the log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Logs(*opts, lines, level, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines (0 for all)")
	cmd.Flags().StringVar(&level, "level", "debug", "minimum level (debug, info, warn, error)")
	return cmd
}
