package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomioM/recipe-voyage-sub000/internal/autoinbox"
)

// NewAutoInboxCommand creates the autoinbox command group.
func NewAutoInboxCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoinbox",
		Short: "Resurface library recipes in the inbox",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run one auto-inbox tick now",
		Long: `Run one auto-inbox tick now.

A tick sends one random library recipe to the inbox, from a random
configured sender, but only when the inbox is empty and the library is not.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app) error {
				id, err := a.autoInboxJob().RunOnce(ctx)
				if err != nil {
					return err
				}
				if id == "" {
					return a.out.Success(result{Action: "skipped", Kind: "autoinbox"})
				}
				return a.out.Success(result{Action: "resurfaced", Kind: "recipe", ID: id})
			})
		},
	})
	return cmd
}

func (a *app) autoInboxJob() *autoinbox.Job {
	return autoinbox.New(a.repo,
		autoinbox.WithInterval(a.cfg.AutoInbox.Interval),
		autoinbox.WithSenders(a.cfg.AutoInbox.Senders...),
		autoinbox.WithLogger(a.logger),
		autoinbox.WithMetrics(a.metrics))
}

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	AutoInbox bool
	Interval  time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the collection open and run background jobs",
		Long: `Keep the collection open and run background jobs.

With auto-inbox enabled (config autoinbox.enabled or --autoinbox) a
library recipe is resurfaced on every interval while the inbox is empty.
Every change is logged and, when metrics_textfile is configured, the
metrics file is rewritten.

Example:
  voyage serve --autoinbox --interval 30m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				return serve(ctx, cmd, opts, a)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.AutoInbox, "autoinbox", false, "enable the auto-inbox job")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "auto-inbox interval (default from config)")

	return cmd
}

func serve(parent context.Context, cmd *cobra.Command, opts *ServeOptions, a *app) error {
	if cmd.Flags().Changed("autoinbox") {
		a.cfg.AutoInbox.Enabled = opts.AutoInbox
	}
	if opts.Interval > 0 {
		a.cfg.AutoInbox.Interval = opts.Interval
	}

	ctx, cancel := signalContext(parent, a.logger)
	defer cancel()

	sub := a.repo.Subscribe()
	defer sub.Close()

	if a.cfg.AutoInbox.Enabled {
		job := a.autoInboxJob()
		job.Start(ctx)
		defer job.Stop()
		a.logger.Info("auto-inbox enabled", "interval", a.cfg.AutoInbox.Interval)
	}

	snap := a.repo.Snapshot()
	a.logger.Info("serving collection",
		"db", a.cfg.Database,
		"library", len(snap.Library),
		"inbox", len(snap.Inbox))
	fmt.Fprintln(cmd.OutOrStdout(), "Serving collection. Press Ctrl-C to stop.")
	a.flushMetrics()

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				a.logger.Info("stopped gracefully")
				return nil
			}
			return WrapExitError(ExitFailure, "subscription ended", err)
		}
		a.logger.Info("collection changed",
			"op", ev.Op,
			"recipe_id", ev.RecipeID,
			"version", ev.Snapshot.Version,
			"library", len(ev.Snapshot.Library),
			"inbox", len(ev.Snapshot.Inbox))
		a.flushMetrics()
	}
}
