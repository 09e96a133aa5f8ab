package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomioM/recipe-voyage-sub000/internal/audio"
	"github.com/tomioM/recipe-voyage-sub000/internal/blob"
	"github.com/tomioM/recipe-voyage-sub000/internal/config"
	"github.com/tomioM/recipe-voyage-sub000/internal/metrics"
	"github.com/tomioM/recipe-voyage-sub000/internal/repository"
	"github.com/tomioM/recipe-voyage-sub000/internal/store"
)

// app is one opened collection: config, store, file services and the
// repository over them.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	repo    *repository.Repository
	blobs   *blob.Store
	audio   *audio.Service
	metrics *metrics.Metrics
	out     *OutputFormatter
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// withApp opens the collection, runs fn and reports any error through the
// output formatter.
func (o *RootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, cmd, o)
	if err != nil {
		return o.formatter(cmd).Fail(err)
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		return a.out.Fail(err)
	}
	return nil
}

func openApp(ctx context.Context, cmd *cobra.Command, o *RootOptions) (*app, error) {
	path := o.ConfigPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	cfg.Resolve()

	logger := config.SetupLogger(cfg, cmd.ErrOrStderr(), o.Verbose)

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create data directory", err)
	}
	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	a, err := assemble(ctx, cmd, o, cfg, logger, st)
	if err != nil {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
		return nil, err
	}
	return a, nil
}

func assemble(ctx context.Context, cmd *cobra.Command, o *RootOptions, cfg *config.Config,
	logger *slog.Logger, st *store.Store) (*app, error) {
	blobs, err := blob.New(cfg.BlobDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open photo store", err)
	}

	stdin := o.Stdin
	if stdin == nil {
		stdin = cmd.InOrStdin()
	}
	audioOpts := []audio.Option{audio.WithLogger(logger), audio.WithCapture(pipeCapture(stdin))}
	if o.AudioOutput != nil {
		audioOpts = append(audioOpts, audio.WithOutput(o.AudioOutput))
	}
	svc, err := audio.New(cfg.AudioDir, audioOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open audio directory", err)
	}

	m := metrics.New()
	repoOpts := []repository.Option{
		repository.WithLogger(logger),
		repository.WithAudio(svc),
		repository.WithBlobs(blobs),
		repository.WithMetrics(m),
		repository.WithCache(cfg.CacheSize, cfg.CacheTTL),
	}
	if o.Clock != nil {
		repoOpts = append(repoOpts, repository.WithClock(o.Clock))
	}
	if o.IDGenerator != nil {
		repoOpts = append(repoOpts, repository.WithIDGenerator(o.IDGenerator))
	}
	repo, err := repository.New(ctx, st, repoOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load collection", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		repo:    repo,
		blobs:   blobs,
		audio:   svc,
		metrics: m,
		out:     o.formatter(cmd),
	}, nil
}

// Close flushes metrics and releases the database.
func (a *app) Close() {
	a.repo.Close()
	a.flushMetrics()
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

func (a *app) flushMetrics() {
	if a.cfg.MetricsTextfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		a.logger.Warn("failed to write metrics textfile", "path", a.cfg.MetricsTextfile, "error", err)
	}
}

// pipeCapture serves raw PCM from r. Reads go through a pipe so stopping a
// recording unblocks immediately even when r is a terminal.
func pipeCapture(r io.Reader) audio.Capture {
	return func(context.Context) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			_, err := io.Copy(pw, r)
			pw.CloseWithError(err)
		}()
		return pr, nil
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// signalContext is cancelled on SIGINT or SIGTERM, or when parent is done.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan) // Prevent signal handler leak
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// parseIndex parses a 0-based position argument.
func parseIndex(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("%s: %q is not an integer", name, s))
	}
	return n, nil
}
