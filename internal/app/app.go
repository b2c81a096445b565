package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/countdown/internal/config"
	"github.com/five82/countdown/internal/countdown"
	"github.com/five82/countdown/internal/logging"
	"github.com/five82/countdown/internal/logtail"
	"github.com/five82/countdown/internal/prefs"
	"github.com/five82/countdown/internal/source"
	"github.com/five82/countdown/internal/state"
	"github.com/five82/countdown/internal/tile"
	"github.com/five82/countdown/internal/ui"
	"github.com/five82/countdown/internal/watch"
)

// Options configure the countdown application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/countdown/prefs.toml
	PollEvery  int    // seconds; zero uses the config value
}

const oneShotTimeout = 10 * time.Second

// Run boots the countdown view until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// The terminal belongs to the view, so logs go to a file.
	logger, logFile, err := logging.OpenFile(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logFile.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	src, err := source.New(cfg)
	if err != nil {
		return fmt.Errorf("init %s source: %w", cfg.Source.Kind, err)
	}
	defer closeSource(logger, src)

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	store := &state.Store{}

	w, err := watch.Start(ctx, src, store.Update,
		watch.WithLocation(loc),
		watch.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Info("view started", "source", src.Name(), "timezone", loc.String())
	defer logger.Info("view stopped")

	return ui.Run(ui.Options{
		Context:    ctx,
		Store:      store,
		SourceName: src.Name(),
		ThemeName:  userPrefs.Theme,
		PrefsPath:  opts.PrefsPath,
		Logger:     logger,
	})
}

// Tile evaluates the countdown once and writes it to out, either as the
// status-bar JSON payload or as a rendered box.
func Tile(ctx context.Context, opts Options, out io.Writer, asJSON bool) error {
	cfg, logger, err := oneShot(opts)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	src, err := source.New(cfg)
	if err != nil {
		return fmt.Errorf("init %s source: %w", cfg.Source.Kind, err)
	}
	defer closeSource(logger, src)

	ctx, cancel := context.WithTimeout(ctx, oneShotTimeout)
	defer cancel()

	t := tile.Evaluate(ctx, src, time.Now(), loc)
	logger.Debug("tile evaluated", "source", src.Name(), "kind", t.Display.Kind, "text", t.Display.Text)

	if asJSON {
		data, err := t.JSON()
		if err != nil {
			return fmt.Errorf("encode tile: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	_, err = fmt.Fprintln(out, ui.RenderTile(t.Display, userPrefs.Theme, 0))
	return err
}

// Set validates raw as a target and writes it to the configured source.
// Nothing is written when raw does not parse.
func Set(ctx context.Context, opts Options, raw string) error {
	cfg, logger, err := oneShot(opts)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	target, err := countdown.ParseTarget(raw, loc)
	if err != nil {
		return err
	}
	if !target.IsSet() {
		return fmt.Errorf("%w: target is empty (use clear to remove it)", countdown.ErrInvalidTargetFormat)
	}

	return withWriter(ctx, cfg, logger, func(ctx context.Context, w source.Writer) error {
		if err := w.Set(ctx, target.String()); err != nil {
			return fmt.Errorf("set target: %w", err)
		}
		logger.Info("target set", "target", target.String())
		return nil
	})
}

// Clear removes the target from the configured source.
func Clear(ctx context.Context, opts Options) error {
	cfg, logger, err := oneShot(opts)
	if err != nil {
		return err
	}
	return withWriter(ctx, cfg, logger, func(ctx context.Context, w source.Writer) error {
		if err := w.Clear(ctx); err != nil {
			return fmt.Errorf("clear target: %w", err)
		}
		logger.Info("target cleared")
		return nil
	})
}

// Logs writes the last n lines of the log file at or above level.
func Logs(opts Options, n int, level string, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	minLevel, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	lines, err := logtail.Read(cfg.Log.File, n)
	if err != nil {
		return err
	}
	for _, line := range logtail.FilterLevel(lines, minLevel) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollSeconds = opts.PollEvery
	}
	return cfg, nil
}

func oneShot(opts Options) (config.Config, *log.Logger, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.Stderr(cfg.Log)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logging: %w", err)
	}
	return cfg, logger, nil
}

func withWriter(ctx context.Context, cfg config.Config, logger *log.Logger, fn func(context.Context, source.Writer) error) error {
	src, err := source.New(cfg)
	if err != nil {
		return fmt.Errorf("init %s source: %w", cfg.Source.Kind, err)
	}
	defer closeSource(logger, src)

	w, ok := src.(source.Writer)
	if !ok {
		return fmt.Errorf("%s: %w", src.Name(), source.ErrReadOnly)
	}

	ctx, cancel := context.WithTimeout(ctx, oneShotTimeout)
	defer cancel()
	return fn(ctx, w)
}

func closeSource(logger *log.Logger, src source.Source) {
	if err := source.Close(src); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("close source", "source", src.Name(), "err", err)
	}
}
