package skald

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/skald-logger/skald/config"
	"github.com/skald-logger/skald/core"
	"github.com/skald-logger/skald/metrics"
	"github.com/spf13/afero"
	"go.uber.org/zap/zapcore"
)

// Strategy decides when metrics and parameters are written to disk.
type Strategy string

const (
	// Eager persists metrics and parameters after every log call.
	Eager Strategy = "eager"
	// Lazy persists only on Save and Close.
	Lazy Strategy = "lazy"
)

// ParseStrategy resolves a strategy name; the empty string selects Eager.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return Eager, nil
	case Eager, Lazy:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedStrategy, name)
	}
}

// Options configure a run at construction. They are fixed for the lifetime
// of the run.
type Options struct {
	// BaseDir is the directory the run directory is created in.
	BaseDir string
	// RunName names the run directory. Empty means the creation time.
	RunName string
	// Strategy defaults to Eager.
	Strategy Strategy
	// Format of the metrics file, defaults to Parquet.
	Format metrics.Format

	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Echo receives a copy of the console transcript when non-nil.
	Echo io.Writer
	// DisableConsole leaves console.log empty.
	DisableConsole bool
	LogLevel       zapcore.Level

	// Now defaults to time.Now.
	Now func() time.Time
}

// OptionsFromConfig converts loaded configuration into Options.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	strategy, err := ParseStrategy(cfg.PersistenceStrategy)
	if err != nil {
		return Options{}, err
	}
	format, err := metrics.ParseFormat(cfg.MetricsFileFormat)
	if err != nil {
		return Options{}, err
	}
	level, err := core.ParseLevel(cfg.Console.Level)
	if err != nil {
		return Options{}, err
	}

	opts := Options{
		BaseDir:        cfg.BaseDir,
		RunName:        cfg.RunName,
		Strategy:       strategy,
		Format:         format,
		DisableConsole: cfg.Console.Disabled,
		LogLevel:       level,
	}
	if cfg.Console.Echo {
		opts.Echo = os.Stdout
	}
	return opts, nil
}

func (o Options) withDefaults() (Options, error) {
	if o.BaseDir == "" {
		o.BaseDir = "."
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	strategy, err := ParseStrategy(string(o.Strategy))
	if err != nil {
		return o, err
	}
	o.Strategy = strategy

	format, err := metrics.ParseFormat(string(o.Format))
	if err != nil {
		return o, err
	}
	o.Format = format
	return o, nil
}
