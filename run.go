// Package skald is a small experiment logger. A Run owns one directory
// holding a console transcript, a metrics table, a parameter file and an
// artifacts folder:
//
//	<base_dir>/<run_name>/
//	  console.log
//	  metrics.{csv|parquet}
//	  params.yaml
//	  artifacts/
package skald

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/skald-logger/skald/core"
	"github.com/skald-logger/skald/metrics"
	"github.com/skald-logger/skald/params"
	"github.com/skald-logger/skald/table"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// Version is recorded under KeyVersion in every run.
	Version = "v1"

	KeyTimestamp = "skald.timestamp"
	KeyRunName   = "skald.run_name"
	KeyVersion   = "skald.version"

	ConsoleFile  = "console.log"
	ArtifactsDir = "artifacts"

	runNameLayout   = "20060102-150405"
	timestampLayout = "2006-01-02 15:04:05.000000"
)

// IDs identify a metric value, e.g. IDs{"step": 1, "stage": "train"}.
type IDs = metrics.IDs

type state int

const (
	stateActive state = iota
	stateClosed
)

// Run is a single experiment with its own directory. A Run is not safe for
// concurrent use and assumes it is the only writer of its directory.
type Run struct {
	fs        afero.Fs
	name      string
	dir       string
	timestamp time.Time
	strategy  Strategy

	metrics *metrics.Store
	params  *params.Store

	logger  *zap.Logger
	console afero.File
	state   state
}

// New creates the run directory and writes the initial, empty metrics and
// parameter files. It fails with ErrRunExists if the directory exists.
func New(opts Options) (*Run, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	ts := opts.Now()
	name := opts.RunName
	if name == "" {
		name = ts.Format(runNameLayout)
	}
	if err := validateRunName(name); err != nil {
		return nil, err
	}

	fs := opts.Fs
	dir := filepath.Join(opts.BaseDir, name)
	if err := fs.MkdirAll(opts.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory %s: %w", opts.BaseDir, err)
	}
	if _, err := fs.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrRunExists, dir)
	}
	if err := fs.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrRunExists, dir)
		}
		return nil, fmt.Errorf("create run directory %s: %w", dir, err)
	}

	console, err := fs.Create(filepath.Join(dir, ConsoleFile))
	if err != nil {
		return nil, fmt.Errorf("create console log: %w", err)
	}
	var sinks []afero.File
	if !opts.DisableConsole {
		sinks = append(sinks, console)
	}
	logger := newRunLogger(opts, sinks)

	r := &Run{
		fs:        fs,
		name:      name,
		dir:       dir,
		timestamp: ts,
		strategy:  opts.Strategy,
		params:    params.NewStore(fs, dir),
		logger:    logger,
		console:   console,
	}
	r.logger.Info(fmt.Sprintf("📂 logging to %s", dir))

	if err := r.init(opts.Format); err != nil {
		logger.Sync()
		console.Close()
		return nil, err
	}
	return r, nil
}

func (r *Run) init(format metrics.Format) error {
	for k, v := range map[string]any{
		KeyTimestamp: r.timestamp.Format(timestampLayout),
		KeyRunName:   r.name,
		KeyVersion:   Version,
	} {
		if err := r.params.Set(k, v); err != nil {
			return err
		}
	}
	if err := r.params.Flush(); err != nil {
		return err
	}

	store, err := metrics.NewStore(r.fs, r.dir, format)
	if err != nil {
		return err
	}
	r.metrics = store
	if err := r.metrics.Flush(); err != nil {
		return err
	}

	if err := r.fs.Mkdir(r.ArtifactsDir(), 0o755); err != nil {
		return fmt.Errorf("create artifacts directory: %w", err)
	}
	return nil
}

func validateRunName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: run name %q", core.ErrInvalidName, name)
	}
	return nil
}

// WithRun creates a run, calls fn and closes the run on every exit path,
// including panics. The context passed to fn carries the run's logger for
// core.Infof and friends.
func WithRun(ctx context.Context, opts Options, fn func(ctx context.Context, r *Run) error) (err error) {
	r, err := New(opts)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("run aborted by panic", zap.Any("panic", p))
			// Close logs a failed final flush itself before the console closes
			r.Close()
			panic(p)
		}
		err = errors.Join(err, r.Close())
	}()
	return fn(r.Context(ctx), r)
}

// Context returns parent carrying the run's console logger.
func (r *Run) Context(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return core.WithDefaultLogger(parent, r.logger, r.name)
}

func (r *Run) checkActive() error {
	if r.state == stateClosed {
		return fmt.Errorf("%w: %s", core.ErrRunClosed, r.name)
	}
	return nil
}

// persist flushes stores under the Eager strategy.
func (r *Run) persist(stores ...core.Flusher) error {
	if r.strategy != Eager {
		return nil
	}
	return flush(stores...)
}

func flush(stores ...core.Flusher) error {
	for _, s := range stores {
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// 📈 Metrics

// LogMetric appends one metric row identified by ids.
func (r *Run) LogMetric(name string, value float64, ids IDs) error {
	if err := r.checkActive(); err != nil {
		return err
	}
	if err := r.metrics.Log(name, value, ids); err != nil {
		return err
	}
	return r.persist(r.metrics)
}

// LogScalar is an alias of LogMetric.
func (r *Run) LogScalar(name string, value float64, ids IDs) error {
	return r.LogMetric(name, value, ids)
}

// LogMetrics appends one row per entry of values, in name order, all sharing
// ids. Under Eager the metrics file is written once.
func (r *Run) LogMetrics(values map[string]float64, ids IDs) error {
	if err := r.checkActive(); err != nil {
		return err
	}
	names := make([]string, 0, len(values))
	for name := range values {
		if name == "" {
			return fmt.Errorf("%w: metric name is empty", core.ErrInvalidName)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.metrics.Log(name, values[name], ids); err != nil {
			return err
		}
	}
	return r.persist(r.metrics)
}

// LogScalars is an alias of LogMetrics.
func (r *Run) LogScalars(values map[string]float64, ids IDs) error {
	return r.LogMetrics(values, ids)
}

// LogDict is an alias of LogMetrics.
func (r *Run) LogDict(values map[string]float64, ids IDs) error {
	return r.LogMetrics(values, ids)
}

// ⚙️ Parameters

// LogParam sets a single parameter, overwriting an existing value.
func (r *Run) LogParam(name string, value any) error {
	if err := r.checkActive(); err != nil {
		return err
	}
	if err := r.params.Set(name, value); err != nil {
		return err
	}
	return r.persist(r.params)
}

// LogArg is an alias of LogParam.
func (r *Run) LogArg(name string, value any) error {
	return r.LogParam(name, value)
}

// LogParams flattens a possibly nested mapping with separator (default ".")
// and sets every leaf.
func (r *Run) LogParams(values map[string]any, separator string) error {
	if err := r.checkActive(); err != nil {
		return err
	}
	if err := r.params.SetAll(values, separator); err != nil {
		return err
	}
	return r.persist(r.params)
}

// LogArgs is an alias of LogParams.
func (r *Run) LogArgs(values map[string]any, separator string) error {
	return r.LogParams(values, separator)
}

// 💾 Saving to disk

// Save writes metrics and parameters regardless of the strategy. The run
// stays open.
func (r *Run) Save() error {
	if err := r.checkActive(); err != nil {
		return err
	}
	if r.strategy == Eager {
		r.logger.Info("there is no need to call Save when using the eager persistence strategy")
	}
	return flush(r.metrics, r.params)
}

// Close writes metrics and parameters one final time and closes the console
// transcript. Further log calls fail with ErrRunClosed. Calling Close again
// rewrites the same content.
func (r *Run) Close() error {
	if r.state == stateClosed {
		return flush(r.metrics, r.params)
	}
	err := flush(r.metrics, r.params)
	if err != nil {
		r.logger.Error("final flush failed", zap.Error(err))
	}
	r.state = stateClosed

	r.logger.Sync()
	if cerr := r.console.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close console log: %w", cerr))
	}
	r.logger = zap.NewNop()
	return err
}

// 🔎 Accessors

func (r *Run) Name() string           { return r.name }
func (r *Run) Dir() string            { return r.dir }
func (r *Run) Timestamp() time.Time   { return r.timestamp }
func (r *Run) Strategy() Strategy     { return r.strategy }
func (r *Run) Format() metrics.Format { return r.metrics.Format() }
func (r *Run) MetricsFile() string    { return r.metrics.Path() }
func (r *Run) ParamsFile() string     { return r.params.Path() }
func (r *Run) ConsoleFile() string    { return filepath.Join(r.dir, ConsoleFile) }
func (r *Run) ArtifactsDir() string   { return filepath.Join(r.dir, ArtifactsDir) }
func (r *Run) Closed() bool           { return r.state == stateClosed }

// Metrics returns a copy of the metric table.
func (r *Run) Metrics() *table.Table {
	return r.metrics.Table()
}

// Params returns a copy of the parameter map.
func (r *Run) Params() map[string]any {
	return r.params.Values()
}

// MetricsWithParams returns the metric table with every parameter added as a
// constant column.
func (r *Run) MetricsWithParams() (*table.Table, error) {
	return r.metrics.WithParams(r.params.Values())
}

// IsRun reports whether dir looks like a run directory.
func IsRun(fs afero.Fs, dir string) bool {
	isFile := func(name string) bool {
		fi, err := fs.Stat(filepath.Join(dir, name))
		return err == nil && !fi.IsDir()
	}
	fi, err := fs.Stat(filepath.Join(dir, ArtifactsDir))
	if err != nil || !fi.IsDir() {
		return false
	}
	return isFile(ConsoleFile) && isFile(params.FileName) &&
		(isFile(metrics.CSV.FileName()) || isFile(metrics.Parquet.FileName()))
}
