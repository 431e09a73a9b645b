package skald

import (
	"fmt"
	"io"

	"github.com/skald-logger/skald/metrics"
)

// Entry is one of Metric, Metrics, Param, Params, Artifact or Message.
type Entry interface {
	entry()
}

// Metric logs a single metric. Value may be any Go numeric type.
type Metric struct {
	Name  string
	Value any
	IDs   IDs
}

// Metrics logs one metric per entry of Values, all sharing IDs.
type Metrics struct {
	Values map[string]any
	IDs    IDs
}

// Param sets a single parameter.
type Param struct {
	Name  string
	Value any
}

// Params flattens Values with Separator and sets every leaf.
type Params struct {
	Values    map[string]any
	Separator string
}

// Artifact saves Data under Name in the artifacts directory.
type Artifact struct {
	Name string
	Data io.Reader
}

// Message is written to the console transcript at info level.
type Message string

func (Metric) entry()   {}
func (Metrics) entry()  {}
func (Param) entry()    {}
func (Params) entry()   {}
func (Artifact) entry() {}
func (Message) entry()  {}

// Log routes each entry to the matching operation and stops at the first
// error.
func (r *Run) Log(entries ...Entry) error {
	for _, e := range entries {
		if err := r.dispatch(e); err != nil {
			return err
		}
	}
	return nil
}

func (r *Run) dispatch(e Entry) error {
	switch x := e.(type) {
	case Metric:
		v, err := metrics.ToFloat(x.Value)
		if err != nil {
			return fmt.Errorf("metric %q: %w", x.Name, err)
		}
		return r.LogMetric(x.Name, v, x.IDs)
	case Metrics:
		values := make(map[string]float64, len(x.Values))
		for name, raw := range x.Values {
			v, err := metrics.ToFloat(raw)
			if err != nil {
				return fmt.Errorf("metric %q: %w", name, err)
			}
			values[name] = v
		}
		return r.LogMetrics(values, x.IDs)
	case Param:
		return r.LogParam(x.Name, x.Value)
	case Params:
		return r.LogParams(x.Values, x.Separator)
	case Artifact:
		_, err := r.SaveArtifact(x.Name, x.Data)
		return err
	case Message:
		if err := r.checkActive(); err != nil {
			return err
		}
		r.Info(string(x))
		return nil
	default:
		return fmt.Errorf("unsupported log entry %T", e)
	}
}
