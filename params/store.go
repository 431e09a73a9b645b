// Package params holds the flat key/value parameters of a run and persists
// them as a YAML document.
package params

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/skald-logger/skald/core"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FileName is the parameter file inside a run directory.
const FileName = "params.yaml"

// Ensure Store implements core.Flusher interface
var _ core.Flusher = (*Store)(nil)

// Store maps dotted keys to YAML-serializable values. Writing an existing
// key overwrites it.
type Store struct {
	fs     afero.Fs
	path   string
	values map[string]any
}

// NewStore creates an empty store flushing to dir/params.yaml.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{
		fs:     fs,
		path:   filepath.Join(dir, FileName),
		values: make(map[string]any),
	}
}

// Set upserts a single key.
func (s *Store) Set(key string, value any) error {
	if key == "" {
		return fmt.Errorf("%w: parameter name is empty", core.ErrInvalidName)
	}
	if err := checkValue(key, value); err != nil {
		return err
	}
	s.values[key] = value
	return nil
}

// SetAll flattens nested with sep and upserts every leaf. Keys and values
// are checked before anything is written.
func (s *Store) SetAll(nested map[string]any, sep string) error {
	flat := Flatten(nested, sep)
	for k, v := range flat {
		if k == "" {
			return fmt.Errorf("%w: parameter name is empty", core.ErrInvalidName)
		}
		if err := checkValue(k, v); err != nil {
			return err
		}
	}
	for k, v := range flat {
		s.values[k] = v
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of keys.
func (s *Store) Len() int {
	return len(s.values)
}

// Values returns a copy of the parameter map.
func (s *Store) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Path returns the parameter file path.
func (s *Store) Path() string {
	return s.path
}

// Flush overwrites the parameter file with the current map.
func (s *Store) Flush() error {
	data, err := Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if err := core.WriteFileAtomic(s.fs, s.path, data); err != nil {
		return fmt.Errorf("flush params: %w", err)
	}
	return nil
}

// checkValue rejects values the YAML encoder cannot represent, such as
// channels and functions.
func checkValue(key string, value any) error {
	if _, err := Marshal(map[string]any{key: value}); err != nil {
		return fmt.Errorf("%w: parameter %q: %v", core.ErrInvalidValue, key, err)
	}
	return nil
}

// Marshal encodes a parameter map as YAML with sorted keys.
func Marshal(values map[string]any) (data []byte, err error) {
	// yaml.v3 panics on kinds it cannot encode
	defer func() {
		if p := recover(); p != nil {
			data, err = nil, fmt.Errorf("encode yaml: %v", p)
		}
	}()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(values); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read loads a parameter file.
func Read(fs afero.Fs, path string) (map[string]any, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return values, nil
}
