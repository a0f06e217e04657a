// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package stress drives hashcons tables with random term workloads. Every
// worker owns a Scope, builds random terms with heavy sharing, simplifies and
// evaluates them, releases everything and collects, round after round.
package stress

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/open-policy-agent/hashcons/v1/logging"
)

// Config describes a stress run.
type Config struct {
	Workers   int    `json:"workers"`
	Rounds    int    `json:"rounds"`
	Terms     int    `json:"terms"`
	Depth     int    `json:"depth"`
	Vars      int    `json:"vars"`
	CacheSize int    `json:"cache_size"`
	Seed      uint64 `json:"seed"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		Rounds:    8,
		Terms:     256,
		Depth:     12,
		Vars:      4,
		CacheSize: 1024,
		Seed:      1,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	for _, f := range []struct {
		name string
		v    int
	}{
		{"workers", c.Workers},
		{"rounds", c.Rounds},
		{"terms", c.Terms},
		{"depth", c.Depth},
		{"vars", c.Vars},
		{"cache size", c.CacheSize},
	} {
		if f.v <= 0 {
			errs = append(errs, fmt.Errorf("%v must be positive, got %d", f.name, f.v))
		}
	}
	return errors.Join(errs...)
}

type runOptions struct {
	logger     logging.Logger
	registerer prometheus.Registerer
}

// Opt configures Run.
type Opt func(*runOptions)

// WithLogger sets the logger used by the runner and every worker scope.
func WithLogger(l logging.Logger) Opt {
	return func(o *runOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegisterer exports table statistics of every worker scope to r.
func WithRegisterer(r prometheus.Registerer) Opt {
	return func(o *runOptions) {
		o.registerer = r
	}
}
