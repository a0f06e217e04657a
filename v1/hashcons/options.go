// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hashcons

import "github.com/open-policy-agent/hashcons/v1/logging"

type tableConfig struct {
	name     string
	logger   logging.Logger
	capacity int
}

// Option configures a Table at registration.
type Option func(*tableConfig)

// WithName overrides the table name used in logs and metrics. The default is
// the Go type name of the value.
func WithName(name string) Option {
	return func(c *tableConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets the table logger. The default is the scope logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *tableConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCapacity pre-sizes the table for n entries.
func WithCapacity(n int) Option {
	return func(c *tableConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// ScopeOpt configures a Scope.
type ScopeOpt func(*Scope)

// WithScopeName names the scope in logs and metrics.
func WithScopeName(name string) ScopeOpt {
	return func(s *Scope) {
		s.name = name
	}
}

// WithScopeLogger sets the logger inherited by tables in the scope.
func WithScopeLogger(logger logging.Logger) ScopeOpt {
	return func(s *Scope) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultCapacity sets the initial capacity of tables registered lazily
// through TableOf.
func WithDefaultCapacity(n int) ScopeOpt {
	return func(s *Scope) {
		if n > 0 {
			s.capacity = n
		}
	}
}
