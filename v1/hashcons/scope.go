// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package hashcons

import (
	"reflect"
	"sync"

	"github.com/open-policy-agent/hashcons/v1/logging"
)

// Scope is the execution context tables live in. It binds exactly one Table
// to each value type, and every table and handle derived from it must stay on
// the goroutine that owns the scope. Independent goroutines use independent
// scopes.
type Scope struct {
	name     string
	logger   logging.Logger
	capacity int

	// mu guards the registry so metrics can list tables from other
	// goroutines. Table state itself is never locked.
	mu     sync.RWMutex
	tables map[reflect.Type]registered
	order  []registered
}

// registered is the type-erased view of a Table kept by the registry.
type registered interface {
	Name() string
	Stats() Stats
	Collect() int
}

// TableInfo describes a registered table.
type TableInfo struct {
	Name  string `json:"name"`
	Stats Stats  `json:"stats"`
}

// NewScope returns an empty scope.
func NewScope(opts ...ScopeOpt) *Scope {
	s := &Scope{
		logger: logging.NewNoOpLogger(),
		tables: make(map[reflect.Type]registered),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.name != "" {
		s.logger = s.logger.WithFields(map[string]any{"scope": s.name})
	}
	return s
}

// Name returns the scope name.
func (s *Scope) Name() string {
	return s.name
}

// Register binds a new table for T. Registering T twice in one scope panics
// with DoubleRegistrationErr: two tables would assign independent identifiers
// to equal values.
func Register[T Value[T]](s *Scope, opts ...Option) *Table[T] {
	typ := reflect.TypeFor[T]()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[typ]; ok {
		fatalf(DoubleRegistrationErr, "scope %q: table for %v already registered", s.name, typ)
	}
	t := newTable[T](s, typ.String(), opts...)
	s.register(typ, t)
	return t
}

// TableOf returns the table bound to T, registering one with the scope
// defaults on first use.
func TableOf[T Value[T]](s *Scope) *Table[T] {
	typ := reflect.TypeFor[T]()

	s.mu.RLock()
	r, ok := s.tables[typ]
	s.mu.RUnlock()
	if ok {
		return r.(*Table[T])
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock.
	if r, ok := s.tables[typ]; ok {
		return r.(*Table[T])
	}
	t := newTable[T](s, typ.String())
	s.register(typ, t)
	return t
}

// Create interns v in the table bound to T.
func Create[T Value[T]](s *Scope, v T) *Hc[T] {
	return TableOf[T](s).Create(v)
}

// register must be called with s.mu held.
func (s *Scope) register(typ reflect.Type, t registered) {
	s.tables[typ] = t
	s.order = append(s.order, t)
	s.logger.Debug("Registered table %v for %v.", t.Name(), typ)
}

// Tables lists the registered tables in registration order. It is safe to
// call from any goroutine.
func (s *Scope) Tables() []TableInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]TableInfo, 0, len(s.order))
	for _, t := range s.order {
		result = append(result, TableInfo{Name: t.Name(), Stats: t.Stats()})
	}
	return result
}

// CollectAll collects every table until a full sweep removes nothing, so
// cascades that cross tables are followed to the end. It returns the total
// number of entries removed.
func (s *Scope) CollectAll() int {
	s.mu.RLock()
	tables := append([]registered(nil), s.order...)
	s.mu.RUnlock()

	total := 0
	for {
		n := 0
		for _, t := range tables {
			n += t.Collect()
		}
		if n == 0 {
			return total
		}
		total += n
	}
}
