// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package stress

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/open-policy-agent/hashcons/v1/hashcons"
	"github.com/open-policy-agent/hashcons/v1/logging"
	"github.com/open-policy-agent/hashcons/v1/metrics"
	"github.com/open-policy-agent/hashcons/v1/term"
)

// Run executes the workload described by cfg and reports what every worker
// did. It fails if a worker leaves nodes resident after releasing all of its
// terms.
func Run(ctx context.Context, cfg Config, opts ...Opt) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := runOptions{logger: logging.NewNoOpLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	collector := metrics.New()
	if o.registerer != nil {
		if err := o.registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	report := &Report{
		RunID:   uuid.NewString(),
		Config:  cfg,
		Workers: make([]WorkerReport, cfg.Workers),
	}
	logger := o.logger.WithFields(map[string]any{"run_id": report.RunID})
	logger.Info("Starting stress run with %d workers.", cfg.Workers)

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := range cfg.Workers {
		scope := hashcons.NewScope(
			hashcons.WithScopeName(fmt.Sprintf("worker-%d", i)),
			hashcons.WithScopeLogger(logger),
			hashcons.WithDefaultCapacity(cfg.Terms),
		)
		collector.Add(scope)

		g.Go(func() error {
			w, err := newWorker(i, scope, cfg)
			if err != nil {
				return err
			}
			wr, err := w.run(ctx)
			if err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			report.Workers[i] = wr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Elapsed = time.Since(start)
	report.total()

	logger.WithFields(map[string]any{
		"created":   report.Total.Created,
		"collected": report.Total.Collected,
		"elapsed":   report.Elapsed.String(),
	}).Info("Stress run finished.")
	return report, nil
}

type worker struct {
	id    int
	cfg   Config
	scope *hashcons.Scope
	rng   *rand.Rand
	b     *term.Builder
	simp  *term.Simplifier
	eval  *term.Evaluator
	names []string
}

func newWorker(id int, scope *hashcons.Scope, cfg Config) (*worker, error) {
	b := term.NewBuilder(scope)
	simp, err := term.NewSimplifier(b, cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	names := make([]string, cfg.Vars)
	bindings := make(map[string]int64, cfg.Vars)
	for i := range names {
		names[i] = fmt.Sprintf("v%d", i)
		bindings[names[i]] = int64(i + 1)
	}

	return &worker{
		id:    id,
		cfg:   cfg,
		scope: scope,
		rng:   rand.New(rand.NewPCG(cfg.Seed, uint64(id))),
		b:     b,
		simp:  simp,
		eval:  term.NewEvaluator(bindings),
		names: names,
	}, nil
}

func (w *worker) run(ctx context.Context) (WorkerReport, error) {
	start := time.Now()
	wr := WorkerReport{Worker: w.id, Scope: w.scope.Name()}

	defer w.eval.Close()
	defer w.simp.Close()

	for range w.cfg.Rounds {
		if err := ctx.Err(); err != nil {
			return wr, err
		}
		if err := w.round(&wr); err != nil {
			return wr, err
		}
		wr.Rounds++
	}

	w.scope.CollectAll()
	for _, t := range w.scope.Tables() {
		if t.Stats.Entries != 0 {
			return wr, fmt.Errorf("%d entries still resident in table %v after release", t.Stats.Entries, t.Name)
		}
	}

	for _, t := range w.scope.Tables() {
		wr.Created += t.Stats.Created
		wr.Hits += t.Stats.Hits
		wr.Collected += t.Stats.Collected
		wr.Resurrected += t.Stats.Resurrected
	}
	wr.Elapsed = time.Since(start)
	return wr, nil
}

func (w *worker) round(wr *WorkerReport) error {
	terms := make([]term.Term, 0, w.cfg.Terms)
	defer func() {
		for _, t := range terms {
			t.Release()
		}
		w.scope.CollectAll()
		w.eval.Collect()
		w.simp.Collect()
	}()

	for range w.cfg.Terms {
		t := w.gen(w.cfg.Depth)
		terms = append(terms, t)

		s := w.simp.Simplify(t)
		terms = append(terms, s)

		v, err := w.eval.Eval(t)
		if err != nil {
			return err
		}
		sv, err := w.eval.Eval(s)
		if err != nil {
			return err
		}
		if v != sv {
			return fmt.Errorf("simplified %v evaluates to %d, original %v to %d", s, sv, t, v)
		}

		wr.Terms++
		wr.Checksum += v
		wr.DAGNodes += uint64(term.DAGSize(t))
		wr.TreeNodes += term.TreeSize(t)
	}
	return nil
}

// gen builds a random term of at most the given depth. Leaves are drawn from
// a small alphabet so that subterms are frequently shared.
func (w *worker) gen(depth int) term.Term {
	if depth <= 1 || w.rng.IntN(4) == 0 {
		if w.rng.IntN(2) == 0 {
			return w.b.Val(int64(w.rng.IntN(4)))
		}
		return w.b.Var(w.names[w.rng.IntN(len(w.names))])
	}
	switch w.rng.IntN(3) {
	case 0:
		return w.b.Add(w.gen(depth-1), w.gen(depth-1))
	case 1:
		return w.b.Mul(w.gen(depth-1), w.gen(depth-1))
	}
	return w.b.Neg(w.gen(depth - 1))
}
