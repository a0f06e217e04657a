// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics exports hashcons table statistics to Prometheus.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/open-policy-agent/hashcons/v1/hashcons"
)

const namespace = "hashcons"

var labels = []string{"scope", "table"}

// Collector is a prometheus.Collector reporting the tables of one or more
// scopes. Scopes are read through Scope.Tables, so scrapes may run on any
// goroutine while the scopes are in use.
type Collector struct {
	mu     sync.Mutex
	scopes []*hashcons.Scope

	entries     *prometheus.Desc
	pending     *prometheus.Desc
	created     *prometheus.Desc
	hits        *prometheus.Desc
	examined    *prometheus.Desc
	collected   *prometheus.Desc
	resurrected *prometheus.Desc
}

// New returns a collector for scopes. Scopes sharing a name must not have
// tables sharing a name, or registry gathering fails on duplicate series.
func New(scopes ...*hashcons.Scope) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "table", name), help, labels, nil)
	}
	return &Collector{
		scopes:      scopes,
		entries:     desc("entries", "Number of resident entries."),
		pending:     desc("pending", "Number of weak handles waiting in the collection queue."),
		created:     desc("created_total", "Number of entries inserted."),
		hits:        desc("hits_total", "Number of Create calls answered by a resident entry."),
		examined:    desc("examined_total", "Number of queued candidates examined by Collect."),
		collected:   desc("collected_total", "Number of entries removed by Collect."),
		resurrected: desc("resurrected_total", "Number of queued candidates skipped because they were owned again."),
	}
}

// Add starts reporting s.
func (c *Collector) Add(s *hashcons.Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scopes = append(c.scopes, s)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.pending
	ch <- c.created
	ch <- c.hits
	ch <- c.examined
	ch <- c.collected
	ch <- c.resurrected
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	scopes := append([]*hashcons.Scope(nil), c.scopes...)
	c.mu.Unlock()

	for _, s := range scopes {
		for _, t := range s.Tables() {
			lv := []string{s.Name(), t.Name}
			st := t.Stats
			ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Entries), lv...)
			ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(st.Pending), lv...)
			ch <- prometheus.MustNewConstMetric(c.created, prometheus.CounterValue, float64(st.Created), lv...)
			ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits), lv...)
			ch <- prometheus.MustNewConstMetric(c.examined, prometheus.CounterValue, float64(st.Examined), lv...)
			ch <- prometheus.MustNewConstMetric(c.collected, prometheus.CounterValue, float64(st.Collected), lv...)
			ch <- prometheus.MustNewConstMetric(c.resurrected, prometheus.CounterValue, float64(st.Resurrected), lv...)
		}
	}
}
