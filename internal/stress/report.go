// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package stress

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"sigs.k8s.io/yaml"
)

// Output formats accepted by Render.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
	FormatYAML   = "yaml"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatPretty, FormatJSON, FormatYAML}

// Report is the outcome of a stress run.
type Report struct {
	RunID   string         `json:"run_id"`
	Config  Config         `json:"config"`
	Workers []WorkerReport `json:"workers"`
	Total   WorkerReport   `json:"total"`
	Elapsed time.Duration  `json:"elapsed_ns"`
}

// WorkerReport summarizes one worker. In Report.Total, Worker is -1.
type WorkerReport struct {
	Worker      int           `json:"worker"`
	Scope       string        `json:"scope,omitempty"`
	Rounds      int           `json:"rounds"`
	Terms       int           `json:"terms"`
	Created     uint64        `json:"created"`
	Hits        uint64        `json:"hits"`
	Collected   uint64        `json:"collected"`
	Resurrected uint64        `json:"resurrected"`
	DAGNodes    uint64        `json:"dag_nodes"`
	TreeNodes   uint64        `json:"tree_nodes"`
	Checksum    int64         `json:"checksum"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Sharing returns how many tree nodes each distinct node stood for.
func (w WorkerReport) Sharing() float64 {
	if w.DAGNodes == 0 {
		return 0
	}
	return float64(w.TreeNodes) / float64(w.DAGNodes)
}

func (r *Report) total() {
	t := WorkerReport{Worker: -1}
	for _, w := range r.Workers {
		t.Rounds += w.Rounds
		t.Terms += w.Terms
		t.Created += w.Created
		t.Hits += w.Hits
		t.Collected += w.Collected
		t.Resurrected += w.Resurrected
		t.DAGNodes += w.DAGNodes
		t.TreeNodes += w.TreeNodes
		t.Checksum += w.Checksum
	}
	t.Elapsed = r.Elapsed
	r.Total = t
}

// Render writes r to w in the given format.
func Render(w io.Writer, r *Report, format string) error {
	switch format {
	case FormatJSON:
		bs, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(bs))
		return err
	case FormatYAML:
		bs, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		_, err = w.Write(bs)
		return err
	case FormatPretty:
		return renderPretty(w, r)
	}
	return fmt.Errorf("unknown format %q, expected one of %v", format, Formats)
}

func renderPretty(w io.Writer, r *Report) error {
	if _, err := fmt.Fprintf(w, "Run %v: %d workers, %d rounds, %d terms per round, depth %d, seed %d\n\n",
		r.RunID, r.Config.Workers, r.Config.Rounds, r.Config.Terms, r.Config.Depth, r.Config.Seed); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Worker", "Terms", "Created", "Hits", "Collected", "Resurrected", "Sharing", "Checksum", "Elapsed")

	rows := append(append([]WorkerReport(nil), r.Workers...), r.Total)
	for _, wr := range rows {
		name := strconv.Itoa(wr.Worker)
		if wr.Worker < 0 {
			name = "total"
		}
		if err := table.Append([]string{
			name,
			strconv.Itoa(wr.Terms),
			strconv.FormatUint(wr.Created, 10),
			strconv.FormatUint(wr.Hits, 10),
			strconv.FormatUint(wr.Collected, 10),
			strconv.FormatUint(wr.Resurrected, 10),
			strconv.FormatFloat(wr.Sharing(), 'f', 2, 64),
			strconv.FormatInt(wr.Checksum, 10),
			wr.Elapsed.Round(time.Microsecond).String(),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
