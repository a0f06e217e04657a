// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/open-policy-agent/hashcons/internal/stress"
	"github.com/open-policy-agent/hashcons/v1/logging"
)

const envPrefix = "HCSTRESS"

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "hcstress",
		Short: "Run random term workloads against hashcons tables",
		Long: `Run random term workloads against hashcons tables.

Every worker owns its own scope. It builds random terms with heavy sharing,
simplifies and evaluates them, releases them and collects, for the given
number of rounds. The run fails if any node survives the final collection.

Flags may also be set through HCSTRESS_* environment variables (for example
HCSTRESS_CACHE_SIZE) or a configuration file passed with --config.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, v)
		},
	}

	def := stress.DefaultConfig()
	fs := cmd.Flags()
	fs.String("config", "", "read settings from a configuration file (yaml, json or toml)")
	fs.Int("workers", def.Workers, "number of concurrent workers, each with its own scope")
	fs.Int("rounds", def.Rounds, "number of build/release/collect rounds per worker")
	fs.Int("terms", def.Terms, "number of random terms built per round")
	fs.Int("depth", def.Depth, "maximum depth of random terms")
	fs.Int("vars", def.Vars, "number of distinct variables")
	fs.Int("cache-size", def.CacheSize, "capacity of each worker's simplification memo")
	fs.Uint64("seed", def.Seed, "random seed")
	fs.StringP("format", "f", stress.FormatPretty, "output format: "+strings.Join(stress.Formats, ", "))
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("log-format", "text", "log format: text or json")
	fs.Bool("metrics", false, "print table metrics in Prometheus text format after the report")

	return cmd
}

func loadConfig(v *viper.Viper, fs *pflag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func run(cmd *cobra.Command, v *viper.Viper) error {
	format := v.GetString("format")
	if !slices.Contains(stress.Formats, format) {
		return fmt.Errorf("unknown format %q, expected one of %v", format, stress.Formats)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), v.GetString("log-level"), v.GetString("log-format"))
	if err != nil {
		return err
	}

	cfg := stress.Config{
		Workers:   v.GetInt("workers"),
		Rounds:    v.GetInt("rounds"),
		Terms:     v.GetInt("terms"),
		Depth:     v.GetInt("depth"),
		Vars:      v.GetInt("vars"),
		CacheSize: v.GetInt("cache-size"),
		Seed:      v.GetUint64("seed"),
	}

	reg := prometheus.NewRegistry()
	report, err := stress.Run(cmd.Context(), cfg, stress.WithLogger(logger), stress.WithRegisterer(reg))
	if err != nil {
		return fmt.Errorf("stress run failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := stress.Render(out, report, format); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if v.GetBool("metrics") {
		families, err := reg.Gather()
		if err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
		if err := writeMetrics(out, families); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func newLogger(w io.Writer, level, format string) (logging.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logging.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)

	switch format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format: %q", format)
	}
	return logger, nil
}

func writeMetrics(w io.Writer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
