// Package main provides the rankeval binary, which scores TREC runs against
// relevance judgments.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rankeval/internal/config"
	"github.com/ricesearch/rankeval/internal/evaluation"
	"github.com/ricesearch/rankeval/internal/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rankeval",
		Short: "rankeval - ranking quality metrics for TREC runs",
		Long: `rankeval scores ranked retrieval output against relevance judgments.

It reads TREC run files (qid Q0 docid rank score tag) and qrels files
(qid iter docid grade) and reports precision, recall, success, R-precision,
MRR, NDCG, MAP, ERR, RBP and F-measure per query and averaged.

Examples:
  rankeval evaluate --run bm25.run --qrels test.qrels
  rankeval evaluate --run bm25.run --qrels test.qrels -m ndcg@10,map --per-query
  rankeval evaluate --run bm25.run --qrels test.qrels --gate 'mean["ndcg@10"] >= 0.3'
  rankeval validate --run bm25.run --qrels test.qrels
  rankeval metrics`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("format", "text", "output format (text, json)")

	rootCmd.AddCommand(
		evaluateCmd(),
		validateCmd(),
		metricsCmd(),
		versionCmd(),
	)
	return rootCmd
}

// setup loads config and builds the logger shared by every subcommand.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format), nil
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "text", "json":
		return format, nil
	default:
		return "", fmt.Errorf("invalid format %q (must be text or json)", format)
	}
}

func metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List supported metric names",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			names := evaluation.SupportedMetrics()
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), names)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rankeval %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
