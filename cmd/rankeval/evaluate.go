package main

import (
	"context"
	"fmt"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rankeval/internal/config"
	"github.com/ricesearch/rankeval/internal/evaluation"
	"github.com/ricesearch/rankeval/internal/gate"
	"github.com/ricesearch/rankeval/internal/pkg/hash"
	"github.com/ricesearch/rankeval/internal/pkg/logger"
	"github.com/ricesearch/rankeval/internal/trec"
)

// runReport is the outcome for one run tag.
type runReport struct {
	Tag       string                    `json:"tag"`
	RunFile   trec.Source               `json:"run_file"`
	QrelsFile trec.Source               `json:"qrels_file"`
	Metrics   []string                  `json:"metrics"`
	Summary   evaluation.Summary        `json:"summary"`
	Queries   []*evaluation.QueryResult `json:"queries,omitempty"`
	Gate      *gateResult               `json:"gate,omitempty"`
}

type gateResult struct {
	Expr string `json:"expr"`
	Pass bool   `json:"pass"`
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a run file against qrels",
		Long: `Score every run tag in a TREC run file against a qrels file.

Only queries present in both files are scored unless --complete is set, in
which case judged queries missing from the run score 0. Flags override the
config file and RANKEVAL_* environment variables.`,
		RunE: runEvaluate,
	}

	cmd.Flags().String("run", "", "TREC run file")
	cmd.Flags().String("qrels", "", "TREC qrels file")
	cmd.Flags().StringSliceP("metrics", "m", nil, "metrics to compute (e.g. ndcg@10,map,p@5)")
	cmd.Flags().String("gain", "", "DCG gain (linear, exponential)")
	cmd.Flags().Float64("persistence", 0, "RBP persistence in (0, 1)")
	cmd.Flags().Float64("beta", 0, "F-measure beta (>= 0)")
	cmd.Flags().Int("min-grade", 0, "lowest qrels grade counted as relevant")
	cmd.Flags().Int("workers", 0, "parallel query workers (0 = GOMAXPROCS)")
	cmd.Flags().Bool("complete", false, "score judged queries missing from the run as 0")
	cmd.Flags().String("gate", "", `CEL quality gate, e.g. 'mean["ndcg@10"] >= 0.3'`)
	cmd.Flags().Bool("per-query", false, "report every query, not just the means")
	_ = cmd.MarkFlagRequired("run")
	_ = cmd.MarkFlagRequired("qrels")

	return cmd
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("metrics") {
		cfg.Metrics.Names, _ = flags.GetStringSlice("metrics")
	}
	if flags.Changed("gain") {
		cfg.Metrics.Gain, _ = flags.GetString("gain")
	}
	if flags.Changed("persistence") {
		cfg.Metrics.RBPPersistence, _ = flags.GetFloat64("persistence")
	}
	if flags.Changed("beta") {
		cfg.Metrics.FBeta, _ = flags.GetFloat64("beta")
	}
	if flags.Changed("min-grade") {
		cfg.Eval.MinRelevantGrade, _ = flags.GetInt("min-grade")
	}
	if flags.Changed("workers") {
		cfg.Eval.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("complete") {
		cfg.Eval.Complete, _ = flags.GetBool("complete")
	}
	if flags.Changed("gate") {
		cfg.Eval.Gate, _ = flags.GetString("gate")
	}
	return cfg.Validate()
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	metrics, err := cfg.MetricList()
	if err != nil {
		return err
	}
	params, err := cfg.Params()
	if err != nil {
		return err
	}

	var qualityGate *gate.Gate
	if cfg.Eval.Gate != "" {
		if qualityGate, err = gate.Compile(cfg.Eval.Gate); err != nil {
			return err
		}
	}

	runPath, _ := cmd.Flags().GetString("run")
	qrelsPath, _ := cmd.Flags().GetString("qrels")
	perQuery, _ := cmd.Flags().GetBool("per-query")

	qrels, qrelsSrc, err := trec.LoadQrels(qrelsPath)
	if err != nil {
		return err
	}
	entries, runSrc, err := trec.LoadRun(runPath)
	if err != nil {
		return err
	}
	log.Info("Loaded inputs",
		"run", runSrc.Path, "run_sha256", hash.Short(runSrc.SHA256, 12), "run_entries", runSrc.Entries,
		"qrels", qrelsSrc.Path, "qrels_sha256", hash.Short(qrelsSrc.SHA256, 12), "qrels_entries", qrelsSrc.Entries,
	)

	judgments, err := trec.Judgments(trec.GroupQrels(qrels), cfg.Eval.MinRelevantGrade)
	if err != nil {
		return err
	}

	evaluator, err := evaluation.NewEvaluator[string](evaluation.Options{
		Metrics: metrics,
		Params:  params,
		Workers: cfg.Eval.Workers,
		Logger:  log,
	})
	if err != nil {
		return err
	}
	evaluator.LoadJudgments(judgments)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = m.Name()
	}

	runs := trec.GroupRun(entries)
	reports := make([]*runReport, 0, len(runs))
	failed := 0
	for _, tag := range trec.Tags(runs) {
		batch, err := evaluateRun(ctx, evaluator, runs[tag], cfg.Eval.Complete, &logger.Logger{Logger: log.With("tag", tag)})
		if err != nil {
			return fmt.Errorf("run %s: %w", tag, err)
		}

		rep := &runReport{
			Tag:       tag,
			RunFile:   runSrc,
			QrelsFile: qrelsSrc,
			Metrics:   names,
			Summary:   batch.Summary,
		}
		if perQuery {
			rep.Queries = batch.Results
		}
		if qualityGate != nil {
			pass, err := qualityGate.Check(batch.Summary)
			if err != nil {
				return fmt.Errorf("run %s: %w", tag, err)
			}
			rep.Gate = &gateResult{Expr: qualityGate.String(), Pass: pass}
			if !pass {
				failed++
			}
		}
		reports = append(reports, rep)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		err = writeJSON(out, reports)
	} else {
		err = writeReports(out, reports)
	}
	if err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("quality gate failed for %d of %d runs", failed, len(reports))
	}
	return nil
}

// evaluateRun scores one run tag. Run queries without judgments are skipped.
func evaluateRun(ctx context.Context, e *evaluation.Evaluator[string], run trec.Run, complete bool, log *logger.Logger) (*evaluation.BatchResult, error) {
	rankings, err := run.Rankings()
	if err != nil {
		return nil, err
	}

	judged := make(map[string]bool)
	for _, q := range e.JudgedQueries() {
		judged[q] = true
	}

	var queries []evaluation.Query[string]
	skipped := 0
	for qid, ranked := range rankings {
		if !judged[qid] {
			skipped++
			continue
		}
		queries = append(queries, evaluation.Query[string]{ID: qid, Ranked: ranked})
	}
	if complete {
		for qid := range judged {
			if _, ok := rankings[qid]; !ok {
				queries = append(queries, evaluation.Query[string]{ID: qid})
			}
		}
	}
	if skipped > 0 {
		log.Warn("Skipping queries without judgments", "count", skipped)
	}

	slices.SortFunc(queries, func(a, b evaluation.Query[string]) int {
		return compareQueryIDs(a.ID, b.ID)
	})
	return e.EvaluateBatch(ctx, queries)
}
