package evaluation

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ricesearch/rankeval/internal/pkg/errors"
	"github.com/ricesearch/rankeval/internal/pkg/logger"
)

// Options configures an Evaluator.
type Options struct {
	Metrics []Metric
	Params  Params

	// Workers bounds how many queries are scored at once. 0 means GOMAXPROCS.
	Workers int

	Logger *logger.Logger
}

// Evaluator scores rankings against per-query judgments.
type Evaluator[ID comparable] struct {
	metrics []Metric
	params  Params
	workers int
	log     *logger.Logger

	mu        sync.RWMutex
	judgments map[string]Judgments[ID] // queryID -> judgments
}

// NewEvaluator creates a new evaluator.
func NewEvaluator[ID comparable](opts Options) (*Evaluator[ID], error) {
	if len(opts.Metrics) == 0 {
		return nil, errors.InvalidParameterError("metrics", "must name at least one metric")
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers < 0 {
		return nil, errors.InvalidParameterError("workers", "must be >= 0")
	}
	workers := opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &Evaluator[ID]{
		metrics:   append([]Metric(nil), opts.Metrics...),
		params:    opts.Params,
		workers:   workers,
		log:       log,
		judgments: make(map[string]Judgments[ID]),
	}, nil
}

// Metrics returns the metrics this evaluator computes, in order.
func (e *Evaluator[ID]) Metrics() []Metric {
	return append([]Metric(nil), e.metrics...)
}

// SetJudgments registers the judgments of one query, replacing earlier ones.
func (e *Evaluator[ID]) SetJudgments(queryID string, j Judgments[ID]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.judgments[queryID] = j
}

// LoadJudgments registers judgments for many queries.
func (e *Evaluator[ID]) LoadJudgments(byQuery map[string]Judgments[ID]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for q, j := range byQuery {
		e.judgments[q] = j
	}
}

// JudgedQueries returns the IDs of every query with judgments.
func (e *Evaluator[ID]) JudgedQueries() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.judgments))
	for q := range e.judgments {
		out = append(out, q)
	}
	return out
}

func (e *Evaluator[ID]) judgmentsFor(queryID string) (Judgments[ID], bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	j, ok := e.judgments[queryID]
	return j, ok
}

// EvaluateQuery evaluates a single query.
// A query without judgments scores 0 on every metric and is marked Unjudged.
func (e *Evaluator[ID]) EvaluateQuery(q Query[ID]) (*QueryResult, error) {
	return e.evaluate(context.Background(), q)
}

func (e *Evaluator[ID]) evaluate(ctx context.Context, q Query[ID]) (*QueryResult, error) {
	j, ok := e.judgmentsFor(q.ID)

	result := &QueryResult{
		QueryID:   q.ID,
		Scores:    make(map[string]float64, len(e.metrics)),
		Retrieved: q.Ranked.Len(),
		Relevant:  j.TotalRelevant(),
		Unjudged:  !ok,
	}

	for _, m := range e.metrics {
		score, err := Compute(m, q.Ranked, j, e.params)
		if err != nil {
			return nil, errors.Wrap(errors.CodeOf(err), "query "+q.ID+": "+m.Name(), err)
		}
		result.Scores[m.Name()] = score
	}

	e.log.WithContext(ctx).WithQuery(q.ID).Debug("Query evaluated",
		"retrieved", result.Retrieved,
		"relevant", result.Relevant,
		"unjudged", result.Unjudged,
	)
	return result, nil
}

// EvaluateBatch evaluates queries on a bounded worker pool. Results keep the
// input order. The first failing query cancels the rest.
func (e *Evaluator[ID]) EvaluateBatch(ctx context.Context, queries []Query[ID]) (*BatchResult, error) {
	runID := uuid.NewString()
	ctx = logger.ContextWithRunID(ctx, runID)
	log := e.log.WithContext(ctx)
	start := time.Now()

	results := make([]*QueryResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, q := range queries {
		if gctx.Err() != nil {
			break
		}
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := e.evaluate(gctx, q)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Batch evaluation failed")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := Summarize(results)
	summary.RunID = runID

	log.Info("Batch evaluated",
		"queries", summary.QueryCount,
		"unjudged", summary.Unjudged,
		"workers", e.workers,
		"duration", time.Since(start),
	)

	return &BatchResult{
		RunID:   runID,
		Results: results,
		Summary: summary,
	}, nil
}

// Summarize aggregates results across queries with an arithmetic mean per metric.
func Summarize(results []*QueryResult) Summary {
	summary := Summary{Means: make(map[string]float64)}
	if len(results) == 0 {
		return summary
	}

	counts := make(map[string]int)
	for _, r := range results {
		if r == nil {
			continue
		}
		summary.QueryCount++
		if r.Unjudged {
			summary.Unjudged++
		}
		for name, v := range r.Scores {
			summary.Means[name] += v
			counts[name]++
		}
	}

	for name := range summary.Means {
		summary.Means[name] /= float64(counts[name])
	}
	return summary
}

// Scores collects one metric across results, in result order. Queries that
// lack the metric are skipped.
func Scores(results []*QueryResult, metric string) []float64 {
	out := make([]float64, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		if v, ok := r.Scores[metric]; ok {
			out = append(out, v)
		}
	}
	return out
}
