package trec

import (
	"slices"

	"github.com/ricesearch/rankeval/internal/evaluation"
	"github.com/ricesearch/rankeval/internal/pkg/errors"
)

// Run holds the scored documents of one run tag, keyed by query.
type Run map[string][]evaluation.Scored[string]

// GroupRun splits entries by run tag and then by query, keeping file order
// inside each query.
func GroupRun(entries []RunEntry) map[string]Run {
	runs := make(map[string]Run)
	for _, e := range entries {
		run, ok := runs[e.Tag]
		if !ok {
			run = make(Run)
			runs[e.Tag] = run
		}
		run[e.QueryID] = append(run[e.QueryID], evaluation.Scored[string]{ID: e.DocID, Score: e.Score})
	}
	return runs
}

// Tags returns the run tags in sorted order.
func Tags(runs map[string]Run) []string {
	var tags []string
	for tag := range runs {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Queries returns the query IDs of the run in sorted order.
func (r Run) Queries() []string {
	var qids []string
	for qid := range r {
		qids = append(qids, qid)
	}
	slices.Sort(qids)
	return qids
}

// Rankings orders every query by score. Equal scores keep file order.
func (r Run) Rankings() (map[string]evaluation.RankedList[string], error) {
	out := make(map[string]evaluation.RankedList[string], len(r))
	for qid, docs := range r {
		ranked, err := evaluation.RankFromScores(docs)
		if err != nil {
			return nil, errors.Wrap(errors.CodeOf(err), "query "+qid, err)
		}
		out[qid] = ranked
	}
	return out, nil
}

// GroupQrels maps query -> document -> grade. A later line for the same
// (query, document) pair replaces an earlier one.
func GroupQrels(qrels []Qrel) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for _, q := range qrels {
		docs, ok := out[q.QueryID]
		if !ok {
			docs = make(map[string]int)
			out[q.QueryID] = docs
		}
		docs[q.DocID] = q.Grade
	}
	return out
}

// Judgments builds graded judgments per query. Grades below minGrade count as
// not relevant.
func Judgments(grouped map[string]map[string]int, minGrade int) (map[string]evaluation.Judgments[string], error) {
	out := make(map[string]evaluation.Judgments[string], len(grouped))
	for qid, grades := range grouped {
		j, err := evaluation.NewGradedJudgments(grades)
		if err != nil {
			return nil, errors.Wrap(errors.CodeOf(err), "query "+qid, err)
		}
		out[qid] = j.WithMinGrade(minGrade)
	}
	return out, nil
}
