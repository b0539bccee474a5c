package trec

import (
	"fmt"
	"slices"
)

// Report describes how well a run file lines up with a qrels file.
type Report struct {
	RunEntries  int `json:"run_entries"`
	QrelEntries int `json:"qrel_entries"`

	QueriesInRun     int `json:"queries_in_run"`
	QueriesInQrels   int `json:"queries_in_qrels"`
	QueriesInBoth    int `json:"queries_in_both"`
	QueriesOnlyRun   int `json:"queries_only_in_run"`
	QueriesOnlyQrels int `json:"queries_only_in_qrels"`

	DocsInRun   int `json:"docs_in_run"`
	DocsInQrels int `json:"docs_in_qrels"`
	DocsInBoth  int `json:"docs_in_both"`

	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Valid reports whether the run can be evaluated against the qrels.
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

type runKey struct{ query, doc, tag string }

type qrelKey struct{ query, doc string }

type rankKey struct{ query, tag string }

// Validate cross-checks parsed run entries against qrels.
// Duplicate run entries are errors because they cannot be ranked.
func Validate(run []RunEntry, qrels []Qrel) *Report {
	rep := &Report{RunEntries: len(run), QrelEntries: len(qrels)}
	if len(run) == 0 {
		rep.Errors = append(rep.Errors, "run file is empty")
	}
	if len(qrels) == 0 {
		rep.Errors = append(rep.Errors, "qrels file is empty")
	}

	runQueries := make(map[string]bool)
	runDocs := make(map[string]bool)
	seenRun := make(map[runKey]int)
	ranks := make(map[rankKey][]int)
	for _, e := range run {
		runQueries[e.QueryID] = true
		runDocs[e.DocID] = true

		k := runKey{e.QueryID, e.DocID, e.Tag}
		if first, ok := seenRun[k]; ok {
			rep.Errors = append(rep.Errors, fmt.Sprintf(
				"line %d: duplicate run entry query=%s doc=%s tag=%s (first on line %d)",
				e.Line, e.QueryID, e.DocID, e.Tag, first))
			continue
		}
		seenRun[k] = e.Line
		rk := rankKey{e.QueryID, e.Tag}
		ranks[rk] = append(ranks[rk], e.Rank)
	}

	qrelQueries := make(map[string]bool)
	qrelDocs := make(map[string]bool)
	seenQrel := make(map[qrelKey]int)
	for _, q := range qrels {
		qrelQueries[q.QueryID] = true
		qrelDocs[q.DocID] = true

		k := qrelKey{q.QueryID, q.DocID}
		if first, ok := seenQrel[k]; ok {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf(
				"line %d: duplicate qrel query=%s doc=%s (first on line %d, last one wins)",
				q.Line, q.QueryID, q.DocID, first))
			continue
		}
		seenQrel[k] = q.Line
	}

	rep.QueriesInRun = len(runQueries)
	rep.QueriesInQrels = len(qrelQueries)
	for q := range runQueries {
		if qrelQueries[q] {
			rep.QueriesInBoth++
		} else {
			rep.QueriesOnlyRun++
		}
	}
	rep.QueriesOnlyQrels = rep.QueriesInQrels - rep.QueriesInBoth

	rep.DocsInRun = len(runDocs)
	rep.DocsInQrels = len(qrelDocs)
	for d := range runDocs {
		if qrelDocs[d] {
			rep.DocsInBoth++
		}
	}

	if rep.QueriesOnlyRun > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf(
			"%d queries in run but not in qrels (skipped during evaluation)", rep.QueriesOnlyRun))
	}
	if rep.QueriesOnlyQrels > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf(
			"%d queries in qrels but not in run", rep.QueriesOnlyQrels))
	}
	if len(run) > 0 && len(qrels) > 0 && rep.QueriesInBoth == 0 {
		rep.Errors = append(rep.Errors, "no queries in common between run and qrels")
	}

	var nonSequential int
	for _, rs := range ranks {
		slices.Sort(rs)
		for i, r := range rs {
			if r != i+1 {
				nonSequential++
				break
			}
		}
	}
	if nonSequential > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf(
			"%d rankings have ranks that are not 1..n (documents are ordered by score)", nonSequential))
	}

	return rep
}
