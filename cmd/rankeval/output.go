package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/ricesearch/rankeval/internal/trec"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReports prints trec_eval style rows: metric, query (or "all"), value.
func writeReports(w io.Writer, reports []*runReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, rep := range reports {
		fmt.Fprintf(tw, "runid\tall\t%s\n", rep.Tag)
		fmt.Fprintf(tw, "num_q\tall\t%d\n", rep.Summary.QueryCount)
		if rep.Summary.Unjudged > 0 {
			fmt.Fprintf(tw, "unjudged\tall\t%d\n", rep.Summary.Unjudged)
		}
		for _, q := range rep.Queries {
			for _, name := range rep.Metrics {
				fmt.Fprintf(tw, "%s\t%s\t%.4f\n", name, q.QueryID, q.Scores[name])
			}
		}
		for _, name := range rep.Metrics {
			fmt.Fprintf(tw, "%s\tall\t%.4f\n", name, rep.Summary.Means[name])
		}
		if rep.Gate != nil {
			status := "pass"
			if !rep.Gate.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(tw, "gate\tall\t%s\t%s\n", status, rep.Gate.Expr)
		}
	}
	return tw.Flush()
}

func writeValidation(w io.Writer, run, qrels trec.Source, rep *trec.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\t%d entries\tsha256 %s\n", run.Path, rep.RunEntries, run.SHA256)
	fmt.Fprintf(tw, "qrels\t%s\t%d entries\tsha256 %s\n", qrels.Path, rep.QrelEntries, qrels.SHA256)
	fmt.Fprintf(tw, "queries\trun %d\tqrels %d\tboth %d\n", rep.QueriesInRun, rep.QueriesInQrels, rep.QueriesInBoth)
	fmt.Fprintf(tw, "documents\trun %d\tqrels %d\tboth %d\n", rep.DocsInRun, rep.DocsInQrels, rep.DocsInBoth)
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, msg := range rep.Warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
	for _, msg := range rep.Errors {
		fmt.Fprintf(w, "error: %s\n", msg)
	}
	return nil
}

// compareQueryIDs orders numeric IDs numerically and everything else lexically,
// numbers first.
func compareQueryIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
