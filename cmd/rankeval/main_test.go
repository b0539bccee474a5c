package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRun = `1 Q0 doc1 1 4.0 bm25
1 Q0 doc2 2 3.0 bm25
1 Q0 doc3 3 2.0 bm25
1 Q0 doc4 4 1.0 bm25
2 Q0 doc2 1 9.0 bm25
2 Q0 doc1 2 8.0 bm25
99 Q0 doc1 1 1.0 bm25
`

const testQrels = `1 0 doc1 1
1 0 doc3 1
2 0 doc1 1
3 0 doc7 2
`

func writeInputs(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	run := filepath.Join(dir, "test.run")
	qrels := filepath.Join(dir, "test.qrels")
	require.NoError(t, os.WriteFile(run, []byte(testRun), 0o644))
	require.NoError(t, os.WriteFile(qrels, []byte(testQrels), 0o644))
	return run, qrels
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestEvaluate_JSON(t *testing.T) {
	run, qrels := writeInputs(t)

	out, err := execute(t, "evaluate", "--run", run, "--qrels", qrels,
		"-m", "p@2,recall@2,mrr", "--per-query", "--format", "json")
	require.NoError(t, err)

	var reports []runReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)

	rep := reports[0]
	assert.Equal(t, "bm25", rep.Tag)
	assert.Equal(t, 2, rep.Summary.QueryCount)
	require.Len(t, rep.Queries, 2)
	assert.Equal(t, "1", rep.Queries[0].QueryID)
	assert.Equal(t, 0.5, rep.Queries[0].Scores["precision@2"])
	assert.Equal(t, 0.5, rep.Queries[1].Scores["mrr"])
	assert.InDelta(t, 0.75, rep.Summary.Means["mrr"], 1e-9)
	assert.NotEmpty(t, rep.RunFile.SHA256)
}

func TestEvaluate_Complete(t *testing.T) {
	run, qrels := writeInputs(t)

	out, err := execute(t, "evaluate", "--run", run, "--qrels", qrels,
		"-m", "mrr", "--complete", "--format", "json")
	require.NoError(t, err)

	var reports []runReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	assert.Equal(t, 3, reports[0].Summary.QueryCount)
	assert.InDelta(t, 0.5, reports[0].Summary.Means["mrr"], 1e-9)
}

func TestEvaluate_Text(t *testing.T) {
	run, qrels := writeInputs(t)

	out, err := execute(t, "evaluate", "--run", run, "--qrels", qrels, "-m", "map")
	require.NoError(t, err)
	assert.Contains(t, out, "runid")
	assert.Contains(t, out, "num_q")
	assert.Regexp(t, `map\s+all\s+0\.\d{4}`, out)
}

func TestEvaluate_Gate(t *testing.T) {
	run, qrels := writeInputs(t)

	_, err := execute(t, "evaluate", "--run", run, "--qrels", qrels,
		"-m", "mrr", "--gate", `mean["mrr"] >= 0.5`)
	require.NoError(t, err)

	out, err := execute(t, "evaluate", "--run", run, "--qrels", qrels,
		"-m", "mrr", "--gate", `mean["mrr"] >= 0.9`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality gate failed")
	assert.Contains(t, out, "FAIL")
}

func TestEvaluate_InvalidInput(t *testing.T) {
	run, qrels := writeInputs(t)

	_, err := execute(t, "evaluate", "--run", run, "--qrels", qrels, "-m", "bpref")
	assert.Error(t, err)

	_, err = execute(t, "evaluate", "--run", run, "--qrels", qrels, "--persistence", "1.5")
	assert.Error(t, err)

	_, err = execute(t, "evaluate", "--run", run, "--qrels", qrels, "--format", "xml")
	assert.Error(t, err)

	_, err = execute(t, "evaluate", "--qrels", qrels)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	run, qrels := writeInputs(t)

	out, err := execute(t, "validate", "--run", run, "--qrels", qrels)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: 1 queries in run but not in qrels")
	assert.Contains(t, out, "warning: 1 queries in qrels but not in run")
}

func TestMetricsAndVersion(t *testing.T) {
	out, err := execute(t, "metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "ndcg[@k]")

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rankeval dev")
}

func TestCompareQueryIDs(t *testing.T) {
	assert.Negative(t, compareQueryIDs("2", "10"))
	assert.Negative(t, compareQueryIDs("10", "a"))
	assert.Positive(t, compareQueryIDs("b", "a"))
	assert.Zero(t, compareQueryIDs("7", "7"))
}
