package evaluation

import (
	"cmp"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricesearch/rankeval/internal/pkg/errors"
)

const tolerance = 1e-9

func ranking(t *testing.T, ids ...string) RankedList[string] {
	t.Helper()
	r, err := NewRankedList(ids...)
	require.NoError(t, err)
	return r
}

func graded(t *testing.T, grades map[string]int) Judgments[string] {
	t.Helper()
	j, err := NewGradedJudgments(grades)
	require.NoError(t, err)
	return j
}

func TestPrecisionAndRecall(t *testing.T) {
	ranked := ranking(t, "doc1", "doc2", "doc3", "doc4")
	relevant := NewBinaryJudgments("doc1", "doc3")

	p, err := PrecisionAtK(ranked, relevant, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)

	r, err := RecallAtK(ranked, relevant, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.5, r)

	r, err = RecallAtK(ranked, relevant, 4)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)
}

func TestPrecision_CutoffClampsToLength(t *testing.T) {
	ranked := ranking(t, "doc1", "doc2")
	relevant := NewBinaryJudgments("doc1")

	p, err := PrecisionAtK(ranked, relevant, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)
}

func TestReciprocalRankAndSuccess(t *testing.T) {
	ranked := ranking(t, "doc1", "doc2", "doc3")
	relevant := NewBinaryJudgments("doc2")

	assert.Equal(t, 0.5, ReciprocalRank(ranked, relevant))

	for k, want := range map[int]float64{1: 0, 2: 1, 3: 1} {
		got, err := SuccessAtK(ranked, relevant, k)
		require.NoError(t, err)
		assert.Equal(t, want, got, "success@%d", k)
	}

	e, err := ERRAtK(ranked, relevant, 3)
	require.NoError(t, err)
	assert.InDelta(t, ReciprocalRank(ranked, relevant), e, tolerance)
}

func TestERR_BinaryMatchesReciprocalRank(t *testing.T) {
	ranked := ranking(t, "a", "b", "c", "d", "e")
	for _, rel := range [][]string{{"a"}, {"c", "e"}, {"d", "b"}, {"e"}} {
		j := NewBinaryJudgments(rel...)
		e, err := ERRAtK(ranked, j, 5)
		require.NoError(t, err)
		assert.InDelta(t, ReciprocalRank(ranked, j), e, tolerance, "relevant=%v", rel)
	}
}

func TestERR_Graded(t *testing.T) {
	ranked := ranking(t, "a", "b")
	j := graded(t, map[string]int{"a": 1, "b": 2})

	// R(1) = 1/3, R(2) = 1
	want := 1.0/3 + (2.0/3)*1/2
	got, err := ERRAtK(ranked, j, 2)
	require.NoError(t, err)
	assert.InDelta(t, want, got, tolerance)

	got, err = ERRAtK(ranked, j, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, got, tolerance)
}

func TestRPrecision(t *testing.T) {
	ranked := ranking(t, "doc1", "doc2", "doc3", "doc4")
	relevant := NewBinaryJudgments("doc1", "doc3")
	assert.InDelta(t, 0.5, RPrecision(ranked, relevant), tolerance)

	// R larger than the ranking uses the whole ranking
	short := ranking(t, "doc1")
	assert.Equal(t, 1.0, RPrecision(short, relevant))
}

func TestAveragePrecision(t *testing.T) {
	ranked := ranking(t, "doc1", "doc2", "doc3", "doc4")
	relevant := NewBinaryJudgments("doc1", "doc3")

	// (1/1 + 2/3) / 2
	assert.InDelta(t, (1+2.0/3)/2, AveragePrecision(ranked, relevant), tolerance)

	// only found relevant positions are averaged
	partial := NewBinaryJudgments("doc2", "missing")
	assert.InDelta(t, 0.5, AveragePrecision(ranked, partial), tolerance)
}

func TestGainAndDiscount(t *testing.T) {
	assert.Equal(t, 0.0, Gain(0, GainExponential))
	assert.Equal(t, 0.0, Gain(-3, GainLinear))
	assert.Equal(t, 3.0, Gain(3, GainLinear))
	assert.Equal(t, 7.0, Gain(3, GainExponential))
	assert.Equal(t, 1.0, Discount(0))
	assert.InDelta(t, 1/math.Log2(3), Discount(1), tolerance)
	assert.InDelta(t, 0.5, Discount(2), tolerance)
}

func TestParseGainMode(t *testing.T) {
	m, err := ParseGainMode("Linear")
	require.NoError(t, err)
	assert.Equal(t, GainLinear, m)

	m, err = ParseGainMode("exp")
	require.NoError(t, err)
	assert.Equal(t, GainExponential, m)

	_, err = ParseGainMode("log")
	assert.True(t, errors.IsInvalidParameter(err))
}

func TestDCGAtK(t *testing.T) {
	ranked := ranking(t, "a", "b", "c")
	j := graded(t, map[string]int{"a": 3, "c": 1})

	got, err := DCGAtK(ranked, j, 3, GainExponential)
	require.NoError(t, err)
	assert.InDelta(t, 7+1*0.5, got, tolerance)

	got, err = DCGAtK(ranked, j, 3, GainLinear)
	require.NoError(t, err)
	assert.InDelta(t, 3+0.5, got, tolerance)
}

func TestNDCG_SortedRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		grades := make([]int, 1+rng.Intn(20))
		for i := range grades {
			grades[i] = rng.Intn(5)
		}
		slices.SortFunc(grades, func(a, b int) int { return cmp.Compare(b, a) })

		for _, mode := range []GainMode{GainLinear, GainExponential} {
			for k := 1; k <= len(grades)+2; k++ {
				got, err := NDCG(grades, k, mode)
				require.NoError(t, err)
				if grades[0] == 0 {
					assert.Equal(t, 0.0, got)
					continue
				}
				assert.InDelta(t, 1.0, got, tolerance, "trial %d k=%d mode=%s", trial, k, mode)
			}
		}
	}
}

func TestNDCGAtK_ListRelativeIgnoresUnretrieved(t *testing.T) {
	ranked := ranking(t, "a", "b")
	j := graded(t, map[string]int{"a": 2, "b": 1, "missing": 3})

	listRel, err := NDCGAtK(ranked, j, 2, GainExponential)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, listRel, tolerance)

	global, err := ComputeNDCG(ranked, j, 2, GainExponential)
	require.NoError(t, err)
	assert.Less(t, global, listRel)

	// ideal: 7, 3/log2(3)  actual: 3, 1/log2(3)
	want := (3 + 1/math.Log2(3)) / (7 + 3/math.Log2(3))
	assert.InDelta(t, want, global, tolerance)
}

func TestNDCG_UnsortedBelowOne(t *testing.T) {
	got, err := NDCG([]int{0, 1, 2}, 3, GainLinear)
	require.NoError(t, err)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)
}

func TestNDCG_AllZeroJudgments(t *testing.T) {
	got, err := NDCG([]int{0, 0, 0}, 3, GainExponential)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
	assert.False(t, math.IsNaN(got))

	ranked := ranking(t, "a", "b")
	j := graded(t, map[string]int{"a": 0, "b": 0})
	for _, f := range []func(RankedList[string], Judgments[string], int, GainMode) (float64, error){NDCGAtK[string], ComputeNDCG[string]} {
		got, err := f(ranked, j, 2, GainExponential)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	}
}

func TestNDCG_LargeGradesStayFinite(t *testing.T) {
	ranked := ranking(t, "a", "b")
	j := graded(t, map[string]int{"a": 2000, "b": 1999})

	got, err := ComputeNDCG(ranked, j, 2, GainExponential)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, tolerance)

	e, err := ERRAtK(ranked, j, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, e, tolerance)

	_, err = DCGAtK(ranked, j, 2, GainExponential)
	assert.True(t, errors.IsInvalidParameter(err))
}

func TestNDCG_NegativeGrade(t *testing.T) {
	_, err := NDCG([]int{1, -1}, 2, GainLinear)
	assert.True(t, errors.IsInvalidGrade(err))
}

func TestRBP(t *testing.T) {
	ranked := ranking(t, "a", "b", "c")
	j := NewBinaryJudgments("a", "c")

	got, err := RBPAtK(ranked, j, 3, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*(1+0.25), got, tolerance)

	t.Run("positions beyond k contribute nothing", func(t *testing.T) {
		atOne, err := RBPAtK(ranked, j, 1, 0.5)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, atOne, tolerance)

		onlyDeep := NewBinaryJudgments("c")
		got, err := RBPAtK(ranked, onlyDeep, 2, 0.5)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	})

	t.Run("non-increasing in persistence", func(t *testing.T) {
		top := NewBinaryJudgments("a")
		prev := math.Inf(1)
		for _, p := range []float64{0.1, 0.3, 0.5, 0.8, 0.95, 0.99} {
			got, err := RBPAtK(ranked, top, 3, p)
			require.NoError(t, err)
			assert.LessOrEqual(t, got, prev, "p=%v", p)
			prev = got
		}
	})

	t.Run("invalid persistence", func(t *testing.T) {
		for _, p := range []float64{0, 1, -0.1, 1.5, math.NaN()} {
			_, err := RBPAtK(ranked, j, 3, p)
			assert.True(t, errors.IsInvalidParameter(err), "p=%v", p)
		}
	})
}

func TestFMeasure(t *testing.T) {
	ranked := ranking(t, "a", "b", "c", "d", "e")
	j := NewBinaryJudgments("a", "c", "x", "y")

	for k := 1; k <= 5; k++ {
		p, err := PrecisionAtK(ranked, j, k)
		require.NoError(t, err)
		r, err := RecallAtK(ranked, j, k)
		require.NoError(t, err)

		f, err := FMeasureAtK(ranked, j, k, 1)
		require.NoError(t, err)
		want := 2 * p * r / (p + r)
		assert.InDelta(t, want, f, tolerance, "k=%d", k)
	}

	p, _ := PrecisionAtK(ranked, j, 3)
	f0, err := FMeasureAtK(ranked, j, 3, 0)
	require.NoError(t, err)
	assert.InDelta(t, p, f0, tolerance)

	none, err := FMeasureAtK(ranked, NewBinaryJudgments("z"), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, none)

	for _, beta := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := FMeasureAtK(ranked, j, 3, beta)
		assert.True(t, errors.IsInvalidParameter(err), "beta=%v", beta)
	}
}

func TestInvalidCutoff(t *testing.T) {
	ranked := ranking(t, "a")
	j := NewBinaryJudgments("a")

	checks := map[string]func(k int) error{
		"precision": func(k int) error { _, err := PrecisionAtK(ranked, j, k); return err },
		"recall":    func(k int) error { _, err := RecallAtK(ranked, j, k); return err },
		"success":   func(k int) error { _, err := SuccessAtK(ranked, j, k); return err },
		"dcg":       func(k int) error { _, err := DCGAtK(ranked, j, k, GainLinear); return err },
		"ndcg":      func(k int) error { _, err := NDCG([]int{1}, k, GainLinear); return err },
		"ndcg list": func(k int) error { _, err := NDCGAtK(ranked, j, k, GainLinear); return err },
		"ndcg glob": func(k int) error { _, err := ComputeNDCG(ranked, j, k, GainLinear); return err },
		"err":       func(k int) error { _, err := ERRAtK(ranked, j, k); return err },
		"rbp":       func(k int) error { _, err := RBPAtK(ranked, j, k, 0.8); return err },
		"f":         func(k int) error { _, err := FMeasureAtK(ranked, j, k, 1); return err },
	}
	for name, check := range checks {
		for _, k := range []int{0, -1} {
			assert.True(t, errors.IsInvalidCutoff(check(k)), "%s k=%d", name, k)
		}
	}
}

func TestEmptyRankingScoresZero(t *testing.T) {
	var empty RankedList[string]
	j := graded(t, map[string]int{"a": 2, "b": 1})
	params := DefaultParams()

	for _, name := range []string{"p@5", "recall@5", "success@5", "r_precision", "mrr",
		"ndcg@5", "ndcg_list", "map", "err@5", "rbp@5", "f@5"} {
		m, err := ParseMetric(name)
		require.NoError(t, err)
		got, err := Compute(m, empty, j, params)
		require.NoError(t, err, name)
		assert.Equal(t, 0.0, got, name)
	}
}

func TestZeroRelevantScoresZero(t *testing.T) {
	ranked := ranking(t, "a", "b")
	var none Judgments[string]

	r, err := RecallAtK(ranked, none, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
	assert.Equal(t, 0.0, RPrecision(ranked, none))
	assert.Equal(t, 0.0, AveragePrecision(ranked, none))
	n, err := ComputeNDCG(ranked, none, 2, GainExponential)
	require.NoError(t, err)
	assert.Equal(t, 0.0, n)
}

// randomCase builds a ranking over a pool of documents with random grades.
func randomCase(rng *rand.Rand) (RankedList[int], Judgments[int]) {
	pool := rng.Intn(30)
	ids := rng.Perm(pool + 1)[:rng.Intn(pool+1)]
	grades := make(map[int]int)
	for doc := 0; doc < pool+1; doc++ {
		if rng.Intn(3) == 0 {
			grades[doc] = rng.Intn(4)
		}
	}
	ranked, _ := NewRankedList(ids...)
	j, _ := NewGradedJudgments(grades)
	return ranked, j
}

func TestAllMetricsBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	params := Params{Gain: GainExponential, Persistence: 0.8, Beta: 2}

	var metrics []Metric
	for _, name := range []string{"p@3", "recall@3", "success@1", "r_precision", "mrr",
		"ndcg@5", "ndcg", "ndcg_list@5", "map", "err@10", "rbp", "f@4"} {
		m, err := ParseMetric(name)
		require.NoError(t, err)
		metrics = append(metrics, m)
	}

	for trial := 0; trial < 200; trial++ {
		ranked, j := randomCase(rng)
		for _, m := range metrics {
			for _, gain := range []GainMode{GainLinear, GainExponential} {
				params.Gain = gain
				got, err := Compute(m, ranked, j, params)
				require.NoError(t, err)
				if got < 0 || got > 1 || math.IsNaN(got) {
					t.Fatalf("trial %d: %s = %v out of [0, 1]", trial, m, got)
				}

				// same inputs, same bits
				again, err := Compute(m, ranked, j, params)
				require.NoError(t, err)
				assert.Equal(t, math.Float64bits(got), math.Float64bits(again), fmt.Sprintf("trial %d %s", trial, m))
			}
		}
	}
}
