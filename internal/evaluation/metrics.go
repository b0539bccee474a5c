package evaluation

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/ricesearch/rankeval/internal/pkg/errors"
)

// All metrics below return a value in [0, 1]. Empty rankings score 0 and
// k larger than the ranking is clamped to its length.

func checkCutoff(k int) error {
	if k <= 0 {
		return errors.InvalidCutoffError(k)
	}
	return nil
}

// clampUnit keeps float rounding from pushing a ratio past 1.
func clampUnit(x float64) float64 {
	switch {
	case x > 1:
		return 1
	case x > 0:
		return x
	default:
		return 0
	}
}

func hits[ID comparable](ranked RankedList[ID], j Judgments[ID], n int) int {
	found := 0
	for i := 0; i < n; i++ {
		if j.IsRelevant(ranked.ids[i]) {
			found++
		}
	}
	return found
}

// PrecisionAtK is the fraction of the top k documents that are relevant.
func PrecisionAtK[ID comparable](ranked RankedList[ID], j Judgments[ID], k int) (float64, error) {
	if err := checkCutoff(k); err != nil {
		return 0, err
	}
	n := ranked.cutoff(k)
	if n == 0 {
		return 0, nil
	}
	return float64(hits(ranked, j, n)) / float64(n), nil
}

// RecallAtK is the fraction of all relevant documents found in the top k.
func RecallAtK[ID comparable](ranked RankedList[ID], j Judgments[ID], k int) (float64, error) {
	if err := checkCutoff(k); err != nil {
		return 0, err
	}
	total := j.TotalRelevant()
	if total == 0 {
		return 0, nil
	}
	return clampUnit(float64(hits(ranked, j, ranked.cutoff(k))) / float64(total)), nil
}

// SuccessAtK is 1 when any of the top k documents is relevant.
func SuccessAtK[ID comparable](ranked RankedList[ID], j Judgments[ID], k int) (float64, error) {
	if err := checkCutoff(k); err != nil {
		return 0, err
	}
	n := ranked.cutoff(k)
	for i := 0; i < n; i++ {
		if j.IsRelevant(ranked.ids[i]) {
			return 1, nil
		}
	}
	return 0, nil
}

// RPrecision is precision at a cutoff equal to the number of relevant documents.
func RPrecision[ID comparable](ranked RankedList[ID], j Judgments[ID]) float64 {
	r := j.TotalRelevant()
	if r == 0 {
		return 0
	}
	p, _ := PrecisionAtK(ranked, j, r)
	return p
}

// ReciprocalRank is 1 / rank of the first relevant document, 0 if none is ranked.
// Averaging it over queries gives MRR.
func ReciprocalRank[ID comparable](ranked RankedList[ID], j Judgments[ID]) float64 {
	for i, id := range ranked.ids {
		if j.IsRelevant(id) {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// DCGAtK is the raw discounted cumulative gain of the top k documents.
// Unlike the other metrics it is not normalized.
func DCGAtK[ID comparable](ranked RankedList[ID], j Judgments[ID], k int, mode GainMode) (float64, error) {
	if err := checkCutoff(k); err != nil {
		return 0, err
	}
	var dcg float64
	for i, n := 0, ranked.cutoff(k); i < n; i++ {
		dcg += Gain(j.Grade(ranked.ids[i]), mode) * Discount(i)
	}
	if math.IsInf(dcg, 0) {
		return 0, errors.InvalidParameterError("gain", "overflows float64 for the judged grades")
	}
	return dcg, nil
}

// NDCG computes NDCG@k over a sequence of grades in ranked order. The ideal
// ordering is the same grades sorted descending, so documents that were never
// retrieved do not lower the score.
func NDCG(relevances []int, k int, mode GainMode) (float64, error) {
	if err := checkCutoff(k); err != nil {
		return 0, err
	}
	for i, g := range relevances {
		if g < 0 {
			return 0, errors.InvalidGradeError(fmt.Sprintf("at rank %d", i+1), fmt.Sprint(g))
		}
	}
	return listRelativeNDCG(relevances, k, mode), nil
}

// NDCGAtK is NDCG with a list-relative ideal: the grades of the ranked
// documents themselves, sorted descending.
func NDCGAtK[ID comparable](ranked RankedList[ID], j Judgments[ID], k int, mode GainMode) (float64, error) {
	if err := checkCutoff(k); err != nil {
		return 0, err
	}
	return listRelativeNDCG(ranked.grades(j, ranked.Len()), k, mode), nil
}

// ComputeNDCG is NDCG with a judgment-global ideal: every positive grade in
// the judgments, sorted descending and cut at k. Relevant documents missing
// from the ranking lower the score.
func ComputeNDCG[ID comparable](ranked RankedList[ID], j Judgments[ID], k int, mode GainMode) (float64, error) {
	if err := checkCutoff(k); err != nil {
		return 0, err
	}
	n := ranked.cutoff(k)
	if n == 0 || j.TotalRelevant() == 0 {
		return 0, nil
	}
	ideal := j.IdealGrades()
	ideal = ideal[:min(n, len(ideal))]
	return normalizedDCG(ranked.grades(j, n), ideal, j.MaxGrade(), mode), nil
}

func listRelativeNDCG(grades []int, k int, mode GainMode) float64 {
	n := min(k, len(grades))
	if n == 0 {
		return 0
	}
	ideal := slices.Clone(grades)
	slices.SortFunc(ideal, func(a, b int) int { return cmp.Compare(b, a) })
	top := ideal[0]
	return normalizedDCG(grades[:n], ideal[:n], top, mode)
}

// normalizedDCG divides the DCG of grades by the DCG of ideal. top must be at
// least the largest grade in either slice.
func normalizedDCG(grades, ideal []int, top int, mode GainMode) float64 {
	idcg := discountedSum(ideal, top, mode)
	if idcg <= 0 {
		return 0
	}
	return clampUnit(discountedSum(grades, top, mode) / idcg)
}

// AveragePrecision averages precision at each rank holding a relevant
// document. Averaged over queries it gives MAP.
func AveragePrecision[ID comparable](ranked RankedList[ID], j Judgments[ID]) float64 {
	found := 0
	sumPrecision := 0.0

	for i, id := range ranked.ids {
		if j.IsRelevant(id) {
			found++
			sumPrecision += float64(found) / float64(i+1)
		}
	}

	if found == 0 {
		return 0
	}
	return clampUnit(sumPrecision / float64(found))
}

// ERRAtK is expected reciprocal rank under the cascade model. A document of
// grade g satisfies the user with probability (2^g - 1) / (2^max - 1), where
// max is the highest judged grade. With binary judgments this equals the
// reciprocal rank of the first relevant document within k.
func ERRAtK[ID comparable](ranked RankedList[ID], j Judgments[ID], k int) (float64, error) {
	if err := checkCutoff(k); err != nil {
		return 0, err
	}
	top := j.MaxGrade()
	if top == 0 {
		return 0, nil
	}

	var score float64
	reach := 1.0 // probability the user gets this far
	for i, n := 0, ranked.cutoff(k); i < n; i++ {
		g := j.Grade(ranked.ids[i])
		if g <= 0 {
			continue
		}
		sat := satisfaction(g, top)
		score += reach * sat / float64(i+1)
		reach *= 1 - sat
		if reach == 0 {
			break
		}
	}
	return clampUnit(score), nil
}

// satisfaction is (2^g - 1) / (2^top - 1), computed without overflow.
func satisfaction(g, top int) float64 {
	if g >= top {
		return 1
	}
	return scaledGain(g, top, GainExponential) / scaledGain(top, top, GainExponential)
}

// RBPAtK is rank-biased precision truncated at k. persistence is the
// probability the user moves on to the next rank and must be in (0, 1).
func RBPAtK[ID comparable](ranked RankedList[ID], j Judgments[ID], k int, persistence float64) (float64, error) {
	if err := checkCutoff(k); err != nil {
		return 0, err
	}
	if !(persistence > 0 && persistence < 1) {
		return 0, errors.InvalidParameterError("persistence",
			fmt.Sprintf("must be in (0, 1), got %v", persistence))
	}

	var sum float64
	weight := 1.0
	for i, n := 0, ranked.cutoff(k); i < n; i++ {
		if j.IsRelevant(ranked.ids[i]) {
			sum += weight
		}
		weight *= persistence
	}
	return clampUnit((1 - persistence) * sum), nil
}

// FMeasureAtK combines precision and recall at k. beta = 1 is F1; beta > 1
// weights recall more heavily, beta = 0 reduces to precision.
func FMeasureAtK[ID comparable](ranked RankedList[ID], j Judgments[ID], k int, beta float64) (float64, error) {
	if err := checkCutoff(k); err != nil {
		return 0, err
	}
	if !(beta >= 0) || math.IsInf(beta, 1) {
		return 0, errors.InvalidParameterError("beta",
			fmt.Sprintf("must be a finite value >= 0, got %v", beta))
	}

	p, _ := PrecisionAtK(ranked, j, k)
	r, _ := RecallAtK(ranked, j, k)

	b2 := beta * beta
	denom := b2*p + r
	if denom <= 0 {
		return 0, nil
	}
	return clampUnit((1 + b2) * p * r / denom), nil
}
