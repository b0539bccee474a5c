package evaluation

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/ricesearch/rankeval/internal/pkg/errors"
)

// RankedList is an ordered list of distinct documents. Position i holds rank i+1.
// The zero value is an empty list.
type RankedList[ID comparable] struct {
	ids []ID
}

// Scored is a document with a retrieval score.
type Scored[ID comparable] struct {
	ID    ID
	Score float64
}

// NewRankedList builds a ranked list in the given order. The slice is copied.
func NewRankedList[ID comparable](ids ...ID) (RankedList[ID], error) {
	seen := make(map[ID]int, len(ids))
	for i, id := range ids {
		if first, ok := seen[id]; ok {
			return RankedList[ID]{}, errors.DuplicateDocumentError(fmt.Sprint(id), first+1, i+1)
		}
		seen[id] = i
	}
	return RankedList[ID]{ids: slices.Clone(ids)}, nil
}

// RankFromScores orders docs by score, highest first.
// Equal scores keep their input order.
func RankFromScores[ID comparable](docs []Scored[ID]) (RankedList[ID], error) {
	sorted := slices.Clone(docs)
	for _, d := range sorted {
		if math.IsNaN(d.Score) {
			return RankedList[ID]{}, errors.InvalidParameterError("score",
				fmt.Sprintf("for document %v is NaN", d.ID))
		}
	}
	slices.SortStableFunc(sorted, func(a, b Scored[ID]) int {
		return cmp.Compare(b.Score, a.Score)
	})

	ids := make([]ID, len(sorted))
	for i, d := range sorted {
		ids[i] = d.ID
	}
	return NewRankedList(ids...)
}

// Len returns the number of ranked documents.
func (r RankedList[ID]) Len() int { return len(r.ids) }

// At returns the document at 0-indexed position i.
func (r RankedList[ID]) At(i int) ID { return r.ids[i] }

// IDs returns a copy of the ranking.
func (r RankedList[ID]) IDs() []ID { return slices.Clone(r.ids) }

// cutoff clamps k to the list length.
func (r RankedList[ID]) cutoff(k int) int {
	return min(k, len(r.ids))
}

// grades maps the first n documents to their judged grades.
func (r RankedList[ID]) grades(j Judgments[ID], n int) []int {
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = j.Grade(r.ids[i])
	}
	return out
}
