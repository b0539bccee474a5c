package evaluation

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ricesearch/rankeval/internal/pkg/errors"
)

// JudgmentsKind tags how a Judgments value was built.
type JudgmentsKind int

const (
	// JudgmentsBinary means membership implies grade 1.
	JudgmentsBinary JudgmentsKind = iota
	// JudgmentsGraded carries an explicit non-negative grade per document.
	JudgmentsGraded
)

func (k JudgmentsKind) String() string {
	if k == JudgmentsGraded {
		return "graded"
	}
	return "binary"
}

// Judgments holds the known relevance grades for one query.
// Documents that were never judged have grade 0.
// The zero value is an empty binary judgment set.
type Judgments[ID comparable] struct {
	kind     JudgmentsKind
	grades   map[ID]int
	relevant int
	maxGrade int
}

// NewBinaryJudgments builds judgments from the set of relevant documents.
// Repeated IDs collapse into one.
func NewBinaryJudgments[ID comparable](relevant ...ID) Judgments[ID] {
	grades := make(map[ID]int, len(relevant))
	for _, id := range relevant {
		grades[id] = 1
	}
	j := Judgments[ID]{kind: JudgmentsBinary, grades: grades, relevant: len(grades)}
	if len(grades) > 0 {
		j.maxGrade = 1
	}
	return j
}

// NewGradedJudgments builds judgments from a document -> grade mapping.
// The map is copied. Negative grades are rejected.
func NewGradedJudgments[ID comparable](grades map[ID]int) (Judgments[ID], error) {
	j := Judgments[ID]{kind: JudgmentsGraded, grades: make(map[ID]int, len(grades))}
	for id, g := range grades {
		if g < 0 {
			return Judgments[ID]{}, errors.InvalidGradeError(fmt.Sprint(id), fmt.Sprint(g))
		}
		j.grades[id] = g
		if g > 0 {
			j.relevant++
		}
		j.maxGrade = max(j.maxGrade, g)
	}
	return j, nil
}

// Kind reports whether the judgments are binary or graded.
func (j Judgments[ID]) Kind() JudgmentsKind { return j.kind }

// Grade returns the grade of id, 0 when unjudged.
func (j Judgments[ID]) Grade(id ID) int { return j.grades[id] }

// IsRelevant reports whether id has a grade above 0.
func (j Judgments[ID]) IsRelevant(id ID) bool { return j.grades[id] > 0 }

// TotalRelevant counts judged documents with grade above 0.
func (j Judgments[ID]) TotalRelevant() int { return j.relevant }

// MaxGrade is the highest grade in the set, 0 when nothing is relevant.
func (j Judgments[ID]) MaxGrade() int { return j.maxGrade }

// Len is the number of judged documents, including grade 0 entries.
func (j Judgments[ID]) Len() int { return len(j.grades) }

// IdealGrades returns every positive grade in descending order.
func (j Judgments[ID]) IdealGrades() []int {
	ideal := make([]int, 0, j.relevant)
	for _, g := range j.grades {
		if g > 0 {
			ideal = append(ideal, g)
		}
	}
	slices.SortFunc(ideal, func(a, b int) int { return cmp.Compare(b, a) })
	return ideal
}

// WithMinGrade returns graded judgments where grades below minGrade count as 0.
// Grades at or above minGrade keep their value.
func (j Judgments[ID]) WithMinGrade(minGrade int) Judgments[ID] {
	if minGrade <= 1 {
		return j
	}
	out := Judgments[ID]{kind: JudgmentsGraded, grades: make(map[ID]int, len(j.grades))}
	for id, g := range j.grades {
		if g < minGrade {
			g = 0
		}
		out.grades[id] = g
		if g > 0 {
			out.relevant++
		}
		out.maxGrade = max(out.maxGrade, g)
	}
	return out
}
