// Package trec reads TREC run and qrels files.
package trec

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ricesearch/rankeval/internal/pkg/errors"
	"github.com/ricesearch/rankeval/internal/pkg/hash"
)

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// RunEntry is one line of a run file: qid Q0 docid rank score tag.
type RunEntry struct {
	QueryID string  `json:"query_id"`
	DocID   string  `json:"doc_id"`
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
	Tag     string  `json:"tag"`
	Line    int     `json:"line"`
}

// Qrel is one line of a qrels file: qid iter docid grade.
type Qrel struct {
	QueryID string `json:"query_id"`
	DocID   string `json:"doc_id"`
	Grade   int    `json:"grade"`
	Line    int    `json:"line"`
}

// Source describes a loaded file.
type Source struct {
	Path    string `json:"path"`
	SHA256  string `json:"sha256"`
	Bytes   int64  `json:"bytes"`
	Entries int    `json:"entries"`
}

// scanLines calls fn with the whitespace-split fields of every line that is
// not blank or a # comment.
func scanLines(r io.Reader, fn func(line int, fields []string) error) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := fn(line, strings.Fields(text)); err != nil {
			return line, err
		}
	}
	if err := sc.Err(); err != nil {
		return line, errors.InvalidFormatError(line+1, err.Error())
	}
	return line, nil
}

// ParseRun reads a run file. The tag may contain spaces; everything after the
// score is joined back into it.
func ParseRun(r io.Reader) ([]RunEntry, error) {
	var entries []RunEntry
	_, err := scanLines(r, func(line int, f []string) error {
		if len(f) >= 2 && f[1] != "Q0" {
			return errors.InvalidFormatError(line,
				fmt.Sprintf("expected Q0 as second field, found %q", f[1]))
		}
		if len(f) < 6 {
			return errors.InvalidFormatError(line,
				fmt.Sprintf("expected 6 fields (qid Q0 docid rank score tag), found %d", len(f)))
		}

		rank, err := strconv.Atoi(f[3])
		if err != nil || rank < 0 {
			return errors.InvalidFormatError(line, fmt.Sprintf("invalid rank %q", f[3]))
		}
		score, err := strconv.ParseFloat(f[4], 64)
		if err != nil {
			return errors.InvalidFormatError(line, fmt.Sprintf("invalid score %q", f[4]))
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return errors.InvalidFormatError(line, fmt.Sprintf("score %q is not finite", f[4]))
		}

		entries = append(entries, RunEntry{
			QueryID: f[0],
			DocID:   f[2],
			Rank:    rank,
			Score:   score,
			Tag:     strings.Join(f[5:], " "),
			Line:    line,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ParseQrels reads a qrels file. The iteration column is ignored. Grades must
// be non-negative integers.
func ParseQrels(r io.Reader) ([]Qrel, error) {
	var qrels []Qrel
	_, err := scanLines(r, func(line int, f []string) error {
		if len(f) != 4 {
			return errors.InvalidFormatError(line,
				fmt.Sprintf("expected 4 fields (qid iter docid grade), found %d", len(f)))
		}
		grade, err := strconv.Atoi(f[3])
		if err != nil || grade < 0 {
			return errors.InvalidGradeError(f[2], f[3]).
				WithDetail("query", f[0]).
				WithDetail("line", strconv.Itoa(line))
		}

		qrels = append(qrels, Qrel{
			QueryID: f[0],
			DocID:   f[2],
			Grade:   grade,
			Line:    line,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return qrels, nil
}

// LoadRun parses the run file at path.
func LoadRun(path string) ([]RunEntry, Source, error) {
	var entries []RunEntry
	src, err := load(path, func(r io.Reader) (int, error) {
		var err error
		entries, err = ParseRun(r)
		return len(entries), err
	})
	return entries, src, err
}

// LoadQrels parses the qrels file at path.
func LoadQrels(path string) ([]Qrel, Source, error) {
	var qrels []Qrel
	src, err := load(path, func(r io.Reader) (int, error) {
		var err error
		qrels, err = ParseQrels(r)
		return len(qrels), err
	})
	return qrels, src, err
}

func load(path string, parse func(io.Reader) (int, error)) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Source{}, errors.NotFoundError(path)
		}
		return Source{}, errors.InternalError("open "+path, err)
	}
	defer f.Close()

	dr := hash.NewDigestReader(f)
	n, err := parse(dr)
	if err != nil {
		return Source{}, errors.Wrap(errors.CodeOf(err), path, err)
	}
	return Source{Path: path, SHA256: dr.Sum(), Bytes: dr.Size(), Entries: n}, nil
}
