package evaluation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ricesearch/rankeval/internal/pkg/errors"
)

// MetricKind identifies one of the supported metric functions.
type MetricKind int

const (
	KindPrecision MetricKind = iota
	KindRecall
	KindSuccess
	KindRPrecision
	KindReciprocalRank
	KindNDCG
	KindNDCGList
	KindAveragePrecision
	KindERR
	KindRBP
	KindFMeasure
)

type cutoffRule int

const (
	cutoffRequired cutoffRule = iota
	cutoffOptional            // no cutoff means the whole ranking
	cutoffNone
)

type metricDef struct {
	kind   MetricKind
	name   string
	cutoff cutoffRule
}

var metricDefs = []metricDef{
	{KindPrecision, "precision", cutoffRequired},
	{KindRecall, "recall", cutoffRequired},
	{KindSuccess, "success", cutoffRequired},
	{KindRPrecision, "r_precision", cutoffNone},
	{KindReciprocalRank, "mrr", cutoffNone},
	{KindNDCG, "ndcg", cutoffOptional},
	{KindNDCGList, "ndcg_list", cutoffOptional},
	{KindAveragePrecision, "map", cutoffNone},
	{KindERR, "err", cutoffOptional},
	{KindRBP, "rbp", cutoffOptional},
	{KindFMeasure, "f", cutoffRequired},
}

var metricAliases = map[string]MetricKind{
	"p":           KindPrecision,
	"precision":   KindPrecision,
	"r":           KindRecall,
	"recall":      KindRecall,
	"success":     KindSuccess,
	"s":           KindSuccess,
	"r_precision": KindRPrecision,
	"r-precision": KindRPrecision,
	"r-prec":      KindRPrecision,
	"rprec":       KindRPrecision,
	"mrr":         KindReciprocalRank,
	"rr":          KindReciprocalRank,
	"recip_rank":  KindReciprocalRank,
	"ndcg":        KindNDCG,
	"ndcg_cut":    KindNDCG,
	"ndcg_list":   KindNDCGList,
	"map":         KindAveragePrecision,
	"ap":          KindAveragePrecision,
	"err":         KindERR,
	"rbp":         KindRBP,
	"f":           KindFMeasure,
	"f1":          KindFMeasure,
	"fmeasure":    KindFMeasure,
}

func defOf(kind MetricKind) metricDef {
	return metricDefs[kind]
}

// Metric is a parsed metric name such as "ndcg@10" or "map".
type Metric struct {
	Kind MetricKind
	// K is the cutoff, 0 when the metric has none or covers the whole ranking.
	K int
}

// Name returns the canonical metric name.
func (m Metric) Name() string {
	name := defOf(m.Kind).name
	if m.K > 0 {
		return fmt.Sprintf("%s@%d", name, m.K)
	}
	return name
}

func (m Metric) String() string { return m.Name() }

// ParseMetric parses names like "p@5", "ndcg@10", "ndcg_cut_10", "map" or "rbp".
func ParseMetric(s string) (Metric, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	base, cut, hasCut := strings.Cut(raw, "@")
	if !hasCut {
		// trec_eval style suffixes: ndcg_cut_10, P_5
		if i := strings.LastIndexByte(raw, '_'); i > 0 {
			if _, err := strconv.Atoi(raw[i+1:]); err == nil {
				base, cut, hasCut = raw[:i], raw[i+1:], true
			}
		}
	}

	kind, ok := metricAliases[base]
	if !ok {
		return Metric{}, errors.InvalidParameterError("metric", fmt.Sprintf("%q is not supported", s))
	}
	def := defOf(kind)
	m := Metric{Kind: kind}

	switch {
	case hasCut && def.cutoff == cutoffNone:
		return Metric{}, errors.InvalidParameterError("metric", fmt.Sprintf("%q does not take a cutoff", s))
	case !hasCut && def.cutoff == cutoffRequired:
		return Metric{}, errors.InvalidParameterError("metric", fmt.Sprintf("%q needs a cutoff such as %s@10", s, def.name))
	case hasCut:
		k, err := strconv.Atoi(cut)
		if err != nil {
			return Metric{}, errors.InvalidParameterError("metric", fmt.Sprintf("%q has a non-numeric cutoff", s))
		}
		if k <= 0 {
			return Metric{}, errors.InvalidCutoffError(k).WithDetail("metric", s)
		}
		m.K = k
	}
	return m, nil
}

// ParseMetrics parses a list of names, dropping repeats of the same canonical metric.
func ParseMetrics(names []string) ([]Metric, error) {
	seen := make(map[Metric]bool, len(names))
	out := make([]Metric, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		m, err := ParseMetric(name)
		if err != nil {
			return nil, err
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, errors.InvalidParameterError("metrics", "must name at least one metric")
	}
	return out, nil
}

// SupportedMetrics lists canonical metric names with a sample cutoff where one applies.
func SupportedMetrics() []string {
	out := make([]string, 0, len(metricDefs))
	for _, d := range metricDefs {
		switch d.cutoff {
		case cutoffRequired:
			out = append(out, d.name+"@k")
		case cutoffOptional:
			out = append(out, d.name+"[@k]")
		default:
			out = append(out, d.name)
		}
	}
	return out
}

// Params carries the metric parameters that are not part of a metric name.
type Params struct {
	Gain        GainMode
	Persistence float64
	Beta        float64
}

// DefaultParams returns exponential gain, RBP persistence 0.95 and F1.
func DefaultParams() Params {
	return Params{
		Gain:        GainExponential,
		Persistence: 0.95,
		Beta:        1,
	}
}

// Validate checks the parameters up front so a batch fails before any work.
func (p Params) Validate() error {
	if p.Gain != GainLinear && p.Gain != GainExponential {
		return errors.InvalidParameterError("gain", fmt.Sprintf("unknown mode %d", p.Gain))
	}
	if !(p.Persistence > 0 && p.Persistence < 1) {
		return errors.InvalidParameterError("persistence",
			fmt.Sprintf("must be in (0, 1), got %v", p.Persistence))
	}
	if !(p.Beta >= 0) || math.IsInf(p.Beta, 1) {
		return errors.InvalidParameterError("beta",
			fmt.Sprintf("must be a finite value >= 0, got %v", p.Beta))
	}
	return nil
}

// Compute evaluates m for one ranking.
func Compute[ID comparable](m Metric, ranked RankedList[ID], j Judgments[ID], p Params) (float64, error) {
	k := m.K
	if k == 0 {
		// whole ranking; the floor of 1 keeps empty rankings valid
		k = max(ranked.Len(), 1)
	}

	switch m.Kind {
	case KindPrecision:
		return PrecisionAtK(ranked, j, k)
	case KindRecall:
		return RecallAtK(ranked, j, k)
	case KindSuccess:
		return SuccessAtK(ranked, j, k)
	case KindRPrecision:
		return RPrecision(ranked, j), nil
	case KindReciprocalRank:
		return ReciprocalRank(ranked, j), nil
	case KindNDCG:
		return ComputeNDCG(ranked, j, k, p.Gain)
	case KindNDCGList:
		return NDCGAtK(ranked, j, k, p.Gain)
	case KindAveragePrecision:
		return AveragePrecision(ranked, j), nil
	case KindERR:
		return ERRAtK(ranked, j, k)
	case KindRBP:
		return RBPAtK(ranked, j, k, p.Persistence)
	case KindFMeasure:
		return FMeasureAtK(ranked, j, k, p.Beta)
	default:
		return 0, errors.InvalidParameterError("metric", fmt.Sprintf("unknown kind %d", m.Kind))
	}
}
