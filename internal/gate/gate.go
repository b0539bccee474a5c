// Package gate checks a batch summary against a CEL quality expression,
// e.g. `mean["ndcg@10"] >= 0.3 && queries >= 50`.
package gate

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/ricesearch/rankeval/internal/evaluation"
	"github.com/ricesearch/rankeval/internal/pkg/errors"
)

var (
	env     *cel.Env
	envErr  error
	envOnce sync.Once
)

func getEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable("mean", cel.MapType(cel.StringType, cel.DoubleType)),
			cel.Variable("queries", cel.IntType),
			cel.Variable("unjudged", cel.IntType),
		)
	})
	return env, envErr
}

// Gate is a compiled quality expression. It is safe for concurrent use.
type Gate struct {
	expr string
	prg  cel.Program
}

// Compile parses and type-checks expr. The expression must yield a bool.
func Compile(expr string) (*Gate, error) {
	e, err := getEnv()
	if err != nil {
		return nil, errors.InternalError("create CEL environment", err)
	}

	ast, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.InvalidParameterError("gate", issues.Err().Error())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.InvalidParameterError("gate",
			fmt.Sprintf("must evaluate to bool, got %s", ast.OutputType()))
	}

	prg, err := e.Program(ast)
	if err != nil {
		return nil, errors.InvalidParameterError("gate", err.Error())
	}
	return &Gate{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (g *Gate) String() string { return g.expr }

// Check evaluates the gate against a summary. Referencing a metric that the
// summary lacks is an error.
func (g *Gate) Check(s evaluation.Summary) (bool, error) {
	means := s.Means
	if means == nil {
		means = map[string]float64{}
	}
	out, _, err := g.prg.Eval(map[string]any{
		"mean":     means,
		"queries":  s.QueryCount,
		"unjudged": s.Unjudged,
	})
	if err != nil {
		return false, errors.InvalidParameterError("gate", err.Error())
	}

	pass, ok := out.Value().(bool)
	if !ok {
		return false, errors.InvalidParameterError("gate",
			fmt.Sprintf("must evaluate to bool, got %T", out.Value()))
	}
	return pass, nil
}
