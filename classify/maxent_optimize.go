package classify

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/optimize"
	"text2phenotype.com/tagtrainer/logger"
)

var optimizeLogger = logger.NewLogger("maxent optimize")

// cutoffConverger stops a gonum optimization with the same cutoffs the
// iterative scaling trainers use. The objective is the negated average log
// likelihood.
type cutoffConverger struct {
	stop  *cutoffs
	trace iterationTrace
}

func (c *cutoffConverger) Init(dim int) {}

func (c *cutoffConverger) Converged(loc *optimize.Location) optimize.Status {
	ll := -loc.F
	c.trace.row(c.stop.iter+1, loc.X, 0, ll)
	if c.stop.check(ll) {
		return optimize.FunctionConvergence
	}
	return optimize.NotTerminated
}

func optimizeMethod(algorithm string) (optimize.Method, error) {
	switch strings.ToUpper(algorithm) {
	case AlgorithmCG:
		return &optimize.CG{}, nil
	case AlgorithmBFGS:
		return &optimize.BFGS{}, nil
	case AlgorithmLBFGSB:
		// unconstrained, so limited memory BFGS without bounds
		return &optimize.LBFGS{}, nil
	case strings.ToUpper(AlgorithmNelderMead):
		return &optimize.NelderMead{}, nil
	}
	return nil, fmt.Errorf("maxent: unknown algorithm %q", algorithm)
}

// trainOptimize fits the weights by minimizing the negated average log
// likelihood with a general purpose optimizer.
func trainOptimize(state *maxentState, stop *cutoffs, tracer logger.Tracer, algorithm string) (*Maxent, error) {
	method, err := optimizeMethod(algorithm)
	if err != nil {
		return nil, err
	}
	trace := iterationTrace{tracer: tracer, state: state}
	trace.header(algorithm)

	empirical, _ := state.empirical()
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return -state.logLikelihood(x, 0)
		},
		Grad: func(grad, x []float64) {
			estimated, _, _ := state.estimate(x, 0)
			for i := range grad {
				grad[i] = estimated[i] - empirical[i]
			}
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-10,
		Converger:         &cutoffConverger{stop: stop, trace: trace},
	}

	x0 := make([]float64, state.enc.size)
	result, err := optimize.Minimize(problem, x0, settings, method)
	if err != nil {
		if result == nil {
			errLogger := optimizeLogger.With().Caller().Logger()
			errLogger.Error().Err(err).Str("algorithm", algorithm).Msg("optimization failed")
			return nil, fmt.Errorf("maxent %s: %w", algorithm, err)
		}
		optimizeLogger.Warn().Err(err).Str("algorithm", algorithm).Str("status", result.Status.String()).Msg("optimization stopped early")
	}

	weights := result.X
	if err := checkWeights(algorithm, weights); err != nil {
		return nil, err
	}
	trace.footer(weights, 0)
	return state.enc.model(weights, nil), nil
}
