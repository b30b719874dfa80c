package classify

import (
	"fmt"
	"math"
	"strings"

	"text2phenotype.com/tagtrainer/logger"
)

// Maxent training algorithms.
const (
	AlgorithmGIS        = "GIS"
	AlgorithmIIS        = "IIS"
	AlgorithmCG         = "CG"
	AlgorithmBFGS       = "BFGS"
	AlgorithmLBFGSB     = "LBFGSB"
	AlgorithmNelderMead = "Nelder-Mead"
)

// DefaultMaxentAlgorithm is used when no algorithm option is given.
const DefaultMaxentAlgorithm = AlgorithmIIS

const (
	newtonMaxIter  = 300
	newtonConverge = 1e-12
)

// cutoffs decide when iterative maxent training stops.
type cutoffs struct {
	maxIter    int
	minLL      float64
	minLLDelta float64
	hasMinLL   bool
	hasDelta   bool

	iter   int
	prevLL float64
	hasLL  bool
}

func newCutoffs(opts Options) (*cutoffs, error) {
	c := &cutoffs{}
	var err error
	if c.maxIter, err = opts.Int("max_iter", 100); err != nil {
		return nil, err
	}
	if opts.Has("min_ll") {
		c.hasMinLL = true
		if c.minLL, err = opts.Float("min_ll", 0); err != nil {
			return nil, err
		}
		c.minLL = -math.Abs(c.minLL)
	}
	if opts.Has("min_lldelta") {
		c.hasDelta = true
		if c.minLLDelta, err = opts.Float("min_lldelta", 0); err != nil {
			return nil, err
		}
		c.minLLDelta = math.Abs(c.minLLDelta)
	}
	return c, nil
}

func (c *cutoffs) needsLL() bool {
	return c.hasMinLL || c.hasDelta
}

// check records one finished iteration and reports whether training stops.
// ll is the average log likelihood after the iteration.
func (c *cutoffs) check(ll float64) bool {
	c.iter++
	if c.iter >= c.maxIter {
		return true
	}
	if math.IsNaN(ll) {
		return true
	}
	if c.hasMinLL && ll >= c.minLL {
		return true
	}
	if c.hasDelta && c.hasLL && ll-c.prevLL <= c.minLLDelta {
		return true
	}
	c.prevLL, c.hasLL = ll, true
	return false
}

// TrainMaxent options: algorithm (GIS, IIS, CG, BFGS, LBFGSB, Nelder-Mead),
// max_iter, min_ll, min_lldelta, trace, tracer.
func TrainMaxent(toks []LabeledFeatureSet, opts Options) (Classifier, error) {
	if err := opts.check("maxent", "algorithm", "max_iter", "min_ll", "min_lldelta", "trace"); err != nil {
		return nil, err
	}
	if err := checkToks(toks); err != nil {
		return nil, err
	}
	algorithm, err := opts.String("algorithm", DefaultMaxentAlgorithm)
	if err != nil {
		return nil, err
	}
	tracer, err := opts.Tracer("trace")
	if err != nil {
		return nil, err
	}
	stop, err := newCutoffs(opts)
	if err != nil {
		return nil, err
	}

	enc := newEncoding(toks)
	state := &maxentState{
		enc:       enc,
		toks:      enc.encode(toks),
		numLabels: len(enc.labels),
		c:         float64(enc.maxActive + 1),
	}

	var m *Maxent
	switch strings.ToUpper(algorithm) {
	case AlgorithmGIS:
		m, err = trainGIS(state, stop, tracer)
	case AlgorithmIIS:
		m, err = trainIIS(state, stop, tracer)
	case AlgorithmCG, AlgorithmBFGS, AlgorithmLBFGSB, strings.ToUpper(AlgorithmNelderMead):
		m, err = trainOptimize(state, stop, tracer, algorithm)
	default:
		return nil, fmt.Errorf("maxent: unknown algorithm %q", algorithm)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

type iterationTrace struct {
	tracer logger.Tracer
	state  *maxentState
}

func (t iterationTrace) header(algorithm string) {
	t.tracer.Printf(1, "  ==> Training (%d joint features, %s)", t.state.enc.size, algorithm)
	t.tracer.Printf(3, "")
	t.tracer.Printf(3, "      Iteration    Log Likelihood    Accuracy")
	t.tracer.Printf(3, "      ---------------------------------------")
}

func (t iterationTrace) row(iter int, weights []float64, correctionWeight float64, ll float64) {
	if !t.tracer.Enabled(3) {
		return
	}
	acc := t.state.accuracy(weights, correctionWeight)
	t.tracer.Printf(3, "     %9d    %14.5f    %9.3f", iter, ll, acc)
}

func (t iterationTrace) footer(weights []float64, correctionWeight float64) {
	if !t.tracer.Enabled(3) {
		return
	}
	ll := t.state.logLikelihood(weights, correctionWeight)
	acc := t.state.accuracy(weights, correctionWeight)
	t.tracer.Printf(3, "         Final    %14.5f    %9.3f", ll, acc)
}

// trainGIS runs generalized iterative scaling with a correction feature.
func trainGIS(state *maxentState, stop *cutoffs, tracer logger.Tracer) (*Maxent, error) {
	state.useCorrection = true
	trace := iterationTrace{tracer: tracer, state: state}
	trace.header(AlgorithmGIS)

	empirical, empiricalCorrection := state.empirical()
	logEmpirical := make([]float64, len(empirical))
	for i, v := range empirical {
		logEmpirical[i] = math.Log(v)
	}
	weights := make([]float64, state.enc.size)
	correctionWeight := 0.0
	cInv := 1 / state.c

	for {
		estimated, estimatedCorrection, ll := state.estimate(weights, correctionWeight)
		trace.row(stop.iter+1, weights, correctionWeight, ll)
		for i := range weights {
			if estimated[i] > 0 {
				weights[i] += (logEmpirical[i] - math.Log(estimated[i])) * cInv
			}
		}
		if empiricalCorrection > 0 && estimatedCorrection > 0 {
			correctionWeight += (math.Log(empiricalCorrection) - math.Log(estimatedCorrection)) * cInv
		}
		ll = 0
		if stop.needsLL() {
			ll = state.logLikelihood(weights, correctionWeight)
		}
		if stop.check(ll) {
			break
		}
	}
	if err := checkWeights(AlgorithmGIS, weights); err != nil {
		return nil, err
	}
	if err := checkWeights(AlgorithmGIS, []float64{correctionWeight}); err != nil {
		return nil, err
	}
	trace.footer(weights, correctionWeight)
	return state.enc.model(weights, &CorrectionFeature{C: state.c, Weight: correctionWeight}), nil
}

// trainIIS runs improved iterative scaling. Each update solves, per feature,
// sum over (tok, label) of P(label|tok) f(tok, label) exp(delta nf(tok, label))
// = empirical count with Newton's method, where nf is the number of active
// features.
func trainIIS(state *maxentState, stop *cutoffs, tracer logger.Tracer) (*Maxent, error) {
	trace := iterationTrace{tracer: tracer, state: state}
	trace.header(AlgorithmIIS)

	empirical, _ := state.empirical()
	weights := make([]float64, state.enc.size)

	// distinct values of nf across all (tok, label) pairs
	nfIndex := map[int]int{}
	var nfValues []float64
	active := make([]int, state.numLabels)
	for _, tok := range state.toks {
		for l := range active {
			active[l] = 0
		}
		for _, byLabel := range tok.refs {
			for l, idx := range byLabel {
				if idx >= 0 {
					active[l]++
				}
			}
		}
		for _, nf := range active {
			if _, ok := nfIndex[nf]; !ok {
				nfIndex[nf] = len(nfValues)
				nfValues = append(nfValues, float64(nf))
			}
		}
	}

	p := make([]float64, state.numLabels)
	for {
		// a[k][i]: expected count of feature i over pairs with nf == nfValues[k]
		a := make([][]float64, len(nfValues))
		for k := range a {
			a[k] = make([]float64, state.enc.size)
		}
		ll := 0.0
		for _, tok := range state.toks {
			state.probs(tok, weights, 0, p, active)
			ll += math.Log(math.Max(p[tok.label], math.SmallestNonzeroFloat64))
			for _, byLabel := range tok.refs {
				for l, idx := range byLabel {
					if idx >= 0 {
						a[nfIndex[active[l]]][idx] += p[l]
					}
				}
			}
		}
		n := float64(len(state.toks))
		for k := range a {
			for i := range a[k] {
				a[k][i] /= n
			}
		}
		trace.row(stop.iter+1, weights, 0, ll/n)

		deltas := iisDeltas(a, nfValues, empirical)
		for i := range weights {
			weights[i] += deltas[i]
		}
		ll = 0
		if stop.needsLL() {
			ll = state.logLikelihood(weights, 0)
		}
		if stop.check(ll) {
			break
		}
	}
	if err := checkWeights(AlgorithmIIS, weights); err != nil {
		return nil, err
	}
	trace.footer(weights, 0)
	return state.enc.model(weights, nil), nil
}

func iisDeltas(a [][]float64, nfValues []float64, empirical []float64) []float64 {
	deltas := make([]float64, len(empirical))
	for i := range deltas {
		deltas[i] = 1
	}
	sum1 := make([]float64, len(empirical))
	sum2 := make([]float64, len(empirical))
	for iter := 0; iter < newtonMaxIter; iter++ {
		for i := range deltas {
			sum1[i], sum2[i] = 0, 0
			for k, nf := range nfValues {
				if a[k][i] == 0 {
					continue
				}
				e := math.Exp(nf * deltas[i])
				sum1[i] += e * a[k][i]
				sum2[i] += nf * e * a[k][i]
			}
		}
		errSum, deltaSum := 0.0, 0.0
		for i := range deltas {
			if sum2[i] == 0 {
				continue
			}
			deltas[i] -= (sum1[i] - empirical[i]) / sum2[i]
			errSum += math.Abs(empirical[i] - sum1[i])
			deltaSum += math.Abs(deltas[i])
		}
		if deltaSum == 0 || errSum/deltaSum < newtonConverge {
			break
		}
	}
	return deltas
}
