package classify

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrWeightsDiverged = errors.New("weights diverged")

// Maxent is a conditional log-linear model over joint (feature name,
// feature value, label) indicator features. Models trained with GIS carry a
// correction feature whose value is Correction.C minus the number of active
// features.
type Maxent struct {
	LabelList  []string                            `json:"labels"`
	Index      map[string]map[string]map[string]int `json:"index"`
	Weights    []float64                           `json:"weights"`
	Correction *CorrectionFeature                  `json:"correction,omitempty"`
}

type CorrectionFeature struct {
	C      float64 `json:"c"`
	Weight float64 `json:"weight"`
}

func (m *Maxent) Labels() []string {
	return m.LabelList
}

func (m *Maxent) Classify(features FeatureSet) string {
	return m.ProbClassify(features).Max()
}

func (m *Maxent) ProbClassify(features FeatureSet) ProbDist {
	scores := make([]float64, len(m.LabelList))
	active := make([]int, len(m.LabelList))
	for _, name := range sortedNames(features) {
		byLabel, ok := m.Index[name][features[name]]
		if !ok {
			continue
		}
		for l, label := range m.LabelList {
			if idx, ok := byLabel[label]; ok {
				scores[l] += m.Weights[idx]
				active[l]++
			}
		}
	}
	if m.Correction != nil {
		for l := range scores {
			scores[l] += m.Correction.Weight * (m.Correction.C - float64(active[l]))
		}
	}
	return softmax(m.LabelList, scores)
}

// NumFeatures is the number of joint features, not counting the correction
// feature.
func (m *Maxent) NumFeatures() int {
	return len(m.Weights)
}

// encodedTok is a training instance with its joint features resolved: for each
// (name, value) pair known to the encoding, the feature index per label id,
// -1 where the pair never occurred with that label.
type encodedTok struct {
	refs  [][]int
	label int
}

type maxentEncoding struct {
	labels   []string
	labelIDs map[string]int
	index    map[string]map[string][]int
	size     int
	// maxActive bounds the number of features active for any (tok, label).
	maxActive int
}

// newEncoding indexes every joint feature that occurs in the training data.
func newEncoding(toks []LabeledFeatureSet) *maxentEncoding {
	enc := &maxentEncoding{
		labels:   sortedLabels(toks),
		labelIDs: map[string]int{},
		index:    map[string]map[string][]int{},
	}
	for i, label := range enc.labels {
		enc.labelIDs[label] = i
	}

	// deterministic feature numbering
	type joint struct{ name, value, label string }
	seen := map[joint]bool{}
	var joints []joint
	for _, tok := range toks {
		for name, value := range tok.Features {
			j := joint{name, value, tok.Label}
			if !seen[j] {
				seen[j] = true
				joints = append(joints, j)
			}
		}
	}
	sort.Slice(joints, func(a, b int) bool {
		if joints[a].name != joints[b].name {
			return joints[a].name < joints[b].name
		}
		if joints[a].value != joints[b].value {
			return joints[a].value < joints[b].value
		}
		return joints[a].label < joints[b].label
	})
	for _, j := range joints {
		if enc.index[j.name] == nil {
			enc.index[j.name] = map[string][]int{}
		}
		byLabel := enc.index[j.name][j.value]
		if byLabel == nil {
			byLabel = make([]int, len(enc.labels))
			for l := range byLabel {
				byLabel[l] = -1
			}
			enc.index[j.name][j.value] = byLabel
		}
		byLabel[enc.labelIDs[j.label]] = enc.size
		enc.size++
	}
	enc.maxActive = len(enc.index)
	return enc
}

func (enc *maxentEncoding) encode(toks []LabeledFeatureSet) []encodedTok {
	encoded := make([]encodedTok, len(toks))
	for i, tok := range toks {
		refs := make([][]int, 0, len(tok.Features))
		for _, name := range sortedNames(tok.Features) {
			if byLabel, ok := enc.index[name][tok.Features[name]]; ok {
				refs = append(refs, byLabel)
			}
		}
		encoded[i] = encodedTok{refs: refs, label: enc.labelIDs[tok.Label]}
	}
	return encoded
}

// model converts trained weights into a Maxent classifier.
func (enc *maxentEncoding) model(weights []float64, correction *CorrectionFeature) *Maxent {
	index := make(map[string]map[string]map[string]int, len(enc.index))
	for name, values := range enc.index {
		index[name] = make(map[string]map[string]int, len(values))
		for value, byLabel := range values {
			labels := map[string]int{}
			for l, idx := range byLabel {
				if idx >= 0 {
					labels[enc.labels[l]] = idx
				}
			}
			index[name][value] = labels
		}
	}
	w := make([]float64, len(weights))
	copy(w, weights)
	return &Maxent{
		LabelList:  enc.labels,
		Index:      index,
		Weights:    w,
		Correction: correction,
	}
}

// maxentState evaluates a weight vector against encoded training data.
type maxentState struct {
	enc       *maxentEncoding
	toks      []encodedTok
	numLabels int
	// correction feature constant and weight, used by GIS only
	useCorrection bool
	c             float64
}

// probs fills p with P(label | tok) and active with the number of active
// features per label.
func (s *maxentState) probs(tok encodedTok, weights []float64, correctionWeight float64, p []float64, active []int) {
	for l := range p {
		p[l] = 0
		active[l] = 0
	}
	for _, byLabel := range tok.refs {
		for l, idx := range byLabel {
			if idx >= 0 {
				p[l] += weights[idx]
				active[l]++
			}
		}
	}
	if s.useCorrection {
		for l := range p {
			p[l] += correctionWeight * (s.c - float64(active[l]))
		}
	}
	maxScore := math.Inf(-1)
	for _, score := range p {
		if score > maxScore {
			maxScore = score
		}
	}
	total := 0.0
	for l, score := range p {
		p[l] = math.Exp(score - maxScore)
		total += p[l]
	}
	for l := range p {
		p[l] /= total
	}
}

// empirical returns the average count of every joint feature (and of the
// correction feature) in the training data.
func (s *maxentState) empirical() ([]float64, float64) {
	counts := make([]float64, s.enc.size)
	correction := 0.0
	for _, tok := range s.toks {
		active := 0
		for _, byLabel := range tok.refs {
			if idx := byLabel[tok.label]; idx >= 0 {
				counts[idx]++
				active++
			}
		}
		correction += s.c - float64(active)
	}
	n := float64(len(s.toks))
	for i := range counts {
		counts[i] /= n
	}
	return counts, correction / n
}

// estimate returns the model's expected feature counts averaged over the
// training instances, the expected correction count and the average log
// likelihood of the gold labels.
func (s *maxentState) estimate(weights []float64, correctionWeight float64) ([]float64, float64, float64) {
	counts := make([]float64, s.enc.size)
	correction := 0.0
	ll := 0.0
	p := make([]float64, s.numLabels)
	active := make([]int, s.numLabels)
	for _, tok := range s.toks {
		s.probs(tok, weights, correctionWeight, p, active)
		for _, byLabel := range tok.refs {
			for l, idx := range byLabel {
				if idx >= 0 {
					counts[idx] += p[l]
				}
			}
		}
		for l := range p {
			correction += p[l] * (s.c - float64(active[l]))
		}
		ll += math.Log(math.Max(p[tok.label], math.SmallestNonzeroFloat64))
	}
	n := float64(len(s.toks))
	for i := range counts {
		counts[i] /= n
	}
	return counts, correction / n, ll / n
}

// logLikelihood is the average log probability of the gold labels.
func (s *maxentState) logLikelihood(weights []float64, correctionWeight float64) float64 {
	p := make([]float64, s.numLabels)
	active := make([]int, s.numLabels)
	ll := 0.0
	for _, tok := range s.toks {
		s.probs(tok, weights, correctionWeight, p, active)
		ll += math.Log(math.Max(p[tok.label], math.SmallestNonzeroFloat64))
	}
	return ll / float64(len(s.toks))
}

// accuracy is the fraction of training instances labeled correctly.
func (s *maxentState) accuracy(weights []float64, correctionWeight float64) float64 {
	p := make([]float64, s.numLabels)
	active := make([]int, s.numLabels)
	correct := 0
	for _, tok := range s.toks {
		s.probs(tok, weights, correctionWeight, p, active)
		best := 0
		for l := range p {
			if p[l] > p[best] {
				best = l
			}
		}
		if best == tok.label {
			correct++
		}
	}
	return float64(correct) / float64(len(s.toks))
}

// checkWeights rejects weights a trainer left NaN or infinite.
func checkWeights(algorithm string, weights []float64) error {
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("maxent %s: %w (weight %d is %v)", algorithm, ErrWeightsDiverged, i, w)
		}
	}
	return nil
}
