// Package classify implements the statistical classifiers a tagger can be
// built on: naive Bayes, decision trees and maximum entropy models.
//
// Feature sets map feature names to string values. A name missing from a
// feature set is treated as having the empty value.
package classify

import (
	"errors"
	"math"
	"sort"
)

var ErrEmptyTrainingSet = errors.New("no training instances")

type FeatureSet map[string]string

type LabeledFeatureSet struct {
	Features FeatureSet
	Label    string
}

type Classifier interface {
	// Labels returns the labels the classifier can predict, sorted.
	Labels() []string
	Classify(features FeatureSet) string
}

// TrainFunc trains a classifier from labeled feature sets. Options carry the
// algorithm specific keyword arguments.
type TrainFunc func(toks []LabeledFeatureSet, opts Options) (Classifier, error)

// ProbDist is a normalized probability distribution over labels.
type ProbDist map[string]float64

// Max returns the most probable label. Ties go to the smallest label.
func (dist ProbDist) Max() string {
	best := ""
	bestProb := math.Inf(-1)
	for _, label := range dist.Samples() {
		if p := dist[label]; p > bestProb {
			best, bestProb = label, p
		}
	}
	return best
}

func (dist ProbDist) Samples() []string {
	samples := make([]string, 0, len(dist))
	for label := range dist {
		samples = append(samples, label)
	}
	sort.Strings(samples)
	return samples
}

// softmax converts log scores into a ProbDist.
func softmax(labels []string, scores []float64) ProbDist {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	dist := make(ProbDist, len(labels))
	if math.IsInf(maxScore, -1) {
		for _, label := range labels {
			dist[label] = 1 / float64(len(labels))
		}
		return dist
	}
	total := 0.0
	for i, s := range scores {
		p := math.Exp(s - maxScore)
		dist[labels[i]] = p
		total += p
	}
	for label := range dist {
		dist[label] /= total
	}
	return dist
}

// Accuracy is the fraction of gold instances the classifier labels correctly.
func Accuracy(classifier Classifier, gold []LabeledFeatureSet) float64 {
	if len(gold) == 0 {
		return 0
	}
	correct := 0
	for _, tok := range gold {
		if classifier.Classify(tok.Features) == tok.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(gold))
}

// labelCounts counts label occurrences.
type labelCounts map[string]int

func countLabels(toks []LabeledFeatureSet) labelCounts {
	counts := labelCounts{}
	for _, tok := range toks {
		counts[tok.Label]++
	}
	return counts
}

func (counts labelCounts) total() int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

// max returns the most frequent label; ties go to the smallest label.
func (counts labelCounts) max() (string, int) {
	best, bestCount := "", -1
	for label, c := range counts {
		if c > bestCount || (c == bestCount && label < best) {
			best, bestCount = label, c
		}
	}
	return best, bestCount
}

func (counts labelCounts) entropy() float64 {
	n := float64(counts.total())
	if n == 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

func sortedLabels(toks []LabeledFeatureSet) []string {
	seen := map[string]bool{}
	var labels []string
	for _, tok := range toks {
		if !seen[tok.Label] {
			seen[tok.Label] = true
			labels = append(labels, tok.Label)
		}
	}
	sort.Strings(labels)
	return labels
}

func featureNames(toks []LabeledFeatureSet) []string {
	seen := map[string]bool{}
	var names []string
	for _, tok := range toks {
		for name := range tok.Features {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func checkToks(toks []LabeledFeatureSet) error {
	if len(toks) == 0 {
		return ErrEmptyTrainingSet
	}
	return nil
}

func sortedNames(features FeatureSet) []string {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
