package classify

import (
	"math"
	"sort"
)

// eleGamma is the pseudo count of expected likelihood estimation.
const eleGamma = 0.5

// FeatureCounts holds, for one feature name, how often each value was seen
// with each label.
type FeatureCounts struct {
	NumValues int                       `json:"num_values"`
	Counts    map[string]map[string]int `json:"counts"`
}

// NaiveBayes scores a label by its prior and the independent probabilities of
// each feature value given the label, both smoothed with expected likelihood
// estimation.
type NaiveBayes struct {
	LabelList   []string                  `json:"labels"`
	LabelCounts map[string]int            `json:"label_counts"`
	Total       int                       `json:"total"`
	Names       []string                  `json:"names"`
	Features    map[string]*FeatureCounts `json:"features"`
}

// TrainNaiveBayes accepts no options.
func TrainNaiveBayes(toks []LabeledFeatureSet, opts Options) (Classifier, error) {
	if err := opts.check("naive bayes"); err != nil {
		return nil, err
	}
	if err := checkToks(toks); err != nil {
		return nil, err
	}

	names := featureNames(toks)
	nb := &NaiveBayes{
		LabelList:   sortedLabels(toks),
		LabelCounts: countLabels(toks),
		Total:       len(toks),
		Names:       names,
		Features:    make(map[string]*FeatureCounts, len(names)),
	}
	values := make(map[string]map[string]bool, len(names))
	for _, name := range names {
		nb.Features[name] = &FeatureCounts{Counts: map[string]map[string]int{}}
		values[name] = map[string]bool{}
	}

	for _, tok := range toks {
		for _, name := range names {
			value := tok.Features[name]
			counts := nb.Features[name].Counts
			if counts[tok.Label] == nil {
				counts[tok.Label] = map[string]int{}
			}
			counts[tok.Label][value]++
			values[name][value] = true
		}
	}
	for name, fc := range nb.Features {
		fc.NumValues = len(values[name])
	}
	return nb, nil
}

func (nb *NaiveBayes) Labels() []string {
	return nb.LabelList
}

func (nb *NaiveBayes) Classify(features FeatureSet) string {
	return nb.ProbClassify(features).Max()
}

func (nb *NaiveBayes) ProbClassify(features FeatureSet) ProbDist {
	numLabels := float64(len(nb.LabelList))
	scores := make([]float64, len(nb.LabelList))
	for i, label := range nb.LabelList {
		labelCount := float64(nb.LabelCounts[label])
		scores[i] = math.Log((labelCount + eleGamma) / (float64(nb.Total) + eleGamma*numLabels))
		for _, name := range nb.Names {
			fc := nb.Features[name]
			value := features[name]
			count := float64(fc.Counts[label][value])
			scores[i] += math.Log((count + eleGamma) / (labelCount + eleGamma*float64(fc.NumValues)))
		}
	}
	return softmax(nb.LabelList, scores)
}

// MostInformativeFeatures returns up to n (name, value) pairs whose
// likelihood ratio between the most and least likely label is highest.
func (nb *NaiveBayes) MostInformativeFeatures(n int) [][2]string {
	type scored struct {
		name, value string
		ratio       float64
	}
	var all []scored
	for name, fc := range nb.Features {
		seen := map[string]bool{}
		for _, counts := range fc.Counts {
			for value := range counts {
				seen[value] = true
			}
		}
		for value := range seen {
			minP, maxP := math.Inf(1), 0.0
			for _, label := range nb.LabelList {
				labelCount := float64(nb.LabelCounts[label])
				p := (float64(fc.Counts[label][value]) + eleGamma) / (labelCount + eleGamma*float64(fc.NumValues))
				minP = math.Min(minP, p)
				maxP = math.Max(maxP, p)
			}
			all = append(all, scored{name, value, maxP / minP})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ratio != all[j].ratio {
			return all[i].ratio > all[j].ratio
		}
		if all[i].name != all[j].name {
			return all[i].name < all[j].name
		}
		return all[i].value < all[j].value
	})

	if n > len(all) {
		n = len(all)
	}
	res := make([][2]string, n)
	for i := 0; i < n; i++ {
		res[i] = [2]string{all[i].name, all[i].value}
	}
	return res
}
