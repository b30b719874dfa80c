package pipeline

import (
	"fmt"

	"text2phenotype.com/tagtrainer/types"
	"text2phenotype.com/tagtrainer/utils"
)

// CorpusSplit holds the training and evaluation sentences. With a fraction of
// 1 both share the same backing slice.
type CorpusSplit struct {
	Train []types.TaggedSentence
	Test  []types.TaggedSentence
}

// Split cuts sents after the first ceil(len(sents) * fraction) sentences.
// The order of sents is kept.
func Split(sents []types.TaggedSentence, fraction float64) (CorpusSplit, error) {
	if fraction <= 0 || fraction > 1 {
		return CorpusSplit{}, fmt.Errorf("%w: got %v", types.ErrInvalidFraction, fraction)
	}
	if fraction == 1.0 {
		return CorpusSplit{Train: sents, Test: sents}, nil
	}
	cutoff := utils.Ceil(len(sents), fraction)
	return CorpusSplit{Train: sents[:cutoff], Test: sents[cutoff:]}, nil
}
