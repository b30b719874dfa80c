package pipeline

import (
	"fmt"

	"text2phenotype.com/tagtrainer/classify"
	"text2phenotype.com/tagtrainer/logger"
	"text2phenotype.com/tagtrainer/types"
)

// ClassifierHandler is the training function of a classifier family and the
// options it is called with. Tracer, when set, receives the trainer's
// progress lines.
type ClassifierHandler struct {
	Kind    types.ClassifierKind
	Name    string
	Train   classify.TrainFunc
	Options classify.Options
	Tracer  logger.Tracer
}

// Build trains the classifier on toks.
func (h *ClassifierHandler) Build(toks []classify.LabeledFeatureSet) (classify.Classifier, error) {
	opts := make(classify.Options, len(h.Options)+1)
	for k, v := range h.Options {
		opts[k] = v
	}
	if h.Tracer.Out != nil {
		opts[classify.TracerOption] = h.Tracer
	}
	return h.Train(toks, opts)
}

// SelectClassifier maps a classifier kind to its handler. ClassifierNone has
// no handler and yields nil.
func SelectClassifier(kind types.ClassifierKind, cfg types.Configuration) (*ClassifierHandler, error) {
	switch {
	case kind == types.ClassifierNone:
		return nil, nil
	case kind == types.DecisionTree:
		return &ClassifierHandler{
			Kind:  kind,
			Name:  "DecisionTreeClassifier",
			Train: classify.TrainDecisionTree,
			Options: classify.Options{
				"binary":         false,
				"entropy_cutoff": cfg.DecisionTree.EntropyCutoff,
				"depth_cutoff":   cfg.DecisionTree.DepthCutoff,
				"support_cutoff": cfg.DecisionTree.SupportCutoff,
				"verbose":        cfg.Trace,
			},
		}, nil
	case kind == types.NaiveBayes:
		return &ClassifierHandler{
			Kind:    kind,
			Name:    "NaiveBayesClassifier",
			Train:   classify.TrainNaiveBayes,
			Options: classify.Options{},
		}, nil
	case kind.IsMaxent():
		opts := classify.Options{
			"max_iter":    cfg.Maxent.MaxIter,
			"min_ll":      cfg.Maxent.MinLL,
			"min_lldelta": cfg.Maxent.MinLLDelta,
			"trace":       cfg.Trace,
		}
		if kind.IsMaxentAlgorithm() {
			opts["algorithm"] = string(kind)
		}
		return &ClassifierHandler{
			Kind:    kind,
			Name:    "MaxentClassifier",
			Train:   classify.TrainMaxent,
			Options: opts,
		}, nil
	}
	return nil, fmt.Errorf("unsupported classifier %q", kind)
}
