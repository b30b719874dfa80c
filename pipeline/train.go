package pipeline

import (
	"fmt"

	"text2phenotype.com/tagtrainer/logger"
	"text2phenotype.com/tagtrainer/pos"
	"text2phenotype.com/tagtrainer/types"
	"text2phenotype.com/tagtrainer/utils"
)

var trainLogger = logger.NewLogger("Tagger trainer")

// TrainTagger trains the tagger cfg describes on train: a classifier based
// tagger when a classifier is selected, wrapped in a Brill tagger when Brill
// is on. Brill alone starts from a unigram tagger.
func TrainTagger(train []types.TaggedSentence, cfg types.Configuration, tracer logger.Tracer) (tagger pos.Tagger, err error) {
	defer utils.RecoverWithError(&err)
	errLogger := trainLogger.With().Caller().Logger()

	handler, err := SelectClassifier(cfg.Classifier, cfg)
	if err != nil {
		return nil, err
	}
	if handler == nil && !cfg.Brill {
		return nil, types.ErrNoTaggerConfigured
	}

	if handler != nil {
		handler.Tracer = tracer
		tracer.Printf(1, "training a %s ClassifierBasedPOSTagger", handler.Kind)
		trainLogger.Debug().
			Str("classifier", handler.Name).
			Interface("options", handler.Options).
			Int("sentences", len(train)).
			Msg("Training classifier based tagger")
		tagger, err = pos.TrainClassifierTagger(train, tracer, handler.Build)
		if err != nil {
			errLogger.Err(err).Str("classifier", handler.Name).Msg("Failed to train classifier based tagger")
			return nil, fmt.Errorf("training %s tagger: %w", handler.Kind, err)
		}
	} else {
		tracer.Printf(1, "training a UnigramTagger as initial Brill tagger")
		tagger = pos.TrainUnigram(train)
	}

	if cfg.Brill {
		tagger, err = pos.TrainBrill(tagger, train, cfg.BrillOptions, tracer)
		if err != nil {
			errLogger.Err(err).Interface("brill_options", cfg.BrillOptions).Msg("Failed to train Brill tagger")
			return nil, fmt.Errorf("training brill tagger: %w", err)
		}
	}
	return tagger, nil
}

// Evaluate prints the token accuracy of tagger on test. NoEval skips it and
// returns nil.
func Evaluate(tagger pos.Tagger, test []types.TaggedSentence, cfg types.Configuration, tracer logger.Tracer) *pos.Evaluation {
	if cfg.NoEval {
		return nil
	}
	tracer.Resultf("evaluating %s", tagger)
	ev := pos.Evaluate(tagger, test)
	tracer.Resultf("accuracy: %f", ev.Accuracy)
	trainLogger.Debug().
		Int("tokens", ev.Tokens).
		Int("correct", ev.Correct).
		Float64("sentence_accuracy", ev.SentenceAccuracy).
		Msg("Evaluated tagger")
	return &ev
}
