package pipeline

import (
	"context"
	"fmt"
	"time"

	"text2phenotype.com/tagtrainer/corpus"
	"text2phenotype.com/tagtrainer/logger"
	"text2phenotype.com/tagtrainer/pos"
	"text2phenotype.com/tagtrainer/types"
)

var runLogger = logger.NewLogger("Training run")

// Runner drives one training run from a validated configuration.
type Runner struct {
	Env       types.Environment
	Repo      corpus.Repository
	Persister Persister
	Publisher func() (ReportPublisher, error)
	Tracer    logger.Tracer
	Now       func() time.Time
}

func NewRunner(env types.Environment, tracer logger.Tracer) *Runner {
	return &Runner{
		Env:       env,
		Repo:      corpus.NewRepository(env.DataPath),
		Persister: DefaultPersister(),
		Publisher: DefaultPublisher,
		Tracer:    tracer,
		Now:       time.Now,
	}
}

// Run loads the corpus, trains, evaluates and persists the tagger, and
// reports the outcome.
func (r *Runner) Run(ctx context.Context, cfg types.Configuration) (*RunReport, error) {
	errLogger := runLogger.With().Caller().Str("corpus", cfg.Corpus).Logger()
	start := r.now()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sents, err := corpus.Load(r.Repo, cfg, r.Tracer)
	if err != nil {
		errLogger.Err(err).Msg("Failed to load corpus")
		return nil, err
	}
	split, err := Split(sents, cfg.Fraction)
	if err != nil {
		return nil, err
	}
	r.Tracer.Printf(1, "%d tagged sents, training on %d", len(sents), len(split.Train))

	tagger, err := TrainTagger(split.Train, cfg, r.Tracer)
	if err != nil {
		errLogger.Err(err).Str("classifier", string(cfg.Classifier)).Msg("Failed to train tagger")
		return nil, err
	}

	report := RunReport{
		Corpus:         cfg.Corpus,
		Classifier:     string(cfg.Classifier),
		Brill:          cfg.Brill,
		Tagger:         tagger.String(),
		Sentences:      len(sents),
		TrainSentences: len(split.Train),
		TestSentences:  len(split.Test),
		Fingerprint:    Fingerprint(split.Train),
	}
	if ev := Evaluate(tagger, split.Test, cfg, r.Tracer); ev != nil {
		report.Accuracy = &ev.Accuracy
		report.SentenceAccuracy = &ev.SentenceAccuracy
	}

	if !cfg.NoPickle {
		dest, err := r.persist(ctx, cfg, tagger, report.Fingerprint)
		if err != nil {
			return nil, err
		}
		report.Destination = dest.String()
	}

	report.DurationSeconds = durationSeconds(r.now().Sub(start))
	if err := r.report(ctx, cfg, report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *Runner) persist(ctx context.Context, cfg types.Configuration, tagger pos.Tagger, fingerprint string) (Destination, error) {
	filename := cfg.Filename
	if filename == "" {
		filename = DefaultFilename(r.Env, cfg)
	}
	dest, err := ParseDestination(filename)
	if err != nil {
		return dest, err
	}
	data, err := pos.Marshal(tagger, cfg.Corpus, string(cfg.Classifier), fingerprint)
	if err != nil {
		return dest, fmt.Errorf("encoding tagger: %w", err)
	}
	r.Tracer.Printf(1, "dumping %s to %s", tagger, dest)
	if err := r.Persister.Persist(ctx, dest, data); err != nil {
		return dest, fmt.Errorf("persisting tagger to %s: %w", dest, err)
	}
	return dest, nil
}

func (r *Runner) report(ctx context.Context, cfg types.Configuration, report RunReport) error {
	if cfg.ReportPath != "" {
		if err := WriteReport(cfg.ReportPath, report); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	if r.Publisher == nil {
		return nil
	}
	publisher, err := r.Publisher()
	if err != nil {
		return fmt.Errorf("connecting report publisher: %w", err)
	}
	if publisher == nil {
		return nil
	}
	defer publisher.Close()
	if err := publishReport(ctx, publisher, report); err != nil {
		return fmt.Errorf("publishing report: %w", err)
	}
	runLogger.Info().Str("corpus", report.Corpus).Msg("Published run report")
	return nil
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
