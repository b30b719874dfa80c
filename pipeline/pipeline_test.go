package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"text2phenotype.com/tagtrainer/classify"
	"text2phenotype.com/tagtrainer/corpus"
	"text2phenotype.com/tagtrainer/logger"
	"text2phenotype.com/tagtrainer/pos"
	"text2phenotype.com/tagtrainer/types"
)

func sentences(n int) []types.TaggedSentence {
	sents := make([]types.TaggedSentence, n)
	for i := range sents {
		sents[i] = types.TaggedSentence{{Word: strings.Repeat("w", i+1), Tag: "NN"}}
	}
	return sents
}

func loadToy(t *testing.T) []types.TaggedSentence {
	c, err := testRepository().Resolve("toy")
	require.NoError(t, err)
	sents, err := c.TaggedSents()
	require.NoError(t, err)
	require.Len(t, sents, 10)
	return sents
}

func testRepository() corpus.Repository {
	return corpus.Repository{Root: filepath.Join("testdata", "corpora")}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		n        int
		fraction float64
		train    int
	}{
		{10, 0.9, 9},
		{11, 0.9, 10},
		{3, 0.5, 2},
		{7, 0.1, 1},
		{0, 0.5, 0},
	}
	for _, c := range cases {
		sents := sentences(c.n)
		split, err := Split(sents, c.fraction)
		require.NoError(t, err)
		require.Len(t, split.Train, c.train, "n=%d fraction=%v", c.n, c.fraction)
		require.Len(t, split.Test, c.n-c.train)
		joined := append(append([]types.TaggedSentence{}, split.Train...), split.Test...)
		require.Equal(t, len(sents), len(joined))
		for i := range sents {
			require.Equal(t, sents[i], joined[i])
		}
	}
}

func TestSplitWholeCorpus(t *testing.T) {
	sents := sentences(4)
	split, err := Split(sents, 1.0)
	require.NoError(t, err)
	require.Len(t, split.Train, 4)
	require.Len(t, split.Test, 4)
	require.True(t, &split.Train[0] == &split.Test[0])
}

func TestSplitRejectsFraction(t *testing.T) {
	for _, fraction := range []float64{0, -0.5, 1.5} {
		_, err := Split(sentences(3), fraction)
		require.True(t, errors.Is(err, types.ErrInvalidFraction), "%v", fraction)
	}
}

func TestSelectClassifier(t *testing.T) {
	cfg := types.DefaultConfiguration()
	cfg.Trace = 2

	handler, err := SelectClassifier(types.DecisionTree, cfg)
	require.NoError(t, err)
	require.Equal(t, "DecisionTreeClassifier", handler.Name)
	require.Empty(t, cmp.Diff(classify.Options{
		"binary":         false,
		"entropy_cutoff": 0.05,
		"depth_cutoff":   100,
		"support_cutoff": 10,
		"verbose":        2,
	}, handler.Options))

	handler, err = SelectClassifier(types.NaiveBayes, cfg)
	require.NoError(t, err)
	require.Equal(t, "NaiveBayesClassifier", handler.Name)
	require.Empty(t, handler.Options)

	handler, err = SelectClassifier(types.Maxent, cfg)
	require.NoError(t, err)
	require.Equal(t, "MaxentClassifier", handler.Name)
	require.Empty(t, cmp.Diff(classify.Options{
		"max_iter":    10,
		"min_ll":      0.0,
		"min_lldelta": 0.1,
		"trace":       2,
	}, handler.Options))

	for _, kind := range types.MaxentAlgorithms {
		handler, err = SelectClassifier(kind, cfg)
		require.NoError(t, err)
		require.Equal(t, string(kind), handler.Options["algorithm"])
		require.Equal(t, "MaxentClassifier", handler.Name)
	}

	handler, err = SelectClassifier(types.ClassifierNone, cfg)
	require.NoError(t, err)
	require.Nil(t, handler)

	_, err = SelectClassifier(types.ClassifierKind("SVM"), cfg)
	require.Error(t, err)
}

func TestSelectClassifierIsPure(t *testing.T) {
	cfg := types.DefaultConfiguration()
	for _, kind := range types.ClassifierKinds() {
		a, err := SelectClassifier(kind, cfg)
		require.NoError(t, err)
		b, err := SelectClassifier(kind, cfg)
		require.NoError(t, err)
		require.Equal(t, a.Name, b.Name)
		require.Empty(t, cmp.Diff(a.Options, b.Options))
	}
}

func TestTrainTagger(t *testing.T) {
	sents := loadToy(t)
	quiet := logger.Quiet()

	t.Run("nothing configured", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		_, err := TrainTagger(sents, cfg, quiet)
		require.True(t, errors.Is(err, types.ErrNoTaggerConfigured))
	})

	t.Run("classifier", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		cfg.Classifier = types.NaiveBayes
		tagger, err := TrainTagger(sents, cfg, quiet)
		require.NoError(t, err)
		require.IsType(t, &pos.ClassifierTagger{}, tagger)
	})

	t.Run("brill alone", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		cfg.Brill = true
		tagger, err := TrainTagger(sents, cfg, quiet)
		require.NoError(t, err)
		brill, ok := tagger.(*pos.BrillTagger)
		require.True(t, ok)
		require.IsType(t, &pos.UnigramTagger{}, brill.Initial)
	})

	t.Run("brill over classifier", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		cfg.Classifier = types.DecisionTree
		cfg.Brill = true
		tagger, err := TrainTagger(sents, cfg, quiet)
		require.NoError(t, err)
		brill, ok := tagger.(*pos.BrillTagger)
		require.True(t, ok)
		require.IsType(t, &pos.ClassifierTagger{}, brill.Initial)
	})

	t.Run("bad template bounds", func(t *testing.T) {
		cfg := types.DefaultConfiguration()
		cfg.Brill = true
		cfg.BrillOptions.TemplateBounds = 0
		_, err := TrainTagger(sents, cfg, quiet)
		require.True(t, errors.Is(err, pos.ErrInvalidTemplateBounds))
	})
}

func TestEvaluate(t *testing.T) {
	sents := loadToy(t)
	tagger := pos.TrainUnigram(sents)
	cfg := types.DefaultConfiguration()

	var buf bytes.Buffer
	ev := Evaluate(tagger, sents, cfg, logger.Tracer{Level: 0, Out: &buf})
	require.NotNil(t, ev)
	require.Equal(t, 1.0, ev.Accuracy)
	require.Equal(t, "evaluating UnigramTagger(9 words)\naccuracy: 1.000000\n", buf.String())

	buf.Reset()
	cfg.NoEval = true
	require.Nil(t, Evaluate(tagger, sents, cfg, logger.Tracer{Level: 1, Out: &buf}))
	require.Empty(t, buf.String())

	ev = Evaluate(tagger, nil, types.DefaultConfiguration(), logger.Quiet())
	require.Equal(t, 0.0, ev.Accuracy)
}

func TestParseDestination(t *testing.T) {
	cases := []struct {
		in       string
		expected Destination
	}{
		{"out/brown_NaiveBayes.json", Destination{Scheme: SchemeFile, Path: "out/brown_NaiveBayes.json"}},
		{"s3://models/taggers/brown.json", Destination{Scheme: SchemeS3, Path: "models", Key: "taggers/brown.json"}},
		{"redis://taggers:brown", Destination{Scheme: SchemeRedis, Key: "taggers:brown"}},
	}
	for _, c := range cases {
		dest, err := ParseDestination(c.in)
		require.NoError(t, err)
		require.Equal(t, c.expected, dest)
		require.Equal(t, c.in, dest.String())
	}

	for _, in := range []string{"s3://bucket", "s3://bucket/", "redis://", "ftp://host/file"} {
		_, err := ParseDestination(in)
		require.True(t, errors.Is(err, ErrUnsupportedDestination), in)
	}
}

func TestDefaultFilename(t *testing.T) {
	env := types.Environment{DataPath: "/data"}
	cfg := types.DefaultConfiguration()
	cfg.Corpus = "treebank"
	cfg.Classifier = types.NaiveBayes
	require.Equal(t, "/data/taggers/treebank_NaiveBayes.json", DefaultFilename(env, cfg))

	cfg.Brill = true
	require.Equal(t, "/data/taggers/treebank_NaiveBayes_brill.json", DefaultFilename(env, cfg))

	cfg.Classifier = types.ClassifierNone
	cfg.Corpus = "/corpora/mine.pos"
	require.Equal(t, "/data/taggers/mine_Unigram_brill.json", DefaultFilename(env, cfg))
}

type fakeUploader struct {
	bucket, key string
	data        []byte
}

func (f *fakeUploader) Upload(_ context.Context, bucket string, key string, data []byte) error {
	f.bucket, f.key, f.data = bucket, key, data
	return nil
}

type fakeSaver struct {
	saved  map[string][]byte
	closed bool
	err    error
}

func (f *fakeSaver) SaveModel(_ context.Context, key string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = data
	return nil
}

func (f *fakeSaver) Close() error {
	f.closed = true
	return nil
}

func (f *fakeUploader) Download(_ context.Context, bucket string, key string) ([]byte, error) {
	if bucket != f.bucket || key != f.key {
		return nil, fmt.Errorf("no such key %s/%s", bucket, key)
	}
	return f.data, nil
}

func (f *fakeSaver) LoadModel(_ context.Context, key string) ([]byte, error) {
	data, ok := f.saved[key]
	if !ok {
		return nil, fmt.Errorf("no model under %s", key)
	}
	return data, nil
}

type fakePublisher struct {
	bodies [][]byte
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, body []byte) error {
	f.bodies = append(f.bodies, body)
	return nil
}

func (f *fakePublisher) Close() { f.closed = true }

func TestPersister(t *testing.T) {
	ctx := context.Background()
	uploader := &fakeUploader{}
	saver := &fakeSaver{}
	p := Persister{
		NewS3:    func() (BlobUploader, error) { return uploader, nil },
		NewRedis: func() (ModelSaver, error) { return saver, nil },
	}
	data := []byte(`{"type":"UnigramTagger"}`)

	path := filepath.Join(t.TempDir(), "nested", "tagger.json")
	require.NoError(t, p.Persist(ctx, Destination{Scheme: SchemeFile, Path: path}, data))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, data, written)

	require.NoError(t, p.Persist(ctx, Destination{Scheme: SchemeS3, Path: "bucket", Key: "k.json"}, data))
	require.Equal(t, "bucket", uploader.bucket)
	require.Equal(t, "k.json", uploader.key)
	require.Equal(t, data, uploader.data)

	require.NoError(t, p.Persist(ctx, Destination{Scheme: SchemeRedis, Key: "taggers:toy"}, data))
	require.Equal(t, data, saver.saved["taggers:toy"])
	require.True(t, saver.closed)

	boom := errors.New("boom")
	failing := Persister{NewRedis: func() (ModelSaver, error) { return &fakeSaver{err: boom}, nil }}
	err = failing.Persist(ctx, Destination{Scheme: SchemeRedis, Key: "x"}, data)
	require.True(t, errors.Is(err, boom))

	err = Persister{}.Persist(ctx, Destination{Scheme: SchemeS3, Path: "b", Key: "k"}, data)
	require.True(t, errors.Is(err, ErrUnsupportedDestination))
}

func TestLoaderReadsPersistedTaggers(t *testing.T) {
	ctx := context.Background()
	sents := loadToy(t)
	tagger := pos.TrainUnigram(sents)
	data, err := pos.Marshal(tagger, "toy", "", Fingerprint(sents))
	require.NoError(t, err)

	bucket := &fakeUploader{}
	models := &fakeSaver{}
	p := Persister{
		NewS3:    func() (BlobUploader, error) { return bucket, nil },
		NewRedis: func() (ModelSaver, error) { return models, nil },
	}
	l := Loader{
		NewS3:    func() (BlobDownloader, error) { return bucket, nil },
		NewRedis: func() (ModelLoader, error) { return models, nil },
	}

	words := []string{"the", "bird", "sings", "loudly"}
	for _, location := range []string{
		filepath.Join(t.TempDir(), "toy.json"),
		"s3://models/taggers/toy.json",
		"redis://taggers:toy",
	} {
		dest, err := ParseDestination(location)
		require.NoError(t, err)
		require.NoError(t, p.Persist(ctx, dest, data))

		loaded, env, err := l.Load(ctx, location)
		require.NoError(t, err, location)
		require.Equal(t, "UnigramTagger", env.Type)
		require.Equal(t, "toy", env.Corpus)
		require.Equal(t, Fingerprint(sents), env.Fingerprint)
		require.Equal(t, tagger.Tag(words), loaded.Tag(words), location)
		require.Equal(t, tagger.String(), loaded.String())
	}

	_, _, err = l.Load(ctx, "redis://taggers:missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis://taggers:missing")

	_, _, err = Loader{}.Load(ctx, "s3://models/toy.json")
	require.True(t, errors.Is(err, ErrUnsupportedDestination))

	_, _, err = l.Load(ctx, "ftp://host/toy.json")
	require.True(t, errors.Is(err, ErrUnsupportedDestination))
}

func TestFingerprint(t *testing.T) {
	sents := loadToy(t)
	require.Equal(t, Fingerprint(sents), Fingerprint(loadToy(t)))
	require.Len(t, Fingerprint(sents), 16)

	reversed := make([]types.TaggedSentence, len(sents))
	for i, sent := range sents {
		reversed[len(sents)-1-i] = sent
	}
	require.NotEqual(t, Fingerprint(sents), Fingerprint(reversed))
}

func testRunner(t *testing.T, buf *bytes.Buffer, publisher *fakePublisher) *Runner {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	calls := 0
	return &Runner{
		Env:       types.Environment{DataPath: t.TempDir()},
		Repo:      testRepository(),
		Persister: Persister{},
		Publisher: func() (ReportPublisher, error) {
			if publisher == nil {
				return nil, nil
			}
			return publisher, nil
		},
		Tracer:    logger.Tracer{Level: 1, Out: buf},
		Now: func() time.Time {
			calls++
			return start.Add(time.Duration(calls-1) * 1500 * time.Millisecond)
		},
	}
}

func TestRun(t *testing.T) {
	var buf bytes.Buffer
	publisher := &fakePublisher{}
	runner := testRunner(t, &buf, publisher)

	dir := t.TempDir()
	cfg := types.DefaultConfiguration()
	cfg.Corpus = "toy"
	cfg.Classifier = types.NaiveBayes
	cfg.Fraction = 0.8
	cfg.Filename = filepath.Join(dir, "toy.json")
	cfg.ReportPath = filepath.Join(dir, "report.json")

	report, err := runner.Run(context.Background(), cfg)
	require.NoError(t, err)

	tagger, env, err := pos.Load(cfg.Filename)
	require.NoError(t, err)
	require.Equal(t, "ClassifierBasedPOSTagger", env.Type)
	require.Equal(t, "toy", env.Corpus)
	require.Equal(t, "NaiveBayes", env.Classifier)

	sents := loadToy(t)
	split, err := Split(sents, 0.8)
	require.NoError(t, err)
	ev := pos.Evaluate(tagger, split.Test)
	require.Equal(t, Fingerprint(split.Train), env.Fingerprint)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"loading corpus toy",
		"10 tagged sents, training on 8",
		"training a NaiveBayes ClassifierBasedPOSTagger",
		"constructing training corpus for classifier",
		"training classifier (32 instances)",
		"evaluating ClassifierBasedPOSTagger(NaiveBayes)",
	}, lines[:6])
	require.True(t, strings.HasPrefix(lines[6], "accuracy: "), lines[6])
	require.Equal(t, "dumping ClassifierBasedPOSTagger(NaiveBayes) to "+cfg.Filename, lines[7])

	expected, err := json.Marshal(map[string]interface{}{
		"corpus":            "toy",
		"classifier":        "NaiveBayes",
		"brill":             false,
		"tagger":            "ClassifierBasedPOSTagger(NaiveBayes)",
		"sentences":         10,
		"train_sentences":   8,
		"test_sentences":    2,
		"accuracy":          ev.Accuracy,
		"sentence_accuracy": ev.SentenceAccuracy,
		"fingerprint":       Fingerprint(split.Train),
		"destination":       cfg.Filename,
		"duration_seconds":  1.5,
	})
	require.NoError(t, err)

	written, err := os.ReadFile(cfg.ReportPath)
	require.NoError(t, err)
	require.True(t, jsonpatch.Equal(expected, written), string(written))

	require.Len(t, publisher.bodies, 1)
	require.True(t, jsonpatch.Equal(expected, publisher.bodies[0]))
	require.True(t, publisher.closed)

	require.Equal(t, cfg.Filename, report.Destination)
}

func TestRunDefaultFilenameAndNoEval(t *testing.T) {
	var buf bytes.Buffer
	runner := testRunner(t, &buf, nil)
	runner.Publisher = func() (ReportPublisher, error) { return nil, nil }

	cfg := types.DefaultConfiguration()
	cfg.Corpus = "toy"
	cfg.Brill = true
	cfg.NoEval = true
	cfg.Trace = 0
	runner.Tracer = logger.Tracer{Level: cfg.Trace, Out: &buf}

	report, err := runner.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Nil(t, report.Accuracy)
	require.Empty(t, buf.String())

	path := filepath.Join(runner.Env.DataPath, "taggers", "toy_Unigram_brill.json")
	require.Equal(t, path, report.Destination)
	tagger, _, err := pos.Load(path)
	require.NoError(t, err)
	require.IsType(t, &pos.BrillTagger{}, tagger)
}

func TestRunNoPickle(t *testing.T) {
	var buf bytes.Buffer
	runner := testRunner(t, &buf, &fakePublisher{})

	cfg := types.DefaultConfiguration()
	cfg.Corpus = "toy"
	cfg.Classifier = types.NaiveBayes
	cfg.NoPickle = true

	report, err := runner.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Empty(t, report.Destination)
	_, err = os.Stat(filepath.Join(runner.Env.DataPath, "taggers"))
	require.True(t, os.IsNotExist(err))
}

func TestRunErrors(t *testing.T) {
	var buf bytes.Buffer
	runner := testRunner(t, &buf, nil)
	ctx := context.Background()

	cfg := types.DefaultConfiguration()
	cfg.Corpus = "missing"
	cfg.Classifier = types.NaiveBayes
	_, err := runner.Run(ctx, cfg)
	require.True(t, errors.Is(err, corpus.ErrUnknownCorpus))
	require.Contains(t, err.Error(), "missing")

	cfg.Fraction = 1.5
	_, err = runner.Run(ctx, cfg)
	require.True(t, errors.Is(err, types.ErrInvalidFraction))

	buf.Reset()
	cfg = types.DefaultConfiguration()
	cfg.Corpus = "toy"
	_, err = runner.Run(ctx, cfg)
	require.True(t, errors.Is(err, types.ErrNoTaggerConfigured))
	require.Empty(t, buf.String())

	cfg.Classifier = types.NaiveBayes
	cfg.Filename = "s3://bucket/toy.json"
	_, err = runner.Run(ctx, cfg)
	require.True(t, errors.Is(err, ErrUnsupportedDestination))
}

func TestSelectClassifierDecisionTreeCutoffs(t *testing.T) {
	cfg := types.DefaultConfiguration()
	cfg.DecisionTree.EntropyCutoff = 0.1
	cfg.DecisionTree.DepthCutoff = 5

	handler, err := SelectClassifier(types.DecisionTree, cfg)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(classify.Options{
		"binary":         false,
		"entropy_cutoff": 0.1,
		"depth_cutoff":   5,
		"support_cutoff": 10,
		"verbose":        1,
	}, handler.Options))
}

func TestClassifierHandlerTracer(t *testing.T) {
	cfg := types.DefaultConfiguration()
	toks := []classify.LabeledFeatureSet{
		{Features: classify.FeatureSet{"f": "1"}, Label: "A"},
		{Features: classify.FeatureSet{"f": "2"}, Label: "B"},
	}

	var buf bytes.Buffer
	handler, err := SelectClassifier(types.MaxentIIS, cfg)
	require.NoError(t, err)
	handler.Tracer = logger.Tracer{Level: cfg.Trace, Out: &buf}
	_, err = handler.Build(toks)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "  ==> Training (")
	require.NotContains(t, handler.Options, classify.TracerOption)
}

func TestRunWholeCorpusWithoutEvaluation(t *testing.T) {
	var buf bytes.Buffer
	runner := testRunner(t, &buf, nil)

	cfg := types.DefaultConfiguration()
	cfg.Corpus = "toy"
	cfg.Classifier = types.NaiveBayes
	cfg.Fraction = 1.0
	cfg.NoEval = true
	cfg.NoPickle = true

	report, err := runner.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, 10, report.TrainSentences)
	require.Equal(t, 10, report.TestSentences)
	require.Nil(t, report.Accuracy)
	require.Nil(t, report.SentenceAccuracy)

	require.Contains(t, buf.String(), "10 tagged sents, training on 10\n")
	for _, line := range strings.Split(buf.String(), "\n") {
		require.False(t, strings.HasPrefix(line, "accuracy:"), line)
		require.False(t, strings.HasPrefix(line, "evaluating"), line)
	}
}
