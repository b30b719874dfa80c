package pos

import (
	"fmt"

	"text2phenotype.com/tagtrainer/classify"
	"text2phenotype.com/tagtrainer/logger"
	"text2phenotype.com/tagtrainer/types"
)

// Tagger assigns one tag to each word of a sentence.
type Tagger interface {
	Tag(words []string) []string
	String() string
}

// ClassifierBuilder trains the classifier behind a ClassifierTagger.
type ClassifierBuilder func(toks []classify.LabeledFeatureSet) (classify.Classifier, error)

// ClassifierTagger tags left to right, classifying each word from its
// features and the tags already assigned to the words before it.
type ClassifierTagger struct {
	Classifier classify.Classifier
	features   FeatureDetector
}

func NewClassifierTagger(c classify.Classifier) *ClassifierTagger {
	return &ClassifierTagger{Classifier: c, features: DefaultFeatures}
}

// TrainClassifierTagger extracts features from train and hands them to build.
func TrainClassifierTagger(train []types.TaggedSentence, tracer logger.Tracer, build ClassifierBuilder) (*ClassifierTagger, error) {
	tracer.Printf(1, "constructing training corpus for classifier")
	toks := trainingFeatures(train, DefaultFeatures)
	tracer.Printf(1, "training classifier (%d instances)", len(toks))

	c, err := build(toks)
	if err != nil {
		return nil, fmt.Errorf("training classifier: %w", err)
	}
	if nb, ok := c.(*classify.NaiveBayes); ok && tracer.Enabled(2) {
		tracer.Printf(2, "most informative features")
		for _, f := range nb.MostInformativeFeatures(10) {
			tracer.Printf(2, "  %20s = %q", f[0], f[1])
		}
	}
	if tree, ok := c.(*classify.DecisionTree); ok && tracer.Enabled(2) {
		tracer.Printf(2, "%s", tree.Pseudocode(4))
	}
	return NewClassifierTagger(c), nil
}

func (t *ClassifierTagger) Tag(words []string) []string {
	detect := t.features
	if detect == nil {
		detect = DefaultFeatures
	}
	tags := make([]string, len(words))
	for i := range words {
		tags[i] = t.Classifier.Classify(detect(words, i, tags))
	}
	return tags
}

func (t *ClassifierTagger) String() string {
	return fmt.Sprintf("ClassifierBasedPOSTagger(%s)", ClassifierName(t.Classifier))
}

// ClassifierName names the classifier family of c.
func ClassifierName(c classify.Classifier) string {
	switch c.(type) {
	case *classify.NaiveBayes:
		return "NaiveBayes"
	case *classify.DecisionTree:
		return "DecisionTree"
	case *classify.Maxent:
		return "Maxent"
	}
	return fmt.Sprintf("%T", c)
}

// UnigramTagger tags each word with the tag it was seen with most often, and
// unknown words with the most frequent tag overall.
type UnigramTagger struct {
	Table   map[string]string `json:"table"`
	Default string            `json:"default"`
}

func TrainUnigram(train []types.TaggedSentence) *UnigramTagger {
	counts := map[string]map[string]int{}
	overall := map[string]int{}
	for _, sent := range train {
		for _, token := range sent {
			if counts[token.Word] == nil {
				counts[token.Word] = map[string]int{}
			}
			counts[token.Word][token.Tag]++
			overall[token.Tag]++
		}
	}
	t := &UnigramTagger{Table: make(map[string]string, len(counts))}
	for word, tags := range counts {
		t.Table[word], _ = maxValue(tags)
	}
	t.Default, _ = maxValue(overall)
	return t
}

func (t *UnigramTagger) Tag(words []string) []string {
	tags := make([]string, len(words))
	for i, word := range words {
		if tag, ok := t.Table[word]; ok {
			tags[i] = tag
		} else {
			tags[i] = t.Default
		}
	}
	return tags
}

func (t *UnigramTagger) String() string {
	return fmt.Sprintf("UnigramTagger(%d words)", len(t.Table))
}

// maxValue returns the key with the highest count; ties go to the smallest key.
func maxValue(m map[string]int) (string, int) {
	best, bestCount := "", -1
	for k, c := range m {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best, bestCount
}
