package pos

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"text2phenotype.com/tagtrainer/classify"
)

// Envelope is the persisted form of a trained tagger.
type Envelope struct {
	Type        string          `json:"type"`
	Corpus      string          `json:"corpus"`
	Classifier  string          `json:"classifier"`
	Fingerprint string          `json:"fingerprint"`
	Tagger      json.RawMessage `json:"tagger"`
}

const (
	typeClassifier = "ClassifierBasedPOSTagger"
	typeBrill      = "BrillTagger"
	typeUnigram    = "UnigramTagger"
)

type taggerJSON struct {
	Type       string          `json:"type"`
	Classifier *classifierJSON `json:"classifier,omitempty"`
	Unigram    *UnigramTagger  `json:"unigram,omitempty"`
	Initial    *taggerJSON     `json:"initial,omitempty"`
	Rules      []Rule          `json:"rules,omitempty"`
}

type classifierJSON struct {
	Type  string          `json:"type"`
	Model json.RawMessage `json:"model"`
}

func taggerType(t Tagger) string {
	switch t.(type) {
	case *ClassifierTagger:
		return typeClassifier
	case *BrillTagger:
		return typeBrill
	case *UnigramTagger:
		return typeUnigram
	}
	return fmt.Sprintf("%T", t)
}

func encodeTagger(t Tagger) (*taggerJSON, error) {
	switch v := t.(type) {
	case *ClassifierTagger:
		model, err := json.Marshal(v.Classifier)
		if err != nil {
			return nil, err
		}
		return &taggerJSON{
			Type:       typeClassifier,
			Classifier: &classifierJSON{Type: ClassifierName(v.Classifier), Model: model},
		}, nil
	case *BrillTagger:
		initial, err := encodeTagger(v.Initial)
		if err != nil {
			return nil, err
		}
		return &taggerJSON{Type: typeBrill, Initial: initial, Rules: v.Rules}, nil
	case *UnigramTagger:
		return &taggerJSON{Type: typeUnigram, Unigram: v}, nil
	}
	return nil, fmt.Errorf("cannot encode tagger %T", t)
}

func decodeTagger(tj *taggerJSON) (Tagger, error) {
	if tj == nil {
		return nil, fmt.Errorf("missing tagger")
	}
	switch tj.Type {
	case typeClassifier:
		if tj.Classifier == nil {
			return nil, fmt.Errorf("%s without classifier", typeClassifier)
		}
		c, err := decodeClassifier(tj.Classifier)
		if err != nil {
			return nil, err
		}
		return NewClassifierTagger(c), nil
	case typeBrill:
		initial, err := decodeTagger(tj.Initial)
		if err != nil {
			return nil, fmt.Errorf("brill initial tagger: %w", err)
		}
		return &BrillTagger{Initial: initial, Rules: tj.Rules}, nil
	case typeUnigram:
		if tj.Unigram == nil {
			return nil, fmt.Errorf("%s without table", typeUnigram)
		}
		return tj.Unigram, nil
	}
	return nil, fmt.Errorf("unknown tagger type %q", tj.Type)
}

func decodeClassifier(cj *classifierJSON) (classify.Classifier, error) {
	var c classify.Classifier
	switch cj.Type {
	case "NaiveBayes":
		c = &classify.NaiveBayes{}
	case "DecisionTree":
		c = &classify.DecisionTree{}
	case "Maxent":
		c = &classify.Maxent{}
	default:
		return nil, fmt.Errorf("unknown classifier type %q", cj.Type)
	}
	if err := json.Unmarshal(cj.Model, c); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", cj.Type, err)
	}
	return c, nil
}

// Marshal encodes t with its provenance into an Envelope.
func Marshal(t Tagger, corpus string, classifier string, fingerprint string) ([]byte, error) {
	tj, err := encodeTagger(t)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(tj)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Type:        taggerType(t),
		Corpus:      corpus,
		Classifier:  classifier,
		Fingerprint: fingerprint,
		Tagger:      raw,
	})
}

// Unmarshal decodes an Envelope and the tagger inside it.
func Unmarshal(data []byte) (Tagger, Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, env, err
	}
	var tj taggerJSON
	if err := json.Unmarshal(env.Tagger, &tj); err != nil {
		return nil, env, err
	}
	t, err := decodeTagger(&tj)
	return t, env, err
}

func Load(path string) (Tagger, Envelope, error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, Envelope{}, err
	}
	return Unmarshal(buf)
}
