package corpus

import (
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"text2phenotype.com/tagtrainer/logger"
	"text2phenotype.com/tagtrainer/types"
)

// Kind selects the reading strategy of a corpus.
type Kind int

const (
	// Tagged is plain word/TAG text, one sentence per line.
	Tagged Kind = iota
	// Numbered is word/TAG text where every sentence line starts with its number.
	Numbered
	// Discourse is switchboard style text made of speaker utterances grouped
	// into discourses.
	Discourse
)

var kindNames = map[Kind]string{
	Tagged:    "tagged",
	Numbered:  "numbered",
	Discourse: "discourse",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	for kind, name := range kindNames {
		if name == s {
			return kind, nil
		}
	}
	return Tagged, fmt.Errorf("unknown corpus reader %q", s)
}

func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	kind, err := ParseKind(value.Value)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Utterance is one speaker turn of a discourse.
type Utterance struct {
	Speaker string
	ID      int
	Tokens  types.TaggedSentence
}

type TaggedDiscourse []Utterance

// Corpus is a resolved corpus. Its files are listed when it is created; the
// contents are read on demand.
type Corpus struct {
	Name    string
	Root    string
	Kind    Kind
	Sep     string
	fileids []string
}

func newCorpus(name string, root string, catalogue Catalogue) (*Corpus, error) {
	fileids, err := listFileids(root, catalogue.Pattern)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", name, err)
	}
	sep := catalogue.Sep
	if sep == "" {
		sep = DefaultSep
	}
	return &Corpus{
		Name:    name,
		Root:    root,
		Kind:    catalogue.Reader,
		Sep:     sep,
		fileids: fileids,
	}, nil
}

func (c *Corpus) Fileids() []string {
	return c.fileids
}

// TaggedSents returns every tagged sentence of the corpus in file order.
// Discourse corpora are flattened into their non-empty utterances.
func (c *Corpus) TaggedSents() ([]types.TaggedSentence, error) {
	switch c.Kind {
	case Discourse:
		discourses, err := c.TaggedDiscourses()
		if err != nil {
			return nil, err
		}
		var sents []types.TaggedSentence
		for _, discourse := range discourses {
			for _, utterance := range discourse {
				if len(utterance.Tokens) == 0 {
					continue
				}
				sents = append(sents, utterance.Tokens)
			}
		}
		return sents, nil
	case Numbered:
		return c.readSents(readNumberedSents)
	default:
		return c.readSents(readTaggedSents)
	}
}

// TaggedDiscourses is only available for Discourse corpora.
func (c *Corpus) TaggedDiscourses() ([]TaggedDiscourse, error) {
	if c.Kind != Discourse {
		return nil, fmt.Errorf("corpus %s is a %s corpus, not a discourse corpus", c.Name, c.Kind)
	}
	var discourses []TaggedDiscourse
	for _, fileid := range c.fileids {
		path := filepath.Join(c.Root, filepath.FromSlash(fileid))
		fileDiscourses, err := readDiscourses(path, c.Sep)
		if err != nil {
			return nil, fmt.Errorf("corpus %s: %w", c.Name, err)
		}
		discourses = append(discourses, fileDiscourses...)
	}
	return discourses, nil
}

type sentReader func(path string, sep string) ([]types.TaggedSentence, error)

func (c *Corpus) readSents(read sentReader) ([]types.TaggedSentence, error) {
	var sents []types.TaggedSentence
	for _, fileid := range c.fileids {
		path := filepath.Join(c.Root, filepath.FromSlash(fileid))
		fileSents, err := read(path, c.Sep)
		if err != nil {
			return nil, fmt.Errorf("corpus %s: %w", c.Name, err)
		}
		corpusLogger.Debug().
			Str("corpus", c.Name).
			Str("fileid", fileid).
			Int("sentences", len(fileSents)).
			Msg("Read corpus file")
		sents = append(sents, fileSents...)
	}
	return sents, nil
}

// Load returns the tagged sentences named by cfg: a repository corpus when no
// reader is given, otherwise the path in cfg.Corpus read with that reader.
func Load(repo Repository, cfg types.Configuration, tracer logger.Tracer) ([]types.TaggedSentence, error) {
	var c *Corpus
	var err error
	if cfg.Reader == types.ReaderNone {
		c, err = repo.Resolve(cfg.Corpus)
		if err != nil {
			return nil, err
		}
		tracer.Printf(1, "loading corpus %s", cfg.Corpus)
	} else {
		tracer.Printf(1, "loading %s corpus from %s", cfg.Reader, cfg.Corpus)
		c, err = repo.Open(cfg.Corpus, cfg.Reader)
		if err != nil {
			return nil, err
		}
	}
	return c.TaggedSents()
}
