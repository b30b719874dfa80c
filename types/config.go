package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"text2phenotype.com/tagtrainer/utils"
)

var (
	ErrNoTaggerConfigured = errors.New("no tagger configuration selected: use --classifier and/or --brill")
	ErrInvalidFraction    = errors.New("fraction must be in (0, 1]")
)

type ClassifierKind string

const (
	ClassifierNone   ClassifierKind = ""
	NaiveBayes       ClassifierKind = "NaiveBayes"
	DecisionTree     ClassifierKind = "DecisionTree"
	Maxent           ClassifierKind = "Maxent"
	MaxentGIS        ClassifierKind = "GIS"
	MaxentIIS        ClassifierKind = "IIS"
	MaxentCG         ClassifierKind = "CG"
	MaxentBFGS       ClassifierKind = "BFGS"
	MaxentLBFGSB     ClassifierKind = "LBFGSB"
	MaxentNelderMead ClassifierKind = "Nelder-Mead"
)

// MaxentAlgorithms lists the named maximum entropy training algorithms.
var MaxentAlgorithms = []ClassifierKind{
	MaxentGIS, MaxentIIS, MaxentCG, MaxentBFGS, MaxentLBFGSB, MaxentNelderMead,
}

// ClassifierKinds returns every selectable classifier kind in help order.
func ClassifierKinds() []ClassifierKind {
	kinds := []ClassifierKind{NaiveBayes, DecisionTree, Maxent}
	return append(kinds, MaxentAlgorithms...)
}

func ParseClassifierKind(s string) (ClassifierKind, error) {
	for _, kind := range ClassifierKinds() {
		if string(kind) == s {
			return kind, nil
		}
	}
	return ClassifierNone, fmt.Errorf("invalid classifier %q (choose from %s)", s, joinKinds(ClassifierKinds()))
}

func (kind *ClassifierKind) UnmarshalText(b []byte) error {
	parsed, err := ParseClassifierKind(string(b))
	if err != nil {
		return err
	}
	*kind = parsed
	return nil
}

func (kind ClassifierKind) MarshalText() ([]byte, error) {
	return []byte(kind), nil
}

// IsMaxent reports whether kind trains a maximum entropy classifier.
func (kind ClassifierKind) IsMaxent() bool {
	return kind == Maxent || kind.IsMaxentAlgorithm()
}

// IsMaxentAlgorithm reports whether kind names a specific maxent algorithm
// rather than the default one.
func (kind ClassifierKind) IsMaxentAlgorithm() bool {
	for _, algorithm := range MaxentAlgorithms {
		if kind == algorithm {
			return true
		}
	}
	return false
}

func joinKinds(kinds []ClassifierKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

type ReaderKind string

const (
	ReaderNone   ReaderKind = ""
	ReaderTagged ReaderKind = "tagged"
)

func (kind *ReaderKind) UnmarshalText(b []byte) error {
	switch ReaderKind(b) {
	case ReaderTagged:
		*kind = ReaderTagged
		return nil
	}
	return fmt.Errorf("invalid reader %q (choose from %s)", string(b), ReaderTagged)
}

func (kind ReaderKind) MarshalText() ([]byte, error) {
	return []byte(kind), nil
}

type BrillOptions struct {
	TemplateBounds int `json:"template_bounds"`
	MaxRules       int `json:"max_rules"`
	MinScore       int `json:"min_score"`
}

type MaxentOptions struct {
	MaxIter    int     `json:"max_iter"`
	MinLL      float64 `json:"min_ll"`
	MinLLDelta float64 `json:"min_lldelta"`
}

type DecisionTreeOptions struct {
	EntropyCutoff float64 `json:"entropy_cutoff"`
	DepthCutoff   int     `json:"depth_cutoff"`
	SupportCutoff int     `json:"support_cutoff"`
}

// Configuration is the validated record a training run is driven by.
// Maxent and DecisionTree options only matter when the matching classifier
// kind is selected.
type Configuration struct {
	Corpus       string              `json:"corpus"`
	Filename     string              `json:"filename,omitempty"`
	NoPickle     bool                `json:"no_pickle"`
	Trace        int                 `json:"trace"`
	Classifier   ClassifierKind      `json:"classifier,omitempty"`
	Brill        bool                `json:"brill"`
	BrillOptions BrillOptions        `json:"brill_options"`
	Reader       ReaderKind          `json:"reader,omitempty"`
	Fraction     float64             `json:"fraction"`
	NoEval       bool                `json:"no_eval"`
	Maxent       MaxentOptions       `json:"maxent"`
	DecisionTree DecisionTreeOptions `json:"decision_tree"`
	ReportPath   string              `json:"report_path,omitempty"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Trace: 1,
		BrillOptions: BrillOptions{
			TemplateBounds: 1,
			MaxRules:       200,
			MinScore:       2,
		},
		Fraction: 1.0,
		Maxent: MaxentOptions{
			MaxIter:    10,
			MinLL:      0,
			MinLLDelta: 0.1,
		},
		DecisionTree: DecisionTreeOptions{
			EntropyCutoff: 0.05,
			DepthCutoff:   100,
			SupportCutoff: 10,
		},
	}
}

func (cfg Configuration) Validate() error {
	if cfg.Fraction <= 0 || cfg.Fraction > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidFraction, cfg.Fraction)
	}
	if cfg.Classifier == ClassifierNone && !cfg.Brill {
		return ErrNoTaggerConfigured
	}
	return nil
}

// Environment holds settings read from the process environment.
type Environment struct {
	DataPath string `envconfig:"TAGGER_DATA_PATH" default:"~/nltk_data"`
}

func ReadEnvironment() (Environment, error) {
	var env Environment
	if err := envconfig.Process("", &env); err != nil {
		return env, err
	}
	env.DataPath = utils.ExpandHome(env.DataPath)
	return env, nil
}
