package options

import (
	"errors"
	"fmt"
	"io"

	"github.com/alexflint/go-arg"
	"text2phenotype.com/tagtrainer/types"
)

// Args are the command line flags of the tagger trainer.
type Args struct {
	Corpus     string               `arg:"positional,required" help:"corpus name, or a path when --reader is given"`
	Filename   string               `arg:"--filename" help:"file to persist the tagger to; s3://bucket/key and redis://key are also accepted"`
	NoPickle   bool                 `arg:"--no-pickle" help:"don't persist the tagger"`
	Trace      int                  `arg:"--trace" default:"1" help:"how much trace output to print, 0 for none"`
	Classifier types.ClassifierKind `arg:"--classifier" help:"classifier to use: NaiveBayes, DecisionTree, Maxent, GIS, IIS, CG, BFGS, LBFGSB or Nelder-Mead"`
	Brill      bool                 `arg:"--brill" help:"train a Brill tagger on top of the initial tagger"`

	TemplateBounds int `arg:"--template_bounds" default:"1" help:"Brill template bounds"`
	MaxRules       int `arg:"--max_rules" default:"200" help:"maximum number of Brill rules"`
	MinScore       int `arg:"--min_score" default:"2" help:"minimum score of a Brill rule"`

	Reader   types.ReaderKind `arg:"--reader" help:"corpus reader for a corpus given as a path: tagged"`
	Fraction float64          `arg:"--fraction" default:"1.0" help:"fraction of the corpus to train on; the rest is held out for evaluation"`
	NoEval   bool             `arg:"--no-eval" help:"don't evaluate the tagger"`

	MaxIter    int     `arg:"--max_iter" default:"10" help:"maxent training iterations"`
	MinLL      float64 `arg:"--min_ll" default:"0" help:"stop maxent training at this log likelihood"`
	MinLLDelta float64 `arg:"--min_lldelta" default:"0.1" help:"stop maxent training when the log likelihood improves less than this"`

	EntropyCutoff float64 `arg:"--entropy_cutoff" default:"0.05" help:"decision tree entropy cutoff"`
	DepthCutoff   int     `arg:"--depth_cutoff" default:"100" help:"decision tree depth cutoff"`
	SupportCutoff int     `arg:"--support_cutoff" default:"10" help:"decision tree support cutoff"`

	Report string `arg:"--report" help:"write a JSON run report to this file"`
}

func (Args) Description() string {
	return "Train a part of speech tagger on a tagged corpus."
}

// UsageError is a command line the trainer cannot run with.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// Configuration converts parsed flags into a run configuration.
func (a Args) Configuration() types.Configuration {
	return types.Configuration{
		Corpus:     a.Corpus,
		Filename:   a.Filename,
		NoPickle:   a.NoPickle,
		Trace:      a.Trace,
		Classifier: a.Classifier,
		Brill:      a.Brill,
		BrillOptions: types.BrillOptions{
			TemplateBounds: a.TemplateBounds,
			MaxRules:       a.MaxRules,
			MinScore:       a.MinScore,
		},
		Reader:   a.Reader,
		Fraction: a.Fraction,
		NoEval:   a.NoEval,
		Maxent: types.MaxentOptions{
			MaxIter:    a.MaxIter,
			MinLL:      a.MinLL,
			MinLLDelta: a.MinLLDelta,
		},
		DecisionTree: types.DecisionTreeOptions{
			EntropyCutoff: a.EntropyCutoff,
			DepthCutoff:   a.DepthCutoff,
			SupportCutoff: a.SupportCutoff,
		},
		ReportPath: a.Report,
	}
}

// Parse turns the arguments after the program name into a validated
// configuration. Help and usage text go to out. A help request returns
// arg.ErrHelp; anything the trainer cannot run with returns a *UsageError.
func Parse(program string, args []string, out io.Writer) (types.Configuration, error) {
	var a Args
	p, err := arg.NewParser(arg.Config{Program: program}, &a)
	if err != nil {
		return types.Configuration{}, err
	}
	if err := p.Parse(args); err != nil {
		if errors.Is(err, arg.ErrHelp) {
			p.WriteHelp(out)
			return types.Configuration{}, err
		}
		return types.Configuration{}, usage(p, out, err)
	}
	cfg := a.Configuration()
	if err := cfg.Validate(); err != nil {
		return cfg, usage(p, out, err)
	}
	return cfg, nil
}

func usage(p *arg.Parser, out io.Writer, err error) error {
	p.WriteUsage(out)
	fmt.Fprintf(out, "error: %v\n", err)
	return &UsageError{Err: err}
}
