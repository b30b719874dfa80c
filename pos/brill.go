package pos

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"text2phenotype.com/tagtrainer/logger"
	"text2phenotype.com/tagtrainer/types"
)

var ErrInvalidTemplateBounds = errors.New("template bounds must be at least 1")

// Condition kinds of a transformation rule.
const (
	ConditionTag  = "Pos"
	ConditionWord = "Word"
)

// Template is a rule shape: the kind of context inspected and the window of
// offsets, relative to the tagged word, that is searched for it.
type Template struct {
	Kind  string `json:"kind"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func (tpl Template) String() string {
	offsets := make([]string, 0, tpl.End-tpl.Start+1)
	for o := tpl.Start; o <= tpl.End; o++ {
		offsets = append(offsets, strconv.Itoa(o))
	}
	return fmt.Sprintf("%s@[%s]", tpl.Kind, strings.Join(offsets, ","))
}

// Templates returns the templates for bound: single offsets from 1 to bound
// on either side and, for bounds above 1, the windows [1,bound] and
// [-bound,-1].
func Templates(bound int) ([]Template, error) {
	if bound < 1 {
		return nil, ErrInvalidTemplateBounds
	}
	var templates []Template
	for _, kind := range []string{ConditionTag, ConditionWord} {
		for o := 1; o <= bound; o++ {
			templates = append(templates,
				Template{Kind: kind, Start: -o, End: -o},
				Template{Kind: kind, Start: o, End: o})
		}
		if bound > 1 {
			templates = append(templates,
				Template{Kind: kind, Start: -bound, End: -1},
				Template{Kind: kind, Start: 1, End: bound})
		}
	}
	return templates, nil
}

// Rule replaces tag From with To wherever some position in the template
// window carries Value.
type Rule struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Template Template `json:"template"`
	Value    string   `json:"value"`
}

func (r Rule) String() string {
	tpl := r.Template
	offsets := strings.TrimPrefix(tpl.String(), tpl.Kind)
	return fmt.Sprintf("%s->%s if %s:%s%s", r.From, r.To, tpl.Kind, r.Value, offsets)
}

func (r Rule) matches(words, tags []string, i int) bool {
	if tags[i] != r.From {
		return false
	}
	for o := r.Template.Start; o <= r.Template.End; o++ {
		j := i + o
		if j < 0 || j >= len(words) {
			continue
		}
		if r.Template.Kind == ConditionTag && tags[j] == r.Value {
			return true
		}
		if r.Template.Kind == ConditionWord && words[j] == r.Value {
			return true
		}
	}
	return false
}

// apply rewrites tags in place. Matches are found before any tag changes, so
// the rule applies to all positions simultaneously. It returns the changed
// positions.
func (r Rule) apply(words, tags []string) []int {
	var changed []int
	for i := range tags {
		if r.matches(words, tags, i) {
			changed = append(changed, i)
		}
	}
	for _, i := range changed {
		tags[i] = r.To
	}
	return changed
}

// BrillTagger corrects the output of an initial tagger with an ordered list
// of transformation rules.
type BrillTagger struct {
	Initial Tagger
	Rules   []Rule
}

func (t *BrillTagger) Tag(words []string) []string {
	tags := t.Initial.Tag(words)
	for _, rule := range t.Rules {
		rule.apply(words, tags)
	}
	return tags
}

func (t *BrillTagger) String() string {
	return fmt.Sprintf("BrillTagger(%s, %d rules)", t.Initial, len(t.Rules))
}

type brillSent struct {
	words []string
	gold  []string
	tags  []string
}

type ruleScore struct {
	rule   Rule
	fixes  int
	breaks int
}

// TrainBrill learns rules that correct initial on train. Each round picks the
// rule with the highest fixes minus breaks; training stops after MaxRules
// rules or when no rule scores at least MinScore.
func TrainBrill(initial Tagger, train []types.TaggedSentence, opts types.BrillOptions, tracer logger.Tracer) (*BrillTagger, error) {
	templates, err := Templates(opts.TemplateBounds)
	if err != nil {
		return nil, err
	}
	tracer.Printf(1, "training Brill tagger on %d sentences", len(train))

	sents := make([]brillSent, len(train))
	errorCount := 0
	for k, sent := range train {
		s := brillSent{words: sent.Words(), gold: sent.Tags()}
		s.tags = initial.Tag(s.words)
		for i := range s.tags {
			if s.tags[i] != s.gold[i] {
				errorCount++
			}
		}
		sents[k] = s
	}
	tracer.Printf(1, "finding initial useful rules (%d errors)", errorCount)

	tagger := &BrillTagger{Initial: initial}
	if tracer.Enabled(2) {
		tracer.Printf(2, "  score  fixed  broken  rule")
		tracer.Printf(2, "  -----  -----  ------  ----")
	}
	for len(tagger.Rules) < opts.MaxRules {
		best, ok := bestRule(sents, templates, opts.MinScore)
		if !ok {
			break
		}
		score := best.fixes - best.breaks
		if score < opts.MinScore {
			break
		}
		tracer.Printf(2, "  %5d  %5d  %6d  %s", score, best.fixes, best.breaks, best.rule)
		for _, s := range sents {
			best.rule.apply(s.words, s.tags)
		}
		tagger.Rules = append(tagger.Rules, best.rule)
	}
	tracer.Printf(1, "learned %d rules", len(tagger.Rules))
	return tagger, nil
}

// bestRule proposes, for every wrongly tagged position, the rules that would
// fix it and returns the proposal with the highest score. Candidates whose fix
// count cannot beat the best score so far are not scored.
func bestRule(sents []brillSent, templates []Template, minScore int) (ruleScore, bool) {
	fixes := map[Rule]int{}
	for _, s := range sents {
		for i := range s.tags {
			if s.tags[i] == s.gold[i] {
				continue
			}
			proposed := map[Rule]bool{}
			for _, tpl := range templates {
				for o := tpl.Start; o <= tpl.End; o++ {
					j := i + o
					if j < 0 || j >= len(s.words) {
						continue
					}
					value := s.words[j]
					if tpl.Kind == ConditionTag {
						value = s.tags[j]
					}
					proposed[Rule{From: s.tags[i], To: s.gold[i], Template: tpl, Value: value}] = true
				}
			}
			for rule := range proposed {
				fixes[rule]++
			}
		}
	}

	candidates := make([]ruleScore, 0, len(fixes))
	for rule, n := range fixes {
		if n >= minScore {
			candidates = append(candidates, ruleScore{rule: rule, fixes: n})
		}
	}
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].fixes != candidates[b].fixes {
			return candidates[a].fixes > candidates[b].fixes
		}
		return candidates[a].rule.String() < candidates[b].rule.String()
	})

	var best ruleScore
	found := false
	for _, c := range candidates {
		if found && c.fixes <= best.fixes-best.breaks {
			break
		}
		c.fixes, c.breaks = scoreRule(c.rule, sents)
		score := c.fixes - c.breaks
		if !found || score > best.fixes-best.breaks ||
			(score == best.fixes-best.breaks && c.rule.String() < best.rule.String()) {
			best, found = c, true
		}
	}
	return best, found
}

// scoreRule counts the positions the rule would fix and break.
func scoreRule(rule Rule, sents []brillSent) (int, int) {
	fixes, breaks := 0, 0
	for _, s := range sents {
		for i := range s.tags {
			if !rule.matches(s.words, s.tags, i) {
				continue
			}
			switch {
			case s.gold[i] == rule.To:
				fixes++
			case s.gold[i] == s.tags[i]:
				breaks++
			}
		}
	}
	return fixes, breaks
}
