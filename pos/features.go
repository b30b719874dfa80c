package pos

import (
	"regexp"
	"strings"

	"text2phenotype.com/tagtrainer/classify"
	"text2phenotype.com/tagtrainer/types"
)

const (
	prefixLength = 3
	suffixLength = 3
)

// FeatureDetector returns the features of words[index]. history holds the
// tags of the preceding words.
type FeatureDetector func(words []string, index int, history []string) classify.FeatureSet

var (
	numberRe    = regexp.MustCompile(`^(?:[0-9]+(?:\.[0-9]*)?|[0-9]*\.[0-9]+)$`)
	punctRe     = regexp.MustCompile(`^\W+$`)
	upcaseRe    = regexp.MustCompile(`^[A-Z][a-z]+$`)
	downcaseRe  = regexp.MustCompile(`^[a-z]+$`)
	mixedcaseRe = regexp.MustCompile(`^\w+$`)
)

func wordShape(word string) string {
	switch {
	case numberRe.MatchString(word):
		return "number"
	case punctRe.MatchString(word):
		return "punct"
	case upcaseRe.MatchString(word):
		return "upcase"
	case downcaseRe.MatchString(word):
		return "downcase"
	case mixedcaseRe.MatchString(word):
		return "mixedcase"
	}
	return "other"
}

// DefaultFeatures is the feature detector of classifier based taggers.
// Context outside the sentence is left out of the feature set.
func DefaultFeatures(words []string, index int, history []string) classify.FeatureSet {
	word := words[index]
	lex := strings.ToLower(word)

	var prevword, prevprevword, nextword, nextnextword string
	var prevtag, prevprevtag string
	if index > 0 {
		prevword = strings.ToLower(words[index-1])
		prevtag = history[index-1]
		if index > 1 {
			prevprevword = strings.ToLower(words[index-2])
			prevprevtag = history[index-2]
		}
	}
	if index+1 < len(words) {
		nextword = strings.ToLower(words[index+1])
		if index+2 < len(words) {
			nextnextword = strings.ToLower(words[index+2])
		}
	}

	features := classify.FeatureSet{
		"word":       word,
		"word.lower": lex,
		"shape":      wordShape(word),
		"cshape":     types.GetCompactShape(word),
	}
	runes := []rune(lex)
	for i, pre := range getPrefixes(runes) {
		features["prefix"+string(rune('1'+i))] = pre
	}
	for i, suf := range getSuffixes(runes) {
		features["suffix"+string(rune('1'+i))] = suf
	}

	if index > 0 {
		features["prevword"] = prevword
		features["prevtag"] = prevtag
		features["prevtag+word"] = prevtag + "+" + lex
		features["prevword+word"] = prevword + "+" + lex
	}
	if index > 1 {
		features["prevprevword"] = prevprevword
		features["prevprevtag"] = prevprevtag
		features["prevprevtag+prevtag"] = prevprevtag + "," + prevtag
	}
	if index+1 < len(words) {
		features["nextword"] = nextword
	}
	if index+2 < len(words) {
		features["nextnextword"] = nextnextword
	}
	return features
}

func getPrefixes(lex []rune) []string {
	n := prefixLength
	if len(lex) < n {
		n = len(lex)
	}
	prefs := make([]string, n)
	for li := 0; li < n; li++ {
		prefs[li] = string(lex[:li+1])
	}
	return prefs
}

func getSuffixes(lex []rune) []string {
	n := suffixLength
	if len(lex) < n {
		n = len(lex)
	}
	suffs := make([]string, n)
	for li := 0; li < n; li++ {
		suffs[li] = string(lex[len(lex)-li-1:])
	}
	return suffs
}

// trainingFeatures extracts one labeled feature set per token, using the gold
// tags as history.
func trainingFeatures(sents []types.TaggedSentence, detect FeatureDetector) []classify.LabeledFeatureSet {
	toks := make([]classify.LabeledFeatureSet, 0, types.CountTokens(sents))
	for _, sent := range sents {
		words, tags := sent.Words(), sent.Tags()
		for i := range words {
			toks = append(toks, classify.LabeledFeatureSet{
				Features: detect(words, i, tags),
				Label:    tags[i],
			})
		}
	}
	return toks
}
