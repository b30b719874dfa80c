package classify

import (
	"fmt"
	"sort"
	"strings"

	"text2phenotype.com/tagtrainer/logger"
)

// DecisionTree is a node of a decision tree. A node without a feature is a
// leaf predicting Label. An inner node follows the branch for the value of
// Feature, then Default, and otherwise predicts Label itself.
type DecisionTree struct {
	Label     string                   `json:"label"`
	Feature   string                   `json:"feature,omitempty"`
	Decisions map[string]*DecisionTree `json:"decisions,omitempty"`
	Default   *DecisionTree            `json:"default,omitempty"`
	LabelList []string                 `json:"labels,omitempty"`
}

type treeParams struct {
	entropyCutoff float64
	depthCutoff   int
	supportCutoff int
	binary        bool
	tracer        logger.Tracer
}

// TrainDecisionTree options: binary, entropy_cutoff, depth_cutoff,
// support_cutoff, verbose, tracer.
func TrainDecisionTree(toks []LabeledFeatureSet, opts Options) (Classifier, error) {
	if err := opts.check("decision tree", "binary", "entropy_cutoff", "depth_cutoff", "support_cutoff", "verbose"); err != nil {
		return nil, err
	}
	if err := checkToks(toks); err != nil {
		return nil, err
	}
	var params treeParams
	var err error
	if params.binary, err = opts.Bool("binary", false); err != nil {
		return nil, err
	}
	if params.entropyCutoff, err = opts.Float("entropy_cutoff", 0.05); err != nil {
		return nil, err
	}
	if params.depthCutoff, err = opts.Int("depth_cutoff", 100); err != nil {
		return nil, err
	}
	if params.supportCutoff, err = opts.Int("support_cutoff", 10); err != nil {
		return nil, err
	}
	if params.tracer, err = opts.Tracer("verbose"); err != nil {
		return nil, err
	}

	names := featureNames(toks)
	var tree *DecisionTree
	if params.binary {
		tree = bestBinaryStump(names, toks, params.tracer)
	} else {
		tree = bestStump(names, toks, params.tracer)
	}
	tree.refine(toks, params, params.depthCutoff-1)
	tree.LabelList = sortedLabels(toks)
	return tree, nil
}

func (tree *DecisionTree) Labels() []string {
	return tree.LabelList
}

func (tree *DecisionTree) Classify(features FeatureSet) string {
	node := tree
	for node.Feature != "" {
		value := features[node.Feature]
		if next, ok := node.Decisions[value]; ok {
			node = next
		} else if node.Default != nil {
			node = node.Default
		} else {
			break
		}
	}
	return node.Label
}

// Depth is the number of inner nodes on the longest path.
func (tree *DecisionTree) Depth() int {
	if tree.Feature == "" {
		return 0
	}
	depth := 0
	for _, child := range tree.children() {
		if d := child.Depth(); d > depth {
			depth = d
		}
	}
	return depth + 1
}

func (tree *DecisionTree) children() []*DecisionTree {
	values := make([]string, 0, len(tree.Decisions))
	for value := range tree.Decisions {
		values = append(values, value)
	}
	sort.Strings(values)
	res := make([]*DecisionTree, 0, len(values)+1)
	for _, value := range values {
		res = append(res, tree.Decisions[value])
	}
	if tree.Default != nil {
		res = append(res, tree.Default)
	}
	return res
}

// Pseudocode renders the tree as nested if statements, down to depth.
func (tree *DecisionTree) Pseudocode(depth int) string {
	var sb strings.Builder
	tree.pseudocode(&sb, "", depth)
	return sb.String()
}

func (tree *DecisionTree) pseudocode(sb *strings.Builder, prefix string, depth int) {
	if tree.Feature == "" {
		fmt.Fprintf(sb, "%sreturn %q\n", prefix, tree.Label)
		return
	}
	values := make([]string, 0, len(tree.Decisions))
	for value := range tree.Decisions {
		values = append(values, value)
	}
	sort.Strings(values)
	for _, value := range values {
		child := tree.Decisions[value]
		fmt.Fprintf(sb, "%sif %s == %q: ", prefix, tree.Feature, value)
		if child.Feature != "" && depth > 1 {
			sb.WriteString("\n")
			child.pseudocode(sb, prefix+"  ", depth-1)
		} else {
			fmt.Fprintf(sb, "return %q\n", child.Label)
		}
	}
	if tree.Default != nil {
		if len(values) == 1 {
			fmt.Fprintf(sb, "%sif %s != %q: ", prefix, tree.Feature, values[0])
		} else {
			fmt.Fprintf(sb, "%selse: ", prefix)
		}
		if tree.Default.Feature != "" && depth > 1 {
			sb.WriteString("\n")
			tree.Default.pseudocode(sb, prefix+"  ", depth-1)
		} else {
			fmt.Fprintf(sb, "return %q\n", tree.Default.Label)
		}
	}
}

func (tree *DecisionTree) refine(toks []LabeledFeatureSet, params treeParams, depthCutoff int) {
	if len(toks) <= params.supportCutoff {
		return
	}
	if tree.Feature == "" {
		return
	}
	if depthCutoff <= 0 {
		return
	}

	for value := range tree.Decisions {
		var subset []LabeledFeatureSet
		for _, tok := range toks {
			if tok.Features[tree.Feature] == value {
				subset = append(subset, tok)
			}
		}
		if countLabels(subset).entropy() > params.entropyCutoff {
			tree.Decisions[value] = trainSubtree(subset, params, depthCutoff)
		}
	}

	if tree.Default != nil {
		var subset []LabeledFeatureSet
		for _, tok := range toks {
			if _, ok := tree.Decisions[tok.Features[tree.Feature]]; !ok {
				subset = append(subset, tok)
			}
		}
		if countLabels(subset).entropy() > params.entropyCutoff {
			tree.Default = trainSubtree(subset, params, depthCutoff)
		}
	}
}

func trainSubtree(toks []LabeledFeatureSet, params treeParams, depthCutoff int) *DecisionTree {
	names := featureNames(toks)
	var tree *DecisionTree
	if params.binary {
		tree = bestBinaryStump(names, toks, params.tracer)
	} else {
		tree = bestStump(names, toks, params.tracer)
	}
	tree.refine(toks, params, depthCutoff-1)
	return tree
}

func leaf(toks []LabeledFeatureSet) *DecisionTree {
	label, _ := countLabels(toks).max()
	return &DecisionTree{Label: label}
}

// stump splits on every value of name. Its training error is returned along
// with it.
func stump(name string, toks []LabeledFeatureSet) (*DecisionTree, float64) {
	label, _ := countLabels(toks).max()
	byValue := map[string]labelCounts{}
	for _, tok := range toks {
		value := tok.Features[name]
		if byValue[value] == nil {
			byValue[value] = labelCounts{}
		}
		byValue[value][tok.Label]++
	}
	tree := &DecisionTree{Label: label, Feature: name, Decisions: make(map[string]*DecisionTree, len(byValue))}
	correct := 0
	for value, counts := range byValue {
		best, n := counts.max()
		tree.Decisions[value] = &DecisionTree{Label: best}
		correct += n
	}
	return tree, 1 - float64(correct)/float64(len(toks))
}

// binaryStump splits on name == value against everything else.
func binaryStump(name string, value string, toks []LabeledFeatureSet) (*DecisionTree, float64) {
	label, _ := countLabels(toks).max()
	pos, neg := labelCounts{}, labelCounts{}
	for _, tok := range toks {
		if tok.Features[name] == value {
			pos[tok.Label]++
		} else {
			neg[tok.Label]++
		}
	}
	tree := &DecisionTree{Label: label, Feature: name, Decisions: map[string]*DecisionTree{}}
	correct := 0
	if len(pos) > 0 {
		best, n := pos.max()
		tree.Decisions[value] = &DecisionTree{Label: best}
		correct += n
	}
	if len(neg) > 0 {
		best, n := neg.max()
		tree.Default = &DecisionTree{Label: best}
		correct += n
	}
	return tree, 1 - float64(correct)/float64(len(toks))
}

func leafError(toks []LabeledFeatureSet) float64 {
	_, n := countLabels(toks).max()
	return 1 - float64(n)/float64(len(toks))
}

func bestStump(names []string, toks []LabeledFeatureSet, tracer logger.Tracer) *DecisionTree {
	best := leaf(toks)
	bestError := leafError(toks)
	for _, name := range names {
		candidate, err := stump(name, toks)
		if err < bestError {
			best, bestError = candidate, err
		}
	}
	if best.Feature != "" {
		tracer.Printf(1, "best stump for %6d toks uses %-20s err=%6.4f", len(toks), best.Feature, bestError)
	}
	return best
}

func bestBinaryStump(names []string, toks []LabeledFeatureSet, tracer logger.Tracer) *DecisionTree {
	best := leaf(toks)
	bestError := leafError(toks)
	for _, name := range names {
		seen := map[string]bool{}
		var values []string
		for _, tok := range toks {
			value := tok.Features[name]
			if !seen[value] {
				seen[value] = true
				values = append(values, value)
			}
		}
		sort.Strings(values)
		for _, value := range values {
			candidate, err := binaryStump(name, value, toks)
			if err < bestError {
				best, bestError = candidate, err
			}
		}
	}
	if best.Feature != "" {
		var value string
		for v := range best.Decisions {
			value = v
		}
		desc := fmt.Sprintf("%s=%s", best.Feature, value)
		tracer.Printf(1, "best stump for %6d toks uses %-20s err=%6.4f", len(toks), desc, bestError)
	}
	return best
}
