package lightgbm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Node represents a single node in a decision tree
type Node struct {
	LeftChild  int // Left child node index (-1 if leaf)
	RightChild int // Right child node index (-1 if leaf)

	// Split information (for non-leaf nodes)
	SplitFeature int     // Feature index used for splitting
	Threshold    float64 // Values <= Threshold go left
	DefaultLeft  bool    // Direction for missing values
	Gain         float64 // Split gain (reduction in loss)

	// Leaf information (for leaf nodes)
	LeafValue float64
	LeafCount int
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree represents a single decision tree in the ensemble. Nodes[0] is the root.
type Tree struct {
	ShrinkageRate float64
	NumLeaves     int
	Nodes         []Node
}

// Predict returns the shrunk leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}

		v := features[node.SplitFeature]
		switch {
		case math.IsNaN(v):
			if node.DefaultLeft {
				nodeID = node.LeftChild
			} else {
				nodeID = node.RightChild
			}
		case v <= node.Threshold:
			nodeID = node.LeftChild
		default:
			nodeID = node.RightChild
		}
	}
	return 0.0
}

// Model represents a trained boosted ensemble
type Model struct {
	Objective    string
	LearningRate float64
	InitScore    float64 // Initial raw score (baseline prediction)
	Trees        []Tree

	NumFeatures  int
	FeatureNames []string

	BestIteration int     // Last kept iteration (-1 without early stopping)
	BestScore     float64 // Validation metric at BestIteration

	objective ObjectiveFunction
}

// PredictRaw returns the untransformed ensemble score of one sample.
func (m *Model) PredictRaw(features []float64) float64 {
	score := m.InitScore
	for i := range m.Trees {
		score += m.Trees[i].Predict(features)
	}
	return score
}

// Predict returns the transformed prediction of every row of X; for the
// binary objective these are positive-class probabilities.
func (m *Model) Predict(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewValidationError("X", fmt.Sprintf("expected %d features, got %d", m.NumFeatures, cols), cols)
	}
	obj := m.objective
	if obj == nil {
		var err error
		if obj, err = CreateObjectiveFunction(m.Objective); err != nil {
			return nil, err
		}
	}

	out := mat.NewVecDense(rows, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		out.SetVec(i, obj.Transform(m.PredictRaw(features)))
	}
	return out, nil
}

// GetFeatureImportance returns normalized per-feature importance: "split"
// counts splits, "gain" sums split gain.
func (m *Model) GetFeatureImportance(importanceType string) []float64 {
	importance := make([]float64, m.NumFeatures)
	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			switch importanceType {
			case "split":
				importance[node.SplitFeature]++
			case "gain":
				importance[node.SplitFeature] += node.Gain
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return importance
}

// WriteText writes the model in a LightGBM-style text format: a key=value
// header followed by one block of space-separated node arrays per tree.
func (m *Model) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)

	names := make([]string, len(m.FeatureNames))
	for i, n := range m.FeatureNames {
		names[i] = strings.ReplaceAll(n, " ", "_")
	}

	fmt.Fprintf(bw, "tree\n")
	fmt.Fprintf(bw, "version=v3\n")
	fmt.Fprintf(bw, "num_class=1\n")
	fmt.Fprintf(bw, "num_tree_per_iteration=1\n")
	fmt.Fprintf(bw, "label_index=0\n")
	fmt.Fprintf(bw, "max_feature_idx=%d\n", m.NumFeatures-1)
	fmt.Fprintf(bw, "objective=%s\n", m.Objective)
	fmt.Fprintf(bw, "feature_names=%s\n", strings.Join(names, " "))
	fmt.Fprintf(bw, "init_score=%s\n", formatFloat(m.InitScore))
	fmt.Fprintf(bw, "best_iteration=%d\n", m.BestIteration)
	fmt.Fprintf(bw, "num_trees=%d\n", len(m.Trees))

	for i, tree := range m.Trees {
		n := len(tree.Nodes)
		split := make([]string, n)
		threshold := make([]string, n)
		defaultLeft := make([]string, n)
		left := make([]string, n)
		right := make([]string, n)
		leaf := make([]string, n)
		for j, node := range tree.Nodes {
			split[j] = strconv.Itoa(node.SplitFeature)
			threshold[j] = formatFloat(node.Threshold)
			defaultLeft[j] = strconv.FormatBool(node.DefaultLeft)
			left[j] = strconv.Itoa(node.LeftChild)
			right[j] = strconv.Itoa(node.RightChild)
			leaf[j] = formatFloat(node.LeafValue)
		}

		fmt.Fprintf(bw, "\nTree=%d\n", i)
		fmt.Fprintf(bw, "num_leaves=%d\n", tree.NumLeaves)
		fmt.Fprintf(bw, "num_nodes=%d\n", n)
		fmt.Fprintf(bw, "split_feature=%s\n", strings.Join(split, " "))
		fmt.Fprintf(bw, "threshold=%s\n", strings.Join(threshold, " "))
		fmt.Fprintf(bw, "default_left=%s\n", strings.Join(defaultLeft, " "))
		fmt.Fprintf(bw, "left_child=%s\n", strings.Join(left, " "))
		fmt.Fprintf(bw, "right_child=%s\n", strings.Join(right, " "))
		fmt.Fprintf(bw, "leaf_value=%s\n", strings.Join(leaf, " "))
		fmt.Fprintf(bw, "shrinkage=%s\n", formatFloat(tree.ShrinkageRate))
	}
	fmt.Fprintf(bw, "\nend of trees\n")

	return errors.Wrap(bw.Flush(), "write model")
}

// SaveToFile saves the model to path in the text format of WriteText.
func (m *Model) SaveToFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return m.WriteText(f)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
