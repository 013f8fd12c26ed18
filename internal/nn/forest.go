// Package nn holds the pre-trained water potability model: a random forest
// of binary decision trees in the layout scikit-learn exports.
package nn

import (
	"errors"
	"fmt"
	"math"
)

// Node is a single decision tree node. A node is a leaf when it has no
// children (both indices <= 0); root is always node 0, so 0 is never a valid
// child index.
type Node struct {
	Feature   int       `yaml:"feature,omitempty" json:"feature,omitempty"`
	Threshold float64   `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Left      int       `yaml:"left,omitempty" json:"left,omitempty"`
	Right     int       `yaml:"right,omitempty" json:"right,omitempty"`
	Value     []float64 `yaml:"value,omitempty" json:"value,omitempty"`
}

// IsLeaf reports whether n has no children.
func (n Node) IsLeaf() bool {
	return n.Left <= 0 && n.Right <= 0
}

// Tree is a decision tree stored as a flat node array.
type Tree struct {
	Nodes []Node `yaml:"nodes" json:"nodes"`
}

// Forest is an ensemble of decision trees. After Load it is never mutated,
// so Classify is safe for concurrent use without locking.
type Forest struct {
	Name     string   `yaml:"name" json:"name"`
	Classes  []int    `yaml:"classes" json:"classes"`
	Features []string `yaml:"features" json:"features"`
	Trees    []Tree   `yaml:"trees" json:"trees"`
}

// Summary describes a loaded forest.
type Summary struct {
	Name     string   `json:"name"`
	Classes  []int    `json:"classes"`
	Features []string `json:"features"`
	Trees    int      `json:"trees"`
	Nodes    int      `json:"nodes"`
	MaxDepth int      `json:"max_depth"`
}

var (
	ErrEmptyForest     = errors.New("forest has no trees")
	ErrFeatureMismatch = errors.New("feature vector length does not match model")
)

// Validate checks the structural invariants Classify relies on.
// expected, when non-empty, is the feature order callers will use.
func (f *Forest) Validate(expected []string) error {
	if len(f.Trees) == 0 {
		return ErrEmptyForest
	}
	if len(f.Classes) != 2 || f.Classes[0] != 0 || f.Classes[1] != 1 {
		return fmt.Errorf("classes must be [0 1], got %v", f.Classes)
	}
	if len(expected) > 0 {
		if len(f.Features) != len(expected) {
			return fmt.Errorf("model has %d features, expected %d", len(f.Features), len(expected))
		}
		for i, name := range expected {
			if f.Features[i] != name {
				return fmt.Errorf("feature %d is %q, expected %q", i, f.Features[i], name)
			}
		}
	}
	if len(f.Features) == 0 {
		return errors.New("model declares no features")
	}

	for t, tree := range f.Trees {
		if err := f.validateTree(tree); err != nil {
			return fmt.Errorf("tree %d: %w", t, err)
		}
	}
	return nil
}

func (f *Forest) validateTree(tree Tree) error {
	n := len(tree.Nodes)
	if n == 0 {
		return errors.New("no nodes")
	}

	for i, node := range tree.Nodes {
		if node.IsLeaf() {
			if len(node.Value) != len(f.Classes) {
				return fmt.Errorf("leaf %d has %d class weights, expected %d", i, len(node.Value), len(f.Classes))
			}
			total := 0.0
			for _, w := range node.Value {
				if math.IsNaN(w) || math.IsInf(w, 0) {
					return fmt.Errorf("leaf %d has non-finite class weight", i)
				}
				if w < 0 {
					return fmt.Errorf("leaf %d has negative class weight", i)
				}
				total += w
			}
			if total == 0 {
				return fmt.Errorf("leaf %d has no class weight", i)
			}
			continue
		}

		if node.Left <= i || node.Right <= i || node.Left >= n || node.Right >= n {
			return fmt.Errorf("node %d has invalid children (%d, %d)", i, node.Left, node.Right)
		}
		if node.Feature < 0 || node.Feature >= len(f.Features) {
			return fmt.Errorf("node %d splits on unknown feature %d", i, node.Feature)
		}
		if math.IsNaN(node.Threshold) || math.IsInf(node.Threshold, 0) {
			return fmt.Errorf("node %d has non-finite threshold", i)
		}
	}
	return nil
}

// Predict returns the class probabilities for x, ordered like Classes.
// Each tree contributes its normalized leaf distribution; the forest
// probability is the mean over trees.
func (f *Forest) Predict(x []float64) ([]float64, error) {
	if len(x) != len(f.Features) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureMismatch, len(x), len(f.Features))
	}
	if len(f.Trees) == 0 {
		return nil, ErrEmptyForest
	}

	probs := make([]float64, len(f.Classes))
	for _, tree := range f.Trees {
		leaf := tree.leaf(x)
		total := 0.0
		for _, w := range leaf.Value {
			total += w
		}
		for c, w := range leaf.Value {
			probs[c] += w / total
		}
	}

	for c := range probs {
		probs[c] /= float64(len(f.Trees))
	}
	return probs, nil
}

// Classify returns the most probable class and the class probabilities.
// Ties go to the lower class.
func (f *Forest) Classify(x []float64) (int, []float64, error) {
	probs, err := f.Predict(x)
	if err != nil {
		return 0, nil, err
	}

	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return f.Classes[best], probs, nil
}

func (t Tree) leaf(x []float64) Node {
	i := 0
	for {
		node := t.Nodes[i]
		if node.IsLeaf() {
			return node
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

func (t Tree) depth() int {
	depths := make([]int, len(t.Nodes))
	deepest := 0
	for i, node := range t.Nodes {
		if depths[i] > deepest {
			deepest = depths[i]
		}
		if !node.IsLeaf() {
			depths[node.Left] = depths[i] + 1
			depths[node.Right] = depths[i] + 1
		}
	}
	return deepest
}

// Summary returns a description of f.
func (f *Forest) Summary() Summary {
	s := Summary{
		Name:     f.Name,
		Classes:  f.Classes,
		Features: f.Features,
		Trees:    len(f.Trees),
	}
	for _, t := range f.Trees {
		s.Nodes += len(t.Nodes)
		if d := t.depth(); d > s.MaxDepth {
			s.MaxDepth = d
		}
	}
	return s
}
