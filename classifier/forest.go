package classifier

import (
	"fmt"
	"math"
)

// Tree is one fitted CART tree in flat array form. Node i is a leaf when
// ChildrenLeft[i] is -1; otherwise samples with x[Feature[i]] <= Threshold[i]
// go left. Value[i] holds the class weights seen at node i.
type Tree struct {
	ChildrenLeft  []int       `yaml:"children_left"`
	ChildrenRight []int       `yaml:"children_right"`
	Feature       []int       `yaml:"feature"`
	Threshold     []float64   `yaml:"threshold"`
	Value         [][]float64 `yaml:"value"`
}

const leaf = -1

func (t *Tree) validate(numFeatures, numClasses int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("tree arrays disagree on node count %d", n)
	}

	for i := range n {
		left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
		if left == leaf {
			if right != leaf {
				return fmt.Errorf("node %d has only one child", i)
			}
			if len(t.Value[i]) != numClasses {
				return fmt.Errorf("leaf %d has %d class weights, want %d", i, len(t.Value[i]), numClasses)
			}
			total := 0.0
			for _, w := range t.Value[i] {
				if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
					return fmt.Errorf("leaf %d has invalid class weight %g", i, w)
				}
				total += w
			}
			if total == 0 {
				return fmt.Errorf("leaf %d is empty", i)
			}
			continue
		}

		// Children always follow their parent, which rules out cycles
		if left <= i || right <= i || left >= n || right >= n {
			return fmt.Errorf("node %d has invalid children %d/%d", i, left, right)
		}
		if f := t.Feature[i]; f < 0 || f >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, f, numFeatures)
		}
		if math.IsNaN(t.Threshold[i]) {
			return fmt.Errorf("node %d has a NaN threshold", i)
		}
	}
	return nil
}

// proba adds the normalized leaf distribution for x into acc
func (t *Tree) proba(x, acc []float64) {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}

	weights := t.Value[node]
	total := 0.0
	for _, w := range weights {
		total += w
	}
	for k, w := range weights {
		acc[k] += w / total
	}
}

// RandomForest averages the leaf class distributions of its trees
type RandomForest struct {
	trees       []Tree
	numFeatures int
	numClasses  int
}

// NewRandomForest validates every tree against the feature and class counts
func NewRandomForest(trees []Tree, numFeatures, numClasses int) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}
	if numFeatures <= 0 || numClasses < 2 {
		return nil, fmt.Errorf("invalid forest shape: %d features, %d classes", numFeatures, numClasses)
	}
	for i := range trees {
		if err := trees[i].validate(numFeatures, numClasses); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return &RandomForest{trees: trees, numFeatures: numFeatures, numClasses: numClasses}, nil
}

// NumTrees returns the ensemble size
func (f *RandomForest) NumTrees() int {
	return len(f.trees)
}

// NumFeatures implements Classifier
func (f *RandomForest) NumFeatures() int {
	return f.numFeatures
}

// Kind implements Classifier
func (f *RandomForest) Kind() string {
	return KindRandomForest
}

// PredictProba implements Classifier
func (f *RandomForest) PredictProba(x []float64) []float64 {
	acc := make([]float64, f.numClasses)
	for i := range f.trees {
		f.trees[i].proba(x, acc)
	}
	for k := range acc {
		acc[k] /= float64(len(f.trees))
	}
	return acc
}

// LogisticRegression is a binary linear model over scaled features
type LogisticRegression struct {
	coef      []float64
	intercept float64
}

// NewLogisticRegression creates a binary logistic model
func NewLogisticRegression(coef []float64, intercept float64) (*LogisticRegression, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("logistic regression has no coefficients")
	}
	for i, c := range append([]float64{intercept}, coef...) {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("logistic regression parameter %d is not finite", i)
		}
	}
	return &LogisticRegression{coef: coef, intercept: intercept}, nil
}

// NumFeatures implements Classifier
func (l *LogisticRegression) NumFeatures() int {
	return len(l.coef)
}

// Kind implements Classifier
func (l *LogisticRegression) Kind() string {
	return KindLogisticRegression
}

// PredictProba implements Classifier
func (l *LogisticRegression) PredictProba(x []float64) []float64 {
	z := l.intercept
	for i, c := range l.coef {
		z += c * x[i]
	}
	p1 := 1 / (1 + math.Exp(-z))
	return []float64{1 - p1, p1}
}
