package trainer

import (
	"errors"
	"math"
	"math/rand"
)

// Gradient-boosted regression trees with squared loss. Each tree fits the
// residuals of the ensemble so far on a subsample of the training rows; the
// seeded source makes runs reproducible.

// TreeNode is one node of a regression tree. Nodes are stored flat so the
// fitted model serializes to plain JSON.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// Tree is a single fitted regression tree.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Leaf {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

// GBRegressor is the fitted ensemble.
type GBRegressor struct {
	InitValue    float64 `json:"init_value"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []Tree  `json:"trees"`
}

// Predict returns the ensemble prediction for one aligned feature vector.
func (m *GBRegressor) Predict(x []float64) float64 {
	pred := m.InitValue
	for i := range m.Trees {
		pred += m.LearningRate * m.Trees[i].predict(x)
	}
	return pred
}

// GBParams are the fixed training hyperparameters.
type GBParams struct {
	NEstimators  int
	MaxDepth     int
	LearningRate float64
	Subsample    float64
	Seed         int64
}

// FitGB trains a boosted ensemble on rows X with targets y.
func FitGB(X [][]float64, y []float64, params GBParams) (*GBRegressor, error) {
	if len(X) == 0 {
		return nil, errors.New("cannot fit on zero samples")
	}
	if len(X) != len(y) {
		return nil, errors.New("feature and target lengths differ")
	}

	rng := rand.New(rand.NewSource(params.Seed))

	model := &GBRegressor{
		InitValue:    meanOf(y),
		LearningRate: params.LearningRate,
		Trees:        make([]Tree, 0, params.NEstimators),
	}

	// Running ensemble prediction per training row.
	current := make([]float64, len(y))
	for i := range current {
		current[i] = model.InitValue
	}

	residuals := make([]float64, len(y))
	sampleSize := int(params.Subsample * float64(len(y)))
	if sampleSize < 1 {
		sampleSize = 1
	}

	for iter := 0; iter < params.NEstimators; iter++ {
		for i := range y {
			residuals[i] = y[i] - current[i]
		}

		indices := sampleWithoutReplacement(rng, len(y), sampleSize)
		tree := fitTree(X, residuals, indices, params.MaxDepth)
		model.Trees = append(model.Trees, tree)

		for i := range current {
			current[i] += params.LearningRate * tree.predict(X[i])
		}
	}

	return model, nil
}

func sampleWithoutReplacement(rng *rand.Rand, n, k int) []int {
	perm := rng.Perm(n)
	return perm[:k]
}

// fitTree grows one regression tree on the given row subset by greedy
// variance-reduction splits.
func fitTree(X [][]float64, target []float64, indices []int, maxDepth int) Tree {
	tree := Tree{}
	var grow func(indices []int, depth int) int
	grow = func(indices []int, depth int) int {
		nodeIdx := len(tree.Nodes)
		tree.Nodes = append(tree.Nodes, TreeNode{})

		if depth >= maxDepth || len(indices) < 2 {
			tree.Nodes[nodeIdx] = TreeNode{Leaf: true, Value: meanAt(target, indices)}
			return nodeIdx
		}

		feature, threshold, ok := bestSplit(X, target, indices)
		if !ok {
			tree.Nodes[nodeIdx] = TreeNode{Leaf: true, Value: meanAt(target, indices)}
			return nodeIdx
		}

		var left, right []int
		for _, i := range indices {
			if X[i][feature] <= threshold {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}

		leftIdx := grow(left, depth+1)
		rightIdx := grow(right, depth+1)
		tree.Nodes[nodeIdx] = TreeNode{
			Feature:   feature,
			Threshold: threshold,
			Left:      leftIdx,
			Right:     rightIdx,
		}
		return nodeIdx
	}

	grow(indices, 0)
	return tree
}

// bestSplit scans every feature for the threshold with the largest reduction
// in squared error. Returns ok=false when no split separates the rows.
func bestSplit(X [][]float64, target []float64, indices []int) (feature int, threshold float64, ok bool) {
	nFeatures := len(X[indices[0]])

	var totalSum, totalSq float64
	for _, i := range indices {
		totalSum += target[i]
		totalSq += target[i] * target[i]
	}
	n := float64(len(indices))
	baseSSE := totalSq - totalSum*totalSum/n

	bestGain := 1e-12

	pairs := make([]splitPair, len(indices))

	for f := 0; f < nFeatures; f++ {
		for j, i := range indices {
			pairs[j] = splitPair{X[i][f], target[i]}
		}
		sortPairs(pairs)

		var leftSum, leftSq float64
		for j := 0; j < len(pairs)-1; j++ {
			leftSum += pairs[j].y
			leftSq += pairs[j].y * pairs[j].y
			if pairs[j].x == pairs[j+1].x {
				continue
			}

			nl := float64(j + 1)
			nr := n - nl
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)

			if gain := baseSSE - sse; gain > bestGain {
				bestGain = gain
				feature = f
				threshold = (pairs[j].x + pairs[j+1].x) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

type splitPair struct{ x, y float64 }

func sortPairs(pairs []splitPair) {
	// Insertion sort keeps the hot path allocation-free; split scans run on
	// small index sets.
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].x < pairs[j-1].x; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
}

func meanOf(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func meanAt(vals []float64, indices []int) float64 {
	var sum float64
	for _, i := range indices {
		sum += vals[i]
	}
	return sum / float64(len(indices))
}

// meanAbsoluteError is the in-sample MAE reported after training.
func meanAbsoluteError(y, pred []float64) float64 {
	var sum float64
	for i := range y {
		sum += math.Abs(y[i] - pred[i])
	}
	return sum / float64(len(y))
}

// rSquared is the in-sample coefficient of determination.
func rSquared(y, pred []float64) float64 {
	m := meanOf(y)
	var ssRes, ssTot float64
	for i := range y {
		ssRes += (y[i] - pred[i]) * (y[i] - pred[i])
		ssTot += (y[i] - m) * (y[i] - m)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
