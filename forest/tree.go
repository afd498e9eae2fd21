package forest

import (
	"math/rand"
)

// ---------------------------
// Decision tree (CART, gini)
// ---------------------------

// node is one tree node. Fields are exported for gob serialization of
// fitted models.
type node struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x <= Threshold goes left
	Left      *node
	Right     *node
	Pred      int // class index predicted by this (leaf) node
	N         int // training samples that reached the node
}

type tree struct {
	Root *node
}

// treeConfig carries the per-tree build parameters resolved by the forest.
type treeConfig struct {
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	maxFeatures     int // number of features sampled per split
	nClasses        int
	splitter        Splitter
}

// buildTree fits one tree on the rows selected by idx.
func buildTree(x [][]float64, y []int, idx []int, cfg treeConfig, rnd *rand.Rand) *tree {
	return &tree{Root: buildNode(x, y, idx, 0, cfg, rnd)}
}

func buildNode(x [][]float64, y []int, idx []int, depth int, cfg treeConfig, rnd *rand.Rand) *node {
	counts := make([]int, cfg.nClasses)
	for _, i := range idx {
		counts[y[i]]++
	}

	n := &node{N: len(idx), Pred: argmaxCounts(counts)}

	if isPure(counts) || len(idx) < cfg.minSamplesSplit {
		n.Leaf = true
		return n
	}
	if cfg.maxDepth > 0 && depth >= cfg.maxDepth {
		n.Leaf = true
		return n
	}

	feature, threshold, leftIdx, rightIdx, ok := bestSplit(x, y, idx, counts, cfg, rnd)
	if !ok {
		n.Leaf = true
		return n
	}

	n.Feature = feature
	n.Threshold = threshold
	n.Left = buildNode(x, y, leftIdx, depth+1, cfg, rnd)
	n.Right = buildNode(x, y, rightIdx, depth+1, cfg, rnd)
	return n
}

// bestSplit searches the sampled features for the gini-optimal split.
func bestSplit(x [][]float64, y []int, idx []int, counts []int, cfg treeConfig, rnd *rand.Rand) (feature int, threshold float64, leftIdx, rightIdx []int, ok bool) {
	p := len(x[0])
	features := sampleFeatures(p, cfg.maxFeatures, rnd)

	parent := gini(counts)
	total := float64(len(idx))
	bestGain := 0.0

	values := make([]float64, len(idx))
	for _, f := range features {
		for k, i := range idx {
			values[k] = x[i][f]
		}

		for _, thr := range cfg.splitter.Thresholds(values) {
			leftCounts := make([]int, cfg.nClasses)
			nLeft := 0
			for _, i := range idx {
				if x[i][f] <= thr {
					leftCounts[y[i]]++
					nLeft++
				}
			}
			if nLeft == 0 || nLeft == len(idx) {
				continue
			}

			rightCounts := make([]int, cfg.nClasses)
			for c := range counts {
				rightCounts[c] = counts[c] - leftCounts[c]
			}

			weighted := float64(nLeft)/total*gini(leftCounts) +
				float64(len(idx)-nLeft)/total*gini(rightCounts)
			if gain := parent - weighted; gain > bestGain {
				bestGain = gain
				feature = f
				threshold = thr
				ok = true
			}
		}
	}

	if !ok {
		return 0, 0, nil, nil, false
	}

	for _, i := range idx {
		if x[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	return feature, threshold, leftIdx, rightIdx, true
}

// sampleFeatures returns k distinct feature indices drawn without
// replacement; k >= p returns all features in order (deterministic).
func sampleFeatures(p, k int, rnd *rand.Rand) []int {
	features := make([]int, p)
	for j := range features {
		features[j] = j
	}
	if k <= 0 || k >= p {
		return features
	}
	for i := 0; i < k; i++ {
		j := i + rnd.Intn(p-i)
		features[i], features[j] = features[j], features[i]
	}
	return features[:k]
}

func (t *tree) predict(row []float64) int {
	n := t.Root
	for !n.Leaf {
		if row[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Pred
}

// ---------------------------
// Impurity helpers
// ---------------------------

func gini(counts []int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	res := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		res -= p * p
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func argmaxCounts(counts []int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}
