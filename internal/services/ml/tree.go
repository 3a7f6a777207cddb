package ml

import (
	"math"
	"sort"
)

// treeNode is one node of a regression tree. Leaves carry the mean
// target of the samples that reached them; internal nodes split on
// Feature <= Threshold. Short json keys keep stored artifacts small.
type treeNode struct {
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Value     float64   `json:"v,omitempty"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
}

func (n *treeNode) isLeaf() bool {
	return n.Left == nil && n.Right == nil
}

func (n *treeNode) predict(row []float64) float64 {
	node := n
	for !node.isLeaf() {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

type splitResult struct {
	feature   int
	threshold float64
	score     float64
	leftIdx   []int
	rightIdx  []int
}

// growTree builds a tree on the sample subset idx. depth counts down;
// 0 means unbounded when the initial call passes a negative budget.
func growTree(features [][]float64, target []float64, idx []int, depth, minSplit, minLeaf int) *treeNode {
	if len(idx) < minSplit || depth == 0 || constantTarget(target, idx) {
		return &treeNode{Value: meanAt(target, idx)}
	}

	best := bestSplit(features, target, idx, minLeaf)
	if best == nil {
		return &treeNode{Value: meanAt(target, idx)}
	}

	return &treeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      growTree(features, target, best.leftIdx, depth-1, minSplit, minLeaf),
		Right:     growTree(features, target, best.rightIdx, depth-1, minSplit, minLeaf),
	}
}

// bestSplit scans every feature and every midpoint between adjacent
// distinct values, minimizing the summed squared error of the two
// children. Splits that would leave a child smaller than minLeaf are
// rejected.
func bestSplit(features [][]float64, target []float64, idx []int, minLeaf int) *splitResult {
	if len(idx) == 0 {
		return nil
	}
	cols := len(features[idx[0]])

	var best *splitResult
	order := make([]int, len(idx))

	for c := 0; c < cols; c++ {
		copy(order, idx)
		col := c
		sort.Slice(order, func(a, b int) bool {
			return features[order[a]][col] < features[order[b]][col]
		})

		// Prefix sums over the sorted order let each candidate split
		// score in O(1).
		n := len(order)
		sum := make([]float64, n+1)
		sumSq := make([]float64, n+1)
		for i, id := range order {
			y := target[id]
			sum[i+1] = sum[i] + y
			sumSq[i+1] = sumSq[i] + y*y
		}

		for i := minLeaf; i <= n-minLeaf; i++ {
			lo := features[order[i-1]][col]
			hi := features[order[i]][col]
			if lo == hi {
				continue
			}
			leftN, rightN := float64(i), float64(n-i)
			leftSSE := sumSq[i] - sum[i]*sum[i]/leftN
			rightSSE := (sumSq[n] - sumSq[i]) - (sum[n]-sum[i])*(sum[n]-sum[i])/rightN
			score := leftSSE + rightSSE
			if best != nil && score >= best.score {
				continue
			}
			threshold := (lo + hi) / 2
			left := make([]int, i)
			right := make([]int, n-i)
			copy(left, order[:i])
			copy(right, order[i:])
			best = &splitResult{
				feature:   col,
				threshold: threshold,
				score:     score,
				leftIdx:   left,
				rightIdx:  right,
			}
		}
	}
	return best
}

func meanAt(target []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += target[i]
	}
	return sum / float64(len(idx))
}

func constantTarget(target []float64, idx []int) bool {
	if len(idx) == 0 {
		return true
	}
	first := target[idx[0]]
	for _, i := range idx[1:] {
		if math.Abs(target[i]-first) > 1e-12 {
			return false
		}
	}
	return true
}
