package anomaly

import (
	"math"
	"math/rand"
	"sort"
)

// Isolation forest parameters. The seed is fixed so two analyses over the
// same history flag the same entries.
const (
	numTrees        = 100
	subsampleSize   = 256
	contamination   = 0.10
	randomSeed      = 42
	eulerMascheroni = 0.5772156649
)

// forest is a fitted isolation forest together with the anomaly-score
// threshold derived from the training data's contamination quantile.
type forest struct {
	trees     []*treeNode
	sampleLen int
	threshold float64
}

// treeNode is one node of an isolation tree. Leaves carry the number of
// training points that reached them; internal nodes split one feature at a
// random value.
type treeNode struct {
	feature     int
	split       float64
	left, right *treeNode
	size        int
}

func (n *treeNode) leaf() bool { return n.left == nil }

// fitForest builds the forest over the training vectors and fixes the score
// threshold so that roughly a contamination-sized fraction of the training
// points scores above it.
func fitForest(data []FeatureVector, rng *rand.Rand) *forest {
	points := make([][3]float64, len(data))
	for i, fv := range data {
		points[i] = [3]float64{fv.Hour, fv.Weekday, fv.Weight}
	}

	sampleLen := len(points)
	if sampleLen > subsampleSize {
		sampleLen = subsampleSize
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleLen)))) + 1

	f := &forest{
		trees:     make([]*treeNode, numTrees),
		sampleLen: sampleLen,
	}
	for i := range f.trees {
		sample := subsample(points, sampleLen, rng)
		f.trees[i] = buildTree(sample, 0, maxDepth, rng)
	}

	// Training scores in ascending order; the threshold sits at the
	// (1 - contamination) quantile. Points scoring strictly above it are
	// anomalous, so a constant training set flags nothing.
	scores := make([]float64, len(points))
	for i, p := range points {
		scores[i] = f.score(p)
	}
	sort.Float64s(scores)
	idx := int(math.Ceil(float64(len(scores))*(1-contamination))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	f.threshold = scores[idx]
	return f
}

// anomalous reports whether a vector's isolation score exceeds the fitted
// threshold.
func (f *forest) anomalous(fv FeatureVector) bool {
	return f.score([3]float64{fv.Hour, fv.Weekday, fv.Weight}) > f.threshold
}

// score is the standard isolation score s(x) = 2^(-E[h(x)]/c(n)): values
// near 1 isolate quickly and are likely outliers.
func (f *forest) score(p [3]float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(t, p, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/avgPathLength(f.sampleLen))
}

func subsample(points [][3]float64, n int, rng *rand.Rand) [][3]float64 {
	if n >= len(points) {
		return points
	}
	perm := rng.Perm(len(points))
	sample := make([][3]float64, n)
	for i := 0; i < n; i++ {
		sample[i] = points[perm[i]]
	}
	return sample
}

func buildTree(points [][3]float64, depth, maxDepth int, rng *rand.Rand) *treeNode {
	if depth >= maxDepth || len(points) <= 1 {
		return &treeNode{size: len(points)}
	}

	// Only features that still vary in this partition can split it.
	var splittable []int
	for q := 0; q < 3; q++ {
		lo, hi := minMax(points, q)
		if hi > lo {
			splittable = append(splittable, q)
		}
	}
	if len(splittable) == 0 {
		return &treeNode{size: len(points)}
	}

	feature := splittable[rng.Intn(len(splittable))]
	lo, hi := minMax(points, feature)
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][3]float64
	for _, p := range points {
		if p[feature] < split {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}

	return &treeNode{
		feature: feature,
		split:   split,
		left:    buildTree(left, depth+1, maxDepth, rng),
		right:   buildTree(right, depth+1, maxDepth, rng),
	}
}

func pathLength(n *treeNode, p [3]float64, depth int) float64 {
	if n.leaf() {
		return float64(depth) + avgPathLength(n.size)
	}
	if p[n.feature] < n.split {
		return pathLength(n.left, p, depth+1)
	}
	return pathLength(n.right, p, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points, used to normalize leaf depths.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		nf := float64(n)
		return 2*(math.Log(nf-1)+eulerMascheroni) - 2*(nf-1)/nf
	}
}

func minMax(points [][3]float64, q int) (lo, hi float64) {
	lo, hi = points[0][q], points[0][q]
	for _, p := range points[1:] {
		if p[q] < lo {
			lo = p[q]
		}
		if p[q] > hi {
			hi = p[q]
		}
	}
	return lo, hi
}
