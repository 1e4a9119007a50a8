// Package cluster assigns embedding vectors to groups.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// ErrDimensionMismatch is returned when input vectors differ in length.
var ErrDimensionMismatch = errors.New("vectors have different dimensions")

// Clusterer assigns every vector a label in [0, k).
type Clusterer interface {
	Cluster(vectors [][]float32, k int) ([]int, error)
}

// KMeans is Lloyd's algorithm with k-means++ seeding. A fixed Seed makes
// labels reproducible for identical input.
type KMeans struct {
	Seed          int64
	NInit         int
	MaxIterations int
	Tolerance     float64
}

// NewKMeans returns a KMeans with the defaults used by the explorer.
func NewKMeans(seed int64) KMeans {
	return KMeans{Seed: seed, NInit: 4, MaxIterations: 300, Tolerance: 1e-4}
}

// Cluster partitions vectors into at most k groups. When k is at least the
// number of vectors, each vector gets its own label.
func (km KMeans) Cluster(vectors [][]float32, k int) ([]int, error) {
	if k < 1 {
		return nil, fmt.Errorf("cluster count must be at least 1, got %d", k)
	}
	n := len(vectors)
	if n == 0 {
		return []int{}, nil
	}

	points := make([][]float64, n)
	for i, v := range vectors {
		if len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("vector %d: %w", i, ErrDimensionMismatch)
		}
		points[i] = make([]float64, len(v))
		for j, x := range v {
			points[i][j] = float64(x)
		}
	}

	if k >= n {
		labels := make([]int, n)
		for i := range labels {
			labels[i] = i
		}
		return labels, nil
	}

	runs := km.NInit
	if runs < 1 {
		runs = 1
	}
	rng := rand.New(rand.NewSource(km.Seed))

	var best []int
	bestInertia := math.Inf(1)
	for r := 0; r < runs; r++ {
		labels, inertia := km.lloyd(points, k, rng)
		if inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}
	return best, nil
}

func (km KMeans) lloyd(points [][]float64, k int, rng *rand.Rand) ([]int, float64) {
	maxIter := km.MaxIterations
	if maxIter < 1 {
		maxIter = 300
	}

	centroids := seedPlusPlus(points, k, rng)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	dim := len(points[0])
	for iter := 0; iter < maxIter; iter++ {
		changed := assign(points, centroids, labels)

		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(next[labels[i]], p)
			counts[labels[i]]++
		}
		if reseedEmpty(points, centroids, next, counts, labels) {
			changed = true
		}
		for c := range next {
			floats.Scale(1/float64(counts[c]), next[c])
		}

		shift := 0.0
		for c := range centroids {
			shift += sqDist(centroids[c], next[c])
		}
		centroids = next
		if !changed || shift <= km.Tolerance*km.Tolerance {
			break
		}
	}

	assign(points, centroids, labels)
	inertia := 0.0
	for i, p := range points {
		inertia += sqDist(p, centroids[labels[i]])
	}
	return labels, inertia
}

// seedPlusPlus picks k initial centroids, each new one sampled with
// probability proportional to its squared distance from the nearest
// centroid chosen so far.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	chosen := make([]bool, n)
	centroids := make([][]float64, 0, k)

	first := rng.Intn(n)
	chosen[first] = true
	centroids = append(centroids, append([]float64(nil), points[first]...))

	dist := make([]float64, n)
	for i, p := range points {
		dist[i] = sqDist(p, centroids[0])
	}

	for len(centroids) < k {
		total := floats.Sum(dist)
		pick := -1
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 && d > 0 {
					pick = i
					break
				}
			}
		}
		if pick == -1 {
			// every remaining point coincides with a centroid
			for i := range points {
				if !chosen[i] {
					pick = i
					break
				}
			}
		}
		chosen[pick] = true
		c := append([]float64(nil), points[pick]...)
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

// assign moves each point to its nearest centroid (lowest index on ties)
// and reports whether any label changed.
func assign(points, centroids [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := sqDist(p, centroid); d < bestDist {
				best, bestDist = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// reseedEmpty gives every empty cluster the point farthest from its
// centroid, taken only from clusters that keep at least one member. sums and
// counts are updated in place. Reports whether any label moved.
func reseedEmpty(points, centroids, sums [][]float64, counts, labels []int) bool {
	moved := false
	for c := range sums {
		if counts[c] > 0 {
			continue
		}
		far, max := -1, -1.0
		for i, p := range points {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := sqDist(p, centroids[labels[i]]); d > max {
				far, max = i, d
			}
		}
		if far < 0 {
			break
		}
		old := labels[far]
		floats.Sub(sums[old], points[far])
		counts[old]--
		copy(sums[c], points[far])
		counts[c] = 1
		labels[far] = c
		moved = true
	}
	return moved
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
