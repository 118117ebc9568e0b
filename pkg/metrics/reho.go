package metrics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

// KendallW returns Kendall's coefficient of concordance between the given
// time series, all of length n. Tied values receive their average rank.
// Fewer than two series, or fewer than two timepoints, give 0.
func KendallW(series [][]float64) float64 {
	k := len(series)
	if k < 2 {
		return 0
	}
	n := len(series[0])
	if n < 2 {
		return 0
	}
	sums := make([]float64, n)
	ranks := make([]float64, n)
	for _, x := range series {
		rankInto(ranks, x)
		for i, r := range ranks {
			sums[i] += r
		}
	}
	mean := float64(k) * float64(n+1) / 2
	var ss float64
	for _, r := range sums {
		d := r - mean
		ss += d * d
	}
	fk, fn := float64(k), float64(n)
	return 12 * ss / (fk * fk * (fn*fn*fn - fn))
}

// rankInto writes 1-based ranks of x into dst, averaging ties.
func rankInto(dst, x []float64) {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && x[idx[j]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for _, p := range idx[i:j] {
			dst[p] = avg
		}
		i = j
	}
}

// Mesh is a triangulated surface. Faces index vertices, which are the
// columns of the signal matrix.
type Mesh struct {
	Vertices int
	Faces    [][3]int
}

// Graph returns the vertex adjacency graph of the mesh.
func (m Mesh) Graph() (*simple.UndirectedGraph, error) {
	g := simple.NewUndirectedGraph()
	for v := 0; v < m.Vertices; v++ {
		g.AddNode(simple.Node(v))
	}
	for fi, f := range m.Faces {
		for _, v := range f {
			if v < 0 || v >= m.Vertices {
				return nil, fmt.Errorf("face %d references vertex %d of %d: %w", fi, v, m.Vertices, models.ErrDataShape)
			}
		}
		for e := 0; e < 3; e++ {
			a, b := f[e], f[(e+1)%3]
			if a == b {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(a), simple.Node(b)))
		}
	}
	return g, nil
}

// SurfaceReHo computes ReHo for every vertex of a T×V signal as Kendall's W
// over the vertex and its mesh neighbours.
func SurfaceReHo(signal mat.Matrix, mesh Mesh) ([]float64, error) {
	_, v := signal.Dims()
	if v != mesh.Vertices {
		return nil, fmt.Errorf("signal has %d vertices, mesh %d: %w", v, mesh.Vertices, models.ErrDataShape)
	}
	g, err := mesh.Graph()
	if err != nil {
		return nil, err
	}
	cols := columns(signal)
	reho := make([]float64, v)
	for id := 0; id < v; id++ {
		group := [][]float64{cols[id]}
		nbrs := g.From(int64(id))
		for nbrs.Next() {
			group = append(group, cols[nbrs.Node().ID()])
		}
		reho[id] = KendallW(group)
	}
	return reho, nil
}

func columns(m mat.Matrix) [][]float64 {
	_, c := m.Dims()
	out := make([][]float64, c)
	for j := range out {
		out[j] = mat.Col(nil, j, m)
	}
	return out
}
