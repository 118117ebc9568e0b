package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"bolddenoise/internal/models"
)

// Voxel is an integer grid position together with the signal column that
// holds its time series.
type Voxel struct {
	I, J, K int
	Column  int
}

// Compare implements the kdtree.Comparable interface
func (v Voxel) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(Voxel)
	switch d {
	case 0:
		return float64(v.I - q.I)
	case 1:
		return float64(v.J - q.J)
	case 2:
		return float64(v.K - q.K)
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (v Voxel) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two voxels
func (v Voxel) Distance(c kdtree.Comparable) float64 {
	q := c.(Voxel)
	di, dj, dk := v.I-q.I, v.J-q.J, v.K-q.K
	return float64(di*di + dj*dj + dk*dk)
}

// Voxels is a collection of Voxel that satisfies kdtree.Interface
type Voxels []Voxel

func (p Voxels) Index(i int) kdtree.Comparable          { return p[i] }
func (p Voxels) Len() int                               { return len(p) }
func (p Voxels) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p Voxels) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(voxelPlane{Voxels: p, Dim: d}, kdtree.MedianOfRandoms(voxelPlane{Voxels: p, Dim: d}, 100))
}

// voxelPlane implements sort.Interface and kdtree.SortSlicer for Voxels
type voxelPlane struct {
	Voxels
	kdtree.Dim
}

func (p voxelPlane) Less(i, j int) bool {
	return p.Voxels[i].Compare(p.Voxels[j], p.Dim) < 0
}

func (p voxelPlane) Slice(start, end int) kdtree.SortSlicer {
	return voxelPlane{Voxels: p.Voxels[start:end], Dim: p.Dim}
}

func (p voxelPlane) Swap(i, j int) {
	p.Voxels[i], p.Voxels[j] = p.Voxels[j], p.Voxels[i]
}

// neighbourhoodRadius2 is the squared distance to the far corner of a
// 3×3×3 block, so a radius search returns the 27-voxel neighbourhood.
const neighbourhoodRadius2 = 3

// VolumeReHo computes ReHo for every voxel of a T×N signal as Kendall's W
// over the voxel and the in-mask voxels of its 3×3×3 neighbourhood.
// coords[n] is the grid position of column n.
func VolumeReHo(signal mat.Matrix, coords [][3]int) ([]float64, error) {
	_, n := signal.Dims()
	if len(coords) != n {
		return nil, fmt.Errorf("%d voxel coordinates for %d columns: %w", len(coords), n, models.ErrDataShape)
	}
	voxels := make(Voxels, n)
	for c, p := range coords {
		voxels[c] = Voxel{I: p[0], J: p[1], K: p[2], Column: c}
	}
	query := append(Voxels(nil), voxels...)
	tree := kdtree.New(voxels, true)

	cols := columns(signal)
	reho := make([]float64, n)
	for _, q := range query {
		keeper := kdtree.NewDistKeeper(neighbourhoodRadius2)
		tree.NearestSet(keeper, q)
		group := make([][]float64, 0, 27)
		for _, item := range keeper.Heap {
			if item.Comparable == nil {
				continue
			}
			group = append(group, cols[item.Comparable.(Voxel).Column])
		}
		reho[q.Column] = KendallW(group)
	}
	return reho, nil
}
