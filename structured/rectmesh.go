// Package structured provides a uniform rectangular mesh and a
// map-backed field state implementing the remap collaborator
// interfaces. It exists so the pipeline can run end-to-end without an
// external simulation code; production callers wrap their own mesh and
// state the same way.
package structured

import (
	"fmt"
	"math"

	"github.com/notargets/remap"
	"github.com/notargets/remap/geometry"
)

// RectMesh is a uniform NX x NY rectangular mesh on an axis-aligned
// domain. Cell entities are the rectangles themselves; node entities
// own dual control volumes (the cell-centered rectangle around each
// node, clipped to the domain).
type RectMesh struct {
	NX, NY int
	Xmin   float64
	Ymin   float64
	Xmax   float64
	Ymax   float64

	dx, dy float64
}

// NewRectMesh validates the grid dimensions and domain extents.
func NewRectMesh(nx, ny int, xmin, ymin, xmax, ymax float64) (*RectMesh, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("structured: invalid grid %dx%d", nx, ny)
	}
	if xmax <= xmin || ymax <= ymin {
		return nil, fmt.Errorf("structured: invalid domain [%g,%g]x[%g,%g]", xmin, xmax, ymin, ymax)
	}
	return &RectMesh{
		NX: nx, NY: ny,
		Xmin: xmin, Ymin: ymin, Xmax: xmax, Ymax: ymax,
		dx: (xmax - xmin) / float64(nx),
		dy: (ymax - ymin) / float64(ny),
	}, nil
}

// UnitSquare returns an nx x ny mesh on [0,1]x[0,1].
func UnitSquare(nx, ny int) *RectMesh {
	m, _ := NewRectMesh(nx, ny, 0, 0, 1, 1)
	return m
}

// Dim returns 2.
func (m *RectMesh) Dim() int { return 2 }

// NumEntities returns the cell or node count.
func (m *RectMesh) NumEntities(kind remap.EntityKind) int {
	if kind == remap.Cell {
		return m.NX * m.NY
	}
	return (m.NX + 1) * (m.NY + 1)
}

func (m *RectMesh) cellIJ(id int) (int, int) { return id % m.NX, id / m.NX }
func (m *RectMesh) nodeIJ(id int) (int, int) { return id % (m.NX + 1), id / (m.NX + 1) }

// entityBox returns the control-volume extents.
func (m *RectMesh) entityBox(kind remap.EntityKind, id int) (x0, y0, x1, y1 float64) {
	if kind == remap.Cell {
		i, j := m.cellIJ(id)
		x0 = m.Xmin + float64(i)*m.dx
		y0 = m.Ymin + float64(j)*m.dy
		return x0, y0, x0 + m.dx, y0 + m.dy
	}
	i, j := m.nodeIJ(id)
	nx := m.Xmin + float64(i)*m.dx
	ny := m.Ymin + float64(j)*m.dy
	x0 = math.Max(m.Xmin, nx-m.dx/2)
	y0 = math.Max(m.Ymin, ny-m.dy/2)
	x1 = math.Min(m.Xmax, nx+m.dx/2)
	y1 = math.Min(m.Ymax, ny+m.dy/2)
	return x0, y0, x1, y1
}

// EntityRing returns the counterclockwise vertex ring of the control
// volume.
func (m *RectMesh) EntityRing(kind remap.EntityKind, id int) geometry.Polygon {
	x0, y0, x1, y1 := m.entityBox(kind, id)
	return geometry.Polygon{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

// EntityVolume returns the control-volume area.
func (m *RectMesh) EntityVolume(kind remap.EntityKind, id int) float64 {
	x0, y0, x1, y1 := m.entityBox(kind, id)
	return (x1 - x0) * (y1 - y0)
}

// EntityCentroid returns the control-volume centroid.
func (m *RectMesh) EntityCentroid(kind remap.EntityKind, id int) geometry.Point {
	x0, y0, x1, y1 := m.entityBox(kind, id)
	return geometry.Point{(x0 + x1) / 2, (y0 + y1) / 2}
}

// EntityNeighbors returns the edge-adjacent entities in ascending id
// order.
func (m *RectMesh) EntityNeighbors(kind remap.EntityKind, id int) []int {
	var i, j, nx, ny int
	if kind == remap.Cell {
		i, j = m.cellIJ(id)
		nx, ny = m.NX, m.NY
	} else {
		i, j = m.nodeIJ(id)
		nx, ny = m.NX+1, m.NY+1
	}
	var out []int
	if j > 0 {
		out = append(out, id-nx)
	}
	if i > 0 {
		out = append(out, id-1)
	}
	if i < nx-1 {
		out = append(out, id+1)
	}
	if j < ny-1 {
		out = append(out, id+nx)
	}
	return out
}

// SharedBoundary returns the length of the edge shared by two adjacent
// control volumes, zero if they are not edge-adjacent.
func (m *RectMesh) SharedBoundary(kind remap.EntityKind, a, b int) float64 {
	ax0, ay0, ax1, ay1 := m.entityBox(kind, a)
	bx0, by0, bx1, by1 := m.entityBox(kind, b)
	ox := math.Min(ax1, bx1) - math.Max(ax0, bx0)
	oy := math.Min(ay1, by1) - math.Max(ay0, by0)
	const eps = 1e-12
	if math.Abs(ox) <= eps && oy > 0 {
		return oy
	}
	if math.Abs(oy) <= eps && ox > 0 {
		return ox
	}
	return 0
}

// OnDomainBoundary reports whether the entity touches the domain edge.
func (m *RectMesh) OnDomainBoundary(kind remap.EntityKind, id int) bool {
	if kind == remap.Cell {
		i, j := m.cellIJ(id)
		return i == 0 || j == 0 || i == m.NX-1 || j == m.NY-1
	}
	i, j := m.nodeIJ(id)
	return i == 0 || j == 0 || i == m.NX || j == m.NY
}

// EvalAtCentroids samples f at every control-volume centroid, a
// convenience for building test fields.
func (m *RectMesh) EvalAtCentroids(kind remap.EntityKind, f func(x, y float64) float64) []float64 {
	n := m.NumEntities(kind)
	out := make([]float64, n)
	for id := 0; id < n; id++ {
		c := m.EntityCentroid(kind, id)
		out[id] = f(c[0], c[1])
	}
	return out
}
