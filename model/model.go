// Package model holds mesh data in the layout the renderer uploads.
package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Vertex is a model vertex
type Vertex struct {
	Pos    glm.Vec3
	Normal glm.Vec3
	Color  glm.Vec4
}

// VertexStride is the size of one vertex in a vertex buffer.
const VertexStride = int(unsafe.Sizeof(Vertex{}))

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

// MVP returns the combined transform.
func (u Uniform) MVP() glm.Mat4 {
	return u.Projection.Mul4(u.View).Mul4(u.Model)
}

// Bounds is an axis aligned bounding box.
type Bounds struct {
	Min, Max glm.Vec3
}

// Size returns the extent along each axis.
func (b Bounds) Size() glm.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the middle of the box.
func (b Bounds) Center() glm.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Mesh is a list of triangles, three vertices each.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Bounds   Bounds
}

// NewMesh computes the bounds of vertices.
func NewMesh(name string, vertices []Vertex) *Mesh {
	m := &Mesh{Name: name, Vertices: vertices}
	if len(vertices) == 0 {
		return m
	}
	m.Bounds = Bounds{Min: vertices[0].Pos, Max: vertices[0].Pos}
	for _, v := range vertices[1:] {
		for i := 0; i < 3; i++ {
			m.Bounds.Min[i] = min(m.Bounds.Min[i], v.Pos[i])
			m.Bounds.Max[i] = max(m.Bounds.Max[i], v.Pos[i])
		}
	}
	return m
}

// Triangles returns the number of triangles.
func (m *Mesh) Triangles() int {
	return len(m.Vertices) / 3
}

// Bytes packs the vertices little endian, VertexStride bytes each.
func (m *Mesh) Bytes() []byte {
	buf := make([]byte, 0, len(m.Vertices)*VertexStride)
	for _, v := range m.Vertices {
		for _, f := range v.Pos {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
		for _, f := range v.Normal {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
		for _, f := range v.Color {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return buf
}

// MemoryUsage returns the size of the vertex data.
func (m *Mesh) MemoryUsage() uint64 {
	return uint64(len(m.Vertices) * VertexStride)
}
