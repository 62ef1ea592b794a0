package model

import (
	"fmt"
	"io"

	"github.com/devblok/korures/util/collada"
	glm "github.com/go-gl/mathgl/mgl32"
)

// DefaultColor is given to vertices, Collada colors are not imported.
var DefaultColor = glm.Vec4{1.0, 1.0, 1.0, 1.0}

// ImportCollada reads the first geometry of a Collada document.
func ImportCollada(r io.Reader) (*Mesh, error) {
	doc, err := collada.Decode(r)
	if err != nil {
		return nil, err
	}
	return ImportColladaDocument(doc)
}

// ImportColladaDocument converts an already decoded document.
func ImportColladaDocument(doc *collada.Collada) (*Mesh, error) {
	mesh, err := doc.FirstMesh()
	if err != nil {
		return nil, err
	}
	positions, err := mesh.FindSource("positions")
	if err != nil {
		return nil, err
	}
	tris := &mesh.Triangles
	vertexIn, ok := tris.Input("VERTEX")
	if !ok {
		return nil, fmt.Errorf("collada: triangles without VERTEX input")
	}

	// normals are optional
	var normals []float32
	normalIn, hasNormals := tris.Input("NORMAL")
	if hasNormals {
		src, err := mesh.FindSource("normals")
		if err != nil {
			return nil, err
		}
		normals = src.Floats.Data
	}

	stride := tris.Stride()
	if stride == 0 || len(tris.Index)%stride != 0 {
		return nil, fmt.Errorf("collada: %d indices do not divide into stride %d", len(tris.Index), stride)
	}
	count := len(tris.Index) / stride
	if count%3 != 0 {
		return nil, fmt.Errorf("collada: %d vertices do not form triangles", count)
	}

	vertices := make([]Vertex, 0, count)
	for idx := 0; idx < count; idx++ {
		indices := tris.Index[stride*idx : stride*idx+stride]
		pos, err := vec3At(positions.Floats.Data, indices[vertexIn.Offset])
		if err != nil {
			return nil, err
		}
		vert := Vertex{Pos: pos, Color: DefaultColor}
		if hasNormals {
			if vert.Normal, err = vec3At(normals, indices[normalIn.Offset]); err != nil {
				return nil, err
			}
		}
		vertices = append(vertices, vert)
	}

	var name string
	if len(doc.Geometries) > 0 {
		name = doc.Geometries[0].Name
	}
	return NewMesh(name, vertices), nil
}

func vec3At(data []float32, i int) (glm.Vec3, error) {
	if i < 0 || 3*i+3 > len(data) {
		return glm.Vec3{}, fmt.Errorf("collada: index %d out of range of %d floats", i, len(data))
	}
	return glm.Vec3{data[3*i], data[3*i+1], data[3*i+2]}, nil
}
