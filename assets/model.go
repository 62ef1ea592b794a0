// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets

import (
	"fmt"

	"github.com/devblok/korures/gfx"
	"github.com/devblok/korures/model"
	"github.com/devblok/korures/resource"
	"github.com/devblok/korures/util/params"
	"github.com/devblok/korures/vfs"
)

// Model is a COLLADA mesh uploaded as a vertex buffer.
type Model struct {
	resource.Lifecycle

	fs      vfs.FileSystem
	backend gfx.Backend
	path    string

	mesh   *model.Mesh
	handle gfx.Handle
}

func (p *Provider) newModel(key string) (*Model, error) {
	path, err := params.Require(key, ParamPath)
	if err != nil {
		return nil, err
	}
	return &Model{fs: p.fs, backend: p.backend, path: path}, nil
}

// Preload imports the mesh.
func (m *Model) Preload(r resource.Resolver) error {
	in, err := m.fs.OpenInput(m.path)
	if err != nil {
		return resource.AssetOpenError(m.path, err)
	}
	defer in.Close()
	mesh, err := model.ImportCollada(in)
	if err != nil {
		return resource.AssetCorruptedError(m.path, "collada", err)
	}
	m.mesh = mesh
	return nil
}

// Realize uploads the vertices.
func (m *Model) Realize(r resource.Resolver) error {
	h, err := m.backend.CreateVertexBuffer(m.mesh.Bytes(), model.VertexStride)
	if err != nil {
		return err
	}
	m.handle = h
	return nil
}

// Unrealize releases the vertex buffer.
func (m *Model) Unrealize(r resource.Resolver) error {
	return release(m.backend, &m.handle)
}

// Unload drops the mesh.
func (m *Model) Unload(r resource.Resolver) error {
	m.mesh = nil
	return nil
}

// Mesh returns the imported mesh, nil unless preloaded.
func (m *Model) Mesh() *model.Mesh { return m.mesh }

// Handle returns the vertex buffer, zero unless realized.
func (m *Model) Handle() gfx.Handle { return m.handle }

// MemoryUsage implements resource.MemoryUser
func (m *Model) MemoryUsage() uint64 {
	if m.mesh == nil {
		return 0
	}
	return m.mesh.MemoryUsage()
}

// CharacterModel is a model drawn with a texture. It keeps both of
// them at least as far along as itself.
type CharacterModel struct {
	resource.Lifecycle

	modelPath   string
	texturePath string

	model   *Model
	texture TextureSource
}

func (p *Provider) newCharacterModel(key string) (*CharacterModel, error) {
	modelPath, err := params.Require(key, ParamPath)
	if err != nil {
		return nil, err
	}
	texturePath, err := params.Require(key, ParamTexture)
	if err != nil {
		return nil, err
	}
	return &CharacterModel{modelPath: modelPath, texturePath: texturePath}, nil
}

// BindDependencies looks up the model and the texture.
func (c *CharacterModel) BindDependencies(r resource.Resolver) error {
	res, err := r.GetResource(ClassModel, ModelKey(c.modelPath), resource.Required, 0)
	if err != nil {
		return err
	}
	var ok bool
	if c.model, ok = res.(*Model); !ok {
		return fmt.Errorf("model %q is a %T", c.modelPath, res)
	}

	res, err = r.GetResource(ClassTexture, params.Path(c.texturePath), resource.Required, 0)
	if err != nil {
		return err
	}
	if c.texture, ok = res.(TextureSource); !ok {
		return fmt.Errorf("texture %q is a %T", c.texturePath, res)
	}
	return nil
}

// Preload brings both dependencies to Preloaded.
func (c *CharacterModel) Preload(r resource.Resolver) error {
	return c.require(r, resource.Preloaded)
}

// Realize brings both dependencies to Realized.
func (c *CharacterModel) Realize(r resource.Resolver) error {
	return c.require(r, resource.Realized)
}

func (c *CharacterModel) require(r resource.Resolver, level resource.State) error {
	if err := r.Require(c.model, level); err != nil {
		return err
	}
	return r.Require(c.texture, level)
}

// Unrealize implements resource.Resource
func (c *CharacterModel) Unrealize(r resource.Resolver) error {
	return nil
}

// Unload implements resource.Resource
func (c *CharacterModel) Unload(r resource.Resolver) error {
	return nil
}

// Model returns the bound model, nil until dependencies are bound.
func (c *CharacterModel) Model() *Model { return c.model }

// Texture returns the bound texture, nil until dependencies are bound.
func (c *CharacterModel) Texture() TextureSource { return c.texture }
