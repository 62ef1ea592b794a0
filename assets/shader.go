// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/devblok/korures/gfx"
	"github.com/devblok/korures/resource"
	"github.com/devblok/korures/util/params"
	"github.com/devblok/korures/vfs"
)

const (
	shaderSuffix = ".spv"
	spirvMagic   = 0x07230203

	// magic, version, generator, bound, schema
	spirvHeaderWords = 5
)

// StageFromPath infers the stage from names like "name.vert.spv".
// The name must have exactly two dots: the shader name, the stage
// and the compiled suffix.
func StageFromPath(p string) (gfx.ShaderStage, bool) {
	base := path.Base(p)
	if !strings.HasSuffix(base, shaderSuffix) {
		return gfx.StageVertex, false
	}
	nodes := strings.Split(strings.TrimSuffix(base, shaderSuffix), ".")
	if len(nodes) != 2 {
		return gfx.StageVertex, false
	}
	stage, err := gfx.ParseShaderStage(nodes[1])
	return stage, err == nil
}

// ShaderKeys walks dir for compiled shaders and returns their keys,
// with paths relative to dir, sorted.
func ShaderKeys(dir string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := StageFromPath(d.Name()); !ok {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		keys = append(keys, ShaderKey(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Shader is a compiled SPIR-V module.
type Shader struct {
	resource.Lifecycle

	fs      vfs.FileSystem
	backend gfx.Backend
	path    string
	stage   gfx.ShaderStage

	code   []byte
	handle gfx.Handle
}

func (p *Provider) newShader(key string) (*Shader, error) {
	path, err := params.Require(key, ParamPath)
	if err != nil {
		return nil, err
	}
	var stage gfx.ShaderStage
	if name, ok := params.Get(key, ParamStage); ok {
		if stage, err = gfx.ParseShaderStage(name); err != nil {
			return nil, err
		}
	} else if stage, ok = StageFromPath(path); !ok {
		return nil, fmt.Errorf("no stage for %q: %w", path, params.ErrMissing)
	}
	return &Shader{fs: p.fs, backend: p.backend, path: path, stage: stage}, nil
}

// Preload reads and checks the SPIR-V code.
func (s *Shader) Preload(r resource.Resolver) error {
	code, err := readAsset(s.fs, s.path)
	if err != nil {
		return err
	}
	if len(code)%4 != 0 || len(code) < 4*spirvHeaderWords {
		return resource.AssetCorruptedError(s.path, fmt.Sprintf("%d bytes is not SPIR-V", len(code)), nil)
	}
	if magic := binary.LittleEndian.Uint32(code); magic != spirvMagic {
		return resource.AssetCorruptedError(s.path, fmt.Sprintf("bad magic %#08x", magic), nil)
	}
	s.code = code
	return nil
}

// Realize creates the shader module.
func (s *Shader) Realize(r resource.Resolver) error {
	h, err := s.backend.CreateShaderModule(s.stage, s.code)
	if err != nil {
		return err
	}
	s.handle = h
	return nil
}

// Unrealize releases the module.
func (s *Shader) Unrealize(r resource.Resolver) error {
	return release(s.backend, &s.handle)
}

// Unload drops the code.
func (s *Shader) Unload(r resource.Resolver) error {
	s.code = nil
	return nil
}

// Stage returns the pipeline stage.
func (s *Shader) Stage() gfx.ShaderStage { return s.stage }

// Handle returns the module, zero unless realized.
func (s *Shader) Handle() gfx.Handle { return s.handle }

// MemoryUsage implements resource.MemoryUser
func (s *Shader) MemoryUsage() uint64 { return uint64(len(s.code)) }

// ShaderProgram links a vertex and a fragment shader.
type ShaderProgram struct {
	resource.Lifecycle

	backend     gfx.Backend
	vertexKey   string
	fragmentKey string

	vertex, fragment *Shader
	handle           gfx.Handle
}

func (p *Provider) newShaderProgram(key string) (*ShaderProgram, error) {
	vertex, err := params.Require(key, ParamVertex)
	if err != nil {
		return nil, err
	}
	fragment, err := params.Require(key, ParamFragment)
	if err != nil {
		return nil, err
	}
	return &ShaderProgram{backend: p.backend, vertexKey: vertex, fragmentKey: fragment}, nil
}

// BindDependencies looks up both shaders.
func (sp *ShaderProgram) BindDependencies(r resource.Resolver) error {
	var err error
	if sp.vertex, err = bindShader(r, sp.vertexKey, gfx.StageVertex); err != nil {
		return err
	}
	sp.fragment, err = bindShader(r, sp.fragmentKey, gfx.StageFragment)
	return err
}

func bindShader(r resource.Resolver, key string, stage gfx.ShaderStage) (*Shader, error) {
	res, err := r.GetResource(ClassShader, key, resource.Required, 0)
	if err != nil {
		return nil, err
	}
	s, ok := res.(*Shader)
	if !ok {
		return nil, fmt.Errorf("shader %q is a %T", key, res)
	}
	if s.stage != stage {
		return nil, fmt.Errorf("shader %q is a %s shader, want %s", key, s.stage, stage)
	}
	return s, nil
}

// Preload implements resource.Resource
func (sp *ShaderProgram) Preload(r resource.Resolver) error {
	return nil
}

// Realize links the program, realizing both shaders first.
func (sp *ShaderProgram) Realize(r resource.Resolver) error {
	for _, s := range []*Shader{sp.vertex, sp.fragment} {
		if err := r.Require(s, resource.Realized); err != nil {
			return err
		}
	}
	h, err := sp.backend.CreateProgram(sp.vertex.handle, sp.fragment.handle)
	if err != nil {
		return err
	}
	sp.handle = h
	return nil
}

// Unrealize releases the program. The shaders stay as they are.
func (sp *ShaderProgram) Unrealize(r resource.Resolver) error {
	return release(sp.backend, &sp.handle)
}

// Unload implements resource.Resource
func (sp *ShaderProgram) Unload(r resource.Resolver) error {
	return nil
}

// Handle returns the program, zero unless realized.
func (sp *ShaderProgram) Handle() gfx.Handle { return sp.handle }
