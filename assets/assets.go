// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package assets implements the engine's concrete resources and the
// provider that creates them from recipe keys.
package assets

import (
	"fmt"
	"strconv"

	"github.com/devblok/korures/gfx"
	"github.com/devblok/korures/resource"
	"github.com/devblok/korures/util/params"
	"github.com/devblok/korures/vfs"
	log "github.com/sirupsen/logrus"
)

// resource classes served by Provider
const (
	ClassTexture        resource.Class = "texture"
	ClassShader         resource.Class = "shader"
	ClassShaderProgram  resource.Class = "shader-program"
	ClassFont           resource.Class = "font"
	ClassModel          resource.Class = "model"
	ClassCharacterModel resource.Class = "character-model"
)

// recipe parameter names
const (
	ParamPath     = "path"
	ParamFilter   = "filter"
	ParamStage    = "stage"
	ParamVertex   = "vertex"
	ParamFragment = "fragment"
	ParamSize     = "size"
	ParamFlags    = "flags"
	ParamTexture  = "texture"
)

// TextureSource is anything that can be sampled as a texture.
type TextureSource interface {
	resource.Resource
	Handle() gfx.Handle
	Size() (width, height int)
}

// Provider creates every asset class. Resources read through fs and
// create device objects through backend.
type Provider struct {
	fs      vfs.FileSystem
	backend gfx.Backend
	logger  log.FieldLogger
}

// NewProvider creates a Provider. A nil logger uses the standard logger.
func NewProvider(fsys vfs.FileSystem, backend gfx.Backend, logger log.FieldLogger) *Provider {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Provider{
		fs:      fsys,
		backend: backend,
		logger:  logger.WithField("provider", "assets"),
	}
}

// Classes returns the classes Create accepts.
func (p *Provider) Classes() []resource.Class {
	return []resource.Class{
		ClassTexture,
		ClassShader,
		ClassShaderProgram,
		ClassFont,
		ClassModel,
		ClassCharacterModel,
	}
}

// Register binds the provider to all of its classes.
func (p *Provider) Register(m *resource.Manager) error {
	return m.RegisterProvider(p.Classes(), p, 0)
}

// ClassName implements resource.ClassNamer
func (p *Provider) ClassName(class resource.Class) string {
	return "assets/" + string(class)
}

// Create implements resource.Provider. Malformed or incomplete keys are
// caller errors and nothing is created for them.
func (p *Provider) Create(r resource.Resolver, class resource.Class, key string, providerFlags int) (resource.Resource, error) {
	if params.Validate(key) == params.Invalid {
		return nil, fmt.Errorf("assets: %s[%s]: %w", class, key, params.ErrSyntax)
	}
	p.logger.WithFields(log.Fields{"class": class, "key": key}).Debug("creating")

	var (
		res resource.Resource
		err error
	)
	switch class {
	case ClassTexture:
		res, err = p.newTexture(key)
	case ClassShader:
		res, err = p.newShader(key)
	case ClassShaderProgram:
		res, err = p.newShaderProgram(key)
	case ClassFont:
		var f *Font
		if f, err = p.newFont(key); err == nil {
			// a font is also its own atlas texture
			err = r.RegisterResource([]resource.Class{ClassTexture}, key, f)
			res = f
		}
	case ClassModel:
		res, err = p.newModel(key)
	case ClassCharacterModel:
		res, err = p.newCharacterModel(key)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("assets: %s[%s]: %w", class, key, err)
	}
	return res, nil
}

// TextureKey builds the key of a texture.
func TextureKey(path string, filter gfx.Filter) string {
	if filter == gfx.FilterLinear {
		return params.Path(path)
	}
	return params.MustBuild(ParamPath, path, ParamFilter, filter.String())
}

// ShaderKey builds the key of a shader whose stage is named by its file.
func ShaderKey(path string) string {
	return params.Path(path)
}

// ProgramKey builds the key of a program from two shader keys.
func ProgramKey(vertex, fragment string) string {
	return params.MustBuild(ParamVertex, vertex, ParamFragment, fragment)
}

// FontKey builds the key of a font rendered at size points.
func FontKey(path string, size float64) string {
	return params.MustBuild(ParamPath, path, ParamSize, strconv.FormatFloat(size, 'g', -1, 64))
}

// ModelKey builds the key of a model.
func ModelKey(path string) string {
	return params.Path(path)
}

// CharacterModelKey builds the key of a textured model.
func CharacterModelKey(modelPath, texturePath string) string {
	return params.MustBuild(ParamPath, modelPath, ParamTexture, texturePath)
}

func readAsset(fsys vfs.FileSystem, path string) ([]byte, error) {
	data, err := vfs.ReadFile(fsys, path)
	if err != nil {
		return nil, resource.AssetOpenError(path, err)
	}
	return data, nil
}

func release(backend gfx.Backend, h *gfx.Handle) error {
	if *h == 0 {
		return nil
	}
	err := backend.Release(*h)
	*h = 0
	return err
}
