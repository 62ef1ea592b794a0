// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets

import (
	"bytes"
	"image"
	_ "image/gif"  // decoder
	_ "image/jpeg" // decoder
	_ "image/png"  // decoder

	"github.com/devblok/korures/gfx"
	"github.com/devblok/korures/resource"
	"github.com/devblok/korures/util/params"
	"github.com/devblok/korures/vfs"
	_ "golang.org/x/image/bmp"  // decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // decoder
	_ "golang.org/x/image/webp" // decoder
)

// Texture is an image file uploaded as RGBA.
type Texture struct {
	resource.Lifecycle

	fs      vfs.FileSystem
	backend gfx.Backend
	path    string
	filter  gfx.Filter

	width, height int
	pixels        []byte
	handle        gfx.Handle
}

func (p *Provider) newTexture(key string) (*Texture, error) {
	path, err := params.Require(key, ParamPath)
	if err != nil {
		return nil, err
	}
	name, _ := params.Get(key, ParamFilter)
	filter, err := gfx.ParseFilter(name)
	if err != nil {
		return nil, err
	}
	return &Texture{fs: p.fs, backend: p.backend, path: path, filter: filter}, nil
}

// Preload decodes the image.
func (t *Texture) Preload(r resource.Resolver) error {
	data, err := readAsset(t.fs, t.path)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return resource.AssetCorruptedError(t.path, "image", err)
	}
	t.pixels = rgbaPixels(img)
	t.width, t.height = img.Bounds().Dx(), img.Bounds().Dy()
	return nil
}

// Realize uploads the pixels.
func (t *Texture) Realize(r resource.Resolver) error {
	h, err := t.backend.CreateTexture(gfx.TextureDesc{
		Width:  t.width,
		Height: t.height,
		Format: gfx.FormatRGBA8,
		Filter: t.filter,
		Pixels: t.pixels,
	})
	if err != nil {
		return err
	}
	t.handle = h
	return nil
}

// Unrealize releases the device texture.
func (t *Texture) Unrealize(r resource.Resolver) error {
	return release(t.backend, &t.handle)
}

// Unload drops the pixels.
func (t *Texture) Unload(r resource.Resolver) error {
	t.pixels = nil
	return nil
}

// Handle returns the device texture, zero unless realized.
func (t *Texture) Handle() gfx.Handle { return t.handle }

// Size returns the image dimensions, known once preloaded.
func (t *Texture) Size() (int, int) { return t.width, t.height }

// Path returns the image file path.
func (t *Texture) Path() string { return t.path }

// MemoryUsage implements resource.MemoryUser
func (t *Texture) MemoryUsage() uint64 { return uint64(len(t.pixels)) }

// rgbaPixels transforms a given image into tightly packed RGBA rows
// by drawing the decoded image onto a controlled canvas.
func rgbaPixels(img image.Image) []byte {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)
	return canvas.Pix
}
