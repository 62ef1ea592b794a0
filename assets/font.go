// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/devblok/korures/gfx"
	"github.com/devblok/korures/resource"
	"github.com/devblok/korures/util/params"
	"github.com/devblok/korures/vfs"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultFontSize in points when the key has no size.
	DefaultFontSize = 12.0

	firstGlyph   = ' '
	lastGlyph    = '~'
	atlasColumns = 16
	fontDPI      = 72
)

// font flags, separated by '|' in the key
const (
	FontNoHinting = "nohint"
	FontNearest   = "nearest"
)

// Glyph locates one character in the atlas.
type Glyph struct {
	Rect    image.Rectangle
	Advance fixed.Int26_6
}

// Font is an OpenType font rasterised into an atlas of printable ASCII.
// It is registered as a texture too, sampling it samples the atlas.
type Font struct {
	resource.Lifecycle

	fs      vfs.FileSystem
	backend gfx.Backend
	path    string
	size    float64
	hinting font.Hinting
	filter  gfx.Filter

	font   *opentype.Font
	face   font.Face
	glyphs map[rune]Glyph
	atlas  *image.Alpha
	handle gfx.Handle
}

func (p *Provider) newFont(key string) (*Font, error) {
	path, err := params.Require(key, ParamPath)
	if err != nil {
		return nil, err
	}
	f := &Font{
		fs:      p.fs,
		backend: p.backend,
		path:    path,
		size:    DefaultFontSize,
		hinting: font.HintingFull,
	}
	if v, ok := params.Get(key, ParamSize); ok {
		if f.size, err = strconv.ParseFloat(v, 64); err != nil || f.size <= 0 {
			return nil, fmt.Errorf("bad font size %q: %w", v, params.ErrSyntax)
		}
	}
	if v, ok := params.Get(key, ParamFlags); ok {
		for _, flag := range strings.Split(v, "|") {
			switch flag {
			case FontNoHinting:
				f.hinting = font.HintingNone
			case FontNearest:
				f.filter = gfx.FilterNearest
			case "":
			default:
				return nil, fmt.Errorf("unknown font flag %q: %w", flag, params.ErrSyntax)
			}
		}
	}
	return f, nil
}

// Preload parses the font file.
func (f *Font) Preload(r resource.Resolver) error {
	data, err := readAsset(f.fs, f.path)
	if err != nil {
		return err
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return resource.AssetCorruptedError(f.path, "opentype", err)
	}
	f.font = parsed
	return nil
}

// Realize builds the face and the glyph atlas and uploads the atlas.
func (f *Font) Realize(r resource.Resolver) error {
	face, err := opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    f.size,
		DPI:     fontDPI,
		Hinting: f.hinting,
	})
	if err != nil {
		return resource.AssetCorruptedError(f.path, "face", err)
	}
	f.rasterise(face)

	b := f.atlas.Bounds()
	h, err := f.backend.CreateTexture(gfx.TextureDesc{
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: gfx.FormatR8,
		Filter: f.filter,
		Pixels: f.atlas.Pix,
	})
	if err != nil {
		face.Close()
		f.face, f.atlas, f.glyphs = nil, nil, nil
		return err
	}
	f.face = face
	f.handle = h
	return nil
}

func (f *Font) rasterise(face font.Face) {
	metrics := face.Metrics()
	cellH := (metrics.Ascent + metrics.Descent).Ceil()
	cellW := 1
	for c := rune(firstGlyph); c <= lastGlyph; c++ {
		if adv, ok := face.GlyphAdvance(c); ok {
			cellW = max(cellW, adv.Ceil())
		}
	}

	count := int(lastGlyph - firstGlyph + 1)
	rows := (count + atlasColumns - 1) / atlasColumns
	f.atlas = image.NewAlpha(image.Rect(0, 0, atlasColumns*cellW, rows*cellH))
	f.glyphs = make(map[rune]Glyph, count)

	d := font.Drawer{Dst: f.atlas, Src: image.White, Face: face}
	for i := 0; i < count; i++ {
		c := rune(firstGlyph + i)
		x, y := (i%atlasColumns)*cellW, (i/atlasColumns)*cellH
		d.Dot = fixed.P(x, y+metrics.Ascent.Ceil())
		d.DrawString(string(c))
		adv, _ := face.GlyphAdvance(c)
		f.glyphs[c] = Glyph{Rect: image.Rect(x, y, x+cellW, y+cellH), Advance: adv}
	}
}

// Unrealize releases the atlas texture and the face.
func (f *Font) Unrealize(r resource.Resolver) error {
	err := release(f.backend, &f.handle)
	if f.face != nil {
		f.face.Close()
	}
	f.face, f.atlas, f.glyphs = nil, nil, nil
	return err
}

// Unload drops the parsed font.
func (f *Font) Unload(r resource.Resolver) error {
	f.font = nil
	return nil
}

// Glyph returns where c is in the atlas. Only printable ASCII is
// rasterised.
func (f *Font) Glyph(c rune) (Glyph, bool) {
	g, ok := f.glyphs[c]
	return g, ok
}

// Measure returns the advance of s, zero unless realized.
func (f *Font) Measure(s string) fixed.Int26_6 {
	if f.face == nil {
		return 0
	}
	return font.MeasureString(f.face, s)
}

// Handle returns the atlas texture, zero unless realized.
func (f *Font) Handle() gfx.Handle { return f.handle }

// Size returns the atlas dimensions, zero unless realized.
func (f *Font) Size() (int, int) {
	if f.atlas == nil {
		return 0, 0
	}
	return f.atlas.Bounds().Dx(), f.atlas.Bounds().Dy()
}

// MemoryUsage implements resource.MemoryUser
func (f *Font) MemoryUsage() uint64 {
	if f.atlas == nil {
		return 0
	}
	return uint64(len(f.atlas.Pix))
}
