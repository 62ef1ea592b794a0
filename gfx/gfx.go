// Package gfx defines rendering related features that renderers must implement.
package gfx

import (
	"errors"
	"fmt"
)

// package errors
var (
	ErrUnknownHandle = errors.New("gfx: unknown handle")
	ErrInvalid       = errors.New("gfx: invalid description")
)

// Handle identifies an object owned by a Backend. Zero is never valid.
type Handle uint64

// Kind is the type of a backend object.
type Kind int

// object kinds
const (
	KindTexture Kind = iota
	KindShaderModule
	KindProgram
	KindVertexBuffer
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindShaderModule:
		return "shader-module"
	case KindProgram:
		return "program"
	case KindVertexBuffer:
		return "vertex-buffer"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Format is a pixel format.
type Format int

// pixel formats
const (
	FormatRGBA8 Format = iota
	FormatR8
)

// BytesPerPixel returns the size of one pixel.
func (f Format) BytesPerPixel() int {
	if f == FormatR8 {
		return 1
	}
	return 4
}

// Filter is the texture sampling filter.
type Filter int

// sampling filters
const (
	FilterLinear Filter = iota
	FilterNearest
)

// ParseFilter maps "linear" and "nearest" to a Filter.
// An empty name is linear.
func ParseFilter(name string) (Filter, error) {
	switch name {
	case "", "linear":
		return FilterLinear, nil
	case "nearest":
		return FilterNearest, nil
	}
	return FilterLinear, fmt.Errorf("gfx: unknown filter %q", name)
}

func (f Filter) String() string {
	if f == FilterNearest {
		return "nearest"
	}
	return "linear"
}

// TextureDesc describes pixel data for upload.
type TextureDesc struct {
	Width, Height int
	Format        Format
	Filter        Filter
	Pixels        []byte
}

// Validate checks the pixel data matches the dimensions.
func (d TextureDesc) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: texture size %dx%d", ErrInvalid, d.Width, d.Height)
	}
	if want := d.Width * d.Height * d.Format.BytesPerPixel(); len(d.Pixels) != want {
		return fmt.Errorf("%w: texture has %d bytes, want %d", ErrInvalid, len(d.Pixels), want)
	}
	return nil
}

// ShaderStage is the pipeline stage a shader module runs in.
type ShaderStage int

// shader stages
const (
	StageVertex ShaderStage = iota
	StageFragment
)

// ParseShaderStage maps "vert"/"vertex" and "frag"/"fragment".
func ParseShaderStage(name string) (ShaderStage, error) {
	switch name {
	case "vert", "vertex":
		return StageVertex, nil
	case "frag", "fragment":
		return StageFragment, nil
	}
	return StageVertex, fmt.Errorf("gfx: unknown shader stage %q", name)
}

func (s ShaderStage) String() string {
	if s == StageFragment {
		return "fragment"
	}
	return "vertex"
}

// Backend creates and releases device objects.
type Backend interface {

	// CreateTexture uploads pixels.
	CreateTexture(desc TextureDesc) (Handle, error)

	// CreateShaderModule creates a module from SPIR-V code.
	CreateShaderModule(stage ShaderStage, code []byte) (Handle, error)

	// CreateProgram links a vertex and a fragment module.
	CreateProgram(vertex, fragment Handle) (Handle, error)

	// CreateVertexBuffer uploads vertex data.
	CreateVertexBuffer(data []byte, stride int) (Handle, error)

	// Release frees the object.
	Release(h Handle) error
}
