// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package soft_test

import (
	"errors"
	"testing"

	"github.com/devblok/korures/gfx"
	"github.com/devblok/korures/gfx/soft"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend() *soft.Backend {
	logger, _ := test.NewNullLogger()
	return soft.New(logger)
}

func TestTextureAccounting(t *testing.T) {
	b := newBackend()
	h, err := b.CreateTexture(gfx.TextureDesc{Width: 2, Height: 2, Pixels: make([]byte, 16)})
	require.NoError(t, err)
	assert.NotZero(t, h)
	assert.Equal(t, 1, b.Live())
	assert.Equal(t, int64(16), b.Bytes())

	require.NoError(t, b.Release(h))
	assert.Equal(t, 0, b.Live())
	assert.Equal(t, int64(0), b.Bytes())
	assert.ErrorIs(t, b.Release(h), gfx.ErrUnknownHandle)
}

func TestInvalidDescriptions(t *testing.T) {
	b := newBackend()
	_, err := b.CreateTexture(gfx.TextureDesc{Width: 2, Height: 2, Pixels: make([]byte, 3)})
	assert.ErrorIs(t, err, gfx.ErrInvalid)
	_, err = b.CreateTexture(gfx.TextureDesc{Format: gfx.FormatR8})
	assert.ErrorIs(t, err, gfx.ErrInvalid)
	_, err = b.CreateShaderModule(gfx.StageVertex, []byte{1, 2, 3})
	assert.ErrorIs(t, err, gfx.ErrInvalid)
	_, err = b.CreateVertexBuffer(make([]byte, 10), 4)
	assert.ErrorIs(t, err, gfx.ErrInvalid)
	assert.Equal(t, 0, b.Live())
}

func TestProgramChecksStages(t *testing.T) {
	b := newBackend()
	vert, err := b.CreateShaderModule(gfx.StageVertex, make([]byte, 8))
	require.NoError(t, err)
	frag, err := b.CreateShaderModule(gfx.StageFragment, make([]byte, 8))
	require.NoError(t, err)

	_, err = b.CreateProgram(frag, vert)
	assert.ErrorIs(t, err, gfx.ErrInvalid)
	_, err = b.CreateProgram(vert, 99)
	assert.ErrorIs(t, err, gfx.ErrUnknownHandle)

	prog, err := b.CreateProgram(vert, frag)
	require.NoError(t, err)
	assert.Equal(t, 1, b.LiveOf(gfx.KindProgram))
	assert.Equal(t, 2, b.LiveOf(gfx.KindShaderModule))
	require.NoError(t, b.Release(prog))
}

func TestFailNext(t *testing.T) {
	b := newBackend()
	lost := errors.New("device lost")
	b.FailNext(gfx.KindVertexBuffer, lost)

	_, err := b.CreateVertexBuffer(make([]byte, 8), 4)
	assert.Same(t, lost, err)

	_, err = b.CreateVertexBuffer(make([]byte, 8), 4)
	assert.NoError(t, err)
	assert.Equal(t, 1, b.LiveOf(gfx.KindVertexBuffer))
}

func TestParse(t *testing.T) {
	f, err := gfx.ParseFilter("nearest")
	require.NoError(t, err)
	assert.Equal(t, gfx.FilterNearest, f)
	_, err = gfx.ParseFilter("cubic")
	assert.Error(t, err)

	s, err := gfx.ParseShaderStage("frag")
	require.NoError(t, err)
	assert.Equal(t, "fragment", s.String())
	assert.Equal(t, "kind(9)", gfx.Kind(9).String())
}
