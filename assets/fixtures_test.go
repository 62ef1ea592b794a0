// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/devblok/korures/assets"
	"github.com/devblok/korures/gfx/soft"
	"github.com/devblok/korures/resource"
	"github.com/devblok/korures/vfs"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func setup(t *testing.T, files map[string][]byte) (*resource.Manager, *soft.Backend) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	dir := vfs.Dir(t.TempDir())
	for name, data := range files {
		require.NoError(t, vfs.WriteFile(dir, name, data))
	}
	backend := soft.New(logger)
	m := resource.NewManager(resource.WithLogger(logger))
	require.NoError(t, assets.NewProvider(dir, backend, logger).Register(m))
	return m, backend
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func spirv(words ...uint32) []byte {
	header := []uint32{0x07230203, 0x00010000, 0, 8, 0}
	var buf []byte
	for _, w := range append(header, words...) {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}
	return buf
}

func ttf() []byte {
	return goregular.TTF
}

func dae(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../util/collada/testdata/triangle.dae")
	require.NoError(t, err)
	return data
}
