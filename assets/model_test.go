// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets_test

import (
	"testing"

	"github.com/devblok/korures/assets"
	"github.com/devblok/korures/gfx"
	"github.com/devblok/korures/resource"
	"github.com/devblok/korures/util/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel(t *testing.T) {
	m, backend := setup(t, map[string][]byte{"models/tri.dae": dae(t)})

	res, err := m.GetResource(assets.ClassModel, assets.ModelKey("models/tri.dae"), resource.Required, 0)
	require.NoError(t, err)
	mdl := res.(*assets.Model)

	require.NoError(t, m.Transition(mdl, resource.Preloaded))
	require.NotNil(t, mdl.Mesh())
	assert.Equal(t, 1, mdl.Mesh().Triangles())
	assert.Positive(t, mdl.MemoryUsage())

	require.NoError(t, m.Transition(mdl, resource.Realized))
	assert.Equal(t, 1, backend.LiveOf(gfx.KindVertexBuffer))

	require.NoError(t, m.Transition(mdl, resource.Created))
	assert.Nil(t, mdl.Mesh())
	assert.Equal(t, 0, backend.Live())
}

func TestCharacterModelInLockstep(t *testing.T) {
	m, backend := setup(t, map[string][]byte{
		"models/tri.dae": dae(t),
		"img/skin.png":   pngImage(t, 2, 2),
	})
	key := assets.CharacterModelKey("models/tri.dae", "img/skin.png")

	res, err := m.GetResource(assets.ClassCharacterModel, key, resource.Required, 0)
	require.NoError(t, err)
	cm := res.(*assets.CharacterModel)

	require.NoError(t, m.Transition(cm, resource.Preloaded))
	require.NotNil(t, cm.Model())
	require.NotNil(t, cm.Texture())
	assert.Equal(t, resource.Preloaded, cm.Model().State())
	assert.Equal(t, resource.Preloaded, cm.Texture().State())
	assert.Equal(t, 0, backend.Live())

	require.NoError(t, m.Transition(cm, resource.Realized))
	assert.Equal(t, resource.Realized, cm.Model().State())
	assert.Equal(t, resource.Realized, cm.Texture().State())
	assert.Equal(t, 1, backend.LiveOf(gfx.KindVertexBuffer))
	assert.Equal(t, 1, backend.LiveOf(gfx.KindTexture))

	// dependencies are shared through the cache
	tex, ok := m.Lookup(assets.ClassTexture, params.Path("img/skin.png"))
	require.True(t, ok)
	assert.Same(t, cm.Texture(), tex)
}

func TestCharacterModelMissingTexture(t *testing.T) {
	m, _ := setup(t, map[string][]byte{"models/tri.dae": dae(t)})
	res, err := m.GetResource(assets.ClassCharacterModel, assets.CharacterModelKey("models/tri.dae", "nope.png"), resource.Required, 0)
	require.NoError(t, err)

	err = m.Transition(res, resource.Preloaded)
	assert.ErrorIs(t, err, resource.ErrAssetOpen)
	assert.Equal(t, resource.Created, res.State())
}

func TestCharacterModelOutlivesTextureSection(t *testing.T) {
	m, backend := setup(t, map[string][]byte{
		"models/tri.dae": dae(t),
		"img/skin.png":   pngImage(t, 2, 2),
	})

	level := m.EnterSection("level")
	old, err := m.GetResource(assets.ClassTexture, params.Path("img/skin.png"), resource.Required, 0)
	require.NoError(t, err)
	m.LeaveSection()

	res, err := m.GetResource(assets.ClassCharacterModel,
		assets.CharacterModelKey("models/tri.dae", "img/skin.png"), resource.Required, 0)
	require.NoError(t, err)
	cm := res.(*assets.CharacterModel)

	require.NoError(t, m.MakeAllResourcesState(resource.Realized, true))
	assert.Same(t, old, cm.Texture())

	require.NoError(t, m.ClearSection(level))
	assert.Equal(t, resource.Created, old.State())
	assert.Equal(t, 0, backend.LiveOf(gfx.KindTexture))

	// the released texture cannot be driven again through the model
	require.NoError(t, m.MakeAllResourcesState(resource.Preloaded, true))
	err = m.MakeAllResourcesState(resource.Realized, true)
	assert.ErrorIs(t, err, resource.ErrTransitionFailed)
	assert.Equal(t, resource.Created, old.State())
	assert.Equal(t, 0, backend.LiveOf(gfx.KindTexture))

	// a full reload binds the model to a fresh cached texture
	require.NoError(t, m.MakeAllResourcesState(resource.Created, true))
	require.NoError(t, m.MakeAllResourcesState(resource.Realized, true))

	cached, ok := m.Lookup(assets.ClassTexture, params.Path("img/skin.png"))
	require.True(t, ok)
	assert.Same(t, cached, cm.Texture())
	assert.NotSame(t, old, cached)
	assert.Equal(t, resource.Created, old.State())
	assert.Equal(t, resource.Realized, cached.State())
	assert.Equal(t, 1, backend.LiveOf(gfx.KindTexture))

	require.NoError(t, m.Close())
	assert.Equal(t, 0, backend.Live())
}
