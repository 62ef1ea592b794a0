// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/devblok/korures/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetResourceCachesIdentity(t *testing.T) {
	m, _ := newManager()
	log := &journal{}
	h1 := newFake("a", log)

	p := &mockProvider{}
	p.On("Create", mock.Anything, texture, "path=a.png", 0).Return(h1, nil)
	require.NoError(t, m.RegisterProvider([]resource.Class{texture}, p, 0))

	got, err := m.GetResource(texture, "path=a.png", resource.Required, 0)
	require.NoError(t, err)
	assert.Same(t, h1, got)

	again, err := m.GetResource(texture, "path=a.png", resource.Required, 0)
	require.NoError(t, err)
	assert.Same(t, h1, again)
	p.AssertNumberOfCalls(t, "Create", 1)

	m.SetTargetState(resource.Realized)
	require.NoError(t, m.MakeAllResourcesTargetState(true))
	assert.Equal(t, []string{"a.bind", "a.preload", "a.realize"}, log.calls)
	assert.Equal(t, resource.Realized, h1.State())
}

func TestKeysAreComparedVerbatim(t *testing.T) {
	m, _ := newManager()
	p := &mockProvider{}
	a, b := newFake("a", &journal{}), newFake("b", &journal{})
	p.On("Create", mock.Anything, texture, "path=a.png,size=1", 0).Return(a, nil)
	p.On("Create", mock.Anything, texture, "size=1,path=a.png", 0).Return(b, nil)
	require.NoError(t, m.RegisterProvider([]resource.Class{texture}, p, 0))

	r1, err := m.GetResource(texture, "path=a.png,size=1", 0, 0)
	require.NoError(t, err)
	r2, err := m.GetResource(texture, "size=1,path=a.png", 0, 0)
	require.NoError(t, err)
	assert.NotSame(t, r1, r2)
}

func TestNeverCreate(t *testing.T) {
	m, _ := newManager()
	p := &mockProvider{}
	require.NoError(t, m.RegisterProvider([]resource.Class{texture}, p, 0))

	got, err := m.GetResource(texture, "path=a.png", resource.NeverCreate|resource.Required, 0)
	assert.NoError(t, err)
	assert.Nil(t, got)
	p.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProviderCollision(t *testing.T) {
	m, rep := newManager()
	first, second := &mockProvider{}, &mockProvider{}
	res := newFake("a", &journal{})
	first.On("Create", mock.Anything, texture, "path=a.png", 0).Return(res, nil)

	require.NoError(t, m.RegisterProvider([]resource.Class{texture}, first, 0))
	err := m.RegisterProvider([]resource.Class{font, texture}, second, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, resource.ErrProviderCollision)
	assert.Len(t, rep.errs, 1)

	// nothing was bound by the failed call
	got, err := m.GetResource(font, "path=f.ttf", 0, 0)
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = m.GetResource(texture, "path=a.png", resource.Required, 0)
	require.NoError(t, err)
	assert.Same(t, res, got)
	first.AssertNumberOfCalls(t, "Create", 1)
	second.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMissingProvider(t *testing.T) {
	m, rep := newManager()

	got, err := m.GetResource(texture, "path=a.png", 0, 0)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, rep.errs)

	got, err = m.GetResource(texture, "path=a.png", resource.Required, 0)
	assert.Nil(t, got)
	require.ErrorIs(t, err, resource.ErrUnknownResource)

	var rerr *resource.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, resource.Identity{Class: texture, Key: "path=a.png"}, rerr.Identity)
	assert.Len(t, rep.errs, 1)
}

func TestProviderErrorIsNotWrapped(t *testing.T) {
	m, _ := newManager()
	boom := errors.New("boom")
	p := &mockProvider{}
	p.On("Create", mock.Anything, texture, "path=a.png", 0).Return(nil, boom)
	require.NoError(t, m.RegisterProvider([]resource.Class{texture}, p, 0))

	got, err := m.GetResource(texture, "path=a.png", resource.Required, 0)
	assert.Nil(t, got)
	assert.Same(t, boom, err)

	_, ok := m.Lookup(texture, "path=a.png")
	assert.False(t, ok)
}

func TestProviderFlagsAreCombined(t *testing.T) {
	m, _ := newManager()
	p := &mockProvider{}
	p.On("Create", mock.Anything, texture, "path=a.png", 0x3).Return(newFake("a", &journal{}), nil)
	require.NoError(t, m.RegisterProvider([]resource.Class{texture}, p, 0x1))

	_, err := m.GetResource(texture, "path=a.png", 0, 0x2)
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestCompositeRegistration(t *testing.T) {
	m, _ := newManager()
	res := newFake("font", &journal{})

	p := &mockProvider{}
	p.On("Create", mock.Anything, font, "path=f.ttf", 0).
		Run(func(args mock.Arguments) {
			r := args.Get(0).(resource.Resolver)
			require.NoError(t, r.RegisterResource([]resource.Class{texture}, "path=f.ttf", res))
		}).
		Return(res, nil)
	require.NoError(t, m.RegisterProvider([]resource.Class{font}, p, 0))

	got, err := m.GetResource(font, "path=f.ttf", resource.Required, 0)
	require.NoError(t, err)
	assert.Same(t, res, got)

	asTexture, err := m.GetResource(texture, "path=f.ttf", resource.Required, 0)
	require.NoError(t, err)
	assert.Same(t, res, asTexture)
	assert.Equal(t, 1, m.CurrentSection().Len())
}

func TestNestedRegistrationGrowsBuckets(t *testing.T) {
	m, _ := newManager()
	res := newFake("many", &journal{})

	p := &mockProvider{}
	p.On("Create", mock.Anything, font, "k", 0).
		Run(func(args mock.Arguments) {
			r := args.Get(0).(resource.Resolver)
			for i := 0; i < 64; i++ {
				class := resource.Class(fmt.Sprintf("extra-%d", i))
				require.NoError(t, r.RegisterResource([]resource.Class{class}, "k", res))
			}
		}).
		Return(res, nil)
	require.NoError(t, m.RegisterProvider([]resource.Class{font}, p, 0))

	got, err := m.GetResource(font, "k", resource.Required, 0)
	require.NoError(t, err)
	assert.Same(t, res, got)

	cached, ok := m.Lookup(font, "k")
	require.True(t, ok)
	assert.Same(t, res, cached)

	extra, ok := m.Lookup("extra-63", "k")
	require.True(t, ok)
	assert.Same(t, res, extra)
}

func TestRegisterResourceIdentityTaken(t *testing.T) {
	m, rep := newManager()
	a, b := newFake("a", &journal{}), newFake("b", &journal{})

	require.NoError(t, m.RegisterResource([]resource.Class{texture}, "k", a))
	require.NoError(t, m.RegisterResource([]resource.Class{texture, font}, "k", a))

	err := m.RegisterResource([]resource.Class{shader, texture}, "k", b)
	assert.ErrorIs(t, err, resource.ErrIdentityTaken)
	assert.Len(t, rep.errs, 1)

	_, ok := m.Lookup(shader, "k")
	assert.False(t, ok, "failed registration must not bind any class")
}

func TestUnregisterProvider(t *testing.T) {
	m, _ := newManager()
	res := newFake("a", &journal{})
	p := &mockProvider{}
	p.On("Create", mock.Anything, texture, "path=a.png", 0).Return(res, nil)
	require.NoError(t, m.RegisterProvider([]resource.Class{texture, font}, p, 0))

	_, err := m.GetResource(texture, "path=a.png", 0, 0)
	require.NoError(t, err)

	m.UnregisterProvider(p)

	cached, err := m.GetResource(texture, "path=a.png", resource.Required, 0)
	require.NoError(t, err)
	assert.Same(t, res, cached)

	_, err = m.GetResource(texture, "path=b.png", resource.Required, 0)
	assert.ErrorIs(t, err, resource.ErrUnknownResource)

	assert.NoError(t, m.RegisterProvider([]resource.Class{font}, &mockProvider{}, 0))
}

func TestUnregisterResource(t *testing.T) {
	m, _ := newManager()
	log := &journal{}
	res := newFake("a", log)
	require.NoError(t, m.RegisterResource([]resource.Class{texture, font}, "k", res))
	require.NoError(t, m.Transition(res, resource.Realized))

	assert.True(t, m.UnregisterResource(texture, "k"))
	assert.Equal(t, resource.Realized, res.State(), "still reachable through font")
	assert.Equal(t, 1, m.CurrentSection().Len())

	assert.True(t, m.UnregisterResource(font, "k"))
	assert.Equal(t, resource.Created, res.State())
	assert.Equal(t, 0, m.CurrentSection().Len())
	assert.False(t, m.UnregisterResource(font, "k"))

	// the freed slot is reused without mixing up identities
	other := newFake("b", &journal{})
	require.NoError(t, m.RegisterResource([]resource.Class{texture}, "k2", other))
	got, ok := m.Lookup(texture, "k2")
	require.True(t, ok)
	assert.Same(t, other, got)
}

func TestPrivateLookupKeepsSharedComposite(t *testing.T) {
	m, _ := newManager()
	res := newFake("font", &journal{})
	p := &mockProvider{}
	p.On("Create", mock.Anything, font, "path=f.ttf", 0).
		Run(func(args mock.Arguments) {
			r := args.Get(0).(resource.Resolver)
			require.NoError(t, r.RegisterResource([]resource.Class{texture}, "path=f.ttf", res))
		}).
		Return(res, nil)
	require.NoError(t, m.RegisterProvider([]resource.Class{font}, p, 0))

	_, err := m.GetResource(font, "path=f.ttf", resource.Private, 0)
	require.NoError(t, err)

	shared, ok := m.Lookup(texture, "path=f.ttf")
	require.True(t, ok)
	assert.Same(t, res, shared)

	out := m.DumpStatistics()
	assert.Contains(t, out, "private=0")
	assert.Regexp(t, `texture\s+1 `, out)
}

func TestPrivateResourcesAreNotCached(t *testing.T) {
	m, _ := newManager()
	a, b := newFake("a", &journal{}), newFake("b", &journal{})
	p := &mockProvider{}
	p.On("Create", mock.Anything, texture, "path=a.png", 0).Return(a, nil).Once()
	p.On("Create", mock.Anything, texture, "path=a.png", 0).Return(b, nil).Once()
	require.NoError(t, m.RegisterProvider([]resource.Class{texture}, p, 0))

	s := m.EnterSection("level")
	r1, err := m.GetResource(texture, "path=a.png", resource.Private, 0)
	require.NoError(t, err)
	r2, err := m.GetResource(texture, "path=a.png", resource.Private, 0)
	require.NoError(t, err)
	m.LeaveSection()

	assert.NotSame(t, r1, r2)
	_, ok := m.Lookup(texture, "path=a.png")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Len())

	require.NoError(t, m.ClearSection(s))
	assert.Equal(t, 0, s.Len())
}
