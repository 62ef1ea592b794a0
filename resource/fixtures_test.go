// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource_test

import (
	"fmt"

	"github.com/devblok/korures/resource"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
)

const (
	texture resource.Class = "texture"
	font    resource.Class = "font"
	shader  resource.Class = "shader"
)

// journal records lifecycle calls across resources in order.
type journal struct {
	calls []string
}

func (j *journal) add(name, op string) {
	j.calls = append(j.calls, fmt.Sprintf("%s.%s", name, op))
}

type fakeResource struct {
	resource.Lifecycle

	name string
	log  *journal
	fail map[resource.Op]error

	bindCount int
	deps      []resource.Resource
	bindFn    func(r resource.Resolver) error
	realizeFn func(r resource.Resolver) error
}

func newFake(name string, log *journal) *fakeResource {
	return &fakeResource{name: name, log: log, fail: map[resource.Op]error{}}
}

func (f *fakeResource) BindDependencies(r resource.Resolver) error {
	f.bindCount++
	f.log.add(f.name, "bind")
	if f.bindFn != nil {
		return f.bindFn(r)
	}
	return f.fail[resource.OpBind]
}

func (f *fakeResource) Preload(r resource.Resolver) error {
	f.log.add(f.name, "preload")
	return f.fail[resource.OpPreload]
}

func (f *fakeResource) Realize(r resource.Resolver) error {
	f.log.add(f.name, "realize")
	if f.realizeFn != nil {
		if err := f.realizeFn(r); err != nil {
			return err
		}
	}
	return f.fail[resource.OpRealize]
}

func (f *fakeResource) Unrealize(r resource.Resolver) error {
	f.log.add(f.name, "unrealize")
	return f.fail[resource.OpUnrealize]
}

func (f *fakeResource) Unload(r resource.Resolver) error {
	f.log.add(f.name, "unload")
	return f.fail[resource.OpUnload]
}

func (f *fakeResource) MemoryUsage() uint64 {
	return 1024
}

type mockProvider struct {
	mock.Mock
}

func (p *mockProvider) Create(r resource.Resolver, class resource.Class, key string, providerFlags int) (resource.Resource, error) {
	args := p.Called(r, class, key, providerFlags)
	res, _ := args.Get(0).(resource.Resource)
	return res, args.Error(1)
}

func (p *mockProvider) ClassName(class resource.Class) string {
	return "mock/" + string(class)
}

type reported struct {
	errs []error
}

func (r *reported) ReportError(err error) {
	r.errs = append(r.errs, err)
}

func newManager(opts ...resource.Option) (*resource.Manager, *reported) {
	logger, _ := test.NewNullLogger()
	rep := &reported{}
	opts = append([]resource.Option{
		resource.WithLogger(logger),
		resource.WithReporter(rep),
	}, opts...)
	return resource.NewManager(opts...), rep
}
