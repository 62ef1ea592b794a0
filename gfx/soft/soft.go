// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package soft is a gfx.Backend that keeps objects in memory.
// It is used headless and in tests.
package soft

import (
	"fmt"
	"sync"

	"github.com/devblok/korures/gfx"
	log "github.com/sirupsen/logrus"
)

type object struct {
	kind  gfx.Kind
	stage gfx.ShaderStage
	size  int64
}

// Backend implements gfx.Backend. It is safe for concurrent use.
type Backend struct {
	logger log.FieldLogger

	mutex   sync.Mutex
	next    gfx.Handle
	objects map[gfx.Handle]object
	bytes   int64
	fail    map[gfx.Kind]error
}

// New creates an empty Backend. A nil logger uses the standard logger.
func New(logger log.FieldLogger) *Backend {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Backend{
		logger:  logger.WithField("backend", "soft"),
		objects: make(map[gfx.Handle]object),
		fail:    make(map[gfx.Kind]error),
	}
}

// FailNext makes the next creation of kind return err.
func (b *Backend) FailNext(kind gfx.Kind, err error) {
	b.mutex.Lock()
	b.fail[kind] = err
	b.mutex.Unlock()
}

// Live returns the number of objects not yet released.
func (b *Backend) Live() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.objects)
}

// LiveOf returns the number of live objects of kind.
func (b *Backend) LiveOf(kind gfx.Kind) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	n := 0
	for _, o := range b.objects {
		if o.kind == kind {
			n++
		}
	}
	return n
}

// Bytes returns the memory held by live objects.
func (b *Backend) Bytes() int64 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.bytes
}

// CreateTexture implements interface
func (b *Backend) CreateTexture(desc gfx.TextureDesc) (gfx.Handle, error) {
	if err := desc.Validate(); err != nil {
		return 0, err
	}
	return b.create(object{kind: gfx.KindTexture, size: int64(len(desc.Pixels))})
}

// CreateShaderModule implements interface
func (b *Backend) CreateShaderModule(stage gfx.ShaderStage, code []byte) (gfx.Handle, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return 0, fmt.Errorf("%w: shader code of %d bytes", gfx.ErrInvalid, len(code))
	}
	return b.create(object{kind: gfx.KindShaderModule, stage: stage, size: int64(len(code))})
}

// CreateProgram implements interface
func (b *Backend) CreateProgram(vertex, fragment gfx.Handle) (gfx.Handle, error) {
	if err := b.checkModule(vertex, gfx.StageVertex); err != nil {
		return 0, err
	}
	if err := b.checkModule(fragment, gfx.StageFragment); err != nil {
		return 0, err
	}
	return b.create(object{kind: gfx.KindProgram})
}

func (b *Backend) checkModule(h gfx.Handle, stage gfx.ShaderStage) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	o, ok := b.objects[h]
	if !ok {
		return fmt.Errorf("%w: %d", gfx.ErrUnknownHandle, h)
	}
	if o.kind != gfx.KindShaderModule || o.stage != stage {
		return fmt.Errorf("%w: handle %d is not a %s module", gfx.ErrInvalid, h, stage)
	}
	return nil
}

// CreateVertexBuffer implements interface
func (b *Backend) CreateVertexBuffer(data []byte, stride int) (gfx.Handle, error) {
	if stride <= 0 || len(data)%stride != 0 {
		return 0, fmt.Errorf("%w: %d bytes with stride %d", gfx.ErrInvalid, len(data), stride)
	}
	return b.create(object{kind: gfx.KindVertexBuffer, size: int64(len(data))})
}

// Release implements interface
func (b *Backend) Release(h gfx.Handle) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	o, ok := b.objects[h]
	if !ok {
		return fmt.Errorf("%w: %d", gfx.ErrUnknownHandle, h)
	}
	delete(b.objects, h)
	b.bytes -= o.size
	b.logger.WithFields(log.Fields{"kind": o.kind, "handle": h}).Debug("released")
	return nil
}

func (b *Backend) create(o object) (gfx.Handle, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if err, ok := b.fail[o.kind]; ok {
		delete(b.fail, o.kind)
		return 0, err
	}
	b.next++
	b.objects[b.next] = o
	b.bytes += o.size
	b.logger.WithFields(log.Fields{"kind": o.kind, "handle": b.next, "size": o.size}).Debug("created")
	return b.next, nil
}
