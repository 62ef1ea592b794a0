// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resource owns every loadable asset of the engine. It keeps one
// canonical instance per (class, key) identity, creates missing instances
// through registered providers and drives them through the
// Created, Preloaded and Realized lifecycle, either one by one or in bulk
// for everything tagged to a section.
//
// Nothing in this package is safe for concurrent use. Providers and
// resources are expected to call back into the manager while they are
// being created or transitioned, on the same goroutine.
package resource

import "fmt"

// Class is the logical type of a resource, such as "texture" or "font".
type Class string

// Identity is the cache key of a resource.
type Identity struct {
	Class Class
	Key   string
}

func (id Identity) String() string {
	return fmt.Sprintf("%s[%s]", id.Class, id.Key)
}

// State is the lifecycle stage of a resource.
type State int

// Lifecycle stages, ordered.
const (
	Created State = iota
	Preloaded
	Realized
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Preloaded:
		return "preloaded"
	case Realized:
		return "realized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Valid reports whether s is one of the three lifecycle stages.
func (s State) Valid() bool {
	return s >= Created && s <= Realized
}

// Flags alter the behaviour of GetResource.
type Flags int

// GetResource flags
const (
	// Required turns a missing provider into an UnknownResource error.
	Required Flags = 1 << iota

	// NeverCreate only consults the cache.
	NeverCreate

	// Private keeps a created resource out of the cache. It is owned by
	// the section it was created in and released together with it.
	Private
)

// Resource is anything the manager can drive through the lifecycle.
// Implementations embed Lifecycle, which supplies State and keeps the
// stage out of reach of resource code.
//
// Preload loads cheap, backend independent data. Realize acquires
// backend objects. Unrealize and Unload release what the matching
// forward transition acquired and must tolerate a partially failed
// forward transition.
type Resource interface {
	State() State
	Preload(r Resolver) error
	Realize(r Resolver) error
	Unrealize(r Resolver) error
	Unload(r Resolver) error

	lifecycle() *Lifecycle
}

// Lifecycle holds the stage of a resource. Embed it by value in every
// Resource implementation.
type Lifecycle struct {
	state State
	bound bool
}

// State returns the last stage the resource successfully reached.
func (l *Lifecycle) State() State {
	return l.state
}

func (l *Lifecycle) lifecycle() *Lifecycle {
	return l
}

// DependencyBinder is implemented by resources that look up other
// resources. BindDependencies is called before Preload whenever the
// resource leaves Created, so dependencies released in the meantime
// are resolved again through the cache.
type DependencyBinder interface {
	BindDependencies(r Resolver) error
}

// Resolver is the view of the manager handed to providers and resources.
// Resources created through a Resolver join the section it is bound to.
type Resolver interface {
	GetResource(class Class, key string, flags Flags, providerFlags int) (Resource, error)
	RegisterResource(classes []Class, key string, res Resource) error

	// Require drives dep forward until it is at least at level.
	Require(dep Resource, level State) error
}

// Provider creates resources for the classes it was registered for.
// Returned resources must be pointer types.
type Provider interface {
	Create(r Resolver, class Class, key string, providerFlags int) (Resource, error)
}

// ClassNamer lets a provider describe itself in statistics.
type ClassNamer interface {
	ClassName(class Class) string
}

// MemoryUser is implemented by resources that can estimate how many
// bytes they currently hold.
type MemoryUser interface {
	MemoryUsage() uint64
}
