// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

// slot is one physical resource. Slot indices are stable for the
// lifetime of the resource and are reused after it is released.
type slot struct {
	res     Resource
	ids     []Identity
	section *Section
	private bool
	live    bool
}

// bucket stores the provider and the cached resources of one class.
// Buckets live in a growable slice and are addressed by index; never
// keep a *bucket across a call that can register resources.
type bucket struct {
	class         Class
	provider      Provider
	providerFlags int
	entries       map[string]uint32
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger log.FieldLogger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithReporter sets the error channel. Defaults to a LogReporter.
func WithReporter(r Reporter) Option {
	return func(m *Manager) {
		m.reporter = r
	}
}

// WithMetrics sets the collectors the manager updates.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithClock sets the clock used to time reconciliation.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// Manager is the resource cache, section registry and reconciliation
// driver in one. It is not safe for concurrent use.
type Manager struct {
	logger   log.FieldLogger
	reporter Reporter
	metrics  *Metrics
	clock    clock.Clock

	target State

	slots []slot
	free  []uint32
	index map[Resource]uint32

	buckets     []bucket
	bucketIndex map[Class]int

	sections      []*Section
	sectionByName map[string]*Section
	stack         []*Section
}

// NewManager creates an empty manager with only the default section.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger:        log.StandardLogger(),
		clock:         clock.New(),
		index:         make(map[Resource]uint32),
		bucketIndex:   make(map[Class]int),
		sectionByName: make(map[string]*Section),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.reporter == nil {
		m.reporter = LogReporter{Logger: m.logger}
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	m.Section(DefaultSection)
	return m
}

// TargetState returns the state the driver moves resources toward.
func (m *Manager) TargetState() State {
	return m.target
}

// SetTargetState sets the manager wide target. It does not transition anything.
func (m *Manager) SetTargetState(level State) {
	m.target = level
}

// RegisterProvider binds p to every class in classes. It fails without
// binding anything if one of the classes already has a provider.
// providerFlags are passed to every Create call, combined with the
// flags given to GetResource.
func (m *Manager) RegisterProvider(classes []Class, p Provider, providerFlags int) error {
	for _, class := range classes {
		if bi, ok := m.bucketIndex[class]; ok && m.buckets[bi].provider != nil {
			err := &Error{
				Kind:     ProviderCollision,
				Identity: Identity{Class: class},
				Detail:   "class already has a provider",
			}
			m.reporter.ReportError(err)
			return err
		}
	}
	for _, class := range classes {
		bi := m.bucketFor(class)
		m.buckets[bi].provider = p
		m.buckets[bi].providerFlags = providerFlags
	}
	m.logger.WithField("classes", classes).Debug("provider registered")
	return nil
}

// UnregisterProvider unbinds p from every class it serves. Cached
// resources stay cached.
func (m *Manager) UnregisterProvider(p Provider) {
	for bi := range m.buckets {
		if m.buckets[bi].provider == p {
			m.buckets[bi].provider = nil
			m.buckets[bi].providerFlags = 0
		}
	}
}

// GetResource looks up or creates a resource in the current section.
// A nil resource with a nil error means absent.
func (m *Manager) GetResource(class Class, key string, flags Flags, providerFlags int) (Resource, error) {
	return m.In(m.CurrentSection()).GetResource(class, key, flags, providerFlags)
}

// RegisterResource inserts res under key in every class without asking
// a provider. A resource new to the manager joins the current section.
func (m *Manager) RegisterResource(classes []Class, key string, res Resource) error {
	return m.In(m.CurrentSection()).RegisterResource(classes, key, res)
}

// Require drives dep forward until it is at least at level.
func (m *Manager) Require(dep Resource, level State) error {
	return m.In(m.CurrentSection()).Require(dep, level)
}

// Lookup returns the cached resource for an identity without creating it.
func (m *Manager) Lookup(class Class, key string) (Resource, bool) {
	idx, ok := m.find(class, key)
	if !ok {
		return nil, false
	}
	return m.slots[idx].res, true
}

// UnregisterResource removes one identity. A resource left without
// identities is unloaded and released from its section. If the unload
// fails it stays tagged to its section until ClearSection succeeds.
func (m *Manager) UnregisterResource(class Class, key string) bool {
	bi, ok := m.bucketIndex[class]
	if !ok {
		return false
	}
	idx, ok := m.buckets[bi].entries[key]
	if !ok {
		return false
	}
	delete(m.buckets[bi].entries, key)

	id := Identity{Class: class, Key: key}
	ids := m.slots[idx].ids
	for i := range ids {
		if ids[i] == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	m.slots[idx].ids = ids
	if len(ids) == 0 {
		if err := m.Transition(m.slots[idx].res, Created); err != nil {
			m.reporter.ReportError(err)
			return true
		}
		m.release(idx)
	}
	return true
}

func (m *Manager) find(class Class, key string) (uint32, bool) {
	bi, ok := m.bucketIndex[class]
	if !ok {
		return 0, false
	}
	idx, ok := m.buckets[bi].entries[key]
	return idx, ok
}

// bucketFor returns the index of the bucket for class, creating it.
// May grow m.buckets.
func (m *Manager) bucketFor(class Class) int {
	if bi, ok := m.bucketIndex[class]; ok {
		return bi
	}
	m.buckets = append(m.buckets, bucket{
		class:   class,
		entries: make(map[string]uint32),
	})
	bi := len(m.buckets) - 1
	m.bucketIndex[class] = bi
	return bi
}

// get implements GetResource for one section.
func (m *Manager) get(s *Section, class Class, key string, flags Flags, providerFlags int) (Resource, error) {
	if idx, ok := m.find(class, key); ok {
		m.metrics.lookup(class, LookupHit)
		return m.slots[idx].res, nil
	}
	if flags&NeverCreate != 0 {
		m.metrics.lookup(class, LookupAbsent)
		return nil, nil
	}

	bi, ok := m.bucketIndex[class]
	if !ok || m.buckets[bi].provider == nil {
		return nil, m.missing(class, key, flags)
	}
	provider := m.buckets[bi].provider
	providerFlags |= m.buckets[bi].providerFlags

	res, err := provider.Create(m.In(s), class, key, providerFlags)
	if err != nil {
		m.metrics.lookup(class, LookupError)
		return nil, err
	}
	if res == nil {
		return nil, m.missing(class, key, flags)
	}

	// Create may have registered resources and grown m.buckets.
	var idx uint32
	if flags&Private != 0 {
		_, known := m.index[res]
		idx = m.adopt(s, res)
		if !known {
			m.slots[idx].private = true
		}
	} else {
		if err := m.register(s, []Class{class}, key, res); err != nil {
			m.metrics.lookup(class, LookupError)
			m.reporter.ReportError(err)
			return nil, err
		}
		idx = m.index[res]
	}
	m.metrics.lookup(class, LookupCreated)
	m.logger.WithFields(log.Fields{
		"class":   class,
		"key":     key,
		"section": s.Name,
	}).Debug("resource created")

	if target := s.effectiveTarget(m.target); target != Created {
		if err := m.transitionSlot(idx, target); err != nil {
			m.reporter.ReportError(err)
		}
	}
	return res, nil
}

func (m *Manager) missing(class Class, key string, flags Flags) error {
	if flags&Required == 0 {
		m.metrics.lookup(class, LookupAbsent)
		return nil
	}
	m.metrics.lookup(class, LookupError)
	err := &Error{
		Kind:     UnknownResource,
		Identity: Identity{Class: class, Key: key},
		Detail:   "no provider could create a required resource",
	}
	m.reporter.ReportError(err)
	return err
}

// register binds res to (class, key) for every class. The whole call
// fails without mutation if an identity belongs to another resource.
func (m *Manager) register(s *Section, classes []Class, key string, res Resource) error {
	cur, known := m.index[res]
	for _, class := range classes {
		if idx, ok := m.find(class, key); ok && (!known || idx != cur) {
			return &Error{
				Kind:     IdentityTaken,
				Identity: Identity{Class: class, Key: key},
				Detail:   "identity is bound to another resource",
			}
		}
	}

	idx := m.adopt(s, res)
	for _, class := range classes {
		bi := m.bucketFor(class)
		if _, ok := m.buckets[bi].entries[key]; ok {
			continue
		}
		m.buckets[bi].entries[key] = idx
		m.slots[idx].ids = append(m.slots[idx].ids, Identity{Class: class, Key: key})
	}
	return nil
}

// adopt returns the slot of res, allocating one in s if res is new.
func (m *Manager) adopt(s *Section, res Resource) uint32 {
	if idx, ok := m.index[res]; ok {
		return idx
	}
	var idx uint32
	if n := len(m.free); n > 0 {
		idx = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		m.slots = append(m.slots, slot{})
		idx = uint32(len(m.slots) - 1)
	}
	m.slots[idx] = slot{res: res, section: s, live: true}
	m.index[res] = idx
	s.members.Add(idx)
	m.metrics.live(s)
	return idx
}

// release forgets a slot entirely. Its identities must already be gone
// from the buckets or be removed here.
func (m *Manager) release(idx uint32) {
	sl := m.slots[idx]
	for _, id := range sl.ids {
		if bi, ok := m.bucketIndex[id.Class]; ok {
			if cur, ok := m.buckets[bi].entries[id.Key]; ok && cur == idx {
				delete(m.buckets[bi].entries, id.Key)
			}
		}
	}
	if sl.section != nil {
		sl.section.members.Remove(idx)
		m.metrics.live(sl.section)
	}
	delete(m.index, sl.res)
	m.slots[idx] = slot{}
	m.free = append(m.free, idx)
}

func (m *Manager) identityOf(idx uint32) Identity {
	if ids := m.slots[idx].ids; len(ids) > 0 {
		return ids[0]
	}
	return Identity{}
}

// members returns a snapshot of the slot indices of s.
func members(s *Section) []uint32 {
	return s.members.ToArray()
}
