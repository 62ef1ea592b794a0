// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// DefaultSection is the name of the unscoped pool. It always exists.
const DefaultSection = ""

// Section groups the resources created while it was current, so they
// can be driven or released together. Membership is a relation: the
// manager owns the resources.
type Section struct {
	Name  string
	Flags int

	members   *roaring.Bitmap
	target    State
	hasTarget bool
}

// Len returns the number of resources tagged to the section.
func (s *Section) Len() int {
	return int(s.members.GetCardinality())
}

// TargetState returns the section's own target, if it has one.
func (s *Section) TargetState() (State, bool) {
	return s.target, s.hasTarget
}

// SetTargetState overrides the manager target for this section.
func (s *Section) SetTargetState(level State) {
	s.target = level
	s.hasTarget = true
}

// ResetTargetState makes the section follow the manager target again.
func (s *Section) ResetTargetState() {
	s.hasTarget = false
}

func (s *Section) effectiveTarget(fallback State) State {
	if s.hasTarget {
		return s.target
	}
	return fallback
}

// Section returns the section called name, creating it if needed.
func (m *Manager) Section(name string) *Section {
	if s, ok := m.sectionByName[name]; ok {
		return s
	}
	s := &Section{Name: name, members: roaring.New()}
	m.sections = append(m.sections, s)
	m.sectionByName[name] = s
	return s
}

// Sections returns every section in creation order, the default first.
func (m *Manager) Sections() []*Section {
	out := make([]*Section, len(m.sections))
	copy(out, m.sections)
	return out
}

// EnterSection makes the named section current until the matching
// LeaveSection. Sections nest.
func (m *Manager) EnterSection(name string) *Section {
	s := m.Section(name)
	m.stack = append(m.stack, s)
	return s
}

// LeaveSection restores the previously current section. Leaving with
// nothing entered is a no-op.
func (m *Manager) LeaveSection() {
	if n := len(m.stack); n > 0 {
		m.stack = m.stack[:n-1]
	}
}

// CurrentSection returns the innermost entered section or the default one.
func (m *Manager) CurrentSection() *Section {
	if n := len(m.stack); n > 0 {
		return m.stack[n-1]
	}
	return m.sectionByName[DefaultSection]
}

// ClearSection unloads every resource of s down to Created, removes
// their identities from the cache and empties the section. Transition
// failures are reported and returned combined. A resource that failed
// to reach Created stays cached and tagged to s, so a later call can
// retry it. Other sections are not touched.
func (m *Manager) ClearSection(s *Section) error {
	err := m.reconcile([]*Section{s}, func(*Section) State { return Created }, false)
	var released, kept int
	for _, idx := range members(s) {
		sl := m.slots[idx]
		if !sl.live {
			s.members.Remove(idx)
			continue
		}
		if sl.res.State() != Created {
			kept++
			continue
		}
		m.release(idx)
		released++
	}
	m.metrics.live(s)
	m.logger.WithFields(log.Fields{
		"section":  s.Name,
		"released": released,
		"kept":     kept,
	}).Debug("section cleared")
	return err
}

// Close clears every section, newest first.
func (m *Manager) Close() error {
	var err error
	for i := len(m.sections) - 1; i >= 0; i-- {
		err = multierr.Append(err, m.ClearSection(m.sections[i]))
	}
	m.stack = nil
	return err
}

// In returns a Scope that tags new resources to s without touching the
// section stack.
func (m *Manager) In(s *Section) Scope {
	return Scope{m: m, section: s}
}

// Scope is a Resolver bound to one section.
type Scope struct {
	m       *Manager
	section *Section
}

// Section returns the section resources are tagged to.
func (sc Scope) Section() *Section {
	return sc.section
}

// GetResource implements Resolver
func (sc Scope) GetResource(class Class, key string, flags Flags, providerFlags int) (Resource, error) {
	return sc.m.get(sc.section, class, key, flags, providerFlags)
}

// RegisterResource implements Resolver
func (sc Scope) RegisterResource(classes []Class, key string, res Resource) error {
	if err := sc.m.register(sc.section, classes, key, res); err != nil {
		sc.m.reporter.ReportError(err)
		return err
	}
	return nil
}

// Require implements Resolver
// A dependency the manager no longer tracks, such as one released
// with its section, is refused.
func (sc Scope) Require(dep Resource, level State) error {
	if _, ok := sc.m.index[dep]; !ok {
		return &Error{
			Kind:   TransitionFailed,
			Detail: fmt.Sprintf("dependency %T is not tracked by the manager", dep),
		}
	}
	if dep.State() >= level {
		return nil
	}
	return sc.m.Transition(dep, level)
}
