// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"github.com/RoaringBitmap/roaring/v2"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// MakeAllResourcesState drives every tracked resource to level.
//
// With failFast the first failure is returned and the call stops.
// Otherwise every failure is reported, the failed resource is left at
// its last good state and skipped for the rest of the call, and all
// failures are returned combined.
func (m *Manager) MakeAllResourcesState(level State, failFast bool) error {
	return m.reconcile(nil, func(*Section) State { return level }, failFast)
}

// MakeAllResourcesTargetState drives every section to its own target,
// or to the manager target when the section has none.
func (m *Manager) MakeAllResourcesTargetState(failFast bool) error {
	return m.reconcile(nil, func(s *Section) State { return s.effectiveTarget(m.target) }, failFast)
}

// MakeResourcesInSectionState drives the members of s to level.
func (m *Manager) MakeResourcesInSectionState(s *Section, level State, failFast bool) error {
	return m.reconcile([]*Section{s}, func(*Section) State { return level }, failFast)
}

// MakeResourcesInSectionTargetState drives the members of s to the
// section target, or to the manager target when the section has none.
func (m *Manager) MakeResourcesInSectionTargetState(s *Section, failFast bool) error {
	return m.MakeResourcesInSectionState(s, s.effectiveTarget(m.target), failFast)
}

// reconcile runs breadth-wise passes over the given sections, or over
// all of them when sections is nil. Each pass moves every resource that
// is not at its target by one step, so siblings are preloaded before
// any of them is realized. Resources created during a pass are picked
// up by the next one; the call ends after a pass without moves.
func (m *Manager) reconcile(sections []*Section, targetOf func(*Section) State, failFast bool) error {
	start := m.clock.Now()
	defer func() {
		m.metrics.Reconcile.Observe(m.clock.Since(start).Seconds())
	}()

	var (
		errs   error
		failed = roaring.New()
		passes int
		steps  int
	)
	for {
		scope := sections
		if scope == nil {
			scope = m.Sections()
		}

		moved := false
		for _, s := range scope {
			target := targetOf(s)
			if !target.Valid() {
				return &Error{Kind: TransitionFailed, Detail: "invalid target " + target.String()}
			}
			for _, idx := range members(s) {
				if failed.Contains(idx) || !m.slots[idx].live {
					continue
				}
				res := m.slots[idx].res
				if res.State() == target {
					continue
				}
				ok, err := m.Step(res, target)
				if err != nil {
					if failFast {
						return err
					}
					m.reporter.ReportError(err)
					errs = multierr.Append(errs, err)
					failed.Add(idx)
					continue
				}
				if ok {
					moved = true
					steps++
				}
			}
		}
		passes++
		if !moved {
			break
		}
	}

	m.logger.WithFields(log.Fields{
		"passes": passes,
		"steps":  steps,
		"failed": failed.GetCardinality(),
	}).Debug("reconciled")
	return errs
}
