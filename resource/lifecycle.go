// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Step performs at most one transition of res toward target and tells
// whether the state changed. A failed forward transition runs the
// matching cleanup and leaves the state where it was.
func (m *Manager) Step(res Resource, target State) (bool, error) {
	if !target.Valid() {
		return false, &Error{Kind: TransitionFailed, Detail: fmt.Sprintf("invalid target %v", target)}
	}
	r, id := m.resolverFor(res)
	return m.step(r, id, res, target)
}

// Transition steps res until it reaches target or a step fails.
func (m *Manager) Transition(res Resource, target State) error {
	for res.State() != target {
		moved, err := m.Step(res, target)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
	}
	return nil
}

func (m *Manager) transitionSlot(idx uint32, target State) error {
	return m.Transition(m.slots[idx].res, target)
}

// resolverFor returns the scope of the section res belongs to, so that
// resources it pulls in while transitioning land in the same section.
func (m *Manager) resolverFor(res Resource) (Resolver, Identity) {
	if idx, ok := m.index[res]; ok {
		return m.In(m.slots[idx].section), m.identityOf(idx)
	}
	return m.In(m.CurrentSection()), Identity{}
}

func (m *Manager) step(r Resolver, id Identity, res Resource, target State) (bool, error) {
	lc := res.lifecycle()
	cur := lc.state

	switch {
	case cur == Created && target > Created:
		if !lc.bound {
			if b, ok := res.(DependencyBinder); ok {
				err := b.BindDependencies(r)
				m.metrics.transition(OpBind, err)
				if err != nil {
					return false, failed(OpBind, id, err)
				}
			}
			lc.bound = true
		}
		err := res.Preload(r)
		m.metrics.transition(OpPreload, err)
		if err != nil {
			m.cleanup(OpUnload, id, res.Unload(r))
			return false, failed(OpPreload, id, err)
		}
		lc.state = Preloaded

	case cur == Preloaded && target > Preloaded:
		err := res.Realize(r)
		m.metrics.transition(OpRealize, err)
		if err != nil {
			m.cleanup(OpUnrealize, id, res.Unrealize(r))
			return false, failed(OpRealize, id, err)
		}
		lc.state = Realized

	case cur == Realized && target < Realized:
		err := res.Unrealize(r)
		m.metrics.transition(OpUnrealize, err)
		if err != nil {
			return false, failed(OpUnrealize, id, err)
		}
		lc.state = Preloaded

	case cur == Preloaded && target < Preloaded:
		err := res.Unload(r)
		m.metrics.transition(OpUnload, err)
		if err != nil {
			return false, failed(OpUnload, id, err)
		}
		lc.state = Created
		// dependencies are looked up again on the way back up
		lc.bound = false

	default:
		return false, nil
	}

	m.logger.WithFields(log.Fields{
		"class": id.Class,
		"key":   id.Key,
		"state": lc.state,
	}).Debug("resource transitioned")
	return true, nil
}

// cleanup logs a failed best-effort release after a failed forward step.
func (m *Manager) cleanup(op Op, id Identity, err error) {
	if err == nil {
		return
	}
	m.logger.WithError(err).WithFields(log.Fields{
		"class": id.Class,
		"key":   id.Key,
		"op":    op,
	}).Warn("cleanup after failed transition")
}

func failed(op Op, id Identity, err error) error {
	return &Error{Kind: TransitionFailed, Op: op, Identity: id, Err: err}
}
