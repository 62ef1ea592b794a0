// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"errors"

	log "github.com/sirupsen/logrus"
)

// Reporter is the process wide error channel. The manager reports the
// problems it detects itself and, in continue-on-error mode, every
// failed transition.
type Reporter interface {
	ReportError(err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err error)

// ReportError implements interface
func (f ReporterFunc) ReportError(err error) {
	f(err)
}

// LogReporter writes reported errors to a logrus logger.
type LogReporter struct {
	Logger log.FieldLogger
}

// ReportError implements interface
func (r LogReporter) ReportError(err error) {
	logger := r.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	entry := logger.WithError(err)
	var rerr *Error
	if errors.As(err, &rerr) {
		entry = entry.WithField("kind", rerr.Kind.String())
		if rerr.Identity != (Identity{}) {
			entry = entry.WithFields(log.Fields{
				"class": rerr.Identity.Class,
				"key":   rerr.Identity.Key,
			})
		}
		if rerr.Op != "" {
			entry = entry.WithField("op", rerr.Op)
		}
	}
	entry.Error("resource error")
}
