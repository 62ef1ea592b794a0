package core

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/devblok/korures/resource"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// ManifestEntry names one resource to load into a section.
type ManifestEntry struct {
	Section string
	Class   resource.Class
	Key     string
}

// ParseManifest reads lines of "class key". A line "[name]" starts a
// section, "[]" returns to the default one. Blank lines and lines
// starting with '#' are skipped.
func ParseManifest(r io.Reader) ([]ManifestEntry, error) {
	var (
		entries []ManifestEntry
		section = resource.DefaultSection
		sc      = bufio.NewScanner(r)
		line    int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		switch {
		case text == "" || strings.HasPrefix(text, "#"):
			continue
		case strings.HasPrefix(text, "["):
			if !strings.HasSuffix(text, "]") {
				return nil, fmt.Errorf("core: manifest line %d: unterminated section", line)
			}
			section = strings.TrimSpace(text[1 : len(text)-1])
			continue
		}
		class, key, ok := strings.Cut(text, " ")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("core: manifest line %d: want \"class key\"", line)
		}
		entries = append(entries, ManifestEntry{Section: section, Class: resource.Class(class), Key: key})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Load creates every entry in its section and reconciles. With fail
// fast off every entry is attempted and all errors are returned.
func (e *Engine) Load(entries []ManifestEntry) error {
	var errs error
	for _, entry := range entries {
		scope := e.Manager.In(e.Manager.Section(entry.Section))
		_, err := scope.GetResource(entry.Class, entry.Key, resource.Required, 0)
		if err != nil {
			if e.Config.Resources.FailFast {
				return err
			}
			e.Logger.WithFields(log.Fields{
				"section": entry.Section,
				"class":   entry.Class,
				"key":     entry.Key,
			}).WithError(err).Warn("manifest entry not loaded")
			errs = multierr.Append(errs, err)
		}
	}
	return multierr.Append(errs, e.Reconcile())
}
