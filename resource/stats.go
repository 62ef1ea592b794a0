// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// DumpStatistics describes the manager for operators. The format is
// not stable.
func (m *Manager) DumpStatistics() string {
	var b strings.Builder

	classes := make([]Class, 0, len(m.buckets))
	for _, bk := range m.buckets {
		classes = append(classes, bk.class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	b.WriteString("providers:\n")
	for _, class := range classes {
		bk := m.buckets[m.bucketIndex[class]]
		if bk.provider == nil {
			continue
		}
		name := fmt.Sprintf("%T", bk.provider)
		if namer, ok := bk.provider.(ClassNamer); ok {
			name = namer.ClassName(class)
		}
		fmt.Fprintf(&b, "  %-16s %s\n", class, name)
	}

	b.WriteString("resources:\n")
	for _, class := range classes {
		bk := m.buckets[m.bucketIndex[class]]
		var bytes uint64
		for _, idx := range bk.entries {
			if mu, ok := m.slots[idx].res.(MemoryUser); ok {
				bytes += mu.MemoryUsage()
			}
		}
		fmt.Fprintf(&b, "  %-16s %d (%s)\n", class, len(bk.entries), humanize.Bytes(bytes))
	}

	var (
		states  [Realized + 1]int
		private int
	)
	for _, sl := range m.slots {
		if !sl.live {
			continue
		}
		states[sl.res.State()]++
		if sl.private {
			private++
		}
	}
	fmt.Fprintf(&b, "states: %s=%d %s=%d %s=%d private=%d target=%s\n",
		Created, states[Created], Preloaded, states[Preloaded], Realized, states[Realized],
		private, m.target)

	b.WriteString("sections:\n")
	for _, s := range m.sections {
		name := fmt.Sprintf("%q", s.Name)
		if s.Name == DefaultSection {
			name += " (default)"
		}
		fmt.Fprintf(&b, "  %-16s %d", name, s.Len())
		if t, ok := s.TargetState(); ok {
			fmt.Fprintf(&b, " target=%s", t)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
