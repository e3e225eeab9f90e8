package unpackqa

import (
	"slices"
	"strings"
)

// FlagSelector chooses which flags an unpack operation decodes.
//
// The zero value selects all flags, like All().
type FlagSelector struct {
	names []string
	named bool
}

// All selects every flag of the product, in registry order.
func All() FlagSelector {
	return FlagSelector{}
}

// Named selects the given flags, in the given order.
func Named(names ...string) FlagSelector {
	return FlagSelector{names: slices.Clone(names), named: true}
}

// IsAll reports whether the selector selects every flag.
func (s FlagSelector) IsAll() bool { return !s.named }

// Names returns the explicitly requested names, or nil for All.
func (s FlagSelector) Names() []string { return slices.Clone(s.names) }

func (s FlagSelector) String() string {
	if !s.named {
		return "all"
	}
	return "[" + strings.Join(s.names, ", ") + "]"
}

// ParseSelector turns "all" or a comma-separated list into a selector.
func ParseSelector(s string) FlagSelector {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return All()
	}
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return Named(names...)
}
