package display

import (
	"strings"

	"golang.org/x/text/cases"
)

// classFilter is a case-folded set of class names.
type classFilter struct {
	names map[string]struct{}
}

func newClassFilter(classes []string) classFilter {
	f := classFilter{names: make(map[string]struct{}, len(classes))}
	fold := cases.Fold()
	for _, c := range classes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		f.names[fold.String(c)] = struct{}{}
	}
	return f
}

func (f classFilter) contains(name string) bool {
	if len(f.names) == 0 || name == "" {
		return false
	}
	_, ok := f.names[cases.Fold().String(name)]
	return ok
}
