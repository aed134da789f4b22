package objects

import (
	"image/color"
	"strings"
)

// classSeparator joins the parts of a derived class name.
const classSeparator = ": "

// Class is an object classification. A derived class extends its parent
// with one more part, so "Tumor: Positive" has parts ["Tumor", "Positive"].
type Class struct {
	name   string
	color  color.RGBA
	parent *Class
}

// NewClass creates a base class.
func NewClass(name string, c color.RGBA) *Class {
	return &Class{name: name, color: c}
}

// Derive creates a class one level below c.
func (c *Class) Derive(name string, col color.RGBA) *Class {
	return &Class{name: name, color: col, parent: c}
}

// ParseClass builds a class chain from a name such as "Tumor: Positive".
// Every part gets the same color.
func ParseClass(name string, col color.RGBA) *Class {
	var c *Class
	for _, part := range strings.Split(name, classSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if c == nil {
			c = NewClass(part, col)
		} else {
			c = c.Derive(part, col)
		}
	}
	return c
}

// Name returns the last part of the class name.
func (c *Class) Name() string { return c.name }

// Color returns the class display color.
func (c *Class) Color() color.RGBA { return c.color }

// Parent returns the class this one derives from, or nil.
func (c *Class) Parent() *Class { return c.parent }

// Parts returns the name parts from the base class down to c. A nil class
// has no parts.
func (c *Class) Parts() []string {
	var parts []string
	for p := c; p != nil; p = p.parent {
		parts = append(parts, p.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return parts
}

// NumParts is len(c.Parts()) without allocating.
func (c *Class) NumParts() int {
	n := 0
	for p := c; p != nil; p = p.parent {
		n++
	}
	return n
}

func (c *Class) String() string {
	if c == nil {
		return ""
	}
	return strings.Join(c.Parts(), classSeparator)
}

// IsRegion reports whether the class is one of the reserved "Region"
// classes used for large tissue outlines that are never filled.
func (c *Class) IsRegion() bool {
	if c == nil {
		return false
	}
	base := c
	for base.parent != nil {
		base = base.parent
	}
	return strings.HasPrefix(base.name, "Region")
}
