// Package unit models a compilation unit: a set of sources compiled together
// under one language, flag and define configuration into one artifact.
package unit

import (
	"strings"

	"github.com/specialistvlad/llamabuild/internal/link"
)

// Language of a unit's sources.
type Language int

const (
	C Language = iota
	CXX
	CUDA
)

func (l Language) String() string {
	switch l {
	case C:
		return "c"
	case CXX:
		return "c++"
	case CUDA:
		return "cuda"
	}
	return "unknown"
}

// Kind is the artifact a unit compiles to.
type Kind int

const (
	// Static is an archive of object files.
	Static Kind = iota
	// Shared is a shared library.
	Shared
)

func (k Kind) String() string {
	if k == Shared {
		return "shared"
	}
	return "static"
}

// Define is a preprocessor macro. A nil Value defines the name without a
// value.
type Define struct {
	Name  string
	Value *string
}

// Def is a convenience constructor for a valueless define.
func Def(name string) Define { return Define{Name: name} }

// DefValue is a convenience constructor for a define with a value.
func DefValue(name, value string) Define { return Define{Name: name, Value: &value} }

// ParseDefine reads "NAME" or "NAME=VALUE".
func ParseDefine(s string) Define {
	if name, value, ok := strings.Cut(s, "="); ok {
		return DefValue(name, value)
	}
	return Def(s)
}

func (d Define) String() string {
	if d.Value == nil {
		return d.Name
	}
	return d.Name + "=" + *d.Value
}

// Unit is assembled by the pipeline from resolved flags and the backend plan
// and consumed by a toolchain driver.
type Unit struct {
	Name     string
	Language Language
	Kind     Kind

	Sources     []string
	IncludeDirs []string
	Defines     []Define
	Flags       []string

	// Objects are already-compiled object files linked into the artifact.
	Objects []string
	// Links are libraries the artifact itself links against. Only shared
	// artifacts use them.
	Links []link.Directive
}

// New returns an empty unit.
func New(name string, lang Language, kind Kind) *Unit {
	return &Unit{Name: name, Language: lang, Kind: kind}
}

// AddSources appends sources in order.
func (u *Unit) AddSources(paths ...string) *Unit {
	u.Sources = append(u.Sources, paths...)
	return u
}

// AddIncludeDirs appends include directories, skipping ones already present.
func (u *Unit) AddIncludeDirs(dirs ...string) *Unit {
	for _, d := range dirs {
		if !contains(u.IncludeDirs, d) {
			u.IncludeDirs = append(u.IncludeDirs, d)
		}
	}
	return u
}

// AddDefines appends defines. A later define with the same name replaces
// the earlier one in place.
func (u *Unit) AddDefines(defs ...Define) *Unit {
outer:
	for _, d := range defs {
		for i := range u.Defines {
			if u.Defines[i].Name == d.Name {
				u.Defines[i] = d
				continue outer
			}
		}
		u.Defines = append(u.Defines, d)
	}
	return u
}

// AddFlags appends flags in order.
func (u *Unit) AddFlags(flags ...string) *Unit {
	u.Flags = append(u.Flags, flags...)
	return u
}

// AddObjects appends pre-compiled objects.
func (u *Unit) AddObjects(objs ...string) *Unit {
	u.Objects = append(u.Objects, objs...)
	return u
}

// AddLinks appends link directives.
func (u *Unit) AddLinks(ds ...link.Directive) *Unit {
	u.Links = append(u.Links, ds...)
	return u
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
