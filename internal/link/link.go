// Package link describes what the final link step has to add and renders
// those directives for the consumer of the built library.
package link

import (
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/llamabuild/internal/target"
)

// Kind is how a library is linked.
type Kind int

const (
	Dynamic Kind = iota
	Framework
	Static
)

func (k Kind) String() string {
	switch k {
	case Dynamic:
		return "dylib"
	case Framework:
		return "framework"
	case Static:
		return "static"
	}
	return "unknown"
}

// Directive is one library the final link must include, with the
// directories searched for it.
type Directive struct {
	Name        string
	Kind        Kind
	SearchPaths []string
}

// Lib is a dynamic library directive.
func Lib(name string, searchPaths ...string) Directive {
	return Directive{Name: name, Kind: Dynamic, SearchPaths: searchPaths}
}

// FrameworkOf is a macOS framework directive.
func FrameworkOf(name string) Directive {
	return Directive{Name: name, Kind: Framework}
}

func (d Directive) String() string {
	return d.Kind.String() + "=" + d.Name
}

// SearchPaths returns the search paths of ds in first-seen order without
// duplicates.
func SearchPaths(ds []Directive) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, d := range ds {
		for _, p := range d.SearchPaths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Flags renders ds as linker arguments for os: search paths first, then the
// libraries in directive order.
func Flags(os target.OS, ds []Directive) []string {
	var out []string
	if os == target.Windows {
		for _, p := range SearchPaths(ds) {
			out = append(out, "/LIBPATH:"+p)
		}
		for _, d := range ds {
			if d.Kind == Framework {
				continue
			}
			out = append(out, d.Name+".lib")
		}
		return out
	}

	for _, p := range SearchPaths(ds) {
		out = append(out, "-L"+p)
	}
	for _, d := range ds {
		switch d.Kind {
		case Framework:
			out = append(out, "-framework", d.Name)
		default:
			out = append(out, "-l"+d.Name)
		}
	}
	return out
}

// Format selects how Emit renders directives.
type Format string

const (
	// FormatFlags writes one linker argument per line.
	FormatFlags Format = "flags"
	// FormatCgo writes a single "#cgo LDFLAGS:" line for the Go binding
	// package.
	FormatCgo Format = "cgo"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatFlags, FormatCgo:
		return Format(s), nil
	}
	return "", fmt.Errorf("invalid link format %q: must be %q or %q", s, FormatFlags, FormatCgo)
}

// Emit writes ds to w in the requested format.
func Emit(w io.Writer, f Format, os target.OS, ds []Directive) error {
	args := Flags(os, ds)
	switch f {
	case FormatCgo:
		constraint := string(os)
		_, err := fmt.Fprintf(w, "// #cgo %s LDFLAGS: %s\n", constraint, strings.Join(quoteCgo(args), " "))
		return err
	case FormatFlags, "":
		for _, a := range args {
			if _, err := fmt.Fprintln(w, a); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("invalid link format %q", f)
}

// quoteCgo quotes arguments containing spaces the way cgo directives expect.
func quoteCgo(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		out[i] = a
	}
	return out
}
