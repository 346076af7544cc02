// Package target models what one build invocation produces: the operating
// system the native library is compiled for and the single acceleration
// backend compiled into it.
package target

import (
	"sort"
	"strings"

	"github.com/specialistvlad/llamabuild/internal/builderr"
)

// OS is a GOOS-style operating system name.
type OS string

const (
	Linux   OS = "linux"
	Darwin  OS = "darwin"
	Windows OS = "windows"
)

// Supported reports whether the pipeline knows how to build for o.
func (o OS) Supported() bool {
	switch o {
	case Linux, Darwin, Windows:
		return true
	}
	return false
}

// POSIX reports whether o uses the GNU/Clang style toolchain.
func (o OS) POSIX() bool {
	return o == Linux || o == Darwin
}

// Backend is the acceleration strategy compiled into the library. The zero
// value is None.
type Backend int

const (
	None Backend = iota
	OpenBLAS
	BLIS
	OpenCLCLBlast
	Metal
	CUDA
)

var backendNames = map[Backend]string{
	None:          "none",
	OpenBLAS:      "openblas",
	BLIS:          "blis",
	OpenCLCLBlast: "opencl",
	Metal:         "metal",
	CUDA:          "cuda",
}

// aliases accepted on the command line in addition to the canonical names.
var backendAliases = map[string]Backend{
	"clblast": OpenCLCLBlast,
	"cublas":  CUDA,
}

func (b Backend) String() string {
	if n, ok := backendNames[b]; ok {
		return n
	}
	return "unknown"
}

// BackendNames lists the canonical backend names in declaration order.
func BackendNames() []string {
	names := make([]string, 0, len(backendNames))
	for b := None; b <= CUDA; b++ {
		names = append(names, backendNames[b])
	}
	return names
}

// ParseBackend maps a single backend name to its Backend.
func ParseBackend(name string) (Backend, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for b, canonical := range backendNames {
		if canonical == n {
			return b, nil
		}
	}
	if b, ok := backendAliases[n]; ok {
		return b, nil
	}
	return None, builderr.Configuration("unknown backend %q (known: %s)", name, strings.Join(BackendNames(), ", "))
}

// SelectBackend turns the caller's requested backends into exactly one
// Backend. An empty request selects None. Requesting two different backends
// is a configuration error. Duplicates count once and "none" is ignored
// next to a real backend.
func SelectBackend(requested []string) (Backend, error) {
	seen := make(map[Backend]struct{})
	for _, name := range requested {
		if strings.TrimSpace(name) == "" {
			continue
		}
		b, err := ParseBackend(name)
		if err != nil {
			return None, err
		}
		seen[b] = struct{}{}
	}
	// "none" next to a real backend is still a single backend.
	if len(seen) > 1 {
		delete(seen, None)
	}

	switch len(seen) {
	case 0:
		return None, nil
	case 1:
		for b := range seen {
			return b, nil
		}
	}

	names := make([]string, 0, len(seen))
	for b := range seen {
		names = append(names, b.String())
	}
	sort.Strings(names)
	return None, builderr.Configuration("backends are mutually exclusive, got %s", strings.Join(names, " and "))
}

// BuildTarget is immutable for the duration of one build.
type BuildTarget struct {
	OS      OS
	Backend Backend
}

// New validates and constructs a BuildTarget. It performs no I/O.
func New(os string, requested []string) (BuildTarget, error) {
	b, err := SelectBackend(requested)
	if err != nil {
		return BuildTarget{}, err
	}
	t := BuildTarget{OS: OS(os), Backend: b}
	if err := t.Validate(); err != nil {
		return BuildTarget{}, err
	}
	return t, nil
}

// Validate checks the combination of OS and backend.
func (t BuildTarget) Validate() error {
	if !t.OS.Supported() {
		return builderr.Configuration("unsupported operating system %q", t.OS)
	}
	if _, ok := backendNames[t.Backend]; !ok {
		return builderr.Configuration("unknown backend %d", int(t.Backend))
	}
	if t.Backend == Metal && t.OS != Darwin {
		return builderr.Configuration("metal backend requires darwin, target is %s", t.OS)
	}
	return nil
}

func (t BuildTarget) String() string {
	return string(t.OS) + "/" + t.Backend.String()
}
