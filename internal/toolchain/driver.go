package toolchain

import (
	"github.com/specialistvlad/llamabuild/internal/link"
	"github.com/specialistvlad/llamabuild/internal/target"
	"github.com/specialistvlad/llamabuild/internal/unit"
)

// Tools names the executables a driver invokes.
type Tools struct {
	CC   string
	CXX  string
	AR   string
	NVCC string
	// Link is the MSVC linker; GNU-style drivers link through CXX.
	Link string
}

// DefaultTools returns the conventional tool names for os.
func DefaultTools(os target.OS) Tools {
	if os == target.Windows {
		return Tools{CC: "cl", CXX: "cl", AR: "lib", NVCC: "nvcc", Link: "link"}
	}
	return Tools{CC: "cc", CXX: "c++", AR: "ar", NVCC: "nvcc"}
}

// driver knows one family of command lines.
type driver interface {
	objectExt() string
	staticName(name string) string
	sharedName(name string) string
	compile(u *unit.Unit, src, obj string) Command
	archive(out string, objs []string) Command
	linkShared(u *unit.Unit, out string, objs []string) Command
}

func newDriver(os target.OS, tools Tools, optLevel string) driver {
	if os == target.Windows {
		return &msvc{tools: tools, opt: optLevel}
	}
	return &gnu{os: os, tools: tools, opt: optLevel}
}

// nvccCompile is shared by both drivers: nvcc takes GNU-style arguments on
// every platform.
func nvccCompile(tools Tools, opt string, u *unit.Unit, src, obj string) Command {
	args := []string{}
	if opt != "" {
		args = append(args, "-O"+opt)
	}
	args = append(args, u.Flags...)
	for _, d := range u.IncludeDirs {
		args = append(args, "-I"+d)
	}
	for _, d := range u.Defines {
		args = append(args, "-D"+d.String())
	}
	args = append(args, "-c", src, "-o", obj)
	return Command{Path: tools.NVCC, Args: args}
}

// gnu drives gcc/clang style compilers with ar.
type gnu struct {
	os    target.OS
	tools Tools
	opt   string
}

func (g *gnu) objectExt() string             { return ".o" }
func (g *gnu) staticName(name string) string { return "lib" + name + ".a" }

func (g *gnu) sharedName(name string) string {
	if g.os == target.Darwin {
		return "lib" + name + ".dylib"
	}
	return "lib" + name + ".so"
}

func (g *gnu) compile(u *unit.Unit, src, obj string) Command {
	path := g.tools.CC
	switch u.Language {
	case unit.CXX:
		path = g.tools.CXX
	case unit.CUDA:
		return nvccCompile(g.tools, g.opt, u, src, obj)
	}

	var args []string
	if g.opt != "" {
		args = append(args, "-O"+g.opt)
	}
	// Core objects end up inside the shared binding library.
	if !containsFlag(u.Flags, "-fPIC") {
		args = append(args, "-fPIC")
	}
	args = append(args, u.Flags...)
	for _, d := range u.IncludeDirs {
		args = append(args, "-I"+d)
	}
	for _, d := range u.Defines {
		args = append(args, "-D"+d.String())
	}
	args = append(args, "-c", src, "-o", obj)
	return Command{Path: path, Args: args}
}

func (g *gnu) archive(out string, objs []string) Command {
	return Command{Path: g.tools.AR, Args: append([]string{"crs", out}, objs...)}
}

func (g *gnu) linkShared(u *unit.Unit, out string, objs []string) Command {
	args := []string{"-shared", "-o", out}
	args = append(args, objs...)
	args = append(args, link.Flags(g.os, u.Links)...)
	return Command{Path: g.tools.CXX, Args: args}
}

// msvc drives cl.exe, lib.exe and link.exe.
type msvc struct {
	tools Tools
	opt   string
}

func (m *msvc) objectExt() string             { return ".obj" }
func (m *msvc) staticName(name string) string { return name + ".lib" }
func (m *msvc) sharedName(name string) string { return name + ".dll" }

func (m *msvc) compile(u *unit.Unit, src, obj string) Command {
	if u.Language == unit.CUDA {
		return nvccCompile(m.tools, m.opt, u, src, obj)
	}

	args := []string{"/nologo", "/c"}
	if m.opt != "" && m.opt != "0" {
		args = append(args, "/O2")
	}
	if u.Language == unit.CXX {
		args = append(args, "/EHsc")
	}
	args = append(args, u.Flags...)
	for _, d := range u.IncludeDirs {
		args = append(args, "/I"+d)
	}
	for _, d := range u.Defines {
		args = append(args, "/D"+d.String())
	}
	args = append(args, "/Fo"+obj, src)
	path := m.tools.CC
	if u.Language == unit.CXX {
		path = m.tools.CXX
	}
	return Command{Path: path, Args: args}
}

func (m *msvc) archive(out string, objs []string) Command {
	return Command{Path: m.tools.AR, Args: append([]string{"/nologo", "/OUT:" + out}, objs...)}
}

func (m *msvc) linkShared(u *unit.Unit, out string, objs []string) Command {
	args := []string{"/nologo", "/DLL", "/OUT:" + out}
	args = append(args, objs...)
	args = append(args, link.Flags(target.Windows, u.Links)...)
	return Command{Path: m.tools.Link, Args: args}
}

func containsFlag(flags []string, f string) bool {
	for _, x := range flags {
		if x == f {
			return true
		}
	}
	return false
}
