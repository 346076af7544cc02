// Package flags holds the baseline compiler flags for each operating system.
package flags

import "github.com/specialistvlad/llamabuild/internal/target"

var (
	posixC = []string{
		"-std=c11", "-Wall", "-Wextra", "-Wpedantic", "-Wcast-qual",
		"-Wdouble-promotion", "-Wshadow", "-Wstrict-prototypes", "-Wpointer-arith",
		"-pthread", "-march=native", "-mtune=native",
	}
	posixCXX = []string{
		"-std=c++11", "-Wall", "-Wdeprecated-declarations", "-Wunused-but-set-variable",
		"-Wextra", "-Wpedantic", "-Wcast-qual", "-Wno-unused-function", "-Wno-multichar",
		"-fPIC", "-pthread", "-march=native", "-mtune=native",
	}
	// Shared by C and C++.
	msvc = []string{"/W4", "/Wall", "/wd4820", "/wd4710", "/wd4711", "/wd4820", "/wd4514"}
)

// Resolve returns the C and C++ flags for os. Unknown systems get empty
// lists; whether they can be built at all is decided by the pipeline. The
// returned slices are copies.
func Resolve(os target.OS) (c, cxx []string) {
	switch {
	case os.POSIX():
		return clone(posixC), clone(posixCXX)
	case os == target.Windows:
		return clone(msvc), clone(msvc)
	}
	return []string{}, []string{}
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
