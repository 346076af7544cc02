// Package metal embeds the Metal shader source into the Metal runtime so the
// built library has no runtime dependency on the .metal file.
package metal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/llamabuild/internal/builderr"
)

// RuntimeLoadExpression is the statement in ggml-metal.m that reads the
// shader from disk at runtime. It must appear verbatim for the patch to
// apply.
const RuntimeLoadExpression = `NSString * src = [NSString stringWithContentsOfFile:sourcePath encoding:NSUTF8StringEncoding error:&error];`

// PatchInvariantError reports that the runtime source no longer contains
// the expression the patch replaces.
type PatchInvariantError struct {
	File     string
	Expected string
}

func (e *PatchInvariantError) Error() string {
	return fmt.Sprintf("%s: %s does not contain the expression to be replaced (%q); "+
		"the upstream source changed and the shader embedding patch must be re-investigated by a maintainer",
		builderr.ErrPatchInvariant, e.File, e.Expected)
}

func (e *PatchInvariantError) Unwrap() error { return builderr.ErrPatchInvariant }

// escaper turns text into the body of an Objective-C string literal.
// Backslash goes first so later substitutions are not escaped twice.
var escaper = []struct{ old, new string }{
	{`\`, `\\`},
	{"\n", `\n`},
	{"\r", `\r`},
	{`"`, `\"`},
}

// Escape returns s escaped for use inside a string literal.
func Escape(s string) string {
	for _, r := range escaper {
		s = strings.ReplaceAll(s, r.old, r.new)
	}
	return s
}

// Patch replaces every runtime shader load in runtime with an assignment of
// the escaped shader text.
func Patch(runtime, shader, file string) (string, error) {
	if !strings.Contains(runtime, RuntimeLoadExpression) {
		return "", &PatchInvariantError{File: file, Expected: RuntimeLoadExpression}
	}
	literal := `NSString * src  = @"` + Escape(shader) + `";`
	return strings.ReplaceAll(runtime, RuntimeLoadExpression, literal), nil
}

// EmbedShader writes a copy of runtimePath to outputPath with shaderPath
// inlined, and returns outputPath. runtimePath is never modified. When the
// patch target is missing nothing is written and a patched file left by an
// earlier build is removed.
func EmbedShader(shaderPath, runtimePath, outputPath string) (string, error) {
	shader, err := os.ReadFile(shaderPath)
	if err != nil {
		return "", builderr.Filesystem("read", shaderPath, err)
	}
	runtime, err := os.ReadFile(runtimePath)
	if err != nil {
		return "", builderr.Filesystem("read", runtimePath, err)
	}

	patched, err := Patch(string(runtime), string(shader), runtimePath)
	if err != nil {
		if rmErr := os.Remove(outputPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return "", errors.Join(err, builderr.Filesystem("remove", outputPath, rmErr))
		}
		return "", err
	}

	if err := writeFileAtomic(outputPath, []byte(patched)); err != nil {
		return "", err
	}
	return outputPath, nil
}

// writeFileAtomic writes through a temporary file in the same directory so
// an interrupted write never leaves a partial output behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return builderr.Filesystem("mkdir", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return builderr.Filesystem("create", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return builderr.Filesystem("write", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return builderr.Filesystem("close", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return builderr.Filesystem("chmod", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return builderr.Filesystem("rename", path, err)
	}
	return nil
}
