package language

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	rustMainRe = regexp.MustCompile(`fn\s*main\s*\(\s*\)`)
	cMainRe    = regexp.MustCompile(`int\s*main\s*\(.*\)`)
	ponyMainRe = regexp.MustCompile(`actor\s*Main\s*new\s*create\s*\(\s*env\s*:\s*Env\s*\)\s*=>`)
)

// rust compiles with rustc.
type rust struct{ base }

func newRust() rust {
	return rust{base{name: "Rust", codes: []string{"rs", "rust"}, ext: ".rs", image: "rust", probe: Step{"rustc", "--version"}}}
}

func (rust) Preprocess(code, _ string) (string, bool) {
	if rustMainRe.MatchString(code) {
		return "", false
	}
	return fmt.Sprintf("fn main() {\r\n%s\r\n}", code), true
}

func (rust) CompileCommand(src, out string) Command {
	return Command{{"rustc", src, "-o", out}}
}

// c compiles with gcc.
type c struct{ base }

func newC() c {
	return c{base{name: "C", codes: []string{"c"}, ext: ".c", image: "c", probe: Step{"gcc", "--version"}}}
}

func (c) Preprocess(code, _ string) (string, bool) {
	if cMainRe.MatchString(code) {
		return "", false
	}
	return fmt.Sprintf("#include <stdio.h>\r\n#include <stdlib.h>\r\nint main(int argc, char** argv) {\r\n%s\r\n}", code), true
}

func (c) CompileCommand(src, out string) Command {
	return Command{{"gcc", src, "-o", out}}
}

type cpp struct{ base }

func newCpp() cpp {
	return cpp{base{name: "C++", codes: []string{"cpp", "c++"}, ext: ".cpp", image: "cpp", probe: Step{"g++", "--version"}}}
}

func (cpp) Preprocess(code, _ string) (string, bool) {
	if cMainRe.MatchString(code) {
		return "", false
	}
	return fmt.Sprintf("#include <iostream>\r\nint main(int argc, char* argv[]) {\r\n%s\r\n}", code), true
}

func (cpp) CompileCommand(src, out string) Command {
	return Command{{"g++", src, "-o", out}}
}

type golang struct{ base }

func newGo() golang {
	return golang{base{name: "Go", codes: []string{"go", "golang"}, ext: ".go", image: "go", probe: Step{"go", "version"}}}
}

func (golang) CompileCommand(src, out string) Command {
	return Command{{"go", "build", "-o", out, src}}
}

type haskell struct{ base }

func newHaskell() haskell {
	return haskell{base{name: "Haskell", codes: []string{"hs", "haskell"}, ext: ".hs", image: "haskell", probe: Step{"ghc", "--version"}}}
}

func (haskell) CompileCommand(src, out string) Command {
	return Command{{"ghc", "-o", out, src}}
}

// asm32 assembles 32-bit x86 with nasm and links with ld.
type asm32 struct{ base }

func newAsm32() asm32 {
	return asm32{base{name: "Asm32", codes: []string{"asmx86", "asm_x86"}, ext: ".asm", image: "asm32", probe: Step{"nasm", "-v"}}}
}

func (asm32) CompileCommand(src, out string) Command {
	obj := objectPath(src)
	return Command{
		{"nasm", "-f", "elf32", src, "-o", obj},
		{"ld", "-melf_i386", obj, "-o", out},
	}
}

// asm64 assembles 64-bit x86 with nasm and links with ld.
type asm64 struct{ base }

func newAsm64() asm64 {
	return asm64{base{
		name:  "Asm64",
		codes: []string{"asmx64", "asm_x64", "asm_x86_64", "asmx86_64"},
		ext:   ".asm",
		image: "asm64",
		probe: Step{"nasm", "-v"},
	}}
}

func (asm64) CompileCommand(src, out string) Command {
	obj := objectPath(src)
	return Command{
		{"nasm", "-f", "elf64", src, "-o", obj},
		{"ld", obj, "-o", out},
	}
}

func objectPath(src string) string {
	return path.Join(path.Dir(src), stem(src)+".o")
}

// pony compiles the directory holding the source. ponyc names the binary
// after that directory.
type pony struct{ base }

func newPony() pony {
	return pony{base{name: "Pony", codes: []string{"pony"}, ext: ".pony", image: "pony", probe: Step{"ponyc", "--version"}}}
}

func (pony) Preprocess(code, _ string) (string, bool) {
	if ponyMainRe.MatchString(code) {
		return "", false
	}
	body := strings.ReplaceAll(code, "\n", "\n    ")
	return fmt.Sprintf("actor Main\r\n  new create(env: Env) =>\r\n    %s\r\n", body), true
}

func (pony) OutputPath(src string) string {
	dir := path.Dir(src)
	return path.Join(dir, path.Base(dir))
}

func (pony) CompileCommand(src, _ string) Command {
	dir := path.Dir(src)
	return Command{{"ponyc", dir, "-o", dir, "-V", "0"}}
}

type apl struct{ base }

func newApl() apl {
	return apl{base{name: "APL", codes: []string{"apl"}, ext: ".apl", image: "apl", probe: Step{"aplc", "--version"}}}
}

func (apl) CompileCommand(src, out string) Command {
	return Command{{"aplc", "-o", out, src}}
}
