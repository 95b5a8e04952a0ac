package language

import (
	"path"
	"strings"
)

// ImagePrefix is prepended to every sandbox image tag built for a language.
const ImagePrefix = "snipbox-"

// logoBaseURL hosts one PNG per language, named after the lowercased language name.
const logoBaseURL = "https://raw.githubusercontent.com/Kryod/rustacean/master/logos/"

// Step is a single command invocation expressed as an argv list.
type Step []string

// Command is an ordered list of steps. Steps run one after the other and the
// whole command stops at the first step that fails or times out.
type Command []Step

// Descriptor defines the capabilities of one language.
type Descriptor interface {
	// Name is the canonical display name, unique across the catalog.
	Name() string
	// Codes lists the lowercase lookup codes (aliases) for the language.
	Codes() []string
	// SourceExtension is the scratch file suffix, including the leading dot.
	SourceExtension() string
	// ImageName is the tag of the image providing the language toolchain.
	ImageName() string
	// Preprocess returns a rewritten program and true when the snippet had
	// to be changed (usually wrapped in an entry point).
	Preprocess(code, sourcePath string) (string, bool)
	// OutputPath returns where the built artifact is placed in the sandbox.
	OutputPath(sourcePath string) string
	// CompileCommand returns nil for interpreted languages.
	CompileCommand(sourcePath, outputPath string) Command
	// ExecutionCommand runs the artifact found at path.
	ExecutionCommand(path string) Step
	// ProbeCommand is a cheap invocation confirming the toolchain and
	// printing its version.
	ProbeCommand() Step
	// LogoURL is purely cosmetic.
	LogoURL() string
}

// base carries the defaults shared by every descriptor.
type base struct {
	name  string
	codes []string
	ext   string
	image string
	probe Step
}

func (b base) Name() string            { return b.name }
func (b base) SourceExtension() string { return b.ext }
func (b base) ImageName() string       { return ImagePrefix + b.image }
func (b base) ProbeCommand() Step      { return clone(b.probe) }

func (b base) Codes() []string {
	out := make([]string, len(b.codes))
	copy(out, b.codes)
	return out
}

func (base) Preprocess(string, string) (string, bool) { return "", false }

func (base) OutputPath(sourcePath string) string { return sourcePath + ".out" }

func (base) CompileCommand(string, string) Command { return nil }

func (base) ExecutionCommand(p string) Step { return Step{p} }

func (b base) LogoURL() string {
	return logoBaseURL + strings.ToLower(b.name) + ".png"
}

// All returns one descriptor per supported language.
func All() []Descriptor {
	return []Descriptor{
		newRust(), newC(), newCpp(), newPhp(), newPython(), newJavaScript(),
		newTypeScript(), newLua(), newRuby(), newShell(), newAsm32(), newAsm64(),
		newHaskell(), newKotlin(), newJava(), newCsharp(), newVb(), newJulia(),
		newGo(), newProlog(), newOCaml(), newPony(), newApl(),
	}
}

// IsInterpreted reports whether d runs its source without a compile phase.
func IsInterpreted(d Descriptor) bool {
	return d.CompileCommand("src", "out") == nil
}

// stem returns the file name of p without directory and extension.
func stem(p string) string {
	name := path.Base(p)
	return strings.TrimSuffix(name, path.Ext(name))
}

func clone(s Step) Step {
	out := make(Step, len(s))
	copy(out, s)
	return out
}
