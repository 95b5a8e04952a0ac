package language

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	javaMainRe   = regexp.MustCompile(`(?P<start>.*class\s*)(?P<name>.*?)(?P<end>\s*\{\s*public\s*static\s*void\s*main\s*\(.*\).*)`)
	kotlinMainRe = regexp.MustCompile(`(?s)fun\s+main\s*\(.*\)`)
	csharpMainRe = regexp.MustCompile(`class\s*.*\s*\{\s*(public\s*)?static\s*void\s*Main\s*\(.*\)`)
	vbMainRe     = regexp.MustCompile(`Module\s*.*\s*Sub\s*Main\s*\(\s*\)`)
)

// className derives the class name the JVM expects from the scratch file
// name. Scratch names always start with a letter.
func className(src string) string { return stem(src) }

// java renames (or creates) the public class after the source file, since
// javac rejects a public class whose name differs from its file. Only the
// first class declaring main is renamed.
type java struct{ base }

func newJava() java {
	return java{base{name: "Java", codes: []string{"java"}, ext: ".java", image: "java", probe: Step{"javac", "-version"}}}
}

func (java) Preprocess(code, src string) (string, bool) {
	name := className(src)
	m := javaMainRe.FindStringSubmatchIndex(code)
	if m == nil {
		return fmt.Sprintf("public class %s {\n    public static void main(String[] args) {\n        %s\n    }\n}\n", name, code), true
	}
	renamed := javaMainRe.ExpandString(nil, "${start} "+name+" ${end}", code, m)
	return code[:m[0]] + string(renamed) + code[m[1]:], true
}

func (java) OutputPath(src string) string {
	return path.Join(path.Dir(src), className(src))
}

func (java) CompileCommand(src, _ string) Command {
	return Command{{"javac", src}}
}

func (java) ExecutionCommand(p string) Step {
	return Step{"java", "-cp", path.Dir(p), path.Base(p)}
}

type kotlin struct{ base }

func newKotlin() kotlin {
	return kotlin{base{name: "Kotlin", codes: []string{"kt", "kotlin"}, ext: ".kt", image: "kotlin", probe: Step{"kotlinc", "-version"}}}
}

func (kotlin) Preprocess(code, _ string) (string, bool) {
	if kotlinMainRe.MatchString(code) {
		return "", false
	}
	return fmt.Sprintf("fun main() {\r\n%s\r\n}", code), true
}

func (kotlin) OutputPath(src string) string {
	return path.Join(path.Dir(src), className(src))
}

func (kotlin) CompileCommand(src, out string) Command {
	return Command{{"kotlinc", src, "-include-runtime", "-d", out + ".jar"}}
}

func (kotlin) ExecutionCommand(p string) Step {
	return Step{"java", "-jar", p + ".jar"}
}

type typeScript struct{ base }

func newTypeScript() typeScript {
	return typeScript{base{name: "TypeScript", codes: []string{"ts", "typescript"}, ext: ".ts", image: "typescript", probe: Step{"tsc", "-v"}}}
}

func (typeScript) CompileCommand(src, out string) Command {
	return Command{{"tsc", src, "--outFile", out + ".js"}}
}

func (typeScript) ExecutionCommand(p string) Step {
	return Step{"node", p + ".js"}
}

// csharp compiles with the mono C# compiler.
type csharp struct{ base }

func newCsharp() csharp {
	return csharp{base{name: "C#", codes: []string{"cs", "csharp"}, ext: ".cs", image: "csharp", probe: Step{"mcs", "--version"}}}
}

func (csharp) Preprocess(code, _ string) (string, bool) {
	if csharpMainRe.MatchString(code) {
		return "", false
	}
	return fmt.Sprintf("using System;\n\npublic class Program\n{\n    public static void Main()\n    {\n        %s\n    }\n}\n", indent(code, "        ")), true
}

func (csharp) CompileCommand(src, out string) Command {
	return Command{{"mcs", "-out:" + out, "-target:exe", "-nologo", src}}
}

func (csharp) ExecutionCommand(p string) Step { return Step{"mono", p} }

type vb struct{ base }

func newVb() vb {
	return vb{base{name: "VB.Net", codes: []string{"vb", "vbnet"}, ext: ".vb", image: "vbnet", probe: Step{"vbnc", "/nologo", "/help"}}}
}

func (vb) Preprocess(code, _ string) (string, bool) {
	if vbMainRe.MatchString(code) {
		return "", false
	}
	return fmt.Sprintf("Imports System\n\nModule Program\n    Sub Main()\n        %s\n    End Sub\nEnd Module\n", indent(code, "        ")), true
}

func (vb) CompileCommand(src, out string) Command {
	return Command{{"vbnc", "/out:" + out, "/target:exe", "/nologo", "/quiet", src}}
}

func (vb) ExecutionCommand(p string) Step { return Step{"mono", p} }

func indent(code, prefix string) string {
	return strings.ReplaceAll(code, "\n", "\n"+prefix)
}
