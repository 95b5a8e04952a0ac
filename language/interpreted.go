package language

import (
	"regexp"
	"strings"
)

var prologHaltRe = regexp.MustCompile(`(?m)^\s*halt\s*\.\s*\z`)

type php struct{ base }

func newPhp() php {
	return php{base{name: "PHP", codes: []string{"php"}, ext: ".php", image: "php", probe: Step{"php", "--version"}}}
}

func (php) ExecutionCommand(p string) Step { return Step{"php", p} }

type python struct{ base }

func newPython() python {
	return python{base{name: "Python", codes: []string{"py", "python"}, ext: ".py", image: "python", probe: Step{"python3", "--version"}}}
}

func (python) ExecutionCommand(p string) Step { return Step{"python3", p} }

type javaScript struct{ base }

func newJavaScript() javaScript {
	return javaScript{base{name: "JavaScript", codes: []string{"js", "javascript"}, ext: ".js", image: "javascript", probe: Step{"node", "--version"}}}
}

func (javaScript) ExecutionCommand(p string) Step { return Step{"node", p} }

type lua struct{ base }

func newLua() lua {
	return lua{base{name: "Lua", codes: []string{"lua"}, ext: ".lua", image: "lua", probe: Step{"lua", "-v"}}}
}

func (lua) ExecutionCommand(p string) Step { return Step{"lua", p} }

type ruby struct{ base }

func newRuby() ruby {
	return ruby{base{name: "Ruby", codes: []string{"rb", "ruby"}, ext: ".rb", image: "ruby", probe: Step{"ruby", "--version"}}}
}

func (ruby) ExecutionCommand(p string) Step { return Step{"ruby", p} }

type shell struct{ base }

func newShell() shell {
	return shell{base{name: "Shell", codes: []string{"sh", "shell"}, ext: ".sh", image: "shell", probe: Step{"sh", "-c", "echo ok"}}}
}

func (shell) ExecutionCommand(p string) Step { return Step{"sh", p} }

type julia struct{ base }

func newJulia() julia {
	return julia{base{name: "Julia", codes: []string{"jl", "julia"}, ext: ".jl", image: "julia", probe: Step{"julia", "--version"}}}
}

func (julia) ExecutionCommand(p string) Step { return Step{"julia", p} }

type ocaml struct{ base }

func newOCaml() ocaml {
	return ocaml{base{name: "OCaml", codes: []string{"ml", "ocaml"}, ext: ".ml", image: "ocaml", probe: Step{"ocaml", "-version"}}}
}

func (ocaml) ExecutionCommand(p string) Step { return Step{"ocaml", p} }

// prolog feeds the program to the swipl toplevel on stdin, so the source
// must end with a halt directive or the toplevel waits for more input.
type prolog struct{ base }

func newProlog() prolog {
	return prolog{base{name: "Prolog", codes: []string{"prolog"}, ext: ".pl", image: "prolog", probe: Step{"swipl", "--version"}}}
}

func (prolog) Preprocess(code, _ string) (string, bool) {
	if prologHaltRe.MatchString(code) {
		return "", false
	}
	return strings.TrimRight(code, "\r\n") + "\nhalt.\n", true
}

// ExecutionCommand passes the path as a positional parameter so that it is
// never interpreted by the shell.
func (prolog) ExecutionCommand(p string) Step {
	return Step{"sh", "-c", `exec swipl -q < "$1"`, "sh", p}
}
