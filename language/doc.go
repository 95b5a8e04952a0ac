// Package language describes how each supported programming language is
// prepared, compiled and run inside its sandbox image.
//
// A Descriptor is a pure policy value: it never touches the filesystem or a
// container runtime. Commands are returned as structured argv lists so that
// no component ever has to split a command string at runtime. Languages
// without a compile command are interpreted and run their source directly.
//
// Usage:
//
//	for _, d := range language.All() {
//	    fmt.Println(d.Name(), d.Codes(), d.ImageName())
//	}
package language
