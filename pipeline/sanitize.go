package pipeline

import "strings"

// outputReplacer removes code block delimiters and defuses broadcast mentions.
var outputReplacer = strings.NewReplacer(
	"```", "",
	"@everyone", "@ everyone",
	"@here", "@ here",
)

// SanitizeOutput makes program output safe to embed in a formatted chat reply.
func SanitizeOutput(s string) string {
	return outputReplacer.Replace(s)
}

// StripInvisible removes zero-width and directional marks that break compilers
// when snippets are pasted from rich text.
func StripInvisible(code string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '\u200b' && r <= '\u200f', r == '\u2060', r == '\ufeff':
			return -1
		}
		return r
	}, code)
}
