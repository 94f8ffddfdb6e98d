package textutil

import (
	"strings"
	"unicode"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a project name so
// it can be used as an output file stem. Control characters count as
// whitespace, runs of whitespace collapse to a single space, and leading dots are removed so
// the result never names a hidden file. Empty results become fallback.
func SanitizeFileName(name, fallback string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(fileNameReplacer.Replace(name)), " ")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return fallback
	}
	return name
}
