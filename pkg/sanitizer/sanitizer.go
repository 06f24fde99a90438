package sanitizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reNonSlug      = regexp.MustCompile(`[^a-z0-9]+`)
	reMultiHyphens = regexp.MustCompile(`-+`)
)

func trimAndLower(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return s
}

// stripMarks removes combining accents so "Kovács" becomes "kovacs".
func stripMarks(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if r >= 0x0300 && r <= 0x036f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func SanitizeSlug(input string) string {
	p := Pipeline{
		trimAndLower,
		stripMarks,
		func(s string) string { return reNonSlug.ReplaceAllString(s, "-") },
		func(s string) string { return reMultiHyphens.ReplaceAllString(s, "-") },
		func(s string) string { return strings.Trim(s, "-") },
	}
	return p.Apply(input)
}

func NormalizeEmail(email string) string {
	return trimAndLower(email)
}
