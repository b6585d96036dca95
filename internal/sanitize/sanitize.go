// Package sanitize cleans free text that originates in user-supplied
// scenario files or calibrator messages before it is handed to an MCP
// client, so a scenario file cannot smuggle markup or control sequences into
// an agent's context.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxTextLength caps messages and descriptions.
const MaxTextLength = 2000

// MaxNameLength caps scenario and calibrator names.
const MaxNameLength = 80

var (
	// reTag matches XML/HTML tags, with attributes or self-closing, and
	// processing instructions.
	reTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	reHeading   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reFence     = regexp.MustCompile("```+")
	reBlankRuns = regexp.MustCompile(`\n{3,}`)
	reDashes    = regexp.MustCompile(`-{2,}`)
)

// Text strips control characters (keeping newline and tab) and tags,
// demotes markdown headings to list items, collapses code fences and blank
// runs, trims and truncates to MaxTextLength.
func Text(input string) string {
	if input == "" {
		return ""
	}
	s := stripControl(input)
	s = reTag.ReplaceAllString(s, "")
	s = reHeading.ReplaceAllString(s, "- ")
	s = reFence.ReplaceAllString(s, "`")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	if len(s) > MaxTextLength {
		s = s[:MaxTextLength] + "..."
	}
	return s
}

// Name keeps [a-zA-Z0-9._-], collapses repeated hyphens and truncates to
// MaxNameLength.
func Name(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	s := reDashes.ReplaceAllString(b.String(), "-")
	if len(s) > MaxNameLength {
		s = s[:MaxNameLength]
	}
	return s
}

func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
