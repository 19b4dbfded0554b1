// Package normalize canonicalizes text recovered from PDF extraction before
// any institution grammar runs over it.
package normalize

import (
	"regexp"
	"strings"
)

var (
	cidPattern   = regexp.MustCompile(`\(cid:\d+\)`)
	hspaceRun    = regexp.MustCompile(`[ \t]{2,}`)
	anyWhitespace = regexp.MustCompile(`\s+`)
)

// Text normalizes extracted PDF text while keeping line breaks:
// NBSP variants become plain spaces, line endings become \n, (cid:N) glyph
// artifacts are removed, runs of spaces/tabs collapse to one, every line is
// trimmed and blank-line runs collapse to at most one. Idempotent.
func Text(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = cidPattern.ReplaceAllString(text, "")
	text = hspaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blankRun := 0
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			blankRun++
			if blankRun <= 1 {
				out = append(out, "")
			}
			continue
		}
		blankRun = 0
		out = append(out, ln)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Flat collapses all whitespace to single spaces, for document-level
// metadata regexes that must tolerate line wrapping.
func Flat(text string) string {
	return strings.TrimSpace(anyWhitespace.ReplaceAllString(Text(text), " "))
}

// Pages joins per-page text with a double newline, the document form every
// parser consumes.
func Pages(pages []string) string {
	return strings.Join(pages, "\n\n")
}
