// Package extractor recovers line-oriented text from PDF page geometry.
package extractor

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ellalabs/ella-extractor/internal/normalize"
)

// Extraction method tags, kept for diagnostics.
const (
	MethodLayout = "layout"
	MethodWords  = "words"
	MethodPlain  = "plain"
)

// Result carries per-page text plus the method that produced each page.
type Result struct {
	Pages   []string
	Methods []string
}

// Method reports the document-level method tag: the single tag when all
// pages agree, or "mixed:" plus the sorted set of tags used.
func (r *Result) Method() string {
	uniq := map[string]bool{}
	for _, m := range r.Methods {
		uniq[m] = true
	}
	if len(uniq) == 1 {
		return r.Methods[0]
	}
	tags := make([]string, 0, len(uniq))
	for m := range uniq {
		tags = append(tags, m)
	}
	sort.Strings(tags)
	return "mixed:" + strings.Join(tags, ",")
}

// Text joins pages into the single document string the parsers consume.
func (r *Result) Text() string {
	return normalize.Pages(r.Pages)
}

// LooksLikePDF is a cheap structural sniff: header magic plus an EOF marker
// near the tail. Used to tell "unreadable PDF" apart from "not a PDF".
func LooksLikePDF(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return false
	}
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	return bytes.Contains(tail, []byte("%%EOF"))
}

// ExtractBytes opens a PDF payload and extracts every page.
func ExtractBytes(data []byte) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader crashed: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return extractAll(reader)
}

func extractAll(reader *pdf.Reader) (*Result, error) {
	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	res := &Result{}
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, method := extractPageText(page)
		res.Pages = append(res.Pages, text)
		res.Methods = append(res.Methods, method)
	}
	if len(res.Pages) == 0 {
		return nil, fmt.Errorf("no extractable pages")
	}
	return res, nil
}

// extractPageText applies the three-tier fallback: layout-preserving rows,
// then word-geometry reconstruction, then plain extraction. The first tier
// that yields non-glued text wins. Output is always normalized.
func extractPageText(page pdf.Page) (string, string) {
	if layout := extractLayout(page); layout != "" {
		layout = normalize.Text(layout)
		if !LooksGlued(layout) {
			return layout, MethodLayout
		}
	}

	if words := extractByWordGeometry(page); words != "" {
		return normalize.Text(words), MethodWords
	}

	return normalize.Text(extractPlain(page)), MethodPlain
}

// extractLayout uses the library's row grouping, which preserves visual
// column alignment for well-behaved PDFs.
func extractLayout(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}
	var lines []string
	for _, row := range rows {
		var parts []string
		for _, word := range row.Content {
			if s := strings.TrimSpace(word.S); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, " "))
		}
	}
	return strings.Join(lines, "\n")
}

// topTolerance groups words whose top coordinates differ by at most this
// many units into the same visual line.
const topTolerance = 3.0

type word struct {
	top  float64
	left float64
	text string
}

// extractByWordGeometry rebuilds reading order from word bounding boxes:
// group by top coordinate within tolerance, sort each line left-to-right,
// sort lines top-to-bottom. Deterministic for identical geometry.
func extractByWordGeometry(page pdf.Page) string {
	content := page.Content()
	if len(content.Text) == 0 {
		return ""
	}

	words := make([]word, 0, len(content.Text))
	for _, t := range content.Text {
		s := strings.TrimSpace(t.S)
		if s == "" {
			continue
		}
		// PDF Y grows bottom-to-top; negate so "top" sorts ascending.
		words = append(words, word{top: -t.Y, left: t.X, text: s})
	}
	if len(words) == 0 {
		return ""
	}

	sort.SliceStable(words, func(i, j int) bool {
		if words[i].top != words[j].top {
			return words[i].top < words[j].top
		}
		return words[i].left < words[j].left
	})

	var lines [][]word
	var current []word
	lineTop := words[0].top
	for _, w := range words {
		if len(current) > 0 && w.top-lineTop > topTolerance {
			lines = append(lines, current)
			current = nil
		}
		if len(current) == 0 {
			lineTop = w.top
		}
		current = append(current, w)
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}

	var out []string
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].left < line[j].left
		})
		parts := make([]string, 0, len(line))
		for _, w := range line {
			parts = append(parts, w.text)
		}
		out = append(out, strings.Join(parts, " "))
	}
	return strings.Join(out, "\n")
}

// extractPlain is the last-resort unprocessed extraction.
func extractPlain(page pdf.Page) string {
	fontNames := page.Fonts()
	fonts := make(map[string]*pdf.Font, len(fontNames))
	for _, name := range fontNames {
		f := page.Font(name)
		fonts[name] = &f
	}
	text, err := page.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return text
}

var (
	longLetterRun = regexp.MustCompile(`[A-Za-zÀ-ÿ]{18,}`)
	twoDatesInLine = regexp.MustCompile(`\b\d{2}/\d{2}.*\b\d{2}/\d{2}\b`)
)

// LooksGlued detects extraction output that lost its word separators:
// letter-dense text with almost no spaces, an 18+ letter run, or two dd/mm
// tokens merged into one line (two transaction rows glued together).
func LooksGlued(text string) bool {
	if text == "" {
		return true
	}

	spaces := strings.Count(text, " ")
	letters := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= 'À' && r <= 'ÿ') {
			letters++
		}
	}
	if letters > 200 && float64(spaces)/float64(max(1, len(text))) < 0.01 {
		return true
	}

	if longLetterRun.MatchString(text) {
		return true
	}

	return twoDatesInLine.MatchString(text)
}
