package segment

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfsearch/internal/domain"
)

// Default word-count bounds for emitted chunks. Units shorter than
// ShortUnitWords keep accumulating; anything outside [MinWords, MaxWords]
// after accumulation is discarded as noise (headers, page numbers) or a
// runaway merge.
const (
	DefaultMinWords       = 5
	DefaultMaxWords       = 15
	DefaultShortUnitWords = 5
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Segmenter splits PDF documents into page-tagged chunks of bounded word
// count.
type Segmenter struct {
	minWords       int
	maxWords       int
	shortUnitWords int
}

// New creates a segmenter. Non-positive arguments fall back to defaults.
func New(minWords, maxWords, shortUnitWords int) *Segmenter {
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	if shortUnitWords <= 0 {
		shortUnitWords = DefaultShortUnitWords
	}
	return &Segmenter{minWords: minWords, maxWords: maxWords, shortUnitWords: shortUnitWords}
}

// Segment parses the document and returns its chunks in page order
// (extraction order within a page) along with the page count. Pages without
// extractable text are skipped. A document with no extractable text at all
// yields an empty slice, not an error; bytes that cannot be parsed as a PDF
// yield ErrUnreadableDocument.
func (s *Segmenter) Segment(data []byte) (chunks []domain.Chunk, pages int, err error) {
	// The pdf package panics on some malformed inputs; fold those into the
	// unreadable-document error instead of crashing the caller.
	defer func() {
		if r := recover(); r != nil {
			chunks, pages = nil, 0
			err = fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	}

	pages = reader.NumPage()
	for n := 1; n <= pages; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text := extractPageText(page)
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, c := range s.chunkPage(text) {
			chunks = append(chunks, domain.Chunk{Text: c, Page: n})
		}
	}
	return chunks, pages, nil
}

// extractPageText reconstructs the page text row by row so line breaks
// survive extraction; falls back to the flat plain-text form when row
// grouping fails.
func extractPageText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil || len(rows) == 0 {
		text, err := page.GetPlainText(nil)
		if err != nil {
			return ""
		}
		return text
	}
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, word := range row.Content {
			b.WriteString(word.S)
		}
	}
	return b.String()
}

// chunkPage normalizes the page text, splits it into sentence-like units,
// and greedily accumulates units into chunks. The buffer is flushed when
// the unit just added exceeds the short-unit threshold on its own or the
// buffer total exceeds the maximum; the word-count filter runs after the
// split, so an oversized merge is discarded rather than truncated.
func (s *Segmenter) chunkPage(text string) []string {
	var out []string
	var buf []string
	bufWords := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		if bufWords >= s.minWords && bufWords <= s.maxWords {
			out = append(out, strings.Join(buf, " "))
		}
		buf = buf[:0]
		bufWords = 0
	}

	for _, line := range strings.Split(text, "\n") {
		line = normalizeWhitespace(line)
		if line == "" {
			continue
		}
		for _, unit := range splitUnits(line) {
			words := wordCount(unit)
			buf = append(buf, unit)
			bufWords += words
			if words > s.shortUnitWords || bufWords > s.maxWords {
				flush()
			}
		}
	}
	flush()
	return out
}

// splitUnits breaks a normalized line at sentence-ending punctuation
// followed by whitespace (or end of line). Trailing text without a
// terminator is kept as its own unit.
func splitUnits(line string) []string {
	var units []string
	runes := []rune(line)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		j := i
		for j+1 < len(runes) && isTerminator(runes[j+1]) {
			j++
		}
		if j+1 < len(runes) && runes[j+1] != ' ' {
			i = j
			continue
		}
		if unit := strings.TrimSpace(string(runes[start : j+1])); unit != "" {
			units = append(units, unit)
		}
		start = j + 1
		i = j
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		units = append(units, tail)
	}
	return units
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
