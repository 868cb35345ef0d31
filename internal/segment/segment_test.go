package segment

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfsearch/internal/domain"
)

// buildPDF renders one page per argument, each line as a single-line cell so
// extraction sees the text exactly as written.
func buildPDF(t *testing.T, pages ...[]string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 10)
	for _, lines := range pages {
		doc.AddPage()
		for _, line := range lines {
			doc.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
		}
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestSplitUnits(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "sentences split at terminator plus space",
			line: "First sentence here. Second sentence follows! Third one?",
			want: []string{"First sentence here.", "Second sentence follows!", "Third one?"},
		},
		{
			name: "trailing text without terminator kept",
			line: "A finished sentence. and a trailing fragment",
			want: []string{"A finished sentence.", "and a trailing fragment"},
		},
		{
			name: "terminator inside token does not split",
			line: "version 1.5 shipped today. next milestone pending",
			want: []string{"version 1.5 shipped today.", "next milestone pending"},
		},
		{
			name: "terminator runs collapse into one boundary",
			line: "Really?! Yes... absolutely",
			want: []string{"Really?!", "Yes...", "absolutely"},
		},
		{
			name: "no terminators yields whole line",
			line: "just one unit with no punctuation at all",
			want: []string{"just one unit with no punctuation at all"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitUnits(tt.line))
		})
	}
}

func TestChunkPageBounds(t *testing.T) {
	s := New(0, 0, 0)
	text := "The first sentence talks about the indexing approach in detail.\n" +
		"Short one. Another short. A third tiny one here.\n" +
		"This closing sentence describes how retrieval ranks the candidate pages."
	for _, chunk := range s.chunkPage(text) {
		words := wordCount(chunk)
		assert.GreaterOrEqual(t, words, DefaultMinWords, "chunk %q", chunk)
		assert.LessOrEqual(t, words, DefaultMaxWords, "chunk %q", chunk)
	}
}

func TestChunkPageShortFragmentsYieldNothing(t *testing.T) {
	s := New(0, 0, 0)
	assert.Empty(t, s.chunkPage("Page 3"))
	assert.Empty(t, s.chunkPage("Chapter One\nIntro\n7"))
}

func TestChunkPageAccumulatesShortUnits(t *testing.T) {
	s := New(0, 0, 0)
	// Each unit is at most five words, so units accumulate until the buffer
	// total crosses the maximum.
	chunks := s.chunkPage("One two three. Four five six. Seven eight nine. Ten eleven twelve.")
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		words := wordCount(c)
		assert.GreaterOrEqual(t, words, DefaultMinWords)
		assert.LessOrEqual(t, words, DefaultMaxWords)
	}
}

func TestChunkPageDiscardsRunawayMerge(t *testing.T) {
	// A single unit longer than the maximum flushes immediately and is then
	// discarded by the word-count filter, not truncated.
	s := New(0, 0, 0)
	long := strings.Repeat("word ", 20) + "end."
	assert.Empty(t, s.chunkPage(long))
}

func TestSegmentScenarioMiddlePageSentence(t *testing.T) {
	sentence := "The quick brown fox jumps over the lazy dog near the riverbank today"
	data := buildPDF(t,
		[]string{"Intro"},
		[]string{sentence},
		[]string{"Page 3"},
	)

	s := New(0, 0, 0)
	chunks, pages, err := s.Segment(data)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].Page)
	assert.Equal(t, sentence, chunks[0].Text)
}

func TestSegmentOrderingIsStable(t *testing.T) {
	data := buildPDF(t,
		[]string{"Alpha section covers the ingestion pipeline design choices."},
		[]string{"Beta section covers the retrieval ranking behavior instead."},
	)

	s := New(0, 0, 0)
	first, _, err := s.Segment(data)
	require.NoError(t, err)
	second, _, err := s.Segment(data)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	lastPage := 0
	for _, c := range first {
		assert.GreaterOrEqual(t, c.Page, lastPage, "chunks must come in page order")
		lastPage = c.Page
	}
}

func TestSegmentChunksNeverSpanPages(t *testing.T) {
	data := buildPDF(t,
		[]string{"Opening words of a sentence that never"},
		[]string{"finishes because the page break interrupted it completely here"},
	)

	s := New(0, 0, 0)
	chunks, pages, err := s.Segment(data)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	for _, c := range chunks {
		assert.NotContains(t, c.Text, "never finishes", "chunk crossed a page boundary")
	}
}

func TestSegmentPagesWithoutTextAreSkipped(t *testing.T) {
	data := buildPDF(t,
		[]string{},
		[]string{"Only this second page carries any extractable text content."},
	)

	s := New(0, 0, 0)
	chunks, pages, err := s.Segment(data)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	for _, c := range chunks {
		assert.Equal(t, 2, c.Page)
	}
}

func TestSegmentDocumentWithNoTextIsNotAnError(t *testing.T) {
	data := buildPDF(t, []string{}, []string{})

	s := New(0, 0, 0)
	chunks, pages, err := s.Segment(data)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Empty(t, chunks)
}

func TestSegmentRejectsNonPDF(t *testing.T) {
	s := New(0, 0, 0)
	_, _, err := s.Segment([]byte("this is not a pdf at all"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
}
