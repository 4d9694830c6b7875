package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSizes(t *testing.T) {
	text := strings.Repeat("a", 7000)
	chunks := Chunk(text, 3000)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 3000)
	assert.Len(t, chunks[1], 3000)
	assert.Len(t, chunks[2], 1000)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestChunkDeterministic(t *testing.T) {
	text := strings.Repeat("quarterly report ", 500)
	assert.Equal(t, Chunk(text, 1000), Chunk(text, 1000))
}

func TestChunkDefaultsAndEmpty(t *testing.T) {
	assert.Nil(t, Chunk("", 3000))

	chunks := Chunk(strings.Repeat("x", DefaultChunkSize+1), 0)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], DefaultChunkSize)
}

func TestChunkKeepsRunesWhole(t *testing.T) {
	// "análisis" is 9 bytes; a 10-byte chunk size lands mid-rune on the
	// accented vowels of later repetitions.
	text := strings.Repeat("análisis ", 40)
	chunks := Chunk(text, 10)

	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d split a rune: %q", i, c)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestNormalizeWhitespace(t *testing.T) {
	in := "  Revenue\twas \n\n  up   4%  "
	assert.Equal(t, "Revenue was up 4%", NormalizeWhitespace(in))
}

func TestExtractTextInvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	_, err := ExtractText(path)
	require.Error(t, err)
	var extErr *ExtractionError
	assert.ErrorAs(t, err, &extErr)
	assert.Equal(t, path, extErr.Path)
}

func TestExtractTextMissingFile(t *testing.T) {
	_, err := ExtractText(filepath.Join(t.TempDir(), "missing.pdf"))
	var extErr *ExtractionError
	assert.ErrorAs(t, err, &extErr)
}
