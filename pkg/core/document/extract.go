// Package document turns filing PDFs into plain text and prepares the text
// for indexing.
package document

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DefaultChunkSize is the character length of chunks fed to the retrieval
// index.
const DefaultChunkSize = 3000

// ExtractionError reports a PDF that could not be read. The whole document
// must be skipped; this is surfaced, never swallowed.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractText reads every page of the PDF at path and concatenates the text,
// page order preserved.
func ExtractText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", &ExtractionError{Path: path, Err: fmt.Errorf("page %d: %w", pageNum, err)}
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeWhitespace collapses runs of whitespace into single spaces and
// trims the ends.
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// Chunk splits text into fixed-size pieces for indexing. Pure and
// deterministic; the final chunk may be shorter. Boundaries back up to the
// nearest rune start so accented characters are never cut in half.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if text == "" {
		return nil
	}

	chunks := make([]string, 0, len(text)/size+1)
	for start := 0; start < len(text); {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == start {
				end = start + size
			}
		}
		chunks = append(chunks, text[start:end])
		start = end
	}
	return chunks
}
