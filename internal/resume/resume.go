// Package resume loads the candidate's CV and prepares it for embedding:
// plain-text extraction from PDF and character-window chunking.
package resume

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kvanticoder/jobscout/internal/job"
)

// ExtractText reads every page of the PDF at path and returns the
// concatenated plain text with whitespace collapsed.
func ExtractText(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("resume file: %w", err)
	}

	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open resume pdf %s: %w", path, err)
	}
	defer file.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d of %s: %w", i, path, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	full := job.CleanText(strings.Join(pages, "\n\n"))
	if full == "" {
		return "", fmt.Errorf("resume pdf %s contains no extractable text", path)
	}
	return full, nil
}

// Chunk is one embedding-sized window of the resume text. StartOffset is
// the rune index of the window's first character in the full text.
type Chunk struct {
	Text        string
	StartOffset int
}

// Split cuts text into windows of at most maxChars characters. Consecutive
// windows share overlap characters so a sentence straddling a boundary is
// still embedded whole at least once. An overlap that is negative or not
// smaller than maxChars is reset to maxChars/10.
func Split(text string, maxChars, overlap int) []Chunk {
	if maxChars <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= maxChars {
		overlap = maxChars / 10
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	for start := 0; start < len(runes); start += maxChars - overlap {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{Text: string(runes[start:end]), StartOffset: start})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
