package extract

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrNoText = errors.New("no text extracted from PDF")

// PDF pulls plain text out of a PDF file, page by page.
type PDF struct{}

func NewPDF() *PDF { return &PDF{} }

// Extract returns the concatenated page text and the page count.
// A file that parses but yields no text returns ErrNoText.
func (e *PDF) Extract(path string) (string, int, error) {
	if _, err := os.Stat(path); err != nil {
		return "", 0, fmt.Errorf("stat file: %w", err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := r.NumPage()
	var b strings.Builder

	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			// a single broken page should not sink the document
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", pages, ErrNoText
	}
	return out, pages, nil
}
