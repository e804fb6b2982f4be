package extractor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"rsc.io/pdf"
)

const (
	// lineTolerance is the baseline shift, in points, treated as a new line.
	lineTolerance = 2.0
	// spaceRatio of the font size is the horizontal gap treated as a space.
	spaceRatio = 0.2
)

type PDFExtractor struct{}

var _ Extractor = (*PDFExtractor)(nil)

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(ctx context.Context, locator string) (text string, err error) {
	f, err := os.Open(locator)
	if err != nil {
		return "", &ExtractionError{Locator: locator, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &ExtractionError{Locator: locator, Err: err}
	}

	// rsc.io/pdf panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Locator: locator, Err: fmt.Errorf("malformed document: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", &ExtractionError{Locator: locator, Err: err}
	}

	pages := reader.NumPage()
	if pages == 0 {
		return "", &ExtractionError{Locator: locator, Err: errors.New("document has no pages")}
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		sb.WriteString(pageText(reader, i))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// pageText returns the text of one page, or "" when the page cannot yield
// any. A broken page never aborts the whole document.
func pageText(reader *pdf.Reader, num int) (out string) {
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	if checkPage(page) != nil {
		return ""
	}

	// The content stream drops space glyphs, so word breaks are recovered
	// from glyph positions.
	var sb strings.Builder
	var prev pdf.Text
	for i, t := range page.Content().Text {
		if i > 0 {
			switch {
			case math.Abs(t.Y-prev.Y) > lineTolerance:
				sb.WriteString("\n")
			case t.X-(prev.X+prev.W) > t.FontSize*spaceRatio:
				sb.WriteString(" ")
			}
		}
		sb.WriteString(t.S)
		prev = t
	}
	return sb.String()
}
