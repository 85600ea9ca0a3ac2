package shoppinglist

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/mikepea/foodgram/pkg/foodgram/apperr"
)

const (
	// Title heads a non-empty list
	Title = "Shopping list"
	// EmptyMessage is rendered when the cart has no ingredients
	EmptyMessage = "Shopping list is empty"

	// DefaultFontSize is used when the renderer has no size set
	DefaultFontSize = 14

	fontFamily = "ListFont"

	// Page geometry in points on a US Letter page, measured from the bottom.
	pageHeight   = 792.0
	centerX      = 315.0
	titleY       = 700.0
	emptyY       = 425.0
	lineX        = 20.0
	firstLineY   = 635.0
	lineStep     = 30.0
	bottomMargin = 40.0
)

// Renderer draws shopping lists with a TrueType font
type Renderer struct {
	FontPath string
	FontSize float64
}

// textLine is a string anchored at (X, Y) in bottom-up page coordinates.
// Centered lines use X as their midpoint.
type textLine struct {
	Page     int
	X, Y     float64
	Text     string
	Centered bool
}

// FormatItem returns the list line for an item, e.g. "Sugar - 150 (g);"
func FormatItem(item Item) string {
	return fmt.Sprintf("%s - %d (%s);", capitalize(item.Name), item.Amount, item.MeasurementUnit)
}

// capitalize upper-cases the first letter and lower-cases the rest
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// layout positions the document text. Lists longer than a page continue on
// the next page from the first line position.
func layout(items []Item) []textLine {
	if len(items) == 0 {
		return []textLine{{X: centerX, Y: emptyY, Text: EmptyMessage, Centered: true}}
	}

	lines := []textLine{{X: centerX, Y: titleY, Text: Title, Centered: true}}
	page, y := 0, firstLineY
	for _, item := range items {
		if y < bottomMargin {
			page++
			y = firstLineY
		}
		lines = append(lines, textLine{Page: page, X: lineX, Y: y, Text: FormatItem(item)})
		y -= lineStep
	}
	return lines
}

// Render produces the PDF for items. The returned reader is positioned at the
// start of the document. A missing or unreadable font yields
// apperr.ErrFontUnavailable.
func (r Renderer) Render(items []Item) (*bytes.Reader, error) {
	font, err := os.ReadFile(r.FontPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrFontUnavailable, err)
	}

	size := r.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddUTF8FontFromBytes(fontFamily, "", font)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrFontUnavailable, err)
	}

	page := -1
	for _, line := range layout(items) {
		for page < line.Page {
			pdf.AddPage()
			pdf.SetFont(fontFamily, "", size)
			page++
		}
		x := line.X
		if line.Centered {
			x -= pdf.GetStringWidth(line.Text) / 2
		}
		pdf.Text(x, pageHeight-line.Y, line.Text)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render shopping list: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), nil
}
