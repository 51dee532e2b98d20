package agreement

import (
	"fmt"

	"github.com/go-pdf/fpdf"
)

// Page geometry in points (A4). Mirrors the layout of the generated
// agreement: a banner header on every page, body content between topY and
// bottomY, and a footer strip reserved below bottomY.
const (
	headerHeight = 80
	topY         = 120
	bottomY      = 770
	leftX        = 50
	indentX      = 70
	footerY      = 50
)

type textStyle struct {
	family  string
	weight  string // "" regular, "B" bold
	size    float64
	r, g, b int
}

var (
	styleBody    = textStyle{family: "Helvetica", size: 11, r: 0, g: 0, b: 0}
	styleDetail  = textStyle{family: "Helvetica", size: 12, r: 0, g: 0, b: 0}
	styleLabel   = textStyle{family: "Helvetica", weight: "B", size: 12, r: 0, g: 0, b: 0}
	styleSection = textStyle{family: "Helvetica", weight: "B", size: 14, r: 26, g: 77, b: 153}
	styleTitle   = textStyle{family: "Helvetica", weight: "B", size: 18, r: 0, g: 0, b: 0}
)

// pageFlow is the sole owner of the drawing cursor. All body content goes
// through Advance or DrawParagraph; callers request vertical space before
// drawing and never write below bottomY.
type pageFlow struct {
	doc   *fpdf.Fpdf
	title string
	tr    func(string) string
	width float64
	y     float64
	page  int
}

func newPageFlow(doc *fpdf.Fpdf, title string) *pageFlow {
	w, _ := doc.GetPageSize()
	pf := &pageFlow{doc: doc, title: title, tr: func(s string) string { return s }, width: w}
	pf.breakPage()
	return pf
}

// Advance reserves h points of vertical space, allocating a new page first
// when the remaining space above the bottom margin is insufficient, and
// returns the baseline y to draw at.
func (pf *pageFlow) Advance(h float64) float64 {
	if pf.y+h > bottomY {
		pf.breakPage()
	}
	pf.y += h
	return pf.y
}

// DrawParagraph wraps text to the available width at x and emits one
// Advance per wrapped line, so paragraphs span pages transparently.
func (pf *pageFlow) DrawParagraph(text string, st textStyle, x, lineHeight float64) {
	maxWidth := pf.width - leftX - x
	pf.applyStyle(st)
	lines := WrapText(pf.tr(text), maxWidth, pf.doc.GetStringWidth)
	for _, line := range lines {
		y := pf.Advance(lineHeight)
		pf.applyStyle(st)
		pf.doc.Text(x, y, line)
	}
}

// Gap inserts vertical whitespace. It deliberately does not carry the gap
// across a page break: a gap that triggers a new page collapses to the top
// of the fresh page.
func (pf *pageFlow) Gap(h float64) {
	if pf.y+h > bottomY {
		pf.breakPage()
		return
	}
	pf.y += h
}

func (pf *pageFlow) breakPage() {
	pf.doc.AddPage()
	pf.page++
	pf.drawHeader()
	pf.y = topY
}

func (pf *pageFlow) drawHeader() {
	doc := pf.doc
	doc.SetFillColor(26, 77, 153)
	doc.Rect(0, 0, pf.width, headerHeight, "F")

	doc.SetFont("Helvetica", "B", 24)
	doc.SetTextColor(255, 255, 255)
	doc.Text(leftX, 45, pf.title)

	doc.SetFont("Helvetica", "", 12)
	doc.Text(leftX, 70, "Walmart Marketplace Integration Services")

	ordinal := fmt.Sprintf("Page %d", pf.page)
	doc.SetFont("Helvetica", "", 10)
	doc.Text(pf.width-leftX-doc.GetStringWidth(ordinal), 45, ordinal)
}

func (pf *pageFlow) applyStyle(st textStyle) {
	pf.doc.SetFont(st.family, st.weight, st.size)
	pf.doc.SetTextColor(st.r, st.g, st.b)
}
