package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-pdf/fpdf"
)

// PDFFileName is the name the PDF report is saved under
const PDFFileName = "reporte_facturas.pdf"

// Layout in millimetres on an A4 portrait page
const (
	fontSize     = 10.0
	titleX       = 60.0
	titleY       = 25.0
	textX        = 10.0
	ruleFromX    = 10.0
	ruleToX      = 200.0
	pageTopY     = 20.0
	pageBottomY  = 280.0
	afterTitle   = 10.0
	afterRule    = 5.0
	afterLine    = 5.0
	beforeTotal  = 10.0
	logoX, logoY = 10.0, 10.0
	logoW, logoH = 50.0, 10.0
)

type opKind int

const (
	opText opKind = iota
	opRule
	opPage
)

// op is one drawing instruction of the PDF layout
type op struct {
	kind opKind
	x, y float64
	text string
}

// PDFRenderer draws the report with fpdf
type PDFRenderer struct {
	// LogoPath is an optional PNG/JPEG drawn in the top-left corner
	LogoPath string
}

// FileName implements Renderer
func (r *PDFRenderer) FileName() string {
	return PDFFileName
}

// Render implements Renderer
func (r *PDFRenderer) Render(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", fontSize)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if r.LogoPath != "" {
		if _, err := os.Stat(r.LogoPath); err != nil {
			return fmt.Errorf("report logo: %w", err)
		}
		pdf.ImageOptions(r.LogoPath, logoX, logoY, logoW, logoH, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	}

	for _, o := range plan(doc) {
		switch o.kind {
		case opPage:
			pdf.AddPage()
		case opText:
			pdf.Text(o.x, o.y, tr(o.text))
		case opRule:
			pdf.Line(ruleFromX, o.y, ruleToX, o.y)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// plan lays out the document with a vertical cursor. A new page starts
// whenever the next line would fall below the bottom margin.
func plan(doc Document) []op {
	ops := make([]op, 0, 2*len(doc.Entries)+4)
	y := titleY

	ops = append(ops, op{kind: opText, x: titleX, y: y, text: doc.Title})
	y += afterTitle
	ops = append(ops, op{kind: opRule, y: y})
	y += afterRule

	breakIfFull := func() {
		if y > pageBottomY {
			ops = append(ops, op{kind: opPage})
			y = pageTopY
		}
	}

	for _, e := range doc.Entries {
		breakIfFull()
		ops = append(ops, op{kind: opText, x: textX, y: y, text: e.Line()})
		y += afterLine
		ops = append(ops, op{kind: opRule, y: y})
		y += afterRule
	}

	y += beforeTotal
	breakIfFull()
	ops = append(ops, op{kind: opText, x: textX, y: y, text: doc.TotalLine()})

	return ops
}
