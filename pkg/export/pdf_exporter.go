package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// SheetField is a single label/value pair on a property sheet.
type SheetField struct {
	Label string
	Value string
}

// SheetSection groups related fields under a heading.
type SheetSection struct {
	Title  string
	Fields []SheetField
	Text   string
}

// PDFExporter renders printable property sheets.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderSheet creates a one-page property sheet with a title, subtitle and
// a series of labelled sections.
func (e *PDFExporter) RenderSheet(title, subtitle string, sections []SheetSection) ([]byte, error) {
	if title == "" {
		return nil, fmt.Errorf("sheet requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.MultiCell(0, 8, title, "", "L", false)
	if subtitle != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.SetTextColor(90, 90, 90)
		pdf.MultiCell(0, 6, subtitle, "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	for _, section := range sections {
		if section.Title != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, strings.ToUpper(section.Title), "B", 1, "L", false, 0, "")
			pdf.Ln(1)
		}
		for _, field := range section.Fields {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(55, 6, field.Label, "", 0, "L", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, 6, field.Value, "", "L", false)
		}
		if section.Text != "" {
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, 5, section.Text, "", "L", false)
		}
		pdf.Ln(3)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render sheet: %w", err)
	}
	return buf.Bytes(), nil
}
