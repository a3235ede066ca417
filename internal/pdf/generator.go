package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/nurpe/proposals/internal/model"
)

const overviewText = "Thank you for considering our services. This proposal outlines the scope of work, " +
	"timeline, and pricing for your project. We're committed to delivering quality work that " +
	"meets your specific needs and expectations."

var terms = []string{
	"50% payment due upon project commencement.",
	"Remaining balance due upon project completion.",
	"Proposal valid for 30 days from the date of issue.",
	"Changes to project scope may affect timeline and cost.",
}

type Generator struct {
	fontName string
	currency string
}

func NewGenerator(currency string) (*Generator, error) {
	if len(dejaVuSans) == 0 || len(dejaVuSansBold) == 0 {
		return nil, fmt.Errorf("font data is empty")
	}
	return &Generator{fontName: "DejaVuSans", currency: currency}, nil
}

func (g *Generator) Generate(proposal model.Proposal) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetTitle("Proposal - "+proposal.ClientName, true)
	pdf.AddUTF8FontFromBytes(g.fontName, "", dejaVuSans)
	pdf.AddUTF8FontFromBytes(g.fontName, "B", dejaVuSansBold)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 22)
	pdf.CellFormat(0, 12, "Project Proposal", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, "Prepared for "+proposal.ClientName, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, formatTimestamp(proposal.CreatedAt), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	g.section(pdf, "Overview")
	pdf.MultiCell(0, 5, overviewText, "", "L", false)
	pdf.Ln(3)

	g.section(pdf, "Services")
	for _, service := range proposal.Services {
		pdf.MultiCell(0, 5, "- "+service, "", "L", false)
	}
	pdf.Ln(3)

	g.section(pdf, "Pricing")
	widths := []float64{80, 32, 20, 38}
	drawTableRow(pdf, g.fontName, []string{"Item", "Price", "Qty", "Total"}, widths, true)
	for _, item := range proposal.Pricing {
		drawTableRow(pdf, g.fontName, []string{
			item.Name,
			formatMoney(g.currency, item.UnitPrice),
			fmt.Sprintf("%d", item.Quantity),
			formatMoney(g.currency, item.LineTotal()),
		}, widths, false)
	}
	pdf.SetFont(g.fontName, "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, "Total Amount:", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, formatMoney(g.currency, proposal.TotalAmount), "1", 1, "R", false, 0, "")
	pdf.Ln(3)

	g.section(pdf, "Project Timeline")
	pdf.CellFormat(85, 6, "Start Date: "+formatDate(proposal.StartDate), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, "End Date: "+formatDate(proposal.EndDate), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	if strings.TrimSpace(proposal.Notes) != "" {
		g.section(pdf, "Additional Notes")
		pdf.MultiCell(0, 5, proposal.Notes, "", "L", false)
		pdf.Ln(3)
	}

	g.section(pdf, "Terms & Conditions")
	for _, term := range terms {
		pdf.MultiCell(0, 5, "- "+term, "", "L", false)
	}
	pdf.Ln(8)

	pdf.SetFont(g.fontName, "", 10)
	pdf.MultiCell(0, 5, "To accept this proposal, please sign below:", "", "L", false)
	pdf.Ln(12)
	signatureBlock(pdf, g.fontName)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render proposal pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.SetFont(g.fontName, "", 10)
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
		pdf.SetFillColor(243, 244, 246)
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, header, 0, "")
	}
	pdf.Ln(-1)
}

func signatureBlock(pdf *gofpdf.Fpdf, fontName string) {
	x, y := pdf.GetX(), pdf.GetY()
	pdf.Line(x, y, x+70, y)
	pdf.Line(x+95, y, x+165, y)
	pdf.SetFont(fontName, "", 10)
	pdf.CellFormat(95, 6, "Client Signature", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Date", "", 1, "L", false, 0, "")
}

func formatMoney(currency string, value float64) string {
	fixed := decimal.NewFromFloat(value).StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}
	return sign + currency + grouped.String() + "." + frac
}

func formatDate(raw string) string {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return parsed.Format("January 2, 2006")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("January 2, 2006")
}
