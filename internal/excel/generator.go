package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/proposals/internal/model"
)

const maxSheetName = 31

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes a summary sheet listing every proposal plus one detail sheet per proposal.
func (g *Generator) Generate(proposals []model.Proposal) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	summarySheet := "Proposals"
	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := g.writeSummary(file, summarySheet, proposals); err != nil {
		return nil, err
	}

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, proposal := range proposals {
		sheetName := buildSheetName(proposal, usedNames)
		usedNames[sheetName] = struct{}{}

		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		if err := g.writeDetail(file, sheetName, proposal); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render proposals workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, proposals []model.Proposal) error {
	headers := []any{"ID", "Client", "Services", "Start date", "End date", "Total amount", "Created at"}
	if err := file.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}

	for i, proposal := range proposals {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			proposal.ID,
			proposal.ClientName,
			strings.Join(proposal.Services, ", "),
			proposal.StartDate,
			proposal.EndDate,
			proposal.TotalAmount,
			formatDateTime(proposal.CreatedAt),
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if len(proposals) > 0 {
		if err := g.styleMoney(file, sheet, fmt.Sprintf("F2:F%d", len(proposals)+1)); err != nil {
			return err
		}
	}
	_ = file.SetColWidth(sheet, "A", "A", 8)
	_ = file.SetColWidth(sheet, "B", "C", 36)
	_ = file.SetColWidth(sheet, "D", "E", 14)
	_ = file.SetColWidth(sheet, "F", "F", 16)
	_ = file.SetColWidth(sheet, "G", "G", 20)
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, proposal model.Proposal) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Client")
	set("B1", proposal.ClientName)
	set("A2", "Services")
	set("B2", strings.Join(proposal.Services, ", "))
	set("A3", "Start date")
	set("B3", proposal.StartDate)
	set("A4", "End date")
	set("B4", proposal.EndDate)
	set("A5", "Notes")
	set("B5", proposal.Notes)
	set("A6", "Created at")
	set("B6", formatDateTime(proposal.CreatedAt))

	tableRow := 8
	headers := []string{"Item", "Unit price", "Quantity", "Line total"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, item := range proposal.Pricing {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), item.Name)
		set(fmt.Sprintf("B%d", row), item.UnitPrice)
		set(fmt.Sprintf("C%d", row), item.Quantity)
		set(fmt.Sprintf("D%d", row), item.LineTotal())
	}

	totalRow := tableRow + len(proposal.Pricing) + 1
	set(fmt.Sprintf("C%d", totalRow), "Total amount")
	set(fmt.Sprintf("D%d", totalRow), proposal.TotalAmount)

	if err := g.styleMoney(file, sheet, fmt.Sprintf("B%d:B%d", tableRow+1, totalRow)); err != nil {
		return err
	}
	if err := g.styleMoney(file, sheet, fmt.Sprintf("D%d:D%d", tableRow+1, totalRow)); err != nil {
		return err
	}
	_ = file.SetColWidth(sheet, "A", "A", 40)
	_ = file.SetColWidth(sheet, "B", "D", 16)
	return nil
}

func (g *Generator) styleMoney(file *excelize.File, sheet, ref string) error {
	format := "#,##0.00"
	style, err := file.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return err
	}
	first, last, _ := strings.Cut(ref, ":")
	return file.SetCellStyle(sheet, first, last, style)
}

func buildSheetName(proposal model.Proposal, used map[string]struct{}) string {
	base := fmt.Sprintf("#%d %s", proposal.ID, strings.TrimSpace(proposal.ClientName))
	base = sanitizeSheetName(base)
	base = truncate(base, maxSheetName)

	nameCandidate := base
	counter := 2
	for {
		if _, exists := used[nameCandidate]; !exists {
			return nameCandidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		nameCandidate = truncate(base, maxSheetName-len([]rune(suffix))) + suffix
		counter++
	}
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit]))
}

func sanitizeSheetName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Proposal"
	}

	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = replacer.Replace(value)
	value = strings.Trim(strings.TrimSpace(value), "'")
	if value == "" {
		return "Proposal"
	}
	return value
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
