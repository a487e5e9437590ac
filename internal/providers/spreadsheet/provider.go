// Package spreadsheet exports report tables as xlsx workbooks.
package spreadsheet

import (
	"context"
	"fmt"

	reportdomain "github.com/smallbiznis/newsexpress/internal/report/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.spreadsheet",
	fx.Provide(New),
)

type Provider interface {
	Table(ctx context.Context, table reportdomain.Table) ([]byte, error)
}

type ExcelizeProvider struct{}

func New() Provider {
	return &ExcelizeProvider{}
}

const noData = "No data available for the selected report."

func (p *ExcelizeProvider) Table(ctx context.Context, table reportdomain.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := table.Sheet
	if sheet == "" {
		sheet = "Report"
	}
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheet, "A1", table.Title)
	_ = f.SetCellValue(sheet, "A2", "Generated on: "+table.GeneratedOn.Format("2006-01-02"))

	if table.Empty() {
		_ = f.SetCellValue(sheet, "A4", noData)
	} else {
		for c, h := range table.Headers {
			cell, _ := excelize.CoordinatesToCellName(c+1, 4)
			_ = f.SetCellValue(sheet, cell, h)
		}
		for r, row := range table.Rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+5)
				if err := f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
					return nil, fmt.Errorf("write %s: %w", cell, err)
				}
			}
		}

		last, _ := excelize.ColumnNumberToName(len(table.Headers))
		_ = f.SetColWidth(sheet, "A", last, 18)
		style, _ := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#6B7280"}, Pattern: 1},
		})
		_ = f.SetCellStyle(sheet, "A4", last+"4", style)
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cellValue keeps money and rates numeric so the sheet can be summed.
func cellValue(v any) any {
	switch x := v.(type) {
	case reportdomain.Money:
		return x.Dollars()
	case reportdomain.Percent:
		return float64(x)
	default:
		return v
	}
}
