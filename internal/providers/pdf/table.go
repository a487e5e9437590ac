package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	reportdomain "github.com/smallbiznis/newsexpress/internal/report/domain"
)

const noData = "No data available for the selected report."

// Table renders one report table, one grid column per header.
func (p *MarotoProvider) Table(ctx context.Context, table reportdomain.Table) ([]byte, error) {
	builder := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		})
	if len(table.Headers) > 0 {
		builder = builder.WithMaxGridSize(len(table.Headers))
	}
	m := maroto.New(builder.Build())
	width := len(table.Headers)
	if width == 0 {
		width = 12
	}

	m.AddRow(12,
		text.NewCol(width, table.Title, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(8,
		text.NewCol(width, "Generated on: "+table.GeneratedOn.Format("2006-01-02"), props.Text{Size: 9}),
	)

	if table.Empty() {
		m.AddRow(10, text.NewCol(width, noData, props.Text{Size: 10, Top: 2}))
	} else {
		header := make([]core.Col, 0, len(table.Headers))
		for _, h := range table.Headers {
			header = append(header, text.NewCol(1, h, props.Text{
				Style: fontstyle.Bold,
				Size:  9,
				Align: align.Center,
			}))
		}
		m.AddRow(10, header...)

		for _, row := range table.Rows {
			cells := make([]core.Col, 0, len(row))
			for _, v := range row {
				cells = append(cells, text.NewCol(1, fmt.Sprint(v), props.Text{Size: 9, Align: align.Center}))
			}
			m.AddRow(8, cells...)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
