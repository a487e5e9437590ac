package pdf

import (
	"context"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	reportdomain "github.com/smallbiznis/newsexpress/internal/report/domain"
)

func (p *MarotoProvider) Receipt(ctx context.Context, receipt paymentdomain.Receipt) ([]byte, error) {
	m := maroto.New(config.NewBuilder().Build())

	m.AddRow(14,
		text.NewCol(8, "NewsExpress", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Payment Receipt", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
			Top:   3,
		}),
	)

	paidOn := "-"
	if receipt.PaymentDate != nil {
		paidOn = receipt.PaymentDate.Format("2006-01-02")
	}
	m.AddRow(24,
		col.New(6).Add(
			text.New("Receipt number: "+receipt.ReceiptNumber, props.Text{Top: 0}),
			text.New("Payment date: "+paidOn, props.Text{Top: 5}),
			text.New("Due date: "+receipt.DueDate.Format("2006-01-02"), props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Received from", props.Text{Style: fontstyle.Bold}),
			text.New(receipt.CustomerName, props.Text{Top: 5}),
			text.New(receipt.CustomerEmail, props.Text{Top: 10}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Publication", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Method", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Status", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(6, receipt.PublicationTitle, props.Text{Size: 9}),
		text.NewCol(2, titleCase(string(receipt.Method)), props.Text{Size: 9}),
		text.NewCol(2, titleCase(string(receipt.Status)), props.Text{Size: 9}),
		text.NewCol(2, reportdomain.Money(receipt.Amount).String(), props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(14,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10, Top: 4}),
		text.NewCol(2, reportdomain.Money(receipt.Amount).String(), props.Text{
			Style: fontstyle.Bold,
			Size:  10,
			Top:   4,
			Align: align.Right,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func titleCase(v string) string {
	if v == "" {
		return v
	}
	return strings.ToUpper(v[:1]) + v[1:]
}
