package pdf

import (
	"context"
	"testing"
	"time"

	paymentdomain "github.com/smallbiznis/newsexpress/internal/payment/domain"
	reportdomain "github.com/smallbiznis/newsexpress/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptRendersPDF(t *testing.T) {
	paid := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	doc, err := New().Receipt(context.Background(), paymentdomain.Receipt{
		ReceiptNumber:    "RCP1ABC",
		CustomerName:     "Ana Reader",
		CustomerEmail:    "ana@example.com",
		PublicationTitle: "Morning Post",
		Amount:           4500,
		Method:           paymentdomain.MethodCash,
		Status:           paymentdomain.StatusCompleted,
		PaymentDate:      &paid,
		DueDate:          paid,
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(doc[:4]))
}

func TestTableRendersRowsAndEmptyState(t *testing.T) {
	table := reportdomain.Table{
		Title:       reportdomain.TypePayment.Title(),
		GeneratedOn: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Headers:     []string{"Date", "Total Amount", "Number of Payments", "Average Payment"},
		Rows: [][]any{
			{"2024-01-30", reportdomain.Money(3000), int64(2), reportdomain.Money(1500)},
		},
	}
	doc, err := New().Table(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(doc[:4]))

	table.Rows = nil
	empty, err := New().Table(context.Background(), table)
	require.NoError(t, err)
	assert.NotEmpty(t, empty)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Cheque", titleCase("cheque"))
	assert.Equal(t, "", titleCase(""))
}
