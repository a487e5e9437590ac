package spreadsheet

import (
	"bytes"
	"context"
	"testing"
	"time"

	reportdomain "github.com/smallbiznis/newsexpress/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func open(t *testing.T, content []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestTableWritesHeadersAndNumericCells(t *testing.T) {
	content, err := New().Table(context.Background(), reportdomain.Table{
		Title:       "NewsExpress - Subscription Report",
		GeneratedOn: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Sheet:       "Subscriptions",
		Headers:     []string{"Publication", "Total", "Active Rate"},
		Rows: [][]any{
			{"Morning Post", int64(4), reportdomain.Percent(75)},
			{"Weekly Digest", int64(1), reportdomain.Percent(0)},
		},
	})
	require.NoError(t, err)

	f := open(t, content)
	assert.Equal(t, []string{"Subscriptions"}, f.GetSheetList())

	title, err := f.GetCellValue("Subscriptions", "A1")
	require.NoError(t, err)
	assert.Equal(t, "NewsExpress - Subscription Report", title)

	header, err := f.GetCellValue("Subscriptions", "C4")
	require.NoError(t, err)
	assert.Equal(t, "Active Rate", header)

	rate, err := f.GetCellValue("Subscriptions", "C5")
	require.NoError(t, err)
	assert.Equal(t, "75", rate)

	publication, err := f.GetCellValue("Subscriptions", "A6")
	require.NoError(t, err)
	assert.Equal(t, "Weekly Digest", publication)
}

func TestTableEmptyState(t *testing.T) {
	content, err := New().Table(context.Background(), reportdomain.Table{
		Title:   "NewsExpress - Commission Report",
		Headers: []string{"Delivery Person"},
	})
	require.NoError(t, err)

	f := open(t, content)
	msg, err := f.GetCellValue("Report", "A4")
	require.NoError(t, err)
	assert.Equal(t, noData, msg)
}

func TestCellValueConvertsMoney(t *testing.T) {
	assert.Equal(t, 12.5, cellValue(reportdomain.Money(1250)))
	assert.Equal(t, "x", cellValue("x"))
}
