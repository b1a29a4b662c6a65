package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/stockroom/internal/application"
	"github.com/bnema/stockroom/internal/domain"
)

func TestRenderDaily(t *testing.T) {
	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	output, err := Daily(domain.DailyReport{
		Window:       domain.DayWindow(day),
		Totals:       domain.ResourceTotals{Total: 4, Free: 2, Issued: 2, IssuedInWindow: 2},
		Purchases:    domain.PurchaseTotals{Count: 4, Spent: decimal.RequireFromString("50")},
		IssuedByType: []domain.TypeCount{{Type: "mamba", Count: 2}},
		FreeByType:   []domain.TypeCount{{Type: "mamba", Count: 1}, {Type: "tabor", Count: 1}},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Daily report")
	assert.Contains(t, output, "2026-03-01 00:00")
	assert.Contains(t, output, "50.00")
	assert.Contains(t, output, "12.50")
	assert.Contains(t, output, "tabor")
	assert.Contains(t, output, "[")
}

func TestRenderIssued(t *testing.T) {
	issued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	output, err := Issued([]domain.Resource{
		{ID: 7, Type: "mamba", Login: "a@x.com", Password: "pw", Proxy: "1.1.1.1:80", IssueTime: &issued, ReceiptState: domain.ReceiptGood},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "#7")
	assert.Contains(t, output, "a@x.com:pw:1.1.1.1:80")
	assert.Contains(t, output, "good")
}

func TestRenderEmptyViews(t *testing.T) {
	output, err := Issued(nil)
	require.NoError(t, err)
	assert.Contains(t, output, "Nothing issued.")

	output, err = Stock(nil)
	require.NoError(t, err)
	assert.Contains(t, output, "none")

	output, err = Managers(nil)
	require.NoError(t, err)
	assert.Contains(t, output, "No managers registered.")
}

func TestRenderIngest(t *testing.T) {
	output, err := Ingest(application.IngestResult{Type: "mamba", BatchID: "01J", Parsed: 3, Inserted: 2, Duplicates: 1, Skipped: 1, Price: decimal.RequireFromString("5")})
	require.NoError(t, err)
	assert.Contains(t, output, "Uploaded mamba")
	assert.Contains(t, output, "5.00")
	assert.Contains(t, output, "1 unreadable line(s) skipped")
	assert.NotContains(t, output, "failed")
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"short"}, SplitLines("short", 10))

	chunks := SplitLines("aaaa\nbbbb\ncccc", 9)
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, chunks)

	chunks = SplitLines("xxxxxxxxxxxx\ny", 5)
	assert.Equal(t, []string{"xxxxx", "xxxxx", "xx\ny"}, chunks)

	long := strings.Repeat("line of text\n", 1000)
	for _, chunk := range SplitLines(long, MessageLimit) {
		assert.LessOrEqual(t, len(chunk), MessageLimit)
	}
}

func TestRenderFinance(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	output, err := Finance(domain.DayWindow(day), domain.PurchaseTotals{Count: 3, Spent: decimal.RequireFromString("10")})
	require.NoError(t, err)
	assert.Contains(t, output, "Purchases")
	assert.Contains(t, output, "2026-03-01")
	assert.Contains(t, output, "10.00")
	assert.Contains(t, output, "3.33")
}
