package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sizemo/ocreceipt/internal/models"
	"github.com/sizemo/ocreceipt/internal/ocr"
)

func resultFromLines(conf float64, lines ...string) ocr.Result {
	res := ocr.Result{
		Text:          strings.Join(lines, "\n"),
		AvgConfidence: conf,
	}
	for _, line := range lines {
		res.Lines = append(res.Lines, ocr.Line{Text: line, Confidence: conf})
	}
	return res
}

func TestExtractCleanReceipt(t *testing.T) {
	res := resultFromLines(90,
		"WALMART 027825",
		"01/15/2024",
		"SUBTOTAL 10.00",
		"TAX 0.80",
		"TOTAL 10.80",
	)

	f := Extract(res, models.DefaultHeuristics())

	require.NotNil(t, f.Merchant)
	require.Equal(t, "WALMART", *f.Merchant)

	require.NotNil(t, f.PurchaseDate)
	require.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), *f.PurchaseDate)

	require.NotNil(t, f.Total)
	require.True(t, f.Total.Equal(decimal.RequireFromString("10.80")), "total = %s", f.Total)

	require.NotNil(t, f.SalesTax)
	require.True(t, f.SalesTax.Equal(decimal.RequireFromString("0.80")), "tax = %s", f.SalesTax)

	require.InDelta(t, 90.0, f.Confidence, 0.01)
	require.False(t, f.NeedsReview)
	require.NotEmpty(t, f.RawText)
}

func TestExtractTaxGuardrailDiscardsOversizedTax(t *testing.T) {
	res := resultFromLines(80,
		"SOME SHOP",
		"TAX 30.00",
		"TOTAL 100.00",
	)

	f := Extract(res, models.DefaultHeuristics())

	require.NotNil(t, f.Total)
	require.True(t, f.Total.Equal(decimal.RequireFromString("100.00")))
	require.Nil(t, f.SalesTax, "a tax above a quarter of the total must be discarded")
	require.Zero(t, f.TaxConfidence)
}

func TestExtractSubtotalDeltaFallback(t *testing.T) {
	res := resultFromLines(85,
		"CORNER DELI",
		"SUBTOTAL 9.25",
		"TOTAL 10.00",
	)

	f := Extract(res, models.DefaultHeuristics())

	require.NotNil(t, f.SalesTax)
	require.True(t, f.SalesTax.Equal(decimal.RequireFromString("0.75")), "tax = %s", f.SalesTax)
	require.GreaterOrEqual(t, f.TaxConfidence, 40.0)
}

func TestExtractPercentOnlyTaxLine(t *testing.T) {
	res := resultFromLines(70, "TAX RATE 8.25%")

	f := Extract(res, models.DefaultHeuristics())

	require.Nil(t, f.SalesTax)
	require.Nil(t, f.Total)
	require.True(t, f.NeedsReview)
}

func TestExtractEmptyResult(t *testing.T) {
	f := Extract(ocr.Result{}, models.DefaultHeuristics())

	require.Nil(t, f.Merchant)
	require.Nil(t, f.PurchaseDate)
	require.Nil(t, f.Total)
	require.Nil(t, f.SalesTax)
	require.Zero(t, f.Confidence)
	require.True(t, f.NeedsReview)
}

func TestExtractConfidenceMonotonicInPassConfidence(t *testing.T) {
	lines := []string{
		"WALMART 027825",
		"01/15/2024",
		"SUBTOTAL 10.00",
		"TAX 0.80",
		"TOTAL 10.80",
	}

	low := Extract(resultFromLines(60, lines...), models.DefaultHeuristics())
	high := Extract(resultFromLines(95, lines...), models.DefaultHeuristics())

	require.Greater(t, high.Confidence, low.Confidence)
}

func TestExtractRemovingTotalLineNeverRaisesConfidence(t *testing.T) {
	lines := []string{
		"WALMART 027825",
		"01/15/2024",
		"SUBTOTAL 10.00",
		"TAX 0.80",
		"TOTAL 10.80",
	}

	full := Extract(resultFromLines(90, lines...), models.DefaultHeuristics())
	missing := Extract(resultFromLines(90, lines[:4]...), models.DefaultHeuristics())

	require.LessOrEqual(t, missing.Confidence, full.Confidence)
	require.True(t, missing.NeedsReview)
}

func TestParseMerchant(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			name:  "store number suffix stripped",
			lines: []string{"TACO BELL 027825", "ORDER 551"},
			want:  "TACO BELL",
		},
		{
			name:  "boilerplate skipped",
			lines: []string{"THANK YOU FOR SHOPPING", "ACME HARDWARE"},
			want:  "ACME HARDWARE",
		},
		{
			name:  "digit heavy line skipped",
			lines: []string{"1234 5678 9012 34", "GREEN GROCER"},
			want:  "GREEN GROCER",
		},
		{
			name:  "fallback to first line",
			lines: []string{"RECEIPT 00123"},
			want:  "RECEIPT 00123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merchant, _ := parseMerchant(tt.lines, buildConfMap(nil))
			require.NotNil(t, merchant)
			require.Equal(t, tt.want, *merchant)
		})
	}
}

func TestParseTotalPrefersKeywordLine(t *testing.T) {
	lines := []string{
		"ITEM A 4.99",
		"ITEM B 12.50",
		"TOTAL 17.49",
	}

	total, _ := parseTotal(lines, buildConfMap(nil), models.DefaultHeuristics())
	require.NotNil(t, total)
	require.True(t, total.Equal(decimal.RequireFromString("17.49")), "total = %s", total)
}

func TestParseTotalSubtotalSumAgreement(t *testing.T) {
	// "BALANCE" alone carries no keyword bonus; agreement with the
	// subtotal+tax sum must still rank it above the subtotal line.
	lines := []string{
		"SUBTOTAL 19.99",
		"TAX 1.60",
		"BALANCE 21.59",
	}

	total, _ := parseTotal(lines, buildConfMap(nil), models.DefaultHeuristics())
	require.NotNil(t, total)
	require.True(t, total.Equal(decimal.RequireFromString("21.59")), "total = %s", total)
}

func TestParseSalesTaxPicksRightmostAmount(t *testing.T) {
	lines := []string{"TAX 8.25% 0.83"}

	tax, _ := parseSalesTax(lines, buildConfMap(nil), models.DefaultHeuristics())
	require.NotNil(t, tax)
	require.True(t, tax.Equal(decimal.RequireFromString("0.83")), "tax = %s", tax)
}
