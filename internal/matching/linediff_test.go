package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dockmatch/internal/domain"
	"dockmatch/internal/matching"
)

func line(desc string, qty, price float64) domain.LineItem {
	return domain.LineItem{
		Description: desc,
		Quantity:    qty,
		UnitPrice:   price,
		LineTotal:   qty * price,
	}
}

func TestDiffLines_ExactLinesAreOK(t *testing.T) {
	tol := matching.DefaultTolerances()
	inv := []domain.LineItem{
		line("Tomatoes Cherry 250g", 2, 25.00),
		line("Olive Oil 5L", 1, 42.50),
	}
	note := []domain.LineItem{
		line("Tomatoes Cherry 250g", 2, 25.00),
		line("Olive Oil 5L", 1, 42.50),
	}

	diffs := matching.DiffLines(inv, note, tol)

	require.Len(t, diffs, 2)
	for _, d := range diffs {
		assert.Equal(t, domain.LineDiffOK, d.Status)
		assert.Equal(t, 1.0, d.Confidence)
		require.NotNil(t, d.InvoiceLine)
		require.NotNil(t, d.NoteLine)
	}
}

func TestDiffLines_QuantityOutsideRelativeTolerance(t *testing.T) {
	tol := matching.DefaultTolerances()
	tol.QtyTolRel = 0.1
	tol.QtyTolAbs = 0

	// 10 vs 8 is a 20% relative deviation, over the 10% tolerance.
	diffs := matching.DiffLines(
		[]domain.LineItem{line("Chicken Breast 1kg", 10, 8.90)},
		[]domain.LineItem{line("Chicken Breast 1kg", 8, 8.90)},
		tol,
	)

	require.Len(t, diffs, 1)
	assert.Equal(t, domain.LineDiffQuantityMismatch, diffs[0].Status)

	codes := reasonCodes(diffs[0].Reasons)
	assert.Contains(t, codes, domain.ReasonQuantityMismatch)
	assert.Contains(t, codes, domain.ReasonPriceOK)
}

func TestDiffLines_QuantityInsideAbsoluteTolerance(t *testing.T) {
	tol := matching.DefaultTolerances()
	tol.QtyTolRel = 0
	tol.QtyTolAbs = 2

	diffs := matching.DiffLines(
		[]domain.LineItem{line("Eggs Free Range", 30, 0.45)},
		[]domain.LineItem{line("Eggs Free Range", 28, 0.45)},
		tol,
	)

	require.Len(t, diffs, 1)
	assert.Equal(t, domain.LineDiffOK, diffs[0].Status)
}

func TestDiffLines_QuantityMismatchOutranksPrice(t *testing.T) {
	tol := matching.DefaultTolerances()

	diffs := matching.DiffLines(
		[]domain.LineItem{line("Beef Mince 500g", 10, 12.00)},
		[]domain.LineItem{line("Beef Mince 500g", 5, 15.00)},
		tol,
	)

	require.Len(t, diffs, 1)
	assert.Equal(t, domain.LineDiffQuantityMismatch, diffs[0].Status)

	codes := reasonCodes(diffs[0].Reasons)
	assert.Contains(t, codes, domain.ReasonQuantityMismatch)
	assert.Contains(t, codes, domain.ReasonPriceMismatch)
}

func TestDiffLines_PriceOutsideTolerance(t *testing.T) {
	tol := matching.DefaultTolerances()

	diffs := matching.DiffLines(
		[]domain.LineItem{line("Butter Unsalted 250g", 4, 3.20)},
		[]domain.LineItem{line("Butter Unsalted 250g", 4, 3.60)},
		tol,
	)

	require.Len(t, diffs, 1)
	assert.Equal(t, domain.LineDiffPriceMismatch, diffs[0].Status)
}

func TestDiffLines_UnmatchedLines(t *testing.T) {
	tol := matching.DefaultTolerances()

	diffs := matching.DiffLines(
		[]domain.LineItem{
			line("Tomatoes Cherry 250g", 2, 25.00),
			line("Basil Fresh Bunch", 3, 1.80),
		},
		[]domain.LineItem{
			line("Tomatoes Cherry 250g", 2, 25.00),
			line("Parmesan Wedge 300g", 1, 7.40),
		},
		tol,
	)

	require.Len(t, diffs, 3)
	assert.Equal(t, domain.LineDiffOK, diffs[0].Status)
	assert.Equal(t, domain.LineDiffMissingOnDN, diffs[1].Status)
	assert.Nil(t, diffs[1].NoteLine)
	assert.Equal(t, domain.LineDiffMissingOnInv, diffs[2].Status)
	assert.Nil(t, diffs[2].InvoiceLine)
}

func TestDiffLines_BelowFuzzyThresholdNeverAligns(t *testing.T) {
	tol := matching.DefaultTolerances()
	tol.FuzzyDescThreshold = 0.9

	diffs := matching.DiffLines(
		[]domain.LineItem{line("Chicken Breast 1kg", 5, 8.90)},
		[]domain.LineItem{line("Chkn Brst", 5, 8.90)},
		tol,
	)

	require.Len(t, diffs, 2)
	assert.Equal(t, domain.LineDiffMissingOnDN, diffs[0].Status)
	assert.Equal(t, domain.LineDiffMissingOnInv, diffs[1].Status)
}

func TestDiffLines_Deterministic(t *testing.T) {
	tol := matching.DefaultTolerances()
	inv := []domain.LineItem{
		line("House Red Wine 750ml", 12, 6.50),
		line("House White Wine 750ml", 12, 6.20),
		line("Sparkling Water 1L", 24, 0.90),
	}
	note := []domain.LineItem{
		line("House White Wine 750ml", 12, 6.20),
		line("Sparkling Water 1L", 24, 0.90),
		line("House Red Wine 750ml", 12, 6.50),
	}

	first := matching.DiffLines(inv, note, tol)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, matching.DiffLines(inv, note, tol))
	}
}

func TestDiffLines_MalformedLineFlagged(t *testing.T) {
	tol := matching.DefaultTolerances()

	diffs := matching.DiffLines(
		[]domain.LineItem{line("Credit Adjustment", -1, 10.00)},
		nil,
		tol,
	)

	require.Len(t, diffs, 1)
	assert.Contains(t, reasonCodes(diffs[0].Reasons), domain.ReasonMalformedLine)
}

func reasonCodes(reasons []domain.MatchReason) []domain.ReasonCode {
	codes := make([]domain.ReasonCode, 0, len(reasons))
	for _, r := range reasons {
		codes = append(codes, r.Code)
	}
	return codes
}
