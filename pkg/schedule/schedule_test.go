package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmoraes/mutuo/pkg/models"
	"github.com/vmoraes/mutuo/pkg/money"
)

func testContract(principal float64, annualRate string) models.LoanContract {
	return models.LoanContract{
		ID:         uuid.New(),
		Principal:  money.FromFloat(principal),
		AnnualRate: decimal.RequireFromString(annualRate),
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func params(count, grace int, method models.Method, taxPercent string) Parameters {
	return Parameters{
		InstallmentCount: count,
		GraceMonths:      grace,
		Method:           method,
		TaxRatePercent:   decimal.RequireFromString(taxPercent),
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	contract := testContract(1000, "10")

	cases := []struct {
		name   string
		mutate func(*models.LoanContract, *Parameters)
	}{
		{"zero installments", func(c *models.LoanContract, p *Parameters) { p.InstallmentCount = 0 }},
		{"negative grace", func(c *models.LoanContract, p *Parameters) { p.GraceMonths = -1 }},
		{"grace beyond count", func(c *models.LoanContract, p *Parameters) { p.GraceMonths = p.InstallmentCount + 1 }},
		{"unknown method", func(c *models.LoanContract, p *Parameters) { p.Method = "BALLOON" }},
		{"negative tax rate", func(c *models.LoanContract, p *Parameters) { p.TaxRatePercent = decimal.RequireFromString("-0.01") }},
		{"zero principal", func(c *models.LoanContract, p *Parameters) { c.Principal = money.Zero() }},
		{"negative principal", func(c *models.LoanContract, p *Parameters) { c.Principal = money.FromFloat(-5) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := contract
			p := params(12, 0, models.MethodPrice, "0")
			tc.mutate(&c, &p)

			entries, err := Compute(c, p)
			require.ErrorIs(t, err, ErrInvalidParameter)
			assert.Nil(t, entries)
		})
	}
}

func TestComputeFailsWhenNothingAmortizes(t *testing.T) {
	contract := testContract(1000, "10")
	p := params(6, 6, models.MethodSAC, "0")

	entries, err := Compute(contract, p)
	require.ErrorIs(t, err, ErrArithmeticDomain)
	assert.Nil(t, entries)
}

func TestSACConcreteScenario(t *testing.T) {
	// 120000.00 at 12% a.a. over 12 months, no grace, no tax.
	contract := testContract(120000, "12")
	entries, err := Compute(contract, params(12, 0, models.MethodSAC, "0"))
	require.NoError(t, err)
	require.Len(t, entries, 12)

	assert.Equal(t, "10000.00", entries[0].Principal.String())
	assert.Equal(t, "1200.00", entries[0].Interest.String())
	assert.Equal(t, "10000.00", entries[11].Principal.String())
	assert.Equal(t, "100.00", entries[11].Interest.String())

	sum := money.Zero()
	for _, e := range entries {
		sum = sum.Add(e.Principal)
	}
	assert.True(t, sum.Equal(contract.Principal), "principal slices must sum to the contract principal")
}

func TestPriceZeroRateWithGrace(t *testing.T) {
	// 60000.00 interest-free over 6 months with 2 grace months.
	contract := testContract(60000, "0")
	entries, err := Compute(contract, params(6, 2, models.MethodPrice, "0"))
	require.NoError(t, err)
	require.Len(t, entries, 6)

	for i := 0; i < 2; i++ {
		assert.True(t, entries[i].Principal.IsZero(), "installment %d should defer principal", i+1)
		assert.True(t, entries[i].Interest.IsZero())
	}
	for i := 2; i < 6; i++ {
		assert.Equal(t, "15000.00", entries[i].Principal.String(), "installment %d", i+1)
	}
}

func TestConservationAcrossMethodsGraceAndRates(t *testing.T) {
	principals := []float64{100000.01, 3333.33}
	rates := []string{"0", "7.5", "12", "19.99"}
	counts := []int{1, 6, 12, 24}

	for _, method := range []models.Method{models.MethodPrice, models.MethodSAC} {
		for _, principal := range principals {
			for _, rate := range rates {
				for _, count := range counts {
					for grace := 0; grace < count; grace++ {
						name := fmt.Sprintf("%s/%.2f/%s%%/n%d/g%d", method, principal, rate, count, grace)
						t.Run(name, func(t *testing.T) {
							contract := testContract(principal, rate)
							entries, err := Compute(contract, params(count, grace, method, "1.5"))
							require.NoError(t, err)
							require.Len(t, entries, count)

							sum := money.Zero()
							for _, e := range entries {
								assert.False(t, e.Principal.IsNegative())
								assert.False(t, e.Interest.IsNegative())
								assert.False(t, e.Tax.IsNegative())
								sum = sum.Add(e.Principal)
							}
							assert.True(t, sum.Equal(contract.Principal),
								"expected sum %s, got %s", contract.Principal, sum)
						})
					}
				}
			}
		}
	}
}

func TestDueDatesAreExactCalendarMonths(t *testing.T) {
	contract := testContract(10000, "10")
	contract.StartDate = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	entries, err := Compute(contract, params(14, 0, models.MethodSAC, "0"))
	require.NoError(t, err)

	for i, e := range entries {
		want := contract.StartDate.AddDate(0, i+1, 0)
		assert.True(t, e.DueDate.Equal(want), "installment %d: want %s, got %s", i+1, want, e.DueDate)
		if i > 0 {
			assert.True(t, e.DueDate.After(entries[i-1].DueDate), "due dates must be strictly increasing")
		}
	}
}

func TestGracePeriodAccruesInterestOnly(t *testing.T) {
	contract := testContract(50000, "18")

	for _, method := range []models.Method{models.MethodPrice, models.MethodSAC} {
		entries, err := Compute(contract, params(10, 4, method, "0"))
		require.NoError(t, err)

		expectedInterest := contract.Principal.MulRate(decimal.RequireFromString("0.015"))
		for i := 0; i < 4; i++ {
			assert.True(t, entries[i].Principal.IsZero(), "%s installment %d", method, i+1)
			assert.True(t, entries[i].Interest.Equal(expectedInterest),
				"%s grace interest must accrue on the undiminished balance", method)
		}
		assert.True(t, entries[4].Principal.IsPositive(), "%s amortization starts after grace", method)
	}
}

func TestPriceLevelPayment(t *testing.T) {
	contract := testContract(250000, "13.25")
	entries, err := Compute(contract, params(24, 3, models.MethodPrice, "0"))
	require.NoError(t, err)

	// principal + interest is the same level payment for every amortizing
	// installment except the balancing one at the end.
	level := entries[3].Principal.Add(entries[3].Interest)
	for i := 4; i < len(entries)-1; i++ {
		total := entries[i].Principal.Add(entries[i].Interest)
		assert.True(t, total.Equal(level), "installment %d: want %s, got %s", i+1, level, total)
	}
}

func TestSACConstantSliceDecreasingInterest(t *testing.T) {
	contract := testContract(120000, "12")
	entries, err := Compute(contract, params(12, 0, models.MethodSAC, "0"))
	require.NoError(t, err)

	slice := entries[0].Principal
	for i := 0; i < len(entries)-1; i++ {
		assert.True(t, entries[i].Principal.Equal(slice), "installment %d slice", i+1)
	}
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, -1, entries[i].Interest.Cmp(entries[i-1].Interest),
			"interest must strictly decrease at installment %d", i+1)
	}
}

func TestTaxIsRoundedIndependently(t *testing.T) {
	// Single installment: principal 1000.00, no interest, 3.8% tax.
	contract := testContract(1000, "0")
	entries, err := Compute(contract, params(1, 0, models.MethodPrice, "3.8"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "38.00", entries[0].Tax.String())

	// 333.33 * 1% = 3.3333 -> 3.33; the tax never alters the split.
	contract = testContract(333.33, "0")
	entries, err = Compute(contract, params(1, 0, models.MethodSAC, "1"))
	require.NoError(t, err)
	assert.Equal(t, "333.33", entries[0].Principal.String())
	assert.Equal(t, "3.33", entries[0].Tax.String())
}
