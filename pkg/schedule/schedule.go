package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vmoraes/mutuo/pkg/models"
	"github.com/vmoraes/mutuo/pkg/money"
)

var (
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// Entry is one computed installment before it is persisted. The same
// shape serves dry-run previews and the generator.
type Entry struct {
	Number    int         `json:"number"`
	DueDate   time.Time   `json:"due_date"`
	Principal money.Money `json:"principal_amount"`
	Interest  money.Money `json:"interest_amount"`
	Tax       money.Money `json:"tax_amount"`
}

// Total is the full amount due for the entry.
func (e Entry) Total() money.Money {
	return e.Principal.Add(e.Interest).Add(e.Tax)
}

// Compute validates the parameters and produces the full installment
// sequence for the contract using the selected amortization method.
// Nothing is persisted; on error no partial sequence is returned.
//
// Shared rules for both methods:
//   - monthly rate = annual rate / 12 / 100, plain division
//   - installment i is due exactly i calendar months after the start date
//   - during the grace period the principal slice is zero and interest
//     accrues on the undiminished balance
//   - tax = (principal + interest) * taxRate, rounded independently
//   - the last installment's principal is forced to the remaining
//     balance, absorbing all rounding residue, so the principal slices
//     always sum to the contract principal exactly
func Compute(contract models.LoanContract, params Parameters) ([]Entry, error) {
	if err := params.Validate(contract); err != nil {
		return nil, err
	}

	amortizing := params.InstallmentCount - params.GraceMonths
	if amortizing == 0 {
		return nil, fmt.Errorf("%w: grace period of %d months leaves no installments to amortize principal",
			ErrArithmeticDomain, params.GraceMonths)
	}

	monthlyRate := contract.AnnualRate.Div(twelve).Div(hundred)
	taxRate := params.TaxRatePercent.Div(hundred)

	switch params.Method {
	case models.MethodSAC:
		return sacSchedule(contract, params, monthlyRate, taxRate)
	default:
		return priceSchedule(contract, params, monthlyRate, taxRate)
	}
}

// priceSchedule computes the level-payment (PRICE) schedule. The level
// payment PMT = P*i*(1+i)^n / ((1+i)^n - 1) is computed once; the
// annuity factor uses float64 exponentiation, monetary arithmetic stays
// in decimal. At zero rate the method degenerates to an even split of
// the principal over the amortizing installments.
func priceSchedule(contract models.LoanContract, params Parameters, monthlyRate, taxRate decimal.Decimal) ([]Entry, error) {
	n := params.InstallmentCount
	grace := params.GraceMonths

	var pmt money.Money
	if monthlyRate.IsZero() {
		pmt = contract.Principal.Div(int64(n - grace))
	} else {
		rate, _ := monthlyRate.Float64()
		factor := math.Pow(1+rate, float64(n))
		raw := contract.Principal.Decimal().InexactFloat64() * rate * factor / (factor - 1)
		pmt = money.New(decimal.NewFromFloat(raw))
	}

	entries := make([]Entry, 0, n)
	balance := contract.Principal

	for num := 1; num <= n; num++ {
		interest := balance.MulRate(monthlyRate)

		principal := money.Zero()
		switch {
		case num <= grace:
			// interest-only period
		case num == n:
			principal = balance
		default:
			principal = pmt.Sub(interest)
		}

		if principal.IsNegative() {
			return nil, fmt.Errorf("%w: negative principal slice at installment %d", ErrArithmeticDomain, num)
		}
		balance = balance.Sub(principal)
		if balance.IsNegative() {
			return nil, fmt.Errorf("%w: outstanding balance below zero at installment %d", ErrArithmeticDomain, num)
		}

		entries = append(entries, Entry{
			Number:    num,
			DueDate:   contract.StartDate.AddDate(0, num, 0),
			Principal: principal,
			Interest:  interest,
			Tax:       principal.Add(interest).MulRate(taxRate),
		})
	}

	return entries, nil
}

// sacSchedule computes the constant-amortization (SAC) schedule: the
// principal slice A = P / (n - grace) is fixed, so the total payment
// shrinks as interest decays with the balance.
func sacSchedule(contract models.LoanContract, params Parameters, monthlyRate, taxRate decimal.Decimal) ([]Entry, error) {
	n := params.InstallmentCount
	grace := params.GraceMonths
	slice := contract.Principal.Div(int64(n - grace))

	entries := make([]Entry, 0, n)
	balance := contract.Principal

	for num := 1; num <= n; num++ {
		interest := balance.MulRate(monthlyRate)

		principal := money.Zero()
		switch {
		case num <= grace:
		case num == n:
			principal = balance
		default:
			principal = slice
		}

		balance = balance.Sub(principal)
		if balance.IsNegative() {
			return nil, fmt.Errorf("%w: outstanding balance below zero at installment %d", ErrArithmeticDomain, num)
		}

		entries = append(entries, Entry{
			Number:    num,
			DueDate:   contract.StartDate.AddDate(0, num, 0),
			Principal: principal,
			Interest:  interest,
			Tax:       principal.Add(interest).MulRate(taxRate),
		})
	}

	return entries, nil
}
