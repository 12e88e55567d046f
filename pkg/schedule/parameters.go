package schedule

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vmoraes/mutuo/pkg/models"
)

var (
	// ErrInvalidParameter marks caller errors: the request is malformed
	// and resubmitting without changes will fail identically.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrArithmeticDomain marks mathematically degenerate inputs, e.g. a
	// grace period that leaves no installments to amortize principal.
	ErrArithmeticDomain = errors.New("arithmetic domain error")
)

// Parameters is the input bundle for one schedule generation request.
type Parameters struct {
	InstallmentCount int             `json:"installment_count"`
	GraceMonths      int             `json:"grace_months"`
	Method           models.Method   `json:"method"`
	TaxRatePercent   decimal.Decimal `json:"tax_rate_percent"`
	ReplaceUnsettled bool            `json:"replace_unsettled"`
}

// Validate checks the parameters against the contract snapshot. Pure;
// every failure wraps ErrInvalidParameter.
func (p Parameters) Validate(contract models.LoanContract) error {
	if p.InstallmentCount < 1 {
		return fmt.Errorf("%w: installment_count must be at least 1, got %d", ErrInvalidParameter, p.InstallmentCount)
	}
	if p.GraceMonths < 0 || p.GraceMonths > p.InstallmentCount {
		return fmt.Errorf("%w: grace_months must be between 0 and %d, got %d", ErrInvalidParameter, p.InstallmentCount, p.GraceMonths)
	}
	switch p.Method {
	case models.MethodPrice, models.MethodSAC:
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidParameter, p.Method)
	}
	if p.TaxRatePercent.IsNegative() {
		return fmt.Errorf("%w: tax_rate_percent must not be negative, got %s", ErrInvalidParameter, p.TaxRatePercent)
	}
	if !contract.Principal.IsPositive() {
		return fmt.Errorf("%w: contract principal must be positive, got %s", ErrInvalidParameter, contract.Principal)
	}
	return nil
}
