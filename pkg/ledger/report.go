package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/vmoraes/mutuo/pkg/models"
	"github.com/vmoraes/mutuo/pkg/money"
)

// DefaultDueSoonWindowDays is the near-term window applied when the
// caller does not supply one.
const DefaultDueSoonWindowDays = 30

// Summarize derives the contract KPIs from a point-in-time snapshot of
// its installments. Pure function: the aggregates are recomputed on
// every call and never stored, so they cannot go stale relative to the
// ledger.
func Summarize(contractID uuid.UUID, installments []*models.Installment, asOf time.Time, windowDays int) models.Summary {
	if windowDays <= 0 {
		windowDays = DefaultDueSoonWindowDays
	}
	windowEnd := asOf.AddDate(0, 0, windowDays)

	summary := models.Summary{
		ContractID:         contractID,
		AsOf:               asOf,
		OutstandingBalance: money.Zero(),
		OverdueAmount:      money.Zero(),
		DueSoonAmount:      money.Zero(),
	}

	settledCount := 0
	for _, inst := range installments {
		if inst.Settled {
			settledCount++
			continue
		}
		summary.OutstandingBalance = summary.OutstandingBalance.Add(inst.Principal)

		switch {
		case inst.DueDate.Before(asOf):
			summary.OverdueCount++
			summary.OverdueAmount = summary.OverdueAmount.Add(inst.Total())
		case !inst.DueDate.After(windowEnd):
			summary.DueSoonCount++
			summary.DueSoonAmount = summary.DueSoonAmount.Add(inst.Total())
		}
	}

	switch {
	case len(installments) == 0:
		summary.Status = models.StatusNoInstallments
	case settledCount == len(installments):
		summary.Status = models.StatusSettled
	case summary.OverdueCount > 0:
		summary.Status = models.StatusOverdue
	default:
		summary.Status = models.StatusInProgress
	}

	return summary
}

// Summary reads the contract's ledger and derives its KPIs as of the
// given date.
func (l *Ledger) Summary(contractID uuid.UUID, asOf time.Time, windowDays int) (models.Summary, error) {
	installments, err := l.storage.InstallmentsForContract(contractID)
	if err != nil {
		return models.Summary{}, err
	}
	return Summarize(contractID, installments, asOf, windowDays), nil
}
