package ledger

import (
	"github.com/vmoraes/mutuo/pkg/metrics"
	"github.com/vmoraes/mutuo/pkg/models"
	"github.com/vmoraes/mutuo/pkg/money"
	"github.com/vmoraes/mutuo/pkg/schedule"
)

// Preview computes a schedule without touching the ledger. It runs the
// exact same calculator as Generate, so a dry run always matches what a
// later commit would persist.
func (l *Ledger) Preview(contract models.LoanContract, params schedule.Parameters) ([]schedule.Entry, error) {
	return schedule.Compute(contract, params)
}

// Generate computes the schedule for the contract and persists it.
// With params.ReplaceUnsettled the contract's open installments are
// purged first; settled ones always survive. Generation is an explicit
// operation and is never triggered by contract edits.
func (l *Ledger) Generate(contract models.LoanContract, params schedule.Parameters) (*models.GeneratedSchedule, error) {
	entries, err := schedule.Compute(contract, params)
	if err != nil {
		metrics.ScheduleGenerations.WithLabelValues(string(params.Method), "rejected").Inc()
		return nil, err
	}

	if params.ReplaceUnsettled {
		err = l.ReplaceUnsettled(contract.ID, entries)
	} else {
		err = l.Append(contract.ID, entries)
	}
	if err != nil {
		metrics.ScheduleGenerations.WithLabelValues(string(params.Method), "error").Inc()
		return nil, err
	}

	result := &models.GeneratedSchedule{
		ContractID:     contract.ID,
		Count:          len(entries),
		TotalPrincipal: money.Zero(),
		TotalInterest:  money.Zero(),
		TotalTax:       money.Zero(),
		Total:          money.Zero(),
	}
	for _, e := range entries {
		result.TotalPrincipal = result.TotalPrincipal.Add(e.Principal)
		result.TotalInterest = result.TotalInterest.Add(e.Interest)
		result.TotalTax = result.TotalTax.Add(e.Tax)
	}
	result.Total = result.TotalPrincipal.Add(result.TotalInterest).Add(result.TotalTax)

	metrics.ScheduleGenerations.WithLabelValues(string(params.Method), "ok").Inc()
	l.log.WithField("contract_id", contract.ID).
		WithField("method", params.Method).
		WithField("count", result.Count).
		WithField("total", result.Total).
		Info("schedule generated")

	return result, nil
}
