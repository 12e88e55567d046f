package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vmoraes/mutuo/pkg/metrics"
	"github.com/vmoraes/mutuo/pkg/models"
	"github.com/vmoraes/mutuo/pkg/schedule"
	"github.com/vmoraes/mutuo/pkg/store"
)

// Ledger owns the installment lifecycle for loan contracts. All mutation
// goes through named operations; the Ledger performs no locking of its
// own and relies on the storage layer to serialize concurrent schedule
// mutations on the same contract.
type Ledger struct {
	storage store.Storage
	log     *logrus.Logger
}

// NewLedger creates a Ledger over the given Storage implementation.
func NewLedger(s store.Storage, log *logrus.Logger) *Ledger {
	return &Ledger{storage: s, log: log}
}

// toInstallments converts computed schedule entries into persistable
// installment records for the contract.
func toInstallments(contractID uuid.UUID, entries []schedule.Entry, now time.Time) []*models.Installment {
	installments := make([]*models.Installment, 0, len(entries))
	for _, e := range entries {
		installments = append(installments, &models.Installment{
			ContractID: contractID,
			Number:     e.Number,
			DueDate:    e.DueDate,
			Principal:  e.Principal,
			Interest:   e.Interest,
			Tax:        e.Tax,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return installments
}

// Append inserts a freshly generated sequence for the contract.
func (l *Ledger) Append(contractID uuid.UUID, entries []schedule.Entry) error {
	if err := l.storage.InsertInstallments(toInstallments(contractID, entries, time.Now())); err != nil {
		return fmt.Errorf("failed to append installments: %w", err)
	}
	return nil
}

// ReplaceUnsettled purges the contract's unsettled installments and
// inserts the new sequence. Settled installments keep their numbers;
// gaps left behind are intentional so historical settlement records
// stay stable.
func (l *Ledger) ReplaceUnsettled(contractID uuid.UUID, entries []schedule.Entry) error {
	if err := l.storage.ReplaceUnsettled(contractID, toInstallments(contractID, entries, time.Now())); err != nil {
		return fmt.Errorf("failed to replace unsettled installments: %w", err)
	}
	return nil
}

// Installments lists the contract's ledger ordered by number.
func (l *Ledger) Installments(contractID uuid.UUID) ([]*models.Installment, error) {
	return l.storage.InstallmentsForContract(contractID)
}

// Settle marks an installment as paid on the given date and returns the
// updated record.
func (l *Ledger) Settle(contractID uuid.UUID, number int, settlementDate time.Time) (*models.Installment, error) {
	if err := l.storage.MarkSettled(contractID, number, settlementDate); err != nil {
		metrics.SettlementOps.WithLabelValues("settle", "error").Inc()
		return nil, err
	}
	metrics.SettlementOps.WithLabelValues("settle", "ok").Inc()
	l.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"number":      number,
		"settled_on":  settlementDate.Format("2006-01-02"),
	}).Info("installment settled")
	return l.storage.GetInstallment(contractID, number)
}

// Unsettle reverses a settlement, restoring the installment to its
// pre-settle state. Reversal is always permitted; the engine imposes no
// downstream lock.
func (l *Ledger) Unsettle(contractID uuid.UUID, number int) (*models.Installment, error) {
	if err := l.storage.MarkUnsettled(contractID, number); err != nil {
		metrics.SettlementOps.WithLabelValues("unsettle", "error").Inc()
		return nil, err
	}
	metrics.SettlementOps.WithLabelValues("unsettle", "ok").Inc()
	l.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"number":      number,
	}).Info("installment reopened")
	return l.storage.GetInstallment(contractID, number)
}
