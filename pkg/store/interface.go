package store

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vmoraes/mutuo/pkg/models"
)

var (
	// ErrNotFound is returned when the referenced installment does not
	// exist, or a lifecycle operation targets a row in the wrong state.
	ErrNotFound = errors.New("installment not found")

	// ErrAlreadySettled is returned by MarkSettled on a settled installment.
	ErrAlreadySettled = errors.New("installment already settled")

	// ErrDuplicateInstallment is returned when an insert would collide
	// with an existing installment number for the contract.
	ErrDuplicateInstallment = errors.New("duplicate installment number")
)

// Storage defines the persistence operations for installment schedules.
// All mutations are scoped to a single contract; serializing concurrent
// schedule mutations on the same contract is the implementation's
// responsibility.
type Storage interface {
	// InsertInstallments appends a generated sequence. Fails with
	// ErrDuplicateInstallment if any number already exists.
	InsertInstallments(installments []*models.Installment) error

	// ReplaceUnsettled atomically deletes every unsettled installment of
	// the contract and inserts the new sequence. Settled rows are left
	// untouched and their numbers are never reused.
	ReplaceUnsettled(contractID uuid.UUID, installments []*models.Installment) error

	// GetInstallment fetches one installment by contract and number.
	GetInstallment(contractID uuid.UUID, number int) (*models.Installment, error)

	// InstallmentsForContract lists the contract's installments ordered
	// by number.
	InstallmentsForContract(contractID uuid.UUID) ([]*models.Installment, error)

	// MarkSettled flips an open installment to settled, recording the
	// settlement date. ErrNotFound if missing, ErrAlreadySettled if the
	// row is already settled.
	MarkSettled(contractID uuid.UUID, number int, settlementDate time.Time) error

	// MarkUnsettled reopens a settled installment, clearing the
	// settlement date. ErrNotFound if missing or currently open.
	MarkUnsettled(contractID uuid.UUID, number int) error

	// ContractIDs lists the distinct contracts present in the ledger.
	ContractIDs() ([]uuid.UUID, error)

	Close() error
}
