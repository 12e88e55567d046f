package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vmoraes/mutuo/pkg/money"
)

// LoanContract is a read-only snapshot of the contract header owned by
// the contract-management system. The engine only consumes these fields;
// it never writes them back.
type LoanContract struct {
	ID         uuid.UUID       `json:"id"`
	Principal  money.Money     `json:"principal"`
	AnnualRate decimal.Decimal `json:"annual_rate"` // resolved annual percentage, e.g. 12 = 12%
	StartDate  time.Time       `json:"start_date"`
}

// Method selects the amortization system for a schedule.
type Method string

const (
	MethodPrice Method = "PRICE" // level total payment
	MethodSAC   Method = "SAC"   // constant principal slice
)

// Installment is one row of a contract's payment schedule.
type Installment struct {
	ContractID     uuid.UUID   `json:"contract_id"`
	Number         int         `json:"number"`
	DueDate        time.Time   `json:"due_date"`
	Principal      money.Money `json:"principal_amount"`
	Interest       money.Money `json:"interest_amount"`
	Tax            money.Money `json:"tax_amount"`
	Settled        bool        `json:"settled"`
	SettlementDate *time.Time  `json:"settlement_date,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Total is the full amount due for the installment.
func (i Installment) Total() money.Money {
	return i.Principal.Add(i.Interest).Add(i.Tax)
}

// ContractStatus is derived from the ledger on demand, never stored.
type ContractStatus string

const (
	StatusNoInstallments ContractStatus = "no_installments"
	StatusSettled        ContractStatus = "settled"
	StatusOverdue        ContractStatus = "overdue"
	StatusInProgress     ContractStatus = "in_progress"
)

// GeneratedSchedule reports the outcome of a schedule generation run.
type GeneratedSchedule struct {
	ContractID     uuid.UUID   `json:"contract_id"`
	Count          int         `json:"count"`
	TotalPrincipal money.Money `json:"total_principal"`
	TotalInterest  money.Money `json:"total_interest"`
	TotalTax       money.Money `json:"total_tax"`
	Total          money.Money `json:"total"`
}

// Summary is the point-in-time KPI bundle consumed by dashboards.
type Summary struct {
	ContractID         uuid.UUID      `json:"contract_id"`
	AsOf               time.Time      `json:"as_of"`
	OutstandingBalance money.Money    `json:"outstanding_balance"`
	OverdueCount       int            `json:"overdue_count"`
	OverdueAmount      money.Money    `json:"overdue_amount"`
	DueSoonCount       int            `json:"due_soon_count"`
	DueSoonAmount      money.Money    `json:"due_soon_amount"`
	Status             ContractStatus `json:"status"`
}
