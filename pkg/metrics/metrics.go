package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScheduleGenerations counts generation runs by method and outcome.
	ScheduleGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutuo_schedule_generations_total",
			Help: "Schedule generation runs",
		},
		[]string{"method", "status"},
	)

	// SettlementOps counts settle/unsettle operations by outcome.
	SettlementOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutuo_settlement_operations_total",
			Help: "Installment settle and unsettle operations",
		},
		[]string{"operation", "status"},
	)

	// OverdueInstallments is the total overdue installment count observed
	// by the last ledger scan.
	OverdueInstallments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mutuo_overdue_installments",
			Help: "Overdue installments across all contracts at the last scan",
		},
	)

	// OverdueAmount is the total overdue amount observed by the last scan.
	OverdueAmount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mutuo_overdue_amount",
			Help: "Total overdue amount across all contracts at the last scan",
		},
	)
)
