package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vmoraes/mutuo/internal/config"
	"github.com/vmoraes/mutuo/pkg/ledger"
	"github.com/vmoraes/mutuo/pkg/metrics"
	"github.com/vmoraes/mutuo/pkg/models"
	"github.com/vmoraes/mutuo/pkg/money"
	"github.com/vmoraes/mutuo/pkg/schedule"
	"github.com/vmoraes/mutuo/pkg/store"
)

const dateLayout = "2006-01-02"

// Server holds the ledger instance and request-scoped defaults.
type Server struct {
	ledger     *ledger.Ledger
	storage    store.Storage // kept to close it on shutdown
	log        *logrus.Logger
	windowDays int
}

func NewServer(s store.Storage, log *logrus.Logger, windowDays int) *Server {
	return &Server{
		ledger:     ledger.NewLedger(s, log),
		storage:    s,
		log:        log,
		windowDays: windowDays,
	}
}

// contractPayload is the contract snapshot supplied by the
// contract-management collaborator alongside a generation request.
type contractPayload struct {
	Principal  money.Money     `json:"principal"`
	AnnualRate decimal.Decimal `json:"annual_rate"`
	StartDate  string          `json:"start_date"`
}

func (p contractPayload) toContract(id uuid.UUID) (models.LoanContract, error) {
	start, err := time.Parse(dateLayout, p.StartDate)
	if err != nil {
		return models.LoanContract{}, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", p.StartDate)
	}
	return models.LoanContract{
		ID:         id,
		Principal:  p.Principal,
		AnnualRate: p.AnnualRate,
		StartDate:  start,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the engine's error taxonomy onto HTTP statuses so
// callers can tell "bad input, fix and resubmit" from ledger-state
// conflicts and from storage failures worth retrying.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, schedule.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, schedule.ErrArithmeticDomain):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrAlreadySettled), errors.Is(err, store.ErrDuplicateInstallment):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func contractIDFrom(r *http.Request) (uuid.UUID, error) {
	idStr := mux.Vars(r)["id"]
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid contract ID %q", idStr)
	}
	return id, nil
}

func (s *Server) generateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	contractID, err := contractIDFrom(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req struct {
		Contract   contractPayload     `json:"contract"`
		Parameters schedule.Parameters `json:"parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	contract, err := req.Contract.toContract(contractID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := s.ledger.Generate(contract, req.Parameters)
	if err != nil {
		s.log.WithError(err).WithField("contract_id", contractID).Warn("schedule generation failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) previewScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Contract   contractPayload     `json:"contract"`
		Parameters schedule.Parameters `json:"parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	contract, err := req.Contract.toContract(uuid.Nil)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	entries, err := s.ledger.Preview(contract, req.Parameters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) listInstallmentsHandler(w http.ResponseWriter, r *http.Request) {
	contractID, err := contractIDFrom(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	installments, err := s.ledger.Installments(contractID)
	if err != nil {
		writeError(w, err)
		return
	}
	if installments == nil {
		installments = []*models.Installment{}
	}
	writeJSON(w, http.StatusOK, installments)
}

func (s *Server) settleHandler(w http.ResponseWriter, r *http.Request) {
	contractID, number, err := installmentRefFrom(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req struct {
		SettlementDate string `json:"settlement_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	settledOn, err := time.Parse(dateLayout, req.SettlementDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid settlement_date: expected YYYY-MM-DD"})
		return
	}

	installment, err := s.ledger.Settle(contractID, number, settledOn)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, installment)
}

func (s *Server) unsettleHandler(w http.ResponseWriter, r *http.Request) {
	contractID, number, err := installmentRefFrom(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	installment, err := s.ledger.Unsettle(contractID, number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, installment)
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	contractID, err := contractIDFrom(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if v := r.URL.Query().Get("as_of"); v != "" {
		asOf, err = time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid as_of: expected YYYY-MM-DD"})
			return
		}
	}

	windowDays := s.windowDays
	if v := r.URL.Query().Get("window_days"); v != "" {
		windowDays, err = strconv.Atoi(v)
		if err != nil || windowDays < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid window_days: expected a positive integer"})
			return
		}
	}

	summary, err := s.ledger.Summary(contractID, asOf, windowDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func installmentRefFrom(r *http.Request) (uuid.UUID, int, error) {
	contractID, err := contractIDFrom(r)
	if err != nil {
		return uuid.Nil, 0, err
	}
	numberStr := mux.Vars(r)["number"]
	number, err := strconv.Atoi(numberStr)
	if err != nil || number < 1 {
		return uuid.Nil, 0, fmt.Errorf("invalid installment number %q", numberStr)
	}
	return contractID, number, nil
}

// scanOverdue walks every contract in the ledger, logs the overdue
// picture and refreshes the gauges dashboards scrape.
func (s *Server) scanOverdue() {
	ids, err := s.storage.ContractIDs()
	if err != nil {
		s.log.WithError(err).Error("overdue scan: failed to list contracts")
		return
	}

	asOf := time.Now().UTC()
	totalCount := 0
	totalAmount := money.Zero()

	for _, id := range ids {
		summary, err := s.ledger.Summary(id, asOf, s.windowDays)
		if err != nil {
			s.log.WithError(err).WithField("contract_id", id).Error("overdue scan: failed to summarize contract")
			continue
		}
		if summary.OverdueCount > 0 {
			s.log.WithFields(logrus.Fields{
				"contract_id":    id,
				"overdue_count":  summary.OverdueCount,
				"overdue_amount": summary.OverdueAmount,
			}).Warn("contract has overdue installments")
		}
		totalCount += summary.OverdueCount
		totalAmount = totalAmount.Add(summary.OverdueAmount)
	}

	metrics.OverdueInstallments.Set(float64(totalCount))
	metrics.OverdueAmount.Set(totalAmount.Decimal().InexactFloat64())
	s.log.WithFields(logrus.Fields{
		"contracts":      len(ids),
		"overdue_count":  totalCount,
		"overdue_amount": totalAmount,
	}).Info("overdue scan complete")
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/contracts/{id}/schedule", s.generateScheduleHandler).Methods("POST")
	router.HandleFunc("/schedule/preview", s.previewScheduleHandler).Methods("POST")
	router.HandleFunc("/contracts/{id}/installments", s.listInstallmentsHandler).Methods("GET")
	router.HandleFunc("/contracts/{id}/installments/{number}/settle", s.settleHandler).Methods("POST")
	router.HandleFunc("/contracts/{id}/installments/{number}/unsettle", s.unsettleHandler).Methods("POST")
	router.HandleFunc("/contracts/{id}/summary", s.summaryHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return router
}

func main() {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	sqliteStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to initialize SQLite store: %v", err)
	}
	defer sqliteStore.Close()

	server := NewServer(sqliteStore, logger, cfg.DueSoonWindowDays)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.OverdueScanCron, server.scanOverdue); err != nil {
		logger.Fatalf("Invalid OVERDUE_SCAN_CRON %q: %v", cfg.OverdueScanCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	addr := fmt.Sprintf(":%s", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
