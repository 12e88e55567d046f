package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vmoraes/mutuo/pkg/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and installment persistence.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database and initializes the schema.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the installment table if it doesn't already exist.
// Monetary columns are TEXT so no precision is lost in SQLite.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS installments (
		contract_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		due_date DATETIME NOT NULL,
		principal_amount TEXT NOT NULL,
		interest_amount TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		settled INTEGER NOT NULL DEFAULT 0,
		settlement_date DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (contract_id, number)
	);
	CREATE INDEX IF NOT EXISTS idx_installments_contract_due
		ON installments(contract_id, settled, due_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// isUniqueViolation checks if the error indicates a primary-key collision.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const installmentColumns = `contract_id, number, due_date, principal_amount, interest_amount, tax_amount, settled, settlement_date, created_at, updated_at`

// InsertInstallments appends a generated sequence within one transaction.
func (s *SQLiteStore) InsertInstallments(installments []*models.Installment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertAll(tx, installments); err != nil {
		return err
	}
	return tx.Commit()
}

func insertAll(tx *sql.Tx, installments []*models.Installment) error {
	stmt, err := tx.Prepare(
		`INSERT INTO installments (` + installmentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, inst := range installments {
		_, err := stmt.Exec(
			inst.ContractID.String(), inst.Number, inst.DueDate,
			inst.Principal, inst.Interest, inst.Tax,
			inst.Settled, inst.SettlementDate, inst.CreatedAt, inst.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: installment %d of contract %s", ErrDuplicateInstallment, inst.Number, inst.ContractID)
		}
		if err != nil {
			return fmt.Errorf("failed to insert installment %d: %w", inst.Number, err)
		}
	}
	return nil
}

// ReplaceUnsettled deletes the contract's unsettled rows and inserts the
// new sequence in a single transaction, so a concurrent reader never
// observes a half-replaced schedule.
func (s *SQLiteStore) ReplaceUnsettled(contractID uuid.UUID, installments []*models.Installment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM installments WHERE contract_id = ? AND settled = 0`, contractID.String())
	if err != nil {
		return fmt.Errorf("failed to purge unsettled installments: %w", err)
	}

	if err := insertAll(tx, installments); err != nil {
		return err
	}
	return tx.Commit()
}

// GetInstallment retrieves one installment by contract and number.
func (s *SQLiteStore) GetInstallment(contractID uuid.UUID, number int) (*models.Installment, error) {
	row := s.db.QueryRow(
		`SELECT `+installmentColumns+` FROM installments WHERE contract_id = ? AND number = ?`,
		contractID.String(), number,
	)
	inst, err := scanInstallment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: installment %d of contract %s", ErrNotFound, number, contractID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	return inst, nil
}

// InstallmentsForContract lists the contract's installments ordered by number.
func (s *SQLiteStore) InstallmentsForContract(contractID uuid.UUID) ([]*models.Installment, error) {
	rows, err := s.db.Query(
		`SELECT `+installmentColumns+` FROM installments WHERE contract_id = ? ORDER BY number ASC`,
		contractID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments for contract %s: %w", contractID, err)
	}
	defer rows.Close()

	var installments []*models.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment row: %w", err)
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return installments, nil
}

// MarkSettled settles an open installment. The WHERE settled = 0 guard
// makes a concurrent settle on the same row lose cleanly instead of
// overwriting the earlier settlement date.
func (s *SQLiteStore) MarkSettled(contractID uuid.UUID, number int, settlementDate time.Time) error {
	result, err := s.db.Exec(
		`UPDATE installments SET settled = 1, settlement_date = ?, updated_at = ?
		WHERE contract_id = ? AND number = ? AND settled = 0`,
		settlementDate, time.Now(), contractID.String(), number,
	)
	if err != nil {
		return fmt.Errorf("failed to settle installment: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a missing row from one that is already settled.
		if _, err := s.GetInstallment(contractID, number); err != nil {
			return err
		}
		return fmt.Errorf("%w: installment %d of contract %s", ErrAlreadySettled, number, contractID)
	}
	return nil
}

// MarkUnsettled reopens a settled installment. A missing row and an
// already-open row both report ErrNotFound.
func (s *SQLiteStore) MarkUnsettled(contractID uuid.UUID, number int) error {
	result, err := s.db.Exec(
		`UPDATE installments SET settled = 0, settlement_date = NULL, updated_at = ?
		WHERE contract_id = ? AND number = ? AND settled = 1`,
		time.Now(), contractID.String(), number,
	)
	if err != nil {
		return fmt.Errorf("failed to unsettle installment: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: no settled installment %d for contract %s", ErrNotFound, number, contractID)
	}
	return nil
}

// ContractIDs lists the distinct contracts present in the ledger.
func (s *SQLiteStore) ContractIDs() ([]uuid.UUID, error) {
	rows, err := s.db.Query(`SELECT DISTINCT contract_id FROM installments ORDER BY contract_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contract ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("failed to scan contract id: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid contract id %q: %w", idStr, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return ids, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInstallment(sc scanner) (*models.Installment, error) {
	var inst models.Installment
	var contractIDStr string
	var settlementDate sql.NullTime

	err := sc.Scan(
		&contractIDStr, &inst.Number, &inst.DueDate,
		&inst.Principal, &inst.Interest, &inst.Tax,
		&inst.Settled, &settlementDate, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inst.ContractID = uuid.MustParse(contractIDStr)
	if settlementDate.Valid {
		inst.SettlementDate = &settlementDate.Time
	}
	return &inst, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
