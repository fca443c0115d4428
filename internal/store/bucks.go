package store

import (
	"database/sql"
	"fmt"

	"github.com/oakhollow/hearth/internal/model"
)

type BucksStore struct {
	db *sql.DB
}

func NewBucksStore(db *sql.DB) *BucksStore {
	return &BucksStore{db: db}
}

const txCols = `id, family_id, child_id, amount, reason, source_type, source_id,
	resulting_balance, actor_id, created_at`

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.BucksTransaction, error) {
	var t model.BucksTransaction
	var sourceID sql.NullInt64

	err := scanner.Scan(&t.ID, &t.FamilyID, &t.ChildID, &t.Amount, &t.Reason,
		&t.SourceType, &sourceID, &t.ResultingBalance, &t.ActorID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	if sourceID.Valid {
		t.SourceID = &sourceID.Int64
	}
	return &t, nil
}

// Append writes one transaction and updates the materialized balance inside a
// single SQL transaction, so the running total and the ledger never diverge.
// The amount is signed; no floor is enforced here.
func (s *BucksStore) Append(familyID, childID int64, amount int, reason, sourceType string, sourceID *int64, actorID int64) (*model.BucksTransaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRow(`SELECT balance FROM bucks_balances WHERE child_id = ?`, childID).Scan(&balance)
	if err == sql.ErrNoRows {
		if _, err := tx.Exec(
			`INSERT INTO bucks_balances (child_id, family_id, balance) VALUES (?, ?, 0)`,
			childID, familyID,
		); err != nil {
			return nil, fmt.Errorf("init balance: %w", err)
		}
		balance = 0
	} else if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	newBalance := balance + amount

	earnedDelta, spentDelta := 0, 0
	if amount > 0 {
		earnedDelta = amount
	} else {
		spentDelta = -amount
	}

	if _, err := tx.Exec(
		`UPDATE bucks_balances SET balance = ?, lifetime_earned = lifetime_earned + ?,
		 lifetime_spent = lifetime_spent + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE child_id = ?`,
		newBalance, earnedDelta, spentDelta, childID,
	); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	var srcID sql.NullInt64
	if sourceID != nil {
		srcID = sql.NullInt64{Int64: *sourceID, Valid: true}
	}

	result, err := tx.Exec(
		`INSERT INTO bucks_transactions (family_id, child_id, amount, reason,
		 source_type, source_id, resulting_balance, actor_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, childID, amount, reason, sourceType, srcID, newBalance, actorID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+txCols+` FROM bucks_transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// GetBalance returns the materialized balance, zero for an unknown child.
func (s *BucksStore) GetBalance(childID int64) (int, error) {
	var balance int
	err := s.db.QueryRow(`SELECT balance FROM bucks_balances WHERE child_id = ?`, childID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (s *BucksStore) GetBalanceRecord(childID int64) (*model.BucksBalance, error) {
	var b model.BucksBalance
	err := s.db.QueryRow(
		`SELECT child_id, family_id, balance, lifetime_earned, lifetime_spent, updated_at
		 FROM bucks_balances WHERE child_id = ?`,
		childID,
	).Scan(&b.ChildID, &b.FamilyID, &b.Balance, &b.LifetimeEarned, &b.LifetimeSpent, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get balance record: %w", err)
	}
	return &b, nil
}

// ListHistory returns the family's (or one child's) transactions, newest
// first, capped at limit.
func (s *BucksStore) ListHistory(familyID int64, childID *int64, limit int) ([]model.BucksTransaction, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT ` + txCols + ` FROM bucks_transactions WHERE family_id = ?`
	args := []any{familyID}
	if childID != nil {
		q += ` AND child_id = ?`
		args = append(args, *childID)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var txs []model.BucksTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// SumTransactions recomputes the balance from the ledger, used to audit the
// materialized value.
func (s *BucksStore) SumTransactions(childID int64) (int, error) {
	var sum sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM bucks_transactions WHERE child_id = ?`,
		childID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return int(sum.Int64), nil
}
