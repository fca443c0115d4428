// Package bucks manages the family points ledger. Every change is an
// append-only transaction written atomically with the child's running
// balance; the balance is never updated on its own.
package bucks

import (
	"log/slog"

	"github.com/oakhollow/hearth/internal/apperr"
	"github.com/oakhollow/hearth/internal/model"
	"github.com/oakhollow/hearth/internal/store"
)

type Service struct {
	store  *store.BucksStore
	logger *slog.Logger
}

func NewService(st *store.BucksStore, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger.With("component", "bucks")}
}

// Adjust applies a signed amount to a child's ledger. There is no floor: a
// debit may drive the balance negative, which callers surface as a warning
// rather than an error.
func (s *Service) Adjust(familyID, childID int64, amount int, reason, sourceType string, sourceID *int64, actorID int64) (*model.BucksTransaction, error) {
	if amount == 0 {
		return nil, apperr.Validation("amount", "amount must be non-zero")
	}
	if reason == "" {
		return nil, apperr.Validation("reason", "reason is required")
	}
	switch sourceType {
	case model.SourceChore, model.SourceReward, model.SourceAdjustment:
	default:
		return nil, apperr.Validation("source_type", "unknown source type: "+sourceType)
	}

	tx, err := s.store.Append(familyID, childID, amount, reason, sourceType, sourceID, actorID)
	if err != nil {
		return nil, err
	}

	if tx.ResultingBalance < 0 {
		s.logger.Warn("balance went negative", "child_id", childID,
			"balance", tx.ResultingBalance, "reason", reason)
	}
	s.logger.Info("bucks adjusted", "child_id", childID, "amount", amount,
		"balance", tx.ResultingBalance, "source", sourceType)
	return tx, nil
}

// Balance returns the child's current balance, zero for a child with no
// ledger activity.
func (s *Service) Balance(childID int64) (int, error) {
	return s.store.GetBalance(childID)
}

// Summary returns the full balance record, nil for an unknown child.
func (s *Service) Summary(childID int64) (*model.BucksBalance, error) {
	return s.store.GetBalanceRecord(childID)
}

// History returns recent transactions newest first. A nil childID covers the
// whole family.
func (s *Service) History(familyID int64, childID *int64, limit int) ([]model.BucksTransaction, error) {
	return s.store.ListHistory(familyID, childID, limit)
}
