package controller

import (
	"context"
	"fmt"

	e "github.com/gartstein/companyledger/internal/ledger/errors"
	"github.com/gartstein/companyledger/internal/ledger/models"
	"github.com/shopspring/decimal"
)

// AddRank appends a new rank at the top of the company's rank order.
func (s *Engine) AddRank(ctx context.Context, actorID, rankName string) error {
	var opErr error
	if err := s.exec.Do(ctx, func() {
		opErr = s.addRank(ctx, actorID, rankName)
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Engine) addRank(ctx context.Context, actorID, rankName string) error {
	company := s.companyOf(actorID)
	if company == nil {
		return e.ErrNoCompany
	}
	if company.OwnerID != actorID {
		return e.ErrNotOwner
	}
	if company.RankIndex(rankName) >= 0 {
		return e.ErrDuplicateRank
	}
	if len(company.Ranks) >= models.MaxRanks {
		return e.ErrRankLimitReached
	}

	company.Ranks = append(company.Ranks, rankName)
	if err := s.store.SaveCompany(ctx, company); err != nil {
		return fmt.Errorf("persist company: %w", err)
	}
	return nil
}

// RemoveRank deletes the rank from the ordered list and clears it from
// every member holding it. The rank's salary entry is deliberately kept:
// re-adding a rank of the same name picks the old salary back up.
func (s *Engine) RemoveRank(ctx context.Context, actorID, rankName string) error {
	var opErr error
	if err := s.exec.Do(ctx, func() {
		opErr = s.removeRank(ctx, actorID, rankName)
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Engine) removeRank(ctx context.Context, actorID, rankName string) error {
	company := s.companyOf(actorID)
	if company == nil {
		return e.ErrNoCompany
	}
	if company.OwnerID != actorID {
		return e.ErrNotOwner
	}
	index := company.RankIndex(rankName)
	if index < 0 {
		return e.ErrUnknownRank
	}

	company.Ranks = append(company.Ranks[:index], company.Ranks[index+1:]...)
	for memberID, rank := range company.Members {
		if rank == rankName {
			company.Members[memberID] = ""
		}
	}

	if err := s.store.SaveCompany(ctx, company); err != nil {
		return fmt.Errorf("persist company: %w", err)
	}
	return nil
}

// MoveRankUp swaps the rank with its lower-index neighbor. A no-op at the
// bottom of the list, for non-owners and for unknown ranks.
func (s *Engine) MoveRankUp(ctx context.Context, actorID, rankName string) error {
	return s.moveRank(ctx, actorID, rankName, -1)
}

// MoveRankDown swaps the rank with its higher-index neighbor. A no-op at
// the top of the list, for non-owners and for unknown ranks.
func (s *Engine) MoveRankDown(ctx context.Context, actorID, rankName string) error {
	return s.moveRank(ctx, actorID, rankName, +1)
}

func (s *Engine) moveRank(ctx context.Context, actorID, rankName string, delta int) error {
	var opErr error
	if err := s.exec.Do(ctx, func() {
		company := s.companyOf(actorID)
		if company == nil || company.OwnerID != actorID {
			return // silently ignored
		}
		i := company.RankIndex(rankName)
		if i < 0 {
			return
		}
		j := i + delta
		if j < 0 || j >= len(company.Ranks) {
			return
		}
		company.Ranks[i], company.Ranks[j] = company.Ranks[j], company.Ranks[i]
		if err := s.store.SaveCompany(ctx, company); err != nil {
			opErr = fmt.Errorf("persist company: %w", err)
		}
	}); err != nil {
		return err
	}
	return opErr
}

// SetRankSalary sets the hourly payroll amount for an existing rank.
func (s *Engine) SetRankSalary(ctx context.Context, actorID, rankName string, salary decimal.Decimal) error {
	var opErr error
	if err := s.exec.Do(ctx, func() {
		opErr = s.setRankSalary(ctx, actorID, rankName, salary)
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Engine) setRankSalary(ctx context.Context, actorID, rankName string, salary decimal.Decimal) error {
	company := s.companyOf(actorID)
	if company == nil {
		return e.ErrNoCompany
	}
	if company.OwnerID != actorID {
		return e.ErrNotOwner
	}
	if company.RankIndex(rankName) < 0 {
		return e.ErrUnknownRank
	}
	if salary.IsNegative() {
		return e.ErrNegativeAmount
	}

	company.RankSalaries[rankName] = salary
	if err := s.store.SaveCompany(ctx, company); err != nil {
		return fmt.Errorf("persist company: %w", err)
	}
	return nil
}
