package controller

import (
	"context"
	"fmt"

	e "github.com/gartstein/companyledger/internal/ledger/errors"
	"github.com/gartstein/companyledger/internal/ledger/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Deposit moves amount of currency from the actor's holdings into the
// company warehouse and returns the new balance. The physical take is
// truncated to whole units; the ledger is credited with the exact decimal.
func (s *Engine) Deposit(ctx context.Context, actorID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var (
		balance decimal.Decimal
		opErr   error
	)
	if err := s.exec.Do(ctx, func() {
		balance, opErr = s.deposit(ctx, actorID, amount)
	}); err != nil {
		return decimal.Zero, err
	}
	return balance, opErr
}

func (s *Engine) deposit(ctx context.Context, actorID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, e.ErrNegativeAmount
	}
	company := s.companyOf(actorID)
	if company == nil {
		return decimal.Zero, e.ErrNoCompany
	}

	// A company created out of band may not have a warehouse entry yet.
	warehouse, ok := s.warehouses[company.Name]
	if !ok {
		warehouse = models.NewWarehouse()
		s.warehouses[company.Name] = warehouse
	}

	held, err := s.gateway.Held(actorID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("funds source: %w", err)
	}
	if decimal.NewFromInt(held).LessThan(amount) {
		return decimal.Zero, e.ErrInsufficientFunds
	}
	if err := s.gateway.Take(actorID, amount.IntPart()); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", e.ErrInsufficientFunds, err)
	}

	warehouse.Append(s.newTransaction(actorID, amount, models.KindDeposit))
	if err := s.store.SaveWarehouse(ctx, company.Name, warehouse); err != nil {
		s.logger.Error("failed to persist warehouse after deposit",
			zap.String("company", company.Name),
			zap.Error(err),
		)
		return decimal.Zero, fmt.Errorf("persist warehouse: %w", err)
	}
	return warehouse.Balance, nil
}

// Withdraw moves amount out of the warehouse into the owner's holdings and
// returns the new balance. If the sink rejects the delivery the operation
// aborts with no balance change and no transaction logged.
func (s *Engine) Withdraw(ctx context.Context, actorID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var (
		balance decimal.Decimal
		opErr   error
	)
	if err := s.exec.Do(ctx, func() {
		balance, opErr = s.withdraw(ctx, actorID, amount)
	}); err != nil {
		return decimal.Zero, err
	}
	return balance, opErr
}

func (s *Engine) withdraw(ctx context.Context, actorID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, e.ErrNegativeAmount
	}
	company := s.companyOf(actorID)
	if company == nil {
		return decimal.Zero, e.ErrNoCompany
	}
	if company.OwnerID != actorID {
		return decimal.Zero, e.ErrNotOwner
	}

	warehouse, ok := s.warehouses[company.Name]
	if !ok {
		warehouse = models.NewWarehouse()
		s.warehouses[company.Name] = warehouse
	}
	if warehouse.Balance.LessThan(amount) {
		return decimal.Zero, e.ErrInsufficientBalance
	}

	// Materialize first: on rejection nothing may change.
	if err := s.gateway.Give(actorID, amount.IntPart()); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", e.ErrSinkRejected, err)
	}

	warehouse.Append(s.newTransaction(actorID, amount.Neg(), models.KindWithdraw))
	if err := s.store.SaveWarehouse(ctx, company.Name, warehouse); err != nil {
		s.logger.Error("failed to persist warehouse after withdrawal",
			zap.String("company", company.Name),
			zap.Error(err),
		)
		return decimal.Zero, fmt.Errorf("persist warehouse: %w", err)
	}
	return warehouse.Balance, nil
}
