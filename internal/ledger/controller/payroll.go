package controller

import (
	"context"
	"time"

	"github.com/gartstein/companyledger/internal/ledger/events"
	"github.com/gartstein/companyledger/internal/ledger/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessPayroll runs one settlement cycle over every company. Each company
// is evaluated independently: if its warehouse cannot cover the aggregate
// obligation the whole company is skipped for this cycle and the owner is
// warned; otherwise each ranked member is paid best-effort, so a failed
// delivery to one member never blocks the others. There is no retry within
// a cycle.
func (s *Engine) ProcessPayroll(ctx context.Context) error {
	return s.exec.Do(ctx, func() {
		s.processPayroll(ctx)
	})
}

func (s *Engine) processPayroll(ctx context.Context) {
	for name, company := range s.companies {
		warehouse, ok := s.warehouses[name]
		if !ok {
			continue
		}
		s.settleCompany(ctx, company, warehouse)
	}
}

func (s *Engine) settleCompany(ctx context.Context, company *models.Company, warehouse *models.Warehouse) {
	obligation := decimal.Zero
	for _, rank := range company.Members {
		if rank == "" {
			continue
		}
		if salary, ok := company.RankSalaries[rank]; ok {
			obligation = obligation.Add(salary)
		}
	}

	// All-or-nothing gate on the aggregate obligation.
	if warehouse.Balance.LessThan(obligation) {
		shortfall := obligation.Sub(warehouse.Balance)
		s.producer.Produce(events.Event{
			Type:    events.PayrollShortfall,
			ActorID: company.OwnerID,
			Company: company.Name,
			Amount:  shortfall,
			Detail:  "required " + obligation.String(),
		})
		s.logger.Warn("payroll skipped: insufficient balance",
			zap.String("company", company.Name),
			zap.String("obligation", obligation.String()),
			zap.String("balance", warehouse.Balance.String()),
		)
		return
	}

	paid, failed := 0, 0
	for memberID, rank := range company.Members {
		if rank == "" {
			continue
		}
		salary, ok := company.RankSalaries[rank]
		if !ok {
			continue
		}
		label, ok := s.directory.Resolve(memberID)
		if !ok {
			// Member not currently reachable; no payment, no log entry.
			continue
		}

		if err := s.gateway.Give(memberID, salary.IntPart()); err != nil {
			failed++
			s.producer.Produce(events.Event{
				Type:    events.SalaryFailed,
				ActorID: memberID,
				Company: company.Name,
				Amount:  salary,
				Detail:  err.Error(),
			})
			continue
		}

		warehouse.Append(models.Transaction{
			ID:         uuid.New(),
			ActorID:    memberID,
			ActorLabel: label,
			Amount:     salary.Neg(),
			Timestamp:  time.Now(),
			Kind:       models.KindSalary,
		})
		s.producer.Produce(events.Event{
			Type:    events.SalaryPaid,
			ActorID: memberID,
			Company: company.Name,
			Amount:  salary,
		})
		paid++
	}

	// One write per company regardless of how many members were paid.
	if err := s.store.SaveWarehouse(ctx, company.Name, warehouse); err != nil {
		s.logger.Error("failed to persist warehouse after payroll",
			zap.String("company", company.Name),
			zap.Error(err),
		)
	}
	if paid > 0 || failed > 0 {
		s.logger.Info("payroll settled",
			zap.String("company", company.Name),
			zap.Int("paid", paid),
			zap.Int("failed", failed),
			zap.String("balance", warehouse.Balance.String()),
		)
	}
}
