// Package controller implements the company ledger engine: the company
// registry, membership and rank management, warehouse deposits and
// withdrawals, and payroll settlement. All state lives in memory, loaded
// from the injected store at construction and written back synchronously
// after every mutation.
package controller

import (
	"context"
	"fmt"
	"time"

	e "github.com/gartstein/companyledger/internal/ledger/errors"
	"github.com/gartstein/companyledger/internal/ledger/events"
	"github.com/gartstein/companyledger/internal/ledger/funds"
	"github.com/gartstein/companyledger/internal/ledger/models"
	"github.com/gartstein/companyledger/internal/ledger/serial"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the persistence interface for the two engine stores. Writes are
// synchronous full-document replacements of the affected key.
type Store interface {
	LoadCompanies(ctx context.Context) (map[string]*models.Company, error)
	SaveCompany(ctx context.Context, company *models.Company) error
	DeleteCompany(ctx context.Context, name string) error
	LoadWarehouses(ctx context.Context) (map[string]*models.Warehouse, error)
	SaveWarehouse(ctx context.Context, name string, warehouse *models.Warehouse) error
	DeleteWarehouse(ctx context.Context, name string) error
	Close() error
}

// EventProducer publishes actor notifications. Delivery is best effort;
// the engine never fails an operation because of it.
type EventProducer interface {
	Produce(event events.Event)
}

// Engine owns the in-memory registry and ledger for its process lifetime.
// Every public operation runs on a single serial executor, so operations
// and payroll passes never interleave mid-mutation.
type Engine struct {
	store     Store
	gateway   funds.Gateway
	directory funds.Directory
	producer  EventProducer
	logger    *zap.Logger
	exec      *serial.Executor

	companies  map[string]*models.Company
	warehouses map[string]*models.Warehouse
}

// NewEngine loads both stores, runs the one-time legacy migration, and
// starts the engine's executor.
func NewEngine(
	ctx context.Context,
	store Store,
	gateway funds.Gateway,
	directory funds.Directory,
	producer EventProducer,
	logger *zap.Logger,
) (*Engine, error) {
	companies, err := store.LoadCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load companies: %w", err)
	}
	warehouses, err := store.LoadWarehouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load warehouses: %w", err)
	}

	engine := &Engine{
		store:      store,
		gateway:    gateway,
		directory:  directory,
		producer:   producer,
		logger:     logger.Named("engine"),
		exec:       serial.New(64),
		companies:  companies,
		warehouses: warehouses,
	}
	if err := engine.migrateLegacy(ctx); err != nil {
		engine.exec.Close()
		return nil, err
	}
	return engine, nil
}

// Close stops the executor after in-flight operations finish.
func (s *Engine) Close() {
	s.exec.Close()
}

// migrateLegacy moves pre-split balances and transaction logs embedded in
// company records into warehouse entries. Runs once per missing warehouse;
// already-migrated companies are untouched, so repeated startups are safe.
func (s *Engine) migrateLegacy(ctx context.Context) error {
	migrated := 0
	for name, company := range s.companies {
		if _, ok := s.warehouses[name]; ok {
			continue
		}
		warehouse := &models.Warehouse{
			Balance:      company.Balance,
			Transactions: company.Transactions,
		}
		if warehouse.Transactions == nil {
			warehouse.Transactions = []models.Transaction{}
		}
		s.warehouses[name] = warehouse
		company.Balance = decimal.Zero
		company.Transactions = nil

		if err := s.store.SaveWarehouse(ctx, name, warehouse); err != nil {
			return fmt.Errorf("migrate warehouse %q: %w", name, err)
		}
		if err := s.store.SaveCompany(ctx, company); err != nil {
			return fmt.Errorf("migrate company %q: %w", name, err)
		}
		migrated++
	}
	if migrated > 0 {
		s.logger.Info("migrated legacy company funds", zap.Int("companies", migrated))
	}
	return nil
}

// companyOf returns the company the actor owns or belongs to. At most one
// exists: membership is only granted through Invite, which refuses actors
// who already have a company.
func (s *Engine) companyOf(actorID string) *models.Company {
	for _, company := range s.companies {
		if company.OwnerID == actorID || company.HasMember(actorID) {
			return company
		}
	}
	return nil
}

// CreateCompany registers a new company with actorID as owner and sole
// member, and an empty warehouse under the same key.
func (s *Engine) CreateCompany(ctx context.Context, actorID, name string) (*models.Company, error) {
	var (
		company *models.Company
		opErr   error
	)
	if err := s.exec.Do(ctx, func() {
		company, opErr = s.createCompany(ctx, actorID, name)
	}); err != nil {
		return nil, err
	}
	return company, opErr
}

func (s *Engine) createCompany(ctx context.Context, actorID, name string) (*models.Company, error) {
	for _, company := range s.companies {
		if company.OwnerID == actorID {
			return nil, e.ErrAlreadyOwnsCompany
		}
	}
	if _, taken := s.companies[name]; taken {
		return nil, e.ErrNameTaken
	}

	company := models.NewCompany(name, actorID)
	warehouse := models.NewWarehouse()
	s.companies[name] = company
	s.warehouses[name] = warehouse

	if err := s.store.SaveCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("persist company: %w", err)
	}
	if err := s.store.SaveWarehouse(ctx, name, warehouse); err != nil {
		return nil, fmt.Errorf("persist warehouse: %w", err)
	}
	s.logger.Info("company created",
		zap.String("company", name),
		zap.String("owner_id", actorID),
	)
	return company.Clone(), nil
}

// CompanyOf returns the company the actor owns or belongs to, or
// ErrNoCompany.
func (s *Engine) CompanyOf(ctx context.Context, actorID string) (*models.Company, error) {
	var (
		company *models.Company
		opErr   error
	)
	if err := s.exec.Do(ctx, func() {
		if found := s.companyOf(actorID); found != nil {
			company = found.Clone()
		} else {
			opErr = e.ErrNoCompany
		}
	}); err != nil {
		return nil, err
	}
	return company, opErr
}

// WarehouseOf returns the warehouse of the actor's company, or ErrNoCompany.
// A company created out of band may not have a warehouse yet; callers see an
// empty one.
func (s *Engine) WarehouseOf(ctx context.Context, actorID string) (*models.Warehouse, error) {
	var (
		warehouse *models.Warehouse
		opErr     error
	)
	if err := s.exec.Do(ctx, func() {
		company := s.companyOf(actorID)
		if company == nil {
			opErr = e.ErrNoCompany
			return
		}
		if found, ok := s.warehouses[company.Name]; ok {
			warehouse = found.Clone()
		} else {
			warehouse = models.NewWarehouse()
		}
	}); err != nil {
		return nil, err
	}
	return warehouse, opErr
}

// DeleteCompany removes the owner's company and its warehouse, notifying
// every member.
func (s *Engine) DeleteCompany(ctx context.Context, actorID string) error {
	var opErr error
	if err := s.exec.Do(ctx, func() {
		opErr = s.deleteCompany(ctx, actorID)
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Engine) deleteCompany(ctx context.Context, actorID string) error {
	company := s.companyOf(actorID)
	if company == nil {
		return e.ErrNoCompany
	}
	if company.OwnerID != actorID {
		return e.ErrNotOwner
	}

	for memberID := range company.Members {
		s.producer.Produce(events.Event{
			Type:    events.CompanyDeleted,
			ActorID: memberID,
			Company: company.Name,
		})
	}

	delete(s.companies, company.Name)
	delete(s.warehouses, company.Name)

	if err := s.store.DeleteCompany(ctx, company.Name); err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	if err := s.store.DeleteWarehouse(ctx, company.Name); err != nil {
		return fmt.Errorf("delete warehouse: %w", err)
	}
	s.logger.Info("company deleted",
		zap.String("company", company.Name),
		zap.String("owner_id", actorID),
	)
	return nil
}

// Invite adds targetID as a rankless member of the caller's company. The
// target must not already belong to any company, which is what keeps
// membership exclusive across the registry.
func (s *Engine) Invite(ctx context.Context, actorID, targetID string) error {
	var opErr error
	if err := s.exec.Do(ctx, func() {
		opErr = s.invite(ctx, actorID, targetID)
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Engine) invite(ctx context.Context, actorID, targetID string) error {
	company := s.companyOf(actorID)
	if company == nil {
		return e.ErrNoCompany
	}
	if company.OwnerID != actorID {
		return e.ErrNotOwner
	}
	if s.companyOf(targetID) != nil {
		return e.ErrAlreadyMember
	}

	company.Members[targetID] = ""
	if err := s.store.SaveCompany(ctx, company); err != nil {
		return fmt.Errorf("persist company: %w", err)
	}
	s.producer.Produce(events.Event{
		Type:    events.MemberInvited,
		ActorID: targetID,
		Company: company.Name,
	})
	return nil
}

// Kick removes targetID from the caller's company. There is no guard
// against the owner kicking themselves; ownership is not derived from the
// members map, so the owner stays attached to the company either way.
func (s *Engine) Kick(ctx context.Context, actorID, targetID string) error {
	var opErr error
	if err := s.exec.Do(ctx, func() {
		opErr = s.kick(ctx, actorID, targetID)
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Engine) kick(ctx context.Context, actorID, targetID string) error {
	company := s.companyOf(actorID)
	if company == nil {
		return e.ErrNoCompany
	}
	if company.OwnerID != actorID {
		return e.ErrNotOwner
	}
	if !company.HasMember(targetID) {
		return e.ErrNotMember
	}

	delete(company.Members, targetID)
	if err := s.store.SaveCompany(ctx, company); err != nil {
		return fmt.Errorf("persist company: %w", err)
	}
	s.producer.Produce(events.Event{
		Type:    events.MemberKicked,
		ActorID: targetID,
		Company: company.Name,
	})
	return nil
}

// SetMemberRank assigns rankName to targetID. An empty rank name clears the
// member's rank.
func (s *Engine) SetMemberRank(ctx context.Context, actorID, targetID, rankName string) error {
	var opErr error
	if err := s.exec.Do(ctx, func() {
		opErr = s.setMemberRank(ctx, actorID, targetID, rankName)
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Engine) setMemberRank(ctx context.Context, actorID, targetID, rankName string) error {
	company := s.companyOf(actorID)
	if company == nil {
		return e.ErrNoCompany
	}
	if company.OwnerID != actorID {
		return e.ErrNotOwner
	}
	if !company.HasMember(targetID) {
		return e.ErrNotMember
	}
	if rankName != "" && company.RankIndex(rankName) < 0 {
		return e.ErrUnknownRank
	}

	company.Members[targetID] = rankName
	if err := s.store.SaveCompany(ctx, company); err != nil {
		return fmt.Errorf("persist company: %w", err)
	}
	s.producer.Produce(events.Event{
		Type:    events.RankChanged,
		ActorID: targetID,
		Company: company.Name,
		Detail:  rankName,
	})
	return nil
}

// newTransaction builds a ledger entry for actorID, capturing the actor's
// display label now. Falls back to the raw id when the actor is offline.
func (s *Engine) newTransaction(actorID string, amount decimal.Decimal, kind models.TransactionKind) models.Transaction {
	label, ok := s.directory.Resolve(actorID)
	if !ok {
		label = actorID
	}
	return models.Transaction{
		ID:         uuid.New(),
		ActorID:    actorID,
		ActorLabel: label,
		Amount:     amount,
		Timestamp:  time.Now(),
		Kind:       kind,
	}
}
