// Package models defines the core domain records for the company ledger:
// Company, Warehouse and Transaction.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxRanks is the maximum number of ranks a company may define.
const MaxRanks = 12

// TransactionKind classifies a warehouse transaction.
type TransactionKind string

const (
	// KindDeposit is a member paying currency into the warehouse.
	KindDeposit TransactionKind = "deposit"
	// KindWithdraw is the owner taking currency out of the warehouse.
	KindWithdraw TransactionKind = "withdraw"
	// KindSalary is a payroll payment to a ranked member.
	KindSalary TransactionKind = "salary"
)

// Transaction is an immutable warehouse ledger entry. Amount is signed:
// deposits are positive, withdrawals and salaries negative. ActorLabel is
// the actor's display label captured when the transaction was appended, not
// looked up live.
type Transaction struct {
	ID         uuid.UUID       `json:"id"`
	ActorID    string          `json:"actor_id"`
	ActorLabel string          `json:"actor_label"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  time.Time       `json:"timestamp"`
	Kind       TransactionKind `json:"kind"`
}

// Company is a named group of actors with one owner, an ordered rank list
// and a member-to-rank mapping. The name is the primary key across the
// registry; renaming is unsupported.
type Company struct {
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
	// Members maps actor id to rank name. An empty rank name means the
	// member holds no rank. The owner is always present as a member.
	Members map[string]string `json:"members"`
	// Ranks is ordered by precedence: index 0 is the lowest rank, the
	// highest index the highest-displayed rank.
	Ranks []string `json:"ranks"`
	// RankSalaries may hold entries for ranks that were removed from
	// Ranks; stale entries are never pruned.
	RankSalaries map[string]decimal.Decimal `json:"rank_salaries"`

	// Legacy fields from before the warehouse split. Only the startup
	// migration reads them; they are cleared once migrated.
	Balance      decimal.Decimal `json:"balance,omitempty"`
	Transactions []Transaction   `json:"transactions,omitempty"`
}

// NewCompany creates a company owned by ownerID, with the owner as its sole
// member holding no rank.
func NewCompany(name, ownerID string) *Company {
	return &Company{
		Name:         name,
		OwnerID:      ownerID,
		Members:      map[string]string{ownerID: ""},
		Ranks:        []string{},
		RankSalaries: map[string]decimal.Decimal{},
	}
}

// HasMember reports whether actorID appears in the members map.
func (c *Company) HasMember(actorID string) bool {
	_, ok := c.Members[actorID]
	return ok
}

// RankIndex returns the position of rankName in the ordered rank list, or
// -1 if the rank does not exist.
func (c *Company) RankIndex(rankName string) int {
	for i, r := range c.Ranks {
		if r == rankName {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy safe to hand outside the engine's executor.
func (c *Company) Clone() *Company {
	out := &Company{
		Name:         c.Name,
		OwnerID:      c.OwnerID,
		Members:      make(map[string]string, len(c.Members)),
		Ranks:        append([]string(nil), c.Ranks...),
		RankSalaries: make(map[string]decimal.Decimal, len(c.RankSalaries)),
		Balance:      c.Balance,
		Transactions: append([]Transaction(nil), c.Transactions...),
	}
	for id, rank := range c.Members {
		out.Members[id] = rank
	}
	for rank, salary := range c.RankSalaries {
		out.RankSalaries[rank] = salary
	}
	return out
}

// Warehouse is a company's shared fund: an exact decimal balance plus the
// append-only transaction log backing it.
type Warehouse struct {
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
}

// NewWarehouse creates an empty warehouse with a zero balance.
func NewWarehouse() *Warehouse {
	return &Warehouse{Transactions: []Transaction{}}
}

// Append records t and applies its signed amount to the balance. All
// balance changes go through here so the balance always equals the signed
// sum of the log.
func (w *Warehouse) Append(t Transaction) {
	w.Balance = w.Balance.Add(t.Amount)
	w.Transactions = append(w.Transactions, t)
}

// Clone returns a deep copy safe to hand outside the engine's executor.
func (w *Warehouse) Clone() *Warehouse {
	return &Warehouse{
		Balance:      w.Balance,
		Transactions: append([]Transaction(nil), w.Transactions...),
	}
}
