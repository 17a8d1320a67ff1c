package controller

import (
	"context"
	"errors"
	"testing"

	e "github.com/gartstein/companyledger/internal/ledger/errors"
	"github.com/gartstein/companyledger/internal/ledger/events"
	"github.com/gartstein/companyledger/internal/ledger/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeStore is an in-memory Store recording writes.
type fakeStore struct {
	companies  map[string]*models.Company
	warehouses map[string]*models.Warehouse

	companySaves     int
	warehouseSaves   int
	saveCompanyErr   error
	saveWarehouseErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		companies:  map[string]*models.Company{},
		warehouses: map[string]*models.Warehouse{},
	}
}

func (f *fakeStore) LoadCompanies(context.Context) (map[string]*models.Company, error) {
	return f.companies, nil
}

func (f *fakeStore) SaveCompany(_ context.Context, company *models.Company) error {
	if f.saveCompanyErr != nil {
		return f.saveCompanyErr
	}
	f.companySaves++
	f.companies[company.Name] = company
	return nil
}

func (f *fakeStore) DeleteCompany(_ context.Context, name string) error {
	delete(f.companies, name)
	return nil
}

func (f *fakeStore) LoadWarehouses(context.Context) (map[string]*models.Warehouse, error) {
	return f.warehouses, nil
}

func (f *fakeStore) SaveWarehouse(_ context.Context, name string, warehouse *models.Warehouse) error {
	if f.saveWarehouseErr != nil {
		return f.saveWarehouseErr
	}
	f.warehouseSaves++
	f.warehouses[name] = warehouse
	return nil
}

func (f *fakeStore) DeleteWarehouse(_ context.Context, name string) error {
	delete(f.warehouses, name)
	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakeGateway implements funds.Gateway with function fields, defaulting to
// an unlimited source and an always-accepting sink.
type fakeGateway struct {
	held func(actorID string) (int64, error)
	take func(actorID string, units int64) error
	give func(actorID string, units int64) error

	takes []int64
	gives map[string]int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{gives: map[string]int64{}}
}

func (f *fakeGateway) Held(actorID string) (int64, error) {
	if f.held != nil {
		return f.held(actorID)
	}
	return 1 << 30, nil
}

func (f *fakeGateway) Take(actorID string, units int64) error {
	if f.take != nil {
		return f.take(actorID, units)
	}
	f.takes = append(f.takes, units)
	return nil
}

func (f *fakeGateway) Give(actorID string, units int64) error {
	if f.give != nil {
		if err := f.give(actorID, units); err != nil {
			return err
		}
	}
	f.gives[actorID] += units
	return nil
}

// fakeDirectory resolves only the actors it was seeded with.
type fakeDirectory struct {
	labels map[string]string
}

func (f *fakeDirectory) Resolve(actorID string) (string, bool) {
	label, ok := f.labels[actorID]
	return label, ok
}

// fakeProducer records emitted events.
type fakeProducer struct {
	produced []events.Event
}

func (f *fakeProducer) Produce(event events.Event) {
	f.produced = append(f.produced, event)
}

func (f *fakeProducer) byType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, event := range f.produced {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

type testEnv struct {
	engine    *Engine
	store     *fakeStore
	gateway   *fakeGateway
	directory *fakeDirectory
	producer  *fakeProducer
}

func newTestEnv(t *testing.T, store *fakeStore) *testEnv {
	t.Helper()
	if store == nil {
		store = newFakeStore()
	}
	env := &testEnv{
		store:     store,
		gateway:   newFakeGateway(),
		directory: &fakeDirectory{labels: map[string]string{}},
		producer:  &fakeProducer{},
	}
	engine, err := NewEngine(context.Background(), store, env.gateway, env.directory, env.producer, zaptest.NewLogger(t))
	require.NoError(t, err, "NewEngine should succeed")
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(value)
}

func TestCreateCompany(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	company, err := env.engine.CreateCompany(ctx, "owner-1", "Blackwood")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", company.OwnerID)
	assert.Equal(t, "", company.Members["owner-1"], "owner starts as a rankless member")

	assert.Contains(t, env.store.companies, "Blackwood", "company persisted")
	assert.Contains(t, env.store.warehouses, "Blackwood", "warehouse created alongside")
	assert.True(t, env.store.warehouses["Blackwood"].Balance.IsZero())
}

func TestCreateCompanyOwnershipUniqueness(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.CreateCompany(ctx, "owner-1", "Blackwood")
	require.NoError(t, err)

	_, err = env.engine.CreateCompany(ctx, "owner-1", "Ironroot")
	assert.ErrorIs(t, err, e.ErrAlreadyOwnsCompany)

	// After deleting, the actor may create again.
	require.NoError(t, env.engine.DeleteCompany(ctx, "owner-1"))
	_, err = env.engine.CreateCompany(ctx, "owner-1", "Ironroot")
	assert.NoError(t, err)
}

func TestCreateCompanyNameTaken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.CreateCompany(ctx, "owner-1", "Blackwood")
	require.NoError(t, err)

	_, err = env.engine.CreateCompany(ctx, "owner-2", "Blackwood")
	assert.ErrorIs(t, err, e.ErrNameTaken)

	// Names are case-sensitive; a different casing is a different key.
	_, err = env.engine.CreateCompany(ctx, "owner-2", "blackwood")
	assert.NoError(t, err)
}

func TestCompanyOf(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.CompanyOf(ctx, "stranger")
	assert.ErrorIs(t, err, e.ErrNoCompany)

	_, err = env.engine.CreateCompany(ctx, "owner-1", "Blackwood")
	require.NoError(t, err)
	require.NoError(t, env.engine.Invite(ctx, "owner-1", "member-1"))

	byOwner, err := env.engine.CompanyOf(ctx, "owner-1")
	require.NoError(t, err)
	byMember, err := env.engine.CompanyOf(ctx, "member-1")
	require.NoError(t, err)
	assert.Equal(t, byOwner.Name, byMember.Name)
}

func TestDeleteCompany(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.CreateCompany(ctx, "owner-1", "Blackwood")
	require.NoError(t, err)
	require.NoError(t, env.engine.Invite(ctx, "owner-1", "member-1"))

	err = env.engine.DeleteCompany(ctx, "member-1")
	assert.ErrorIs(t, err, e.ErrNotOwner)

	require.NoError(t, env.engine.DeleteCompany(ctx, "owner-1"))
	assert.NotContains(t, env.store.companies, "Blackwood")
	assert.NotContains(t, env.store.warehouses, "Blackwood")

	// One notification per member, owner included.
	deleted := env.producer.byType(events.CompanyDeleted)
	assert.Len(t, deleted, 2)

	err = env.engine.DeleteCompany(ctx, "owner-1")
	assert.ErrorIs(t, err, e.ErrNoCompany)
}

func TestInvite(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, env.engine.Invite(ctx, "nobody", "member-1"), e.ErrNoCompany)

	_, err := env.engine.CreateCompany(ctx, "owner-1", "Blackwood")
	require.NoError(t, err)

	require.NoError(t, env.engine.Invite(ctx, "owner-1", "member-1"))
	assert.Equal(t, "", env.store.companies["Blackwood"].Members["member-1"])
	assert.Len(t, env.producer.byType(events.MemberInvited), 1)

	assert.ErrorIs(t, env.engine.Invite(ctx, "owner-1", "member-1"), e.ErrAlreadyMember)
	assert.ErrorIs(t, env.engine.Invite(ctx, "member-1", "member-2"), e.ErrNotOwner)

	// Members of another company cannot be poached; membership stays
	// exclusive across the registry.
	_, err = env.engine.CreateCompany(ctx, "owner-2", "Ironroot")
	require.NoError(t, err)
	assert.ErrorIs(t, env.engine.Invite(ctx, "owner-2", "member-1"), e.ErrAlreadyMember)
}

func TestKick(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.CreateCompany(ctx, "owner-1", "Blackwood")
	require.NoError(t, err)
	require.NoError(t, env.engine.Invite(ctx, "owner-1", "member-1"))

	assert.ErrorIs(t, env.engine.Kick(ctx, "member-1", "owner-1"), e.ErrNotOwner)
	assert.ErrorIs(t, env.engine.Kick(ctx, "owner-1", "stranger"), e.ErrNotMember)

	require.NoError(t, env.engine.Kick(ctx, "owner-1", "member-1"))
	assert.NotContains(t, env.store.companies["Blackwood"].Members, "member-1")
	assert.Len(t, env.producer.byType(events.MemberKicked), 1)
}

func TestKickOwnerSelf(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.CreateCompany(ctx, "owner-1", "Blackwood")
	require.NoError(t, err)

	// No guard exists: the owner can kick themselves out of the members
	// map but stays the owner, so they remain attached to the company.
	require.NoError(t, env.engine.Kick(ctx, "owner-1", "owner-1"))
	company, err := env.engine.CompanyOf(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", company.OwnerID)
	assert.NotContains(t, company.Members, "owner-1")
}

func TestSetMemberRank(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.CreateCompany(ctx, "owner-1", "Blackwood")
	require.NoError(t, err)
	require.NoError(t, env.engine.Invite(ctx, "owner-1", "member-1"))
	require.NoError(t, env.engine.AddRank(ctx, "owner-1", "Guard"))

	assert.ErrorIs(t, env.engine.SetMemberRank(ctx, "owner-1", "stranger", "Guard"), e.ErrNotMember)
	assert.ErrorIs(t, env.engine.SetMemberRank(ctx, "owner-1", "member-1", "Captain"), e.ErrUnknownRank)
	assert.ErrorIs(t, env.engine.SetMemberRank(ctx, "member-1", "member-1", "Guard"), e.ErrNotOwner)

	require.NoError(t, env.engine.SetMemberRank(ctx, "owner-1", "member-1", "Guard"))
	assert.Equal(t, "Guard", env.store.companies["Blackwood"].Members["member-1"])

	// Empty rank name clears the assignment.
	require.NoError(t, env.engine.SetMemberRank(ctx, "owner-1", "member-1", ""))
	assert.Equal(t, "", env.store.companies["Blackwood"].Members["member-1"])

	changed := env.producer.byType(events.RankChanged)
	require.Len(t, changed, 2)
	assert.Equal(t, "Guard", changed[0].Detail)
}

func TestPersistenceFailureSurfacesToCaller(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.CreateCompany(ctx, "owner-1", "Blackwood")
	require.NoError(t, err)

	env.store.saveCompanyErr = errors.New("disk full")
	err = env.engine.AddRank(ctx, "owner-1", "Guard")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, e.ErrDuplicateRank)
}

func TestMigrateLegacyCompany(t *testing.T) {
	store := newFakeStore()
	legacy := models.NewCompany("Oldtown", "owner-1")
	legacy.Balance = decimal.RequireFromString("75.5")
	legacy.Transactions = []models.Transaction{{ActorID: "owner-1", Amount: decimal.RequireFromString("75.5"), Kind: models.KindDeposit}}
	store.companies["Oldtown"] = legacy

	env := newTestEnv(t, store)
	ctx := context.Background()

	warehouse, err := env.engine.WarehouseOf(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, warehouse.Balance.Equal(dec(t, "75.5")), "embedded balance moved to the warehouse")
	assert.Len(t, warehouse.Transactions, 1)

	assert.True(t, store.companies["Oldtown"].Balance.IsZero(), "legacy balance cleared")
	assert.Nil(t, store.companies["Oldtown"].Transactions, "legacy log cleared")
	assert.Contains(t, store.warehouses, "Oldtown", "warehouse persisted")
}

func TestMigrateLegacyIsIdempotent(t *testing.T) {
	store := newFakeStore()
	legacy := models.NewCompany("Oldtown", "owner-1")
	legacy.Balance = decimal.RequireFromString("75.5")
	store.companies["Oldtown"] = legacy

	env := newTestEnv(t, store)
	env.engine.Close()

	// Second startup over the already-migrated state.
	saves := store.warehouseSaves
	env2 := newTestEnv(t, store)
	_ = env2
	assert.Equal(t, saves, store.warehouseSaves, "no rewrites on second startup")
	assert.True(t, store.warehouses["Oldtown"].Balance.Equal(dec(t, "75.5")))
}
