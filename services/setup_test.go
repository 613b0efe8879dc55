package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/dinein-app/database"
	"github.com/yeremiapane/dinein-app/events"
	"github.com/yeremiapane/dinein-app/models"
)

const testRestaurant uint = 1

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(eventType string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type testEnv struct {
	ctx       context.Context
	store     *database.Store
	ledger    *SessionLedger
	occupancy *OccupancySynchronizer
	manager   *SessionManager
	bills     *BillService
	events    *recorder
	tables    map[int]*models.Table
	menu      map[string]models.MenuItem
}

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(database.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return database.NewStore(db)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := newTestStore(t)
	rec := &recorder{}

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	ledger := NewSessionLedger(store, rec, time.Minute)
	occupancy := NewOccupancySynchronizer(store, rec)
	manager, err := NewSessionManager(store, ledger, occupancy, rec, node)
	require.NoError(t, err)

	env := &testEnv{
		ctx:       ctx,
		store:     store,
		ledger:    ledger,
		occupancy: occupancy,
		manager:   manager,
		bills:     NewBillService(manager),
		events:    rec,
		tables:    make(map[int]*models.Table),
		menu:      make(map[string]models.MenuItem),
	}

	for n := 1; n <= 8; n++ {
		table := &models.Table{RestaurantID: testRestaurant, Number: n, Capacity: 4}
		require.NoError(t, store.CreateTable(ctx, table))
		env.tables[n] = table
	}
	other := &models.Table{RestaurantID: 2, Number: 1, Capacity: 2}
	require.NoError(t, store.CreateTable(ctx, other))
	env.tables[-1] = other

	for _, it := range []struct {
		name      string
		price     string
		available bool
	}{
		{"Nasi Goreng", "10.00", true},
		{"Es Teh", "2.00", true},
		{"Sate Ayam", "15.50", true},
		{"Rendang", "20.00", false},
	} {
		item := models.MenuItem{
			RestaurantID: testRestaurant,
			Name:         it.name,
			Price:        decimal.RequireFromString(it.price),
			Available:    it.available,
		}
		require.NoError(t, store.CreateMenuItem(ctx, &item))
		env.menu[it.name] = item
	}
	return env
}

func (e *testEnv) item(name string, qty int) OrderItemInput {
	return OrderItemInput{MenuItemID: e.menu[name].ID, Quantity: qty}
}

// openSession creates a session on table n with one customer per name.
func (e *testEnv) openSession(t *testing.T, n int, names ...string) (*models.TableSession, []*models.Customer) {
	t.Helper()
	session, err := e.manager.CreateSession(e.ctx, e.tables[n].ID, testRestaurant, len(names))
	require.NoError(t, err)
	customers := make([]*models.Customer, 0, len(names))
	for _, name := range names {
		c, err := e.manager.AddCustomer(e.ctx, session.ID, name, nil, nil)
		require.NoError(t, err)
		customers = append(customers, c)
	}
	return session, customers
}

func (e *testEnv) session(t *testing.T, id uint) *models.TableSession {
	t.Helper()
	s, err := e.store.GetSession(e.ctx, id)
	require.NoError(t, err)
	return s
}

func (e *testEnv) table(t *testing.T, n int) *models.Table {
	t.Helper()
	tbl, err := e.store.GetTable(e.ctx, e.tables[n].ID)
	require.NoError(t, err)
	return tbl
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
