package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/dbx"
	"github.com/dmitrijs2005/unicore/internal/logging"
	"github.com/dmitrijs2005/unicore/internal/server/config"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/cart"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/entitlements"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/history"
	"github.com/dmitrijs2005/unicore/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// --- in-memory store shared by the fake repositories ---

type entKey struct {
	user   uuid.UUID
	server int64
	item   int64
}

func keyOf(user uuid.UUID, server *int64, item int64) entKey {
	k := entKey{user: user, item: item}
	if server != nil {
		k.server = *server
	}
	return k
}

type memStore struct {
	mu sync.Mutex

	balances map[uuid.UUID]int64
	items    map[int64]*models.CatalogItem
	ents     map[entKey]*models.Entitlement
	lines    map[int64]*models.CartLine
	history  []*models.HistoryEntry
	nextID   int64

	// failure injection
	lockErrs   []error
	recordErr  error
	findHook   func()
	debitCalls int
}

func newMemStore() *memStore {
	return &memStore{
		balances: map[uuid.UUID]int64{},
		items:    map[int64]*models.CatalogItem{},
		ents:     map[entKey]*models.Entitlement{},
		lines:    map[int64]*models.CartLine{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) balance(u uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[u]
}

func (s *memStore) entCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ents)
}

func (s *memStore) historyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func (s *memStore) lineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

type fakeLedger struct{ s *memStore }

func (f fakeLedger) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b, ok := f.s.balances[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.User{ID: id, Balance: b}, nil
}

func (f fakeLedger) LockBalance(ctx context.Context, id uuid.UUID) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if len(f.s.lockErrs) > 0 {
		err := f.s.lockErrs[0]
		f.s.lockErrs = f.s.lockErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	b, ok := f.s.balances[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return b, nil
}

func (f fakeLedger) Debit(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.debitCalls++
	if f.s.balances[id] < amount {
		return 0, common.ErrInsufficientFunds
	}
	f.s.balances[id] -= amount
	return f.s.balances[id], nil
}

func (f fakeLedger) Credit(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.balances[id]; !ok {
		return 0, common.ErrorNotFound
	}
	f.s.balances[id] += amount
	return f.s.balances[id], nil
}

type fakeCatalog struct{ s *memStore }

func (f fakeCatalog) Resolve(ctx context.Context, itemID int64) (*models.CatalogItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	it, ok := f.s.items[itemID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return it, nil
}

func (f fakeCatalog) PeriodsFor(ctx context.Context, itemID int64) ([]models.Period, error) {
	it, err := f.Resolve(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return it.Periods, nil
}

func (f fakeCatalog) ListByServer(ctx context.Context, serverID int64) ([]*models.CatalogItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.CatalogItem
	for _, it := range f.s.items {
		if it.IsEligible(serverID) && len(it.Periods) > 0 {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeEntitlements struct{ s *memStore }

func (f fakeEntitlements) FindCurrent(ctx context.Context, userID uuid.UUID, serverID *int64, itemID int64) (*models.Entitlement, error) {
	f.s.mu.Lock()
	e, ok := f.s.ents[keyOf(userID, serverID, itemID)]
	var cp models.Entitlement
	if ok {
		cp = *e
	}
	hook := f.s.findHook
	f.s.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &cp, nil
}

func (f fakeEntitlements) Grant(ctx context.Context, e *models.Entitlement) (*models.Entitlement, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	k := keyOf(e.UserID, e.ServerID, e.ItemID)
	if _, ok := f.s.ents[k]; ok {
		return nil, common.ErrConflict
	}
	cp := *e
	cp.ID = f.s.id()
	f.s.ents[k] = &cp
	out := cp
	return &out, nil
}

func (f fakeEntitlements) Extend(ctx context.Context, e *models.Entitlement, expiresAt *time.Time, quantity int64) (*models.Entitlement, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	k := keyOf(e.UserID, e.ServerID, e.ItemID)
	cur, ok := f.s.ents[k]
	if !ok || cur.ID != e.ID {
		return nil, common.ErrConflict
	}
	if (cur.ExpiresAt == nil) != (e.ExpiresAt == nil) || (cur.ExpiresAt != nil && !cur.ExpiresAt.Equal(*e.ExpiresAt)) {
		return nil, common.ErrConflict
	}
	cur.ExpiresAt = expiresAt
	cur.Quantity = quantity
	cur.DeliveredAt = nil
	cur.RevokedAt = nil
	out := *cur
	return &out, nil
}

func (f fakeEntitlements) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Entitlement, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Entitlement
	for _, e := range f.s.ents {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeEntitlements) MarkDelivered(ctx context.Context, id int64, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, e := range f.s.ents {
		if e.ID == id {
			t := at
			e.DeliveredAt = &t
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeCart struct{ s *memStore }

func (f fakeCart) Upsert(ctx context.Context, line *models.CartLine, stackable bool) (*models.CartLine, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, l := range f.s.lines {
		if l.UserID == line.UserID && l.ItemID == line.ItemID && keyOf(l.UserID, l.ServerID, 0) == keyOf(line.UserID, line.ServerID, 0) {
			samePeriod := (l.PeriodID == nil) == (line.PeriodID == nil) && (l.PeriodID == nil || *l.PeriodID == *line.PeriodID)
			if !stackable || !samePeriod {
				return nil, common.ErrConflict
			}
			l.Quantity += line.Quantity
			cp := *l
			return &cp, nil
		}
	}
	cp := *line
	cp.ID = f.s.id()
	f.s.lines[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f fakeCart) FindByServer(ctx context.Context, userID uuid.UUID, serverID int64) ([]*models.CartLine, error) {
	return f.filter(func(l *models.CartLine) bool {
		return l.UserID == userID && (l.ServerID == nil || *l.ServerID == serverID)
	}), nil
}

func (f fakeCart) ListForUpdate(ctx context.Context, userID uuid.UUID) ([]*models.CartLine, error) {
	return f.filter(func(l *models.CartLine) bool { return l.UserID == userID }), nil
}

func (f fakeCart) filter(keep func(*models.CartLine) bool) []*models.CartLine {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.CartLine
	for _, l := range f.s.lines {
		if keep(l) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakeCart) RemoveOwn(ctx context.Context, userID uuid.UUID, lineID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	l, ok := f.s.lines[lineID]
	if !ok || l.UserID != userID {
		return common.ErrorNotFound
	}
	delete(f.s.lines, lineID)
	return nil
}

func (f fakeCart) Remove(ctx context.Context, lineID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.lines[lineID]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.lines, lineID)
	return nil
}

func (f fakeCart) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := int64(0)
	for id, l := range f.s.lines {
		if l.UserID == userID {
			delete(f.s.lines, id)
			n++
		}
	}
	return n, nil
}

func (f fakeCart) Delete(ctx context.Context, lineIDs ...int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, id := range lineIDs {
		delete(f.s.lines, id)
	}
	return nil
}

type fakeHistory struct{ s *memStore }

func (f fakeHistory) Record(ctx context.Context, entry *models.HistoryEntry) (*models.HistoryEntry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.recordErr != nil {
		return nil, f.s.recordErr
	}
	if p, ok := entry.Payload.(models.Payment); ok {
		for _, h := range f.s.history {
			if q, ok := h.Payload.(models.Payment); ok && q.PaymentID == p.PaymentID {
				return nil, fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505"})
			}
		}
	}
	cp := *entry
	cp.ID = f.s.id()
	f.s.history = append(f.s.history, &cp)
	return &cp, nil
}

func (f fakeHistory) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.HistoryEntry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.HistoryEntry
	for i := len(f.s.history) - 1; i >= 0; i-- {
		if f.s.history[i].UserID == userID {
			out = append(out, f.s.history[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeHistory) ListBetween(ctx context.Context, from, to time.Time) ([]*models.HistoryEntry, error) {
	return nil, nil
}

type fakeManager struct{ s *memStore }

func (m fakeManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m fakeManager) Users(dbx.DBTX) users.Repository               { return fakeLedger{m.s} }
func (m fakeManager) Catalog(dbx.DBTX) catalog.Repository           { return fakeCatalog{m.s} }
func (m fakeManager) Entitlements(dbx.DBTX) entitlements.Repository { return fakeEntitlements{m.s} }
func (m fakeManager) Cart(dbx.DBTX) cart.Repository                 { return fakeCart{m.s} }
func (m fakeManager) History(dbx.DBTX) history.Repository           { return fakeHistory{m.s} }

// --- publisher / observer fakes ---

type fakePublisher struct {
	mu     sync.Mutex
	events []models.PurchaseCompleted
	err    error
}

func (p *fakePublisher) PublishPurchase(ctx context.Context, ev models.PurchaseCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type observation struct {
	source string
	err    error
	total  int64
}

type fakeObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *fakeObserver) ObservePurchase(source string, err error, total int64, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{source: source, err: err, total: total})
}

// --- fixtures ---

var (
	alice   = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	bob     = uuid.MustParse("22222222-2222-4222-8222-222222222222")
	fixedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

const (
	serverSurvival int64 = 1
	serverSkyblock int64 = 2

	periodForever int64 = 10
	periodMonth   int64 = 11
	periodOnce    int64 = 12

	itemVIP     int64 = 100
	itemWebRank int64 = 101
	itemDiamond int64 = 102
	itemKit     int64 = 103
)

const monthSeconds int64 = 30 * 24 * 60 * 60

func seedCatalog(s *memStore) {
	month := monthSeconds
	forever := models.Period{ID: periodForever, Name: "forever", Multiplier: 500}
	monthly := models.Period{ID: periodMonth, Name: "month", Multiplier: 200, ExpireSeconds: &month}
	once := models.Period{ID: periodOnce, Name: "once", Multiplier: models.MultiplierOne}
	servers := []models.Server{{ID: serverSurvival, Name: "survival"}, {ID: serverSkyblock, Name: "skyblock"}}

	s.items[itemVIP] = &models.CatalogItem{ID: itemVIP, Kind: models.ItemPermission, Name: "VIP", Price: 1000, Discount: 10,
		Grants: []string{"vip.*"}, Servers: servers, Periods: []models.Period{forever, monthly}}
	s.items[itemWebRank] = &models.CatalogItem{ID: itemWebRank, Kind: models.ItemPermission, Name: "Web rank", Price: 300,
		AccountWide: true, Periods: []models.Period{monthly}}
	s.items[itemDiamond] = &models.CatalogItem{ID: itemDiamond, Kind: models.ItemProduct, Name: "Diamond", Price: 50,
		Servers: servers[:1], Periods: []models.Period{once}}
	s.items[itemKit] = &models.CatalogItem{ID: itemKit, Kind: models.ItemKit, Name: "Starter kit", Price: 100,
		Servers: servers, Periods: []models.Period{once}}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	db        *sql.DB
	mock      sqlmock.Sqlmock
	store     *memStore
	clock     *clock
	publisher *fakePublisher
	observer  *fakeObserver
	opts      []Option
	cfg       *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := newMemStore()
	seedCatalog(s)

	h := &harness{
		db:        db,
		mock:      mock,
		store:     s,
		clock:     &clock{t: fixedAt},
		publisher: &fakePublisher{},
		observer:  &fakeObserver{},
		cfg:       &config.Config{PurchaseRetryAttempts: 3},
	}
	h.opts = []Option{
		WithClock(h.clock.now),
		WithLogger(logging.New(io.Discard, "error")),
		WithPublisher(h.publisher),
		WithObserver(h.observer),
	}
	return h
}

func (h *harness) purchases() *PurchaseService {
	return NewPurchaseService(h.db, fakeManager{h.store}, h.cfg, h.opts...)
}

func (h *harness) carts() *CartService {
	return NewCartService(h.db, fakeManager{h.store}, h.cfg, h.opts...)
}

func (h *harness) balances() *BalanceService {
	return NewBalanceService(h.db, fakeManager{h.store}, h.cfg, h.opts...)
}

func (h *harness) expectCommit() {
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
}

func (h *harness) expectRollback() {
	h.mock.ExpectBegin()
	h.mock.ExpectRollback()
}
