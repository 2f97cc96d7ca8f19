package grpc

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/google/uuid"
)

type buyCall struct {
	userID                     uuid.UUID
	ip                         string
	itemID, serverID, periodID int64
}

type fakePurchases struct {
	mu sync.Mutex

	buyCalls []buyCall
	buyResp  *models.Entitlement
	buyErr   error

	list    []*models.Entitlement
	listErr error

	delivered  []int64
	deliverErr error

	catalog    []*models.CatalogItem
	catalogErr error
}

func (f *fakePurchases) BuyPermission(ctx context.Context, userID uuid.UUID, ip string, itemID, serverID, periodID int64) (*models.Entitlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buyCalls = append(f.buyCalls, buyCall{userID, ip, itemID, serverID, periodID})
	return f.buyResp, f.buyErr
}

func (f *fakePurchases) Entitlements(ctx context.Context, userID uuid.UUID) ([]*models.Entitlement, error) {
	return f.list, f.listErr
}

func (f *fakePurchases) MarkDelivered(ctx context.Context, id int64) error {
	f.delivered = append(f.delivered, id)
	return f.deliverErr
}

func (f *fakePurchases) CatalogByServer(ctx context.Context, serverID int64) ([]*models.CatalogItem, error) {
	return f.catalog, f.catalogErr
}

type fakeCarts struct {
	addResp *models.CartLine
	addErr  error

	lines []*models.CartLine

	removedOwn []int64
	removed    []int64
	removeErr  error

	cleared  []uuid.UUID
	clearN   int64
	clearErr error

	buyResp []*models.Entitlement
	buyErr  error
	buyIP   string
}

func (f *fakeCarts) Add(ctx context.Context, userID uuid.UUID, itemID, serverID int64, periodID *int64, quantity int64) (*models.CartLine, error) {
	return f.addResp, f.addErr
}

func (f *fakeCarts) FindByServer(ctx context.Context, userID uuid.UUID, serverID int64) ([]*models.CartLine, error) {
	return f.lines, nil
}

func (f *fakeCarts) RemoveOwn(ctx context.Context, userID uuid.UUID, lineID int64) error {
	f.removedOwn = append(f.removedOwn, lineID)
	return f.removeErr
}

func (f *fakeCarts) ClearOwn(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.cleared = append(f.cleared, userID)
	return f.clearN, f.clearErr
}

func (f *fakeCarts) Clear(ctx context.Context, target uuid.UUID) (int64, error) {
	f.cleared = append(f.cleared, target)
	return f.clearN, f.clearErr
}

func (f *fakeCarts) Remove(ctx context.Context, lineID int64) error {
	f.removed = append(f.removed, lineID)
	return f.removeErr
}

func (f *fakeCarts) Buy(ctx context.Context, userID uuid.UUID, ip string) ([]*models.Entitlement, error) {
	f.buyIP = ip
	return f.buyResp, f.buyErr
}

type fakeBalances struct {
	balance int64
	err     error

	transferTo uuid.UUID
	paymentID  string
}

func (f *fakeBalances) Transfer(ctx context.Context, fromID, toID uuid.UUID, ip string, amount int64) (int64, error) {
	f.transferTo = toID
	return f.balance, f.err
}

func (f *fakeBalances) ApplyPayment(ctx context.Context, userID uuid.UUID, ip, paymentID string, amount int64) (int64, error) {
	f.paymentID = paymentID
	return f.balance, f.err
}

type fakeHistory struct {
	entries []*models.HistoryEntry
	err     error

	limit, offset int
}

func (f *fakeHistory) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.HistoryEntry, error) {
	f.limit, f.offset = limit, offset
	return f.entries, f.err
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	f.keys = append(f.keys, bucket+":"+key)
	return f.allow, f.err
}

type fakes struct {
	purchases *fakePurchases
	carts     *fakeCarts
	balances  *fakeBalances
	history   *fakeHistory
}

func newFakes() *fakes {
	return &fakes{
		purchases: &fakePurchases{},
		carts:     &fakeCarts{},
		balances:  &fakeBalances{},
		history:   &fakeHistory{},
	}
}

func (f *fakes) server(secret string, limiter *fakeLimiter) *GRPCServer {
	s := &GRPCServer{
		address:   "127.0.0.1:0",
		purchases: f.purchases,
		carts:     f.carts,
		balances:  f.balances,
		history:   f.history,
		logger:    nopLogger{},
		jwtSecret: []byte(secret),
	}
	if limiter != nil {
		s.limiter = limiter
	}
	return s
}
