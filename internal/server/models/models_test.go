package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestPeriod_ExpiryFrom(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p := Period{ExpireSeconds: ptr(int64(3600))}
	got := p.ExpiryFrom(anchor)
	require.NotNil(t, got)
	assert.Equal(t, anchor.Add(time.Hour), *got)

	assert.Nil(t, Period{}.ExpiryFrom(anchor))
}

func TestPeriod_OneTime(t *testing.T) {
	assert.True(t, Period{Multiplier: MultiplierOne}.OneTime())
	assert.False(t, Period{Multiplier: 200}.OneTime())
	assert.False(t, Period{Multiplier: MultiplierOne, ExpireSeconds: ptr(int64(1))}.OneTime())
}

func TestCatalogItem_Eligibility(t *testing.T) {
	item := &CatalogItem{Servers: []Server{{ID: 1}, {ID: 2}}}
	assert.True(t, item.IsEligible(2))
	assert.False(t, item.IsEligible(3))
	assert.Equal(t, int64(2), *item.ServerRef(2))

	web := &CatalogItem{AccountWide: true}
	assert.True(t, web.IsEligible(42))
	assert.Nil(t, web.ServerRef(42))
}

func TestCatalogItem_Lookups(t *testing.T) {
	item := &CatalogItem{Periods: []Period{
		{ID: 1, Multiplier: 200, ExpireSeconds: ptr(int64(60))},
		{ID: 2, Multiplier: MultiplierOne},
	}}
	p, ok := item.Period(1)
	require.True(t, ok)
	assert.Equal(t, Multiplier(200), p.Multiplier)

	_, ok = item.Period(9)
	assert.False(t, ok)

	def, ok := item.DefaultPeriod()
	require.True(t, ok)
	assert.Equal(t, int64(2), def.ID)
}

func TestEntitlement_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Entitlement{}).Expired(now), "permanent never expires")
	assert.True(t, (&Entitlement{ExpiresAt: ptr(now)}).Expired(now))
	assert.False(t, (&Entitlement{ExpiresAt: ptr(now.Add(time.Second))}).Expired(now))
}

func TestPurchasePayload(t *testing.T) {
	srv := ptr(int64(3))

	p := PurchasePayload(&CatalogItem{ID: 1, Kind: ItemProduct}, srv, 5, 4)
	assert.Equal(t, ProductPurchase{ProductID: 1, ServerID: srv, Amount: 4}, p)

	k := PurchasePayload(&CatalogItem{ID: 2, Kind: ItemKit}, srv, 5, 1)
	assert.Equal(t, KitPurchase{KitID: 2, ServerID: srv}, k)

	perm := PurchasePayload(&CatalogItem{ID: 3, Kind: ItemPermission}, nil, 5, 1)
	assert.Equal(t, PermissionPurchase{PermissionID: 3, PeriodID: 5}, perm)
	assert.Equal(t, HistoryPermissionPurchase, perm.Kind())
}
