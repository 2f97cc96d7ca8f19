package models

import "time"

// ItemKind distinguishes the purchasable catalog variants.
type ItemKind string

const (
	ItemProduct    ItemKind = "product"
	ItemKit        ItemKind = "kit"
	ItemPermission ItemKind = "permission"
)

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool {
	switch k {
	case ItemProduct, ItemKit, ItemPermission:
		return true
	}
	return false
}

// Stackable reports whether one entitlement of kind k may carry a quantity
// above one. Kits and permissions are granted once per period.
func (k ItemKind) Stackable() bool { return k == ItemProduct }

// Server is a game server an item can be bought for.
type Server struct {
	ID   int64
	Name string
}

// Multiplier is a fixed-point price multiplier in hundredths: 100 is x1,
// 250 is x2.5.
type Multiplier int64

// MultiplierOne leaves the price unchanged.
const MultiplierOne Multiplier = 100

// Period is a pricing/duration option of an item. A nil ExpireSeconds
// grants forever.
type Period struct {
	ID            int64
	Name          string
	Multiplier    Multiplier
	ExpireSeconds *int64
}

// Permanent reports whether the period never expires.
func (p Period) Permanent() bool { return p.ExpireSeconds == nil }

// OneTime reports whether the period is the neutral "buy once" option used
// for cart lines that carry no explicit period.
func (p Period) OneTime() bool { return p.Permanent() && p.Multiplier == MultiplierOne }

// ExpiryFrom returns anchor+ExpireSeconds, or nil for permanent periods.
func (p Period) ExpiryFrom(anchor time.Time) *time.Time {
	if p.ExpireSeconds == nil {
		return nil
	}
	t := anchor.UTC().Add(time.Duration(*p.ExpireSeconds) * time.Second)
	return &t
}

// CatalogItem is a product, kit or permission bundle together with the
// servers and periods it can be bought for. AccountWide items ignore the
// server entirely.
type CatalogItem struct {
	ID          int64
	Kind        ItemKind
	Name        string
	Description string
	Price       int64
	Discount    int64
	Grants      []string
	AccountWide bool
	Servers     []Server
	Periods     []Period
}

// Server returns the eligible server with the given id.
func (i *CatalogItem) Server(id int64) (Server, bool) {
	for _, s := range i.Servers {
		if s.ID == id {
			return s, true
		}
	}
	return Server{}, false
}

// Period returns the eligible period with the given id.
func (i *CatalogItem) Period(id int64) (Period, bool) {
	for _, p := range i.Periods {
		if p.ID == id {
			return p, true
		}
	}
	return Period{}, false
}

// DefaultPeriod returns the first one-time period of the item.
func (i *CatalogItem) DefaultPeriod() (Period, bool) {
	for _, p := range i.Periods {
		if p.OneTime() {
			return p, true
		}
	}
	return Period{}, false
}

// IsEligible reports whether the item may be bought for serverID. Account-wide
// items are eligible regardless of the argument.
func (i *CatalogItem) IsEligible(serverID int64) bool {
	if i.AccountWide {
		return true
	}
	_, ok := i.Server(serverID)
	return ok
}

// ServerRef normalises a requested server for storage: nil for account-wide
// items, the id otherwise.
func (i *CatalogItem) ServerRef(serverID int64) *int64 {
	if i.AccountWide {
		return nil
	}
	id := serverID
	return &id
}
