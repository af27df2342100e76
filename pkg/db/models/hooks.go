package models

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IDs are assigned app-side so inserts behave the same on Postgres and the
// SQLite databases the tests run against.

func (u *User) BeforeCreate(*gorm.DB) error           { ensureID(&u.ID); return nil }
func (f *FarmerProfile) BeforeCreate(*gorm.DB) error  { ensureID(&f.ID); return nil }
func (p *Produce) BeforeCreate(*gorm.DB) error        { ensureID(&p.ID); return nil }
func (m *MixedBox) BeforeCreate(*gorm.DB) error       { ensureID(&m.ID); return nil }
func (v *ProductVariant) BeforeCreate(*gorm.DB) error { ensureID(&v.ID); return nil }
func (p *PricingTier) BeforeCreate(*gorm.DB) error    { ensureID(&p.ID); return nil }
func (c *Cart) BeforeCreate(*gorm.DB) error           { ensureID(&c.ID); return nil }
func (c *CartItem) BeforeCreate(*gorm.DB) error       { ensureID(&c.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error          { ensureID(&o.ID); return nil }
func (f *FarmerEarning) BeforeCreate(*gorm.DB) error  { ensureID(&f.ID); return nil }

// ErrAmbiguousCatalogRef rejects order lines that do not reference exactly
// one catalog entry.
var ErrAmbiguousCatalogRef = errors.New("order item must reference exactly one catalog entry")

func (o *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	refs := 0
	for _, id := range []*uuid.UUID{o.ProduceID, o.MixedBoxID, o.VariantID} {
		if id != nil && *id != uuid.Nil {
			refs++
		}
	}
	if refs != 1 {
		return ErrAmbiguousCatalogRef
	}
	return nil
}

func (w *Wallet) BeforeCreate(*gorm.DB) error            { ensureID(&w.ID); return nil }
func (w *WalletTransaction) BeforeCreate(*gorm.DB) error { ensureID(&w.ID); return nil }
func (p *Payment) BeforeCreate(*gorm.DB) error           { ensureID(&p.ID); return nil }
func (n *Notification) BeforeCreate(*gorm.DB) error      { ensureID(&n.ID); return nil }
func (o *OutboxEvent) BeforeCreate(*gorm.DB) error       { ensureID(&o.ID); return nil }
func (o *OutboxDLQ) BeforeCreate(*gorm.DB) error         { ensureID(&o.ID); return nil }
func (c *ContractOrder) BeforeCreate(*gorm.DB) error     { ensureID(&c.ID); return nil }
func (c *ContractItem) BeforeCreate(*gorm.DB) error      { ensureID(&c.ID); return nil }
func (d *Delivery) BeforeCreate(*gorm.DB) error          { ensureID(&d.ID); return nil }

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
