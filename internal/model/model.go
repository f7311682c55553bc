// Package model defines domain entities shared by services and stores.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanUnit is the time unit a plan's value is expressed in.
type PlanUnit string

// Supported plan units.
const (
	UnitMinutes PlanUnit = "minutes"
	UnitHours   PlanUnit = "hours"
	UnitDays    PlanUnit = "days"
	UnitWeeks   PlanUnit = "weeks"
	UnitMonths  PlanUnit = "months"
)

// User is an account with a resolved access-time allowance.
// CredentialHash is Argon2id(password, Salt); never stored in plaintext.
type User struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	CredentialHash   []byte    `json:"credentialHash"`
	Salt             []byte    `json:"salt"`
	AllowanceMinutes int64     `json:"allowanceMinutes"`
	IsAdmin          bool      `json:"isAdmin"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Plan is a reusable allowance template (value + unit).
type Plan struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Value float64  `json:"value"`
	Unit  PlanUnit `json:"unit"`
}

// Item is a single unique unit of stock owned by exactly one producer.
// Available is the only stock flag; there is no quantity field.
type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	OwnerID     int64           `json:"ownerId"`
	Available   bool            `json:"available"`
}

// Producer owns an ordered sequence of items.
type Producer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Items []Item `json:"items"`
}

// CartLine is a denormalized snapshot of an item taken at add-time,
// plus the item id for later dereferencing.
type CartLine struct {
	ItemID       int64           `json:"itemId"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	ProducerName string          `json:"producerName"`
	AddedAt      time.Time       `json:"addedAt"`
}

// OrderStatus is the only mutable field of an order after creation.
type OrderStatus string

// Order lifecycle states.
const (
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is an immutable record of a completed checkout. Total equals the
// sum of line prices at creation time and is never recomputed.
type Order struct {
	ID              int64           `json:"id"`
	BuyerID         int64           `json:"buyerId"`
	BuyerName       string          `json:"buyerName"`
	BuyerEmail      string          `json:"buyerEmail"`
	Lines           []CartLine      `json:"lines"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress string          `json:"shippingAddress"`
	ShippingCity    string          `json:"shippingCity"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// SiteFile is one file of an imported site bundle. Content is binary and
// serializes as base64.
type SiteFile struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// ManagedSite is an imported bundle of static files kept in the blob store.
type ManagedSite struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Files     []SiteFile `json:"files"`
	CreatedAt time.Time  `json:"createdAt"`
}

// PaymentConfig identifies the configured payment provider.
type PaymentConfig struct {
	Provider  string `json:"provider"`
	PublicKey string `json:"publicKey"`
}

// ToolDescriptor is one entry of the static tool manifest.
type ToolDescriptor struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Session is the authenticated principal reconstructed from a session token.
type Session struct {
	UserID    int64
	Username  string
	IsAdmin   bool
	ExpiresAt time.Time
}

// CheckoutPayload carries the contact/payment fields required at checkout.
// Card fields have extra format rules checked by the cart engine.
type CheckoutPayload struct {
	Name       string `validate:"required"`
	Email      string `validate:"required,email"`
	Address    string `validate:"required"`
	City       string `validate:"required"`
	CardNumber string `validate:"required"`
	CardExpiry string `validate:"required"`
	CardCVV    string `validate:"required"`
}

// CurrentSchemaVersion tags documents written by this build.
const CurrentSchemaVersion = 1

// Document is the full persisted application state of the synchronous store.
type Document struct {
	SchemaVersion int           `json:"schemaVersion"`
	Users         []User        `json:"users"`
	Plans         []Plan        `json:"plans"`
	Producers     []Producer    `json:"producers"`
	Orders        []Order       `json:"orders"`
	Cart          []CartLine    `json:"cart"`
	Payment       PaymentConfig `json:"paymentConfig"`
}

// DefaultDocument returns the empty state a corrupt or missing document
// falls back to.
func DefaultDocument() *Document {
	return &Document{
		SchemaVersion: CurrentSchemaVersion,
		Users:         []User{},
		Plans:         []Plan{},
		Producers:     []Producer{},
		Orders:        []Order{},
		Cart:          []CartLine{},
		Payment:       PaymentConfig{Provider: "simulated"},
	}
}

// UserByName returns the user with the exact (case-sensitive) username, or nil.
func (d *Document) UserByName(username string) *User {
	for i := range d.Users {
		if d.Users[i].Username == username {
			return &d.Users[i]
		}
	}
	return nil
}

// UserByID returns the user with the given id, or nil.
func (d *Document) UserByID(id int64) *User {
	for i := range d.Users {
		if d.Users[i].ID == id {
			return &d.Users[i]
		}
	}
	return nil
}

// PlanByID returns the plan with the given id, or nil.
func (d *Document) PlanByID(id int64) *Plan {
	for i := range d.Plans {
		if d.Plans[i].ID == id {
			return &d.Plans[i]
		}
	}
	return nil
}

// ProducerByID returns the producer with the given id, or nil.
func (d *Document) ProducerByID(id int64) *Producer {
	for i := range d.Producers {
		if d.Producers[i].ID == id {
			return &d.Producers[i]
		}
	}
	return nil
}

// ItemByID returns the item with the given id across all producers, or nil.
// The pointer aliases the document and stays valid until the next mutation.
func (d *Document) ItemByID(id int64) *Item {
	for i := range d.Producers {
		for j := range d.Producers[i].Items {
			if d.Producers[i].Items[j].ID == id {
				return &d.Producers[i].Items[j]
			}
		}
	}
	return nil
}

// CartLineByItemID returns the cart line referencing the item, or nil.
func (d *Document) CartLineByItemID(itemID int64) *CartLine {
	for i := range d.Cart {
		if d.Cart[i].ItemID == itemID {
			return &d.Cart[i]
		}
	}
	return nil
}
