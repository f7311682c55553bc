// Package payment abstracts the charge authorization step of checkout.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Request carries what a real provider would need to authorize a charge.
type Request struct {
	Amount     decimal.Decimal
	CardNumber string
	CardExpiry string
	CardCVV    string
	HolderName string
}

// Result is the provider's decision.
type Result struct {
	Approved  bool
	Reference string
}

// Gateway authorizes charges. Implementations must be swappable without
// changing the checkout contract; the simulated gateway is a placeholder
// for a real provider integration.
type Gateway interface {
	Authorize(ctx context.Context, req Request) (Result, error)
}
