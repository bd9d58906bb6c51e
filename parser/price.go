// Package parser holds the pure record logic: price derivation, spec label
// normalisation, text parsing helpers and the product schema check.
package parser

import (
	"github.com/shopspring/decimal"
)

var (
	saleMultiplier   = decimal.RequireFromString("2.5")
	retailMultiplier = decimal.RequireFromString("3.25")
)

// Prices are the two figures derived from a wholesale price.
type Prices struct {
	Sale   *float64
	Retail *float64
}

// DerivePrices applies the fixed markup to wholesale and rounds to the cent,
// half away from zero. A nil wholesale yields nil prices.
func DerivePrices(wholesale *float64) Prices {
	if wholesale == nil {
		return Prices{}
	}
	w := decimal.NewFromFloat(*wholesale)
	sale := w.Mul(saleMultiplier).Round(2).InexactFloat64()
	retail := w.Mul(retailMultiplier).Round(2).InexactFloat64()
	return Prices{Sale: &sale, Retail: &retail}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
