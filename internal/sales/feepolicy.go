package sales

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FeePolicy is the versioned marketplace cut. Version 1 takes 10%
// (1000 basis points) of the sale total, rounded half-up to the cent.
// The version is stamped on every sale record so historic rows stay
// explainable after a rate change.
type FeePolicy struct {
	Version int
	rateBps int64
	rate    decimal.Decimal
}

var bpsDenominator = decimal.NewFromInt(10000)

// NewFeePolicy builds a policy from a basis-point rate.
func NewFeePolicy(version int, rateBps int) (FeePolicy, error) {
	if version < 1 {
		return FeePolicy{}, fmt.Errorf("fee policy version must be positive, got %d", version)
	}
	if rateBps < 0 || rateBps > 10000 {
		return FeePolicy{}, fmt.Errorf("fee rate must be within [0, 10000] bps, got %d", rateBps)
	}
	return FeePolicy{
		Version: version,
		rateBps: int64(rateBps),
		rate:    decimal.NewFromInt(int64(rateBps)).Div(bpsDenominator),
	}, nil
}

// Split breaks a sale total into the marketplace fee and the seller
// earnings. Pure: same input, same output, and the two parts always sum
// back to the total.
func (p FeePolicy) Split(totalCents int64) (feeCents int64, earningsCents int64) {
	fee := decimal.NewFromInt(totalCents).Mul(p.rate).Round(0).IntPart()
	return fee, totalCents - fee
}
