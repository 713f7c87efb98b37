package usdprice

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/auctionmarket/goapi/domain"
)

// AssetAmount converts a fixed-point USD amount (1e18 scale) into
// payment-asset units at the given oracle rate:
//
//	assetAmount = usd * 10^assetDecimals / rate
//
// where rate is the USD price of one whole asset unit scaled to 1e18. All
// intermediate arithmetic stays in big.Int; financial comparisons must never
// go through floating point.
func AssetAmount(usd, rate *big.Int, assetDecimals int32) (*big.Int, error) {
	if rate == nil || rate.Sign() <= 0 {
		return nil, domain.ErrStaleOrInvalidPrice
	}
	if usd == nil || usd.Sign() < 0 {
		return nil, domain.ErrInvalidNumberFormat
	}
	scale := new(big.Int).Exp(domain.Big10, big.NewInt(int64(assetDecimals)), nil)
	out := new(big.Int).Mul(usd, scale)
	return out.Quo(out, rate), nil
}

// FormatUsd renders a 1e18 fixed-point USD value as a plain decimal string.
func FormatUsd(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -domain.NativeDecimals).String()
}

// ParseUsd parses a decimal USD string into the 1e18 fixed-point form,
// truncating anything below the smallest representable unit.
func ParseUsd(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, domain.ErrInvalidNumberFormat
	}
	return d.Shift(domain.NativeDecimals).BigInt(), nil
}

// FormatAmount renders an asset amount with the asset's own decimals.
func FormatAmount(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}
