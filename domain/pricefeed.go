package domain

import (
	"math/big"
	"time"

	"github.com/auctionmarket/goapi/base/ctx"
)

// NativeDecimals is the fixed-point scale shared by USD amounts and
// oracle rates.
const NativeDecimals = int32(18)

// PriceFeed reads the current exchange rate of an external price source.
// The rate is the USD price of one whole asset unit, scaled to 1e18, with
// the feed's last-update timestamp. Implementations must fail with
// ErrStaleOrInvalidPrice when the feed itself reports an unusable value;
// they do not invent freshness heuristics on top of what the feed signals.
type PriceFeed interface {
	GetRate(c ctx.Ctx, feed Address) (*big.Int, time.Time, error)
}
