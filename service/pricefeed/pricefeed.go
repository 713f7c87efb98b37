package pricefeed

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"

	baseabi "github.com/auctionmarket/goapi/base/abi"
	bCtx "github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/base/log"
	"github.com/auctionmarket/goapi/domain"
	"github.com/auctionmarket/goapi/service/chain"
)

type impl struct {
	chainId     domain.ChainId
	chainClient chain.Client
}

// New returns a price oracle adapter backed by Chainlink-style aggregator
// contracts. Rates are normalized from the feed's own decimals to the 1e18
// scale the engine computes in.
func New(chainId domain.ChainId, chainClient chain.Client) domain.PriceFeed {
	return &impl{
		chainId:     chainId,
		chainClient: chainClient,
	}
}

func (im *impl) GetRate(c bCtx.Ctx, feed domain.Address) (*big.Int, time.Time, error) {
	feedAddr := common.HexToAddress(string(feed))

	res, err := im.chainClient.Call(c, int32(im.chainId), feedAddr, baseabi.ChainlinkAggregatorABI, "latestRoundData")
	if err != nil {
		c.WithFields(log.Fields{
			"err":  err,
			"feed": feed,
		}).Error("latestRoundData call failed")
		return nil, time.Time{}, err
	}
	answer, ok := res[1].(*big.Int)
	updatedAt, ok2 := res[3].(*big.Int)
	if !ok || !ok2 {
		return nil, time.Time{}, xerrors.Errorf("malformed round data from feed %s", feed)
	}

	// the feed signals unusable prices itself, no extra heuristics here
	if answer.Sign() <= 0 || updatedAt.Sign() == 0 {
		c.WithFields(log.Fields{
			"feed":      feed,
			"answer":    answer,
			"updatedAt": updatedAt,
		}).Warn("feed reported unusable price")
		return nil, time.Time{}, domain.ErrStaleOrInvalidPrice
	}

	res, err = im.chainClient.Call(c, int32(im.chainId), feedAddr, baseabi.ChainlinkAggregatorABI, "decimals")
	if err != nil {
		c.WithFields(log.Fields{
			"err":  err,
			"feed": feed,
		}).Error("decimals call failed")
		return nil, time.Time{}, err
	}
	decimals := int32(res[0].(uint8))

	rate := normalize(answer, decimals)
	return rate, time.Unix(updatedAt.Int64(), 0).UTC(), nil
}

// normalize rescales a feed answer to 18 decimals.
func normalize(answer *big.Int, decimals int32) *big.Int {
	if decimals == domain.NativeDecimals {
		return new(big.Int).Set(answer)
	}
	if decimals < domain.NativeDecimals {
		scale := new(big.Int).Exp(domain.Big10, big.NewInt(int64(domain.NativeDecimals-decimals)), nil)
		return new(big.Int).Mul(answer, scale)
	}
	scale := new(big.Int).Exp(domain.Big10, big.NewInt(int64(decimals-domain.NativeDecimals)), nil)
	return new(big.Int).Quo(answer, scale)
}
