package usecase

import (
	"math/big"
	"sync"
	"time"

	bCtx "github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/base/log"
	"github.com/auctionmarket/goapi/base/ptr"
	"github.com/auctionmarket/goapi/base/usdprice"
	"github.com/auctionmarket/goapi/domain"
	"github.com/auctionmarket/goapi/domain/auction"
)

// overridable for deterministic deadline tests
var timeNow = time.Now

// instance is one live auction state machine. The mutex serializes every
// operation, mirroring the total order a serialized-execution ledger gives
// concurrent submitters: the second of two "concurrent" bids always sees
// the first one's updated record.
type instance struct {
	mu     sync.Mutex
	record *auction.Auction
	escrow *escrow
	feeds  domain.PriceFeed
	tokens domain.TokenLedger
	repo   auction.Repo
}

func (in *instance) Bid(c bCtx.Ctx, bidder domain.Address, amountUSD, value *big.Int) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	r := in.record
	if r.State != auction.StateOpen {
		return domain.ErrAuctionNotOpen
	}
	if !timeNow().Before(r.EndTime) {
		return domain.ErrAuctionExpired
	}
	if bidder.IsEmpty() || amountUSD == nil {
		return domain.ErrBadParamInput
	}

	// strict increase: a bid equal to the current highest is rejected
	if r.HasBid() {
		if amountUSD.Cmp(r.HighestBidUSD) <= 0 {
			return domain.ErrBidTooLow
		}
	} else if amountUSD.Cmp(r.StartingPriceUSD) < 0 {
		return domain.ErrBidTooLow
	}

	// price the bid at the prevailing rate, never at a rate locked at
	// creation time
	feed := r.FeedPayment
	decimals := domain.NativeDecimals
	if r.IsNativePayment() {
		feed = r.FeedNative
	} else {
		var err error
		if decimals, err = in.tokens.Decimals(c, r.PaymentToken); err != nil {
			c.WithFields(log.Fields{
				"err":   err,
				"token": r.PaymentToken,
			}).Error("tokens.Decimals failed")
			return err
		}
	}
	rate, _, err := in.feeds.GetRate(c, feed)
	if err != nil {
		c.WithFields(log.Fields{
			"err":  err,
			"feed": feed,
		}).Error("feeds.GetRate failed")
		return err
	}
	amountAsset, err := usdprice.AssetAmount(amountUSD, rate, decimals)
	if err != nil {
		return err
	}

	if err := in.escrow.lockFunds(c, bidder, amountAsset, value); err != nil {
		return err
	}

	// refund the outgoing leader exactly what was escrowed for them, not a
	// re-conversion at today's rate
	if r.HasBid() {
		if err := in.escrow.releaseFunds(c, *r.HighestBidder, r.HighestBidEscrowed); err != nil {
			// undo the fresh lock so the rejected bid has no side effects
			if rbErr := in.escrow.releaseFunds(c, bidder, amountAsset); rbErr != nil {
				c.WithFields(log.Fields{
					"err":     rbErr,
					"auction": r.Address,
				}).Error("failed to roll back escrowed bid")
			}
			return err
		}
	}

	bidderAddr := bidder.ToLower()
	r.HighestBidUSD = new(big.Int).Set(amountUSD)
	r.HighestBidder = &bidderAddr
	r.HighestBidEscrowed = amountAsset
	in.persist(c)
	return nil
}

func (in *instance) End(c bCtx.Ctx) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	r := in.record
	// the state guard is the sole idempotence mechanism: settlement runs
	// exactly once
	if r.State != auction.StateOpen {
		return domain.ErrAuctionNotOpen
	}
	if timeNow().Before(r.EndTime) {
		return domain.ErrAuctionNotExpired
	}

	if r.HasBid() {
		if err := in.escrow.releaseNFT(c, *r.HighestBidder); err != nil {
			return err
		}
		if err := in.escrow.releaseFunds(c, r.Seller, r.HighestBidEscrowed); err != nil {
			c.WithFields(log.Fields{
				"err":     err,
				"auction": r.Address,
			}).Error("seller payout failed")
			return err
		}
	} else if err := in.escrow.releaseNFT(c, r.Seller); err != nil {
		return err
	}

	r.State = auction.StateEnded
	in.persist(c)
	return nil
}

func (in *instance) Cancel(c bCtx.Ctx, caller domain.Address) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	r := in.record
	if r.State != auction.StateOpen {
		return domain.ErrAuctionNotOpen
	}
	if !caller.Equals(r.Seller) {
		return domain.ErrUnauthorized
	}
	if r.HasBid() {
		return domain.ErrBidsAlreadyPlaced
	}

	if err := in.escrow.releaseNFT(c, r.Seller); err != nil {
		return err
	}
	r.State = auction.StateCancelled
	in.persist(c)
	return nil
}

func (in *instance) Info(c bCtx.Ctx) *auction.Info {
	in.mu.Lock()
	defer in.mu.Unlock()
	return makeInfo(in.record)
}

func (in *instance) Record(c bCtx.Ctx) *auction.Auction {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.record.Clone()
}

// persist mirrors the record into the repository. The in-memory state
// machine stays authoritative, so persistence failures are logged and the
// operation still succeeds.
func (in *instance) persist(c bCtx.Ctx) {
	if in.repo == nil {
		return
	}
	if err := in.repo.Update(c, in.record.Clone()); err != nil {
		c.WithFields(log.Fields{
			"err":     err,
			"auction": in.record.Address,
		}).Error("repo.Update failed")
	}
}

func makeInfo(r *auction.Auction) *auction.Info {
	info := &auction.Info{
		Address:          r.Address,
		Seller:           r.Seller,
		NftAddress:       r.NftContract,
		TokenId:          r.TokenId,
		PaymentToken:     r.PaymentToken,
		StartingPriceUSD: usdprice.FormatUsd(r.StartingPriceUSD),
		HighestBidUSD:    usdprice.FormatUsd(r.HighestBidUSD),
		EndTime:          r.EndTime.UTC().Format(time.RFC1123),
		Status:           r.State.String(),
	}
	if r.HighestBidder != nil {
		info.HighestBidder = ptr.Address(*r.HighestBidder)
	}
	return info
}
