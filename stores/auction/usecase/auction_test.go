package usecase

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/domain"
	"github.com/auctionmarket/goapi/domain/auction"
	aucMocks "github.com/auctionmarket/goapi/domain/auction/mocks"
	domainMocks "github.com/auctionmarket/goapi/domain/mocks"
	"github.com/auctionmarket/goapi/service/ledger"
	"github.com/auctionmarket/goapi/service/pricefeed"
	"github.com/auctionmarket/goapi/stores/auction/repository"
)

var mockCtx = ctx.Background()

const (
	chainId     = domain.ChainId(1)
	registryAcc = domain.Address("0x00000000000000000000000000000000000000aa")
	seller      = domain.Address("0x1111111111111111111111111111111111111111")
	bidder1     = domain.Address("0x2222222222222222222222222222222222222222")
	bidder2     = domain.Address("0x3333333333333333333333333333333333333333")
	outsider    = domain.Address("0x4444444444444444444444444444444444444444")
	punks       = domain.Address("0x5555555555555555555555555555555555555555")
	usdc        = domain.Address("0x6666666666666666666666666666666666666666")
	feedNative  = domain.Address("0x7777777777777777777777777777777777777777")
	feedUsdc    = domain.Address("0x8888888888888888888888888888888888888888")
	punkId      = domain.TokenId("1")
	punkId2     = domain.TokenId("2")
)

// usd returns n dollars in 18-decimal fixed point.
func usd(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type auctionSuite struct {
	suite.Suite
	ledger *ledger.Ledger
	feeds  *pricefeed.Static
	repo   auction.Repo
	reg    auction.Registry
	now    time.Time
}

func TestAuctionEngine(t *testing.T) {
	suite.Run(t, new(auctionSuite))
}

func (t *auctionSuite) SetupTest() {
	t.ledger = ledger.New()
	t.ledger.RegisterCollection(punks)
	t.ledger.RegisterToken(usdc, 6)
	t.Require().NoError(t.ledger.MintNft(punks, seller, punkId))
	t.ledger.MintNative(bidder1, usd(1000))
	t.ledger.MintNative(bidder2, usd(1000))
	t.Require().NoError(t.ledger.MintToken(usdc, bidder1, big.NewInt(1_000_000_000)))

	t.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return t.now }

	t.feeds = pricefeed.NewStatic()
	t.feeds.SetRate(feedNative, usd(2000), t.now)
	t.feeds.SetRate(feedUsdc, usd(1), t.now)

	t.repo = repository.NewMemoryAuctionRepo()
	reg, err := NewRegistry(mockCtx, &RegistryCfg{
		ChainId: chainId,
		Address: registryAcc,
		Nfts:    t.ledger.Nfts(),
		Tokens:  t.ledger.Tokens(),
		Native:  t.ledger.Native(),
		Feeds:   t.feeds,
		Repo:    t.repo,
	})
	t.Require().NoError(err)
	t.reg = reg

	t.Require().NoError(t.ledger.Nfts().Approve(mockCtx, punks, seller, registryAcc, punkId))
}

func (t *auctionSuite) TearDownTest() {
	timeNow = time.Now
}

func (t *auctionSuite) create(paymentToken domain.Address, price *big.Int, dur time.Duration) auction.Instance {
	feedPayment := domain.EmptyAddress
	if !paymentToken.IsEmpty() {
		feedPayment = feedUsdc
	}
	in, err := t.reg.CreateAuction(mockCtx, &auction.CreateParams{
		ChainId:          chainId,
		Seller:           seller,
		NftContract:      punks,
		TokenId:          punkId,
		PaymentToken:     paymentToken,
		FeedNative:       feedNative,
		FeedPayment:      feedPayment,
		StartingPriceUSD: price,
		Duration:         dur,
	})
	t.Require().NoError(err)
	return in
}

func (t *auctionSuite) nativeBalance(addr domain.Address) *big.Int {
	b, err := t.ledger.Native().BalanceOf(mockCtx, addr)
	t.Require().NoError(err)
	return b
}

func (t *auctionSuite) tokenBalance(addr domain.Address) *big.Int {
	b, err := t.ledger.Tokens().BalanceOf(mockCtx, usdc, addr)
	t.Require().NoError(err)
	return b
}

func (t *auctionSuite) punkOwner() domain.Address {
	owner, err := t.ledger.Nfts().OwnerOf(mockCtx, punks, punkId)
	t.Require().NoError(err)
	return owner
}

func (t *auctionSuite) TestNativeBiddingLifecycle() {
	in := t.create(domain.EmptyAddress, usd(100), time.Hour)
	addr := in.Record(mockCtx).Address
	t.Equal(addr, t.punkOwner())

	b1Start := t.nativeBalance(bidder1)
	b2Start := t.nativeBalance(bidder2)
	sellerStart := t.nativeBalance(seller)

	// $150 at 1 unit = $2000 locks 0.075 units
	lock1 := big.NewInt(75e15)
	t.NoError(in.Bid(mockCtx, bidder1, usd(150), lock1))
	t.Equal(new(big.Int).Sub(b1Start, lock1), t.nativeBalance(bidder1))
	t.Equal(lock1, t.nativeBalance(addr))

	// neither a lower nor a matching bid is an increase
	t.Equal(domain.ErrBidTooLow, in.Bid(mockCtx, bidder2, usd(120), big.NewInt(6e16)))
	t.Equal(domain.ErrBidTooLow, in.Bid(mockCtx, bidder2, usd(150), lock1))
	rec := in.Record(mockCtx)
	t.Equal(bidder1, *rec.HighestBidder)
	t.Equal(usd(150), rec.HighestBidUSD)
	t.Equal(lock1, rec.HighestBidEscrowed)

	// the rate moves before the next bid: $200 at 1 unit = $2500 locks
	// 0.08 units, and the outgoing leader gets back exactly 0.075
	t.feeds.SetRate(feedNative, usd(2500), t.now)
	lock2 := big.NewInt(8e16)
	t.NoError(in.Bid(mockCtx, bidder2, usd(200), lock2))
	t.Equal(b1Start, t.nativeBalance(bidder1))
	t.Equal(new(big.Int).Sub(b2Start, lock2), t.nativeBalance(bidder2))
	t.Equal(lock2, t.nativeBalance(addr))

	t.now = t.now.Add(2 * time.Hour)
	t.NoError(in.End(mockCtx))
	t.Equal(bidder2.ToLower(), t.punkOwner())
	t.Equal(new(big.Int).Add(sellerStart, lock2), t.nativeBalance(seller))
	t.Equal(big.NewInt(0), t.nativeBalance(addr))

	rec = in.Record(mockCtx)
	t.Equal(auction.StateEnded, rec.State)
	t.Equal(domain.ErrAuctionNotOpen, in.End(mockCtx))
	t.Equal(domain.ErrAuctionNotOpen, in.Bid(mockCtx, bidder1, usd(300), big.NewInt(12e16)))
}

func (t *auctionSuite) TestBidValidation() {
	in := t.create(domain.EmptyAddress, usd(100), time.Hour)

	t.Equal(domain.ErrBidTooLow, in.Bid(mockCtx, bidder1, usd(99), big.NewInt(1)))
	t.Equal(domain.ErrBadParamInput, in.Bid(mockCtx, domain.EmptyAddress, usd(150), big.NewInt(1)))
	t.Equal(domain.ErrBadParamInput, in.Bid(mockCtx, bidder1, nil, big.NewInt(1)))

	// native bids must attach exactly the converted amount
	t.Equal(domain.ErrValueMismatch, in.Bid(mockCtx, bidder1, usd(150), nil))
	t.Equal(domain.ErrValueMismatch, in.Bid(mockCtx, bidder1, usd(150), big.NewInt(1)))

	rec := in.Record(mockCtx)
	t.False(rec.HasBid())
	t.Equal(auction.StateOpen, rec.State)
}

func (t *auctionSuite) TestBidAfterDeadline() {
	in := t.create(domain.EmptyAddress, usd(100), time.Hour)
	t.now = t.now.Add(time.Hour)
	t.Equal(domain.ErrAuctionExpired, in.Bid(mockCtx, bidder1, usd(150), big.NewInt(75e15)))
	t.False(in.Record(mockCtx).HasBid())
}

func (t *auctionSuite) TestEndWithoutBids() {
	in := t.create(domain.EmptyAddress, usd(100), time.Hour)

	t.Equal(domain.ErrAuctionNotExpired, in.End(mockCtx))

	t.now = t.now.Add(2 * time.Hour)
	t.NoError(in.End(mockCtx))
	t.Equal(seller, t.punkOwner())
	t.Equal(auction.StateEnded, in.Record(mockCtx).State)
}

func (t *auctionSuite) TestCancel() {
	in := t.create(domain.EmptyAddress, usd(100), time.Hour)

	t.Equal(domain.ErrUnauthorized, in.Cancel(mockCtx, outsider))

	t.NoError(in.Cancel(mockCtx, seller))
	t.Equal(seller, t.punkOwner())
	t.Equal(auction.StateCancelled, in.Record(mockCtx).State)

	t.Equal(domain.ErrAuctionNotOpen, in.Cancel(mockCtx, seller))
	t.Equal(domain.ErrAuctionNotOpen, in.Bid(mockCtx, bidder1, usd(150), big.NewInt(75e15)))
}

func (t *auctionSuite) TestCancelAfterBid() {
	in := t.create(domain.EmptyAddress, usd(100), time.Hour)
	t.NoError(in.Bid(mockCtx, bidder1, usd(150), big.NewInt(75e15)))
	t.Equal(domain.ErrBidsAlreadyPlaced, in.Cancel(mockCtx, seller))
	t.Equal(auction.StateOpen, in.Record(mockCtx).State)
}

func (t *auctionSuite) TestTokenPayment() {
	in := t.create(usdc, usd(100), time.Hour)
	addr := in.Record(mockCtx).Address

	// $120 at 1 usdc = $1 is 120 usdc in 6-decimal units
	amount := big.NewInt(120_000_000)

	// attaching native value to a token bid is rejected
	t.Equal(domain.ErrValueMismatch, in.Bid(mockCtx, bidder1, usd(120), big.NewInt(1)))

	// the pull fails until the bidder approves the instance
	t.Equal(domain.ErrTransferRejected, in.Bid(mockCtx, bidder1, usd(120), nil))

	t.NoError(t.ledger.Tokens().Approve(mockCtx, usdc, bidder1, addr, amount))
	t.NoError(in.Bid(mockCtx, bidder1, usd(120), nil))
	t.Equal(amount, t.tokenBalance(addr))
	t.Equal(amount, in.Record(mockCtx).HighestBidEscrowed)

	// allowance is spent; a higher bid from the same account cannot pull
	t.Equal(domain.ErrTransferRejected, in.Bid(mockCtx, bidder1, usd(300), nil))
	t.Equal(usd(120), in.Record(mockCtx).HighestBidUSD)

	t.now = t.now.Add(2 * time.Hour)
	t.NoError(in.End(mockCtx))
	t.Equal(bidder1.ToLower(), t.punkOwner())
	t.Equal(amount, t.tokenBalance(seller))
	t.Equal(big.NewInt(0), t.tokenBalance(addr))
}

func (t *auctionSuite) TestUnusableOracleRejectsBid() {
	feeds := &domainMocks.PriceFeed{}
	feeds.On("GetRate", mockCtx, feedNative).Return(nil, time.Time{}, domain.ErrStaleOrInvalidPrice)

	reg, err := NewRegistry(mockCtx, &RegistryCfg{
		ChainId: chainId,
		Address: registryAcc,
		Nfts:    t.ledger.Nfts(),
		Tokens:  t.ledger.Tokens(),
		Native:  t.ledger.Native(),
		Feeds:   feeds,
		Repo:    repository.NewMemoryAuctionRepo(),
	})
	t.Require().NoError(err)

	in, err := reg.CreateAuction(mockCtx, &auction.CreateParams{
		ChainId:          chainId,
		Seller:           seller,
		NftContract:      punks,
		TokenId:          punkId,
		PaymentToken:     domain.EmptyAddress,
		FeedNative:       feedNative,
		StartingPriceUSD: usd(100),
		Duration:         time.Hour,
	})
	t.Require().NoError(err)

	before := t.nativeBalance(bidder1)
	t.Equal(domain.ErrStaleOrInvalidPrice, in.Bid(mockCtx, bidder1, usd(150), big.NewInt(75e15)))
	t.Equal(before, t.nativeBalance(bidder1))
	t.False(in.Record(mockCtx).HasBid())
	feeds.AssertExpectations(t.T())
}

func (t *auctionSuite) TestPersistenceFailureTolerated() {
	repo := &aucMocks.Repo{}
	repo.On("FindAll", mockCtx).Return([]*auction.Auction{}, nil)
	repo.On("Create", mockCtx, mock.Anything).Return(errors.New("mongo down"))
	repo.On("Update", mockCtx, mock.Anything).Return(errors.New("mongo down"))

	reg, err := NewRegistry(mockCtx, &RegistryCfg{
		ChainId: chainId,
		Address: registryAcc,
		Nfts:    t.ledger.Nfts(),
		Tokens:  t.ledger.Tokens(),
		Native:  t.ledger.Native(),
		Feeds:   t.feeds,
		Repo:    repo,
	})
	t.Require().NoError(err)

	// the engine stays authoritative when the mirror is down
	in, err := reg.CreateAuction(mockCtx, &auction.CreateParams{
		ChainId:          chainId,
		Seller:           seller,
		NftContract:      punks,
		TokenId:          punkId,
		PaymentToken:     domain.EmptyAddress,
		FeedNative:       feedNative,
		StartingPriceUSD: usd(100),
		Duration:         time.Hour,
	})
	t.Require().NoError(err)
	t.NoError(in.Bid(mockCtx, bidder1, usd(150), big.NewInt(75e15)))
	t.Equal(usd(150), in.Record(mockCtx).HighestBidUSD)
	repo.AssertExpectations(t.T())
}

func (t *auctionSuite) TestInfo() {
	in := t.create(domain.EmptyAddress, usd(100), time.Hour)
	t.NoError(in.Bid(mockCtx, bidder1, usd(150), big.NewInt(75e15)))

	info := in.Info(mockCtx)
	t.Equal(seller, info.Seller)
	t.Equal(punks, info.NftAddress)
	t.Equal(punkId, info.TokenId)
	t.Equal("100", info.StartingPriceUSD)
	t.Equal("150", info.HighestBidUSD)
	t.Equal(bidder1, *info.HighestBidder)
	t.Equal(t.now.Add(time.Hour).UTC().Format(time.RFC1123), info.EndTime)
	t.Equal("Open", info.Status)
}
