package auction

import (
	"math/big"
	"time"

	"github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/domain"
)

// State of a single auction. Transitions exactly once, from Open to one of
// the terminal states; both terminal states are absorbing.
type State int32

const (
	StateOpen State = iota
	StateEnded
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateEnded:
		return "Ended"
	case StateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Auction is the record of a single auction instance. StartingPriceUSD and
// HighestBidUSD are fixed-point USD values at 18 decimals. While the state
// is Open the auctioned token is held by the instance's escrow, and
// HighestBidEscrowed tracks the payment-asset units actually locked for the
// current leader; refunds always pay out that exact amount, never a
// re-conversion.
type Auction struct {
	ChainId     domain.ChainId `bson:"chainId"`
	Address     domain.Address `bson:"address"`
	Seller      domain.Address `bson:"seller"`
	NftContract domain.Address `bson:"nftContract"`
	TokenId     domain.TokenId `bson:"tokenId"`

	// PaymentToken is the fungible token used to settle, or the empty
	// address when the auction settles in the native currency.
	PaymentToken domain.Address `bson:"paymentToken"`
	FeedNative   domain.Address `bson:"feedNative"`
	FeedPayment  domain.Address `bson:"feedPayment"`

	StartingPriceUSD   *big.Int        `bson:"-"`
	HighestBidUSD      *big.Int        `bson:"-"`
	HighestBidder      *domain.Address `bson:"highestBidder,omitempty"`
	HighestBidEscrowed *big.Int        `bson:"-"`

	EndTime   time.Time `bson:"endTime"`
	State     State     `bson:"state"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (a *Auction) HasBid() bool {
	return a.HighestBidder != nil
}

func (a *Auction) IsNativePayment() bool {
	return a.PaymentToken.IsEmpty()
}

// Clone returns a deep copy so callers can never mutate engine state
// through a returned record.
func (a *Auction) Clone() *Auction {
	cp := *a
	if a.StartingPriceUSD != nil {
		cp.StartingPriceUSD = new(big.Int).Set(a.StartingPriceUSD)
	}
	if a.HighestBidUSD != nil {
		cp.HighestBidUSD = new(big.Int).Set(a.HighestBidUSD)
	}
	if a.HighestBidEscrowed != nil {
		cp.HighestBidEscrowed = new(big.Int).Set(a.HighestBidEscrowed)
	}
	if a.HighestBidder != nil {
		b := *a.HighestBidder
		cp.HighestBidder = &b
	}
	return &cp
}

type Id struct {
	ChainId domain.ChainId `bson:"chainId"`
	Address domain.Address `bson:"address"`
}

func (a *Auction) ToId() *Id {
	return &Id{
		ChainId: a.ChainId,
		Address: a.Address,
	}
}

// Info is the presentation read model of one auction.
type Info struct {
	Address          domain.Address  `json:"address"`
	Seller           domain.Address  `json:"seller"`
	NftAddress       domain.Address  `json:"nftAddress"`
	TokenId          domain.TokenId  `json:"tokenId"`
	PaymentToken     domain.Address  `json:"paymentToken"`
	StartingPriceUSD string          `json:"startingPriceUSD"`
	HighestBidUSD    string          `json:"highestBidUSD"`
	HighestBidder    *domain.Address `json:"highestBidder,omitempty"`
	EndTime          string          `json:"endTime"`
	Status           string          `json:"status"`
}

// CreateParams are the construction parameters of one auction. They are
// supplied once at creation and are immutable afterwards.
type CreateParams struct {
	ChainId          domain.ChainId
	Seller           domain.Address
	NftContract      domain.Address
	TokenId          domain.TokenId
	PaymentToken     domain.Address
	FeedNative       domain.Address
	FeedPayment      domain.Address
	StartingPriceUSD *big.Int
	Duration         time.Duration
}

// Instance is a live auction state machine. Every mutating operation
// executes atomically relative to the other operations of the same
// instance; a rejected operation leaves state exactly as it was.
type Instance interface {
	// Bid places a USD-denominated bid, converted to the payment asset at
	// the prevailing oracle rate. For native-currency auctions value must
	// equal the converted amount; for token auctions value must be nil.
	Bid(c ctx.Ctx, bidder domain.Address, amountUSD, value *big.Int) error
	// End settles an expired auction. Any caller may invoke it; it
	// settles exactly once.
	End(c ctx.Ctx) error
	// Cancel aborts a bidless auction. Seller only.
	Cancel(c ctx.Ctx, caller domain.Address) error
	Info(c ctx.Ctx) *Info
	// Record returns a copy of the current auction record.
	Record(c ctx.Ctx) *Auction
}

// Registry creates auction instances and keeps the append-only index of
// every auction ever created, in insertion order.
type Registry interface {
	CreateAuction(c ctx.Ctx, params *CreateParams) (Instance, error)
	Get(c ctx.Ctx, addr domain.Address) (Instance, error)
	GetAllAuctions(c ctx.Ctx) []domain.Address
	GetAuctionsCount(c ctx.Ctx) int
}

// Repo persists auction records for queryable history. The in-memory
// engine state stays authoritative; repository writes mirror it.
type Repo interface {
	Create(c ctx.Ctx, a *Auction) error
	Update(c ctx.Ctx, a *Auction) error
	FindOne(c ctx.Ctx, chainId domain.ChainId, addr domain.Address) (*Auction, error)
	// FindAll returns every record in creation order.
	FindAll(c ctx.Ctx) ([]*Auction, error)
	Count(c ctx.Ctx) (int, error)
}
