package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/domain"
)

var mockCtx = ctx.Background()

const (
	alice = domain.Address("0xa000000000000000000000000000000000000001")
	bob   = domain.Address("0xb000000000000000000000000000000000000002")
	carol = domain.Address("0xc000000000000000000000000000000000000003")
	usdc  = domain.Address("0xd000000000000000000000000000000000000004")
	punks = domain.Address("0xe000000000000000000000000000000000000005")
)

type testsuite struct {
	suite.Suite
	ledger *Ledger
}

func Test(t *testing.T) {
	suite.Run(t, new(testsuite))
}

func (ts *testsuite) SetupTest() {
	ts.ledger = New()
	ts.ledger.RegisterToken(usdc, 6)
	ts.ledger.RegisterCollection(punks)
}

func (ts *testsuite) TestNativeTransfer() {
	ts.ledger.MintNative(alice, big.NewInt(1000))

	ts.NoError(ts.ledger.Native().Transfer(mockCtx, alice, bob, big.NewInt(400)))

	aliceBal, err := ts.ledger.Native().BalanceOf(mockCtx, alice)
	ts.NoError(err)
	ts.Equal(int64(600), aliceBal.Int64())

	bobBal, err := ts.ledger.Native().BalanceOf(mockCtx, bob)
	ts.NoError(err)
	ts.Equal(int64(400), bobBal.Int64())

	err = ts.ledger.Native().Transfer(mockCtx, alice, bob, big.NewInt(601))
	ts.ErrorIs(err, domain.ErrTransferRejected)
}

func (ts *testsuite) TestTokenTransferFromNeedsAllowance() {
	ts.NoError(ts.ledger.MintToken(usdc, alice, big.NewInt(1000)))

	err := ts.ledger.Tokens().TransferFrom(mockCtx, usdc, bob, alice, bob, big.NewInt(100))
	ts.ErrorIs(err, domain.ErrTransferRejected)

	ts.NoError(ts.ledger.Tokens().Approve(mockCtx, usdc, alice, bob, big.NewInt(150)))

	ts.NoError(ts.ledger.Tokens().TransferFrom(mockCtx, usdc, bob, alice, bob, big.NewInt(100)))

	allowance, err := ts.ledger.Tokens().Allowance(mockCtx, usdc, alice, bob)
	ts.NoError(err)
	ts.Equal(int64(50), allowance.Int64())

	err = ts.ledger.Tokens().TransferFrom(mockCtx, usdc, bob, alice, bob, big.NewInt(100))
	ts.ErrorIs(err, domain.ErrTransferRejected)

	bal, err := ts.ledger.Tokens().BalanceOf(mockCtx, usdc, bob)
	ts.NoError(err)
	ts.Equal(int64(100), bal.Int64())

	decimals, err := ts.ledger.Tokens().Decimals(mockCtx, usdc)
	ts.NoError(err)
	ts.Equal(int32(6), decimals)
}

func (ts *testsuite) TestNftTransferAuthorization() {
	ts.NoError(ts.ledger.MintNft(punks, alice, domain.TokenId("1")))

	// stranger can't move it
	err := ts.ledger.Nfts().TransferFrom(mockCtx, punks, bob, alice, bob, domain.TokenId("1"))
	ts.ErrorIs(err, domain.ErrTransferRejected)

	// owner can
	ts.NoError(ts.ledger.Nfts().TransferFrom(mockCtx, punks, alice, alice, bob, domain.TokenId("1")))
	owner, err := ts.ledger.Nfts().OwnerOf(mockCtx, punks, domain.TokenId("1"))
	ts.NoError(err)
	ts.True(owner.Equals(bob))

	// approved operator can, and approval is cleared by the transfer
	ts.NoError(ts.ledger.Nfts().Approve(mockCtx, punks, bob, carol, domain.TokenId("1")))
	ts.NoError(ts.ledger.Nfts().TransferFrom(mockCtx, punks, carol, bob, carol, domain.TokenId("1")))
	approved, err := ts.ledger.Nfts().GetApproved(mockCtx, punks, domain.TokenId("1"))
	ts.NoError(err)
	ts.True(approved.IsEmpty())
}

func (ts *testsuite) TestTokensOf() {
	ts.NoError(ts.ledger.MintNft(punks, alice, domain.TokenId("1")))
	ts.NoError(ts.ledger.MintNft(punks, alice, domain.TokenId("2")))
	ts.NoError(ts.ledger.MintNft(punks, bob, domain.TokenId("3")))

	ids, err := ts.ledger.Nfts().TokensOf(mockCtx, punks, alice)
	ts.NoError(err)
	ts.ElementsMatch([]domain.TokenId{"1", "2"}, ids)
}

func (ts *testsuite) TestUnknownAssets() {
	_, err := ts.ledger.Tokens().Decimals(mockCtx, domain.Address("0xdead"))
	ts.ErrorIs(err, domain.ErrNotFound)

	_, err = ts.ledger.Nfts().OwnerOf(mockCtx, punks, domain.TokenId("404"))
	ts.ErrorIs(err, domain.ErrNotFound)
}
