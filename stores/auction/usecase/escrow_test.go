package usecase

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/auctionmarket/goapi/domain"
	"github.com/auctionmarket/goapi/service/ledger"
)

const escrowAcc = domain.Address("0x00000000000000000000000000000000000000ee")

type escrowSuite struct {
	suite.Suite
	ledger *ledger.Ledger
}

func TestEscrow(t *testing.T) {
	suite.Run(t, new(escrowSuite))
}

func (t *escrowSuite) SetupTest() {
	t.ledger = ledger.New()
	t.ledger.RegisterCollection(punks)
	t.ledger.RegisterToken(usdc, 6)
	t.Require().NoError(t.ledger.MintNft(punks, seller, punkId))
	t.ledger.MintNative(bidder1, usd(10))
	t.Require().NoError(t.ledger.MintToken(usdc, bidder1, big.NewInt(500_000_000)))
}

func (t *escrowSuite) newEscrow(paymentToken domain.Address) *escrow {
	return newEscrow(escrowAcc, punks, punkId, paymentToken,
		t.ledger.Nfts(), t.ledger.Tokens(), t.ledger.Native())
}

func (t *escrowSuite) TestLockNFT() {
	esc := t.newEscrow(domain.EmptyAddress)

	// wrong owner
	t.Equal(domain.ErrTransferRejected, esc.lockNFT(mockCtx, registryAcc, bidder1))

	// owner matches but the caller was never approved
	t.Equal(domain.ErrTransferRejected, esc.lockNFT(mockCtx, registryAcc, seller))
	t.False(esc.holdsNft)

	t.Require().NoError(t.ledger.Nfts().Approve(mockCtx, punks, seller, registryAcc, punkId))
	t.NoError(esc.lockNFT(mockCtx, registryAcc, seller))
	t.True(esc.holdsNft)

	owner, err := t.ledger.Nfts().OwnerOf(mockCtx, punks, punkId)
	t.NoError(err)
	t.Equal(escrowAcc, owner)
}

func (t *escrowSuite) TestReleaseNFT() {
	esc := t.newEscrow(domain.EmptyAddress)
	t.Equal(domain.ErrNothingEscrowed, esc.releaseNFT(mockCtx, bidder1))

	t.Require().NoError(t.ledger.Nfts().Approve(mockCtx, punks, seller, registryAcc, punkId))
	t.Require().NoError(esc.lockNFT(mockCtx, registryAcc, seller))

	t.NoError(esc.releaseNFT(mockCtx, bidder1))
	t.False(esc.holdsNft)
	owner, err := t.ledger.Nfts().OwnerOf(mockCtx, punks, punkId)
	t.NoError(err)
	t.Equal(bidder1, owner)

	t.Equal(domain.ErrNothingEscrowed, esc.releaseNFT(mockCtx, bidder1))
}

func (t *escrowSuite) TestNativeFunds() {
	esc := t.newEscrow(domain.EmptyAddress)
	amount := usd(2)

	t.Equal(domain.ErrValueMismatch, esc.lockFunds(mockCtx, bidder1, amount, nil))
	t.Equal(domain.ErrValueMismatch, esc.lockFunds(mockCtx, bidder1, amount, big.NewInt(1)))
	t.Equal(big.NewInt(0), esc.funds)

	t.NoError(esc.lockFunds(mockCtx, bidder1, amount, amount))
	t.Equal(amount, esc.funds)
	held, err := t.ledger.Native().BalanceOf(mockCtx, escrowAcc)
	t.NoError(err)
	t.Equal(amount, held)

	// cannot pay out more than is held
	t.Equal(domain.ErrInsufficientEscrow, esc.releaseFunds(mockCtx, seller, usd(3)))
	t.Equal(domain.ErrInsufficientEscrow, esc.releaseFunds(mockCtx, seller, nil))

	t.NoError(esc.releaseFunds(mockCtx, seller, amount))
	t.Equal(big.NewInt(0), esc.funds)
	got, err := t.ledger.Native().BalanceOf(mockCtx, seller)
	t.NoError(err)
	t.Equal(amount, got)
}

func (t *escrowSuite) TestTokenFunds() {
	esc := t.newEscrow(usdc)
	amount := big.NewInt(120_000_000)

	// token escrow rejects attached native value
	t.Equal(domain.ErrValueMismatch, esc.lockFunds(mockCtx, bidder1, amount, big.NewInt(1)))

	// no allowance yet
	t.Equal(domain.ErrTransferRejected, esc.lockFunds(mockCtx, bidder1, amount, nil))

	t.Require().NoError(t.ledger.Tokens().Approve(mockCtx, usdc, bidder1, escrowAcc, amount))
	t.NoError(esc.lockFunds(mockCtx, bidder1, amount, nil))
	held, err := t.ledger.Tokens().BalanceOf(mockCtx, usdc, escrowAcc)
	t.NoError(err)
	t.Equal(amount, held)

	t.NoError(esc.releaseFunds(mockCtx, seller, amount))
	got, err := t.ledger.Tokens().BalanceOf(mockCtx, usdc, seller)
	t.NoError(err)
	t.Equal(amount, got)
	t.Equal(big.NewInt(0), esc.funds)
}
