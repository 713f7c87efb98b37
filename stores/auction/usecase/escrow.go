package usecase

import (
	"math/big"

	bCtx "github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/base/log"
	"github.com/auctionmarket/goapi/domain"
)

// escrow is the custodial holding of one auction: the auctioned token plus
// whatever payment is currently pledged. Each auction instance owns exactly
// one escrow; its ledger identity is the instance's own address. Every
// operation either completes the full transfer or leaves the ledger
// untouched.
type escrow struct {
	account      domain.Address
	nftContract  domain.Address
	tokenId      domain.TokenId
	paymentToken domain.Address

	nfts   domain.NftLedger
	tokens domain.TokenLedger
	native domain.NativeLedger

	holdsNft bool
	funds    *big.Int
}

func newEscrow(
	account domain.Address,
	nftContract domain.Address,
	tokenId domain.TokenId,
	paymentToken domain.Address,
	nfts domain.NftLedger,
	tokens domain.TokenLedger,
	native domain.NativeLedger,
) *escrow {
	return &escrow{
		account:      account.ToLower(),
		nftContract:  nftContract.ToLower(),
		tokenId:      tokenId,
		paymentToken: paymentToken.ToLower(),
		nfts:         nfts,
		tokens:       tokens,
		native:       native,
		funds:        big.NewInt(0),
	}
}

func (e *escrow) isNativePayment() bool {
	return e.paymentToken.IsEmpty()
}

// lockNFT pulls the auctioned token from its current owner into escrow.
// caller is the ledger identity performing the pull (the registry during
// auction creation), which the owner must have approved.
func (e *escrow) lockNFT(c bCtx.Ctx, caller, from domain.Address) error {
	owner, err := e.nfts.OwnerOf(c, e.nftContract, e.tokenId)
	if err != nil {
		c.WithFields(log.Fields{
			"err":      err,
			"contract": e.nftContract,
			"tokenId":  e.tokenId,
		}).Error("nfts.OwnerOf failed")
		return err
	}
	if !owner.Equals(from) {
		return domain.ErrTransferRejected
	}
	if err := e.nfts.TransferFrom(c, e.nftContract, caller, from, e.account, e.tokenId); err != nil {
		return err
	}
	e.holdsNft = true
	return nil
}

// releaseNFT hands the held token to `to`.
func (e *escrow) releaseNFT(c bCtx.Ctx, to domain.Address) error {
	if !e.holdsNft {
		return domain.ErrNothingEscrowed
	}
	if err := e.nfts.TransferFrom(c, e.nftContract, e.account, e.account, to, e.tokenId); err != nil {
		c.WithFields(log.Fields{
			"err":     err,
			"to":      to,
			"tokenId": e.tokenId,
		}).Error("escrow nft release failed")
		return err
	}
	e.holdsNft = false
	return nil
}

// lockFunds takes the bidder's payment into escrow. Native payments must
// arrive as the exact value attached to the call; token payments are pulled
// through the token's transfer-from mechanism.
func (e *escrow) lockFunds(c bCtx.Ctx, payer domain.Address, amount, value *big.Int) error {
	if e.isNativePayment() {
		if value == nil || value.Cmp(amount) != 0 {
			return domain.ErrValueMismatch
		}
		if err := e.native.Transfer(c, payer, e.account, amount); err != nil {
			return err
		}
	} else {
		if value != nil && value.Sign() != 0 {
			return domain.ErrValueMismatch
		}
		if err := e.tokens.TransferFrom(c, e.paymentToken, e.account, payer, e.account, amount); err != nil {
			return err
		}
	}
	e.funds = new(big.Int).Add(e.funds, amount)
	return nil
}

// releaseFunds pays out previously locked funds.
func (e *escrow) releaseFunds(c bCtx.Ctx, to domain.Address, amount *big.Int) error {
	if amount == nil || e.funds.Cmp(amount) < 0 {
		return domain.ErrInsufficientEscrow
	}
	if e.isNativePayment() {
		if err := e.native.Transfer(c, e.account, to, amount); err != nil {
			c.WithFields(log.Fields{"err": err, "to": to}).Error("escrow payout failed")
			return err
		}
	} else {
		if err := e.tokens.Transfer(c, e.paymentToken, e.account, to, amount); err != nil {
			c.WithFields(log.Fields{"err": err, "to": to}).Error("escrow payout failed")
			return err
		}
	}
	e.funds = new(big.Int).Sub(e.funds, amount)
	return nil
}
