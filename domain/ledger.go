package domain

import (
	"math/big"

	"github.com/auctionmarket/goapi/base/ctx"
)

// NftLedger is the unique-asset ownership boundary. It mirrors the standard
// transfer/approval surface of an ERC721-style registry and is consumed, not
// reimplemented, by the auction engine.
type NftLedger interface {
	OwnerOf(c ctx.Ctx, contract Address, tokenId TokenId) (Address, error)
	GetApproved(c ctx.Ctx, contract Address, tokenId TokenId) (Address, error)
	// Approve lets caller (the current owner) authorize operator for one token.
	Approve(c ctx.Ctx, contract Address, caller, operator Address, tokenId TokenId) error
	// TransferFrom moves tokenId from `from` to `to`. The ledger rejects the
	// call unless caller is the owner or the approved operator.
	TransferFrom(c ctx.Ctx, contract Address, caller, from, to Address, tokenId TokenId) error
	TokensOf(c ctx.Ctx, contract Address, owner Address) ([]TokenId, error)
}

// TokenLedger is the fungible-token boundary (ERC20-style
// transfer/transferFrom/approve/allowance set).
type TokenLedger interface {
	Decimals(c ctx.Ctx, token Address) (int32, error)
	BalanceOf(c ctx.Ctx, token Address, owner Address) (*big.Int, error)
	Allowance(c ctx.Ctx, token Address, owner, spender Address) (*big.Int, error)
	Approve(c ctx.Ctx, token Address, caller, spender Address, amount *big.Int) error
	// Transfer moves caller's own balance.
	Transfer(c ctx.Ctx, token Address, caller, to Address, amount *big.Int) error
	// TransferFrom spends caller's allowance granted by `from`.
	TransferFrom(c ctx.Ctx, token Address, caller, from, to Address, amount *big.Int) error
}

// NativeLedger is the native-currency balance boundary. A transfer here
// models value moved together with a call on the settlement layer.
type NativeLedger interface {
	BalanceOf(c ctx.Ctx, owner Address) (*big.Int, error)
	Transfer(c ctx.Ctx, from, to Address, amount *big.Int) error
}
