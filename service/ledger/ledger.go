package ledger

import (
	"math/big"
	"sync"

	"github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/domain"
)

// Ledger is an in-process implementation of the host-ledger boundaries the
// auction engine settles against: a native-currency bank, fungible tokens
// and non-fungible collections. Every operation executes under one lock, so
// callers observe the same total order a serialized-execution ledger would
// give them. It backs local deployments and the engine test suites; a real
// deployment points the engine at the settlement layer instead.
type Ledger struct {
	mu     sync.Mutex
	native map[domain.Address]*big.Int
	tokens map[domain.Address]*token
	nfts   map[domain.Address]*collection
}

type token struct {
	decimals   int32
	balances   map[domain.Address]*big.Int
	allowances map[domain.Address]map[domain.Address]*big.Int
}

type collection struct {
	owners   map[domain.TokenId]domain.Address
	approved map[domain.TokenId]domain.Address
}

func New() *Ledger {
	return &Ledger{
		native: make(map[domain.Address]*big.Int),
		tokens: make(map[domain.Address]*token),
		nfts:   make(map[domain.Address]*collection),
	}
}

// RegisterToken creates an empty fungible token with the given decimals.
func (l *Ledger) RegisterToken(addr domain.Address, decimals int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[addr.ToLower()] = &token{
		decimals:   decimals,
		balances:   make(map[domain.Address]*big.Int),
		allowances: make(map[domain.Address]map[domain.Address]*big.Int),
	}
}

// RegisterCollection creates an empty non-fungible collection.
func (l *Ledger) RegisterCollection(addr domain.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nfts[addr.ToLower()] = &collection{
		owners:   make(map[domain.TokenId]domain.Address),
		approved: make(map[domain.TokenId]domain.Address),
	}
}

// MintNative credits the native balance of owner.
func (l *Ledger) MintNative(owner domain.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.nativeBalance(owner)
	l.native[owner.ToLower()] = new(big.Int).Add(cur, amount)
}

// MintToken credits owner with amount of the fungible token.
func (l *Ledger) MintToken(tokenAddr, owner domain.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr.ToLower()]
	if !ok {
		return domain.ErrNotFound
	}
	cur := balance(t.balances, owner)
	t.balances[owner.ToLower()] = new(big.Int).Add(cur, amount)
	return nil
}

// MintNft assigns a fresh tokenId to owner.
func (l *Ledger) MintNft(contract, owner domain.Address, tokenId domain.TokenId) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	col, ok := l.nfts[contract.ToLower()]
	if !ok {
		return domain.ErrNotFound
	}
	if _, exists := col.owners[tokenId]; exists {
		return domain.ErrConflict
	}
	col.owners[tokenId] = owner.ToLower()
	return nil
}

func (l *Ledger) nativeBalance(owner domain.Address) *big.Int {
	if b, ok := l.native[owner.ToLower()]; ok {
		return b
	}
	return domain.Big0
}

func balance(m map[domain.Address]*big.Int, owner domain.Address) *big.Int {
	if b, ok := m[owner.ToLower()]; ok {
		return b
	}
	return domain.Big0
}

// NativeLedger

func (l *Ledger) BalanceOf(c ctx.Ctx, owner domain.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.nativeBalance(owner)), nil
}

func (l *Ledger) Transfer(c ctx.Ctx, from, to domain.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrTransferRejected
	}
	fromBal := l.nativeBalance(from)
	if fromBal.Cmp(amount) < 0 {
		return domain.ErrTransferRejected
	}
	l.native[from.ToLower()] = new(big.Int).Sub(fromBal, amount)
	l.native[to.ToLower()] = new(big.Int).Add(l.nativeBalance(to), amount)
	return nil
}

// nativeOnly / tokenOnly adapters let one Ledger satisfy several domain
// interfaces without the method sets colliding at the call site.

func (l *Ledger) Native() domain.NativeLedger { return l }
func (l *Ledger) Tokens() domain.TokenLedger  { return (*tokenLedger)(l) }
func (l *Ledger) Nfts() domain.NftLedger      { return (*nftLedger)(l) }

type tokenLedger Ledger

func (l *tokenLedger) Decimals(c ctx.Ctx, tokenAddr domain.Address) (int32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr.ToLower()]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return t.decimals, nil
}

func (l *tokenLedger) BalanceOf(c ctx.Ctx, tokenAddr, owner domain.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr.ToLower()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return new(big.Int).Set(balance(t.balances, owner)), nil
}

func (l *tokenLedger) Allowance(c ctx.Ctx, tokenAddr, owner, spender domain.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr.ToLower()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if granted, ok := t.allowances[owner.ToLower()]; ok {
		return new(big.Int).Set(balance(granted, spender)), nil
	}
	return big.NewInt(0), nil
}

func (l *tokenLedger) Approve(c ctx.Ctx, tokenAddr, caller, spender domain.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr.ToLower()]
	if !ok {
		return domain.ErrNotFound
	}
	granted, ok := t.allowances[caller.ToLower()]
	if !ok {
		granted = make(map[domain.Address]*big.Int)
		t.allowances[caller.ToLower()] = granted
	}
	granted[spender.ToLower()] = new(big.Int).Set(amount)
	return nil
}

func (l *tokenLedger) Transfer(c ctx.Ctx, tokenAddr, caller, to domain.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr.ToLower()]
	if !ok {
		return domain.ErrNotFound
	}
	return move(t, caller, to, amount)
}

func (l *tokenLedger) TransferFrom(c ctx.Ctx, tokenAddr, caller, from, to domain.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr.ToLower()]
	if !ok {
		return domain.ErrNotFound
	}
	if !caller.Equals(from) {
		granted, ok := t.allowances[from.ToLower()]
		if !ok {
			return domain.ErrTransferRejected
		}
		allowance := balance(granted, caller)
		if allowance.Cmp(amount) < 0 {
			return domain.ErrTransferRejected
		}
		if err := move(t, from, to, amount); err != nil {
			return err
		}
		granted[caller.ToLower()] = new(big.Int).Sub(allowance, amount)
		return nil
	}
	return move(t, from, to, amount)
}

func move(t *token, from, to domain.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrTransferRejected
	}
	fromBal := balance(t.balances, from)
	if fromBal.Cmp(amount) < 0 {
		return domain.ErrTransferRejected
	}
	t.balances[from.ToLower()] = new(big.Int).Sub(fromBal, amount)
	t.balances[to.ToLower()] = new(big.Int).Add(balance(t.balances, to), amount)
	return nil
}

type nftLedger Ledger

func (l *nftLedger) OwnerOf(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId) (domain.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	col, ok := l.nfts[contract.ToLower()]
	if !ok {
		return "", domain.ErrNotFound
	}
	owner, ok := col.owners[tokenId]
	if !ok {
		return "", domain.ErrNotFound
	}
	return owner, nil
}

func (l *nftLedger) GetApproved(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId) (domain.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	col, ok := l.nfts[contract.ToLower()]
	if !ok {
		return "", domain.ErrNotFound
	}
	if _, ok := col.owners[tokenId]; !ok {
		return "", domain.ErrNotFound
	}
	return col.approved[tokenId], nil
}

func (l *nftLedger) Approve(c ctx.Ctx, contract domain.Address, caller, operator domain.Address, tokenId domain.TokenId) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	col, ok := l.nfts[contract.ToLower()]
	if !ok {
		return domain.ErrNotFound
	}
	owner, ok := col.owners[tokenId]
	if !ok {
		return domain.ErrNotFound
	}
	if !owner.Equals(caller) {
		return domain.ErrUnauthorized
	}
	col.approved[tokenId] = operator.ToLower()
	return nil
}

func (l *nftLedger) TransferFrom(c ctx.Ctx, contract domain.Address, caller, from, to domain.Address, tokenId domain.TokenId) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	col, ok := l.nfts[contract.ToLower()]
	if !ok {
		return domain.ErrNotFound
	}
	owner, ok := col.owners[tokenId]
	if !ok {
		return domain.ErrNotFound
	}
	if !owner.Equals(from) {
		return domain.ErrTransferRejected
	}
	if !caller.Equals(owner) && !caller.Equals(col.approved[tokenId]) {
		return domain.ErrTransferRejected
	}
	col.owners[tokenId] = to.ToLower()
	delete(col.approved, tokenId)
	return nil
}

func (l *nftLedger) TokensOf(c ctx.Ctx, contract domain.Address, owner domain.Address) ([]domain.TokenId, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	col, ok := l.nfts[contract.ToLower()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var ids []domain.TokenId
	for id, o := range col.owners {
		if o.Equals(owner) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
