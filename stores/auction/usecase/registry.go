package usecase

import (
	"encoding/binary"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	bCtx "github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/base/log"
	"github.com/auctionmarket/goapi/domain"
	"github.com/auctionmarket/goapi/domain/auction"
)

type RegistryCfg struct {
	ChainId domain.ChainId
	// Address is the registry's own ledger identity. Sellers approve it so
	// it can pull the auctioned token into escrow during creation.
	Address domain.Address
	Nfts    domain.NftLedger
	Tokens  domain.TokenLedger
	Native  domain.NativeLedger
	Feeds   domain.PriceFeed
	Repo    auction.Repo
}

type registry struct {
	cfg *RegistryCfg

	mu        sync.Mutex
	index     []domain.Address
	instances map[domain.Address]*instance
	nonce     uint64
}

// NewRegistry builds the auction factory, rehydrating every previously
// created auction from the repository so the index survives restarts.
func NewRegistry(c bCtx.Ctx, cfg *RegistryCfg) (auction.Registry, error) {
	r := &registry{
		cfg:       cfg,
		instances: make(map[domain.Address]*instance),
	}
	if cfg.Repo != nil {
		records, err := cfg.Repo.FindAll(c)
		if err != nil {
			c.WithField("err", err).Error("repo.FindAll failed")
			return nil, err
		}
		for _, rec := range records {
			r.index = append(r.index, rec.Address)
			r.instances[rec.Address.ToLower()] = r.rehydrate(rec)
		}
		r.nonce = uint64(len(records))
	}
	return r, nil
}

func (r *registry) CreateAuction(c bCtx.Ctx, params *auction.CreateParams) (auction.Instance, error) {
	if params == nil ||
		params.Duration <= 0 ||
		params.StartingPriceUSD == nil || params.StartingPriceUSD.Sign() <= 0 ||
		params.Seller.IsEmpty() || params.NftContract.IsEmpty() {
		return nil, domain.ErrBadParamInput
	}
	// token ids are uint256 on the asset boundary
	if _, err := params.TokenId.ToBigInt(); err != nil {
		return nil, domain.ErrBadParamInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	owner, err := r.cfg.Nfts.OwnerOf(c, params.NftContract, params.TokenId)
	if err != nil {
		c.WithFields(log.Fields{
			"err":      err,
			"contract": params.NftContract,
			"tokenId":  params.TokenId,
		}).Error("nfts.OwnerOf failed")
		return nil, err
	}
	if !owner.Equals(params.Seller) {
		return nil, domain.ErrNotOwner
	}

	addr := deriveAddress(r.cfg.Address, r.nonce, params.NftContract, params.TokenId)
	now := timeNow().UTC()
	rec := &auction.Auction{
		ChainId:          params.ChainId,
		Address:          addr,
		Seller:           params.Seller.ToLower(),
		NftContract:      params.NftContract.ToLower(),
		TokenId:          params.TokenId,
		PaymentToken:     params.PaymentToken.ToLower(),
		FeedNative:       params.FeedNative.ToLower(),
		FeedPayment:      params.FeedPayment.ToLower(),
		StartingPriceUSD: params.StartingPriceUSD,
		EndTime:          now.Add(params.Duration),
		State:            auction.StateOpen,
		CreatedAt:        now,
	}

	in := &instance{
		record: rec,
		escrow: newEscrow(addr, rec.NftContract, rec.TokenId, rec.PaymentToken,
			r.cfg.Nfts, r.cfg.Tokens, r.cfg.Native),
		feeds:  r.cfg.Feeds,
		tokens: r.cfg.Tokens,
		repo:   r.cfg.Repo,
	}

	// creation bundles the asset transfer into escrow: no escrowed token,
	// no auction
	if err := in.escrow.lockNFT(c, r.cfg.Address, rec.Seller); err != nil {
		return nil, err
	}

	r.nonce++
	r.index = append(r.index, addr)
	r.instances[addr.ToLower()] = in

	if r.cfg.Repo != nil {
		if err := r.cfg.Repo.Create(c, rec.Clone()); err != nil {
			c.WithFields(log.Fields{
				"err":     err,
				"auction": addr,
			}).Error("repo.Create failed")
		}
	}

	c.WithFields(log.Fields{
		"auction": addr,
		"seller":  rec.Seller,
		"tokenId": rec.TokenId,
	}).Info("auction created")
	return in, nil
}

func (r *registry) Get(c bCtx.Ctx, addr domain.Address) (auction.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.instances[addr.ToLower()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return in, nil
}

// GetAllAuctions returns every auction ever created, insertion order
// preserved. The index is append-only; terminal auctions remain queryable
// history.
func (r *registry) GetAllAuctions(c bCtx.Ctx) []domain.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Address, len(r.index))
	copy(out, r.index)
	return out
}

func (r *registry) GetAuctionsCount(c bCtx.Ctx) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.index)
}

// rehydrate rebuilds a live instance from a persisted record. An open
// auction's escrow still holds the token and the leader's funds.
func (r *registry) rehydrate(rec *auction.Auction) *instance {
	esc := newEscrow(rec.Address, rec.NftContract, rec.TokenId, rec.PaymentToken,
		r.cfg.Nfts, r.cfg.Tokens, r.cfg.Native)
	if rec.State == auction.StateOpen {
		esc.holdsNft = true
		if rec.HasBid() && rec.HighestBidEscrowed != nil {
			esc.funds.Set(rec.HighestBidEscrowed)
		}
	}
	return &instance{
		record: rec,
		escrow: esc,
		feeds:  r.cfg.Feeds,
		tokens: r.cfg.Tokens,
		repo:   r.cfg.Repo,
	}
}

func deriveAddress(factory domain.Address, nonce uint64, nft domain.Address, tokenId domain.TokenId) domain.Address {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	h := crypto.Keccak256(
		[]byte(factory.ToLowerStr()),
		buf[:],
		[]byte(nft.ToLowerStr()),
		[]byte(tokenId),
	)
	return domain.Address(strings.ToLower(common.BytesToAddress(h).Hex()))
}
