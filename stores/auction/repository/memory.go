package repository

import (
	"sync"

	bCtx "github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/domain"
	"github.com/auctionmarket/goapi/domain/auction"
)

// auctionMemoryRepo keeps records in creation order. It backs local
// deployments that run without mongo, and the engine test suites.
type auctionMemoryRepo struct {
	mu     sync.Mutex
	order  []*auction.Auction
	byAddr map[domain.Address]int
}

func NewMemoryAuctionRepo() auction.Repo {
	return &auctionMemoryRepo{
		byAddr: make(map[domain.Address]int),
	}
}

func (r *auctionMemoryRepo) Create(c bCtx.Ctx, a *auction.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byAddr[a.Address.ToLower()]; ok {
		return domain.ErrConflict
	}
	r.byAddr[a.Address.ToLower()] = len(r.order)
	r.order = append(r.order, a.Clone())
	return nil
}

func (r *auctionMemoryRepo) Update(c bCtx.Ctx, a *auction.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byAddr[a.Address.ToLower()]
	if !ok {
		// upsert semantics, same as the mongo repo
		r.byAddr[a.Address.ToLower()] = len(r.order)
		r.order = append(r.order, a.Clone())
		return nil
	}
	r.order[idx] = a.Clone()
	return nil
}

func (r *auctionMemoryRepo) FindOne(c bCtx.Ctx, chainId domain.ChainId, addr domain.Address) (*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byAddr[addr.ToLower()]
	if !ok || r.order[idx].ChainId != chainId {
		return nil, domain.ErrNotFound
	}
	return r.order[idx].Clone(), nil
}

func (r *auctionMemoryRepo) FindAll(c bCtx.Ctx) ([]*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*auction.Auction, 0, len(r.order))
	for _, a := range r.order {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (r *auctionMemoryRepo) Count(c bCtx.Ctx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order), nil
}
