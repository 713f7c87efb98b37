package pricefeed

import (
	"math/big"
	"sync"
	"time"

	bCtx "github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/domain"
)

// Static is a deterministic in-process price source. Local deployments seed
// it from config; tests drive rate movement through SetRate between bids.
type Static struct {
	mu    sync.RWMutex
	rates map[domain.Address]staticRound
}

type staticRound struct {
	rate      *big.Int
	updatedAt time.Time
}

func NewStatic() *Static {
	return &Static{
		rates: make(map[domain.Address]staticRound),
	}
}

// SetRate pins the 1e18-scaled USD rate of one feed.
func (s *Static) SetRate(feed domain.Address, rate *big.Int, updatedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[feed.ToLower()] = staticRound{
		rate:      new(big.Int).Set(rate),
		updatedAt: updatedAt,
	}
}

func (s *Static) GetRate(c bCtx.Ctx, feed domain.Address) (*big.Int, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	round, ok := s.rates[feed.ToLower()]
	if !ok {
		return nil, time.Time{}, domain.ErrStaleOrInvalidPrice
	}
	if round.rate.Sign() <= 0 || round.updatedAt.IsZero() {
		return nil, time.Time{}, domain.ErrStaleOrInvalidPrice
	}
	return new(big.Int).Set(round.rate), round.updatedAt, nil
}
