package repository

import (
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/base/database/mongoclient"
	"github.com/auctionmarket/goapi/base/log"
	"github.com/auctionmarket/goapi/base/ptr"
	"github.com/auctionmarket/goapi/domain"
	"github.com/auctionmarket/goapi/domain/auction"
	"github.com/auctionmarket/goapi/service/query"
)

// auctionDoc is the persisted shape of an auction record. Fixed-point
// amounts are stored as decimal strings; mongo has no 256-bit integer.
type auctionDoc struct {
	ChainId            domain.ChainId  `bson:"chainId"`
	Address            domain.Address  `bson:"address"`
	Seller             domain.Address  `bson:"seller"`
	NftContract        domain.Address  `bson:"nftContract"`
	TokenId            domain.TokenId  `bson:"tokenId"`
	PaymentToken       domain.Address  `bson:"paymentToken"`
	FeedNative         domain.Address  `bson:"feedNative"`
	FeedPayment        domain.Address  `bson:"feedPayment"`
	StartingPriceUSD   string          `bson:"startingPriceUSD"`
	HighestBidUSD      string          `bson:"highestBidUSD"`
	HighestBidder      *domain.Address `bson:"highestBidder,omitempty"`
	HighestBidEscrowed string          `bson:"highestBidEscrowed"`
	EndTime            time.Time       `bson:"endTime"`
	State              int32           `bson:"state"`
	CreatedAt          time.Time       `bson:"createdAt"`
}

func toDoc(a *auction.Auction) *auctionDoc {
	doc := &auctionDoc{
		ChainId:      a.ChainId,
		Address:      a.Address,
		Seller:       a.Seller,
		NftContract:  a.NftContract,
		TokenId:      a.TokenId,
		PaymentToken: a.PaymentToken,
		FeedNative:   a.FeedNative,
		FeedPayment:  a.FeedPayment,
		EndTime:      a.EndTime,
		State:        int32(a.State),
		CreatedAt:    a.CreatedAt,
	}
	if a.StartingPriceUSD != nil {
		doc.StartingPriceUSD = a.StartingPriceUSD.String()
	}
	if a.HighestBidUSD != nil {
		doc.HighestBidUSD = a.HighestBidUSD.String()
	}
	if a.HighestBidEscrowed != nil {
		doc.HighestBidEscrowed = a.HighestBidEscrowed.String()
	}
	if a.HighestBidder != nil {
		doc.HighestBidder = ptr.Address(*a.HighestBidder)
	}
	return doc
}

func fromDoc(d *auctionDoc) (*auction.Auction, error) {
	a := &auction.Auction{
		ChainId:      d.ChainId,
		Address:      d.Address,
		Seller:       d.Seller,
		NftContract:  d.NftContract,
		TokenId:      d.TokenId,
		PaymentToken: d.PaymentToken,
		FeedNative:   d.FeedNative,
		FeedPayment:  d.FeedPayment,
		EndTime:      d.EndTime,
		State:        auction.State(d.State),
		CreatedAt:    d.CreatedAt,
	}
	var err error
	if a.StartingPriceUSD, err = parseBig(d.StartingPriceUSD); err != nil {
		return nil, err
	}
	if a.HighestBidUSD, err = parseBig(d.HighestBidUSD); err != nil {
		return nil, err
	}
	if a.HighestBidEscrowed, err = parseBig(d.HighestBidEscrowed); err != nil {
		return nil, err
	}
	if d.HighestBidder != nil {
		a.HighestBidder = ptr.Address(*d.HighestBidder)
	}
	return a, nil
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, domain.ErrInvalidNumberFormat
	}
	return v, nil
}

type auctionMongoRepo struct {
	q query.Mongo
}

func NewAuctionRepo(q query.Mongo) auction.Repo {
	return &auctionMongoRepo{q: q}
}

func (r *auctionMongoRepo) Create(c bCtx.Ctx, a *auction.Auction) error {
	if err := r.q.Insert(c, domain.TableAuctions, toDoc(a)); err != nil {
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (r *auctionMongoRepo) Update(c bCtx.Ctx, a *auction.Auction) error {
	selector, err := mongoclient.MakeBsonM(a.ToId())
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}
	if err := r.q.Upsert(c, domain.TableAuctions, selector, toDoc(a)); err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  a.ToId(),
		}).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (r *auctionMongoRepo) FindOne(c bCtx.Ctx, chainId domain.ChainId, addr domain.Address) (*auction.Auction, error) {
	selector, err := mongoclient.MakeBsonM(&auction.Id{ChainId: chainId, Address: addr.ToLower()})
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return nil, err
	}
	doc := &auctionDoc{}
	if err := r.q.FindOne(c, domain.TableAuctions, selector, doc); err != nil {
		if err == query.ErrNotFound {
			return nil, domain.ErrNotFound
		}
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return fromDoc(doc)
}

func (r *auctionMongoRepo) FindAll(c bCtx.Ctx) ([]*auction.Auction, error) {
	docs := []*auctionDoc{}
	if err := r.q.FindAll(c, domain.TableAuctions, bson.M{}, &docs, query.Sort{Field: "createdAt", Asc: true}); err != nil {
		c.WithField("err", err).Error("q.FindAll failed")
		return nil, err
	}
	out := make([]*auction.Auction, 0, len(docs))
	for _, d := range docs {
		a, err := fromDoc(d)
		if err != nil {
			c.WithFields(log.Fields{
				"err":     err,
				"auction": d.Address,
			}).Error("corrupt auction record")
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *auctionMongoRepo) Count(c bCtx.Ctx) (int, error) {
	n, err := r.q.Count(c, domain.TableAuctions, bson.M{})
	if err != nil {
		c.WithField("err", err).Error("q.Count failed")
		return 0, err
	}
	return int(n), nil
}
