package query

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bCtx "github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/base/database/mongoclient"
	"github.com/auctionmarket/goapi/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

const queryMaxTime = 20 * time.Second

// Sort orders a FindAll by one field.
type Sort struct {
	Field string
	Asc   bool
}

// Mongo is the narrow query surface repositories build on.
type Mongo interface {
	Insert(c bCtx.Ctx, table domain.Table, insert interface{}) error
	FindOne(c bCtx.Ctx, table domain.Table, selector bson.M, result interface{}) error
	FindAll(c bCtx.Ctx, table domain.Table, selector bson.M, results interface{}, sorts ...Sort) error
	Upsert(c bCtx.Ctx, table domain.Table, selector bson.M, update interface{}) error
	Count(c bCtx.Ctx, table domain.Table, selector bson.M) (int64, error)
}

type impl struct {
	client *mongoclient.Client
}

// New initializes an impl
func New(client *mongoclient.Client) Mongo {
	return &impl{client: client}
}

func (im *impl) collection(table domain.Table) *mongo.Collection {
	return im.client.Database(im.client.DbName).Collection(string(table))
}

func (im *impl) Insert(c bCtx.Ctx, table domain.Table, insert interface{}) error {
	if _, err := im.collection(table).InsertOne(c, insert); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		c.WithField("err", err).Error("Insert: InsertOne failed")
		return err
	}
	return nil
}

func (im *impl) FindOne(c bCtx.Ctx, table domain.Table, selector bson.M, result interface{}) error {
	opts := options.FindOne().SetMaxTime(queryMaxTime)
	if err := im.collection(table).FindOne(c, selector, opts).Decode(result); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrNotFound
		}
		c.WithField("err", err).Error("FindOne: Decode failed")
		return err
	}
	return nil
}

func (im *impl) FindAll(c bCtx.Ctx, table domain.Table, selector bson.M, results interface{}, sorts ...Sort) error {
	opts := options.Find().SetMaxTime(queryMaxTime)
	if len(sorts) > 0 {
		sort := bson.D{}
		for _, s := range sorts {
			dir := -1
			if s.Asc {
				dir = 1
			}
			sort = append(sort, bson.E{Key: s.Field, Value: dir})
		}
		opts.SetSort(sort)
	}
	cur, err := im.collection(table).Find(c, selector, opts)
	if err != nil {
		c.WithField("err", err).Error("FindAll: Find failed")
		return err
	}
	defer cur.Close(c)
	if err := cur.All(c, results); err != nil {
		c.WithField("err", err).Error("FindAll: cursor.All failed")
		return err
	}
	return nil
}

func (im *impl) Upsert(c bCtx.Ctx, table domain.Table, selector bson.M, update interface{}) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := im.collection(table).ReplaceOne(c, selector, update, opts); err != nil {
		c.WithField("err", err).Error("Upsert: ReplaceOne failed")
		return err
	}
	return nil
}

func (im *impl) Count(c bCtx.Ctx, table domain.Table, selector bson.M) (int64, error) {
	n, err := im.collection(table).CountDocuments(c, selector)
	if err != nil {
		c.WithField("err", err).Error("Count: CountDocuments failed")
		return 0, err
	}
	return n, nil
}
