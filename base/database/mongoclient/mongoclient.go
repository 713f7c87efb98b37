package mongoclient

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/auctionmarket/goapi/base/log"
)

const mgSocketTimeout = 60 * time.Second

// Client wraps mongo.Client
type Client struct {
	DbName string
	*mongo.Client
}

// MustConnectMongoClient returns a connected client or panics.
func MustConnectMongoClient(uri, dbName string) *Client {
	cli, err := ConnectMongoClient(uri, dbName)
	if err != nil {
		log.Log().WithFields(log.Fields{"mongoURI": uri, "err": err}).Panic("fail to dial Mongo")
	}
	return cli
}

// ConnectMongoClient returns mongo driver client
func ConnectMongoClient(uri, dbName string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOpts := options.Client()
	clientOpts.ApplyURI(uri)
	clientOpts.SetSocketTimeout(mgSocketTimeout)

	cli, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		log.Log().WithFields(log.Fields{"mongoURI": uri, "err": err}).Error("mongo.Connect failed")
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		log.Log().WithFields(log.Fields{"mongoURI": uri, "err": err}).Error("mongo ping failed")
		return nil, err
	}
	return &Client{DbName: dbName, Client: cli}, nil
}

// MakeBsonM marshals a struct into the bson.M form the query service takes
// as a selector.
func MakeBsonM(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := bson.M{}
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
