package main

import (
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-playground/validator/v10"

	"github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/base/database/mongoclient"
	"github.com/auctionmarket/goapi/base/log"
	"github.com/auctionmarket/goapi/base/usdprice"
	bValidator "github.com/auctionmarket/goapi/base/validator"
	"github.com/auctionmarket/goapi/domain"
	"github.com/auctionmarket/goapi/domain/auction"
	mmiddleware "github.com/auctionmarket/goapi/middleware"
	"github.com/auctionmarket/goapi/service/chain"
	"github.com/auctionmarket/goapi/service/ledger"
	"github.com/auctionmarket/goapi/service/pricefeed"
	"github.com/auctionmarket/goapi/service/query"
	auction_delivery "github.com/auctionmarket/goapi/stores/auction/delivery/http"
	auction_repository "github.com/auctionmarket/goapi/stores/auction/repository"
	auction_usecase "github.com/auctionmarket/goapi/stores/auction/usecase"
)

func init() {
	pflag.StringP("config", "c", "infra/configs/config.yaml", "config file path")
	pflag.Parse()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		panic(err)
	}

	viper.SetConfigType("yaml")
	viper.SetConfigFile(viper.GetString("config"))
	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	// init echo
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	context := ctx.Background()

	chainId := domain.ChainId(viper.GetInt32("engine.chainId"))
	registryAddr := domain.Address(viper.GetString("engine.registryAddress"))

	// auction record mirror: mongo when configured, in-memory otherwise
	var repo auction.Repo
	if viper.GetBool("mongo.enabled") {
		context.Info("init mongo")
		mongoClient := mongoclient.MustConnectMongoClient(viper.GetString("mongo.uri"), viper.GetString("mongo.dbName"))
		repo = auction_repository.NewAuctionRepo(query.New(mongoClient))
	} else {
		repo = auction_repository.NewMemoryAuctionRepo()
	}

	// price source: chainlink aggregators over rpc, or static rates from
	// config for local runs
	var feeds domain.PriceFeed
	if viper.GetString("pricefeed.mode") == "chainlink" {
		context.Info("init chain client")
		rpcUrls := map[int32]string{}
		for k, v := range viper.GetStringMapString("chain.rpcUrls") {
			id, err := strconv.ParseInt(k, 10, 32)
			if err != nil {
				log.Log().WithFields(log.Fields{"chainId": k, "err": err}).Panic("invalid chain id")
			}
			rpcUrls[int32(id)] = v
		}
		chainClient, err := chain.NewClient(context, &chain.ClientCfg{RpcUrls: rpcUrls})
		if err != nil {
			log.Log().WithField("err", err).Warn("some rpc endpoints unavailable")
		}
		feeds = pricefeed.New(chainId, chainClient)
	} else {
		static := pricefeed.NewStatic()
		now := time.Now()
		for feed, rate := range viper.GetStringMapString("pricefeed.rates") {
			v, err := usdprice.ParseUsd(rate)
			if err != nil {
				log.Log().WithFields(log.Fields{"feed": feed, "rate": rate}).Panic("invalid feed rate")
			}
			static.SetRate(domain.Address(feed), v, now)
		}
		feeds = static
	}

	// the in-process host ledger the engine settles against, seeded from
	// config
	hostLedger := ledger.New()
	for _, addr := range viper.GetStringSlice("ledger.collections") {
		hostLedger.RegisterCollection(domain.Address(addr))
	}
	for addr, dec := range viper.GetStringMapString("ledger.tokens") {
		d, err := strconv.ParseInt(dec, 10, 32)
		if err != nil {
			log.Log().WithFields(log.Fields{"token": addr, "decimals": dec}).Panic("invalid token decimals")
		}
		hostLedger.RegisterToken(domain.Address(addr), int32(d))
	}
	for owner, amount := range viper.GetStringMapString("ledger.balances") {
		v, err := usdprice.ParseUsd(amount)
		if err != nil {
			log.Log().WithFields(log.Fields{"owner": owner, "amount": amount}).Panic("invalid native balance")
		}
		hostLedger.MintNative(domain.Address(owner), v)
	}
	// seed mints are pre-approved to the registry so local auctions can be
	// created straight away
	for _, seed := range viper.GetStringSlice("ledger.nfts") {
		parts := strings.Split(seed, ":")
		if len(parts) != 3 {
			log.Log().WithField("seed", seed).Panic("nft seed must be collection:tokenId:owner")
		}
		collection := domain.Address(parts[0])
		tokenId := domain.TokenId(parts[1])
		owner := domain.Address(parts[2])
		if err := hostLedger.MintNft(collection, owner, tokenId); err != nil {
			log.Log().WithFields(log.Fields{"seed": seed, "err": err}).Panic("nft seed failed")
		}
		if err := hostLedger.Nfts().Approve(context, collection, owner, registryAddr, tokenId); err != nil {
			log.Log().WithFields(log.Fields{"seed": seed, "err": err}).Panic("nft seed approval failed")
		}
	}

	reg, err := auction_usecase.NewRegistry(context, &auction_usecase.RegistryCfg{
		ChainId: chainId,
		Address: registryAddr,
		Nfts:    hostLedger.Nfts(),
		Tokens:  hostLedger.Tokens(),
		Native:  hostLedger.Native(),
		Feeds:   feeds,
		Repo:    repo,
	})
	if err != nil {
		log.Log().WithField("err", err).Panic("failed to init auction registry")
	}

	auction_delivery.New(e, reg)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"healthy": "ok",
		})
	})

	go func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	shutdownCtx, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
}
