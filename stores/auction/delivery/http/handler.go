package http

import (
	"math/big"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/auctionmarket/goapi/base/ctx"
	"github.com/auctionmarket/goapi/base/delivery"
	"github.com/auctionmarket/goapi/base/usdprice"
	"github.com/auctionmarket/goapi/domain"
	"github.com/auctionmarket/goapi/domain/auction"
	"github.com/auctionmarket/goapi/middleware"
)

type handler struct {
	reg auction.Registry
}

// New registers the auction endpoints.
func New(e *echo.Echo, reg auction.Registry) {
	h := &handler{reg}

	gs := e.Group("/auctions")
	gs.GET("", h.list)
	gs.GET("/count", h.count)
	gs.POST("", h.create)

	g := e.Group("/auction/:address", middleware.IsValidAddress("address"))
	g.GET("", h.info)
	g.POST("/bid", h.bid)
	g.POST("/end", h.end)
	g.POST("/cancel", h.cancel)
}

func (h *handler) list(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	addrs := h.reg.GetAllAuctions(context)
	infos := make([]*auction.Info, 0, len(addrs))
	for _, addr := range addrs {
		in, err := h.reg.Get(context, addr)
		if err != nil {
			return delivery.MakeJsonResp(c, delivery.ErrorStatus(err), err)
		}
		infos = append(infos, in.Info(context))
	}
	return delivery.MakeJsonResp(c, http.StatusOK, infos)
}

func (h *handler) count(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	res := struct {
		Count int `json:"count"`
	}{h.reg.GetAuctionsCount(context)}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) create(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)

	p := &struct {
		ChainId          int32  `json:"chainId"`
		Seller           string `json:"seller" validate:"required"`
		NftContract      string `json:"nftContract" validate:"required"`
		TokenId          string `json:"tokenId" validate:"required"`
		PaymentToken     string `json:"paymentToken"`
		FeedNative       string `json:"feedNative"`
		FeedPayment      string `json:"feedPayment"`
		StartingPriceUSD string `json:"startingPriceUSD" validate:"required"`
		DurationSeconds  int64  `json:"durationSeconds" validate:"required,gt=0"`
	}{}

	if err := c.Bind(p); err != nil {
		context.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	price, err := usdprice.ParseUsd(p.StartingPriceUSD)
	if err != nil {
		return delivery.MakeJsonResp(c, delivery.ErrorStatus(err), err)
	}

	in, err := h.reg.CreateAuction(context, &auction.CreateParams{
		ChainId:          domain.ChainId(p.ChainId),
		Seller:           domain.Address(p.Seller),
		NftContract:      domain.Address(p.NftContract),
		TokenId:          domain.TokenId(p.TokenId),
		PaymentToken:     domain.Address(p.PaymentToken),
		FeedNative:       domain.Address(p.FeedNative),
		FeedPayment:      domain.Address(p.FeedPayment),
		StartingPriceUSD: price,
		Duration:         time.Duration(p.DurationSeconds) * time.Second,
	})
	if err != nil {
		context.WithField("err", err).Error("reg.CreateAuction failed")
		return delivery.MakeJsonResp(c, delivery.ErrorStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, in.Info(context))
}

func (h *handler) info(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	in, err := h.reg.Get(context, domain.Address(c.Param("address")))
	if err != nil {
		return delivery.MakeJsonResp(c, delivery.ErrorStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, in.Info(context))
}

func (h *handler) bid(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)

	p := &struct {
		Bidder    string `json:"bidder" validate:"required"`
		AmountUSD string `json:"amountUSD" validate:"required"`
		// Value is the payment attached to a native-currency bid, in
		// asset base units. Token bids omit it.
		Value string `json:"value"`
	}{}

	if err := c.Bind(p); err != nil {
		context.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	amount, err := usdprice.ParseUsd(p.AmountUSD)
	if err != nil {
		return delivery.MakeJsonResp(c, delivery.ErrorStatus(err), err)
	}
	var value *big.Int
	if p.Value != "" {
		v, ok := new(big.Int).SetString(p.Value, 10)
		if !ok {
			return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrInvalidNumberFormat)
		}
		value = v
	}

	in, err := h.reg.Get(context, domain.Address(c.Param("address")))
	if err != nil {
		return delivery.MakeJsonResp(c, delivery.ErrorStatus(err), err)
	}
	if err := in.Bid(context, domain.Address(p.Bidder), amount, value); err != nil {
		context.WithField("err", err).Error("auction.Bid failed")
		return delivery.MakeJsonResp(c, delivery.ErrorStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, in.Info(context))
}

func (h *handler) end(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)
	in, err := h.reg.Get(context, domain.Address(c.Param("address")))
	if err != nil {
		return delivery.MakeJsonResp(c, delivery.ErrorStatus(err), err)
	}
	if err := in.End(context); err != nil {
		context.WithField("err", err).Error("auction.End failed")
		return delivery.MakeJsonResp(c, delivery.ErrorStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, in.Info(context))
}

func (h *handler) cancel(c echo.Context) error {
	context := c.Get("ctx").(ctx.Ctx)

	p := &struct {
		Caller string `json:"caller" validate:"required"`
	}{}

	if err := c.Bind(p); err != nil {
		context.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}
	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	in, err := h.reg.Get(context, domain.Address(c.Param("address")))
	if err != nil {
		return delivery.MakeJsonResp(c, delivery.ErrorStatus(err), err)
	}
	if err := in.Cancel(context, domain.Address(p.Caller)); err != nil {
		context.WithField("err", err).Error("auction.Cancel failed")
		return delivery.MakeJsonResp(c, delivery.ErrorStatus(err), err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, in.Info(context))
}
