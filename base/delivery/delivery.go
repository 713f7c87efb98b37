package delivery

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/auctionmarket/goapi/domain"
)

type JsonResponseStatus string

const (
	JsonResponseStatusSuccess JsonResponseStatus = "success"
	JsonResponseStatusFail    JsonResponseStatus = "fail"
)

type JsonResponse struct {
	Data   interface{}        `json:"data"`
	Status JsonResponseStatus `json:"status"`
}

func MakeJsonResp(c echo.Context, status int, data interface{}) error {
	if err, ok := data.(error); ok {
		if errors.Is(err, domain.ErrNotFound) {
			status = http.StatusNotFound
		}
		data = err.Error()
	}

	if status >= 400 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusFail})
	}

	if status >= 200 && status < 300 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusSuccess})
	}

	return c.JSON(status, data)
}

// ErrorStatus maps a domain rejection to the HTTP status the presentation
// boundary surfaces it with. Every rejection is synchronous and leaves the
// engine state untouched, so clients may simply resubmit.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAuctionNotOpen),
		errors.Is(err, domain.ErrAuctionExpired),
		errors.Is(err, domain.ErrAuctionNotExpired),
		errors.Is(err, domain.ErrBidsAlreadyPlaced),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStaleOrInvalidPrice):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrValueMismatch),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrTransferRejected),
		errors.Is(err, domain.ErrBadParamInput),
		errors.Is(err, domain.ErrInvalidNumberFormat),
		errors.Is(err, domain.ErrInvalidAddress):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
