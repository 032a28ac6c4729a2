package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obsfarm/farmd/common/errors"
	"github.com/obsfarm/farmd/farm"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func statusOf(err error) int {
	switch errors.CodeOf(err) {
	case farm.InvalidAmountError, farm.InsufficientBalanceError,
		farm.CliffNotElapsedError, errors.IllegalArgumentError:
		return http.StatusBadRequest
	case farm.UnauthorizedError:
		return http.StatusForbidden
	case farm.TransferFailedError:
		return http.StatusConflict
	case errors.NotFoundError:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.Echo().DefaultHTTPErrorHandler(he, c)
		return
	}
	resp := &ErrorResponse{
		Code:    int(errors.CodeOf(err)),
		Message: errors.ToString(err),
	}
	if err := c.JSON(statusOf(err), resp); err != nil {
		c.Logger().Error(err)
	}
}
