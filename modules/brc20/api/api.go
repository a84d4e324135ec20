package api

import (
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/modules/brc20/api/httphandler"
	"github.com/subfrost/brc20shrew/modules/brc20/usecase"
)

func NewHTTPHandler(network common.Network, usecase *usecase.Usecase) *httphandler.HttpHandler {
	return httphandler.New(network, usecase)
}
