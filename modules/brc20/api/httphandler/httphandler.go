package httphandler

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/subfrost/brc20shrew/common"
	"github.com/subfrost/brc20shrew/modules/brc20/usecase"
	"github.com/subfrost/brc20shrew/pkg/logger"
	"github.com/subfrost/brc20shrew/pkg/logger/slogx"
)

type HttpHandler struct {
	usecase *usecase.Usecase
	network common.Network
}

func New(network common.Network, usecase *usecase.Usecase) *HttpHandler {
	return &HttpHandler{
		usecase: usecase,
		network: network,
	}
}

// resolvePkScript accepts either a Bitcoin address or a hex pk script.
func resolvePkScript(network common.Network, wallet string) ([]byte, bool) {
	if wallet == "" {
		return nil, false
	}

	address, err := btcutil.DecodeAddress(wallet, network.ChainParams())
	if err == nil {
		pkScript, err := txscript.PayToAddrScript(address)
		if err != nil {
			return nil, false
		}
		return pkScript, true
	}

	pkScript, err := hex.DecodeString(wallet)
	if err != nil {
		return nil, false
	}
	return pkScript, true
}

// addressFromPkScript returns the address encoded from pkScript, or empty
// string for non-standard scripts.
func addressFromPkScript(pkScript []byte, network common.Network) string {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, network.ChainParams())
	if err != nil {
		logger.Debug("unable to extract address from pkscript", slogx.Error(err))
		return ""
	}
	if len(addrs) != 1 {
		return ""
	}
	return addrs[0].EncodeAddress()
}
