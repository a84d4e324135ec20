package brc20

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/core"
	"github.com/subfrost/brc20shrew/core/datasources"
	"github.com/subfrost/brc20shrew/core/indexer"
	"github.com/subfrost/brc20shrew/core/types"
	"github.com/subfrost/brc20shrew/internal/config"
	brc20api "github.com/subfrost/brc20shrew/modules/brc20/api"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/datagateway"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/evm"
	kvrepo "github.com/subfrost/brc20shrew/modules/brc20/internal/repository/kv"
	brc20usecase "github.com/subfrost/brc20shrew/modules/brc20/usecase"
	"github.com/subfrost/brc20shrew/pkg/kv/leveldb"
	"github.com/subfrost/brc20shrew/pkg/logger"
)

func New(injector do.Injector) (core.IndexerWorker, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	moduleConf := conf.Modules.BRC20

	var (
		brc20Dg       datagateway.BRC20DataGateway
		programDg     datagateway.ProgramReaderDataGateway
		indexerInfoDg datagateway.IndexerInfoDataGateway
	)
	var cleanupFuncs []func(context.Context) error
	switch strings.ToLower(moduleConf.Database) {
	case "leveldb":
		store, err := leveldb.New(moduleConf.LevelDB.Path)
		if err != nil {
			return nil, errors.Wrap(err, "can't open LevelDB store")
		}
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
			return errors.WithStack(store.Close())
		})
		repo := kvrepo.NewRepository(store)
		brc20Dg = repo
		programDg = repo
		indexerInfoDg = repo
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for indexer is not supported", moduleConf.Database)
	}

	var bitcoinDatasource datasources.Datasource[*types.Block]
	var bitcoinNode *datasources.BitcoinNodeDatasource
	switch strings.ToLower(moduleConf.Datasource) {
	case "bitcoin-node":
		btcClient := do.MustInvoke[*rpcclient.Client](injector)
		bitcoinNode = datasources.NewBitcoinNode(btcClient)
		bitcoinDatasource = bitcoinNode
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q datasource is not supported", moduleConf.Datasource)
	}

	bridgeContract, err := parseBridgeContract(moduleConf.BridgeContract)
	if err != nil {
		return nil, errors.Wrap(err, "invalid bridge contract address")
	}

	processor, err := NewProcessor(brc20Dg, indexerInfoDg, bitcoinNode, conf.Network, bridgeContract, cleanupFuncs)
	if err != nil {
		return nil, errors.Wrap(err, "can't create processor")
	}
	if err := processor.VerifyStates(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	// Mount API
	apiHandlers := lo.Uniq(moduleConf.APIHandlers)
	for _, handler := range apiHandlers {
		switch handler {
		case "http":
			httpServer := do.MustInvoke[*fiber.App](injector)
			usecase := brc20usecase.New(brc20Dg, programDg)
			httpHandler := brc20api.NewHTTPHandler(conf.Network, usecase)
			if err := httpHandler.Mount(httpServer); err != nil {
				return nil, errors.Wrap(err, "can't mount BRC20 API")
			}
			logger.InfoContext(ctx, "Mounted HTTP handler")
		default:
			return nil, errors.Wrapf(errs.Unsupported, "%q API handler is not supported", handler)
		}
	}

	return indexer.New(processor, bitcoinDatasource), nil
}

// parseBridgeContract decodes the configured bridge contract address. An empty
// string disables the ledger-adjust native entirely.
func parseBridgeContract(s string) (evm.Address, error) {
	if s == "" {
		return evm.Address{}, nil
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return evm.Address{}, errors.Wrap(err, "address is not valid hex")
	}
	if len(raw) != 20 {
		return evm.Address{}, errors.Errorf("address must be 20 bytes, got %d", len(raw))
	}
	var address evm.Address
	copy(address[:], raw)
	return address, nil
}
