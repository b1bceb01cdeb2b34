package v2indexer

import (
	"context"
	"errors"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/meme-bots/go-v2-indexer/evm"
	"github.com/meme-bots/go-v2-indexer/handler"
	"github.com/meme-bots/go-v2-indexer/pricing"
	"github.com/meme-bots/go-v2-indexer/store"
	"github.com/meme-bots/go-v2-indexer/types"
	"github.com/meme-bots/go-v2-indexer/utils"
	"go.uber.org/zap"
)

type Indexer struct {
	cfg      *types.Config
	client   *ethclient.Client
	kv       store.KV
	Entities *store.Entities
	Oracle   *pricing.Oracle
	Handler  *handler.Handler
	watcher  *evm.Watcher
	logger   *zap.Logger
}

func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewKV opens pebble under dataDir, or an in-memory store when dataDir is
// empty.
func NewKV(dataDir string) (store.KV, error) {
	if dataDir == "" {
		return store.NewMemory(), nil
	}
	return store.NewPebble(dataDir, true)
}

// ResolveCanonicalPair fills cfg.CanonicalPair from the CREATE2 address of
// the base asset / canonical stablecoin pair when it is not configured.
func ResolveCanonicalPair(cfg *types.Config) error {
	if cfg.CanonicalPair != "" || cfg.CanonicalStablecoin == "" || cfg.PairInitCodeHash == "" {
		return nil
	}
	pair, err := evm.CalculatePoolAddress(
		common.HexToAddress(cfg.WrapNativeToken),
		common.HexToAddress(cfg.CanonicalStablecoin),
		common.HexToAddress(cfg.Factory),
		cfg.PairInitCodeHash,
	)
	if err != nil {
		return err
	}
	cfg.CanonicalPair = types.ID(pair)
	return nil
}

func NewIndexer(ctx context.Context, cfg types.Config, logger *zap.Logger) (*Indexer, error) {
	if err := ResolveCanonicalPair(&cfg); err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, cfg.RPC)
	if err != nil {
		return nil, err
	}

	chainID, err := evm.ChainID(client)
	if err != nil {
		client.Close()
		return nil, err
	}

	chain, err := evm.NewChainReader(client, logger.Named("chain"))
	if err != nil {
		client.Close()
		return nil, err
	}

	kv, err := NewKV(cfg.DataDir)
	if err != nil {
		client.Close()
		return nil, err
	}

	var readCache *cache.Cache[[]byte]
	if cfg.UseCache {
		if readCache, err = utils.NewCache(utils.DefaultCacheConfig()); err != nil {
			client.Close()
			kv.Close()
			return nil, err
		}
	}

	entities := store.NewEntities(kv)
	oracle := pricing.NewOracle(entities, &cfg)
	h := handler.NewHandler(entities, oracle, chain, &cfg, logger.Named("handler"))
	watcher := evm.NewWatcher(client, chainID, &cfg, entities, h, readCache, logger.Named("watcher"))

	logger.Info("indexer initialized",
		zap.String("network", cfg.Name),
		zap.Uint64("chainId", chainID),
		zap.String("factory", cfg.FactoryID()),
		zap.String("canonicalPair", cfg.CanonicalPair),
	)

	return &Indexer{
		cfg:      &cfg,
		client:   client,
		kv:       kv,
		Entities: entities,
		Oracle:   oracle,
		Handler:  h,
		watcher:  watcher,
		logger:   logger,
	}, nil
}

func (i *Indexer) Start() error {
	return i.watcher.Start()
}

// Err reports why the watch loop halted, if it did.
func (i *Indexer) Err() error {
	return i.watcher.Err()
}

func (i *Indexer) Close() error {
	err := i.watcher.Close()
	if errors.Is(err, types.ErrWatcherNotOpen) {
		err = nil
	}
	i.client.Close()
	_ = i.logger.Sync()
	return errors.Join(err, i.kv.Close())
}
