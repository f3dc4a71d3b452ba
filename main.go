package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kkdrhn/GhostBroker/config"
	"github.com/kkdrhn/GhostBroker/internal/clients"
	"github.com/kkdrhn/GhostBroker/internal/services/brain"
	"github.com/kkdrhn/GhostBroker/internal/services/chainwatch"
	"github.com/kkdrhn/GhostBroker/internal/services/hub"
	"github.com/kkdrhn/GhostBroker/internal/services/market"
	"github.com/kkdrhn/GhostBroker/internal/services/scheduler"
	"github.com/kkdrhn/GhostBroker/internal/services/settlement"
	"github.com/kkdrhn/GhostBroker/internal/storage/agents"
	"github.com/kkdrhn/GhostBroker/internal/storage/decisions"
	"github.com/kkdrhn/GhostBroker/internal/web"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Get()
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}
	if cfg.KeeperKey == "" {
		logger.Fatal(config.EnvKeeperKey + " env is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, err := clients.DialLedger(ctx, cfg.RPCURL)
	if err != nil {
		logger.Fatal("failed to dial ledger rpc", zap.Error(err))
	}
	defer ledger.Close()

	registry, err := agents.NewStore(cfg.AgentsFile)
	if err != nil {
		logger.Fatal("failed to open agent registry", zap.Error(err))
	}

	decisionStore, err := decisions.NewWALStore(cfg.WALDir)
	if err != nil {
		logger.Fatal("failed to open decision WAL", zap.Error(err))
	}
	defer decisionStore.Close()

	writer, err := settlement.NewWriter(ledger, cfg.KeeperKey, cfg.ChainID,
		common.HexToAddress(cfg.MarketContract), common.HexToAddress(cfg.AgentContract),
		cfg.ReceiptTimeout, logger)
	if err != nil {
		logger.Fatal("failed to create settlement writer", zap.Error(err))
	}
	logger.Info("keeper account", zap.String("address", writer.KeeperAddress().Hex()))

	table := market.NewPriceTable(cfg.Seeds(), logger)
	oracle := market.NewOracle(ledger, common.HexToAddress(cfg.OracleContract), table, cfg.OracleTimeout, logger)
	vol := market.NewVolatilityTracker(0)
	aggregator := market.NewAggregator(oracle, vol, logger)

	var brains brain.Brain
	if cfg.LLMAPIKey != "" {
		llm := clients.NewOpenAICompatibleClient(cfg.LLMAPIURL, cfg.LLMAPIKey, cfg.LLMModel)
		brains = brain.NewLLMBrain(llm, cfg.DecisionTimeout, logger)
		logger.Info("using LLM reasoning", zap.String("model", cfg.LLMModel))
	} else {
		brains = brain.NewRuleBrain()
		logger.Info("no " + config.EnvLLMAPIKey + " set, using rule-based reasoning")
	}

	fanout := hub.NewHub(logger)

	loop := scheduler.NewScheduler(registry, aggregator, brains, writer, decisionStore, fanout, vol,
		cfg.CommodityNames(), cfg.TickBlocks, cfg.BlockTime, logger)

	server := web.NewServer(cfg.ListenAddr, registry, decisionStore, loop, fanout, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		return server.Start(gctx)
	})
	if cfg.StreamSymbol != "" {
		stream := market.NewStream(cfg.StreamSymbol, cfg.StreamCommodity, table, logger)
		g.Go(func() error {
			return stream.Run(gctx)
		})
	}
	if cfg.WSRPCURL != "" {
		g.Go(func() error {
			wsLedger, err := clients.DialLedger(gctx, cfg.WSRPCURL)
			if err != nil {
				logger.Error("failed to dial ledger ws rpc, chain watch disabled", zap.Error(err))
				return nil
			}
			defer wsLedger.Close()
			watcher := chainwatch.NewWatcher(wsLedger, common.HexToAddress(cfg.MarketContract), fanout, logger)
			return watcher.Run(gctx)
		})
	}

	logger.Info("pipeline started",
		zap.Duration("tick_interval", cfg.TickInterval()),
		zap.Strings("commodities", cfg.CommodityNames()),
		zap.String("listen_addr", cfg.ListenAddr))

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error(err.Error())
	}
	logger.Info("pipeline stopped")
}
