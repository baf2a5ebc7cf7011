package initializer

import (
	"context"
	"path/filepath"
	"time"

	"github.com/filswan/go-swan-lib/logs"

	"github.com/carrotlabs/go-carrot-market/conf"
	"github.com/carrotlabs/go-carrot-market/constants"
	"github.com/carrotlabs/go-carrot-market/internal/market"
	"github.com/carrotlabs/go-carrot-market/ledger"
	"github.com/carrotlabs/go-carrot-market/wallet"
)

// ProjectInit wires the whole client: config, wallet session, ledger
// gateway, synchronizer, execution pipeline, celery worker. It returns the
// market service the API surface is built on.
func ProjectInit(repoPath string) *market.Service {
	if err := conf.InitConfig(repoPath); err != nil {
		logs.GetLogger().Fatal(err)
	}
	cfg := conf.GetConfig()

	localWallet, err := wallet.SetupWallet(wallet.WalletRepo)
	if err != nil {
		logs.GetLogger().Fatalf("Failed opening wallet keystore, error: %+v", err)
	}

	session, err := localWallet.Connect(cfg.WALLET.Address, cfg.LEDGER.Network)
	if err != nil {
		logs.GetLogger().Fatalf("Failed connecting wallet %s, error: %+v", cfg.WALLET.Address, err)
	}
	logs.GetLogger().Infof("wallet session active, address: %s, network: %s", session.Address, session.Network)

	gateway := ledger.NewGatewayClient(
		cfg.LEDGER.GatewayUrl,
		cfg.LEDGER.AccessToken,
		cfg.LEDGER.Network,
		localWallet,
		time.Duration(cfg.LEDGER.ConfirmTimeoutSecs)*time.Second,
	)
	registry := ledger.NewRegistryStub(gateway, cfg.LEDGER.RegistryContract, ledger.WithRegistrySession(session))
	marketStub := ledger.NewMarketStub(gateway, cfg.LEDGER.MarketContract, ledger.WithMarketSession(session))

	synchronizer := market.NewSynchronizer(registry, marketStub, session,
		time.Duration(cfg.SYNC.IntervalSecs)*time.Second, cfg.SYNC.Concurrency)

	service := market.NewService(
		registry,
		marketStub,
		synchronizer,
		market.NewWorkerClient(cfg.WORKER.Url),
		market.NewStorageService(),
		market.NewRedisStateStore(),
		session,
		filepath.Join(repoPath, constants.TranscriptDirName),
	)

	go synchronizer.Run(context.Background())

	celeryService := market.NewCeleryService()
	service.RegisterExecutionTask(celeryService)
	celeryService.Start()

	return service
}
