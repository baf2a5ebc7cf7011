package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/carrotlabs/go-carrot-market/conf"
	"github.com/carrotlabs/go-carrot-market/constants"
	"github.com/carrotlabs/go-carrot-market/internal/market"
	"github.com/carrotlabs/go-carrot-market/ledger"
	"github.com/carrotlabs/go-carrot-market/wallet"
)

// setupService builds a one-shot market service for CLI commands. Unlike
// the daemon there is no background sync loop; commands call Resync
// explicitly when they need a fresh snapshot.
func setupService(cctx *cli.Context) (*market.Service, error) {
	repoPath := cctx.String(FlagRepo)
	os.Setenv("CARROT_PATH", repoPath)

	if err := conf.InitConfig(repoPath); err != nil {
		return nil, fmt.Errorf("load config file failed, error: %+v", err)
	}
	cfg := conf.GetConfig()

	localWallet, err := wallet.SetupWallet(wallet.WalletRepo)
	if err != nil {
		return nil, err
	}
	session, err := localWallet.Connect(cfg.WALLET.Address, cfg.LEDGER.Network)
	if err != nil {
		return nil, err
	}

	gateway := newGateway(localWallet)
	registry := ledger.NewRegistryStub(gateway, cfg.LEDGER.RegistryContract, ledger.WithRegistrySession(session))
	marketStub := ledger.NewMarketStub(gateway, cfg.LEDGER.MarketContract, ledger.WithMarketSession(session))
	synchronizer := market.NewSynchronizer(registry, marketStub, session,
		time.Duration(cfg.SYNC.IntervalSecs)*time.Second, cfg.SYNC.Concurrency)

	return market.NewService(
		registry,
		marketStub,
		synchronizer,
		market.NewWorkerClient(cfg.WORKER.Url),
		market.NewStorageService(),
		market.NewRedisStateStore(),
		session,
		filepath.Join(repoPath, constants.TranscriptDirName),
	), nil
}

func newGateway(signer ledger.Signer) *ledger.GatewayClient {
	cfg := conf.GetConfig()
	return ledger.NewGatewayClient(
		cfg.LEDGER.GatewayUrl,
		cfg.LEDGER.AccessToken,
		cfg.LEDGER.Network,
		signer,
		time.Duration(cfg.LEDGER.ConfirmTimeoutSecs)*time.Second,
	)
}

func reqContext(cctx *cli.Context) context.Context {
	ctx, done := context.WithCancel(cctx.Context)
	sigChan := make(chan os.Signal, 2)
	go func() {
		<-sigChan
		done()
	}()
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	return ctx
}
