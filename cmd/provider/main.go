package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/agreements"
	"github.com/oceanprotocol/squid-go/internal/aquarius"
	"github.com/oceanprotocol/squid-go/internal/conditions"
	"github.com/oceanprotocol/squid-go/internal/config"
	"github.com/oceanprotocol/squid-go/internal/db"
	"github.com/oceanprotocol/squid-go/internal/events"
	"github.com/oceanprotocol/squid-go/internal/keeper"
	"github.com/oceanprotocol/squid-go/internal/provider"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signer, err := keeper.NewSigner(cfg.PrivateKey)
	if err != nil {
		log.Fatal("failed to load account key", zap.Error(err))
	}

	client, err := keeper.Dial(ctx, cfg.KeeperURL, signer, cfg.TxAttempts, cfg.TxSleep, log)
	if err != nil {
		log.Fatal("failed to connect to keeper", zap.Error(err))
	}
	defer client.Close()

	lockReward, err := client.NewContract("lockRewardCondition", cfg.LockRewardAddress, conditions.LockRewardConditionABI)
	if err != nil {
		log.Fatal("failed to bind contract", zap.Error(err))
	}
	access, err := client.NewContract("accessSecretStoreCondition", cfg.AccessSecretStoreAddress, conditions.AccessSecretStoreConditionABI)
	if err != nil {
		log.Fatal("failed to bind contract", zap.Error(err))
	}
	escrow, err := client.NewContract("escrowReward", cfg.EscrowRewardAddress, conditions.EscrowRewardABI)
	if err != nil {
		log.Fatal("failed to bind contract", zap.Error(err))
	}
	template, err := client.NewContract("template", cfg.TemplateAddress, agreements.TemplateABI)
	if err != nil {
		log.Fatal("failed to bind contract", zap.Error(err))
	}
	agreementStore, err := client.NewContract("agreementStoreManager", cfg.AgreementStoreAddress, agreements.AgreementStoreManagerABI)
	if err != nil {
		log.Fatal("failed to bind contract", zap.Error(err))
	}
	conditionStore, err := client.NewContract("conditionStoreManager", cfg.ConditionStoreAddress, agreements.ConditionStoreManagerABI)
	if err != nil {
		log.Fatal("failed to bind contract", zap.Error(err))
	}

	registry := agreements.NewRegistry(cfg.LockRewardAddress, cfg.AccessSecretStoreAddress, cfg.EscrowRewardAddress)
	store := agreements.NewStore(template, agreementStore, conditionStore, registry, log)
	conditionClients := conditions.NewClients(lockReward, access, escrow, log)
	watcher := events.NewWatcher(client.Eth(), log)
	resolver := aquarius.NewClient(cfg.AquariusURL, log)

	var (
		rdb  *redis.Client
		feed provider.OrderFeed
	)
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		listener := events.NewListener(events.NewRedisSubscriber(rdb, log), log)
		if err := listener.Run(ctx); err != nil {
			log.Fatal("failed to subscribe to order stream", zap.Error(err))
		}
		feed = listener
	}

	server := provider.NewServer(ctx, resolver, store, conditionClients, watcher, signer.Address(), rdb, feed, 0, log)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = server.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.ProviderPort)
	log.Info("starting gateway", zap.String("addr", addr))
	if err := server.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
