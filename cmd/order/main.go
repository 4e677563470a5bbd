package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/agreements"
	"github.com/oceanprotocol/squid-go/internal/aquarius"
	"github.com/oceanprotocol/squid-go/internal/brizo"
	"github.com/oceanprotocol/squid-go/internal/conditions"
	"github.com/oceanprotocol/squid-go/internal/config"
	"github.com/oceanprotocol/squid-go/internal/db"
	"github.com/oceanprotocol/squid-go/internal/events"
	"github.com/oceanprotocol/squid-go/internal/keeper"
	"github.com/oceanprotocol/squid-go/internal/orders"
	"github.com/oceanprotocol/squid-go/internal/repositories"
)

func main() {
	var (
		did                 = flag.String("did", "", "asset DID to purchase")
		serviceDefinitionID = flag.String("service", "1", "access service definition id")
	)
	flag.Parse()

	log, _ := zap.NewProduction()
	defer log.Sync()

	if *did == "" {
		log.Fatal("-did is required")
	}

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

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
	token, err := keeper.NewToken(client, cfg.TokenAddress)
	if err != nil {
		log.Fatal("failed to bind token", zap.Error(err))
	}

	registry := agreements.NewRegistry(cfg.LockRewardAddress, cfg.AccessSecretStoreAddress, cfg.EscrowRewardAddress)
	store := agreements.NewStore(template, agreementStore, conditionStore, registry, log)
	conditionClients := conditions.NewClients(lockReward, access, escrow, log)
	watcher := events.NewWatcher(client.Eth(), log)
	gateway := brizo.NewClient(log)
	resolver := aquarius.NewClient(cfg.AquariusURL, log)

	opts := orders.Options{
		Timeout:        cfg.PurchaseTimeout,
		PollerRetries:  cfg.PollerRetries,
		PollerInterval: cfg.PollerInterval,
	}

	if cfg.PostgresDSN != "" {
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		repo := repositories.NewOrderRepo(pool)
		if _, err := orders.LogUnfinished(ctx, repo, log); err != nil {
			log.Warn("failed to scan for unfinished orders", zap.Error(err))
		}
		opts.Journal = repo
	}
	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		opts.Publisher = events.NewRedisPublisher(rdb, log)
	}

	orchestrator := orders.NewOrchestrator(resolver, gateway, store, conditionClients, token, watcher, signer, opts, log)

	result, err := orchestrator.Purchase(ctx, *did, *serviceDefinitionID)
	if err != nil {
		log.Fatal("purchase failed", zap.Error(err))
	}

	log.Info("purchase finished",
		zap.String("agreement_id", result.AgreementID.Hex()),
		zap.Bool("access_granted", result.AccessGranted),
		zap.Bool("refunded", result.Refunded),
	)
}
