// Package provider is the publisher-side gateway daemon. It accepts signed
// initialize requests from consumers, creates the agreement on-chain and
// fulfills the publisher's conditions once the consumer's lock is observed.
package provider

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/aquarius"
	"github.com/oceanprotocol/squid-go/internal/brizo"
	"github.com/oceanprotocol/squid-go/internal/events"
	"github.com/oceanprotocol/squid-go/internal/keeper"
	"github.com/oceanprotocol/squid-go/internal/middleware"
	"github.com/oceanprotocol/squid-go/internal/models"
	"github.com/oceanprotocol/squid-go/internal/sla"
)

type AgreementCreator interface {
	Create(ctx context.Context, agreement *models.ServiceAgreement) error
}

// ConditionFulfiller is the publisher-side fulfillment surface: grant plus
// release, with the contract addresses for key derivation and event scoping.
type ConditionFulfiller interface {
	LockRewardAddress() common.Address
	AccessAddress() common.Address
	EscrowAddress() common.Address
	FulfillAccess(ctx context.Context, agreementID models.AgreementID, documentID [32]byte, grantee common.Address) error
	FulfillEscrowReward(ctx context.Context, agreementID models.AgreementID, amount *big.Int, receiver, sender common.Address, lockConditionID, releaseConditionID [32]byte) error
}

type EventWatcher interface {
	WatchOnce(ctx context.Context, contract common.Address, signature string, agreementID *models.AgreementID) (<-chan types.Log, <-chan error)
}

// OrderFeed is the consumer-side event view: the latest status each running
// purchase has reported over pub/sub.
type OrderFeed interface {
	Latest(agreementID string) (string, bool)
}

type Server struct {
	app        *fiber.App
	resolver   aquarius.Resolver
	store      AgreementCreator
	conditions ConditionFulfiller
	watcher    EventWatcher
	feed       OrderFeed      // optional
	address    common.Address // the publisher's own account

	// lifetime of background fulfillment tasks
	ctx         context.Context
	lockTimeout time.Duration

	log *zap.Logger
}

func NewServer(ctx context.Context, resolver aquarius.Resolver, store AgreementCreator, conditions ConditionFulfiller, watcher EventWatcher, address common.Address, rdb *redis.Client, feed OrderFeed, lockTimeout time.Duration, log *zap.Logger) *Server {
	if lockTimeout <= 0 {
		lockTimeout = 10 * time.Minute
	}

	s := &Server{
		app:         fiber.New(fiber.Config{DisableStartupMessage: true}),
		resolver:    resolver,
		store:       store,
		conditions:  conditions,
		watcher:     watcher,
		feed:        feed,
		address:     address,
		ctx:         ctx,
		lockTimeout: lockTimeout,
		log:         log,
	}

	s.app.Use(recover.New())
	s.app.Use(middleware.RequestIDMiddleware())
	s.app.Use(middleware.LoggerMiddleware(log))

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api/v1/brizo")
	if rdb != nil {
		api.Use(middleware.RateLimitMiddleware(rdb, 60, time.Minute))
	}
	api.Post("/services/access/initialize", s.handleInitialize)
	if feed != nil {
		api.Get("/agreements/:agreementID/status", s.handleOrderStatus)
	}

	return s
}

func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

func (s *Server) Shutdown() error { return s.app.Shutdown() }

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App { return s.app }

// handleInitialize verifies the consumer's signature over the agreement
// digest, creates the agreement on-chain, and schedules publisher-side
// fulfillment. 401 means the signature does not belong to the claimed
// consumer; the consumer side resolves that ambiguity on-chain.
func (s *Server) handleInitialize(c *fiber.Ctx) error {
	var req brizo.InitializeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	agreementID, err := models.ParseAgreementID(req.ServiceAgreementID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid agreement id"})
	}

	service, err := s.resolver.ResolveAccessService(c.Context(), req.DID, req.ServiceDefinitionID)
	if err != nil {
		s.log.Warn("asset resolution failed", zap.String("did", req.DID), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown asset or service"})
	}

	conditionKeys := sla.ConditionKeys(agreementID.Bytes32(),
		s.conditions.LockRewardAddress(), s.conditions.AccessAddress(), s.conditions.EscrowAddress())
	zeros := make([]*big.Int, len(conditionKeys))
	for i := range zeros {
		zeros[i] = big.NewInt(0)
	}
	digest, err := sla.AgreementHash(service.TemplateID, conditionKeys, zeros, zeros, agreementID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid agreement shape"})
	}

	signer, err := keeper.RecoverAddress(digest[:], req.Signature)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable signature"})
	}
	consumer := common.HexToAddress(req.ConsumerAddress)
	if signer != consumer {
		s.log.Warn("signature does not match consumer",
			zap.String("agreement_id", agreementID.Hex()),
			zap.String("claimed", consumer.Hex()),
			zap.String("recovered", signer.Hex()),
		)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "signature does not match consumer address"})
	}

	agreement := &models.ServiceAgreement{
		ID:         agreementID,
		DID:        service.AssetID,
		TemplateID: service.TemplateID,
		Consumer:   consumer,
		Provider:   s.address,
		Conditions: conditionKeys,
	}
	if err := s.store.Create(c.Context(), agreement); err != nil {
		s.log.Error("agreement creation failed",
			zap.String("agreement_id", agreementID.Hex()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "agreement creation failed"})
	}

	go s.fulfillAfterLock(agreementID, service, consumer, conditionKeys)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"agreementId": agreementID.Hex(),
	})
}

// handleOrderStatus answers with the latest status the consumer's purchase
// has reported over the order stream. Registered only when a feed is wired.
func (s *Server) handleOrderStatus(c *fiber.Ctx) error {
	agreementID, err := models.ParseAgreementID(c.Params("agreementID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid agreement id"})
	}

	status, ok := s.feed.Latest(agreementID.Hex())
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no events observed for agreement"})
	}
	return c.JSON(fiber.Map{
		"agreementId": agreementID.Hex(),
		"status":      status,
	})
}

// fulfillAfterLock waits for the consumer's lock, then grants access and
// releases the escrow to the publisher. Runs detached from the request; its
// lifetime is the server's context.
func (s *Server) fulfillAfterLock(agreementID models.AgreementID, service *aquarius.AccessService, consumer common.Address, conditionKeys [][32]byte) {
	log := s.log.With(zap.String("agreement_id", agreementID.Hex()))

	ctx, cancel := context.WithTimeout(s.ctx, s.lockTimeout)
	defer cancel()

	lockCh, errCh := s.watcher.WatchOnce(ctx, s.conditions.LockRewardAddress(), events.SigLockFulfilled, &agreementID)
	select {
	case <-lockCh:
	case err := <-errCh:
		log.Error("lock watch failed", zap.Error(err))
		return
	case <-ctx.Done():
		log.Warn("lock not observed before timeout, leaving agreement unfulfilled")
		return
	}
	log.Info("reward lock observed, granting access")

	if err := s.conditions.FulfillAccess(ctx, agreementID, service.AssetID, consumer); err != nil {
		log.Error("grant access failed", zap.Error(err))
		return
	}

	if err := s.conditions.FulfillEscrowReward(ctx, agreementID, service.Price, s.address, consumer,
		conditionKeys[0], conditionKeys[1]); err != nil {
		log.Error("escrow release failed", zap.Error(err))
		return
	}
	log.Info("escrow released to publisher")
}
