// Package orders drives the purchase saga: from a DID and a service
// definition to a granted access or a refunded escrow, with every on-chain
// and off-chain step in between.
package orders

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/aquarius"
	"github.com/oceanprotocol/squid-go/internal/brizo"
	"github.com/oceanprotocol/squid-go/internal/events"
	"github.com/oceanprotocol/squid-go/internal/models"
	"github.com/oceanprotocol/squid-go/internal/sla"
)

const (
	DefaultPurchaseTimeout = 120 * time.Second
	DefaultPollerRetries   = 2
	DefaultPollerInterval  = 10 * time.Second
)

// ConditionClients is the fulfillment surface the consumer side needs: lock
// and refund, plus the condition contract addresses for key derivation and
// event scoping.
type ConditionClients interface {
	LockRewardAddress() common.Address
	AccessAddress() common.Address
	EscrowAddress() common.Address
	FulfillLockReward(ctx context.Context, agreementID models.AgreementID, escrowAddress common.Address, amount *big.Int) error
	FulfillEscrowReward(ctx context.Context, agreementID models.AgreementID, amount *big.Int, receiver, sender common.Address, lockConditionID, releaseConditionID [32]byte) error
}

type TokenClient interface {
	Approve(ctx context.Context, spender common.Address, amount *big.Int) error
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
}

type EventWatcher interface {
	WatchOnce(ctx context.Context, contract common.Address, signature string, agreementID *models.AgreementID) (<-chan types.Log, <-chan error)
}

type Gateway interface {
	InitializeAccess(ctx context.Context, purchaseEndpoint string, req brizo.InitializeRequest) (brizo.InitializeResult, error)
}

// AgreementFetcher is the read-only slice of the agreement store the saga
// and the status poller use.
type AgreementFetcher interface {
	Get(ctx context.Context, agreementID models.AgreementID) (*models.ServiceAgreement, error)
}

type MessageSigner interface {
	Address() common.Address
	SignText(message []byte) (string, error)
}

// Journal persists saga state for audit and recovery. Optional; a nil
// journal disables persistence.
type Journal interface {
	Insert(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, agreementID models.AgreementID, status string, accessGranted, refunded bool) error
}

// Orchestrator runs purchase sagas. One saga per agreement id; sagas share
// no mutable state, so the orchestrator itself is safe for concurrent use.
type Orchestrator struct {
	resolver   aquarius.Resolver
	gateway    Gateway
	store      AgreementFetcher
	conditions ConditionClients
	token      TokenClient
	watcher    EventWatcher
	signer     MessageSigner

	journal   Journal          // optional
	publisher events.Publisher // optional

	timeout        time.Duration
	pollerRetries  int
	pollerInterval time.Duration

	log *zap.Logger
}

type Options struct {
	Journal        Journal
	Publisher      events.Publisher
	Timeout        time.Duration
	PollerRetries  int
	PollerInterval time.Duration
}

func NewOrchestrator(
	resolver aquarius.Resolver,
	gateway Gateway,
	store AgreementFetcher,
	conditions ConditionClients,
	token TokenClient,
	watcher EventWatcher,
	signer MessageSigner,
	opts Options,
	log *zap.Logger,
) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPurchaseTimeout
	}
	if opts.PollerRetries <= 0 {
		opts.PollerRetries = DefaultPollerRetries
	}
	if opts.PollerInterval <= 0 {
		opts.PollerInterval = DefaultPollerInterval
	}
	return &Orchestrator{
		resolver:       resolver,
		gateway:        gateway,
		store:          store,
		conditions:     conditions,
		token:          token,
		watcher:        watcher,
		signer:         signer,
		journal:        opts.Journal,
		publisher:      opts.Publisher,
		timeout:        opts.Timeout,
		pollerRetries:  opts.PollerRetries,
		pollerInterval: opts.PollerInterval,
		log:            log,
	}
}

// Purchase runs one saga for (did, serviceDefinitionID). It returns a
// definitive OrderResult (granted or refunded, never both) or a typed error
// naming the agreement id. No refund is ever attempted for an agreement
// whose lock did not succeed.
func (o *Orchestrator) Purchase(ctx context.Context, did, serviceDefinitionID string) (*models.OrderResult, error) {
	service, err := o.resolver.ResolveAccessService(ctx, did, serviceDefinitionID)
	if err != nil {
		return nil, err
	}

	agreementID, err := sla.GenerateAgreementID()
	if err != nil {
		return nil, err
	}
	consumer := o.signer.Address()

	log := o.log.With(
		zap.String("agreement_id", agreementID.Hex()),
		zap.String("did", did),
	)
	log.Info("starting purchase",
		zap.String("consumer", consumer.Hex()),
		zap.String("price", service.Price.String()),
	)

	conditionKeys := sla.ConditionKeys(agreementID.Bytes32(),
		o.conditions.LockRewardAddress(), o.conditions.AccessAddress(), o.conditions.EscrowAddress())
	timeLocks := zeroTimes(len(conditionKeys))
	timeOuts := zeroTimes(len(conditionKeys))

	order := &models.Order{
		AgreementID: agreementID,
		DID:         did,
		Consumer:    consumer.Hex(),
		Provider:    service.Creator.Hex(),
		Price:       service.Price,
		Status:      models.OrderStatusInit,
	}
	o.journalInsert(ctx, order)

	// The creation watch starts before the gateway is notified so the event
	// cannot slip between the notification and the subscription.
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	createdCh, createErrCh := o.watcher.WatchOnce(watchCtx, service.TemplateID, events.SigAgreementCreated, &agreementID)

	if err := o.signAndNotify(ctx, agreementID, service, conditionKeys, timeLocks, timeOuts, consumer, did, log); err != nil {
		o.transition(ctx, order, models.OrderStatusFailed)
		return nil, err
	}
	o.transition(ctx, order, models.OrderStatusAwaitCreation)

	if err := o.awaitCreation(ctx, agreementID, createdCh, createErrCh, log); err != nil {
		o.transition(ctx, order, models.OrderStatusFailed)
		return nil, err
	}
	cancelWatch()
	o.publish(ctx, events.EventAgreementCreated, agreementID)

	if err := o.checkPreconditions(ctx, agreementID, consumer, service.Price); err != nil {
		o.transition(ctx, order, models.OrderStatusFailed)
		return nil, err
	}
	o.transition(ctx, order, models.OrderStatusLocking)

	// The grant watch starts before the lock is submitted: a provider
	// fulfilling immediately must not be missed.
	grantCtx, cancelGrant := context.WithCancel(ctx)
	defer cancelGrant()
	grantCh, grantErrCh := o.watcher.WatchOnce(grantCtx, o.conditions.AccessAddress(), events.SigAccessFulfilled, &agreementID)

	if err := o.conditions.FulfillLockReward(ctx, agreementID, o.conditions.EscrowAddress(), service.Price); err != nil {
		o.transition(ctx, order, models.OrderStatusFailed)
		return nil, err
	}
	o.transition(ctx, order, models.OrderStatusAwaitGrant)
	o.publish(ctx, events.EventRewardLocked, agreementID)

	result, err := o.awaitGrantOrRefund(ctx, agreementID, consumer, service.Price, conditionKeys, grantCh, grantErrCh, cancelGrant, log)
	if err != nil {
		o.transition(ctx, order, models.OrderStatusFailed)
		o.publish(ctx, events.EventOrderFailed, agreementID)
		return nil, err
	}

	if result.AccessGranted {
		o.transition(ctx, order, models.OrderStatusGranted)
		o.publish(ctx, events.EventAccessGranted, agreementID)
	} else {
		o.transition(ctx, order, models.OrderStatusRefunded)
		o.publish(ctx, events.EventRewardRefunded, agreementID)
	}
	return result, nil
}

// signAndNotify signs the agreement digest and posts the initialize request.
// A 401 from the gateway is ambiguous and resolved against the chain before
// being classified.
func (o *Orchestrator) signAndNotify(ctx context.Context, agreementID models.AgreementID, service *aquarius.AccessService, conditionKeys [][32]byte, timeLocks, timeOuts []*big.Int, consumer common.Address, did string, log *zap.Logger) error {
	digest, err := sla.AgreementHash(service.TemplateID, conditionKeys, timeLocks, timeOuts, agreementID)
	if err != nil {
		return err
	}
	signature, err := o.signer.SignText(digest[:])
	if err != nil {
		return models.NewAgreementError(models.ErrAgreementNotInitialized, agreementID, "sign agreement", err)
	}

	req := brizo.NewInitializeRequest(did, agreementID, service.ServiceDefinitionID, signature, consumer.Hex())
	result, err := o.gateway.InitializeAccess(ctx, service.PurchaseEndpoint, req)
	switch result {
	case brizo.InitializeAccepted:
		return nil
	case brizo.InitializeAmbiguous:
		if CheckAgreementStatus(ctx, o.store, agreementID, consumer, o.pollerRetries, o.pollerInterval, log) {
			return nil
		}
		return models.NewAgreementError(models.ErrAgreementNotInitialized, agreementID, "initialize access",
			errors.New("gateway returned 401 and no on-chain agreement found"))
	default:
		return models.NewAgreementError(models.ErrAgreementNotInitialized, agreementID, "initialize access", err)
	}
}

func (o *Orchestrator) awaitCreation(ctx context.Context, agreementID models.AgreementID, createdCh <-chan types.Log, errCh <-chan error, log *zap.Logger) error {
	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case <-createdCh:
		log.Info("agreement creation observed")
		return nil
	case err := <-errCh:
		return models.NewAgreementError(models.ErrAgreementNotInitialized, agreementID, "await creation", err)
	case <-timer.C:
		return models.NewAgreementError(models.ErrAgreementNotInitialized, agreementID, "await creation",
			errors.New("creation event not observed before timeout"))
	case <-ctx.Done():
		return ctx.Err()
	}
}

// checkPreconditions makes sure the lock contract can draw price from the
// consumer. An allowance that already covers the amount is reused, otherwise
// a fresh approval is submitted. An insufficient balance aborts before any
// lock transaction; the approval itself moves no funds.
func (o *Orchestrator) checkPreconditions(ctx context.Context, agreementID models.AgreementID, consumer common.Address, price *big.Int) error {
	spender := o.conditions.LockRewardAddress()
	allowance, err := o.token.Allowance(ctx, consumer, spender)
	if err != nil {
		return models.NewAgreementError(models.ErrLockRewardFailed, agreementID, "allowance check", err)
	}
	if allowance.Cmp(price) < 0 {
		if err := o.token.Approve(ctx, spender, price); err != nil {
			return models.NewAgreementError(models.ErrLockRewardFailed, agreementID, "token approve", err)
		}
	}

	balance, err := o.token.BalanceOf(ctx, consumer)
	if err != nil {
		return models.NewAgreementError(models.ErrLockRewardFailed, agreementID, "balance check", err)
	}
	if balance.Cmp(price) < 0 {
		return models.NewAgreementError(models.ErrInsufficientBalance, agreementID, "balance check",
			errors.New("balance "+balance.String()+" below price "+price.String()))
	}
	return nil
}

// awaitGrantOrRefund races the grant event against the purchase timeout. A
// grant wins ties: a received event is never discarded for a timer that
// merely reached zero. The timeout path performs exactly one compensating
// refund with the consumer as receiver. Any other error leaves the state
// unknown and is surfaced without compensation.
func (o *Orchestrator) awaitGrantOrRefund(ctx context.Context, agreementID models.AgreementID, consumer common.Address, price *big.Int, conditionKeys [][32]byte, grantCh <-chan types.Log, errCh <-chan error, cancelGrant context.CancelFunc, log *zap.Logger) (*models.OrderResult, error) {
	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case <-grantCh:
		log.Info("access granted")
		return &models.OrderResult{AgreementID: agreementID, AccessGranted: true}, nil

	case err := <-errCh:
		return nil, models.NewAgreementError(models.ErrServiceAgreementFailed, agreementID, "await grant", err)

	case <-ctx.Done():
		return nil, ctx.Err()

	case <-timer.C:
		// The event may have fired in the same instant the timer did.
		select {
		case <-grantCh:
			log.Info("access granted at timeout boundary")
			return &models.OrderResult{AgreementID: agreementID, AccessGranted: true}, nil
		default:
		}
		cancelGrant()

		log.Warn("grant not observed before timeout, refunding")
		err := o.conditions.FulfillEscrowReward(ctx, agreementID, price, consumer, consumer,
			conditionKeys[0], conditionKeys[1])
		if err != nil {
			return nil, err
		}

		// A grant arriving after the refund decision cannot be honored, but
		// it must not vanish silently.
		select {
		case <-grantCh:
			log.Warn("grant event arrived after refund was submitted")
		default:
		}
		return &models.OrderResult{AgreementID: agreementID, Refunded: true}, nil
	}
}

func (o *Orchestrator) transition(ctx context.Context, order *models.Order, to string) {
	if !models.IsValidOrderTransition(order.Status, to) {
		o.log.Warn("invalid order transition",
			zap.String("agreement_id", order.AgreementID.Hex()),
			zap.String("from", order.Status),
			zap.String("to", to),
		)
		return
	}
	order.Status = to
	order.AccessGranted = to == models.OrderStatusGranted
	order.Refunded = to == models.OrderStatusRefunded

	if o.journal != nil {
		if err := o.journal.UpdateStatus(ctx, order.AgreementID, to, order.AccessGranted, order.Refunded); err != nil {
			o.log.Warn("journal update failed", zap.Error(err), zap.String("status", to))
		}
	}
	if o.publisher != nil {
		event := events.Event{Type: events.EventOrderStatusChanged, Payload: map[string]any{
			"agreement_id": order.AgreementID.Hex(),
			"status":       to,
		}}
		if err := o.publisher.Publish(ctx, events.StreamOrders, event); err != nil {
			o.log.Warn("event publish failed", zap.Error(err))
		}
	}
}

func (o *Orchestrator) journalInsert(ctx context.Context, order *models.Order) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Insert(ctx, order); err != nil {
		o.log.Warn("journal insert failed", zap.Error(err),
			zap.String("agreement_id", order.AgreementID.Hex()))
	}
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, agreementID models.AgreementID) {
	if o.publisher == nil {
		return
	}
	event := events.Event{Type: eventType, Payload: map[string]any{
		"agreement_id": agreementID.Hex(),
	}}
	if err := o.publisher.Publish(ctx, events.StreamOrders, event); err != nil {
		o.log.Warn("event publish failed", zap.Error(err), zap.String("type", eventType))
	}
}

func zeroTimes(n int) []*big.Int {
	values := make([]*big.Int, n)
	for i := range values {
		values[i] = big.NewInt(0)
	}
	return values
}
