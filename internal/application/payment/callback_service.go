package payment

import (
	"context"
	"errors"
	"time"

	"github.com/nyumbani/backend/internal/domain/identity"
	"github.com/nyumbani/backend/internal/domain/payment"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/shared/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileOutcome classifies what a callback delivery did
type ReconcileOutcome string

const (
	// OutcomeSettled means the payment was confirmed and bills settled
	OutcomeSettled ReconcileOutcome = "SETTLED"
	// OutcomeFailed means the payment was resolved as failed
	OutcomeFailed ReconcileOutcome = "FAILED"
	// OutcomeDuplicate means the payment was already terminal
	OutcomeDuplicate ReconcileOutcome = "DUPLICATE"
	// OutcomeUnmatched means no payment carries the correlation id
	OutcomeUnmatched ReconcileOutcome = "UNMATCHED"
	// OutcomeInvalid means the payload did not parse
	OutcomeInvalid ReconcileOutcome = "INVALID"
)

// ReconcileResult reports the effect of one callback delivery
type ReconcileResult struct {
	Outcome       ReconcileOutcome
	PaymentID     uuid.UUID
	LeaseID       uuid.UUID
	BillsSettled  int
	CorrelationID string
}

// CallbackService reconciles asynchronous gateway callbacks against
// pending payments. The gateway delivers at-least-once, so every path
// here must be idempotent, and the webhook must always be acknowledged:
// an unmatched or malformed callback is logged, never surfaced as an
// error to the gateway, which would only trigger a retry storm.
type CallbackService struct {
	gateway    payment.Gateway
	scope      TransactionScope
	settlement *payment.SettlementService
	dedup      shared.IdempotencyStore
	dedupTTL   time.Duration
	clock      service.Clock
	publisher  shared.EventPublisher
	logger     *zap.Logger
}

// CallbackServiceConfig holds configuration for the callback service
type CallbackServiceConfig struct {
	Gateway        payment.Gateway
	Scope          TransactionScope
	Settlement     *payment.SettlementService
	// Dedup short-circuits retried deliveries before they hit the
	// database. Optional: the status compare-and-set is the real
	// idempotency guarantee.
	Dedup          shared.IdempotencyStore
	Clock          service.Clock
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger
}

// NewCallbackService creates a new CallbackService
func NewCallbackService(config CallbackServiceConfig) *CallbackService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	settlement := config.Settlement
	if settlement == nil {
		settlement = payment.NewDefaultSettlementService()
	}
	clock := config.Clock
	if clock == nil {
		clock = service.SystemClock{}
	}
	return &CallbackService{
		gateway:    config.Gateway,
		scope:      config.Scope,
		settlement: settlement,
		dedup:      config.Dedup,
		dedupTTL:   shared.DefaultIdempotencyConfig().TTL,
		clock:      clock,
		publisher:  config.EventPublisher,
		logger:     logger,
	}
}

// Reconcile processes one raw webhook delivery. The returned ack body is
// always non-nil and always signals success to the gateway; the result
// tells the caller what actually happened for logging and metrics.
func (s *CallbackService) Reconcile(ctx context.Context, payload []byte) (*ReconcileResult, []byte) {
	cb, err := s.gateway.ParseCallback(payload)
	if err != nil {
		s.logger.Warn("Discarding malformed gateway callback", zap.Error(err))
		return &ReconcileResult{Outcome: OutcomeInvalid},
			s.gateway.GenerateCallbackResponse(true, "Accepted")
	}

	result := s.reconcileParsed(ctx, cb)
	return result, s.gateway.GenerateCallbackResponse(true, "Accepted")
}

func (s *CallbackService) reconcileParsed(ctx context.Context, cb *payment.CallbackResult) *ReconcileResult {
	result := &ReconcileResult{CorrelationID: cb.CorrelationID}

	if s.dedup != nil {
		seen, err := s.dedup.IsProcessed(ctx, cb.CorrelationID)
		if err != nil {
			s.logger.Warn("Callback dedup check failed, falling back to status check",
				zap.Error(err))
		} else if seen {
			result.Outcome = OutcomeDuplicate
			return result
		}
	}

	var pmt *payment.Payment
	var settled int
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		pmt, err = repos.PaymentRepo().FindByProviderRef(ctx, cb.CorrelationID)
		if err != nil {
			return err
		}
		if pmt.IsTerminal() {
			result.Outcome = OutcomeDuplicate
			result.PaymentID = pmt.ID
			return nil
		}

		if cb.Succeeded() {
			if err := pmt.MarkSuccessful(cb.ReceiptNumber); err != nil {
				return err
			}
		} else {
			if err := pmt.MarkFailed(cb.ResultDesc); err != nil {
				return err
			}
		}

		// Single-writer commit: loses to a concurrent callback for the
		// same correlation id with ErrConcurrencyConflict.
		if err := repos.PaymentRepo().UpdateStatusFromPending(ctx, pmt); err != nil {
			return err
		}

		result.PaymentID = pmt.ID
		result.LeaseID = pmt.LeaseID
		if pmt.Status != payment.PaymentStatusSuccessful {
			result.Outcome = OutcomeFailed
			return nil
		}

		unpaid, err := repos.BillRepo().FindUnpaidByLease(ctx, pmt.LeaseID)
		if err != nil {
			return err
		}
		settlementResult, err := s.settlement.Apply(pmt.Amount, unpaid, s.clock.Today())
		if err != nil {
			return err
		}
		for _, bill := range settlementResult.PaidBills {
			if err := repos.BillRepo().Save(ctx, bill); err != nil {
				return err
			}
		}
		settled = len(settlementResult.PaidBills)
		result.Outcome = OutcomeSettled
		result.BillsSettled = settled
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, shared.ErrNotFound):
		// Forged or purged correlation id: log and acknowledge.
		s.logger.Warn("Gateway callback matched no payment",
			zap.String("correlation_id", cb.CorrelationID))
		result.Outcome = OutcomeUnmatched
		return result
	case errors.Is(err, shared.ErrConcurrencyConflict):
		// A concurrent delivery won the terminal transition.
		result.Outcome = OutcomeDuplicate
		return result
	default:
		s.logger.Error("Callback reconciliation failed",
			zap.String("correlation_id", cb.CorrelationID),
			zap.Error(err))
		result.Outcome = OutcomeInvalid
		return result
	}

	if s.dedup != nil && result.Outcome != OutcomeDuplicate {
		if _, err := s.dedup.MarkProcessed(ctx, cb.CorrelationID, s.dedupTTL); err != nil {
			s.logger.Warn("Failed to record callback in dedup store", zap.Error(err))
		}
	}
	if pmt != nil && result.Outcome != OutcomeDuplicate {
		s.publishEvents(ctx, pmt)
		s.logger.Info("Gateway callback reconciled",
			zap.String("correlation_id", cb.CorrelationID),
			zap.String("outcome", string(result.Outcome)),
			zap.Int("bills_settled", settled))
	}
	return result
}

// Refund moves a successful payment to REFUNDED. Administrative only;
// refunds never reopen the bills the payment settled.
func (s *CallbackService) Refund(ctx context.Context, actor identity.Actor, paymentID uuid.UUID) (*payment.Payment, error) {
	if !actor.IsAdmin() {
		return nil, shared.ErrForbidden
	}

	var pmt *payment.Payment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		pmt, err = repos.PaymentRepo().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := pmt.Refund(); err != nil {
			return err
		}
		return repos.PaymentRepo().Save(ctx, pmt)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, pmt)
	s.logger.Info("Payment refunded",
		zap.String("payment_id", pmt.ID.String()),
		zap.String("provider_ref", pmt.ProviderRef))
	return pmt, nil
}

func (s *CallbackService) publishEvents(ctx context.Context, pmt *payment.Payment) {
	if s.publisher == nil {
		return
	}
	for _, event := range pmt.GetDomainEvents() {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	pmt.ClearDomainEvents()
}
