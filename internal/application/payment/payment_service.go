package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nyumbani/backend/internal/domain/identity"
	"github.com/nyumbani/backend/internal/domain/payment"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/shared/valueobject"
	"github.com/nyumbani/backend/internal/domain/tenancy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultGatewayTimeout bounds the blocking StartCharge call
const DefaultGatewayTimeout = 30 * time.Second

// InitiatePaymentCommand carries the input for starting a rent payment
type InitiatePaymentCommand struct {
	LeaseID    uuid.UUID
	Amount     decimal.Decimal
	PayerPhone string
}

// PaymentService starts rent payments against the mobile-money gateway.
// The payment record is created only after the gateway accepts the
// charge, so a rejected or timed-out request leaves no local state and
// the caller can simply retry.
type PaymentService struct {
	gateway        payment.Gateway
	leaseRepo      tenancy.LeaseRepository
	paymentRepo    payment.PaymentRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	gatewayTimeout time.Duration
}

// PaymentServiceConfig holds configuration for the payment service
type PaymentServiceConfig struct {
	Gateway        payment.Gateway
	LeaseRepo      tenancy.LeaseRepository
	PaymentRepo    payment.PaymentRepository
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger
	// GatewayTimeout bounds the StartCharge call; zero uses the default.
	GatewayTimeout time.Duration
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(config PaymentServiceConfig) *PaymentService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.GatewayTimeout
	if timeout <= 0 {
		timeout = DefaultGatewayTimeout
	}
	return &PaymentService{
		gateway:        config.Gateway,
		leaseRepo:      config.LeaseRepo,
		paymentRepo:    config.PaymentRepo,
		eventPublisher: config.EventPublisher,
		logger:         logger,
		gatewayTimeout: timeout,
	}
}

// Initiate validates the request, asks the gateway to prompt the payer,
// and records a pending payment correlated by the gateway's id. No lease
// or bill state changes here; bills settle only on a confirmed callback.
func (s *PaymentService) Initiate(ctx context.Context, actor identity.Actor, cmd InitiatePaymentCommand) (*payment.Payment, error) {
	lease, err := s.leaseRepo.FindByID(ctx, cmd.LeaseID)
	if err != nil {
		return nil, err
	}
	resource := identity.LeaseResource{TenantID: lease.TenantID, LandlordID: lease.LandlordID}
	if !identity.CanPerform(actor, identity.OpInitiatePayment, resource) {
		return nil, shared.ErrForbidden
	}
	if !lease.IsBillable() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot pay rent on lease in %s status", lease.Status))
	}

	req := &payment.ChargeRequest{
		Amount:           cmd.Amount,
		PayerPhone:       cmd.PayerPhone,
		AccountReference: accountReference(lease),
		Description:      "Rent payment",
	}
	if err := req.Validate(); err != nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", err.Error())
	}

	// Bounded call, no locks held while the gateway prompts the payer.
	chargeCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	resp, err := s.gateway.StartCharge(chargeCtx, req)
	if err != nil {
		s.logger.Warn("Gateway rejected charge request",
			zap.String("lease_id", lease.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", shared.ErrGateway, err)
	}

	pmt, err := payment.NewPayment(lease.ID, valueobject.NewMoneyKES(cmd.Amount), cmd.PayerPhone, resp.CorrelationID)
	if err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Save(ctx, pmt); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.ErrConcurrencyConflict
		}
		return nil, err
	}

	s.publishEvents(ctx, pmt)
	s.logger.Info("Payment initiated",
		zap.String("payment_id", pmt.ID.String()),
		zap.String("lease_id", lease.ID.String()),
		zap.String("provider_ref", pmt.ProviderRef))
	return pmt, nil
}

// GetPayment returns a payment visible to the actor
func (s *PaymentService) GetPayment(ctx context.Context, actor identity.Actor, paymentID uuid.UUID) (*payment.Payment, error) {
	pmt, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	lease, err := s.leaseRepo.FindByID(ctx, pmt.LeaseID)
	if err != nil {
		return nil, err
	}
	resource := identity.LeaseResource{TenantID: lease.TenantID, LandlordID: lease.LandlordID}
	if !identity.CanPerform(actor, identity.OpViewLease, resource) {
		return nil, shared.ErrForbidden
	}
	return pmt, nil
}

// ListPaymentsForLease returns the payment history of a lease
func (s *PaymentService) ListPaymentsForLease(ctx context.Context, actor identity.Actor, leaseID uuid.UUID) ([]*payment.Payment, error) {
	lease, err := s.leaseRepo.FindByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	resource := identity.LeaseResource{TenantID: lease.TenantID, LandlordID: lease.LandlordID}
	if !identity.CanPerform(actor, identity.OpViewLease, resource) {
		return nil, shared.ErrForbidden
	}
	return s.paymentRepo.FindByLease(ctx, leaseID)
}

func (s *PaymentService) publishEvents(ctx context.Context, pmt *payment.Payment) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range pmt.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	pmt.ClearDomainEvents()
}

// accountReference is the short lease tag shown on the payer's statement
func accountReference(lease *tenancy.Lease) string {
	id := lease.ID.String()
	return "LEASE-" + id[:8]
}
