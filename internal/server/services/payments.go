package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/logging"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	MsgChargeSuccess = "Payment processed successfully"
	MsgChargeFailed  = "Payment failed due to insufficient funds"
	MsgRefundSuccess = "Refund processed successfully"
	MsgRefundFailed  = "Refund failed due to invalid transaction"
)

const (
	KindCharge = "charge"
	KindRefund = "refund"
)

// OutcomeMetricName is the counter incremented once per simulated
// transaction, with "kind" and "outcome" attributes.
const OutcomeMetricName = "mockpay.payments.outcomes"

const meterName = "github.com/dmitrijs2005/mockpay/internal/server/services"

type ChargeRequest struct {
	Amount         float64
	CardNumber     string
	ExpirationDate string
	CVV            string
	CardholderName string
}

type RefundRequest struct {
	TransactionID string
	Amount        float64
	Reason        string
}

type PaymentConfig struct {
	ChargeSuccessRate float64
	RefundSuccessRate float64
	ProcessingDelay   time.Duration
}

func DefaultPaymentConfig() PaymentConfig {
	return PaymentConfig{
		ChargeSuccessRate: 0.95,
		RefundSuccessRate: 0.90,
		ProcessingDelay:   100 * time.Millisecond,
	}
}

// PaymentService simulates an external payment gateway. It validates
// nothing and keeps no ledger.
type PaymentService struct {
	cfg      PaymentConfig
	source   OutcomeSource
	meter    metric.Meter
	outcomes metric.Int64Counter
	log      logging.Logger
}

type PaymentOption func(*PaymentService)

func WithOutcomeSource(src OutcomeSource) PaymentOption {
	return func(s *PaymentService) { s.source = src }
}

// WithMeter records outcome counts on m instead of the global meter provider.
func WithMeter(m metric.Meter) PaymentOption {
	return func(s *PaymentService) { s.meter = m }
}

func NewPaymentService(cfg PaymentConfig, log logging.Logger, opts ...PaymentOption) (*PaymentService, error) {
	s := &PaymentService{
		cfg:    cfg,
		source: DefaultOutcomeSource(),
		meter:  otel.Meter(meterName),
		log:    log.With("module", "payments"),
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := s.meter.Int64Counter(OutcomeMetricName,
		metric.WithDescription("Simulated payment outcomes"),
		metric.WithUnit("{transaction}"))
	if err != nil {
		return nil, fmt.Errorf("create outcome counter: %w", err)
	}
	s.outcomes = counter

	return s, nil
}

// Charge simulates a card charge. The only error is ctx's, when the caller
// gives up during the simulated processing delay.
func (s *PaymentService) Charge(ctx context.Context, req ChargeRequest) (*models.Transaction, error) {
	id := uuid.NewString()
	s.log.Info(ctx, "processing charge", "transaction_id", id, "amount", req.Amount, "card_last4", last4(req.CardNumber))

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	tx := &models.Transaction{ID: id, Amount: req.Amount}
	if s.draw(s.cfg.ChargeSuccessRate) {
		tx.Status, tx.Message = models.TransactionSuccess, MsgChargeSuccess
	} else {
		tx.Status, tx.Message = models.TransactionFailed, MsgChargeFailed
	}

	s.record(ctx, KindCharge, tx.Status)
	s.log.Info(ctx, "charge processed", "transaction_id", id, "status", tx.Status)
	return tx, nil
}

// Refund simulates a refund. TransactionID is echoed and never checked.
func (s *PaymentService) Refund(ctx context.Context, req RefundRequest) (*models.Refund, error) {
	id := uuid.NewString()
	s.log.Info(ctx, "processing refund", "refund_id", id, "transaction_id", req.TransactionID, "amount", req.Amount)

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	r := &models.Refund{ID: id, OriginalTransactionID: req.TransactionID, Amount: req.Amount}
	if s.draw(s.cfg.RefundSuccessRate) {
		r.Status, r.Message = models.TransactionSuccess, MsgRefundSuccess
	} else {
		r.Status, r.Message = models.TransactionFailed, MsgRefundFailed
	}

	s.record(ctx, KindRefund, r.Status)
	s.log.Info(ctx, "refund processed", "refund_id", id, "status", r.Status)
	return r, nil
}

func (s *PaymentService) wait(ctx context.Context) error {
	if s.cfg.ProcessingDelay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(s.cfg.ProcessingDelay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *PaymentService) draw(rate float64) bool {
	return s.source.Float64() < rate
}

func (s *PaymentService) record(ctx context.Context, kind string, status models.TransactionStatus) {
	s.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", string(status)),
	))
}

func last4(card string) string {
	if len(card) < 4 {
		return ""
	}
	return card[len(card)-4:]
}
