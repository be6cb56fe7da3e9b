package services

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/logging"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func newPaymentService(t *testing.T, cfg PaymentConfig, opts ...PaymentOption) *PaymentService {
	t.Helper()
	s, err := NewPaymentService(cfg, logging.Nop{}, opts...)
	require.NoError(t, err)
	return s
}

func instant() PaymentConfig {
	cfg := DefaultPaymentConfig()
	cfg.ProcessingDelay = 0
	return cfg
}

func TestCharge_Outcomes(t *testing.T) {
	ctx := context.Background()
	req := ChargeRequest{Amount: 42.5, CardNumber: "4111111111111111", CVV: "123"}

	ok := newPaymentService(t, instant(), WithOutcomeSource(constSource(0.10)))
	tx, err := ok.Charge(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionSuccess, tx.Status)
	assert.Equal(t, MsgChargeSuccess, tx.Message)
	assert.Equal(t, 42.5, tx.Amount)
	_, err = uuid.Parse(tx.ID)
	assert.NoError(t, err)

	fail := newPaymentService(t, instant(), WithOutcomeSource(constSource(0.95)))
	tx, err = fail.Charge(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFailed, tx.Status)
	assert.Equal(t, MsgChargeFailed, tx.Message)
}

func TestRefund_Outcomes(t *testing.T) {
	ctx := context.Background()
	req := RefundRequest{TransactionID: "never-charged", Amount: 10, Reason: "changed mind"}

	ok := newPaymentService(t, instant(), WithOutcomeSource(constSource(0.89)))
	r, err := ok.Refund(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionSuccess, r.Status)
	assert.Equal(t, MsgRefundSuccess, r.Message)
	assert.Equal(t, "never-charged", r.OriginalTransactionID)
	assert.Equal(t, 10.0, r.Amount)

	fail := newPaymentService(t, instant(), WithOutcomeSource(constSource(0.90)))
	r, err = fail.Refund(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFailed, r.Status)
	assert.Equal(t, MsgRefundFailed, r.Message)
}

func TestCharge_NoValidation(t *testing.T) {
	s := newPaymentService(t, instant(), WithOutcomeSource(constSource(0)))

	tx, err := s.Charge(context.Background(), ChargeRequest{Amount: -5})
	require.NoError(t, err)
	assert.Equal(t, -5.0, tx.Amount)
	assert.Equal(t, models.TransactionSuccess, tx.Status)
}

// within4Sigma checks observed success counts against a binomial(n, p).
func within4Sigma(t *testing.T, successes, n int, p float64) {
	t.Helper()
	sigma := math.Sqrt(p * (1 - p) / float64(n))
	got := float64(successes) / float64(n)
	assert.InDelta(t, p, got, 4*sigma, "success rate %.3f outside 4 sigma of %.2f", got, p)
}

func TestCharge_SuccessRate(t *testing.T) {
	s := newPaymentService(t, instant(), WithOutcomeSource(NewSeededSource(20250601)))
	ctx := context.Background()

	const n = 1000
	successes := 0
	for i := 0; i < n; i++ {
		tx, err := s.Charge(ctx, ChargeRequest{Amount: 1})
		require.NoError(t, err)
		if tx.Status == models.TransactionSuccess {
			successes++
		}
	}
	within4Sigma(t, successes, n, 0.95)
}

func TestRefund_SuccessRate(t *testing.T) {
	s := newPaymentService(t, instant(), WithOutcomeSource(NewSeededSource(7)))
	ctx := context.Background()

	const n = 1000
	successes := 0
	for i := 0; i < n; i++ {
		r, err := s.Refund(ctx, RefundRequest{TransactionID: "t", Amount: 1})
		require.NoError(t, err)
		if r.Status == models.TransactionSuccess {
			successes++
		}
	}
	within4Sigma(t, successes, n, 0.90)
}

func TestCharge_DefaultSourceRate(t *testing.T) {
	s := newPaymentService(t, instant())
	ctx := context.Background()

	const n = 1000
	successes := 0
	for i := 0; i < n; i++ {
		tx, err := s.Charge(ctx, ChargeRequest{Amount: 1})
		require.NoError(t, err)
		if tx.Status == models.TransactionSuccess {
			successes++
		}
	}
	// unseeded; 6 sigma keeps the flake rate negligible
	assert.InDelta(t, 0.95, float64(successes)/n, 6*math.Sqrt(0.95*0.05/n))
}

func TestCharge_DelayDoesNotSerialize(t *testing.T) {
	cfg := DefaultPaymentConfig()
	cfg.ProcessingDelay = 100 * time.Millisecond
	s := newPaymentService(t, cfg)

	const n = 50
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Charge(context.Background(), ChargeRequest{Amount: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestCharge_CancelledDuringDelay(t *testing.T) {
	cfg := DefaultPaymentConfig()
	cfg.ProcessingDelay = time.Minute
	s := newPaymentService(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	tx, err := s.Charge(ctx, ChargeRequest{Amount: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, tx)
	assert.Less(t, time.Since(start), 5*time.Second)

	r, err := s.Refund(ctx, RefundRequest{TransactionID: "t"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, r)
}

func TestPayments_RecordOutcomeMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	s := newPaymentService(t, instant(),
		WithOutcomeSource(constSource(0.92)),
		WithMeter(provider.Meter("test")))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Charge(ctx, ChargeRequest{Amount: 1})
		require.NoError(t, err)
	}
	_, err := s.Refund(ctx, RefundRequest{TransactionID: "t"})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != OutcomeMetricName {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				kind, _ := dp.Attributes.Value("kind")
				outcome, _ := dp.Attributes.Value("outcome")
				counts[kind.AsString()+"/"+outcome.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, map[string]int64{
		"charge/success": 3,
		"refund/failed":  1,
	}, counts)
}

func TestSeededSource_Deterministic(t *testing.T) {
	a, b := NewSeededSource(99), NewSeededSource(99)
	for i := 0; i < 10; i++ {
		x, y := a.Float64(), b.Float64()
		assert.Equal(t, x, y)
		assert.GreaterOrEqual(t, x, 0.0)
		assert.Less(t, x, 1.0)
	}
}

func TestLast4(t *testing.T) {
	assert.Equal(t, "1111", last4("4111111111111111"))
	assert.Equal(t, "", last4("12"))
}
