// Package telemetry owns the in-process OpenTelemetry meter provider and
// turns its collected data into the payment statistics served over HTTP.
package telemetry

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/dmitrijs2005/mockpay/internal/server/services"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type OutcomeCounts struct {
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

func (c OutcomeCounts) Total() int64 { return c.Success + c.Failed }

type PaymentStats struct {
	Charges OutcomeCounts `json:"charges"`
	Refunds OutcomeCounts `json:"refunds"`
}

// Telemetry collects metrics on demand through a manual reader; nothing is
// exported in the background.
type Telemetry struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

func New() *Telemetry {
	reader := sdkmetric.NewManualReader()
	return &Telemetry{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

func (t *Telemetry) Meter(name string) metric.Meter {
	return t.provider.Meter(name)
}

// PaymentStats sums the outcome counter by kind and outcome.
func (t *Telemetry) PaymentStats(ctx context.Context) (PaymentStats, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return PaymentStats{}, fmt.Errorf("collect metrics: %w", err)
	}

	var stats PaymentStats
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != services.OutcomeMetricName {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				kind, _ := dp.Attributes.Value("kind")
				outcome, _ := dp.Attributes.Value("outcome")

				var c *OutcomeCounts
				switch kind.AsString() {
				case services.KindCharge:
					c = &stats.Charges
				case services.KindRefund:
					c = &stats.Refunds
				default:
					continue
				}

				if outcome.AsString() == string(models.TransactionSuccess) {
					c.Success += dp.Value
				} else {
					c.Failed += dp.Value
				}
			}
		}
	}

	return stats, nil
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}
