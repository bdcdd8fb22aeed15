package observability

import (
	"context"
	"leads/internal/models"
	"leads/internal/storage"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestProvider(t *testing.T) *Provider {
	t.Helper()
	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}
	obs := models.ObservabilityConfig{
		ServiceName: "test",
		Tracing: models.TracingConfig{
			Enabled:    true,
			Exporter:   "stdout",
			SampleRate: 1.0,
		},
	}
	provider, err := Setup(metrics, obs, "test", testVersion)
	require.NoError(t, err)
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	return provider
}

// setupManualReader installs a meter provider whose data the test can collect.
func setupManualReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
		mp.Shutdown(context.Background())
	})
	return reader
}

func sumByOperation(t *testing.T, reader *sdkmetric.ManualReader, name string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value("operation")
				out[op.AsString()] += dp.Value
			}
		}
	}
	return out
}

func newOwnerAndBuyer(t *testing.T, s storage.Storage) (*models.User, *models.Buyer) {
	t.Helper()
	owner, err := s.FindOrCreateUserByEmail(context.Background(), "owner@example.com", "Owner")
	require.NoError(t, err)

	now := time.Now().UTC()
	return owner, &models.Buyer{
		ID:           uuid.New().String(),
		FullName:     "Rajesh Kumar",
		Phone:        "9876543210",
		City:         models.CityChandigarh,
		PropertyType: models.PropertyPlot,
		Purpose:      "Buy",
		Timeline:     "0-3m",
		Source:       "Website",
		Status:       models.StatusNew,
		Tags:         []string{},
		OwnerID:      owner.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestNewInstrumentedStorage(t *testing.T) {
	_ = setupTestProvider(t)

	instrumented, err := NewInstrumentedStorage(storage.NewMemoryStorage())
	require.NoError(t, err)
	assert.NotNil(t, instrumented)

	var _ storage.Storage = instrumented
}

func TestInstrumentedStorage_Ping(t *testing.T) {
	_ = setupTestProvider(t)

	instrumented, err := NewInstrumentedStorage(storage.NewMemoryStorage())
	require.NoError(t, err)

	assert.NoError(t, instrumented.Ping(context.Background()))
}

func TestInstrumentedStorage_Operations(t *testing.T) {
	_ = setupTestProvider(t)

	instrumented, err := NewInstrumentedStorage(storage.NewMemoryStorage())
	require.NoError(t, err)
	ctx := context.Background()

	owner, buyer := newOwnerAndBuyer(t, instrumented)

	found, err := instrumented.GetUserByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, found.ID)

	admin, err := instrumented.UpsertUser(ctx, &models.User{Email: "admin@example.com", Name: "Admin", IsAdmin: true})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	history := &models.BuyerHistory{
		ID:        uuid.New().String(),
		BuyerID:   buyer.ID,
		ChangedBy: owner.Email,
		ChangedAt: buyer.CreatedAt,
		Diff:      map[string]any{"created": map[string]any{"fullName": buyer.FullName}},
	}
	require.NoError(t, instrumented.CreateBuyer(ctx, buyer, history))

	got, err := instrumented.GetBuyer(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, buyer.FullName, got.FullName)

	list, total, err := instrumented.ListBuyers(ctx, models.ListBuyersRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	entries, err := instrumented.BuyerHistory(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = instrumented.GetBuyer(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.NoError(t, instrumented.Close())
}

func TestInstrumentedStorage_RecordsMetrics(t *testing.T) {
	reader := setupManualReader(t)

	instrumented, err := NewInstrumentedStorage(storage.NewMemoryStorage())
	require.NoError(t, err)
	ctx := context.Background()

	_, buyer := newOwnerAndBuyer(t, instrumented)
	require.NoError(t, instrumented.CreateBuyer(ctx, buyer, nil))

	err = instrumented.CreateBuyer(ctx, buyer, nil)
	require.ErrorIs(t, err, storage.ErrConflict)

	_, err = instrumented.GetBuyer(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	errs := sumByOperation(t, reader, "storage.operation.errors")
	assert.Equal(t, int64(1), errs["CreateBuyer"])
	assert.Zero(t, errs["GetBuyer"], "not found is not counted as an error")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	var calls uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "storage.operation.duration" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			for _, dp := range hist.DataPoints {
				calls += dp.Count
			}
		}
	}
	assert.Equal(t, uint64(4), calls)
}
