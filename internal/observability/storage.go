package observability

import (
	"context"
	"errors"
	"leads/internal/models"
	"leads/internal/storage"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedStorage decorates a storage.Storage with a span, a latency
// sample and, on failure, an error count for every call.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

var _ storage.Storage = (*InstrumentedStorage)(nil)

// NewInstrumentedStorage wraps inner using the global tracer and meter
// providers, so call it after Setup.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	meter := otel.Meter("leads/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of failed storage operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   otel.Tracer("leads/storage"),
		duration: duration,
		errors:   errCounter,
	}, nil
}

// observe runs fn inside a span named after op and records its outcome.
func observe[T any](ctx context.Context, s *InstrumentedStorage, op string, attrs []attribute.KeyValue, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, "storage."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("storage.operation", op))...),
	)
	defer span.End()

	start := time.Now()
	result, err := fn(ctx)
	opAttr := metric.WithAttributes(attribute.String("operation", op))
	s.duration.Record(ctx, time.Since(start).Seconds(), opAttr)

	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, storage.ErrNotFound):
		// Not-found lookups are not counted as failures.
		span.SetAttributes(attribute.Bool("storage.not_found", true))
	default:
		s.errors.Add(ctx, 1, opAttr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// observeErr adapts observe to calls that only return an error.
func observeErr(ctx context.Context, s *InstrumentedStorage, op string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	_, err := observe(ctx, s, op, attrs, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (s *InstrumentedStorage) FindOrCreateUserByEmail(ctx context.Context, email, name string) (*models.User, error) {
	return observe(ctx, s, "FindOrCreateUserByEmail", nil, func(ctx context.Context) (*models.User, error) {
		return s.inner.FindOrCreateUserByEmail(ctx, email, name)
	})
}

func (s *InstrumentedStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return observe(ctx, s, "GetUserByEmail", nil, func(ctx context.Context) (*models.User, error) {
		return s.inner.GetUserByEmail(ctx, email)
	})
}

func (s *InstrumentedStorage) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	attrs := []attribute.KeyValue{attribute.Bool("user.is_admin", user.IsAdmin)}
	return observe(ctx, s, "UpsertUser", attrs, func(ctx context.Context) (*models.User, error) {
		return s.inner.UpsertUser(ctx, user)
	})
}

func (s *InstrumentedStorage) CreateBuyer(ctx context.Context, buyer *models.Buyer, history *models.BuyerHistory) error {
	attrs := []attribute.KeyValue{
		attribute.String("buyer.id", buyer.ID),
		attribute.String("buyer.owner_id", buyer.OwnerID),
		attribute.Bool("buyer.with_history", history != nil),
	}
	return observeErr(ctx, s, "CreateBuyer", attrs, func(ctx context.Context) error {
		return s.inner.CreateBuyer(ctx, buyer, history)
	})
}

func (s *InstrumentedStorage) GetBuyer(ctx context.Context, id string) (*models.Buyer, error) {
	attrs := []attribute.KeyValue{attribute.String("buyer.id", id)}
	return observe(ctx, s, "GetBuyer", attrs, func(ctx context.Context) (*models.Buyer, error) {
		return s.inner.GetBuyer(ctx, id)
	})
}

func (s *InstrumentedStorage) ListBuyers(ctx context.Context, filter models.ListBuyersRequest) ([]*models.Buyer, int, error) {
	attrs := []attribute.KeyValue{
		attribute.String("filter.city", filter.City),
		attribute.String("filter.status", filter.Status),
		attribute.Bool("filter.has_query", filter.Query != ""),
		attribute.Int("page", filter.Page),
		attribute.Int("page_size", filter.PageSize),
	}
	var total int
	buyers, err := observe(ctx, s, "ListBuyers", attrs, func(ctx context.Context) ([]*models.Buyer, error) {
		page, n, err := s.inner.ListBuyers(ctx, filter)
		total = n
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("total", n))
		return page, err
	})
	return buyers, total, err
}

func (s *InstrumentedStorage) BuyerHistory(ctx context.Context, buyerID string) ([]*models.BuyerHistory, error) {
	attrs := []attribute.KeyValue{attribute.String("buyer.id", buyerID)}
	return observe(ctx, s, "BuyerHistory", attrs, func(ctx context.Context) ([]*models.BuyerHistory, error) {
		return s.inner.BuyerHistory(ctx, buyerID)
	})
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	return observeErr(ctx, s, "Ping", nil, s.inner.Ping)
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
