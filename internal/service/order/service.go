package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/auth"
	"github.com/Additional-Code/bistro/internal/cache"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/messaging"
	repo "github.com/Additional-Code/bistro/internal/repository/order"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

const instrumentationName = "github.com/Additional-Code/bistro/service/order"

var serviceTracer = otel.Tracer(instrumentationName)

// Store persists orders.
type Store interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	GetByIDPrimary(ctx context.Context, id string) (*entity.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Order, error)
	Update(ctx context.Context, order *entity.Order, expected entity.Status) error
	TransitionStatus(ctx context.Context, id string, from, to entity.Status, at time.Time) error
}

// Catalog resolves food ids to catalog entries.
type Catalog interface {
	Lookup(ctx context.Context, ids []string) (map[string]entity.Food, error)
}

// Identity confirms a user id refers to a registered user.
type Identity interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Service encapsulates business logic around orders.
type Service struct {
	store     Store
	catalog   Catalog
	identity  Identity
	cache     cache.Store
	cacheTTL  time.Duration
	prefix    string
	logger    *zap.Logger
	publisher messaging.Client
	rules     config.Orders
	now       func() time.Time

	transitions metric.Int64Counter
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store     Store
	Catalog   Catalog
	Identity  Identity
	Cache     cache.Store `optional:"true"`
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client `optional:"true"`
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var transitions metric.Int64Counter = noop.Int64Counter{}
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"bistro.order.transitions",
		metric.WithDescription("Order status transitions by source and target status."),
	)
	if err != nil {
		logger.Warn("order transition counter unavailable", zap.Error(err))
	} else {
		transitions = counter
	}

	return &Service{
		store:       p.Store,
		catalog:     p.Catalog,
		identity:    p.Identity,
		cache:       p.Cache,
		cacheTTL:    p.Config.Cache.DefaultTTL,
		prefix:      p.Config.Cache.Prefix,
		logger:      logger,
		publisher:   p.Publisher,
		rules:       p.Config.Orders,
		now:         time.Now,
		transitions: transitions,
	}
}

// Create validates and persists a new pending order for the caller.
func (s *Service) Create(ctx context.Context, caller auth.Caller, in OrderInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.String("user.id", caller.UserID),
		attribute.Int("order.items", len(in.Items)),
	))
	defer span.End()

	if err := s.requireUser(ctx, caller); err != nil {
		return nil, err
	}
	if err := validateHeader(in, createPaymentMethods); err != nil {
		return nil, err
	}

	foods, err := s.catalog.Lookup(ctx, foodIDs(in.Items))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog lookup failed")
		return nil, errorbank.Internal("failed to resolve foods", errorbank.WithCause(err))
	}
	if foods == nil {
		foods = map[string]entity.Food{}
	}
	items, err := buildItems(in.Items, foods)
	if err != nil {
		return nil, err
	}
	if err := checkTotal(items, in.TotalAmount, s.rules.TotalTolerance); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	address := in.DeliveryAddress
	if address == "" {
		address = entity.DefaultDeliveryAddress
	}
	order := &entity.Order{
		ID:              uuid.NewString(),
		UserID:          caller.UserID,
		Items:           items,
		TotalAmount:     in.TotalAmount,
		DeliveryAddress: address,
		TableNumber:     in.TableNumber,
		Status:          entity.StatusPending,
		Guest:           normalizeGuest(in.Guest),
		PaymentMethod:   in.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	if err := s.store.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	s.storeInCache(ctx, order)
	s.publish(ctx, newEvent(EventCreated, order, ""))
	return order, nil
}

// List returns the caller's orders, newest first.
func (s *Service) List(ctx context.Context, caller auth.Caller) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List", trace.WithAttributes(attribute.String("user.id", caller.UserID)))
	defer span.End()

	if caller.UserID == "" {
		return nil, errorbank.Unauthenticated("authentication required")
	}
	orders, err := s.store.ListByUser(ctx, caller.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	if orders == nil {
		orders = []*entity.Order{}
	}
	return orders, nil
}

// Get retrieves one order owned by the caller, consulting cache when available.
func (s *Service) Get(ctx context.Context, caller auth.Caller, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := s.getFromCache(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("orders cache read failed", zap.String("id", id), zap.Error(err))
		}
		if order, err = s.load(ctx, id); err != nil {
			span.RecordError(err)
			return nil, err
		}
		s.storeInCache(ctx, order)
	}

	if order.UserID != caller.UserID {
		return nil, errorbank.Forbidden("you are not allowed to view this order")
	}
	return order, nil
}

// Update replaces the items and payment of a pending order and moves it to processing.
func (s *Service) Update(ctx context.Context, caller auth.Caller, id string, in OrderInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if err := validateHeader(in, updatePaymentMethods); err != nil {
		return nil, err
	}
	items, err := buildItems(in.Items, nil)
	if err != nil {
		return nil, err
	}
	if err := checkTotal(items, in.TotalAmount, s.rules.TotalTolerance); err != nil {
		return nil, err
	}

	order, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if order.UserID != caller.UserID {
		return nil, errorbank.Forbidden("you are not allowed to update this order")
	}
	if order.Status != entity.StatusPending {
		return nil, errorbank.InvalidState("only pending orders can be updated", errorbank.WithDetail("status", string(order.Status)))
	}

	order.Items = items
	order.TotalAmount = in.TotalAmount
	order.PaymentMethod = in.PaymentMethod
	if in.DeliveryAddress != "" {
		order.DeliveryAddress = in.DeliveryAddress
	}
	if in.TableNumber != "" {
		order.TableNumber = in.TableNumber
	}
	if guest := normalizeGuest(in.Guest); !guest.IsZero() {
		order.Guest = guest
	}
	order.Status = entity.StatusProcessing
	order.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, order, entity.StatusPending); err != nil {
		if errors.Is(err, repo.ErrStatusConflict) {
			return nil, errorbank.InvalidState("only pending orders can be updated")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update order", errorbank.WithCause(err))
	}
	s.recordTransition(ctx, entity.StatusPending, entity.StatusProcessing)

	// Replicas may lag the write that just committed.
	if fresh, err := s.store.GetByIDPrimary(ctx, id); err == nil {
		order = fresh
	} else {
		s.logger.Warn("reload updated order failed", zap.String("id", id), zap.Error(err))
	}

	s.storeInCache(ctx, order)
	s.publish(ctx, newEvent(EventUpdated, order, entity.StatusPending))
	return order, nil
}

// Cancel cancels a pending order within the cancellation window.
func (s *Service) Cancel(ctx context.Context, caller auth.Caller, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if order.UserID != caller.UserID {
		return nil, errorbank.Forbidden("you are not allowed to cancel this order")
	}
	if order.Status != entity.StatusPending {
		return nil, errorbank.InvalidState("only pending orders can be cancelled", errorbank.WithDetail("status", string(order.Status)))
	}

	now := s.now().UTC()
	if now.Sub(order.CreatedAt) > s.rules.CancelWindow {
		return nil, errorbank.InvalidState(
			"orders can only be cancelled within "+s.rules.CancelWindow.String()+" of creation",
			errorbank.WithDetail("window", s.rules.CancelWindow.String()),
		)
	}

	if err := s.transition(ctx, order, entity.StatusPending, entity.StatusCancelled, now); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.publish(ctx, newEvent(EventCancelled, order, entity.StatusPending))
	return order, nil
}

// AdvanceStatus lets a manager move a processing order to delivered or cancelled.
func (s *Service) AdvanceStatus(ctx context.Context, caller auth.Caller, id string, target entity.Status) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.AdvanceStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.target_status", string(target)),
	))
	defer span.End()

	if !caller.IsManager() {
		return nil, errorbank.Forbidden("only managers can change order status")
	}
	if target != entity.StatusDelivered && target != entity.StatusCancelled {
		return nil, errorbank.InvalidInput("status must be one of delivered, cancelled", errorbank.WithField("status"))
	}

	order, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if order.Status != entity.StatusProcessing {
		return nil, errorbank.InvalidState(
			"only processing orders can be marked "+string(target),
			errorbank.WithDetail("status", string(order.Status)),
		)
	}

	if err := s.transition(ctx, order, entity.StatusProcessing, target, s.now().UTC()); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.publish(ctx, newEvent(EventStatusChanged, order, entity.StatusProcessing))
	return order, nil
}

func (s *Service) transition(ctx context.Context, order *entity.Order, from, to entity.Status, at time.Time) error {
	if err := s.store.TransitionStatus(ctx, order.ID, from, to, at); err != nil {
		if errors.Is(err, repo.ErrStatusConflict) {
			return errorbank.InvalidState("order status changed concurrently; reload and retry")
		}
		return errorbank.Internal("failed to change order status", errorbank.WithCause(err))
	}
	order.Status = to
	order.UpdatedAt = at
	s.recordTransition(ctx, from, to)
	s.storeInCache(ctx, order)
	return nil
}

func (s *Service) requireUser(ctx context.Context, caller auth.Caller) error {
	if caller.UserID == "" {
		return errorbank.Unauthenticated("authentication required")
	}
	ok, err := s.identity.Exists(ctx, caller.UserID)
	if err != nil {
		return errorbank.Internal("failed to verify user", errorbank.WithCause(err))
	}
	if !ok {
		return errorbank.Unauthenticated("user not found")
	}
	return nil
}

// load reads from the store, bypassing cache.
func (s *Service) load(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	return order, nil
}

func (s *Service) recordTransition(ctx context.Context, from, to entity.Status) {
	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}

func (s *Service) cacheKey(id string) string {
	return cache.Key(s.prefix, "orders", id)
}

func (s *Service) getFromCache(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	if err := cache.GetJSON(ctx, s.cache, s.cacheKey(id), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) {
	if err := cache.SetJSON(ctx, s.cache, s.cacheKey(order.ID), order, s.cacheTTL); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("id", order.ID), zap.Error(err))
	}
}
